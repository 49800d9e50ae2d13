package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/models/domain"
	"BunOfTheDayBot/internal/repositories"
	"BunOfTheDayBot/internal/utils/logger/sl"
)

// Inline argument forms of the multi-step admin commands, e.g.
// "/add_bun Эклер 5" or "/add_points -100123 @vasya 2-6".

func (bunBot *Bot) addBunFromArgs(ctx context.Context, chatID int64, threadID int, args string) error {
	name, points, err := splitTrailingInt(args)
	if err != nil || points <= 0 || name == "" || utf8.RuneCountInString(name) > maxBunNameLen {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Формат: /add_bun <название> <очки>, очки — целое число больше нуля.")
	}
	return bunBot.createBunAndReport(ctx, chatID, threadID, name, points)
}

func (bunBot *Bot) editBunFromArgs(ctx context.Context, chatID int64, threadID int, args string) error {
	op := "telegram.editBunFromArgs"
	name, points, err := splitTrailingInt(args)
	if err != nil || points <= 0 || name == "" {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Формат: /edit_bun <название> <очки>, очки — целое число больше нуля.")
	}

	existing, err := bunBot.repo.GetBunByName(ctx, name)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Булочки «%s» нет в каталоге. Смотри /list_buns.", name))
	}
	if _, err := bunBot.repo.UpdateBunPoints(ctx, name, points); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("✅ «%s»: было %s, стало %s. Уже накопленные очки не меняются.",
			name, pointsWord(existing.Points), pointsWord(points)))
}

func (bunBot *Bot) removeBunFromArgs(ctx context.Context, chatID int64, threadID int, args string) error {
	bun, err := bunBot.repo.GetBunByName(ctx, args)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Булочки «%s» нет в каталоге. Смотри /list_buns.", args))
	}

	// deletion stays behind a confirmation even in the inline form
	kb := inlineKeyboard(inlineRow(
		inlineBtn("✅ Да, удалить", "adm_bundelok_"+bun.ID.String()),
		inlineBtn("❌ Отмена", "adm_menu_buns"),
	))
	return bunBot.sendWithKeyboard(ctx, chatID, threadID,
		fmt.Sprintf("⚠️ Удалить «%s»?\nНакопленные за неё очки тоже пропадут. Это необратимо.", bun.Name),
		kb)
}

func (bunBot *Bot) pointsAllFromArgs(ctx context.Context, chatID int64, threadID int, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Формат: /add_points_all <ID чата> <очки или диапазон N-M>.")
	}
	targetChatID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Первый аргумент — ID чата.")
	}
	spec, err := game.ParsePointsSpec(fields[1])
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			"❌ Очки — число (можно отрицательное) или диапазон N-M.")
	}
	return bunBot.awardPointsAll(ctx, chatID, threadID, targetChatID,
		bunBot.chatTitle(ctx, targetChatID), spec)
}

func (bunBot *Bot) pointsUserFromArgs(ctx context.Context, chatID int64, threadID int, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Формат: /add_points <ID чата> <@username> <очки или диапазон N-M>.")
	}
	targetChatID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Первый аргумент — ID чата.")
	}
	spec, err := game.ParsePointsSpec(fields[2])
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			"❌ Очки — число (можно отрицательное) или диапазон N-M.")
	}
	user, err := bunBot.resolveActivePlayer(ctx, targetChatID, fields[1])
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Не нашёл активного игрока %s в чате %d.", fields[1], targetChatID))
	}
	return bunBot.awardPointsToUser(ctx, chatID, threadID, targetChatID, user, spec)
}

func (bunBot *Bot) setPointsFromArgs(ctx context.Context, chatID int64, threadID int, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Формат: /set_points <ID чата> <@username> <итоговые очки>.")
	}
	targetChatID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Первый аргумент — ID чата.")
	}
	target, err := strconv.Atoi(fields[2])
	if err != nil || target < 0 {
		return bunBot.sendReply(ctx, chatID, threadID,
			"❌ Итоговые очки — целое число не меньше нуля.")
	}
	user, err := bunBot.resolveActivePlayer(ctx, targetChatID, fields[1])
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Не нашёл активного игрока %s в чате %d.", fields[1], targetChatID))
	}
	return bunBot.setPointsForUser(ctx, chatID, threadID, targetChatID, user, target)
}

func (bunBot *Bot) sendToChatFromArgs(ctx context.Context, chatID int64, threadID int, args string) error {
	op := "telegram.sendToChatFromArgs"
	idStr, text, ok := strings.Cut(args, " ")
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Формат: /send_to_chat <ID чата> <текст сообщения>.")
	}
	targetChatID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Первый аргумент — ID чата.")
	}

	if err := bunBot.sendReply(ctx, targetChatID, 0, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("✅ Сообщение отправлено в «%s».", bunBot.chatTitle(ctx, targetChatID)))
}

// ─── Shared actions ───────────────────────────────────────────────────────
//
// Both the inline forms above and the session steps end up here, so
// the effect and the wording stay identical for both entry points.

// createBunAndReport adds a bun to the catalog. A duplicate name is
// rejected with the point value the catalog already holds.
func (bunBot *Bot) createBunAndReport(ctx context.Context, chatID int64, threadID int, name string, points int) error {
	op := "telegram.createBunAndReport"

	bun, err := bunBot.repo.CreateBun(ctx, name, points)
	if errors.Is(err, repositories.ErrAlreadyExists) {
		existing, lookupErr := bunBot.repo.GetBunByName(ctx, name)
		if lookupErr != nil {
			return fmt.Errorf("%s: %w", op, lookupErr)
		}
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Булочка «%s» уже есть в каталоге: %s.",
				existing.Name, pointsWord(existing.Points)))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	bunBot.log.Info("bun created",
		slog.String("op", op),
		slog.String("name", bun.Name), slog.Int("points", bun.Points))
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("✅ «%s» добавлена: %s.", bun.Name, pointsWord(bun.Points)))
}

// awardPointsAll rolls the amount once per active player of the chat
// and announces the result there.
func (bunBot *Bot) awardPointsAll(ctx context.Context, replyChatID int64, threadID int, targetChatID int64, targetLabel string, spec game.PointsSpec) error {
	op := "telegram.awardPointsAll"

	users, err := bunBot.repo.GetChatUsers(ctx, targetChatID, true)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		return bunBot.sendReply(ctx, replyChatID, threadID, "В этом чате нет активных игроков.")
	}

	var b strings.Builder
	b.WriteString("🎁 Раздача очков!\n\n")
	for _, u := range users {
		amount := bunBot.game.Roll(spec)
		total, _, err := bunBot.game.AwardPoints(ctx, targetChatID, u.TelegramID, amount)
		if err != nil {
			bunBot.log.Error("awarding points",
				slog.String("op", op),
				slog.Int64("telegramID", u.TelegramID), sl.Err(err))
			continue
		}
		fmt.Fprintf(&b, "%s\n", awardAnnouncement(u.DisplayName(), amount, total))
	}

	if err := bunBot.sendReply(ctx, targetChatID, 0, b.String()); err != nil {
		return fmt.Errorf("%s: announce: %w", op, err)
	}
	return bunBot.sendReply(ctx, replyChatID, threadID,
		fmt.Sprintf("✅ Готово, очки розданы %d игрокам («%s»).", len(users), targetLabel))
}

// awardPointsToUser rolls the amount for one player and announces the
// result in the player's chat.
func (bunBot *Bot) awardPointsToUser(ctx context.Context, replyChatID int64, threadID int, targetChatID int64, user *domain.User, spec game.PointsSpec) error {
	op := "telegram.awardPointsToUser"

	amount := bunBot.game.Roll(spec)
	total, _, err := bunBot.game.AwardPoints(ctx, targetChatID, user.TelegramID, amount)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := bunBot.sendReply(ctx, targetChatID, 0,
		awardAnnouncement(user.DisplayName(), amount, total)); err != nil {
		return fmt.Errorf("%s: announce: %w", op, err)
	}
	return bunBot.sendReply(ctx, replyChatID, threadID,
		fmt.Sprintf("✅ Готово: %s, всего %s.", user.DisplayName(), pointsWord(total)))
}

// setPointsForUser adjusts a player's holdings so the total lands
// exactly on target.
func (bunBot *Bot) setPointsForUser(ctx context.Context, replyChatID int64, threadID int, targetChatID int64, user *domain.User, target int) error {
	op := "telegram.setPointsForUser"

	delta, total, err := bunBot.game.SetPoints(ctx, targetChatID, user.TelegramID, target)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if delta != 0 {
		if err := bunBot.sendReply(ctx, targetChatID, 0,
			awardAnnouncement(user.DisplayName(), delta, total)); err != nil {
			return fmt.Errorf("%s: announce: %w", op, err)
		}
	}
	return bunBot.sendReply(ctx, replyChatID, threadID,
		fmt.Sprintf("✅ У %s теперь ровно %s (поправка %+d).",
			user.DisplayName(), pointsWord(total), delta))
}

// splitTrailingInt splits "Булочка с корицей 4" into the name and the
// trailing number.
func splitTrailingInt(args string) (string, int, error) {
	i := strings.LastIndexByte(args, ' ')
	if i < 0 {
		return "", 0, fmt.Errorf("no trailing number in %q", args)
	}
	n, err := strconv.Atoi(args[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("trailing field of %q: %w", args, err)
	}
	return strings.TrimSpace(args[:i]), n, nil
}
