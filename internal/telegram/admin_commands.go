package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"BunOfTheDayBot/internal/models/domain"
	"BunOfTheDayBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot/models"
)

// adminCommandHandler routes admin-only /commands. The caller has
// already verified the sender and that the chat is private. Commands
// that collect input step by step also accept everything inline:
// "/add_bun Эклер 5" acts immediately, a bare "/add_bun" starts the
// conversational flow.
func (bunBot *Bot) adminCommandHandler(ctx context.Context, msg *models.Message, cmd, args string) error {
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID
	adminID := msg.From.ID
	args = strings.TrimSpace(args)

	switch cmd {
	case "admin":
		return bunBot.showMainMenu(ctx, chatID, threadID)
	case "user_list":
		return bunBot.sendUserList(ctx, chatID, threadID)
	case "list_buns":
		return bunBot.sendBunCatalog(ctx, chatID, threadID)
	case "add_bun":
		if args == "" {
			return bunBot.startAddBun(ctx, adminID, chatID, threadID)
		}
		return bunBot.addBunFromArgs(ctx, chatID, threadID, args)
	case "edit_bun":
		if args == "" {
			return bunBot.showBunPicker(ctx, chatID, threadID, "edit")
		}
		return bunBot.editBunFromArgs(ctx, chatID, threadID, args)
	case "remove_bun":
		if args == "" {
			return bunBot.showBunPicker(ctx, chatID, threadID, "del")
		}
		return bunBot.removeBunFromArgs(ctx, chatID, threadID, args)
	case "add_points_all":
		if args == "" {
			return bunBot.showChatPicker(ctx, chatID, threadID, "all")
		}
		return bunBot.pointsAllFromArgs(ctx, chatID, threadID, args)
	case "add_points":
		if args == "" {
			return bunBot.showChatPicker(ctx, chatID, threadID, "usr")
		}
		return bunBot.pointsUserFromArgs(ctx, chatID, threadID, args)
	case "set_points":
		if args == "" {
			return bunBot.showChatPicker(ctx, chatID, threadID, "set")
		}
		return bunBot.setPointsFromArgs(ctx, chatID, threadID, args)
	case "send_to_chat":
		if args == "" {
			return bunBot.showChatPicker(ctx, chatID, threadID, "snd")
		}
		return bunBot.sendToChatFromArgs(ctx, chatID, threadID, args)
	case "remove_from_game":
		return bunBot.showChatPicker(ctx, chatID, threadID, "rmv")
	case "cleanup":
		return bunBot.showPurgeSummary(ctx, chatID, threadID)
	default:
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Неизвестная команда: /%s. Смотри /help.", cmd))
	}
}

// ─── Menus ────────────────────────────────────────────────────────────────

func (bunBot *Bot) showMainMenu(ctx context.Context, chatID int64, threadID int) error {
	kb := inlineKeyboard(
		inlineRow(
			inlineBtn("👥 Игроки", "adm_menu_users"),
			inlineBtn("🥐 Булочки", "adm_menu_buns"),
		),
		inlineRow(
			inlineBtn("🎯 Очки", "adm_menu_points"),
			inlineBtn("⚙️ Прочее", "adm_menu_other"),
		),
		inlineRow(inlineBtn("ℹ️ Помощь", "adm_help")),
	)
	return bunBot.sendWithKeyboard(ctx, chatID, threadID, "⚙️ Панель управления:", kb)
}

func (bunBot *Bot) showUsersMenu(ctx context.Context, chatID int64, threadID int) error {
	kb := inlineKeyboard(
		inlineRow(inlineBtn("📋 Список игроков", "adm_user_list")),
		inlineRow(inlineBtn("🗑 Удалить игрока", "adm_user_remove")),
		inlineRow(inlineBtn("🧹 Убрать вышедших", "adm_purge")),
		inlineRow(inlineBtn("⬅️ Назад", "adm_menu_main")),
	)
	return bunBot.sendWithKeyboard(ctx, chatID, threadID, "👥 Игроки:", kb)
}

func (bunBot *Bot) showBunsMenu(ctx context.Context, chatID int64, threadID int) error {
	kb := inlineKeyboard(
		inlineRow(inlineBtn("📜 Каталог", "adm_bun_list")),
		inlineRow(
			inlineBtn("➕ Добавить", "adm_bun_add"),
			inlineBtn("✏️ Изменить", "adm_bun_edit"),
		),
		inlineRow(inlineBtn("🗑 Удалить", "adm_bun_del")),
		inlineRow(inlineBtn("⬅️ Назад", "adm_menu_main")),
	)
	return bunBot.sendWithKeyboard(ctx, chatID, threadID, "🥐 Булочки:", kb)
}

func (bunBot *Bot) showPointsMenu(ctx context.Context, chatID int64, threadID int) error {
	kb := inlineKeyboard(
		inlineRow(inlineBtn("👥 Всем в чате", "adm_pts_all")),
		inlineRow(inlineBtn("👤 Одному игроку", "adm_pts_user")),
		inlineRow(inlineBtn("🎯 Выставить точно", "adm_pts_set")),
		inlineRow(inlineBtn("⬅️ Назад", "adm_menu_main")),
	)
	return bunBot.sendWithKeyboard(ctx, chatID, threadID, "🎯 Очки:", kb)
}

func (bunBot *Bot) showOtherMenu(ctx context.Context, chatID int64, threadID int) error {
	kb := inlineKeyboard(
		inlineRow(inlineBtn("✉️ Сообщение в чат", "adm_send")),
		inlineRow(inlineBtn("🥐 Булочка дня во все чаты", "adm_bun_now")),
		inlineRow(inlineBtn("🌙 Вечерний юмор сейчас", "adm_humor_now")),
		inlineRow(inlineBtn("🕑 Статус расписания", "adm_sched_status")),
		inlineRow(inlineBtn("🔄 Перезапустить вечерний таймер", "adm_sched_restart")),
		inlineRow(inlineBtn("⬅️ Назад", "adm_menu_main")),
	)
	return bunBot.sendWithKeyboard(ctx, chatID, threadID, "⚙️ Прочее:", kb)
}

// ─── Listings ─────────────────────────────────────────────────────────────

func (bunBot *Bot) sendUserList(ctx context.Context, chatID int64, threadID int) error {
	op := "telegram.sendUserList"
	users, err := bunBot.repo.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bunBot.sendReply(ctx, chatID, threadID, userListText(users))
}

func (bunBot *Bot) sendBunCatalog(ctx context.Context, chatID int64, threadID int) error {
	op := "telegram.sendBunCatalog"
	buns, err := bunBot.repo.GetAllBuns(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bunBot.sendReply(ctx, chatID, threadID, bunCatalogText(buns))
}

// ─── Flow starters ────────────────────────────────────────────────────────

func (bunBot *Bot) startAddBun(ctx context.Context, adminID, chatID int64, threadID int) error {
	bunBot.sessions.set(adminID, &Session{Step: StepAddBunName})
	return bunBot.sendReply(ctx, chatID, threadID,
		"➕ Новая булочка.\n📝 Отправь название:")
}

// showBunPicker lists the catalog as buttons. purpose is "edit" or "del".
func (bunBot *Bot) showBunPicker(ctx context.Context, chatID int64, threadID int, purpose string) error {
	op := "telegram.showBunPicker"
	buns, err := bunBot.repo.GetAllBuns(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(buns) == 0 {
		return bunBot.sendReply(ctx, chatID, threadID, "Каталог булочек пуст.")
	}

	var rows [][]models.InlineKeyboardButton
	for _, b := range buns {
		label := fmt.Sprintf("%s (%s)", b.Name, pointsWord(b.Points))
		rows = append(rows, inlineRow(
			inlineBtn(label, "adm_bunpick_"+purpose+"_"+b.ID.String())))
	}
	rows = append(rows, inlineRow(inlineBtn("❌ Отмена", "adm_menu_buns")))

	title := "✏️ Какую булочку изменить?"
	if purpose == "del" {
		title = "🗑 Какую булочку удалить?"
	}
	return bunBot.sendWithKeyboard(ctx, chatID, threadID, title, inlineKeyboard(rows...))
}

// showChatPicker lists known game chats as buttons.
// purpose: all, usr, set, snd, rmv.
func (bunBot *Bot) showChatPicker(ctx context.Context, chatID int64, threadID int, purpose string) error {
	op := "telegram.showChatPicker"
	users, err := bunBot.repo.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		return bunBot.sendReply(ctx, chatID, threadID, "Пока нет ни одного игрового чата.")
	}

	counts := make(map[int64]int)
	for _, u := range users {
		counts[u.ChatID]++
	}
	chats := make([]int64, 0, len(counts))
	for id := range counts {
		chats = append(chats, id)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })

	var rows [][]models.InlineKeyboardButton
	for _, id := range chats {
		label := fmt.Sprintf("%s (%d чел.)", bunBot.chatTitle(ctx, id), counts[id])
		data := fmt.Sprintf("adm_chat_%s_%d", purpose, id)
		rows = append(rows, inlineRow(inlineBtn(label, data)))
	}
	rows = append(rows, inlineRow(inlineBtn("❌ Отмена", "adm_menu_main")))

	return bunBot.sendWithKeyboard(ctx, chatID, threadID,
		"Выбери чат:", inlineKeyboard(rows...))
}

// ─── Inactive-user purge ──────────────────────────────────────────────────

func (bunBot *Bot) showPurgeSummary(ctx context.Context, chatID int64, threadID int) error {
	op := "telegram.showPurgeSummary"
	inactive, err := bunBot.repo.GetInactiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(inactive) == 0 {
		return bunBot.sendReply(ctx, chatID, threadID,
			"🧹 Вышедших из игры нет, чистить нечего.")
	}

	chats := make(map[int64]int)
	for _, u := range inactive {
		chats[u.ChatID]++
	}

	kb := inlineKeyboard(
		inlineRow(
			inlineBtn("📋 Подробнее", "adm_purge_info"),
			inlineBtn("🗑 Удалить всех", "adm_purge_ok"),
		),
		inlineRow(inlineBtn("❌ Отмена", "adm_menu_users")),
	)
	return bunBot.sendWithKeyboard(ctx, chatID, threadID,
		fmt.Sprintf("🧹 Вышедших из игры: %d (в %d чатах).\nУдаление сотрёт их очки безвозвратно.",
			len(inactive), len(chats)),
		kb)
}

func (bunBot *Bot) showPurgeDetails(ctx context.Context, chatID int64, threadID int) error {
	op := "telegram.showPurgeDetails"
	inactive, err := bunBot.repo.GetInactiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(inactive) == 0 {
		return bunBot.sendReply(ctx, chatID, threadID,
			"🧹 Вышедших из игры нет, чистить нечего.")
	}

	kb := inlineKeyboard(
		inlineRow(inlineBtn("🗑 Удалить всех", "adm_purge_ok")),
		inlineRow(inlineBtn("❌ Отмена", "adm_menu_users")),
	)
	return bunBot.sendWithKeyboard(ctx, chatID, threadID, userListText(inactive), kb)
}

func (bunBot *Bot) runPurge(ctx context.Context, chatID int64, threadID int) error {
	op := "telegram.runPurge"
	log := bunBot.log.With(slog.String("op", op))

	deleted, err := bunBot.repo.PurgeInactiveUsers(ctx)
	if err != nil {
		log.Error("purging inactive users", sl.Err(err))
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Не получилось удалить. Попробуй позже.")
	}
	if len(deleted) == 0 {
		return bunBot.sendReply(ctx, chatID, threadID, "🧹 Уже чисто: удалять было нечего.")
	}

	chats := make(map[int64]int)
	for _, u := range deleted {
		chats[u.ChatID]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🧹 Удалено игроков: %d.\n", len(deleted))
	ids := make([]int64, 0, len(chats))
	for id := range chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(&b, "• чат %d: %d\n", id, chats[id])
	}

	log.Info("inactive users purged", slog.Int("count", len(deleted)))
	return bunBot.sendReply(ctx, chatID, threadID, b.String())
}

// ─── Full user removal ────────────────────────────────────────────────────

func (bunBot *Bot) showRemoveUserPicker(ctx context.Context, chatID int64, threadID int, targetChatID int64) error {
	op := "telegram.showRemoveUserPicker"
	users, err := bunBot.repo.GetChatUsers(ctx, targetChatID, false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		return bunBot.sendReply(ctx, chatID, threadID, "В этом чате нет игроков.")
	}

	var rows [][]models.InlineKeyboardButton
	for _, u := range users {
		data := fmt.Sprintf("adm_rmuser_%d_%d", targetChatID, u.TelegramID)
		rows = append(rows, inlineRow(inlineBtn(u.DisplayName(), data)))
	}
	rows = append(rows, inlineRow(inlineBtn("❌ Отмена", "adm_menu_users")))

	return bunBot.sendWithKeyboard(ctx, chatID, threadID,
		fmt.Sprintf("🗑 Кого удалить из «%s»?", bunBot.chatTitle(ctx, targetChatID)),
		inlineKeyboard(rows...))
}

func (bunBot *Bot) confirmRemoveUser(ctx context.Context, chatID int64, threadID int, targetChatID, targetID int64) error {
	op := "telegram.confirmRemoveUser"
	user, err := bunBot.repo.FindUser(ctx, targetChatID, targetID)
	if err != nil {
		bunBot.log.Warn("user lookup for removal",
			slog.String("op", op), sl.Err(err))
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Игрок не найден.")
	}

	kb := inlineKeyboard(inlineRow(
		inlineBtn("✅ Да, удалить", fmt.Sprintf("adm_rmok_%d_%d", targetChatID, targetID)),
		inlineBtn("❌ Отмена", "adm_menu_users"),
	))
	return bunBot.sendWithKeyboard(ctx, chatID, threadID,
		fmt.Sprintf("⚠️ Точно удалить %s из чата %d?\nВсе очки и булочки будут стёрты. Это необратимо.",
			user.DisplayName(), targetChatID),
		kb)
}

func (bunBot *Bot) runRemoveUser(ctx context.Context, chatID int64, threadID int, targetChatID, targetID int64) error {
	op := "telegram.runRemoveUser"
	log := bunBot.log.With(slog.String("op", op))

	ok, err := bunBot.repo.DeleteUser(ctx, targetChatID, targetID)
	if err != nil {
		log.Error("deleting user", sl.Err(err))
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Не получилось удалить. Попробуй позже.")
	}
	if !ok {
		return bunBot.sendReply(ctx, chatID, threadID, "Игрок уже удалён.")
	}

	log.Info("user removed",
		slog.Int64("chatID", targetChatID), slog.Int64("telegramID", targetID))
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("🗑 Игрок %s удалён из чата %d вместе со всеми очками.",
			"id"+strconv.FormatInt(targetID, 10), targetChatID))
}

// resolveActivePlayer resolves a typed @username against a chat.
// Players who left the game do not count: points go only to active
// participants.
func (bunBot *Bot) resolveActivePlayer(ctx context.Context, targetChatID int64, text string) (*domain.User, error) {
	username := strings.TrimPrefix(strings.TrimSpace(text), "@")
	user, err := bunBot.repo.FindUserByUsername(ctx, targetChatID, username)
	if err != nil {
		return nil, err
	}
	if !user.InGame {
		return nil, fmt.Errorf("player %s left the game in chat %d", username, targetChatID)
	}
	return user, nil
}
