package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"BunOfTheDayBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// ─── Callback data format ──────────────────────────────────────────────────
//
// adm_menu_<section>                 menu navigation
// adm_bunpick_<purpose>_<bunID>      bun chosen (purpose: edit, del)
// adm_bundelok_<bunID>               bun deletion confirmed
// adm_chat_<purpose>_<chatID>        chat chosen (purpose: all, usr, set, snd, rmv)
// adm_rmuser_<chatID>_<telegramID>   user chosen for removal
// adm_rmok_<chatID>_<telegramID>     user removal confirmed
// adm_purge / adm_purge_info / adm_purge_ok
//
// Everything fits into Telegram's 64-byte callback data limit, so no
// state needs to be stashed for the pure button flows. Free-text steps
// use the session store keyed by the admin's user ID.

// handleCallbackQuery dispatches inline-button presses. The whole
// callback surface is admin-only.
func (bunBot *Bot) handleCallbackQuery(ctx context.Context, update *models.Update) {
	op := "telegram.handleCallbackQuery"
	callback := update.CallbackQuery
	log := bunBot.log.With(
		slog.String("op", op),
		slog.String("data", callback.Data),
	)

	if _, err := bunBot.b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		log.Warn("answering callback", sl.Err(err))
	}

	if callback.Message.Message == nil {
		return
	}
	chatID := callback.Message.Message.Chat.ID
	threadID := callback.Message.Message.MessageThreadID

	if !bunBot.auth.IsAdmin(callback.From.ID) {
		bunBot.sendReply(ctx, chatID, threadID, "⛔ Только для администратора.")
		return
	}

	adminID := callback.From.ID
	data := callback.Data

	var err error
	switch {
	case data == "adm_menu_main":
		bunBot.sessions.clear(adminID)
		err = bunBot.showMainMenu(ctx, chatID, threadID)
	case data == "adm_menu_users":
		bunBot.sessions.clear(adminID)
		err = bunBot.showUsersMenu(ctx, chatID, threadID)
	case data == "adm_menu_buns":
		bunBot.sessions.clear(adminID)
		err = bunBot.showBunsMenu(ctx, chatID, threadID)
	case data == "adm_menu_points":
		bunBot.sessions.clear(adminID)
		err = bunBot.showPointsMenu(ctx, chatID, threadID)
	case data == "adm_menu_other":
		bunBot.sessions.clear(adminID)
		err = bunBot.showOtherMenu(ctx, chatID, threadID)
	case data == "adm_help":
		err = bunBot.sendReply(ctx, chatID, threadID, adminHelpText)

	case data == "adm_user_list":
		err = bunBot.sendUserList(ctx, chatID, threadID)
	case data == "adm_user_remove":
		err = bunBot.showChatPicker(ctx, chatID, threadID, "rmv")
	case data == "adm_purge":
		err = bunBot.showPurgeSummary(ctx, chatID, threadID)
	case data == "adm_purge_info":
		err = bunBot.showPurgeDetails(ctx, chatID, threadID)
	case data == "adm_purge_ok":
		err = bunBot.runPurge(ctx, chatID, threadID)

	case data == "adm_bun_list":
		err = bunBot.sendBunCatalog(ctx, chatID, threadID)
	case data == "adm_bun_add":
		err = bunBot.startAddBun(ctx, adminID, chatID, threadID)
	case data == "adm_bun_edit":
		err = bunBot.showBunPicker(ctx, chatID, threadID, "edit")
	case data == "adm_bun_del":
		err = bunBot.showBunPicker(ctx, chatID, threadID, "del")
	case strings.HasPrefix(data, "adm_bunpick_"):
		err = bunBot.handleBunPicked(ctx, adminID, chatID, threadID, data)
	case strings.HasPrefix(data, "adm_bundelok_"):
		err = bunBot.handleBunDeleteConfirmed(ctx, chatID, threadID, data)

	case data == "adm_pts_all":
		err = bunBot.showChatPicker(ctx, chatID, threadID, "all")
	case data == "adm_pts_user":
		err = bunBot.showChatPicker(ctx, chatID, threadID, "usr")
	case data == "adm_pts_set":
		err = bunBot.showChatPicker(ctx, chatID, threadID, "set")
	case data == "adm_send":
		err = bunBot.showChatPicker(ctx, chatID, threadID, "snd")
	case strings.HasPrefix(data, "adm_chat_"):
		err = bunBot.handleChatPicked(ctx, adminID, chatID, threadID, data)

	case strings.HasPrefix(data, "adm_rmuser_"):
		err = bunBot.handleRemoveUserPicked(ctx, chatID, threadID, data)
	case strings.HasPrefix(data, "adm_rmok_"):
		err = bunBot.handleRemoveUserConfirmed(ctx, chatID, threadID, data)

	case data == "adm_bun_now":
		// repeats are harmless: chats that already drew today just
		// keep their result
		bunBot.BroadcastDailyBuns(ctx)
		err = bunBot.sendReply(ctx, chatID, threadID, "🥐 Булочка дня разыграна во всех чатах.")
	case data == "adm_humor_now":
		bunBot.BroadcastEveningHumor(ctx)
		err = bunBot.sendReply(ctx, chatID, threadID, "🌙 Вечернее сообщение отправлено во все чаты.")
	case data == "adm_sched_status":
		err = bunBot.sendScheduleStatus(ctx, chatID, threadID)
	case data == "adm_sched_restart":
		err = bunBot.restartEveningSchedule(ctx, chatID, threadID)

	default:
		err = bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("❌ Неизвестное действие: %s", data))
	}

	if err != nil {
		log.Error("callback handler error", sl.Err(err))
	}
}

// handleBunPicked handles "adm_bunpick_<purpose>_<bunID>".
func (bunBot *Bot) handleBunPicked(ctx context.Context, adminID, chatID int64, threadID int, data string) error {
	op := "telegram.handleBunPicked"
	rest := strings.TrimPrefix(data, "adm_bunpick_")
	purpose, idStr, ok := strings.Cut(rest, "_")
	if !ok {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Некорректные данные.")
	}

	bunID, err := uuid.Parse(idStr)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Ошибка парсинга ID булочки.")
	}
	bun, err := bunBot.repo.GetBunByID(ctx, bunID)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Булочка не найдена.")
	}

	switch purpose {
	case "edit":
		bunBot.sessions.set(adminID, &Session{
			Step:      StepEditBunPoints,
			BunName:   bun.Name,
			BunPoints: bun.Points,
		})
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("✏️ «%s», сейчас %s.\n📝 Отправь новую ценность (целое число больше нуля):",
				bun.Name, pointsWord(bun.Points)))
	case "del":
		kb := inlineKeyboard(inlineRow(
			inlineBtn("✅ Да, удалить", "adm_bundelok_"+bun.ID.String()),
			inlineBtn("❌ Отмена", "adm_menu_buns"),
		))
		return bunBot.sendWithKeyboard(ctx, chatID, threadID,
			fmt.Sprintf("⚠️ Удалить «%s»?\nНакопленные за неё очки тоже пропадут. Это необратимо.", bun.Name),
			kb)
	default:
		return fmt.Errorf("%s: unknown purpose %q", op, purpose)
	}
}

// handleBunDeleteConfirmed handles "adm_bundelok_<bunID>".
func (bunBot *Bot) handleBunDeleteConfirmed(ctx context.Context, chatID int64, threadID int, data string) error {
	op := "telegram.handleBunDeleteConfirmed"
	log := bunBot.log.With(slog.String("op", op))

	bunID, err := uuid.Parse(strings.TrimPrefix(data, "adm_bundelok_"))
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Ошибка парсинга ID булочки.")
	}

	bun, err := bunBot.repo.GetBunByID(ctx, bunID)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "Булочка уже удалена.")
	}

	ok, err := bunBot.repo.DeleteBun(ctx, bun.Name)
	if err != nil {
		log.Error("deleting bun", sl.Err(err))
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Не получилось удалить. Попробуй позже.")
	}
	if !ok {
		return bunBot.sendReply(ctx, chatID, threadID, "Булочка уже удалена.")
	}

	log.Info("bun deleted", slog.String("name", bun.Name))
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("🗑 «%s» удалена из каталога.", bun.Name))
}

// handleChatPicked handles "adm_chat_<purpose>_<chatID>" and either
// starts a free-text session step or continues a button flow.
func (bunBot *Bot) handleChatPicked(ctx context.Context, adminID, chatID int64, threadID int, data string) error {
	op := "telegram.handleChatPicked"
	rest := strings.TrimPrefix(data, "adm_chat_")
	purpose, idStr, ok := strings.Cut(rest, "_")
	if !ok {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Некорректные данные.")
	}
	targetChatID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Ошибка парсинга ID чата.")
	}

	title := bunBot.chatTitle(ctx, targetChatID)

	switch purpose {
	case "all":
		bunBot.sessions.set(adminID, &Session{
			Step:         StepPointsAllAmount,
			TargetChatID: targetChatID,
			ChatTitle:    title,
		})
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("🎯 Очки всем активным игрокам («%s»).\n📝 Сколько? Число или диапазон N-M:", title))
	case "usr":
		bunBot.sessions.set(adminID, &Session{
			Step:         StepPointsUserName,
			TargetChatID: targetChatID,
			ChatTitle:    title,
		})
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("🎯 Очки игроку из «%s».\n📝 Отправь @username:", title))
	case "set":
		bunBot.sessions.set(adminID, &Session{
			Step:         StepSetPointsName,
			TargetChatID: targetChatID,
			ChatTitle:    title,
		})
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("🎯 Точное количество очков игроку из «%s».\n📝 Отправь @username:", title))
	case "snd":
		bunBot.sessions.set(adminID, &Session{
			Step:         StepSendMessageText,
			TargetChatID: targetChatID,
			ChatTitle:    title,
		})
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("✉️ Сообщение в «%s».\n📝 Отправь текст:", title))
	case "rmv":
		return bunBot.showRemoveUserPicker(ctx, chatID, threadID, targetChatID)
	default:
		return fmt.Errorf("%s: unknown purpose %q", op, purpose)
	}
}

// handleRemoveUserPicked handles "adm_rmuser_<chatID>_<telegramID>".
func (bunBot *Bot) handleRemoveUserPicked(ctx context.Context, chatID int64, threadID int, data string) error {
	targetChatID, targetID, err := parseChatUserPayload(strings.TrimPrefix(data, "adm_rmuser_"))
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Некорректные данные.")
	}
	return bunBot.confirmRemoveUser(ctx, chatID, threadID, targetChatID, targetID)
}

// handleRemoveUserConfirmed handles "adm_rmok_<chatID>_<telegramID>".
func (bunBot *Bot) handleRemoveUserConfirmed(ctx context.Context, chatID int64, threadID int, data string) error {
	targetChatID, targetID, err := parseChatUserPayload(strings.TrimPrefix(data, "adm_rmok_"))
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Некорректные данные.")
	}
	return bunBot.runRemoveUser(ctx, chatID, threadID, targetChatID, targetID)
}

// parseChatUserPayload splits "<chatID>_<telegramID>". Chat IDs may be
// negative, so splitting happens at the last underscore.
func parseChatUserPayload(payload string) (int64, int64, error) {
	i := strings.LastIndex(payload, "_")
	if i <= 0 {
		return 0, 0, fmt.Errorf("malformed payload %q", payload)
	}
	chatID, err := strconv.ParseInt(payload[:i], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed payload %q: %w", payload, err)
	}
	userID, err := strconv.ParseInt(payload[i+1:], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed payload %q: %w", payload, err)
	}
	return chatID, userID, nil
}

// ─── Scheduler controls ───────────────────────────────────────────────────

func (bunBot *Bot) sendScheduleStatus(ctx context.Context, chatID int64, threadID int) error {
	sc := bunBot.cfg.Schedule
	var b strings.Builder
	fmt.Fprintf(&b, "🕑 Расписание (%s):\n", sc.Timezone)
	fmt.Fprintf(&b, "• Утренняя булочка: каждый день в %02d:%02d\n", sc.MorningHour, sc.MorningMinute)
	fmt.Fprintf(&b, "• Вечернее окно: %02d:00–%02d:00\n", sc.EveningStartHour, sc.EveningEndHour)

	if bunBot.sched == nil {
		b.WriteString("• Вечерний таймер: не запущен")
	} else if at, ok := bunBot.sched.NextEveningFire(); ok {
		fmt.Fprintf(&b, "• Следующее вечернее сообщение: %s", at.Format("02.01 15:04"))
	} else {
		b.WriteString("• Вечернее сообщение не запланировано")
	}
	return bunBot.sendReply(ctx, chatID, threadID, b.String())
}

func (bunBot *Bot) restartEveningSchedule(ctx context.Context, chatID int64, threadID int) error {
	op := "telegram.restartEveningSchedule"
	if bunBot.sched == nil {
		return bunBot.sendReply(ctx, chatID, threadID, "Планировщик не запущен.")
	}

	at, err := bunBot.sched.RescheduleEvening()
	if err != nil {
		bunBot.log.Error("rescheduling evening broadcast",
			slog.String("op", op), sl.Err(err))
		return bunBot.sendReply(ctx, chatID, threadID, "❌ Не получилось перезапустить таймер.")
	}

	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("🔄 Вечерний таймер перезапущен. Новое время: %s.",
			at.Format("02.01 15:04")))
}
