package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot/models"
)

const maxBunNameLen = 100

// handleSessionInput consumes free text for the admin's pending
// multi-step flow. Invalid input keeps the step alive and refreshes the
// TTL; a valid terminal input clears the session before the effect runs.
func (bunBot *Bot) handleSessionInput(ctx context.Context, update *models.Update) {
	op := "telegram.handleSessionInput"
	msg := update.Message
	userID := msg.From.ID

	if msg.Chat.Type != models.ChatTypePrivate || !bunBot.auth.IsAdmin(userID) {
		return
	}
	sess, ok := bunBot.sessions.get(userID)
	if !ok {
		return
	}

	log := bunBot.log.With(
		slog.String("op", op),
		slog.String("step", string(sess.Step)),
	)
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID
	text := strings.TrimSpace(msg.Text)

	var err error
	switch sess.Step {
	case StepAddBunName:
		err = bunBot.stepAddBunName(ctx, userID, chatID, threadID, sess, text)
	case StepAddBunPoints:
		err = bunBot.stepAddBunPoints(ctx, userID, chatID, threadID, sess, text)
	case StepEditBunPoints:
		err = bunBot.stepEditBunPoints(ctx, userID, chatID, threadID, sess, text)
	case StepPointsAllAmount:
		err = bunBot.stepPointsAllAmount(ctx, userID, chatID, threadID, sess, text)
	case StepPointsUserName:
		err = bunBot.stepPickUsername(ctx, userID, chatID, threadID, sess, text, StepPointsUserAmount,
			"📝 Сколько очков? Число (можно отрицательное) или диапазон N-M:")
	case StepPointsUserAmount:
		err = bunBot.stepPointsUserAmount(ctx, userID, chatID, threadID, sess, text)
	case StepSetPointsName:
		err = bunBot.stepPickUsername(ctx, userID, chatID, threadID, sess, text, StepSetPointsAmount,
			"📝 Сколько очков должно стать в итоге? Целое число не меньше нуля:")
	case StepSetPointsAmount:
		err = bunBot.stepSetPointsAmount(ctx, userID, chatID, threadID, sess, text)
	case StepSendMessageText:
		err = bunBot.stepSendMessageText(ctx, userID, chatID, threadID, sess, text)
	default:
		bunBot.sessions.clear(userID)
		err = bunBot.sendReply(ctx, chatID, threadID, "Что-то пошло не так, начни заново: /admin")
	}

	if err != nil {
		log.Error("session input error", sl.Err(err))
		bunBot.sendReply(ctx, chatID, threadID, "❌ Ошибка. Попробуй ещё раз или начни заново: /admin")
	}
}

func (bunBot *Bot) stepAddBunName(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string) error {
	if text == "" || utf8.RuneCountInString(text) > maxBunNameLen {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Название должно быть непустым и не длиннее %d символов. Попробуй ещё раз:", maxBunNameLen))
	}

	sess.BunName = text
	sess.Step = StepAddBunPoints
	bunBot.sessions.set(userID, sess)
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("«%s», отлично. 📝 Теперь ценность — целое число больше нуля:", text))
}

func (bunBot *Bot) stepAddBunPoints(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string) error {
	points, err := strconv.Atoi(text)
	if err != nil || points <= 0 {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID,
			"Нужно целое число больше нуля. Попробуй ещё раз:")
	}

	bunBot.sessions.clear(userID)
	return bunBot.createBunAndReport(ctx, chatID, threadID, sess.BunName, points)
}

func (bunBot *Bot) stepEditBunPoints(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string) error {
	op := "telegram.stepEditBunPoints"
	points, err := strconv.Atoi(text)
	if err != nil || points <= 0 {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID,
			"Нужно целое число больше нуля. Попробуй ещё раз:")
	}

	bunBot.sessions.clear(userID)

	ok, err := bunBot.repo.UpdateBunPoints(ctx, sess.BunName, points)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Булочки «%s» больше нет в каталоге.", sess.BunName))
	}
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("✅ «%s»: было %s, стало %s. Уже накопленные очки не меняются.",
			sess.BunName, pointsWord(sess.BunPoints), pointsWord(points)))
}

func (bunBot *Bot) stepPointsAllAmount(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string) error {
	spec, err := game.ParsePointsSpec(text)
	if err != nil {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID,
			"Не понял. Отправь число (можно отрицательное) или диапазон N-M:")
	}

	bunBot.sessions.clear(userID)
	return bunBot.awardPointsAll(ctx, chatID, threadID, sess.TargetChatID, sess.chatLabel(), spec)
}

// stepPickUsername resolves a typed @username against the target chat
// and advances the flow to its amount step. Only players still in the
// game qualify; anything else keeps the step alive.
func (bunBot *Bot) stepPickUsername(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string, next SessionStep, prompt string) error {
	user, err := bunBot.resolveActivePlayer(ctx, sess.TargetChatID, text)
	if err != nil {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Не нашёл активного игрока %s в «%s». Попробуй ещё раз:", text, sess.chatLabel()))
	}

	sess.Username = user.Username
	sess.Step = next
	bunBot.sessions.set(userID, sess)
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("Игрок %s. %s", user.DisplayName(), prompt))
}

func (bunBot *Bot) stepPointsUserAmount(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string) error {
	spec, err := game.ParsePointsSpec(text)
	if err != nil {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID,
			"Не понял. Отправь число (можно отрицательное) или диапазон N-M:")
	}

	bunBot.sessions.clear(userID)

	user, err := bunBot.resolveActivePlayer(ctx, sess.TargetChatID, sess.Username)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Игрок @%s уже не в игре, очки не начислены.", sess.Username))
	}
	return bunBot.awardPointsToUser(ctx, chatID, threadID, sess.TargetChatID, user, spec)
}

func (bunBot *Bot) stepSetPointsAmount(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string) error {
	target, err := strconv.Atoi(text)
	if err != nil || target < 0 {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID,
			"Нужно целое число не меньше нуля. Попробуй ещё раз:")
	}

	bunBot.sessions.clear(userID)

	user, err := bunBot.resolveActivePlayer(ctx, sess.TargetChatID, sess.Username)
	if err != nil {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("Игрок @%s уже не в игре, очки не изменены.", sess.Username))
	}
	return bunBot.setPointsForUser(ctx, chatID, threadID, sess.TargetChatID, user, target)
}

func (bunBot *Bot) stepSendMessageText(ctx context.Context, userID, chatID int64, threadID int, sess *Session, text string) error {
	op := "telegram.stepSendMessageText"
	if text == "" {
		bunBot.sessions.touch(userID)
		return bunBot.sendReply(ctx, chatID, threadID, "Сообщение пустое. Отправь текст:")
	}

	bunBot.sessions.clear(userID)

	if err := bunBot.sendReply(ctx, sess.TargetChatID, 0, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("✅ Сообщение отправлено в «%s».", sess.chatLabel()))
}
