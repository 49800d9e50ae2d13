package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot/models"
)

const playerHelpText = `🥐 Булочка дня — правила:

/play — вступить в игру в этом чате
/leave — выйти из игры (очки сохраняются)
/bun — разыграть булочку дня прямо сейчас
/stats — таблица лидеров чата
/stats_me — моя коллекция булочек

Каждое утро бот сам выбирает счастливчика дня. Вчерашний победитель пропускает ход, если есть кому передать булочку.`

const adminHelpText = `⚙️ Команды администратора:

/admin — главное меню
/user_list — все игроки по чатам
/list_buns — каталог булочек
/add_bun — добавить булочку
/edit_bun — изменить ценность булочки
/remove_bun — удалить булочку
/add_points_all — очки всем в чате
/add_points — очки одному игроку
/set_points — выставить точное количество очков
/send_to_chat — сообщение в чат от имени бота
/remove_from_game — полностью удалить игрока
/cleanup — убрать вышедших из игры

Очки можно задавать диапазоном N-M, тогда бот бросит кубик.
Пошаговые команды принимают аргументы и сразу, например
/add_bun Эклер 5 или /add_points <ID чата> @user 2-6.`

// commandHandler routes /commands. Any command aborts the sender's
// pending admin flow first, so a stale session never swallows input.
func (bunBot *Bot) commandHandler(ctx context.Context, update *models.Update) error {
	op := "telegram.commandHandler"
	msg := update.Message
	cmd := commandText(msg)
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID
	userID := msg.From.ID

	bunBot.sessions.clear(userID)

	isPrivate := msg.Chat.Type == models.ChatTypePrivate

	switch cmd {
	case "start":
		if isPrivate && bunBot.auth.IsAdmin(userID) {
			return bunBot.sendReply(ctx, chatID, threadID,
				"Привет! Это панель управления. Открой меню: /admin")
		}
		return bunBot.sendReply(ctx, chatID, threadID,
			"Привет! Я раздаю булочки дня. 🥐\nЖми /play, чтобы вступить в игру, и /help за правилами.")

	case "help":
		if isPrivate && bunBot.auth.IsAdmin(userID) {
			return bunBot.sendReply(ctx, chatID, threadID, adminHelpText)
		}
		return bunBot.sendReply(ctx, chatID, threadID, playerHelpText)

	case "play":
		return bunBot.handlePlay(ctx, msg)

	case "leave":
		return bunBot.handleLeave(ctx, msg)

	case "stats":
		return bunBot.handleStats(ctx, msg)

	case "stats_me":
		return bunBot.handleStatsMe(ctx, msg)

	case "bun":
		return bunBot.handleBun(ctx, msg)

	default:
		if !isPrivate {
			return nil
		}
		if !bunBot.auth.IsAdmin(userID) {
			return bunBot.sendReply(ctx, chatID, threadID,
				"⛔ Эта команда доступна только администратору.")
		}
		if err := bunBot.adminCommandHandler(ctx, msg, cmd, commandArguments(msg)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}

func (bunBot *Bot) handlePlay(ctx context.Context, msg *models.Message) error {
	op := "telegram.handlePlay"
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID

	if msg.Chat.Type == models.ChatTypePrivate {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Играть можно только в групповом чате. Добавь меня в группу!")
	}

	fullName := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	user, created, err := bunBot.repo.UpsertPlayer(ctx, chatID, msg.From.ID, fullName, msg.From.Username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if created {
		return bunBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("🎉 %s теперь в игре! Жди свою булочку дня.", user.DisplayName()))
	}
	return bunBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("%s снова в игре! С возвращением. 🥐", user.DisplayName()))
}

func (bunBot *Bot) handleLeave(ctx context.Context, msg *models.Message) error {
	op := "telegram.handleLeave"
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID

	if msg.Chat.Type == models.ChatTypePrivate {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Выйти можно только из игры в групповом чате.")
	}

	updated, err := bunBot.repo.SetInGame(ctx, chatID, msg.From.ID, false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !updated {
		return bunBot.sendReply(ctx, chatID, threadID, "Ты и так не в игре. Жми /play!")
	}
	return bunBot.sendReply(ctx, chatID, threadID,
		"Ты вышел из игры. Очки сохранены, возвращайся через /play. 👋")
}

func (bunBot *Bot) handleStats(ctx context.Context, msg *models.Message) error {
	op := "telegram.handleStats"

	scores, err := bunBot.repo.GetChatLeaderboard(ctx, msg.Chat.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return bunBot.sendReply(ctx, msg.Chat.ID, msg.MessageThreadID, leaderboardText(scores))
}

func (bunBot *Bot) handleStatsMe(ctx context.Context, msg *models.Message) error {
	op := "telegram.handleStatsMe"
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID

	user, err := bunBot.repo.FindUser(ctx, chatID, msg.From.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return bunBot.sendReply(ctx, chatID, threadID, "Ты ещё не в игре. Жми /play!")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	stats, err := bunBot.repo.GetUserHoldings(ctx, chatID, msg.From.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	total, err := bunBot.repo.GetUserTotal(ctx, chatID, msg.From.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return bunBot.sendReply(ctx, chatID, threadID,
		holdingsText(user.DisplayName(), stats, total))
}

func (bunBot *Bot) handleBun(ctx context.Context, msg *models.Message) error {
	op := "telegram.handleBun"
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID
	log := bunBot.log.With(slog.String("op", op))

	if msg.Chat.Type == models.ChatTypePrivate {
		return bunBot.sendReply(ctx, chatID, threadID,
			"Булочки разыгрываются в групповых чатах.")
	}

	res, err := bunBot.game.DrawDaily(ctx, chatID, time.Now())
	if errors.Is(err, game.ErrNoPlayers) {
		return bunBot.sendReply(ctx, chatID, threadID,
			"В этом чате пока никто не играет. Жми /play!")
	}
	if errors.Is(err, game.ErrNoBuns) {
		log.Error("bun catalog is empty", sl.Err(err))
		return bunBot.sendReply(ctx, chatID, threadID,
			"Каталог булочек пуст, розыгрыш невозможен. 😔")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return bunBot.sendReply(ctx, chatID, threadID, drawAnnouncement(res))
}
