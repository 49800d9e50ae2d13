package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"BunOfTheDayBot/internal/config"
	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/humor"
	"BunOfTheDayBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// EveningScheduler is the part of the broadcast scheduler the admin
// surface controls and inspects.
type EveningScheduler interface {
	RescheduleEvening() (time.Time, error)
	NextEveningFire() (time.Time, bool)
}

// Bot is the Telegram bot for BunOfTheDayBot.
type Bot struct {
	b        *bot.Bot
	cfg      *config.Config
	repo     Storage
	game     *game.Service
	humor    *humor.Generator
	sched    EveningScheduler
	auth     Authorizer
	sessions *sessionStore
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger
}

// New creates a new Bot instance.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	repo Storage,
	gameSvc *game.Service,
	humorGen *humor.Generator,
	auth Authorizer,
) *Bot {
	op := "telegram.New()"
	log := logger.With(slog.String("op", op))

	ctx, cancel := context.WithCancel(context.Background())

	bunBot := &Bot{
		cfg:      cfg,
		repo:     repo,
		game:     gameSvc,
		humor:    humorGen,
		auth:     auth,
		sessions: newSessionStore(),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}

	b, err := bot.New(cfg.BotConfig.TgbotApiToken,
		bot.WithDefaultHandler(bunBot.defaultHandler),
	)
	if err != nil {
		log.Error("error auth telegram bot", sl.Err(err))
		cancel()
		return nil
	}

	bunBot.b = b

	log.Info("telegram bot created")
	return bunBot
}

// SetScheduler attaches the evening scheduler. The scheduler is built
// after the bot because it broadcasts through it.
func (bunBot *Bot) SetScheduler(sched EveningScheduler) {
	bunBot.sched = sched
}

// defaultHandler is the single entry point for all updates from go-telegram/bot.
func (bunBot *Bot) defaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	op := "telegram.defaultHandler()"
	log := bunBot.log.With(slog.String("op", op))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling update",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			if chatID, threadID, ok := updateOrigin(update); ok {
				_ = bunBot.sendReply(ctx, chatID, threadID, "😵 Что-то пошло не так. Попробуй ещё раз.")
			}
		}
	}()

	if update.Message != nil && update.Message.From != nil {
		log.Info("input message",
			slog.String("user_id", strconv.FormatInt(update.Message.From.ID, 10)),
			slog.String("user_name", update.Message.From.Username),
			slog.String("text", update.Message.Text),
		)
	}
	if update.CallbackQuery != nil {
		log.Info("input callback",
			slog.String("user_id", strconv.FormatInt(update.CallbackQuery.From.ID, 10)),
			slog.String("user_name", update.CallbackQuery.From.Username),
			slog.String("data", update.CallbackQuery.Data),
		)
	}

	switch {
	case update.Message != nil && update.Message.From == nil:
		// channel posts and service messages carry no sender
	case update.Message != nil && isCommand(update.Message):
		if err := bunBot.commandHandler(ctx, update); err != nil {
			log.Error("command handler error", sl.Err(err))
		}
	case update.CallbackQuery != nil:
		bunBot.handleCallbackQuery(ctx, update)
	case update.Message != nil:
		bunBot.handleSessionInput(ctx, update)
	}
}

// updateOrigin returns the chat and topic the update came from, when known.
func updateOrigin(update *models.Update) (int64, int, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, update.Message.MessageThreadID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		m := update.CallbackQuery.Message.Message
		return m.Chat.ID, m.MessageThreadID, true
	}
	return 0, 0, false
}

// isCommand reports whether msg is a bot command.
func isCommand(msg *models.Message) bool {
	if msg == nil || len(msg.Entities) == 0 {
		return false
	}
	for _, e := range msg.Entities {
		if e.Type == models.MessageEntityTypeBotCommand && e.Offset == 0 {
			return true
		}
	}
	return false
}

// commandText extracts /command from a message (without @botname suffix).
func commandText(msg *models.Message) string {
	if msg == nil || len(msg.Entities) == 0 {
		return ""
	}
	for _, e := range msg.Entities {
		if e.Type == models.MessageEntityTypeBotCommand && e.Offset == 0 {
			raw := []rune(msg.Text)[e.Offset : e.Offset+e.Length]
			cmd := string(raw)
			// strip leading slash
			if len(cmd) > 0 && cmd[0] == '/' {
				cmd = cmd[1:]
			}
			// strip @botname if present
			for i, c := range cmd {
				if c == '@' {
					cmd = cmd[:i]
					break
				}
			}
			return cmd
		}
	}
	return ""
}

// commandArguments returns the text that follows the first /command entity.
func commandArguments(msg *models.Message) string {
	if msg == nil || len(msg.Entities) == 0 {
		return ""
	}
	for _, e := range msg.Entities {
		if e.Type == models.MessageEntityTypeBotCommand && e.Offset == 0 {
			end := e.Offset + e.Length
			runes := []rune(msg.Text)
			if end >= len(runes) {
				return ""
			}
			// skip one space after command
			rest := string(runes[end:])
			if len(rest) > 0 && rest[0] == ' ' {
				rest = rest[1:]
			}
			return rest
		}
	}
	return ""
}

// chatTitle resolves a human-readable label for a chat, falling back
// to the numeric ID when the chat is unknown or has no title.
func (bunBot *Bot) chatTitle(ctx context.Context, chatID int64) string {
	chat, err := bunBot.b.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil || chat.Title == "" {
		return fmt.Sprintf("Чат %d", chatID)
	}
	return chat.Title
}

// Start begins polling for Telegram updates.
func (bunBot *Bot) Start(_ int) {
	bunBot.log.Info("starting telegram bot polling")
	bunBot.b.Start(bunBot.ctx)
	bunBot.log.Info("telegram bot polling stopped")
}

// sendReply sends a plain-text reply to the given chat/topic.
func (bunBot *Bot) sendReply(ctx context.Context, chatID int64, threadID int, text string) error {
	chunks := splitTextIntoChunks(text, 4096)
	for _, chunk := range chunks {
		p := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}
		if threadID != 0 {
			p.MessageThreadID = threadID
		}
		if _, err := bunBot.b.SendMessage(ctx, p); err != nil {
			return fmt.Errorf("sendReply: %w", err)
		}
	}
	return nil
}

// sendWithKeyboard sends a plain-text reply with an inline keyboard.
func (bunBot *Bot) sendWithKeyboard(
	ctx context.Context,
	chatID int64,
	threadID int,
	text string,
	kb *models.InlineKeyboardMarkup,
) error {
	p := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: kb,
	}
	if threadID != 0 {
		p.MessageThreadID = threadID
	}
	_, err := bunBot.b.SendMessage(ctx, p)
	return err
}

// inlineKeyboard builds an InlineKeyboardMarkup from rows of buttons.
func inlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// inlineRow builds a single row of inline keyboard buttons.
func inlineRow(btns ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return btns
}

// inlineBtn creates an inline keyboard button with callback data.
func inlineBtn(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

// splitTextIntoChunks splits text into chunks of the specified size.
func splitTextIntoChunks(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// Shutdown gracefully stops the bot.
func (bunBot *Bot) Shutdown(_ context.Context) error {
	bunBot.cancel()
	return nil
}
