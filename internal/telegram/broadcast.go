package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/utils/logger/sl"
)

// BroadcastDailyBuns draws the bun of the day in every chat with active
// players and announces the result there. Chats that fail do not stop
// the rest.
func (bunBot *Bot) BroadcastDailyBuns(ctx context.Context) {
	op := "telegram.BroadcastDailyBuns"
	log := bunBot.log.With(slog.String("op", op))

	chatIDs, err := bunBot.repo.GetActiveChatIDs(ctx)
	if err != nil {
		log.Error("listing active chats", sl.Err(err))
		return
	}

	sent, failed := 0, 0
	for _, chatID := range chatIDs {
		res, err := bunBot.game.DrawDaily(ctx, chatID, time.Now())
		if err != nil {
			if errors.Is(err, game.ErrNoPlayers) {
				continue
			}
			log.Error("daily draw failed",
				slog.Int64("chatID", chatID), sl.Err(err))
			failed++
			continue
		}
		if res.AlreadyDrawn {
			continue
		}

		if err := bunBot.sendReply(ctx, chatID, 0, drawAnnouncement(res)); err != nil {
			log.Error("sending draw announcement",
				slog.Int64("chatID", chatID), sl.Err(err))
			failed++
			continue
		}
		sent++

		bunBot.broadcastDelay(ctx)
	}

	log.Info("morning broadcast finished",
		slog.Int("sent", sent), slog.Int("failed", failed))
}

// BroadcastEveningHumor sends one generated evening message to every
// chat with active players.
func (bunBot *Bot) BroadcastEveningHumor(ctx context.Context) {
	op := "telegram.BroadcastEveningHumor"
	log := bunBot.log.With(slog.String("op", op))

	chatIDs, err := bunBot.repo.GetActiveChatIDs(ctx)
	if err != nil {
		log.Error("listing active chats", sl.Err(err))
		return
	}
	if len(chatIDs) == 0 {
		return
	}

	text := bunBot.humor.EveningMessage(ctx)

	sent, failed := 0, 0
	for _, chatID := range chatIDs {
		if err := bunBot.sendReply(ctx, chatID, 0, text); err != nil {
			log.Error("sending evening message",
				slog.Int64("chatID", chatID), sl.Err(err))
			failed++
			continue
		}
		sent++

		bunBot.broadcastDelay(ctx)
	}

	log.Info("evening broadcast finished",
		slog.Int("sent", sent), slog.Int("failed", failed))
}

// broadcastDelay sleeps between outgoing chat messages to stay under
// Telegram's rate limits.
func (bunBot *Bot) broadcastDelay(ctx context.Context) {
	delay := time.Duration(bunBot.cfg.Schedule.SendDelayMs) * time.Millisecond
	if delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
