package game

import (
	"BunOfTheDayBot/internal/models/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoPlayers is returned by a draw in a chat with no active players.
	ErrNoPlayers = errors.New("no active players in chat")
	// ErrNoBuns is returned by a draw when the bun catalog is empty.
	ErrNoBuns = errors.New("bun catalog is empty")
)

// Store is the persistence surface the game logic needs.
type Store interface {
	FindUser(ctx context.Context, chatID, telegramID int64) (*domain.User, error)
	GetChatUsers(ctx context.Context, chatID int64, activeOnly bool) ([]domain.User, error)
	GetBunByID(ctx context.Context, id uuid.UUID) (*domain.Bun, error)
	GetAllBuns(ctx context.Context) ([]domain.Bun, error)
	EnsureBun(ctx context.Context, name string, points int) (*domain.Bun, error)
	ApplyPoints(ctx context.Context, chatID, telegramID int64, bunID uuid.UUID, delta int) (int, bool, error)
	GetUserTotal(ctx context.Context, chatID, telegramID int64) (int, error)
	GetSelection(ctx context.Context, chatID int64, day time.Time) (*domain.DailySelection, error)
	CreateSelection(ctx context.Context, chatID, telegramID int64, bunID uuid.UUID, day time.Time) (*domain.DailySelection, error)
}

// Service provides game business logic: point awards and daily draws.
type Service struct {
	store Store
	log   *slog.Logger
	intn  func(n int) int
}

// New creates a new game service.
func New(logger *slog.Logger, store Store) *Service {
	return &Service{
		store: store,
		log:   logger.With(slog.String("component", "game")),
		intn:  rand.IntN,
	}
}

// AwardPoints adds delta points (possibly negative) to a user's starter
// bun balance. The starter bun and holding are created on first use.
// Returns the user's new chat total and whether a holding was created.
func (s *Service) AwardPoints(ctx context.Context, chatID, telegramID int64, delta int) (int, bool, error) {
	op := "game.AwardPoints"

	starter, err := s.store.EnsureBun(ctx, domain.StarterBunName, 1)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	total, created, err := s.store.ApplyPoints(ctx, chatID, telegramID, starter.ID, delta)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return total, created, nil
}

// SetPoints adjusts a user's balance so their chat total becomes target.
// The adjustment is applied as a delta to the starter bun holding, so
// per-bun history for other buns is preserved. A zero delta is a no-op
// that still succeeds. Returns the applied delta and the new total.
func (s *Service) SetPoints(ctx context.Context, chatID, telegramID int64, target int) (int, int, error) {
	op := "game.SetPoints"

	current, err := s.store.GetUserTotal(ctx, chatID, telegramID)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	delta := target - current
	if delta == 0 {
		return 0, current, nil
	}

	total, _, err := s.AwardPoints(ctx, chatID, telegramID, delta)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return delta, total, nil
}

// DrawResult describes the outcome of a daily draw.
type DrawResult struct {
	User         domain.User
	Bun          domain.Bun
	Total        int
	NewHolding   bool
	AlreadyDrawn bool
}

// DrawDaily picks the bun of the day for a chat, at most once per
// calendar date. The previous day's winner is skipped when the chat has
// more than one candidate. If today's winner is already chosen, the
// existing result is returned with AlreadyDrawn set.
func (s *Service) DrawDaily(ctx context.Context, chatID int64, now time.Time) (*DrawResult, error) {
	op := "game.DrawDaily"
	log := s.log.With(
		slog.String("op", op),
		slog.Int64("chatID", chatID))

	today := dateOnly(now)

	if sel, err := s.store.GetSelection(ctx, chatID, today); err == nil {
		res, err := s.resultFromSelection(ctx, sel)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return res, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	candidates, err := s.store.GetChatUsers(ctx, chatID, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoPlayers)
	}

	if len(candidates) > 1 {
		yesterday := today.AddDate(0, 0, -1)
		if prev, err := s.store.GetSelection(ctx, chatID, yesterday); err == nil {
			filtered := candidates[:0:0]
			for _, c := range candidates {
				if c.TelegramID != prev.TelegramID {
					filtered = append(filtered, c)
				}
			}
			if len(filtered) > 0 {
				candidates = filtered
			}
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	buns, err := s.store.GetAllBuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(buns) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoBuns)
	}

	winner := candidates[s.intn(len(candidates))]
	bun := buns[s.intn(len(buns))]

	if _, err := s.store.CreateSelection(ctx, chatID, winner.TelegramID, bun.ID, today); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	total, created, err := s.store.ApplyPoints(ctx, chatID, winner.TelegramID, bun.ID, bun.Points)
	if err != nil {
		return nil, fmt.Errorf("%s: apply points: %w", op, err)
	}

	log.Info("daily winner selected",
		slog.Int64("telegramID", winner.TelegramID),
		slog.String("bun", bun.Name),
		slog.Int("total", total))

	return &DrawResult{
		User:       winner,
		Bun:        bun,
		Total:      total,
		NewHolding: created,
	}, nil
}

func (s *Service) resultFromSelection(ctx context.Context, sel *domain.DailySelection) (*DrawResult, error) {
	user, err := s.store.FindUser(ctx, sel.ChatID, sel.TelegramID)
	if err != nil {
		return nil, err
	}
	bun, err := s.store.GetBunByID(ctx, sel.BunID)
	if err != nil {
		return nil, err
	}
	total, err := s.store.GetUserTotal(ctx, sel.ChatID, sel.TelegramID)
	if err != nil {
		return nil, err
	}
	return &DrawResult{
		User:         *user,
		Bun:          *bun,
		Total:        total,
		AlreadyDrawn: true,
	}, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
