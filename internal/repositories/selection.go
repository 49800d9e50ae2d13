package repositories

import (
	"BunOfTheDayBot/internal/models/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSelection records the daily draw winner for a chat. Returns
// ErrAlreadyExists if the chat already has a winner for that date.
func (r *Repository) CreateSelection(ctx context.Context, chatID, telegramID int64, bunID uuid.UUID, day time.Time) (*domain.DailySelection, error) {
	op := "Repository.CreateSelection"
	sel := &domain.DailySelection{
		ID:         uuid.New(),
		ChatID:     chatID,
		TelegramID: telegramID,
		BunID:      bunID,
		SelectedOn: day,
	}

	query := `INSERT INTO daily_selections (id, chat_id, telegram_id, bun_id, selected_on)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id, selected_on) DO NOTHING
		RETURNING id`
	err := r.DB.QueryRowContext(ctx, query,
		sel.ID, sel.ChatID, sel.TelegramID, sel.BunID, sel.SelectedOn).
		Scan(&sel.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sel, nil
}

// GetSelection returns the draw record of a chat for a given date,
// or sql.ErrNoRows if the chat has no winner for that date yet.
func (r *Repository) GetSelection(ctx context.Context, chatID int64, day time.Time) (*domain.DailySelection, error) {
	op := "Repository.GetSelection"
	var sel domain.DailySelection
	query := `SELECT id, chat_id, telegram_id, bun_id, selected_on
		FROM daily_selections
		WHERE chat_id = $1 AND selected_on = $2`
	err := r.DB.QueryRowContext(ctx, query, chatID, day).
		Scan(&sel.ID, &sel.ChatID, &sel.TelegramID, &sel.BunID, &sel.SelectedOn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sel, nil
}
