package repositories

import (
	"BunOfTheDayBot/internal/models/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ApplyPoints adds delta to a user's balance for one bun, creating the
// holding row if the user had none for that bun. Insert-or-update and
// the returned total happen in a single transaction. Reports whether a
// new holding row was created.
func (r *Repository) ApplyPoints(ctx context.Context, chatID, telegramID int64, bunID uuid.UUID, delta int) (int, bool, error) {
	op := "Repository.ApplyPoints"

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	var points int
	query := `SELECT points FROM holdings
		WHERE chat_id = $1 AND telegram_id = $2 AND bun_id = $3
		FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, chatID, telegramID, bunID).
		Scan(&points)

	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		insert := `INSERT INTO holdings (chat_id, telegram_id, bun_id, points)
			VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, insert, chatID, telegramID, bunID, delta); err != nil {
			return 0, false, fmt.Errorf("%s: insert: %w", op, err)
		}
		points = delta
	case err != nil:
		return 0, false, fmt.Errorf("%s: %w", op, err)
	default:
		points += delta
		update := `UPDATE holdings SET points = $4, updated_at = NOW()
			WHERE chat_id = $1 AND telegram_id = $2 AND bun_id = $3`
		if _, err := tx.ExecContext(ctx, update, chatID, telegramID, bunID, points); err != nil {
			return 0, false, fmt.Errorf("%s: update: %w", op, err)
		}
	}

	var total int
	sum := `SELECT COALESCE(SUM(points), 0) FROM holdings
		WHERE chat_id = $1 AND telegram_id = $2`
	if err := tx.QueryRowContext(ctx, sum, chatID, telegramID).Scan(&total); err != nil {
		return 0, false, fmt.Errorf("%s: sum: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("%s: commit: %w", op, err)
	}
	return total, created, nil
}

// GetUserHoldings returns a user's per-bun balances with bun names,
// ordered by bun name.
func (r *Repository) GetUserHoldings(ctx context.Context, chatID, telegramID int64) ([]domain.HoldingStat, error) {
	op := "Repository.GetUserHoldings"
	var stats []domain.HoldingStat
	query := `SELECT b.name, h.points
		FROM holdings h
		INNER JOIN buns b ON b.id = h.bun_id
		WHERE h.chat_id = $1 AND h.telegram_id = $2
		ORDER BY b.name`
	rows, err := r.DB.QueryContext(ctx, query, chatID, telegramID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.HoldingStat
		if err := rows.Scan(&s.BunName, &s.Points); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// GetUserTotal returns a user's total points across all their holdings
// in a chat. A user with no holdings has a total of zero.
func (r *Repository) GetUserTotal(ctx context.Context, chatID, telegramID int64) (int, error) {
	op := "Repository.GetUserTotal"
	var total int
	query := `SELECT COALESCE(SUM(points), 0) FROM holdings
		WHERE chat_id = $1 AND telegram_id = $2`
	err := r.DB.QueryRowContext(ctx, query, chatID, telegramID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// GetChatLeaderboard returns active players of a chat with their point
// totals, highest first.
func (r *Repository) GetChatLeaderboard(ctx context.Context, chatID int64) ([]domain.ChatScore, error) {
	op := "Repository.GetChatLeaderboard"
	var scores []domain.ChatScore
	query := `SELECT u.telegram_id, u.full_name, u.username,
		COALESCE(SUM(h.points), 0) AS total
		FROM users u
		LEFT JOIN holdings h
			ON h.chat_id = u.chat_id AND h.telegram_id = u.telegram_id
		WHERE u.chat_id = $1 AND u.in_game = TRUE
		GROUP BY u.telegram_id, u.full_name, u.username
		ORDER BY total DESC, u.full_name`
	rows, err := r.DB.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.ChatScore
		if err := rows.Scan(&s.TelegramID, &s.FullName, &s.Username, &s.Total); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		scores = append(scores, s)
	}
	return scores, nil
}
