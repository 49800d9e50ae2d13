package repositories

import (
	"BunOfTheDayBot/internal/models/domain"
	"context"
	"fmt"
)

// UpsertPlayer registers a user in a chat's game, or re-activates and
// refreshes an existing record. Returns the user and whether a new row
// was inserted.
func (r *Repository) UpsertPlayer(ctx context.Context, chatID, telegramID int64, fullName, username string) (*domain.User, bool, error) {
	op := "Repository.UpsertPlayer"
	user := &domain.User{
		ChatID:     chatID,
		TelegramID: telegramID,
		FullName:   fullName,
		Username:   username,
		InGame:     true,
	}

	query := `INSERT INTO users (chat_id, telegram_id, full_name, username, in_game)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (chat_id, telegram_id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
			username = EXCLUDED.username,
			in_game = TRUE,
			updated_at = NOW()
		RETURNING created_at, updated_at, (xmax = 0)`
	var inserted bool
	err := r.DB.QueryRowContext(ctx, query,
		user.ChatID, user.TelegramID, user.FullName, user.Username).
		Scan(&user.CreatedAt, &user.UpdatedAt, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return user, inserted, nil
}

// FindUser returns a user by chat and Telegram ID.
func (r *Repository) FindUser(ctx context.Context, chatID, telegramID int64) (*domain.User, error) {
	op := "Repository.FindUser"
	var user domain.User
	query := `SELECT chat_id, telegram_id, full_name, username, in_game,
		created_at, updated_at
		FROM users WHERE chat_id = $1 AND telegram_id = $2`
	err := r.DB.QueryRowContext(ctx, query, chatID, telegramID).
		Scan(&user.ChatID, &user.TelegramID, &user.FullName,
			&user.Username, &user.InGame,
			&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// FindUserByUsername returns a user in a chat by username, case-insensitive.
// The username is matched without a leading @.
func (r *Repository) FindUserByUsername(ctx context.Context, chatID int64, username string) (*domain.User, error) {
	op := "Repository.FindUserByUsername"
	var user domain.User
	query := `SELECT chat_id, telegram_id, full_name, username, in_game,
		created_at, updated_at
		FROM users WHERE chat_id = $1 AND LOWER(username) = LOWER($2)`
	err := r.DB.QueryRowContext(ctx, query, chatID, username).
		Scan(&user.ChatID, &user.TelegramID, &user.FullName,
			&user.Username, &user.InGame,
			&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// GetChatUsers returns users registered in a chat, ordered by name.
// When activeOnly is set, only users still in the game are returned.
func (r *Repository) GetChatUsers(ctx context.Context, chatID int64, activeOnly bool) ([]domain.User, error) {
	op := "Repository.GetChatUsers"
	var users []domain.User
	query := `SELECT chat_id, telegram_id, full_name, username, in_game,
		created_at, updated_at
		FROM users WHERE chat_id = $1`
	if activeOnly {
		query += ` AND in_game = TRUE`
	}
	query += ` ORDER BY full_name, username`
	rows, err := r.DB.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ChatID, &u.TelegramID, &u.FullName,
			&u.Username, &u.InGame,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// GetAllUsers returns every registered user across all chats,
// ordered by chat then name.
func (r *Repository) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	op := "Repository.GetAllUsers"
	var users []domain.User
	query := `SELECT chat_id, telegram_id, full_name, username, in_game,
		created_at, updated_at
		FROM users ORDER BY chat_id, full_name, username`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ChatID, &u.TelegramID, &u.FullName,
			&u.Username, &u.InGame,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// GetActiveChatIDs returns the distinct chats that have at least one
// active player.
func (r *Repository) GetActiveChatIDs(ctx context.Context) ([]int64, error) {
	op := "Repository.GetActiveChatIDs"
	var chatIDs []int64
	query := `SELECT DISTINCT chat_id FROM users
		WHERE in_game = TRUE ORDER BY chat_id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		chatIDs = append(chatIDs, id)
	}
	return chatIDs, nil
}

// SetInGame flips a user's participation flag. Holdings are kept.
// Returns false if the user does not exist in the chat.
func (r *Repository) SetInGame(ctx context.Context, chatID, telegramID int64, inGame bool) (bool, error) {
	op := "Repository.SetInGame"
	query := `UPDATE users SET in_game = $3, updated_at = NOW()
		WHERE chat_id = $1 AND telegram_id = $2`
	res, err := r.DB.ExecContext(ctx, query, chatID, telegramID, inGame)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// DeleteUser fully removes a user from a chat. Holdings and daily
// selections go with the row via cascading foreign keys.
// Returns false if no row was deleted.
func (r *Repository) DeleteUser(ctx context.Context, chatID, telegramID int64) (bool, error) {
	op := "Repository.DeleteUser"
	query := `DELETE FROM users WHERE chat_id = $1 AND telegram_id = $2`
	res, err := r.DB.ExecContext(ctx, query, chatID, telegramID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// GetInactiveUsers returns all users that left the game, across every
// chat, ordered by chat then name.
func (r *Repository) GetInactiveUsers(ctx context.Context) ([]domain.User, error) {
	op := "Repository.GetInactiveUsers"
	var users []domain.User
	query := `SELECT chat_id, telegram_id, full_name, username, in_game,
		created_at, updated_at
		FROM users WHERE in_game = FALSE
		ORDER BY chat_id, full_name, username`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ChatID, &u.TelegramID, &u.FullName,
			&u.Username, &u.InGame,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// PurgeInactiveUsers deletes every user that left the game and returns
// the deleted rows for reporting. Running it twice in a row deletes
// nothing the second time.
func (r *Repository) PurgeInactiveUsers(ctx context.Context) ([]domain.User, error) {
	op := "Repository.PurgeInactiveUsers"
	var users []domain.User
	query := `DELETE FROM users WHERE in_game = FALSE
		RETURNING chat_id, telegram_id, full_name, username, in_game,
		created_at, updated_at`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ChatID, &u.TelegramID, &u.FullName,
			&u.Username, &u.InGame,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, u)
	}
	return users, nil
}
