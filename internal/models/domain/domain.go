package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// StarterBunName is the name of the bun every new player receives on joining.
const StarterBunName = "Круассан"

// User represents a game participant inside a specific group chat.
// The same Telegram account playing in two chats is two separate users.
type User struct {
	ChatID     int64
	TelegramID int64
	FullName   string
	Username   string
	InGame     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName returns the best human-readable label for a user.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FullName != "" {
		return u.FullName
	}
	return "id" + strconv.FormatInt(u.TelegramID, 10)
}

// Bun is a reward item from the global catalog.
type Bun struct {
	ID        uuid.UUID
	Name      string
	Points    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Holding is the accumulated point balance a user has for one bun in one chat.
type Holding struct {
	ChatID     int64
	TelegramID int64
	BunID      uuid.UUID
	Points     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HoldingStat is a holding joined with its bun name, for stats output.
type HoldingStat struct {
	BunName string
	Points  int
}

// ChatScore is one leaderboard row: a user and their total points in a chat.
type ChatScore struct {
	TelegramID int64
	FullName   string
	Username   string
	Total      int
}

// DailySelection records which user won the daily draw in a chat on a date.
type DailySelection struct {
	ID         uuid.UUID
	ChatID     int64
	TelegramID int64
	BunID      uuid.UUID
	SelectedOn time.Time
}
