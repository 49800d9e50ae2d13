package telegram

import (
	"context"

	"BunOfTheDayBot/internal/models/domain"

	"github.com/google/uuid"
)

// Storage is the persistence surface the bot handlers need.
// *repositories.Repository satisfies it.
type Storage interface {
	UpsertPlayer(ctx context.Context, chatID, telegramID int64, fullName, username string) (*domain.User, bool, error)
	FindUser(ctx context.Context, chatID, telegramID int64) (*domain.User, error)
	FindUserByUsername(ctx context.Context, chatID int64, username string) (*domain.User, error)
	GetChatUsers(ctx context.Context, chatID int64, activeOnly bool) ([]domain.User, error)
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	GetActiveChatIDs(ctx context.Context) ([]int64, error)
	SetInGame(ctx context.Context, chatID, telegramID int64, inGame bool) (bool, error)
	DeleteUser(ctx context.Context, chatID, telegramID int64) (bool, error)
	GetInactiveUsers(ctx context.Context) ([]domain.User, error)
	PurgeInactiveUsers(ctx context.Context) ([]domain.User, error)

	CreateBun(ctx context.Context, name string, points int) (*domain.Bun, error)
	GetBunByID(ctx context.Context, id uuid.UUID) (*domain.Bun, error)
	GetBunByName(ctx context.Context, name string) (*domain.Bun, error)
	GetAllBuns(ctx context.Context) ([]domain.Bun, error)
	UpdateBunPoints(ctx context.Context, name string, points int) (bool, error)
	DeleteBun(ctx context.Context, name string) (bool, error)

	GetUserHoldings(ctx context.Context, chatID, telegramID int64) ([]domain.HoldingStat, error)
	GetUserTotal(ctx context.Context, chatID, telegramID int64) (int, error)
	GetChatLeaderboard(ctx context.Context, chatID int64) ([]domain.ChatScore, error)
}
