package game

import (
	"BunOfTheDayBot/internal/models/domain"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holdingKey struct {
	chatID     int64
	telegramID int64
	bunID      uuid.UUID
}

type fakeStore struct {
	users      map[int64][]domain.User
	buns       []domain.Bun
	holdings   map[holdingKey]int
	selections map[string]*domain.DailySelection
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[int64][]domain.User),
		holdings:   make(map[holdingKey]int),
		selections: make(map[string]*domain.DailySelection),
	}
}

func (f *fakeStore) addUser(chatID, telegramID int64, name string, inGame bool) {
	f.users[chatID] = append(f.users[chatID], domain.User{
		ChatID:     chatID,
		TelegramID: telegramID,
		FullName:   name,
		InGame:     inGame,
	})
}

func (f *fakeStore) addBun(name string, points int) domain.Bun {
	b := domain.Bun{ID: uuid.New(), Name: name, Points: points}
	f.buns = append(f.buns, b)
	return b
}

func (f *fakeStore) FindUser(_ context.Context, chatID, telegramID int64) (*domain.User, error) {
	for _, u := range f.users[chatID] {
		if u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetChatUsers(_ context.Context, chatID int64, activeOnly bool) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users[chatID] {
		if activeOnly && !u.InGame {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) GetBunByID(_ context.Context, id uuid.UUID) (*domain.Bun, error) {
	for _, b := range f.buns {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetAllBuns(_ context.Context) ([]domain.Bun, error) {
	return f.buns, nil
}

func (f *fakeStore) EnsureBun(_ context.Context, name string, points int) (*domain.Bun, error) {
	for _, b := range f.buns {
		if b.Name == name {
			return &b, nil
		}
	}
	b := f.addBun(name, points)
	return &b, nil
}

func (f *fakeStore) GetBunByName(_ context.Context, name string) (*domain.Bun, error) {
	for _, b := range f.buns {
		if b.Name == name {
			return &b, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) ApplyPoints(_ context.Context, chatID, telegramID int64, bunID uuid.UUID, delta int) (int, bool, error) {
	key := holdingKey{chatID, telegramID, bunID}
	_, existed := f.holdings[key]
	f.holdings[key] += delta

	total := 0
	for k, v := range f.holdings {
		if k.chatID == chatID && k.telegramID == telegramID {
			total += v
		}
	}
	return total, !existed, nil
}

func (f *fakeStore) GetUserTotal(_ context.Context, chatID, telegramID int64) (int, error) {
	total := 0
	for k, v := range f.holdings {
		if k.chatID == chatID && k.telegramID == telegramID {
			total += v
		}
	}
	return total, nil
}

func selKey(chatID int64, day time.Time) string {
	return fmt.Sprintf("%d:%s", chatID, day.Format("2006-01-02"))
}

func (f *fakeStore) GetSelection(_ context.Context, chatID int64, day time.Time) (*domain.DailySelection, error) {
	sel, ok := f.selections[selKey(chatID, day)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sel, nil
}

func (f *fakeStore) CreateSelection(_ context.Context, chatID, telegramID int64, bunID uuid.UUID, day time.Time) (*domain.DailySelection, error) {
	key := selKey(chatID, day)
	if _, ok := f.selections[key]; ok {
		return nil, fmt.Errorf("selection: already exists")
	}
	sel := &domain.DailySelection{
		ID:         uuid.New(),
		ChatID:     chatID,
		TelegramID: telegramID,
		BunID:      bunID,
		SelectedOn: day,
	}
	f.selections[key] = sel
	return sel, nil
}

func newTestService(store *fakeStore) *Service {
	s := New(slog.Default(), store)
	s.intn = func(n int) int { return 0 }
	return s
}

func TestAwardPointsCreatesStarterHolding(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	total, created, err := svc.AwardPoints(ctx, 10, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.True(t, created)

	starter, err := store.GetBunByName(ctx, domain.StarterBunName)
	require.NoError(t, err)
	assert.Equal(t, domain.StarterBunName, starter.Name)

	total, created, err = svc.AwardPoints(ctx, 10, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.False(t, created)
}

func TestAwardPointsNegativeDeltaAllowed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.AwardPoints(ctx, 10, 100, 5)
	require.NoError(t, err)

	total, _, err := svc.AwardPoints(ctx, 10, 100, -8)
	require.NoError(t, err)
	assert.Equal(t, -3, total, "totals may go negative")
}

func TestSetPointsComputesDelta(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.AwardPoints(ctx, 10, 100, 7)
	require.NoError(t, err)

	delta, total, err := svc.SetPoints(ctx, 10, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, -4, delta)
	assert.Equal(t, 3, total)

	delta, total, err = svc.SetPoints(ctx, 10, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, delta, "matching target is a successful no-op")
	assert.Equal(t, 3, total)
}

func TestDrawDailyNoPlayers(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.DrawDaily(context.Background(), 10, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPlayers)
}

func TestDrawDailyNoBuns(t *testing.T) {
	store := newFakeStore()
	store.addUser(10, 100, "Alice", true)
	svc := newTestService(store)

	_, err := svc.DrawDaily(context.Background(), 10, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoBuns)
}

func TestDrawDailyOncePerDay(t *testing.T) {
	store := newFakeStore()
	store.addUser(10, 100, "Alice", true)
	store.addBun("Эклер", 5)
	svc := newTestService(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := svc.DrawDaily(ctx, 10, now)
	require.NoError(t, err)
	assert.False(t, first.AlreadyDrawn)
	assert.Equal(t, int64(100), first.User.TelegramID)
	assert.Equal(t, 5, first.Total)

	second, err := svc.DrawDaily(ctx, 10, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, second.AlreadyDrawn)
	assert.Equal(t, first.User.TelegramID, second.User.TelegramID)
	assert.Equal(t, 5, second.Total, "no extra points on repeat draw")
}

func TestDrawDailySkipsPreviousWinner(t *testing.T) {
	store := newFakeStore()
	store.addUser(10, 100, "Alice", true)
	store.addUser(10, 200, "Bob", true)
	store.addBun("Эклер", 5)
	svc := newTestService(store)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	first, err := svc.DrawDaily(ctx, 10, day1)
	require.NoError(t, err)

	second, err := svc.DrawDaily(ctx, 10, day2)
	require.NoError(t, err)
	assert.NotEqual(t, first.User.TelegramID, second.User.TelegramID)
}

func TestDrawDailySingleCandidateMayRepeat(t *testing.T) {
	store := newFakeStore()
	store.addUser(10, 100, "Alice", true)
	store.addBun("Эклер", 5)
	svc := newTestService(store)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	first, err := svc.DrawDaily(ctx, 10, day1)
	require.NoError(t, err)

	second, err := svc.DrawDaily(ctx, 10, day2)
	require.NoError(t, err)
	assert.Equal(t, first.User.TelegramID, second.User.TelegramID)
}

func TestDrawDailyIgnoresInactiveUsers(t *testing.T) {
	store := newFakeStore()
	store.addUser(10, 100, "Alice", false)
	store.addUser(10, 200, "Bob", true)
	store.addBun("Эклер", 5)
	svc := newTestService(store)

	res, err := svc.DrawDaily(context.Background(), 10, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.User.TelegramID)
}

func TestParsePointsSpec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PointsSpec
		wantErr bool
	}{
		{name: "plain number", input: "5", want: PointsSpec{Min: 5, Max: 5}},
		{name: "negative number", input: "-3", want: PointsSpec{Min: -3, Max: -3}},
		{name: "range", input: "1-10", want: PointsSpec{Min: 1, Max: 10}},
		{name: "range with spaces", input: " 2 - 4 ", want: PointsSpec{Min: 2, Max: 4}},
		{name: "inverted range", input: "10-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "garbage range", input: "1-x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePointsSpec(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRollStaysInRange(t *testing.T) {
	svc := newTestService(newFakeStore())

	assert.Equal(t, 7, svc.Roll(PointsSpec{Min: 7, Max: 7}))

	svc.intn = func(n int) int { return n - 1 }
	assert.Equal(t, 10, svc.Roll(PointsSpec{Min: 1, Max: 10}))

	svc.intn = func(n int) int { return 0 }
	assert.Equal(t, 1, svc.Roll(PointsSpec{Min: 1, Max: 10}))
}
