package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"BunOfTheDayBot/internal/config"
	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/humor"
	"BunOfTheDayBot/internal/models/domain"
	"BunOfTheDayBot/internal/repositories"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminID int64 = 500

// recordingClient answers every Telegram API call with an empty OK
// response and keeps the request bodies for assertions.
type recordingClient struct {
	mu     sync.Mutex
	bodies []string
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	c.mu.Lock()
	c.bodies = append(c.bodies, req.URL.Path+" "+string(body))
	c.mu.Unlock()

	result := "{}"
	if strings.HasSuffix(req.URL.Path, "/answerCallbackQuery") {
		result = "true"
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":` + result + `}`)),
	}, nil
}

func (c *recordingClient) sent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.bodies, "\n")
}

// ─── In-memory storage ────────────────────────────────────────────────────

type holdKey struct {
	chatID, telegramID int64
	bunID              uuid.UUID
}

type fakeStorage struct {
	mu         sync.Mutex
	users      map[int64]map[int64]*domain.User
	buns       map[string]*domain.Bun
	holdings   map[holdKey]int
	selections map[string]*domain.DailySelection

	panicOnLeaderboard bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:      make(map[int64]map[int64]*domain.User),
		buns:       make(map[string]*domain.Bun),
		holdings:   make(map[holdKey]int),
		selections: make(map[string]*domain.DailySelection),
	}
}

func (f *fakeStorage) addUser(chatID, telegramID int64, username string, inGame bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users[chatID] == nil {
		f.users[chatID] = make(map[int64]*domain.User)
	}
	f.users[chatID][telegramID] = &domain.User{
		ChatID:     chatID,
		TelegramID: telegramID,
		FullName:   username,
		Username:   username,
		InGame:     inGame,
	}
}

func (f *fakeStorage) addBun(name string, points int) *domain.Bun {
	f.mu.Lock()
	defer f.mu.Unlock()
	bun := &domain.Bun{ID: uuid.New(), Name: name, Points: points}
	f.buns[name] = bun
	return bun
}

func selKey(chatID int64, day time.Time) string {
	return fmt.Sprintf("%d:%s", chatID, day.Format("2006-01-02"))
}

func (f *fakeStorage) UpsertPlayer(_ context.Context, chatID, telegramID int64, fullName, username string) (*domain.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users[chatID] == nil {
		f.users[chatID] = make(map[int64]*domain.User)
	}
	if u, ok := f.users[chatID][telegramID]; ok {
		u.InGame = true
		u.FullName = fullName
		u.Username = username
		return u, false, nil
	}
	u := &domain.User{ChatID: chatID, TelegramID: telegramID, FullName: fullName, Username: username, InGame: true}
	f.users[chatID][telegramID] = u
	return u, true, nil
}

func (f *fakeStorage) FindUser(_ context.Context, chatID, telegramID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[chatID][telegramID]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) FindUserByUsername(_ context.Context, chatID int64, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users[chatID] {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) GetChatUsers(_ context.Context, chatID int64, activeOnly bool) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.users[chatID] {
		if activeOnly && !u.InGame {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func (f *fakeStorage) GetAllUsers(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, chat := range f.users {
		for _, u := range chat {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStorage) GetActiveChatIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for chatID, chat := range f.users {
		for _, u := range chat {
			if u.InGame {
				out = append(out, chatID)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeStorage) SetInGame(_ context.Context, chatID, telegramID int64, inGame bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[chatID][telegramID]
	if !ok || u.InGame == inGame {
		return false, nil
	}
	u.InGame = inGame
	return true, nil
}

func (f *fakeStorage) DeleteUser(_ context.Context, chatID, telegramID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[chatID][telegramID]; !ok {
		return false, nil
	}
	delete(f.users[chatID], telegramID)
	return true, nil
}

func (f *fakeStorage) GetInactiveUsers(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, chat := range f.users {
		for _, u := range chat {
			if !u.InGame {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (f *fakeStorage) PurgeInactiveUsers(ctx context.Context) ([]domain.User, error) {
	out, _ := f.GetInactiveUsers(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range out {
		delete(f.users[u.ChatID], u.TelegramID)
	}
	return out, nil
}

func (f *fakeStorage) CreateBun(_ context.Context, name string, points int) (*domain.Bun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buns[name]; ok {
		return nil, repositories.ErrAlreadyExists
	}
	bun := &domain.Bun{ID: uuid.New(), Name: name, Points: points}
	f.buns[name] = bun
	return bun, nil
}

func (f *fakeStorage) EnsureBun(ctx context.Context, name string, points int) (*domain.Bun, error) {
	bun, err := f.CreateBun(ctx, name, points)
	if err == nil {
		return bun, nil
	}
	return f.GetBunByName(ctx, name)
}

func (f *fakeStorage) GetBunByID(_ context.Context, id uuid.UUID) (*domain.Bun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.buns {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) GetBunByName(_ context.Context, name string) (*domain.Bun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buns[name]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) GetAllBuns(_ context.Context) ([]domain.Bun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Bun
	for _, b := range f.buns {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStorage) UpdateBunPoints(_ context.Context, name string, points int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buns[name]
	if !ok {
		return false, nil
	}
	b.Points = points
	return true, nil
}

func (f *fakeStorage) DeleteBun(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buns[name]; !ok {
		return false, nil
	}
	delete(f.buns, name)
	return true, nil
}

func (f *fakeStorage) ApplyPoints(_ context.Context, chatID, telegramID int64, bunID uuid.UUID, delta int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := holdKey{chatID, telegramID, bunID}
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

func (f *fakeStorage) GetUserHoldings(_ context.Context, chatID, telegramID int64) ([]domain.HoldingStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HoldingStat
	for k, v := range f.holdings {
		if k.chatID != chatID || k.telegramID != telegramID {
			continue
		}
		for _, b := range f.buns {
			if b.ID == k.bunID {
				out = append(out, domain.HoldingStat{BunName: b.Name, Points: v})
			}
		}
	}
	return out, nil
}

func (f *fakeStorage) GetUserTotal(_ context.Context, chatID, telegramID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for k, v := range f.holdings {
		if k.chatID == chatID && k.telegramID == telegramID {
			total += v
		}
	}
	return total, nil
}

func (f *fakeStorage) GetChatLeaderboard(_ context.Context, chatID int64) ([]domain.ChatScore, error) {
	if f.panicOnLeaderboard {
		panic("leaderboard query exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatScore
	for _, u := range f.users[chatID] {
		if !u.InGame {
			continue
		}
		total := 0
		for k, v := range f.holdings {
			if k.chatID == chatID && k.telegramID == u.TelegramID {
				total += v
			}
		}
		out = append(out, domain.ChatScore{
			TelegramID: u.TelegramID,
			FullName:   u.FullName,
			Username:   u.Username,
			Total:      total,
		})
	}
	return out, nil
}

func (f *fakeStorage) GetSelection(_ context.Context, chatID int64, day time.Time) (*domain.DailySelection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sel, ok := f.selections[selKey(chatID, day)]; ok {
		return sel, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStorage) CreateSelection(_ context.Context, chatID, telegramID int64, bunID uuid.UUID, day time.Time) (*domain.DailySelection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := selKey(chatID, day)
	if _, ok := f.selections[key]; ok {
		return nil, repositories.ErrAlreadyExists
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

// ─── Harness ──────────────────────────────────────────────────────────────

func newTestBot(t *testing.T) (*Bot, *fakeStorage, *recordingClient) {
	t.Helper()

	store := newFakeStorage()
	client := &recordingClient{}
	tg, err := bot.New("123456:test",
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(time.Second, client),
	)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bunBot := &Bot{
		b:        tg,
		cfg:      &config.Config{BotConfig: config.BotConfig{AdminID: testAdminID}},
		repo:     store,
		game:     game.New(log, store),
		humor:    humor.New(log, "", ""),
		auth:     NewSingleAdmin(testAdminID),
		sessions: newSessionStore(),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	return bunBot, store, client
}

func messageUpdate(chat models.Chat, userID int64, text string, command bool) *models.Update {
	msg := &models.Message{
		ID:   1,
		From: &models.User{ID: userID, Username: "admin"},
		Chat: chat,
		Text: text,
	}
	if command {
		cmdLen := len([]rune(text))
		if i := strings.IndexByte(text, ' '); i >= 0 {
			cmdLen = len([]rune(text[:i]))
		}
		msg.Entities = []models.MessageEntity{{
			Type:   models.MessageEntityTypeBotCommand,
			Offset: 0,
			Length: cmdLen,
		}}
	}
	return &models.Update{ID: 1, Message: msg}
}

func privateCommand(userID int64, text string) *models.Update {
	return messageUpdate(models.Chat{ID: userID, Type: models.ChatTypePrivate}, userID, text, true)
}

func groupCommand(chatID, userID int64, text string) *models.Update {
	return messageUpdate(models.Chat{ID: chatID, Type: models.ChatTypeGroup}, userID, text, true)
}

func privateText(userID int64, text string) *models.Update {
	return messageUpdate(models.Chat{ID: userID, Type: models.ChatTypePrivate}, userID, text, false)
}

func callbackUpdate(userID int64, data string) *models.Update {
	return &models.Update{
		ID: 1,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb1",
			From: models.User{ID: userID, Username: "admin"},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{
					ID:   2,
					Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate},
				},
			},
		},
	}
}

// ─── Inline admin commands ────────────────────────────────────────────────

func TestAddBunCommandWithArguments(t *testing.T) {
	bunBot, store, client := newTestBot(t)
	ctx := context.Background()

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/add_bun Круассан 10"))

	bun, err := store.GetBunByName(ctx, "Круассан")
	require.NoError(t, err, "inline arguments must create the bun immediately")
	assert.Equal(t, 10, bun.Points)

	_, ok := bunBot.sessions.get(testAdminID)
	assert.False(t, ok, "inline form must not leave a pending session")
	assert.Contains(t, client.sent(), "добавлена")
}

func TestAddBunCommandDuplicateReportsExistingValue(t *testing.T) {
	bunBot, store, client := newTestBot(t)
	ctx := context.Background()
	store.addBun("Круассан", 10)

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/add_bun Круассан 5"))

	bun, err := store.GetBunByName(ctx, "Круассан")
	require.NoError(t, err)
	assert.Equal(t, 10, bun.Points, "duplicate add must not change the catalog")
	assert.Contains(t, client.sent(), "уже есть в каталоге: 10 очков")
}

func TestEditBunCommandWithArguments(t *testing.T) {
	bunBot, store, _ := newTestBot(t)
	ctx := context.Background()
	store.addBun("Эклер", 5)

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/edit_bun Эклер 7"))

	bun, err := store.GetBunByName(ctx, "Эклер")
	require.NoError(t, err)
	assert.Equal(t, 7, bun.Points)
}

func TestAddPointsCommandWithArguments(t *testing.T) {
	bunBot, store, _ := newTestBot(t)
	ctx := context.Background()
	store.addUser(-200, 42, "alice", true)

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/add_points -200 @alice 5"))

	total, err := store.GetUserTotal(ctx, -200, 42)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestAddPointsCommandRejectsInactivePlayer(t *testing.T) {
	bunBot, store, client := newTestBot(t)
	ctx := context.Background()
	store.addUser(-200, 42, "bob", false)

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/add_points -200 @bob 5"))

	total, err := store.GetUserTotal(ctx, -200, 42)
	require.NoError(t, err)
	assert.Zero(t, total, "players who left must not receive points")
	assert.Contains(t, client.sent(), "Не нашёл активного игрока")
}

// ─── Conversational flows ─────────────────────────────────────────────────

func TestAddBunFlowInvalidInputKeepsStep(t *testing.T) {
	bunBot, store, _ := newTestBot(t)
	ctx := context.Background()

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/add_bun"))
	sess, ok := bunBot.sessions.get(testAdminID)
	require.True(t, ok)
	require.Equal(t, StepAddBunName, sess.Step)

	// too long, stays on the name step
	bunBot.defaultHandler(ctx, bunBot.b, privateText(testAdminID, strings.Repeat("б", maxBunNameLen+1)))
	sess, ok = bunBot.sessions.get(testAdminID)
	require.True(t, ok)
	assert.Equal(t, StepAddBunName, sess.Step)
	assert.Empty(t, sess.BunName)

	bunBot.defaultHandler(ctx, bunBot.b, privateText(testAdminID, "Эклер"))
	sess, ok = bunBot.sessions.get(testAdminID)
	require.True(t, ok)
	require.Equal(t, StepAddBunPoints, sess.Step)
	assert.Equal(t, "Эклер", sess.BunName)

	// not a number, stays on the points step
	bunBot.defaultHandler(ctx, bunBot.b, privateText(testAdminID, "вкусно"))
	sess, ok = bunBot.sessions.get(testAdminID)
	require.True(t, ok)
	assert.Equal(t, StepAddBunPoints, sess.Step)

	bunBot.defaultHandler(ctx, bunBot.b, privateText(testAdminID, "5"))
	_, ok = bunBot.sessions.get(testAdminID)
	assert.False(t, ok, "completing the flow must clear the session")

	bun, err := store.GetBunByName(ctx, "Эклер")
	require.NoError(t, err)
	assert.Equal(t, 5, bun.Points)
}

func TestPointsUserFlowSkipsPlayersWhoLeft(t *testing.T) {
	bunBot, store, _ := newTestBot(t)
	ctx := context.Background()
	store.addUser(-300, 1, "alice", true)
	store.addUser(-300, 2, "bob", false)

	bunBot.defaultHandler(ctx, bunBot.b, callbackUpdate(testAdminID, "adm_chat_usr_-300"))
	sess, ok := bunBot.sessions.get(testAdminID)
	require.True(t, ok)
	require.Equal(t, StepPointsUserName, sess.Step)

	// bob left the game, the step stays alive
	bunBot.defaultHandler(ctx, bunBot.b, privateText(testAdminID, "@bob"))
	sess, ok = bunBot.sessions.get(testAdminID)
	require.True(t, ok)
	assert.Equal(t, StepPointsUserName, sess.Step)
	assert.Empty(t, sess.Username)

	bunBot.defaultHandler(ctx, bunBot.b, privateText(testAdminID, "@alice"))
	sess, ok = bunBot.sessions.get(testAdminID)
	require.True(t, ok)
	require.Equal(t, StepPointsUserAmount, sess.Step)
	assert.Equal(t, "alice", sess.Username)

	bunBot.defaultHandler(ctx, bunBot.b, privateText(testAdminID, "3"))
	_, ok = bunBot.sessions.get(testAdminID)
	assert.False(t, ok)

	total, err := store.GetUserTotal(ctx, -300, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestMenuCallbackClearsPendingSession(t *testing.T) {
	bunBot, _, _ := newTestBot(t)
	ctx := context.Background()

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/add_bun"))
	_, ok := bunBot.sessions.get(testAdminID)
	require.True(t, ok)

	bunBot.defaultHandler(ctx, bunBot.b, callbackUpdate(testAdminID, "adm_menu_main"))
	_, ok = bunBot.sessions.get(testAdminID)
	assert.False(t, ok, "returning to the menu must abort the flow")
}

func TestCommandClearsPendingSession(t *testing.T) {
	bunBot, _, _ := newTestBot(t)
	ctx := context.Background()

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/add_bun"))
	_, ok := bunBot.sessions.get(testAdminID)
	require.True(t, ok)

	bunBot.defaultHandler(ctx, bunBot.b, privateCommand(testAdminID, "/help"))
	_, ok = bunBot.sessions.get(testAdminID)
	assert.False(t, ok, "any command must abort the pending flow")
}

// ─── Manual broadcast button ──────────────────────────────────────────────

func TestDailyBunButtonBroadcastsToAllChats(t *testing.T) {
	bunBot, store, client := newTestBot(t)
	ctx := context.Background()
	store.addUser(-400, 7, "alice", true)
	store.addBun("Плюшка", 2)

	bunBot.defaultHandler(ctx, bunBot.b, callbackUpdate(testAdminID, "adm_bun_now"))

	assert.Len(t, store.selections, 1, "the button must run the daily draw")
	assert.Contains(t, client.sent(), "разыграна")

	// pressing again keeps the existing result
	bunBot.defaultHandler(ctx, bunBot.b, callbackUpdate(testAdminID, "adm_bun_now"))
	assert.Len(t, store.selections, 1)
}

// ─── Update dispatch robustness ───────────────────────────────────────────

func TestDefaultHandlerRecoversFromPanic(t *testing.T) {
	bunBot, store, client := newTestBot(t)
	ctx := context.Background()
	store.addUser(-500, 9, "alice", true)
	store.panicOnLeaderboard = true

	require.NotPanics(t, func() {
		bunBot.defaultHandler(ctx, bunBot.b, groupCommand(-500, 9, "/stats"))
	})
	assert.Contains(t, client.sent(), "Что-то пошло не так")
}

func TestDefaultHandlerIgnoresSenderlessMessages(t *testing.T) {
	bunBot, _, _ := newTestBot(t)

	upd := groupCommand(-500, 9, "/stats")
	upd.Message.From = nil

	require.NotPanics(t, func() {
		bunBot.defaultHandler(context.Background(), bunBot.b, upd)
	})
}
