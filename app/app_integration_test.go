package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Black-And-White-Club/counting-bot/config"
	"github.com/Black-And-White-Club/counting-bot/internal/testutils"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/eventbus"
	"github.com/Black-And-White-Club/counting-bot/pkg/jwt"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability"
	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMessenger struct {
	mu        sync.Mutex
	reactions []string
	sent      []string
}

var _ outbound.Messenger = (*recordingMessenger)(nil)

func (m *recordingMessenger) React(_ context.Context, _ sharedtypes.ChannelID, _ sharedtypes.MessageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, emoji)
	return nil
}

func (m *recordingMessenger) DeleteMessage(context.Context, sharedtypes.ChannelID, sharedtypes.MessageID) error {
	return nil
}

func (m *recordingMessenger) SendMessage(_ context.Context, _ sharedtypes.ChannelID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, content)
	return nil
}

func newIntegrationApp(t *testing.T) (*App, *recordingMessenger) {
	t.Helper()
	pg := testutils.NewPostgresDB(t)
	ctx := context.Background()

	obs := observability.NewNoop()
	require.NoError(t, MigrateAll(ctx, pg.DB, obs.Provider.Logger))

	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	bus := eventbus.NewInMemoryEventBus(obs.Provider.Logger)
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	require.NoError(t, err)

	app := &App{
		Config: &config.Config{
			HTTP: config.HTTPConfig{Address: "127.0.0.1:0", RateLimit: 100, RateBurst: 100},
			JWT:  config.JWTConfig{Secret: "integration", DefaultTTL: time.Hour},
			Counting: config.CountingConfig{
				StateCacheTTL:    time.Minute,
				SettingsCacheTTL: time.Minute,
				StatsCacheTTL:    time.Minute,
				BanCacheTTL:      time.Minute,
				EditHintWindow:   30 * time.Second,
				LaneIdleTimeout:  time.Minute,
				SnapshotInterval: time.Hour,
			},
		},
		Observability: obs,
		DB:            pg.DB,
		EventBus:      bus,
		Router:        router,
		clock:         clock,
	}
	messenger := &recordingMessenger{}
	require.NoError(t, app.initializeModules(ctx, cache.NewMemoryStore(clock), messenger, outbound.NewBusPunisher(bus)))
	t.Cleanup(func() {
		app.DB = nil
		app.Close()
	})
	return app, messenger
}

func TestApp_CountingEndToEnd(t *testing.T) {
	app, messenger := newIntegrationApp(t)
	ctx := context.Background()
	gen := testutils.NewTestDataGenerator()
	counting := app.Modules.CountingModule.CountingService

	guild, channel := gen.GuildID(), gen.ChannelID()
	users := gen.UserIDs(2)

	_, err := counting.SetupChannel(ctx, countingtypes.SetupRequest{GuildID: guild, ChannelID: channel, StartNumber: 1})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		res, err := counting.Submit(ctx, countingtypes.Submission{
			GuildID: guild, ChannelID: channel, UserID: users[i%2],
			MessageID: gen.MessageID(), Content: strconv.Itoa(i),
		})
		require.NoError(t, err)
		require.Equal(t, countingtypes.OutcomeAccepted, res.Outcome, "submission %d", i)
	}

	res, err := counting.Submit(ctx, countingtypes.Submission{
		GuildID: guild, ChannelID: channel, UserID: users[0], MessageID: gen.MessageID(), Content: "9",
	})
	require.NoError(t, err)
	assert.Equal(t, countingtypes.OutcomeWrongNumber, res.Outcome)

	res, err = counting.Submit(ctx, countingtypes.Submission{
		GuildID: guild, ChannelID: channel, UserID: users[0], MessageID: gen.MessageID(), Content: gen.Chatter(),
	})
	require.NoError(t, err)
	assert.Equal(t, countingtypes.OutcomeNonNumber, res.Outcome)

	state, err := counting.GetChannelState(ctx, channel)
	require.NoError(t, err)
	assert.Equal(t, int64(5), state.CurrentNumber)
	assert.Equal(t, int64(5), state.HighestNumber)
	assert.Equal(t, users[1], state.LastContributorID)

	board, err := app.Modules.StatsModule.StatsService.Leaderboard(ctx, channel, statstypes.MetricContributions, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, users[1], board[0].UserID)
	assert.Equal(t, int64(3), board[0].Contributions)

	accepted, err := app.Modules.EventLogModule.EventLogService.List(ctx, channel, eventlogtypes.Filter{
		Kinds: []eventlogtypes.Kind{eventlogtypes.KindCountAccepted},
	})
	require.NoError(t, err)
	assert.Len(t, accepted, 5)

	messenger.mu.Lock()
	assert.Contains(t, messenger.reactions, "❌")
	messenger.mu.Unlock()

	t.Run("operator API serves the channel", func(t *testing.T) {
		srv := httptest.NewServer(app.httpRouter())
		defer srv.Close()

		token, err := jwt.NewService("integration", "", time.Hour, app.clock).GenerateToken("1", string(guild), jwt.RoleViewer, 0)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/channels/"+string(channel), nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var stats countingtypes.ChannelStats
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
		assert.Equal(t, int64(5), stats.State.CurrentNumber)
		assert.Equal(t, 2, stats.Participants)
	})

	t.Run("purge removes everything", func(t *testing.T) {
		require.NoError(t, counting.PurgeChannel(ctx, channel))
		_, err := counting.GetChannelState(ctx, channel)
		assert.Error(t, err)

		events, err := app.Modules.EventLogModule.EventLogService.List(ctx, channel, eventlogtypes.Filter{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
