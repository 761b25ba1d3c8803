package eventlogservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	eventlogdb "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/infrastructure/repositories"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const testChannel = sharedtypes.ChannelID("1000")

func int64Ptr(v int64) *int64 { return &v }

func newTestService(repo *FakeEventRepo, clock clockwork.Clock) *EventLogService {
	return NewEventLogService(repo, slog.Default(), operationmetrics.NewNoop(), nil, nil, clock)
}

func TestAppend(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		event     eventlogtypes.Event
		setupRepo func(*FakeEventRepo)
		wantErr   error
		wantTrace []string
		check     func(t *testing.T, row *eventlogdb.Event)
	}{
		{
			name: "stores kind and encoded payload",
			event: eventlogtypes.Event{
				GuildID:   "1",
				ChannelID: testChannel,
				UserID:    "42",
				OldNumber: int64Ptr(4),
				NewNumber: int64Ptr(5),
				Payload:   eventlogtypes.CountAccepted{Number: 5, IsNewRecord: true},
			},
			wantTrace: []string{"Insert"},
			check: func(t *testing.T, row *eventlogdb.Event) {
				assert.Equal(t, "count_accepted", row.Kind)
				assert.NotEqual(t, uuid.Nil, row.ID)
				assert.Equal(t, now, row.CreatedAt)
				assert.Equal(t, sharedtypes.UserID("42"), row.UserID)

				var decoded eventlogtypes.CountAccepted
				require.NoError(t, json.Unmarshal(row.Details, &decoded))
				assert.Equal(t, int64(5), decoded.Number)
				assert.True(t, decoded.IsNewRecord)
			},
		},
		{
			name: "keeps caller supplied id and timestamp",
			event: eventlogtypes.Event{
				ID:        uuid.MustParse("11111111-1111-1111-1111-111111111111"),
				ChannelID: testChannel,
				CreatedAt: now.Add(-time.Hour),
				Payload:   eventlogtypes.ChannelDisabled{},
			},
			wantTrace: []string{"Insert"},
			check: func(t *testing.T, row *eventlogdb.Event) {
				assert.Equal(t, "11111111-1111-1111-1111-111111111111", row.ID.String())
				assert.Equal(t, now.Add(-time.Hour), row.CreatedAt)
			},
		},
		{
			name:      "rejects event without payload",
			event:     eventlogtypes.Event{ChannelID: testChannel},
			wantErr:   ErrMissingPayload,
			wantTrace: []string{},
		},
		{
			name: "propagates insert failure",
			event: eventlogtypes.Event{
				ChannelID: testChannel,
				Payload:   eventlogtypes.WrongNumber{Expected: 3, Actual: 4, WrongCount: 1},
			},
			setupRepo: func(f *FakeEventRepo) {
				f.InsertFunc = func(ctx context.Context, db bun.IDB, event *eventlogdb.Event) error {
					return errors.New("insert failed")
				}
			},
			wantErr:   errors.New("insert failed"),
			wantTrace: []string{"Insert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeEventRepo()
			var stored *eventlogdb.Event
			repo.InsertFunc = func(ctx context.Context, db bun.IDB, event *eventlogdb.Event) error {
				stored = event
				return nil
			}
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}

			svc := newTestService(repo, clockwork.NewFakeClockAt(now))
			err := svc.Append(context.Background(), nil, tt.event)

			assert.Equal(t, tt.wantTrace, repo.Trace())
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			require.NotNil(t, stored)
			tt.check(t, stored)
		})
	}
}

func TestList(t *testing.T) {
	created := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	repo := NewFakeEventRepo()
	var gotFilter eventlogdb.ListFilter
	repo.ListFunc = func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, filter eventlogdb.ListFilter) ([]eventlogdb.Event, error) {
		gotFilter = filter
		return []eventlogdb.Event{
			{
				ID:        uuid.New(),
				ChannelID: channelID,
				Kind:      "wrong_number",
				UserID:    "7",
				Details:   json.RawMessage(`{"expected":3,"actual":9,"wrong_count":2}`),
				CreatedAt: created,
			},
			{
				ID:        uuid.New(),
				ChannelID: channelID,
				Kind:      "no_longer_exists",
				Details:   json.RawMessage(`{}`),
				CreatedAt: created,
			},
		}, nil
	}

	svc := newTestService(repo, clockwork.NewFakeClock())
	events, err := svc.List(context.Background(), testChannel, eventlogtypes.Filter{
		Kinds: []eventlogtypes.Kind{eventlogtypes.KindWrongNumber},
		Limit: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"wrong_number"}, gotFilter.Kinds)
	assert.Equal(t, 10, gotFilter.Limit)
	require.Len(t, events, 1, "undecodable rows are skipped")

	payload, ok := events[0].Payload.(*eventlogtypes.WrongNumber)
	require.True(t, ok)
	assert.Equal(t, int64(9), payload.Actual)
	assert.Equal(t, 2, payload.WrongCount)
	assert.Equal(t, eventlogtypes.KindWrongNumber, events[0].Kind())
}

func TestCountByKind(t *testing.T) {
	repo := NewFakeEventRepo()
	repo.CountByKindFunc = func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time) ([]eventlogdb.KindCount, error) {
		return []eventlogdb.KindCount{{Kind: "wrong_number", Count: 4}}, nil
	}

	svc := newTestService(repo, clockwork.NewFakeClock())
	counts, err := svc.CountByKind(context.Background(), testChannel, eventlogtypes.ViolationKinds, nil)

	require.NoError(t, err)
	assert.Equal(t, map[eventlogtypes.Kind]int64{
		eventlogtypes.KindWrongNumber:        4,
		eventlogtypes.KindNonNumberViolation: 0,
		eventlogtypes.KindEditViolation:      0,
	}, counts)
}

func TestTopViolators(t *testing.T) {
	tests := []struct {
		name      string
		setupRepo func(*FakeEventRepo)
		want      []moderationtypes.ViolatorCount
		wantErr   bool
	}{
		{
			name: "maps ranked rows",
			setupRepo: func(f *FakeEventRepo) {
				f.TopUsersFunc = func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time, limit int) ([]eventlogdb.UserCount, error) {
					assert.ElementsMatch(t, []string{"wrong_number", "non_number_violation", "edit_violation"}, kinds)
					assert.Equal(t, 5, limit)
					return []eventlogdb.UserCount{{UserID: "1", Count: 3}, {UserID: "2", Count: 1}}, nil
				}
			},
			want: []moderationtypes.ViolatorCount{{UserID: "1", Count: 3}, {UserID: "2", Count: 1}},
		},
		{
			name: "repository error",
			setupRepo: func(f *FakeEventRepo) {
				f.TopUsersFunc = func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time, limit int) ([]eventlogdb.UserCount, error) {
					return nil, errors.New("boom")
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeEventRepo()
			tt.setupRepo(repo)
			svc := newTestService(repo, clockwork.NewFakeClock())

			got, err := svc.TopViolators(context.Background(), testChannel, nil, 5)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPurgeChannel(t *testing.T) {
	repo := NewFakeEventRepo()
	repo.DeleteByChannelFunc = func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (int64, error) {
		assert.Equal(t, testChannel, channelID)
		return 12, nil
	}

	svc := newTestService(repo, clockwork.NewFakeClock())
	require.NoError(t, svc.PurgeChannel(context.Background(), nil, testChannel))
	assert.Equal(t, []string{"DeleteByChannel"}, repo.Trace())
}
