package statsqueue

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
)

type fakeSnapshotter struct {
	calls int
	n     int
	err   error
}

func (f *fakeSnapshotter) SnapshotAll(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

func TestSnapshotWorker_Work(t *testing.T) {
	tests := []struct {
		name    string
		svc     *fakeSnapshotter
		wantErr bool
	}{
		{name: "all channels snapshotted", svc: &fakeSnapshotter{n: 3}},
		{name: "partial failure fails the job", svc: &fakeSnapshotter{n: 1, err: errors.New("db down")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSnapshotWorker(tt.svc, slog.Default())
			err := w.Work(context.Background(), &river.Job[SnapshotLeaderboardsJob]{JobRow: &rivertype.JobRow{ID: 7}})
			assert.Equal(t, 1, tt.svc.calls)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSnapshotJobKind(t *testing.T) {
	assert.Equal(t, "stats_snapshot_leaderboards", SnapshotLeaderboardsJob{}.Kind())
	assert.NotNil(t, PeriodicSnapshotJob(0))
}
