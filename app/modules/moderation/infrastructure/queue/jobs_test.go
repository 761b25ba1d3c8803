package moderationqueue

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
)

type fakeLifter struct {
	got []moderationtypes.PunishmentRequest
	err error
}

func (f *fakeLifter) Lift(_ context.Context, req moderationtypes.PunishmentRequest) error {
	f.got = append(f.got, req)
	return f.err
}

func TestLiftPunishmentWorker_Work(t *testing.T) {
	req := moderationtypes.PunishmentRequest{GuildID: "1", UserID: "2", Action: moderationtypes.ActionMute}

	tests := []struct {
		name    string
		lifter  *fakeLifter
		wantErr bool
	}{
		{name: "lifted", lifter: &fakeLifter{}},
		{name: "collaborator failure is retried", lifter: &fakeLifter{err: errors.New("missing permissions")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewLiftPunishmentWorker(tt.lifter, slog.Default())
			err := w.Work(context.Background(), &river.Job[LiftPunishmentJob]{
				JobRow: &rivertype.JobRow{ID: 3},
				Args:   LiftPunishmentJob{AppliedID: 9, Request: req},
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []moderationtypes.PunishmentRequest{req}, tt.lifter.got)
		})
	}
}

func TestNeedsLift(t *testing.T) {
	assert.True(t, NeedsLift(moderationtypes.ActionMute))
	assert.True(t, NeedsLift(moderationtypes.ActionAddRole))
	assert.False(t, NeedsLift(moderationtypes.ActionTimeout))
	assert.False(t, NeedsLift(moderationtypes.ActionKick))
}
