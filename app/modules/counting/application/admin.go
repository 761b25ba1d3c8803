package countingservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	countingdb "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/results"
	"github.com/uptrace/bun"
)

func (s *CountingService) adminEvent(guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, oldNumber, newNumber *int64, payload eventlogtypes.Payload) eventlogtypes.Event {
	return eventlogtypes.Event{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		OldNumber: oldNumber,
		NewNumber: newNumber,
		CreatedAt: s.clock.Now().UTC(),
		Payload:   payload,
	}
}

// activeState loads the channel inside a transaction, failing with
// ErrNotSetup when it is missing or disabled.
func (s *CountingService) activeState(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*countingdb.CountingChannel, error) {
	row, err := s.repo.GetForUpdate(ctx, db, channelID)
	if err != nil {
		if errors.Is(err, countingdb.ErrNotFound) {
			return nil, ErrNotSetup
		}
		return nil, err
	}
	if !row.IsActive {
		return nil, ErrNotSetup
	}
	return row, nil
}

// SetupChannel starts counting in a channel, or re-arms it from StartNumber.
func (s *CountingService) SetupChannel(ctx context.Context, req countingtypes.SetupRequest) (*countingtypes.ChannelState, error) {
	if req.Increment == 0 {
		req.Increment = 1
	}
	if req.GuildID == "" || req.ChannelID == "" {
		return nil, errors.New("setup requires guild and channel")
	}

	setupTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		start := req.StartNumber - req.Increment
		row := &countingdb.CountingChannel{
			ChannelID:     req.ChannelID,
			GuildID:       req.GuildID,
			CurrentNumber: start,
			Increment:     req.Increment,
			StartNumber:   req.StartNumber,
			HighestNumber: start,
		}
		if err := s.repo.Setup(ctx, db, row); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		if err := s.settings.EnsureChannel(ctx, db, req.GuildID, req.ChannelID); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		ev := s.adminEvent(req.GuildID, req.ChannelID, req.RequestedBy, nil, &start,
			eventlogtypes.ChannelSetup{StartNumber: req.StartNumber, Increment: req.Increment})
		if err := s.events.Append(ctx, db, ev); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	return inLane(s, ctx, req.ChannelID, func(ctx context.Context) (*countingtypes.ChannelState, error) {
		_, err := withTelemetry(s, ctx, "SetupChannel", string(req.ChannelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
			return runInTx(s, ctx, setupTx)
		})
		if err != nil {
			return nil, err
		}
		s.invalidateState(ctx, req.ChannelID)
		if err := s.settings.InvalidateChannel(ctx, req.ChannelID); err != nil {
			s.logger.WarnContext(ctx, "Failed to invalidate channel settings", attr.Error(err))
		}
		s.clearFailuresFor(ctx, req.ChannelID)
		s.logger.InfoContext(ctx, "Counting channel set up",
			attr.GuildID("guild_id", req.GuildID),
			attr.ChannelID("channel_id", req.ChannelID),
			attr.Int64("start_number", req.StartNumber),
			attr.Int64("increment", req.Increment),
		)
		return s.freshState(ctx, req.ChannelID)
	})
}

// ResetChannel moves the channel back so the next count is StartNumber.
func (s *CountingService) ResetChannel(ctx context.Context, channelID sharedtypes.ChannelID, requestedBy sharedtypes.UserID) (*countingtypes.ChannelState, error) {
	resetTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		row, err := s.activeState(ctx, db, channelID)
		if err != nil {
			if errors.Is(err, ErrNotSetup) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		old := row.CurrentNumber
		resetTo := row.StartNumber - row.Increment
		if err := s.repo.SetCurrentNumber(ctx, db, channelID, resetTo); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		ev := s.adminEvent(row.GuildID, channelID, requestedBy, &old, &resetTo,
			eventlogtypes.ChannelReset{Reason: eventlogtypes.ResetManual, ResetTo: resetTo})
		if err := s.events.Append(ctx, db, ev); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	return s.moveChannel(ctx, "ResetChannel", channelID, resetTx)
}

// CreateSavePoint records the channel's current number under name. An
// existing save point with the same name is overwritten.
func (s *CountingService) CreateSavePoint(ctx context.Context, channelID sharedtypes.ChannelID, name string, createdBy sharedtypes.UserID) (*countingtypes.SavePoint, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxSaveNameLength {
		return nil, fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidSaveName, MaxSaveNameLength)
	}

	saveTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[countingtypes.SavePoint, error], error) {
		row, err := s.activeState(ctx, db, channelID)
		if err != nil {
			if errors.Is(err, ErrNotSetup) {
				return results.FailureResult[countingtypes.SavePoint, error](err), nil
			}
			return results.OperationResult[countingtypes.SavePoint, error]{}, err
		}
		save := &countingdb.SavePoint{
			ChannelID: channelID,
			Name:      name,
			Number:    row.CurrentNumber,
			CreatedBy: createdBy,
			CreatedAt: s.clock.Now().UTC(),
		}
		if err := s.repo.UpsertSavePoint(ctx, db, save); err != nil {
			return results.OperationResult[countingtypes.SavePoint, error]{}, err
		}
		number := row.CurrentNumber
		ev := s.adminEvent(row.GuildID, channelID, createdBy, nil, &number,
			eventlogtypes.SaveCreated{Name: name, Number: number})
		if err := s.events.Append(ctx, db, ev); err != nil {
			return results.OperationResult[countingtypes.SavePoint, error]{}, err
		}
		return results.SuccessResult[countingtypes.SavePoint, error](savePointFromRow(*save)), nil
	}

	return inLane(s, ctx, channelID, func(ctx context.Context) (*countingtypes.SavePoint, error) {
		result, err := withTelemetry(s, ctx, "CreateSavePoint", string(channelID), func(ctx context.Context) (results.OperationResult[countingtypes.SavePoint, error], error) {
			return runInTx(s, ctx, saveTx)
		})
		if err != nil {
			return nil, err
		}
		if result.IsFailure() {
			return nil, *result.Failure
		}
		return result.Success, nil
	})
}

// RestoreFromSave moves the channel to a saved number. The same user may
// continue from it.
func (s *CountingService) RestoreFromSave(ctx context.Context, channelID sharedtypes.ChannelID, name string, requestedBy sharedtypes.UserID) (*countingtypes.ChannelState, error) {
	name = strings.TrimSpace(name)

	restoreTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		row, err := s.activeState(ctx, db, channelID)
		if err != nil {
			if errors.Is(err, ErrNotSetup) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		save, err := s.repo.GetSavePoint(ctx, db, channelID, name)
		if err != nil {
			if errors.Is(err, countingdb.ErrNotFound) {
				return results.FailureResult[bool, error](ErrSavePointNotFound), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		old := row.CurrentNumber
		number := save.Number
		if err := s.repo.SetCurrentNumber(ctx, db, channelID, number); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		ev := s.adminEvent(row.GuildID, channelID, requestedBy, &old, &number,
			eventlogtypes.SaveRestored{Name: save.Name, Number: number})
		if err := s.events.Append(ctx, db, ev); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	return s.moveChannel(ctx, "RestoreFromSave", channelID, restoreTx)
}

// moveChannel runs a transaction that rewrites the current number and
// returns the state it leaves behind.
func (s *CountingService) moveChannel(ctx context.Context, operationName string, channelID sharedtypes.ChannelID, fn func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error)) (*countingtypes.ChannelState, error) {
	return inLane(s, ctx, channelID, func(ctx context.Context) (*countingtypes.ChannelState, error) {
		result, err := withTelemetry(s, ctx, operationName, string(channelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
			return runInTx(s, ctx, fn)
		})
		if err != nil {
			return nil, err
		}
		if result.IsFailure() {
			return nil, *result.Failure
		}
		s.invalidateState(ctx, channelID)
		s.clearFailuresFor(ctx, channelID)
		return s.freshState(ctx, channelID)
	})
}

// ListSavePoints returns the channel's save points, newest first.
func (s *CountingService) ListSavePoints(ctx context.Context, channelID sharedtypes.ChannelID) ([]countingtypes.SavePoint, error) {
	rows, err := s.repo.ListSavePoints(ctx, s.idb(), channelID)
	if err != nil {
		return nil, err
	}
	out := make([]countingtypes.SavePoint, len(rows))
	for i, r := range rows {
		out[i] = savePointFromRow(r)
	}
	return out, nil
}

// DisableChannel stops counting but keeps every record.
func (s *CountingService) DisableChannel(ctx context.Context, channelID sharedtypes.ChannelID, requestedBy sharedtypes.UserID) error {
	disableTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		row, err := s.activeState(ctx, db, channelID)
		if err != nil {
			if errors.Is(err, ErrNotSetup) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		if err := s.repo.Deactivate(ctx, db, channelID); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		current := row.CurrentNumber
		ev := s.adminEvent(row.GuildID, channelID, requestedBy, &current, nil, eventlogtypes.ChannelDisabled{})
		if err := s.events.Append(ctx, db, ev); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	_, err := inLane(s, ctx, channelID, func(ctx context.Context) (bool, error) {
		result, err := withTelemetry(s, ctx, "DisableChannel", string(channelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
			return runInTx(s, ctx, disableTx)
		})
		if err != nil {
			return false, err
		}
		if result.IsFailure() {
			return false, *result.Failure
		}
		s.invalidateState(ctx, channelID)
		return true, nil
	})
	return err
}

// PurgeChannel deletes everything stored for the channel in one
// transaction.
func (s *CountingService) PurgeChannel(ctx context.Context, channelID sharedtypes.ChannelID) error {
	_, err := inLane(s, ctx, channelID, func(ctx context.Context) (bool, error) {
		// Stats users are gathered first so their cached entries can be
		// dropped once the rows are gone.
		entries, err := s.stats.Leaderboard(ctx, channelID, statstypes.MetricContributions, 0)
		if err != nil {
			return false, fmt.Errorf("failed to list channel users: %w", err)
		}

		var bannedUsers []sharedtypes.UserID
		purgeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			if err := s.repo.Delete(ctx, db, channelID); err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			if err := s.stats.PurgeChannel(ctx, db, channelID); err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			users, err := s.moderation.PurgeChannel(ctx, db, channelID)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			bannedUsers = users
			if err := s.events.PurgeChannel(ctx, db, channelID); err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			if err := s.settings.DeleteChannel(ctx, db, channelID); err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			return results.SuccessResult[bool, error](true), nil
		}

		if _, err := withTelemetry(s, ctx, "PurgeChannel", string(channelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
			return runInTx(s, ctx, purgeTx)
		}); err != nil {
			return false, err
		}

		s.invalidateState(ctx, channelID)
		for _, e := range entries {
			if err := s.stats.Invalidate(ctx, channelID, e.UserID); err != nil {
				s.logger.WarnContext(ctx, "Failed to invalidate user stats", attr.Error(err))
			}
		}
		if err := s.moderation.InvalidateBans(ctx, channelID, bannedUsers...); err != nil {
			s.logger.WarnContext(ctx, "Failed to invalidate bans", attr.Error(err))
		}
		if err := s.settings.InvalidateChannel(ctx, channelID); err != nil {
			s.logger.WarnContext(ctx, "Failed to invalidate channel settings", attr.Error(err))
		}
		s.clearFailuresFor(ctx, channelID)
		s.logger.InfoContext(ctx, "Counting channel purged", attr.ChannelID("channel_id", channelID))
		return true, nil
	})
	return err
}

// GetChannelState returns the channel's progress, including disabled
// channels.
func (s *CountingService) GetChannelState(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelState, error) {
	return s.freshState(ctx, channelID)
}

// GetChannelStats combines channel progress with participation totals.
func (s *CountingService) GetChannelStats(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelStats, error) {
	state, err := s.freshState(ctx, channelID)
	if err != nil {
		return nil, err
	}
	summary, err := s.stats.Summary(ctx, channelID)
	if err != nil {
		return nil, err
	}
	saves, err := s.repo.ListSavePoints(ctx, s.idb(), channelID)
	if err != nil {
		return nil, err
	}
	return &countingtypes.ChannelStats{
		State:            *state,
		Participants:     summary.Participants,
		TotalErrors:      summary.TotalErrors,
		TopContributor:   summary.TopContributor,
		TopContributions: summary.TopContributions,
		SavePoints:       len(saves),
	}, nil
}

func (s *CountingService) freshState(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelState, error) {
	state, err := s.states.Get(ctx, channelID)
	if err != nil {
		if errors.Is(err, countingdb.ErrNotFound) {
			return nil, ErrNotSetup
		}
		return nil, err
	}
	return &state, nil
}

func (s *CountingService) clearFailuresFor(ctx context.Context, channelID sharedtypes.ChannelID) {
	s.clearFailures(ctx, countingtypes.Submission{ChannelID: channelID})
}
