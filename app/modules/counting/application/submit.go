package countingservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/counting-bot/app/modules/counting/application/parsers"
	countingdb "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/results"
	"github.com/uptrace/bun"
)

// admission is what Submit learns before the message is evaluated as a
// count.
type admission struct {
	state   countingtypes.ChannelState
	cfg     settingstypes.EffectiveConfig
	outcome countingtypes.Outcome
}

// admit applies the rules that hold for every message in a counting channel:
// the channel must be active, its configuration must resolve, and the member
// must be neither exempt nor banned. A non-empty outcome stops processing.
func (s *CountingService) admit(ctx context.Context, sub countingtypes.Submission) (admission, error) {
	state, err := s.states.Load(ctx, sub.ChannelID)
	if err != nil {
		if errors.Is(err, countingdb.ErrNotFound) {
			return admission{outcome: countingtypes.OutcomeNotSetup}, nil
		}
		return admission{}, fmt.Errorf("failed to load channel state: %w", err)
	}
	if !state.IsActive {
		return admission{outcome: countingtypes.OutcomeNotSetup}, nil
	}

	cfg, err := s.settings.GetEffectiveConfig(ctx, sub.ChannelID)
	if err != nil {
		return admission{}, fmt.Errorf("failed to resolve channel config: %w", err)
	}

	if s.moderation.ShouldIgnore(sub.MemberRoles, cfg.Moderation) {
		return admission{state: state, cfg: cfg, outcome: countingtypes.OutcomeIgnored}, nil
	}
	banned, err := s.moderation.IsBanned(ctx, sub.ChannelID, sub.UserID)
	if err != nil {
		return admission{}, fmt.Errorf("failed to check ban: %w", err)
	}
	if banned {
		return admission{state: state, cfg: cfg, outcome: countingtypes.OutcomeBanned}, nil
	}
	return admission{state: state, cfg: cfg}, nil
}

// Submit evaluates one message against its channel's state machine.
func (s *CountingService) Submit(ctx context.Context, sub countingtypes.Submission) (countingtypes.Result, error) {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.clock.Now()
	}
	return inLane(s, ctx, sub.ChannelID, func(ctx context.Context) (countingtypes.Result, error) {
		result, err := withTelemetry(s, ctx, "Submit", string(sub.ChannelID), func(ctx context.Context) (results.OperationResult[countingtypes.Result, error], error) {
			res, err := s.evaluate(ctx, sub)
			if err != nil {
				return results.OperationResult[countingtypes.Result, error]{}, err
			}
			return results.SuccessResult[countingtypes.Result, error](res), nil
		})
		if err != nil {
			return countingtypes.Result{}, err
		}
		s.metrics.RecordSubmission(ctx, string(result.Success.Outcome))
		return *result.Success, nil
	})
}

// evaluate judges sub, starting over when the channel moved between the
// read and a recorded rejection.
func (s *CountingService) evaluate(ctx context.Context, sub countingtypes.Submission) (countingtypes.Result, error) {
	for attempt := 1; ; attempt++ {
		res, err := s.evaluateOnce(ctx, sub)
		if errors.Is(err, errStateMoved) && attempt < maxEvaluateAttempts {
			s.logger.WarnContext(ctx, "Channel moved before rejection was recorded, judging again",
				attr.ChannelID("channel_id", sub.ChannelID),
				attr.Int("attempt", attempt),
			)
			continue
		}
		return res, err
	}
}

func (s *CountingService) evaluateOnce(ctx context.Context, sub countingtypes.Submission) (countingtypes.Result, error) {
	adm, err := s.admit(ctx, sub)
	if err != nil {
		return countingtypes.Result{}, err
	}
	if adm.outcome != "" {
		return countingtypes.Result{Outcome: adm.outcome}, nil
	}

	state, cfg := adm.state, adm.cfg
	cc := cfg.Counting

	if !parsers.LooksNumeric(sub.Content, cc.Notation, cc.Base) {
		if _, err := s.moderation.HandleNonNumber(ctx, messageOf(sub), cfg.Moderation); err != nil {
			return countingtypes.Result{}, err
		}
		return countingtypes.Result{Outcome: countingtypes.OutcomeNonNumber}, nil
	}

	expected := state.Expected()
	if s.onCooldown(ctx, sub, cc) {
		return countingtypes.Result{Outcome: countingtypes.OutcomeCooldown, Expected: &expected}, nil
	}
	if !cc.AllowRepeatUser && state.LastContributorID != "" && state.LastContributorID == sub.UserID {
		return countingtypes.Result{Outcome: countingtypes.OutcomeSameUserRepeat, Expected: &expected}, nil
	}

	value, ok := parsers.Parse(sub.Content, cc.Notation, cc.Base)
	if !ok {
		return countingtypes.Result{Outcome: countingtypes.OutcomeInvalidFormat, Expected: &expected}, nil
	}
	if value != expected {
		return s.wrongNumber(ctx, sub, state, cfg, value)
	}
	if cc.MaxNumber > 0 && value > cc.MaxNumber {
		return s.maxReached(ctx, sub, state, cfg, value)
	}
	return s.accept(ctx, sub, state, cfg, value)
}

func (s *CountingService) onCooldown(ctx context.Context, sub countingtypes.Submission, cc settingstypes.CountingConfig) bool {
	if cc.CooldownSeconds <= 0 || s.store == nil {
		return false
	}
	exists, err := s.store.Exists(ctx, cooldownKey(sub.ChannelID, sub.UserID))
	if err != nil {
		s.logger.WarnContext(ctx, "Cooldown lookup failed, allowing submission",
			attr.ChannelID("channel_id", sub.ChannelID),
			attr.UserID("user_id", sub.UserID),
			attr.Error(err),
		)
		return false
	}
	return exists
}

// accept advances the channel. A conditional-write conflict means another
// writer moved the channel; the submission is then judged against the
// fresh state.
func (s *CountingService) accept(ctx context.Context, sub countingtypes.Submission, state countingtypes.ChannelState, cfg settingstypes.EffectiveConfig, value int64) (countingtypes.Result, error) {
	cc := cfg.Counting
	isRecord := value > state.HighestNumber
	milestone := cc.IsMilestone(value)
	prev := state.CurrentNumber

	_, err := runInTx(s, ctx, func(ctx context.Context, tx bun.IDB) (results.OperationResult[bool, error], error) {
		if err := s.repo.Advance(ctx, tx, countingdb.AdvanceParams{
			ChannelID: sub.ChannelID,
			Prev:      prev,
			Next:      value,
			UserID:    sub.UserID,
			MessageID: sub.MessageID,
			At:        sub.SubmittedAt.UTC(),
		}); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		if err := s.stats.OnSuccess(ctx, tx, sub.GuildID, sub.ChannelID, sub.UserID, state.Increment, sub.SubmittedAt); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		if err := s.events.Append(ctx, tx, s.event(sub, &prev, &value, eventlogtypes.CountAccepted{Number: value, IsNewRecord: isRecord})); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		if milestone {
			if err := s.events.Append(ctx, tx, s.event(sub, nil, &value, eventlogtypes.MilestoneReached{Milestone: value})); err != nil {
				return results.OperationResult[bool, error]{}, err
			}
		}
		return results.SuccessResult[bool, error](true), nil
	})
	if errors.Is(err, countingdb.ErrConflict) {
		s.invalidateState(ctx, sub.ChannelID)
		fresh, ferr := s.states.Load(ctx, sub.ChannelID)
		if ferr != nil {
			if errors.Is(ferr, countingdb.ErrNotFound) {
				return countingtypes.Result{Outcome: countingtypes.OutcomeNotSetup}, nil
			}
			return countingtypes.Result{}, ferr
		}
		if !fresh.IsActive {
			return countingtypes.Result{Outcome: countingtypes.OutcomeNotSetup}, nil
		}
		s.logger.WarnContext(ctx, "Channel moved under submission, judging against fresh state",
			attr.ChannelID("channel_id", sub.ChannelID),
			attr.Int64("stale_current", prev),
			attr.Int64("fresh_current", fresh.CurrentNumber),
		)
		return s.wrongNumber(ctx, sub, fresh, cfg, value)
	}
	if err != nil {
		return countingtypes.Result{}, err
	}

	s.invalidateState(ctx, sub.ChannelID)
	if err := s.stats.Invalidate(ctx, sub.ChannelID, sub.UserID); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate user stats", attr.Error(err))
	}
	s.armCooldown(ctx, sub, cc)
	s.clearFailures(ctx, sub)

	s.react(ctx, sub.ChannelID, sub.MessageID, cc.SuccessReaction)
	vars := templateVars{User: sub.UserID, Number: value, Expected: value + state.Increment, Milestone: value, Max: cc.MaxNumber}
	s.send(ctx, sub.ChannelID, s.render(cc.Templates.Success, vars))

	res := countingtypes.Result{
		Outcome:     countingtypes.OutcomeAccepted,
		Expected:    &value,
		Actual:      &value,
		IsNewRecord: isRecord,
	}
	if milestone {
		res.Milestone = &value
		s.metrics.RecordMilestone(ctx)
		text := s.render(cc.Templates.Milestone, vars)
		s.send(ctx, sub.ChannelID, text)
		if cc.NotificationChannelID != "" && cc.NotificationChannelID != sub.ChannelID {
			s.send(ctx, cc.NotificationChannelID, text)
		}
	}
	return res, nil
}

// wrongNumber records the violation, optionally resets the channel and then
// hands the user's window count to moderation. The channel's number is left
// alone unless ResetOnError is set.
func (s *CountingService) wrongNumber(ctx context.Context, sub countingtypes.Submission, state countingtypes.ChannelState, cfg settingstypes.EffectiveConfig, value int64) (countingtypes.Result, error) {
	cc := cfg.Counting
	expected := state.Expected()
	current := state.CurrentNumber
	resetTo := state.ResetValue()

	result, err := runInTx(s, ctx, func(ctx context.Context, tx bun.IDB) (results.OperationResult[int, error], error) {
		row, err := s.repo.GetForUpdate(ctx, tx, sub.ChannelID)
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		if !row.IsActive || row.CurrentNumber != current {
			return results.OperationResult[int, error]{}, errStateMoved
		}
		count, err := s.moderation.TrackWrongCount(ctx, tx, sub.ChannelID, sub.UserID, cfg.Moderation.WindowHours)
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		if err := s.stats.OnError(ctx, tx, sub.GuildID, sub.ChannelID, sub.UserID); err != nil {
			return results.OperationResult[int, error]{}, err
		}
		wrong := eventlogtypes.WrongNumber{Expected: expected, Actual: value, WrongCount: count}
		if err := s.events.Append(ctx, tx, s.event(sub, &current, &value, wrong)); err != nil {
			return results.OperationResult[int, error]{}, err
		}
		if cc.ResetOnError {
			if err := s.repo.SetCurrentNumber(ctx, tx, sub.ChannelID, resetTo); err != nil {
				return results.OperationResult[int, error]{}, err
			}
			reset := eventlogtypes.ChannelReset{Reason: eventlogtypes.ResetError, ResetTo: resetTo}
			if err := s.events.Append(ctx, tx, s.event(sub, &current, &resetTo, reset)); err != nil {
				return results.OperationResult[int, error]{}, err
			}
		}
		return results.SuccessResult[int, error](count), nil
	})
	if err != nil {
		return countingtypes.Result{}, err
	}
	count := *result.Success

	if cc.ResetOnError {
		s.invalidateState(ctx, sub.ChannelID)
	}
	if err := s.stats.Invalidate(ctx, sub.ChannelID, sub.UserID); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate user stats", attr.Error(err))
	}

	s.react(ctx, sub.ChannelID, sub.MessageID, cc.ErrorReaction)
	s.send(ctx, sub.ChannelID, s.render(cc.Templates.Error, templateVars{User: sub.UserID, Number: value, Expected: expected}))
	if cc.DeleteWrong {
		s.scheduleDelete(ctx, sub.ChannelID, sub.MessageID)
	}
	s.countFailure(ctx, sub, cc)

	if _, err := s.moderation.Escalate(ctx, sub.GuildID, sub.ChannelID, sub.UserID, count, cfg.Moderation); err != nil {
		s.logger.ErrorContext(ctx, "Escalation failed after wrong number",
			attr.ChannelID("channel_id", sub.ChannelID),
			attr.UserID("user_id", sub.UserID),
			attr.Int("wrong_count", count),
			attr.Error(err),
		)
	}

	return countingtypes.Result{
		Outcome:      countingtypes.OutcomeWrongNumber,
		Expected:     &expected,
		Actual:       &value,
		WrongCount:   count,
		ChannelReset: cc.ResetOnError,
	}, nil
}

// maxReached logs the attempt and tells moderators. The channel does not
// advance.
func (s *CountingService) maxReached(ctx context.Context, sub countingtypes.Submission, state countingtypes.ChannelState, cfg settingstypes.EffectiveConfig, value int64) (countingtypes.Result, error) {
	cc := cfg.Counting
	expected := state.Expected()
	current := state.CurrentNumber

	if err := s.events.Append(ctx, s.idb(), s.event(sub, &current, &value, eventlogtypes.MaxReached{Max: cc.MaxNumber, Attempted: value})); err != nil {
		return countingtypes.Result{}, err
	}

	target := cc.NotificationChannelID
	if target == "" {
		target = sub.ChannelID
	}
	s.send(ctx, target, s.render(cc.Templates.MaxReached, templateVars{User: sub.UserID, Number: value, Max: cc.MaxNumber}))

	return countingtypes.Result{
		Outcome:  countingtypes.OutcomeMaxReached,
		Expected: &expected,
		Actual:   &value,
	}, nil
}

func (s *CountingService) armCooldown(ctx context.Context, sub countingtypes.Submission, cc settingstypes.CountingConfig) {
	if cc.CooldownSeconds <= 0 || s.store == nil {
		return
	}
	ttl := time.Duration(cc.CooldownSeconds) * time.Second
	if err := s.store.Set(ctx, cooldownKey(sub.ChannelID, sub.UserID), []byte("1"), ttl); err != nil {
		s.logger.WarnContext(ctx, "Failed to arm cooldown",
			attr.ChannelID("channel_id", sub.ChannelID),
			attr.UserID("user_id", sub.UserID),
			attr.Error(err),
		)
	}
}

// countFailure bumps the channel's consecutive-failure counter and notifies
// once when it reaches the configured threshold.
func (s *CountingService) countFailure(ctx context.Context, sub countingtypes.Submission, cc settingstypes.CountingConfig) {
	if cc.FailureThreshold <= 0 || s.store == nil {
		return
	}
	n, err := s.store.Incr(ctx, failuresKey(sub.ChannelID), 0)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to count channel failure", attr.Error(err))
		return
	}
	if n != int64(cc.FailureThreshold) {
		return
	}
	target := cc.NotificationChannelID
	if target == "" {
		target = sub.ChannelID
	}
	s.send(ctx, target, s.render(cc.Templates.Failure, templateVars{User: sub.UserID, Failures: n}))
}

func (s *CountingService) clearFailures(ctx context.Context, sub countingtypes.Submission) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, failuresKey(sub.ChannelID)); err != nil {
		s.logger.WarnContext(ctx, "Failed to clear failure counter", attr.Error(err))
	}
}

// SubmitNonNumber handles ordinary chat in a counting channel.
func (s *CountingService) SubmitNonNumber(ctx context.Context, sub countingtypes.Submission) (moderationtypes.ViolationOutcome, error) {
	return inLane(s, ctx, sub.ChannelID, func(ctx context.Context) (moderationtypes.ViolationOutcome, error) {
		adm, err := s.admit(ctx, sub)
		if err != nil || adm.outcome != "" {
			return moderationtypes.ViolationOutcome{}, err
		}
		return s.moderation.HandleNonNumber(ctx, messageOf(sub), adm.cfg.Moderation)
	})
}

// SubmitEdit handles an edited message in a counting channel.
func (s *CountingService) SubmitEdit(ctx context.Context, sub countingtypes.Submission) (moderationtypes.ViolationOutcome, error) {
	return inLane(s, ctx, sub.ChannelID, func(ctx context.Context) (moderationtypes.ViolationOutcome, error) {
		adm, err := s.admit(ctx, sub)
		if err != nil || adm.outcome != "" {
			return moderationtypes.ViolationOutcome{}, err
		}
		return s.moderation.HandleEdit(ctx, messageOf(sub), adm.cfg.Moderation, adm.state.CurrentNumber)
	})
}

func (s *CountingService) event(sub countingtypes.Submission, oldNumber, newNumber *int64, payload eventlogtypes.Payload) eventlogtypes.Event {
	return eventlogtypes.Event{
		GuildID:   sub.GuildID,
		ChannelID: sub.ChannelID,
		UserID:    sub.UserID,
		MessageID: sub.MessageID,
		OldNumber: oldNumber,
		NewNumber: newNumber,
		CreatedAt: sub.SubmittedAt.UTC(),
		Payload:   payload,
	}
}

func messageOf(sub countingtypes.Submission) moderationtypes.Message {
	return moderationtypes.Message{
		GuildID:   sub.GuildID,
		ChannelID: sub.ChannelID,
		UserID:    sub.UserID,
		MessageID: sub.MessageID,
	}
}
