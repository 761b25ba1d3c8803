package countingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/jonboulle/clockwork"
)

// ErrLanesClosed is returned for work submitted after Close.
var ErrLanesClosed = errors.New("counting lanes closed")

// lane is one channel's single writer. Jobs are handed over on an
// unbuffered channel, so blocked senders are served in arrival order.
type lane struct {
	jobs    chan func()
	pending int
}

// lanes runs at most one job per channel at a time. A lane's goroutine exits
// after idle time with nothing pending.
type lanes struct {
	mu        sync.Mutex
	byChannel map[sharedtypes.ChannelID]*lane
	idle      time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	onCount   func(int)
	stop      chan struct{}
	closed    bool
}

func newLanes(idle time.Duration, clock clockwork.Clock, logger *slog.Logger, onCount func(int)) *lanes {
	if onCount == nil {
		onCount = func(int) {}
	}
	return &lanes{
		byChannel: make(map[sharedtypes.ChannelID]*lane),
		idle:      idle,
		clock:     clock,
		logger:    logger,
		onCount:   onCount,
		stop:      make(chan struct{}),
	}
}

// Do runs fn in the channel's lane and waits for it. Once fn has been handed
// to the lane it runs to completion even if ctx is cancelled.
func (l *lanes) Do(ctx context.Context, channelID sharedtypes.ChannelID, fn func()) error {
	ln, err := l.acquire(channelID)
	if err != nil {
		return err
	}
	defer l.release(ln)

	done := make(chan struct{})
	var panicErr error
	job := func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				panicErr = fmt.Errorf("panic in lane %s: %v", channelID, r)
			}
		}()
		fn()
	}

	select {
	case ln.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrLanesClosed
	}
	<-done
	return panicErr
}

func (l *lanes) acquire(channelID sharedtypes.ChannelID) (*lane, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLanesClosed
	}
	ln, ok := l.byChannel[channelID]
	if !ok {
		ln = &lane{jobs: make(chan func())}
		l.byChannel[channelID] = ln
		l.onCount(len(l.byChannel))
		go l.run(channelID, ln)
	}
	ln.pending++
	return ln, nil
}

func (l *lanes) release(ln *lane) {
	l.mu.Lock()
	ln.pending--
	l.mu.Unlock()
}

func (l *lanes) run(channelID sharedtypes.ChannelID, ln *lane) {
	for {
		timer := l.clock.NewTimer(l.idle)
		select {
		case job := <-ln.jobs:
			timer.Stop()
			job()
		case <-timer.Chan():
			if l.reap(channelID, ln) {
				return
			}
		case <-l.stop:
			timer.Stop()
			return
		}
	}
}

// reap removes an idle lane. A lane with a caller between acquire and
// release is kept.
func (l *lanes) reap(channelID sharedtypes.ChannelID, ln *lane) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ln.pending > 0 {
		return false
	}
	delete(l.byChannel, channelID)
	l.onCount(len(l.byChannel))
	l.logger.Debug("Reaped idle counting lane", attr.ChannelID("channel_id", channelID))
	return true
}

// Len is the number of live lanes.
func (l *lanes) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byChannel)
}

// Close stops every lane. Jobs already running finish.
func (l *lanes) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.stop)
}

// inLane runs fn in the channel's lane and returns its results.
func inLane[T any](s *CountingService, ctx context.Context, channelID sharedtypes.ChannelID, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if laneErr := s.lanes.Do(ctx, channelID, func() { out, err = fn(ctx) }); laneErr != nil {
		var zero T
		return zero, laneErr
	}
	return out, err
}
