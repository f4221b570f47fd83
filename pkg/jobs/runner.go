package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trigger requests one unit of work from the runner.
type Trigger struct {
	ID        string
	Reason    string
	Requested time.Time
}

// Handler executes one unit of work.
type Handler func(context.Context, Trigger)

// Runner executes triggers on a single goroutine. Its buffer holds at most one
// pending trigger: submissions arriving while work is running and one trigger
// is already queued are coalesced rather than stacked, so overlapping schedule
// ticks, remote signals, and manual requests collapse into a single run.
type Runner struct {
	name    string
	handler Handler
	logger  *zap.Logger

	triggers chan Trigger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

// NewRunner builds a runner with the provided handler.
func NewRunner(name string, handler Handler, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		name:     name,
		handler:  handler,
		logger:   logger,
		triggers: make(chan Trigger, 1),
	}
}

// Start begins consumption. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.worker()
	r.started = true
	r.logger.Sugar().Infow("runner started", "runner", r.name)
}

// Stop cancels the worker and waits for any in-flight trigger to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Sugar().Infow("runner stopped", "runner", r.name)
}

// TrySubmit queues a trigger without blocking. It reports false when the
// runner is not started or a trigger is already pending, in which case the
// request is coalesced into the pending run.
func (r *Runner) TrySubmit(reason string) bool {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return false
	}

	trig := Trigger{ID: uuid.NewString(), Reason: reason, Requested: time.Now().UTC()}
	select {
	case r.triggers <- trig:
		r.logger.Sugar().Infow("trigger accepted", "runner", r.name, "reason", reason, "trigger_id", trig.ID)
		return true
	default:
		r.logger.Sugar().Infow("trigger coalesced", "runner", r.name, "reason", reason)
		return false
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case trig := <-r.triggers:
			r.handler(r.ctx, trig)
		}
	}
}
