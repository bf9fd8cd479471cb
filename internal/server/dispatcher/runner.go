package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"gopkg.in/tomb.v2"
)

var ErrRunnerStopped = errors.New("dispatcher runner stopped")

// Runner sweeps on a fixed interval until stopped. Sweeps never overlap:
// on-demand runs are executed by the same goroutine as scheduled ones.
type Runner struct {
	dispatcher *Dispatcher
	interval   time.Duration
	logger     logging.Logger
	now        func() time.Time

	t       tomb.Tomb
	started atomic.Bool
	runNow  chan chan Report
}

func NewRunner(d *Dispatcher, interval time.Duration, logger logging.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		dispatcher: d,
		interval:   interval,
		logger:     logger.With("module", "dispatcher"),
		now:        time.Now,
		runNow:     make(chan chan Report),
	}
}

// Start launches the sweep loop. The first sweep runs one interval after
// Start. Calling Start more than once has no effect.
func (r *Runner) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.t.Go(r.loop)
}

// Stop cancels any in-flight sweep and waits for the loop to exit.
func (r *Runner) Stop() error {
	r.t.Kill(nil)
	if !r.started.Load() {
		return nil
	}
	return r.t.Wait()
}

// RunNow asks the loop for an immediate sweep and waits for its report.
func (r *Runner) RunNow(ctx context.Context) (Report, error) {
	res := make(chan Report, 1)

	select {
	case r.runNow <- res:
	case <-r.t.Dying():
		return Report{}, ErrRunnerStopped
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}

	select {
	case rep := <-res:
		return rep, nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

func (r *Runner) loop() error {
	ctx := r.t.Context(context.Background())
	r.logger.Info(ctx, "dispatcher started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.t.Dying():
			r.logger.Info(context.Background(), "dispatcher stopped")
			return nil
		case <-ticker.C:
			r.dispatcher.Sweep(ctx, r.now())
		case res := <-r.runNow:
			res <- r.dispatcher.Sweep(ctx, r.now())
		}
	}
}
