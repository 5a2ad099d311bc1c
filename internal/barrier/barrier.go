// Package barrier implements the quiescence barrier: a convergence detector
// over the host's demand-driven module graph. The graph never announces
// that it is finished, so the barrier repeatedly probes it for undiscovered
// work and declares it settled when a probe round comes back empty or a
// watchdog decides the graph has stalled.
package barrier

import (
	"context"
	"sync"
	"time"

	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
)

// Probe drives one discovery round against the module graph. It returns the
// ids it forced toward resolution, or an empty slice if the graph exposed
// no pending work. A non-empty return means more discovery may follow.
type Probe interface {
	Probe(ctx context.Context) ([]string, error)
}

// Options configures a Barrier.
type Options struct {
	// Timeout bounds the total duration of a settle cycle. The watchdog
	// is armed once per cycle, so a graph that keeps surfacing new work
	// every round is still flushed when the timeout elapses.
	Timeout time.Duration

	// OnSettled runs exactly once per cycle, after the block set is
	// cleared and before waiters are released. The finalizer hangs here.
	OnSettled func(ctx context.Context)

	// PendingRequests surfaces the host's in-flight resolution ids for
	// the stall diagnostic. Optional.
	PendingRequests func() []string
}

// Barrier coordinates settle cycles. At most one cycle is in flight at a
// time; concurrent RequestSettle calls join it and share its outcome.
type Barrier struct {
	probe    Probe
	blocking *BlockSet
	opts     Options

	mu     sync.Mutex
	active *cycle
}

// cycle is one in-flight settle attempt. done is closed exactly once, by
// the driving goroutine, after the finalizer has run.
type cycle struct {
	done chan struct{}
}

// New creates a barrier over the given probe and block set.
func New(probe Probe, blocking *BlockSet, opts Options) *Barrier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Barrier{probe: probe, blocking: blocking, opts: opts}
}

// RequestSettle blocks until the shared fragment set is safe to finalize.
// A non-empty id registers the caller as blocking so probes never treat it
// as pending work. Callers cannot tell whether settlement came from true
// quiescence or from the watchdog; both release them identically.
func (b *Barrier) RequestSettle(ctx context.Context, id string) error {
	if id != "" {
		b.blocking.Add(id)
	}
	c := b.ensureCycle(ctx)

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger starts a settle cycle if none is active, or joins the current one,
// without waiting on the outcome. Resolution hooks use it: they must kick
// off discovery but are not allowed to suspend themselves.
func (b *Barrier) Trigger(ctx context.Context) {
	b.ensureCycle(ctx)
}

// ensureCycle returns the active cycle, starting one when needed.
func (b *Barrier) ensureCycle(ctx context.Context) *cycle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		c := &cycle{done: make(chan struct{})}
		b.active = c
		// The cycle outlives any single caller, so it must not inherit
		// the caller's cancellation.
		go b.drive(context.WithoutCancel(ctx), c)
	}
	return b.active
}

// drive runs the cycle's probe loop until the graph settles or the
// watchdog fires, then finalizes and releases every waiter.
func (b *Barrier) drive(ctx context.Context, c *cycle) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	// One watchdog bounds the whole cycle. Productive rounds do not
	// re-arm it, otherwise a graph that keeps surfacing a little new
	// work each round would hold its waiters forever.
	watchdog := time.NewTimer(b.opts.Timeout)
	defer watchdog.Stop()

	var lastPending []string
	rounds := 0
loop:
	for {
		rounds++
		result := make(chan probeResult, 1)
		go func() {
			pending, err := b.probe.Probe(ctx)
			result <- probeResult{pending, err}
		}()

		select {
		case <-watchdog.C:
			// Stall-breaker: flush with whatever was discovered
			// rather than hang the build. The probe still in
			// flight is abandoned, not cancelled.
			logger.Warn("styles did not settle before timeout, flushing anyway",
				"timeout", b.opts.Timeout,
				"blocking", b.blocking.Members(),
				"pending", lastPending,
				"requests", b.pendingRequests(),
			)
			break loop

		case res := <-result:
			if res.err != nil {
				logger.Warn("probe round failed, retrying", "error", res.err)
				continue
			}
			lastPending = res.pending
			if len(res.pending) == 0 {
				break loop
			}
			logger.Debug("probe forced pending modules", "count", len(res.pending))
		}
	}

	b.blocking.Clear()
	if b.opts.OnSettled != nil {
		b.opts.OnSettled(ctx)
	}

	// Tear the cycle down before releasing waiters so a follow-up request
	// starts fresh instead of observing an already-completed cycle.
	b.mu.Lock()
	b.active = nil
	b.mu.Unlock()
	close(c.done)

	logger.Debug("settle cycle finished", "rounds", rounds, "took", time.Since(start))
}

// pendingRequests guards the optional diagnostic hook.
func (b *Barrier) pendingRequests() []string {
	if b.opts.PendingRequests == nil {
		return nil
	}
	return b.opts.PendingRequests()
}

type probeResult struct {
	pending []string
	err     error
}
