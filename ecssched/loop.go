// Package ecssched provides optional drivers that advance an ecs.World on
// a schedule external to its synchronous API: a rate-limited free-running
// loop and a cron-triggered single tick.
package ecssched

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/ecsforge/runtime/ecs"
)

// Loop free-runs a world's NextFrame + RunSystems(Tracked) at a
// rate-limited cadence until its context is canceled. It is itself
// single-threaded: ticks never overlap.
type Loop struct {
	world    *ecs.World
	limiter  *rate.Limiter
	tracked  bool
	lastTick time.Time
}

// NewLoop builds a Loop targeting hz frames per second. tracked selects
// RunSystemsTracked over RunSystems for each tick.
func NewLoop(world *ecs.World, hz float64, tracked bool) *Loop {
	return &Loop{
		world:   world,
		limiter: rate.NewLimiter(rate.Limit(hz), 1),
		tracked: tracked,
	}
}

// Run blocks, ticking the world until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			// Wait fails early when the next token lies past ctx's
			// deadline; no further tick can run, so wait out ctx.
			<-ctx.Done()
			return ctx.Err()
		}
		now := time.Now()
		dt := 0.0
		if !l.lastTick.IsZero() {
			dt = now.Sub(l.lastTick).Seconds()
		}
		l.lastTick = now

		l.world.NextFrame(dt)
		if l.tracked {
			l.world.RunSystemsTracked()
		} else {
			l.world.RunSystems()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
