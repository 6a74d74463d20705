package ecssched

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ecsforge/runtime/ecs"
)

// CronDriver ticks a world once per cron schedule match, for headless
// worlds that only need to advance on a coarse external cadence (e.g.
// "every minute") rather than a fixed frame rate.
type CronDriver struct {
	cron     *cron.Cron
	world    *ecs.World
	tracked  bool
	lastTick time.Time
	entryID  cron.EntryID
}

// NewCronDriver builds a driver that ticks world according to spec (a
// standard five-field cron expression). tracked selects
// RunSystemsTracked over RunSystems on each match.
func NewCronDriver(world *ecs.World, spec string, tracked bool) (*CronDriver, error) {
	d := &CronDriver{
		cron:    cron.New(),
		world:   world,
		tracked: tracked,
	}
	id, err := d.cron.AddFunc(spec, d.tick)
	if err != nil {
		return nil, err
	}
	d.entryID = id
	return d, nil
}

func (d *CronDriver) tick() {
	now := time.Now()
	dt := 0.0
	if !d.lastTick.IsZero() {
		dt = now.Sub(d.lastTick).Seconds()
	}
	d.lastTick = now

	d.world.NextFrame(dt)
	if d.tracked {
		d.world.RunSystemsTracked()
	} else {
		d.world.RunSystems()
	}
}

// Start begins the cron scheduler in its own goroutine.
func (d *CronDriver) Start() { d.cron.Start() }

// Stop halts the cron scheduler, waiting for any in-flight tick to finish.
func (d *CronDriver) Stop() { <-d.cron.Stop().Done() }
