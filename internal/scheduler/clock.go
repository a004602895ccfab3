package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/realtime"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// DefaultInterval is the clock cadence. The reminder windows are sized
// against it (±30s around each threshold), so changing one means
// revisiting the other.
const DefaultInterval = 30 * time.Second

// Clock is the periodic evaluator. Each tick takes a single wall-clock
// snapshot, promotes due passages through the engine, and runs the
// reminder pass off the same snapshot. Every operation is idempotent
// (conditional writes, tracking columns), so a tick that overlaps a
// slow predecessor or dies halfway self-heals on the next one.
type Clock struct {
	engine   *Engine
	passages PassageStore
	bus      realtime.Bus
	reminder *Reminder
	interval time.Duration
	log      *zap.Logger
}

// NewClock constructs a Clock. reminder may be nil when notifications
// are disabled.
func NewClock(engine *Engine, passages PassageStore, bus realtime.Bus, reminder *Reminder, interval time.Duration, log *zap.Logger) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Clock{
		engine:   engine,
		passages: passages,
		bus:      bus,
		reminder: reminder,
		interval: interval,
		log:      log,
	}
}

// Run ticks until the context is cancelled. It never returns an error:
// per-tick failures are logged and re-evaluated on the next tick.
func (c *Clock) Run(ctx context.Context) {
	c.log.Info("status clock started", zap.Duration("interval", c.interval))
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("status clock stopped")
			return
		case <-ticker.C:
			now := time.Now().UTC()
			c.Tick(ctx, now)
		}
	}
}

// Tick runs one evaluation pass at the given instant. Exported so the
// admin seed handler can force an immediate evaluation after a reseed.
func (c *Clock) Tick(ctx context.Context, now time.Time) {
	changed := c.runTransitions(ctx, now)
	if changed {
		c.bus.Publish(realtime.RoomScheduleUpdates, realtime.EventScheduleUpdate, realtime.ScheduleUpdatePayload{})
	}
	if c.reminder != nil {
		c.reminder.Tick(ctx, now)
	}
}

func (c *Clock) runTransitions(ctx context.Context, now time.Time) bool {
	toLive, err := c.passages.DueToGoLive(ctx, now)
	if err != nil {
		c.log.Warn("query due-to-go-live failed", zap.Error(err))
	}
	toFinish, err := c.passages.DueToFinish(ctx, now)
	if err != nil {
		c.log.Warn("query due-to-finish failed", zap.Error(err))
	}
	if len(toLive) == 0 && len(toFinish) == 0 {
		return false
	}

	// Transitions at different locations are independent and run in
	// parallel; within one location order matters (go-live with its
	// conflict resolution before finish processing), so each location
	// gets one worker processing its slice sequentially.
	type job struct {
		p      repository.PassageDetail
		toLive bool
	}
	byLocation := make(map[string][]job)
	for _, p := range toLive {
		byLocation[p.Location] = append(byLocation[p.Location], job{p: p, toLive: true})
	}
	for _, p := range toFinish {
		byLocation[p.Location] = append(byLocation[p.Location], job{p: p, toLive: false})
	}

	var mu sync.Mutex
	changed := false
	var wg sync.WaitGroup
	for loc, jobs := range byLocation {
		wg.Add(1)
		go func(loc string, jobs []job) {
			defer wg.Done()
			for _, j := range jobs {
				var did bool
				var err error
				if j.toLive {
					did, err = c.engine.TransitionToLive(ctx, &j.p, now)
				} else {
					did, err = c.engine.TransitionToFinished(ctx, &j.p, now)
				}
				if err != nil {
					// Logged and skipped; the query conditions still
					// hold next tick so the passage is re-evaluated.
					c.log.Warn("transition failed",
						zap.String("passage", j.p.ID), zap.String("location", loc), zap.Error(err))
					continue
				}
				if did {
					mu.Lock()
					changed = true
					mu.Unlock()
				}
			}
		}(loc, jobs)
	}
	wg.Wait()
	return changed
}
