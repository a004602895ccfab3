package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/repository"
)

// Threshold is one reminder window: passages starting in about
// MinutesBefore minutes are matched once, tracked by the Col column.
type Threshold struct {
	MinutesBefore int
	Col           string
}

// DefaultThresholds are the 15 and 3 minute reminders.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{MinutesBefore: 15, Col: repository.NotifiedCol15},
		{MinutesBefore: 3, Col: repository.NotifiedCol3},
	}
}

// windowHalfWidth is half the match window around each threshold.
// Against a 30s tick, ±30s means a passage is seen by at most two
// ticks before its tracking column is stamped; the column itself is
// the sole deduplication mechanism, not tick counting.
const windowHalfWidth = 30 * time.Second

// Reminder finds passages entering each reminder window exactly once,
// resolves interested subscribers and hands the fan-out to a Notifier.
// It shares the clock's tick and `now` snapshot but is otherwise
// independent of status transitions.
type Reminder struct {
	passages   PassageStore
	subs       SubscriptionStore
	notifier   Notifier
	thresholds []Threshold
	log        *zap.Logger
}

// NewReminder constructs a Reminder with the given thresholds (nil
// means DefaultThresholds).
func NewReminder(passages PassageStore, subs SubscriptionStore, notifier Notifier, thresholds []Threshold, log *zap.Logger) *Reminder {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reminder{
		passages:   passages,
		subs:       subs,
		notifier:   notifier,
		thresholds: thresholds,
		log:        log,
	}
}

// Tick evaluates every threshold at the given instant.
func (r *Reminder) Tick(ctx context.Context, now time.Time) {
	for _, th := range r.thresholds {
		r.evaluate(ctx, now, th)
	}
}

func (r *Reminder) evaluate(ctx context.Context, now time.Time, th Threshold) {
	center := now.Add(time.Duration(th.MinutesBefore) * time.Minute)
	from := center.Add(-windowHalfWidth)
	to := center.Add(windowHalfWidth)

	matched, err := r.passages.InReminderWindow(ctx, th.Col, from, to)
	if err != nil {
		r.log.Warn("reminder window query failed",
			zap.Int("minutes", th.MinutesBefore), zap.Error(err))
		return
	}
	for i := range matched {
		p := &matched[i]
		subs, err := r.subs.ListByFavorite(ctx, p.ID)
		if err != nil {
			// Leave the tracking column unset so the next tick (still
			// inside the window) retries the whole passage.
			r.log.Warn("resolve subscribers failed", zap.String("passage", p.ID), zap.Error(err))
			continue
		}
		if len(subs) > 0 {
			r.notifier.NotifyReminder(ctx, *p, subs, th.MinutesBefore)
			r.log.Info("reminder dispatched",
				zap.String("passage", p.ID), zap.String("group", p.GroupName),
				zap.Int("minutes", th.MinutesBefore), zap.Int("subscribers", len(subs)))
		}
		// Stamped even with zero recipients so the window is never
		// re-evaluated, and stamped after dispatch attempts are handed
		// over, never gated on delivery success.
		if err := r.passages.SetNotified(ctx, p.ID, th.Col, now); err != nil {
			r.log.Warn("set reminder marker failed", zap.String("passage", p.ID), zap.Error(err))
		}
	}
}
