// Package scheduler contains the time driven core: the status clock
// that promotes passages as real time advances, the conflict resolver
// and stream binder keeping each location consistent, and the reminder
// scheduler feeding the notification dispatcher. Store access goes
// through the narrow interfaces below so tests run against in-memory
// fakes and the admin handlers share the exact same transition engine.
package scheduler

import (
	"context"
	"time"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// PassageStore is the slice of the passage repository the scheduler
// needs. repository.PassageRepo satisfies it.
type PassageStore interface {
	DueToGoLive(ctx context.Context, now time.Time) ([]repository.PassageDetail, error)
	DueToFinish(ctx context.Context, now time.Time) ([]repository.PassageDetail, error)
	LiveAtLocation(ctx context.Context, location, excludeID string) ([]repository.PassageDetail, error)
	NextEligibleAt(ctx context.Context, location string, now time.Time) (*repository.PassageDetail, error)
	GetDetail(ctx context.Context, id string) (*repository.PassageDetail, error)
	SetStatusIf(ctx context.Context, id, from, to string, endTime *time.Time) error
	InReminderWindow(ctx context.Context, col string, from, to time.Time) ([]repository.PassageDetail, error)
	SetNotified(ctx context.Context, id, col string, at time.Time) error
	ListLive(ctx context.Context) ([]repository.PassageDetail, error)
}

// StreamStore is the slice of the stream repository the binder needs.
// repository.StreamRepo satisfies it.
type StreamStore interface {
	SetCurrentPassage(ctx context.Context, location string, passageID *string) (*model.Stream, bool, error)
}

// SubscriptionStore resolves reminder recipients.
// repository.SubscriptionRepo satisfies it.
type SubscriptionStore interface {
	ListByFavorite(ctx context.Context, passageID string) ([]model.Subscription, error)
}

// Notifier receives one reminder fan-out request per matched passage.
// Delivery is fire and forget: the reminder scheduler stamps the
// tracking column once attempts are handed over, regardless of
// delivery outcome.
type Notifier interface {
	NotifyReminder(ctx context.Context, p repository.PassageDetail, subs []model.Subscription, minutesBefore int)
}
