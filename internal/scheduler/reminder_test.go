package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
)

func TestReminderFiresInsideWindow(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	subs := &fakeSubs{byPassage: map[string][]model.Subscription{
		"p1": {{ID: "s1", Type: model.ChannelWeb, Endpoint: "https://push/one"}},
	}}
	// Starts in exactly 15 minutes.
	store.addPassage(detail("p1", "A", "Plateau A",
		now.Add(15*time.Minute), now.Add(27*time.Minute), model.StatusScheduled))

	r := NewReminder(store, subs, notifier, nil, zap.NewNop())
	r.Tick(context.Background(), now)

	calls := notifier.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "p1", calls[0].PassageID)
	assert.Equal(t, 15, calls[0].MinutesBefore)
	assert.Equal(t, 1, calls[0].Subscribers)
}

// Two consecutive ticks both see the passage inside the ±30s window;
// the tracking column stamped by the first tick keeps the second one
// silent.
func TestReminderAtMostOnceAcrossStraddlingTicks(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	subs := &fakeSubs{byPassage: map[string][]model.Subscription{
		"p1": {{ID: "s1", Type: model.ChannelWeb, Endpoint: "https://push/one"}},
	}}
	store.addPassage(detail("p1", "A", "Plateau A",
		now.Add(15*time.Minute).Add(10*time.Second), now.Add(30*time.Minute), model.StatusScheduled))

	r := NewReminder(store, subs, notifier, nil, zap.NewNop())
	r.Tick(context.Background(), now)
	r.Tick(context.Background(), now.Add(30*time.Second))

	assert.Len(t, notifier.all(), 1)
}

func TestReminderStampsWithZeroRecipients(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	subs := &fakeSubs{byPassage: map[string][]model.Subscription{}}
	store.addPassage(detail("p1", "A", "Plateau A",
		now.Add(15*time.Minute), now.Add(27*time.Minute), model.StatusScheduled))

	r := NewReminder(store, subs, notifier, nil, zap.NewNop())
	r.Tick(context.Background(), now)

	assert.Empty(t, notifier.all())
	p, err := store.GetDetail(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotNil(t, p.NotifiedAt15, "window is consumed even with nobody to notify")

	// A subscriber arriving later does not resurrect the spent window.
	subs.byPassage["p1"] = []model.Subscription{{ID: "s1", Type: model.ChannelWeb, Endpoint: "https://push/one"}}
	r.Tick(context.Background(), now.Add(20*time.Second))
	assert.Empty(t, notifier.all())
}

func TestReminderThresholdsIndependent(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	subs := &fakeSubs{byPassage: map[string][]model.Subscription{
		"p1": {{ID: "s1", Type: model.ChannelWeb, Endpoint: "https://push/one"}},
	}}
	store.addPassage(detail("p1", "A", "Plateau A",
		now.Add(15*time.Minute), now.Add(27*time.Minute), model.StatusScheduled))

	r := NewReminder(store, subs, notifier, nil, zap.NewNop())
	r.Tick(context.Background(), now)
	// Twelve minutes later the same passage is three minutes out.
	r.Tick(context.Background(), now.Add(12*time.Minute))

	calls := notifier.all()
	require.Len(t, calls, 2)
	assert.Equal(t, 15, calls[0].MinutesBefore)
	assert.Equal(t, 3, calls[1].MinutesBefore)
}

func TestReminderOutsideWindowSilent(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	subs := &fakeSubs{byPassage: map[string][]model.Subscription{
		"p1": {{ID: "s1", Type: model.ChannelWeb, Endpoint: "https://push/one"}},
	}}
	// Starts in 20 minutes: outside both windows.
	store.addPassage(detail("p1", "A", "Plateau A",
		now.Add(20*time.Minute), now.Add(32*time.Minute), model.StatusScheduled))

	r := NewReminder(store, subs, notifier, nil, zap.NewNop())
	r.Tick(context.Background(), now)

	assert.Empty(t, notifier.all())
	p, _ := store.GetDetail(context.Background(), "p1")
	assert.Nil(t, p.NotifiedAt15)
	assert.Nil(t, p.NotifiedAt3)
}
