package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
)

func newTestClock(store *fakeStore, bus *fakeBus) *Clock {
	engine := NewEngine(store, store, bus, zap.NewNop())
	return NewClock(engine, store, bus, nil, time.Second, zap.NewNop())
}

func TestTickPromotesDuePassage(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addPassage(detail("p1", "Étoile Gym A", "Plateau A",
		now.Add(-time.Minute), now.Add(10*time.Minute), model.StatusScheduled))

	newTestClock(store, bus).Tick(context.Background(), now)

	assert.Equal(t, model.StatusLive, store.status("p1"))
	assert.Equal(t, 1, bus.countFor(realtime.EventStatusUpdate, "p1"))
	assert.Equal(t, 1, bus.count(realtime.EventScheduleUpdate))
}

// lostRaceStreamStore simulates a concurrent binder winning the
// conditional pointer write: the store reports the pointer unchanged,
// the way the repository does when its compare-and-set matches zero
// rows.
type lostRaceStreamStore struct {
	inner *fakeStore
}

func (s *lostRaceStreamStore) SetCurrentPassage(ctx context.Context, location string, _ *string) (*model.Stream, bool, error) {
	st, _, err := s.inner.SetCurrentPassage(ctx, location, s.inner.streamPointer(location))
	return st, false, err
}

// Losing the pointer compare-and-set to a concurrent binder must not
// announce a stream move; the next tick re-binds from fresh state.
func TestTickLostStreamPointerRacePublishesNoStreamUpdate(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addStream(model.Stream{ID: "st1", Name: "Direct", Location: "Plateau A", IsLive: true})
	store.addPassage(detail("p1", "Étoile Gym A", "Plateau A",
		now.Add(-time.Minute), now.Add(10*time.Minute), model.StatusScheduled))

	engine := NewEngine(store, &lostRaceStreamStore{inner: store}, bus, zap.NewNop())
	NewClock(engine, store, bus, nil, time.Second, zap.NewNop()).Tick(context.Background(), now)

	assert.Equal(t, model.StatusLive, store.status("p1"))
	assert.Equal(t, 1, bus.countFor(realtime.EventStatusUpdate, "p1"))
	assert.Equal(t, 0, bus.count(realtime.EventStreamUpdate))
}

func TestTickFutureAndFinishedUntouched(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addPassage(detail("future", "A", "Plateau A",
		now.Add(5*time.Minute), now.Add(15*time.Minute), model.StatusScheduled))
	store.addPassage(detail("done", "B", "Plateau A",
		now.Add(-time.Hour), now.Add(-50*time.Minute), model.StatusFinished))

	newTestClock(store, bus).Tick(context.Background(), now)

	assert.Equal(t, model.StatusScheduled, store.status("future"))
	assert.Equal(t, model.StatusFinished, store.status("done"))
	assert.Empty(t, bus.all())
}

// A hall where the previous passage is still LIVE past its end time
// when the next one becomes due: the due finish and the conflict
// resolver race for the same passage, and the compare-and-set
// guarantees exactly one FINISHED transition and one status-update per
// passage regardless of which path wins.
func TestTickHallHandoverPublishesEachTransitionOnce(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addStream(model.Stream{ID: "st1", Name: "Direct", Location: "Plateau A", IsLive: true})
	store.addPassage(detail("p2", "Les Accros", "Plateau A",
		now.Add(-20*time.Minute), now.Add(-time.Minute), model.StatusLive))
	store.addPassage(detail("p1", "Étoile Gym A", "Plateau A",
		now.Add(-30*time.Second), now.Add(10*time.Minute), model.StatusScheduled))

	newTestClock(store, bus).Tick(context.Background(), now)

	assert.Equal(t, model.StatusLive, store.status("p1"))
	assert.Equal(t, model.StatusFinished, store.status("p2"))

	assert.Equal(t, 1, bus.countFor(realtime.EventStatusUpdate, "p1"), "exactly one live announcement")
	assert.Equal(t, 1, bus.countFor(realtime.EventStatusUpdate, "p2"), "exactly one finish announcement")

	// The stream moved to p1 exactly once: streams room + the stream's
	// own room.
	assert.Equal(t, 2, bus.count(realtime.EventStreamUpdate))
	require.NotNil(t, store.streamPointer("Plateau A"))
	assert.Equal(t, "p1", *store.streamPointer("Plateau A"))

	assert.Equal(t, 1, bus.count(realtime.EventScheduleUpdate))
}

func TestTickChainsPromotionAfterFinish(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addStream(model.Stream{ID: "st1", Name: "Direct", Location: "Plateau A", IsLive: true})
	store.addPassage(detail("ending", "A", "Plateau A",
		now.Add(-15*time.Minute), now.Add(-time.Second), model.StatusLive))
	store.addPassage(detail("next", "B", "Plateau A",
		now.Add(-time.Second), now.Add(12*time.Minute), model.StatusScheduled))

	newTestClock(store, bus).Tick(context.Background(), now)

	assert.Equal(t, model.StatusFinished, store.status("ending"))
	assert.Equal(t, model.StatusLive, store.status("next"))
	require.NotNil(t, store.streamPointer("Plateau A"))
	assert.Equal(t, "next", *store.streamPointer("Plateau A"))
}

func TestTickClearsStreamWhenNothingFollows(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	pid := "last"
	store.addStream(model.Stream{ID: "st1", Name: "Direct", Location: "Plateau A", IsLive: true, CurrentPassageID: &pid})
	store.addPassage(detail("last", "A", "Plateau A",
		now.Add(-15*time.Minute), now.Add(-time.Second), model.StatusLive))

	newTestClock(store, bus).Tick(context.Background(), now)

	assert.Equal(t, model.StatusFinished, store.status("last"))
	assert.Nil(t, store.streamPointer("Plateau A"))
}

func TestTickIdempotent(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addStream(model.Stream{ID: "st1", Name: "Direct", Location: "Plateau A", IsLive: true})
	store.addPassage(detail("p1", "A", "Plateau A",
		now.Add(-time.Minute), now.Add(10*time.Minute), model.StatusScheduled))

	clock := newTestClock(store, bus)
	clock.Tick(context.Background(), now)
	first := len(bus.all())
	clock.Tick(context.Background(), now.Add(30*time.Second))

	assert.Equal(t, model.StatusLive, store.status("p1"))
	assert.Len(t, bus.all(), first, "second tick over settled state publishes nothing")
}

func TestManualStatusRunsFullSequence(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addStream(model.Stream{ID: "st1", Name: "Direct", Location: "Plateau A", IsLive: true})
	store.addPassage(detail("early", "B", "Plateau A",
		now.Add(20*time.Minute), now.Add(30*time.Minute), model.StatusScheduled))
	store.addPassage(detail("current", "A", "Plateau A",
		now.Add(-10*time.Minute), now.Add(2*time.Minute), model.StatusLive))

	engine := NewEngine(store, store, bus, zap.NewNop())

	// The judge starts a passage ahead of schedule; whatever was live
	// at the location is force-finished and the stream follows.
	p, err := engine.ApplyManualStatus(context.Background(), "early", model.StatusLive, now)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, p.Status)
	assert.Equal(t, model.StatusFinished, store.status("current"))
	require.NotNil(t, store.streamPointer("Plateau A"))
	assert.Equal(t, "early", *store.streamPointer("Plateau A"))
	assert.Equal(t, 1, bus.count(realtime.EventScheduleUpdate))
}

func TestManualStatusNoopStillSignalsSchedule(t *testing.T) {
	now := time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	bus := &fakeBus{}
	store.addPassage(detail("p1", "A", "Plateau A",
		now.Add(-time.Minute), now.Add(10*time.Minute), model.StatusLive))

	engine := NewEngine(store, store, bus, zap.NewNop())
	p, err := engine.ApplyManualStatus(context.Background(), "p1", model.StatusLive, now)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLive, p.Status)
	assert.Equal(t, 0, bus.count(realtime.EventStatusUpdate))
	assert.Equal(t, 1, bus.count(realtime.EventScheduleUpdate))
}
