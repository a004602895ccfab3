package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
)

func waitForRefreshes(t *testing.T, counter *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() == want {
			// Hold briefly to catch an unexpected extra firing.
			time.Sleep(50 * time.Millisecond)
			if counter.Load() == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("refresh count = %d, want %d", counter.Load(), want)
}

func TestStatusOverrideAppliesImmediately(t *testing.T) {
	r := NewReconciler(time.Hour, nil)
	defer r.Stop()

	r.HandleStatusUpdate(realtime.StatusUpdatePayload{PassageID: "p1", Status: model.StatusLive})

	got := r.Apply(Passage{ID: "p1", Status: model.StatusScheduled})
	assert.Equal(t, model.StatusLive, got.Status)

	other := r.Apply(Passage{ID: "p2", Status: model.StatusScheduled})
	assert.Equal(t, model.StatusScheduled, other.Status)
}

func TestScoreMergesIntoStatusOverride(t *testing.T) {
	r := NewReconciler(time.Hour, nil)
	defer r.Stop()

	r.HandleStatusUpdate(realtime.StatusUpdatePayload{PassageID: "p1", Status: model.StatusFinished})
	r.HandleScoreUpdate(realtime.ScoreUpdatePayload{PassageID: "p1", Score: 17.25})

	got := r.Apply(Passage{ID: "p1", Status: model.StatusLive})
	assert.Equal(t, model.StatusFinished, got.Status)
	require.NotNil(t, got.Score)
	assert.Equal(t, 17.25, *got.Score)
}

func TestScoreAloneImpliesFinished(t *testing.T) {
	r := NewReconciler(time.Hour, nil)
	defer r.Stop()

	r.HandleScoreUpdate(realtime.ScoreUpdatePayload{PassageID: "p1", Score: 15.8})

	got := r.Apply(Passage{ID: "p1", Status: model.StatusLive})
	assert.Equal(t, model.StatusFinished, got.Status)
	require.NotNil(t, got.Score)
	assert.Equal(t, 15.8, *got.Score)
}

// A burst of status pushes collapses into exactly one deferred
// refresh, after which the overlay is empty.
func TestStatusBurstCollapsesToOneRefresh(t *testing.T) {
	var refreshes atomic.Int32
	r := NewReconciler(60*time.Millisecond, func() { refreshes.Add(1) })
	defer r.Stop()

	for i := 0; i < 5; i++ {
		r.HandleStatusUpdate(realtime.StatusUpdatePayload{PassageID: "p1", Status: model.StatusLive})
		time.Sleep(10 * time.Millisecond)
	}
	waitForRefreshes(t, &refreshes, 1)

	assert.Equal(t, 0, r.Pending(), "overlay cleared by the refresh")
	got := r.Apply(Passage{ID: "p1", Status: model.StatusScheduled})
	assert.Equal(t, model.StatusScheduled, got.Status)
}

// Score pushes merge without restarting the defer timer: a status push
// then a steady score trickle still refreshes once, on the status
// push's schedule.
func TestScoreDoesNotRestartDeferTimer(t *testing.T) {
	var refreshes atomic.Int32
	r := NewReconciler(100*time.Millisecond, func() { refreshes.Add(1) })
	defer r.Stop()

	r.HandleStatusUpdate(realtime.StatusUpdatePayload{PassageID: "p1", Status: model.StatusFinished})
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		r.HandleScoreUpdate(realtime.ScoreUpdatePayload{PassageID: "p1", Score: float64(i)})
	}
	// Four score pushes spanning 160ms did not push the 100ms deadline
	// out.
	waitForRefreshes(t, &refreshes, 1)
}

func TestScheduleUpdateClearsImmediately(t *testing.T) {
	var refreshes atomic.Int32
	r := NewReconciler(time.Hour, func() { refreshes.Add(1) })
	defer r.Stop()

	r.HandleStatusUpdate(realtime.StatusUpdatePayload{PassageID: "p1", Status: model.StatusLive})
	before := r.Version()

	r.HandleScheduleUpdate()

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, 0, r.Pending())
	assert.Greater(t, r.Version(), before)

	// The pending hour-long deferred refresh was cancelled with it.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestVersionAdvancesOnEveryOverlayChange(t *testing.T) {
	r := NewReconciler(time.Hour, nil)
	defer r.Stop()

	v0 := r.Version()
	r.HandleStatusUpdate(realtime.StatusUpdatePayload{PassageID: "p1", Status: model.StatusLive})
	v1 := r.Version()
	r.HandleScoreUpdate(realtime.ScoreUpdatePayload{PassageID: "p1", Score: 12})
	v2 := r.Version()

	assert.Greater(t, v1, v0)
	assert.Greater(t, v2, v1)
}

func TestApplyAllLeavesInputUntouched(t *testing.T) {
	r := NewReconciler(time.Hour, nil)
	defer r.Stop()
	r.HandleStatusUpdate(realtime.StatusUpdatePayload{PassageID: "p1", Status: model.StatusLive})

	in := []Passage{{ID: "p1", Status: model.StatusScheduled}, {ID: "p2", Status: model.StatusScheduled}}
	out := r.ApplyAll(in)

	assert.Equal(t, model.StatusScheduled, in[0].Status)
	assert.Equal(t, model.StatusLive, out[0].Status)
	assert.Equal(t, model.StatusScheduled, out[1].Status)
}
