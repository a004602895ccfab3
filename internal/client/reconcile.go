package client

import (
	"sync"
	"time"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
)

// DefaultDeferDelay is how long the reconciler waits after the last
// status push before re-fetching the full schedule. Pushes arriving in
// bursts (scheduler ticks touch several passages at once) collapse
// into one fetch.
const DefaultDeferDelay = 8 * time.Second

// Passage is the client-side read model of a scheduled passage as
// returned by the public schedule endpoints.
type Passage struct {
	ID            string    `json:"id"`
	GroupName     string    `json:"group_name"`
	ApparatusCode string    `json:"apparatus_code"`
	ApparatusName string    `json:"apparatus_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Location      string    `json:"location"`
	Status        string    `json:"status"`
	Score         *float64  `json:"score,omitempty"`
	IsPublished   bool      `json:"is_published"`
}

// override is what a push told us about one passage since the last
// full fetch.
type override struct {
	status string
	score  *float64
}

// Reconciler layers realtime pushes over periodically fetched state.
// Pushes are applied immediately as per-passage overrides so the UI
// updates without waiting for a round-trip; a single deferred refresh
// then replaces the overlay with authoritative data. Status pushes
// restart the defer timer, score pushes merge into the overlay without
// restarting it.
type Reconciler struct {
	mu         sync.Mutex
	overrides  map[string]override
	version    uint64
	deferDelay time.Duration
	timer      *time.Timer
	gen        uint64
	refresh    func()
}

// NewReconciler builds a reconciler invoking refresh after the defer
// delay elapses without further status pushes. A non-positive delay
// falls back to DefaultDeferDelay.
func NewReconciler(deferDelay time.Duration, refresh func()) *Reconciler {
	if deferDelay <= 0 {
		deferDelay = DefaultDeferDelay
	}
	return &Reconciler{
		overrides:  make(map[string]override),
		deferDelay: deferDelay,
		refresh:    refresh,
	}
}

// HandleStatusUpdate records the pushed status and restarts the defer
// timer.
func (r *Reconciler) HandleStatusUpdate(p realtime.StatusUpdatePayload) {
	r.mu.Lock()
	ov := r.overrides[p.PassageID]
	ov.status = p.Status
	if p.Score != nil {
		ov.score = p.Score
	}
	r.overrides[p.PassageID] = ov
	r.version++
	r.scheduleRefreshLocked()
	r.mu.Unlock()
}

// HandleScoreUpdate merges a pushed score into the overlay. A score
// push announces a finished passage, so the status defaults to
// FINISHED when no status override is already present. It does not
// restart the defer timer: scores trickle in over a long session and
// pinning the timer open would starve the refresh.
func (r *Reconciler) HandleScoreUpdate(p realtime.ScoreUpdatePayload) {
	r.mu.Lock()
	ov := r.overrides[p.PassageID]
	score := p.Score
	ov.score = &score
	if ov.status == "" {
		if p.Status != "" {
			ov.status = p.Status
		} else {
			ov.status = model.StatusFinished
		}
	}
	r.overrides[p.PassageID] = ov
	r.version++
	r.mu.Unlock()
}

// HandleScheduleUpdate drops the overlay and refreshes immediately: a
// schedule push means rows were added, removed or rebound and the
// overlay may reference passages that no longer exist.
func (r *Reconciler) HandleScheduleUpdate() {
	r.mu.Lock()
	r.overrides = make(map[string]override)
	r.version++
	r.gen++ // invalidate any pending deferred refresh
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	refresh := r.refresh
	r.mu.Unlock()
	if refresh != nil {
		refresh()
	}
}

// scheduleRefreshLocked restarts the single defer timer. Callers hold
// r.mu.
func (r *Reconciler) scheduleRefreshLocked() {
	r.gen++
	gen := r.gen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.deferDelay, func() {
		r.fireRefresh(gen)
	})
}

func (r *Reconciler) fireRefresh(gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.overrides = make(map[string]override)
	r.version++
	r.timer = nil
	refresh := r.refresh
	r.mu.Unlock()
	if refresh != nil {
		refresh()
	}
}

// Apply returns the passage with any pending override folded in.
func (r *Reconciler) Apply(p Passage) Passage {
	r.mu.Lock()
	ov, ok := r.overrides[p.ID]
	r.mu.Unlock()
	if !ok {
		return p
	}
	if ov.status != "" {
		p.Status = ov.status
	}
	if ov.score != nil {
		p.Score = ov.score
	}
	return p
}

// ApplyAll maps Apply over a slice, returning a new slice.
func (r *Reconciler) ApplyAll(ps []Passage) []Passage {
	out := make([]Passage, len(ps))
	for i, p := range ps {
		out[i] = r.Apply(p)
	}
	return out
}

// Version increments on every overlay change; views poll it to decide
// whether to redraw.
func (r *Reconciler) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Pending reports how many passages currently carry an override.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.overrides)
}

// Stop cancels any pending deferred refresh.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
