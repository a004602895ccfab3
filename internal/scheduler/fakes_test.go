package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// fakeStore is an in-memory PassageStore/StreamStore for engine and
// clock tests, mirroring the conditional-write semantics of the SQL
// repositories.
type fakeStore struct {
	mu       sync.Mutex
	passages map[string]*repository.PassageDetail
	streams  map[string]*model.Stream // keyed by location
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		passages: make(map[string]*repository.PassageDetail),
		streams:  make(map[string]*model.Stream),
	}
}

func (f *fakeStore) addPassage(p repository.PassageDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.passages[p.ID] = &cp
}

func (f *fakeStore) addStream(st model.Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := st
	f.streams[st.Location] = &cp
}

func (f *fakeStore) status(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passages[id].Status
}

func (f *fakeStore) streamPointer(location string) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.streams[location]
	if !ok {
		return nil
	}
	return st.CurrentPassageID
}

func (f *fakeStore) selectPassages(keep func(*repository.PassageDetail) bool) []repository.PassageDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.PassageDetail
	for _, p := range f.passages {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (f *fakeStore) DueToGoLive(_ context.Context, now time.Time) ([]repository.PassageDetail, error) {
	return f.selectPassages(func(p *repository.PassageDetail) bool {
		return p.Status == model.StatusScheduled && !p.StartTime.After(now)
	}), nil
}

func (f *fakeStore) DueToFinish(_ context.Context, now time.Time) ([]repository.PassageDetail, error) {
	return f.selectPassages(func(p *repository.PassageDetail) bool {
		return p.Status == model.StatusLive && !p.EndTime.After(now)
	}), nil
}

func (f *fakeStore) LiveAtLocation(_ context.Context, location, excludeID string) ([]repository.PassageDetail, error) {
	return f.selectPassages(func(p *repository.PassageDetail) bool {
		return p.Status == model.StatusLive && p.Location == location && p.ID != excludeID
	}), nil
}

func (f *fakeStore) NextEligibleAt(_ context.Context, location string, now time.Time) (*repository.PassageDetail, error) {
	eligible := f.selectPassages(func(p *repository.PassageDetail) bool {
		return p.Status == model.StatusScheduled && p.Location == location && !p.StartTime.After(now)
	})
	if len(eligible) == 0 {
		return nil, nil
	}
	return &eligible[0], nil
}

func (f *fakeStore) GetDetail(_ context.Context, id string) (*repository.PassageDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.passages[id]
	if !ok {
		return nil, repository.ErrPassageNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SetStatusIf(_ context.Context, id, from, to string, endTime *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.passages[id]
	if !ok {
		return repository.ErrPassageNotFound
	}
	if p.Status != from {
		return repository.ErrStale
	}
	p.Status = to
	if endTime != nil && endTime.Before(p.EndTime) {
		p.EndTime = *endTime
	}
	return nil
}

func (f *fakeStore) InReminderWindow(_ context.Context, col string, from, to time.Time) ([]repository.PassageDetail, error) {
	return f.selectPassages(func(p *repository.PassageDetail) bool {
		if p.StartTime.Before(from) || p.StartTime.After(to) {
			return false
		}
		switch col {
		case repository.NotifiedCol15:
			return p.NotifiedAt15 == nil
		case repository.NotifiedCol3:
			return p.NotifiedAt3 == nil
		}
		return false
	}), nil
}

func (f *fakeStore) SetNotified(_ context.Context, id, col string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.passages[id]
	if !ok {
		return repository.ErrPassageNotFound
	}
	switch col {
	case repository.NotifiedCol15:
		if p.NotifiedAt15 == nil {
			stamp := at
			p.NotifiedAt15 = &stamp
		}
	case repository.NotifiedCol3:
		if p.NotifiedAt3 == nil {
			stamp := at
			p.NotifiedAt3 = &stamp
		}
	}
	return nil
}

func (f *fakeStore) ListLive(_ context.Context) ([]repository.PassageDetail, error) {
	return f.selectPassages(func(p *repository.PassageDetail) bool {
		return p.Status == model.StatusLive
	}), nil
}

func (f *fakeStore) SetCurrentPassage(_ context.Context, location string, passageID *string) (*model.Stream, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.streams[location]
	if !ok {
		return nil, false, repository.ErrStreamNotFound
	}
	same := (st.CurrentPassageID == nil && passageID == nil) ||
		(st.CurrentPassageID != nil && passageID != nil && *st.CurrentPassageID == *passageID)
	if same {
		cp := *st
		return &cp, false, nil
	}
	if passageID != nil {
		pid := *passageID
		st.CurrentPassageID = &pid
	} else {
		st.CurrentPassageID = nil
	}
	cp := *st
	return &cp, true, nil
}

// recordedEvent is one Publish call seen by the fake bus.
type recordedEvent struct {
	Room  string
	Event string
	Data  any
}

type fakeBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBus) Publish(room, event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Room: room, Event: event, Data: data})
}

func (b *fakeBus) all() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedEvent, len(b.events))
	copy(out, b.events)
	return out
}

func (b *fakeBus) count(event string) int {
	n := 0
	for _, e := range b.all() {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (b *fakeBus) countFor(event, passageID string) int {
	n := 0
	for _, e := range b.all() {
		if e.Event != event {
			continue
		}
		if p, ok := e.Data.(realtime.StatusUpdatePayload); ok && p.PassageID == passageID {
			n++
		}
	}
	return n
}

type reminderCall struct {
	PassageID     string
	MinutesBefore int
	Subscribers   int
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []reminderCall
}

func (n *fakeNotifier) NotifyReminder(_ context.Context, p repository.PassageDetail, subs []model.Subscription, minutesBefore int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, reminderCall{PassageID: p.ID, MinutesBefore: minutesBefore, Subscribers: len(subs)})
}

func (n *fakeNotifier) all() []reminderCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]reminderCall, len(n.calls))
	copy(out, n.calls)
	return out
}

type fakeSubs struct {
	byPassage map[string][]model.Subscription
}

func (s *fakeSubs) ListByFavorite(_ context.Context, passageID string) ([]model.Subscription, error) {
	return s.byPassage[passageID], nil
}

func detail(id, group, location string, start, end time.Time, status string) repository.PassageDetail {
	return repository.PassageDetail{
		Passage: model.Passage{
			ID:          id,
			GroupID:     "g-" + id,
			ApparatusID: "a-" + id,
			StartTime:   start,
			EndTime:     end,
			Location:    location,
			Status:      status,
			IsPublished: true,
		},
		GroupName:     group,
		ApparatusCode: "sol",
		ApparatusName: "Sol",
	}
}
