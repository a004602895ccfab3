package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// Engine owns the transition sequence every status change runs
// through: conflict-resolve, compare-and-set the status, rebind the
// location's stream, auto-promote the next eligible passage. The
// status clock drives it on a timer and the admin API drives it on
// demand, so automatic and manual transitions publish identical
// events and no client can tell them apart.
type Engine struct {
	passages PassageStore
	streams  StreamStore
	bus      realtime.Bus
	log      *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(passages PassageStore, streams StreamStore, bus realtime.Bus, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{passages: passages, streams: streams, bus: bus, log: log}
}

func statusPayload(p *repository.PassageDetail, status string) realtime.StatusUpdatePayload {
	return realtime.StatusUpdatePayload{
		PassageID: p.ID,
		Status:    status,
		Location:  p.Location,
		GroupName: p.GroupName,
		Group:     &realtime.GroupInfo{ID: p.GroupID, Name: p.GroupName},
		Apparatus: &realtime.ApparatusInfo{ID: p.ApparatusID, Code: p.ApparatusCode, Name: p.ApparatusName},
		Score:     p.Score,
	}
}

func (e *Engine) publishStatus(p *repository.PassageDetail, status string) {
	e.bus.Publish(realtime.RoomScheduleUpdates, realtime.EventStatusUpdate, statusPayload(p, status))
}

// ResolveConflicts force-finishes every other LIVE passage at the
// location of p, which is entering (or already holds) LIVE. After it
// returns, p is the only LIVE passage at that location. No ordering is
// needed among conflicting passages; all of them are finished
// unconditionally, and a loser of the compare-and-set race was already
// finished by someone else, which is the outcome we wanted anyway.
func (e *Engine) ResolveConflicts(ctx context.Context, p *repository.PassageDetail, now time.Time) (bool, error) {
	others, err := e.passages.LiveAtLocation(ctx, p.Location, p.ID)
	if err != nil {
		return false, fmt.Errorf("find conflicting passages: %w", err)
	}
	changed := false
	for i := range others {
		o := &others[i]
		if err := e.passages.SetStatusIf(ctx, o.ID, model.StatusLive, model.StatusFinished, &now); err != nil {
			if errors.Is(err, repository.ErrStale) {
				continue
			}
			e.log.Warn("force-finish conflicting passage failed",
				zap.String("passage", o.ID), zap.Error(err))
			continue
		}
		e.log.Info("force-finished conflicting passage",
			zap.String("passage", o.ID), zap.String("location", p.Location))
		e.publishStatus(o, model.StatusFinished)
		changed = true
	}
	return changed, nil
}

// BindStream points the location's stream at its current LIVE passage,
// or clears the pointer when nothing is live there. A stream-update is
// published to the streams room and the stream's own room, but only
// when the pointer actually moved. Locations without a stream are
// fine; not every hall has a camera.
func (e *Engine) BindStream(ctx context.Context, location string, now time.Time) (bool, error) {
	if location == "" {
		return false, nil
	}
	live, err := e.passages.LiveAtLocation(ctx, location, "")
	if err != nil {
		return false, fmt.Errorf("find live passage: %w", err)
	}
	var current *repository.PassageDetail
	var pid *string
	if len(live) > 0 {
		current = &live[0]
		pid = &current.ID
	}
	stream, changed, err := e.streams.SetCurrentPassage(ctx, location, pid)
	if err != nil {
		if errors.Is(err, repository.ErrStreamNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("bind stream at %q: %w", location, err)
	}
	if !changed {
		return false, nil
	}
	payload := realtime.StreamUpdatePayload{
		StreamID: stream.ID,
		Name:     stream.Name,
		URL:      stream.URL,
		Location: stream.Location,
		IsLive:   stream.IsLive,
	}
	if current != nil {
		payload.CurrentPassage = &realtime.CurrentPassageInfo{
			ID:        current.ID,
			Group:     &realtime.GroupInfo{ID: current.GroupID, Name: current.GroupName},
			Apparatus: &realtime.ApparatusInfo{ID: current.ApparatusID, Code: current.ApparatusCode, Name: current.ApparatusName},
			Status:    model.StatusLive,
			Location:  current.Location,
		}
	}
	e.bus.Publish(realtime.RoomStreams, realtime.EventStreamUpdate, payload)
	e.bus.Publish(realtime.StreamRoom(stream.ID), realtime.EventStreamUpdate, payload)
	return true, nil
}

// TransitionToLive promotes one SCHEDULED passage to LIVE: CAS the
// status, clear out anything else live at the location, rebind the
// stream, publish. Returns false without error when the passage was no
// longer SCHEDULED (someone else already moved it).
func (e *Engine) TransitionToLive(ctx context.Context, p *repository.PassageDetail, now time.Time) (bool, error) {
	if err := e.passages.SetStatusIf(ctx, p.ID, model.StatusScheduled, model.StatusLive, nil); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return false, nil
		}
		return false, err
	}
	if _, err := e.ResolveConflicts(ctx, p, now); err != nil {
		e.log.Warn("conflict resolution failed", zap.String("passage", p.ID), zap.Error(err))
	}
	e.publishStatus(p, model.StatusLive)
	if _, err := e.BindStream(ctx, p.Location, now); err != nil {
		e.log.Warn("stream bind failed", zap.String("location", p.Location), zap.Error(err))
	}
	e.log.Info("passage live", zap.String("passage", p.ID),
		zap.String("group", p.GroupName), zap.String("location", p.Location))
	return true, nil
}

// TransitionToFinished finishes one LIVE passage whose end time has
// passed, then gives its location the chance to chain-promote the next
// eligible SCHEDULED passage and rebinds the stream either way.
// Returns false without error when the passage was no longer LIVE.
func (e *Engine) TransitionToFinished(ctx context.Context, p *repository.PassageDetail, now time.Time) (bool, error) {
	if err := e.passages.SetStatusIf(ctx, p.ID, model.StatusLive, model.StatusFinished, &now); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return false, nil
		}
		return false, err
	}
	e.publishStatus(p, model.StatusFinished)
	e.log.Info("passage finished", zap.String("passage", p.ID),
		zap.String("group", p.GroupName), zap.String("location", p.Location))
	if err := e.PromoteNext(ctx, p.Location, now); err != nil {
		e.log.Warn("auto-promotion failed", zap.String("location", p.Location), zap.Error(err))
	}
	return true, nil
}

// PromoteNext promotes the earliest eligible SCHEDULED passage at a
// location, if any, and rebinds the stream. Called after a finish so a
// back-to-back schedule hands the stream over within one tick.
func (e *Engine) PromoteNext(ctx context.Context, location string, now time.Time) error {
	if location == "" {
		return nil
	}
	next, err := e.passages.NextEligibleAt(ctx, location, now)
	if err != nil {
		return fmt.Errorf("find next eligible passage: %w", err)
	}
	if next != nil {
		if _, err := e.TransitionToLive(ctx, next, now); err != nil {
			return err
		}
		return nil
	}
	// Nothing to promote: the stream pointer is cleared (or left on
	// another still-live passage) by a plain rebind.
	if _, err := e.BindStream(ctx, location, now); err != nil {
		return err
	}
	return nil
}

// ApplyManualStatus is the admin override path. It runs the identical
// sequence as the automatic clock so manual transitions are
// indistinguishable on the wire: conflict-resolve, conditional status
// write keyed on the status the admin saw, stream rebind, chained
// auto-promotion, publication. Returns the refreshed passage.
func (e *Engine) ApplyManualStatus(ctx context.Context, passageID, status string, now time.Time) (*repository.PassageDetail, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	p, err := e.passages.GetDetail(ctx, passageID)
	if err != nil {
		return nil, err
	}
	if p.Status != status {
		var endTime *time.Time
		if status == model.StatusFinished {
			endTime = &now
		}
		if err := e.passages.SetStatusIf(ctx, p.ID, p.Status, status, endTime); err != nil {
			// A racing clock tick moved the passage first; the admin's
			// view was stale and the write is discarded.
			return nil, err
		}
		switch status {
		case model.StatusLive:
			if _, err := e.ResolveConflicts(ctx, p, now); err != nil {
				e.log.Warn("conflict resolution failed", zap.String("passage", p.ID), zap.Error(err))
			}
			e.publishStatus(p, status)
			if _, err := e.BindStream(ctx, p.Location, now); err != nil {
				e.log.Warn("stream bind failed", zap.String("location", p.Location), zap.Error(err))
			}
		case model.StatusFinished:
			e.publishStatus(p, status)
			if err := e.PromoteNext(ctx, p.Location, now); err != nil {
				e.log.Warn("auto-promotion failed", zap.String("location", p.Location), zap.Error(err))
			}
		case model.StatusScheduled:
			// Rolled back: whatever the stream showed is recomputed.
			e.publishStatus(p, status)
			if _, err := e.BindStream(ctx, p.Location, now); err != nil {
				e.log.Warn("stream bind failed", zap.String("location", p.Location), zap.Error(err))
			}
		}
	}
	e.bus.Publish(realtime.RoomScheduleUpdates, realtime.EventScheduleUpdate, realtime.ScheduleUpdatePayload{})
	return e.passages.GetDetail(ctx, passageID)
}
