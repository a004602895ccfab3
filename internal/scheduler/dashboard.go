package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/realtime"
)

// StatsSource is the hub-side counter snapshot the dashboard reads.
type StatsSource interface {
	Stats() realtime.Stats
}

// Dashboard periodically pushes an operations snapshot (connection
// counts, live passages, drop counters) to the admin-dashboard room.
// It is separate from the status clock: losing a dashboard frame is
// harmless, so it neither shares the clock's tick nor its logging
// severity.
type Dashboard struct {
	stats    StatsSource
	passages PassageStore
	bus      realtime.Bus
	interval time.Duration
	log      *zap.Logger
}

// NewDashboard constructs a Dashboard. A non-positive interval
// defaults to 10s.
func NewDashboard(stats StatsSource, passages PassageStore, bus realtime.Bus, interval time.Duration, log *zap.Logger) *Dashboard {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dashboard{stats: stats, passages: passages, bus: bus, interval: interval, log: log}
}

// Run pushes snapshots until the context is cancelled.
func (d *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.bus.Publish(realtime.RoomAdminDashboard, realtime.EventDashboardUpdate, d.Snapshot(ctx))
		}
	}
}

// Snapshot builds one dashboard payload.
func (d *Dashboard) Snapshot(ctx context.Context) realtime.DashboardUpdatePayload {
	st := d.stats.Stats()
	payload := realtime.DashboardUpdatePayload{
		Connections:   st.Sessions,
		Rooms:         st.Rooms,
		DroppedFrames: st.Dropped,
		GeneratedAt:   time.Now().UTC(),
	}
	live, err := d.passages.ListLive(ctx)
	if err != nil {
		d.log.Debug("dashboard live count failed", zap.Error(err))
	} else {
		payload.LivePassages = len(live)
	}
	return payload
}
