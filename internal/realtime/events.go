// Package realtime implements the room based publish/subscribe layer:
// a hub tracking joined rooms per connection, the fixed room grammar,
// and the closed set of event payloads carried on the wire.
package realtime

import (
	"encoding/json"
	"time"
)

// Event names. The set is closed: every payload sent through the hub
// is one of these, with the fixed shapes below.
const (
	EventStatusUpdate    = "status-update"
	EventScoreUpdate     = "score-update"
	EventStreamUpdate    = "stream-update"
	EventScheduleUpdate  = "schedule-update"
	EventDashboardUpdate = "dashboard-update"
)

// Well-known room names. Dynamic stream rooms follow the
// stream-<24 hex id> pattern checked by ValidRoom.
const (
	RoomLiveScores      = "live-scores"
	RoomScheduleUpdates = "schedule-updates"
	RoomStreams         = "streams"
	RoomAdminDashboard  = "admin-dashboard"
)

// StreamRoom returns the dynamic room name for one stream id.
func StreamRoom(streamID string) string {
	return "stream-" + streamID
}

// GroupInfo is the denormalized group embedded in event payloads.
type GroupInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ApparatusInfo is the denormalized apparatus embedded in event payloads.
type ApparatusInfo struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// StatusUpdatePayload announces one passage's status transition.
type StatusUpdatePayload struct {
	PassageID string         `json:"passageId"`
	Status    string         `json:"status"`
	Location  string         `json:"location,omitempty"`
	GroupName string         `json:"groupName,omitempty"`
	Group     *GroupInfo     `json:"group,omitempty"`
	Apparatus *ApparatusInfo `json:"apparatus,omitempty"`
	Score     *float64       `json:"score,omitempty"`
}

// ScoreUpdatePayload announces a published score.
type ScoreUpdatePayload struct {
	PassageID string   `json:"passageId"`
	Score     float64  `json:"score"`
	Status    string   `json:"status,omitempty"`
	Rank      int      `json:"rank,omitempty"`
	GroupName string   `json:"groupName,omitempty"`
}

// CurrentPassageInfo is the passage a stream is showing right now.
type CurrentPassageInfo struct {
	ID        string         `json:"id"`
	Group     *GroupInfo     `json:"group,omitempty"`
	Apparatus *ApparatusInfo `json:"apparatus,omitempty"`
	Status    string         `json:"status"`
	Location  string         `json:"location"`
}

// StreamUpdatePayload announces a stream's state, including which
// passage it currently shows (null when nothing is live there).
type StreamUpdatePayload struct {
	StreamID       string              `json:"streamId"`
	Name           string              `json:"name"`
	URL            string              `json:"url"`
	Location       string              `json:"location"`
	IsLive         bool                `json:"isLive"`
	CurrentPassage *CurrentPassageInfo `json:"currentPassage"`
}

// ScheduleUpdatePayload signals "re-fetch everything"; it carries no
// fields on purpose.
type ScheduleUpdatePayload struct{}

// DashboardUpdatePayload is the periodic operations snapshot pushed to
// the admin-dashboard room.
type DashboardUpdatePayload struct {
	Connections   int       `json:"connections"`
	Rooms         int       `json:"rooms"`
	LivePassages  int       `json:"livePassages"`
	DroppedFrames uint64    `json:"droppedFrames"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// Envelope is the single wire frame for server->client traffic.
type Envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is the client->server frame: join or leave one room.
type ClientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// Client->server actions.
const (
	ActionJoinRoom  = "join-room"
	ActionLeaveRoom = "leave-room"
)
