package realtime

import "regexp"

// streamRoomPattern matches dynamic per-stream rooms. The id grammar is
// the same 24 hex characters every domain record uses.
var streamRoomPattern = regexp.MustCompile(`^stream-[0-9a-fA-F]{24}$`)

// ValidRoom reports whether a client may join the given room. Join
// requests for anything else are silently ignored: no error reaches the
// sender, so the namespace cannot be probed.
func ValidRoom(room string) bool {
	switch room {
	case RoomLiveScores, RoomScheduleUpdates, RoomStreams, RoomAdminDashboard:
		return true
	}
	return streamRoomPattern.MatchString(room)
}
