package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRoom(t *testing.T) {
	valid := []string{
		RoomLiveScores,
		RoomScheduleUpdates,
		RoomStreams,
		RoomAdminDashboard,
		"stream-64a1b2c3d4e5f60718293a4b",
		"stream-ABCDEF0123456789abcdef01",
	}
	for _, room := range valid {
		assert.True(t, ValidRoom(room), room)
	}

	invalid := []string{
		"",
		"scores",
		"stream-",
		"stream-xyz",
		"stream-64a1b2c3d4e5f60718293a4",   // 23 chars
		"stream-64a1b2c3d4e5f60718293a4b7", // 25 chars
		"STREAM-64a1b2c3d4e5f60718293a4b",
		"live-scores ",
	}
	for _, room := range invalid {
		assert.False(t, ValidRoom(room), room)
	}
}
