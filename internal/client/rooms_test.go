package client

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingTransport struct {
	mu     sync.Mutex
	joins  []string
	leaves []string
}

func (t *recordingTransport) JoinRoom(room string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joins = append(t.joins, room)
	return nil
}

func (t *recordingTransport) LeaveRoom(room string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, room)
	return nil
}

func TestSubscribeJoinsOnlyOnFirstReference(t *testing.T) {
	tr := &recordingTransport{}
	m := NewRoomManager(tr)

	m.Subscribe("live-scores")
	m.Subscribe("live-scores")
	m.Subscribe("live-scores")

	assert.Equal(t, []string{"live-scores"}, tr.joins)
}

func TestUnsubscribeLeavesOnlyOnLastReference(t *testing.T) {
	tr := &recordingTransport{}
	m := NewRoomManager(tr)

	m.Subscribe("live-scores")
	m.Subscribe("live-scores")
	m.Unsubscribe("live-scores")
	assert.Empty(t, tr.leaves)

	m.Unsubscribe("live-scores")
	assert.Equal(t, []string{"live-scores"}, tr.leaves)

	// Unbalanced unsubscribes stay silent.
	m.Unsubscribe("live-scores")
	assert.Equal(t, []string{"live-scores"}, tr.leaves)
}

func TestRejoinAfterFullRelease(t *testing.T) {
	tr := &recordingTransport{}
	m := NewRoomManager(tr)

	m.Subscribe("streams")
	m.Unsubscribe("streams")
	m.Subscribe("streams")

	assert.Equal(t, []string{"streams", "streams"}, tr.joins)
}

func TestResubscribeReplaysReferencedRooms(t *testing.T) {
	tr := &recordingTransport{}
	m := NewRoomManager(tr)

	m.Subscribe("live-scores", "streams")
	m.Subscribe("streams")
	m.Unsubscribe("live-scores")

	tr.joins = nil
	m.Resubscribe()

	assert.ElementsMatch(t, []string{"streams"}, tr.joins)
}

func TestRoomsSnapshot(t *testing.T) {
	tr := &recordingTransport{}
	m := NewRoomManager(tr)

	m.Subscribe("live-scores", "streams", "schedule-updates")
	m.Unsubscribe("streams")

	assert.ElementsMatch(t, []string{"live-scores", "schedule-updates"}, m.Rooms())
}
