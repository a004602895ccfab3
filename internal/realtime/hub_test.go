package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func drain(s *Session) []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-s.Out():
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestPublishReachesOnlyRoomMembers(t *testing.T) {
	h := NewHub(zap.NewNop())
	member := h.Connect()
	outsider := h.Connect()
	h.Join(member, RoomLiveScores)
	h.Join(outsider, RoomStreams)

	h.Publish(RoomLiveScores, EventScoreUpdate, ScoreUpdatePayload{PassageID: "p1", Score: 17.5})

	got := drain(member)
	require.Len(t, got, 1)
	assert.Equal(t, EventScoreUpdate, got[0].Event)
	assert.Equal(t, RoomLiveScores, got[0].Room)

	var payload ScoreUpdatePayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, "p1", payload.PassageID)
	assert.Equal(t, 17.5, payload.Score)

	assert.Empty(t, drain(outsider))
}

func TestJoinInvalidRoomIgnored(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Connect()
	h.Join(s, "definitely-not-a-room")
	h.Join(s, "stream-notahexid")

	h.Publish("definitely-not-a-room", EventStatusUpdate, StatusUpdatePayload{PassageID: "p1"})
	assert.Empty(t, drain(s))
}

func TestDynamicStreamRoom(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Connect()
	room := StreamRoom("64a1b2c3d4e5f60718293a4b")
	h.Join(s, room)

	h.Publish(room, EventStreamUpdate, StreamUpdatePayload{StreamID: "64a1b2c3d4e5f60718293a4b"})
	got := drain(s)
	require.Len(t, got, 1)
	assert.Equal(t, room, got[0].Room)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Connect()
	h.Join(s, RoomScheduleUpdates)
	h.Leave(s, RoomScheduleUpdates)

	h.Publish(RoomScheduleUpdates, EventScheduleUpdate, ScheduleUpdatePayload{})
	assert.Empty(t, drain(s))
}

func TestDisconnectDropsAllMembership(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Connect()
	h.Join(s, RoomLiveScores)
	h.Join(s, RoomStreams)
	h.Disconnect(s)

	// Publishing afterwards must not panic or deliver.
	h.Publish(RoomLiveScores, EventScoreUpdate, ScoreUpdatePayload{PassageID: "p1"})
	assert.Equal(t, 0, h.Stats().Sessions)
}

func TestSlowSessionDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Connect()
	h.Join(s, RoomLiveScores)

	// Never drained: the queue fills, then frames are dropped.
	for i := 0; i < sessionQueueSize+10; i++ {
		h.Publish(RoomLiveScores, EventScoreUpdate, ScoreUpdatePayload{PassageID: "p1"})
	}

	stats := h.Stats()
	assert.Equal(t, uint64(sessionQueueSize), stats.Delivered)
	assert.Equal(t, uint64(10), stats.Dropped)
}

func TestDisconnectSignalsDone(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Connect()

	select {
	case <-s.Done():
		t.Fatal("done fired before disconnect")
	default:
	}

	h.Disconnect(s)
	select {
	case <-s.Done():
	default:
		t.Fatal("done not signalled after disconnect")
	}
}

// Publishing races against disconnects: a publisher that snapshotted a
// member just before its disconnect must park the frame in the buffer,
// never panic the publishing goroutine.
func TestPublishConcurrentWithDisconnect(t *testing.T) {
	h := NewHub(zap.NewNop())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					h.Publish(RoomStreams, EventScheduleUpdate, ScheduleUpdatePayload{})
				}
			}
		}()
	}

	for i := 0; i < 5000; i++ {
		s := h.Connect()
		h.Join(s, RoomStreams)
		h.Disconnect(s)
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 0, h.Stats().Sessions)
	assert.Equal(t, 0, h.Stats().Rooms)
}

func TestDuplicateJoinDeliversOnce(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Connect()
	h.Join(s, RoomLiveScores)
	h.Join(s, RoomLiveScores)

	h.Publish(RoomLiveScores, EventScoreUpdate, ScoreUpdatePayload{PassageID: "p1"})
	assert.Len(t, drain(s), 1)
}
