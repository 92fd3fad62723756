package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race/events"
)

type memoryPublisher struct {
	mu        sync.Mutex
	published []events.Event
	fail      bool
}

func (p *memoryPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("bus unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *memoryPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func mustEvent(t *testing.T, eventType events.EventType, code string) events.Event {
	t.Helper()
	event, err := events.New(eventType, code, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), events.PlayerLeftPayload{
		RoomCode: code,
		PlayerID: "p1",
		Players:  1,
	})
	require.NoError(t, err)
	return event
}

func TestRelay_PublishesInOrder(t *testing.T) {
	pub := &memoryPublisher{}
	relay := events.NewRelay(pub, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	relay.Emit(mustEvent(t, events.EventTypeRoomCreated, "AB12"))
	relay.Emit(mustEvent(t, events.EventTypePlayerJoined, "AB12"))

	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, events.EventTypeRoomCreated, pub.published[0].Type)
	assert.Equal(t, events.EventTypePlayerJoined, pub.published[1].Type)
}

func TestRelay_DropsWhenFull(t *testing.T) {
	pub := &memoryPublisher{}
	relay := events.NewRelay(pub, 1)

	// not started: the second emit must not block
	relay.Emit(mustEvent(t, events.EventTypeRoomCreated, "AB12"))
	relay.Emit(mustEvent(t, events.EventTypeRoomClosed, "AB12"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return pub.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRelay_SurvivesPublishErrors(t *testing.T) {
	pub := &memoryPublisher{fail: true}
	relay := events.NewRelay(pub, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	relay.Emit(mustEvent(t, events.EventTypeRoomCreated, "AB12"))

	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()

	relay.Emit(mustEvent(t, events.EventTypeRoomClosed, "AB12"))
	require.Eventually(t, func() bool { return pub.count() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestEvent_Envelope(t *testing.T) {
	event := mustEvent(t, events.EventTypePlayerLeft, "ZZ99")

	data, err := json.Marshal(event.Envelope())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, event.ID.String(), got["eventId"])
	assert.Equal(t, "PlayerLeft", got["eventType"])
	assert.Equal(t, "ZZ99", got["roomCode"])
	assert.Equal(t, "2025-01-02T03:04:05Z", got["timestamp"])
	assert.Equal(t, map[string]any{"room_code": "ZZ99", "player_id": "p1", "players": float64(1)}, got["payload"])
}

func TestSubject(t *testing.T) {
	event := mustEvent(t, events.EventTypeRaceStarted, "AB12")
	assert.Equal(t, "race.events.AB12.RaceStarted", events.Subject("race.events", event))
}

func TestNew_UniqueIDs(t *testing.T) {
	a := mustEvent(t, events.EventTypeRoomCreated, "AB12")
	b := mustEvent(t, events.EventTypeRoomCreated, "AB12")
	assert.NotEqual(t, a.ID, b.ID)
}
