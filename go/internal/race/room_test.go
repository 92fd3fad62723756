package race

import (
	"context"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSender struct {
	mu    sync.Mutex
	count map[string]int
}

func (c *countingSender) Send(connID string, _ []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == nil {
		c.count = make(map[string]int)
	}
	c.count[connID]++
}

func TestRoom_JoinFullRoom(t *testing.T) {
	// a single seat that never fills the start threshold
	rules := Rules{MaxPlayers: 1, MinPlayers: 2, LapTarget: 3, MaxNameLength: 24}
	room := newRoom("FULL", rules, clockwork.NewFakeClock(), &countingSender{}, discardEmitter{}, "A", "Alice")
	t.Cleanup(room.shutdown)

	err := room.join(context.Background(), "B", "Bob")
	require.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, "Room is full.", joinErrorMessage(err))

	summary, err := room.summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Players, 1)
	assert.Equal(t, StatusForming, summary.Status)
}

func TestRoom_ClosedRoomRefusesWork(t *testing.T) {
	ctx := context.Background()
	room := newRoom("GONE", DefaultRules(), clockwork.NewFakeClock(), &countingSender{}, discardEmitter{}, "A", "Alice")

	empty, err := room.leave(ctx, "A")
	require.NoError(t, err)
	require.True(t, empty)

	<-room.done

	assert.ErrorIs(t, room.join(ctx, "B", "Bob"), ErrRoomNotFound)
	_, err = room.summary(ctx)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.False(t, room.completeLap("A", 1))
	assert.False(t, room.updatePose("A", StartPosition, StartRotation))
}

func TestRoom_PostAfterShutdownAlwaysRefused(t *testing.T) {
	for i := 0; i < 100; i++ {
		room := newRoom("GONE", DefaultRules(), clockwork.NewFakeClock(), &countingSender{}, discardEmitter{}, "A", "Alice")
		room.shutdown()

		ran := false
		assert.False(t, room.post(func() { ran = true }))
		assert.False(t, room.completeLap("A", 1))
		assert.False(t, room.updatePose("A", StartPosition, StartRotation))
		assert.False(t, ran)
	}
}

func TestRoom_CallHonoursCancelledContext(t *testing.T) {
	room := newRoom("WAIT", DefaultRules(), clockwork.NewFakeClock(), &countingSender{}, discardEmitter{}, "A", "Alice")
	t.Cleanup(room.shutdown)

	// occupy the actor until the inbox is full
	block := make(chan struct{})
	require.True(t, room.post(func() { <-block }))
	for i := 0; i < roomInboxSize; i++ {
		require.True(t, room.post(func() {}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := room.join(ctx, "B", "Bob")
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
	summary, err := room.summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Players, 1)
}

func TestRoom_LeaveUnknownIsNoop(t *testing.T) {
	sender := &countingSender{}
	room := newRoom("NOOP", DefaultRules(), clockwork.NewFakeClock(), sender, discardEmitter{}, "A", "Alice")
	t.Cleanup(room.shutdown)

	empty, err := room.leave(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Zero(t, sender.count["A"])
}

func TestRules_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(r *Rules)
		wantErr string
	}{
		{name: "defaults", modify: func(r *Rules) {}},
		{name: "solo race", modify: func(r *Rules) { r.MinPlayers = 1 }, wantErr: "min_players"},
		{name: "seats below start", modify: func(r *Rules) { r.MaxPlayers = 1 }, wantErr: "max_players"},
		{name: "no laps", modify: func(r *Rules) { r.LapTarget = 0 }, wantErr: "lap_target"},
		{name: "no name", modify: func(r *Rules) { r.MaxNameLength = 0 }, wantErr: "max_name_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.modify(&rules)
			err := rules.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
