package race_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race"
)

func TestPlayerUpdateRequest_Pose(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		pos     race.Vec3
		rot     race.Quaternion
	}{
		{
			name:    "complete pose",
			payload: `{"position":{"x":1,"y":0.5,"z":-3},"rotation":{"x":0,"y":0,"z":0,"w":1}}`,
			pos:     race.Vec3{X: 1, Y: 0.5, Z: -3},
			rot:     race.Quaternion{W: 1},
		},
		{
			name:    "zero components are kept",
			payload: `{"position":{"x":0,"y":0,"z":0},"rotation":{"x":0,"y":0,"z":0,"w":0}}`,
		},
		{
			name:    "missing rotation",
			payload: `{"position":{"x":1,"y":2,"z":3}}`,
			wantErr: true,
		},
		{
			name:    "missing w",
			payload: `{"position":{"x":1,"y":2,"z":3},"rotation":{"x":0,"y":0,"z":0}}`,
			wantErr: true,
		},
		{
			name:    "missing position component",
			payload: `{"position":{"x":1,"z":3},"rotation":{"x":0,"y":0,"z":0,"w":1}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req race.PlayerUpdateRequest
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &req))

			pos, rot, err := req.Pose()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pos, pos)
			assert.Equal(t, tt.rot, rot)
		})
	}
}

func TestEncodeMessage(t *testing.T) {
	frame, err := race.EncodeMessage(race.MsgJoinError, race.JoinErrorPayload{Message: "Room is full."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"joinError","data":{"message":"Room is full."}}`, string(frame))

	frame, err = race.EncodeMessage(race.MsgNewPlayer, race.Player{
		ID:       "abc",
		Name:     "Alice",
		Position: race.StartPosition,
		Rotation: race.StartRotation,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"newPlayer","data":{
		"id":"abc","name":"Alice",
		"position":{"x":0,"y":0.5,"z":55},
		"rotation":{"x":0,"y":0,"z":0,"w":1},
		"lapCount":0}}`, string(frame))
}
