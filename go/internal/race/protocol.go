package race

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// MessageType tags every frame exchanged on the event channel
type MessageType string

// Inbound (client → server)
const (
	MsgCreateRoom   MessageType = "createRoom"
	MsgJoinRoom     MessageType = "joinRoom"
	MsgGetUpdate    MessageType = "getUpdate"
	MsgPlayerUpdate MessageType = "playerUpdate"
	MsgLapCompleted MessageType = "lapCompleted"
	MsgLeaveRoom    MessageType = "leaveRoom"
)

// Outbound (server → client). lapCompleted is shared with the inbound set.
const (
	MsgRoomCreated        MessageType = "roomCreated"
	MsgJoinError          MessageType = "joinError"
	MsgJoinSuccess        MessageType = "joinSuccess"
	MsgRaceStart          MessageType = "raceStart"
	MsgCurrentPlayers     MessageType = "currentPlayers"
	MsgNewPlayer          MessageType = "newPlayer"
	MsgOpponentUpdate     MessageType = "opponentUpdate"
	MsgPlayerWon          MessageType = "playerWon"
	MsgPlayerDisconnected MessageType = "playerDisconnected"
)

// Message is the envelope of every frame
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// EncodeMessage marshals an outbound frame
func EncodeMessage(t MessageType, data any) ([]byte, error) {
	return json.Marshal(outbound{Type: t, Data: data})
}

// errMalformed marks a payload that fails shape checks
var errMalformed = errors.New("malformed payload")

// CreateRoomRequest is the createRoom payload
type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

// JoinRoomRequest is the joinRoom payload
type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// GetUpdateRequest is the getUpdate payload; an empty code means the sender's room
type GetUpdateRequest struct {
	RoomCode string `json:"roomCode"`
}

type wireVec3 struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type wireQuaternion struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
	W *float64 `json:"w"`
}

// PlayerUpdateRequest is the playerUpdate payload. Fields are pointers so
// that absent components can be told apart from zero.
type PlayerUpdateRequest struct {
	Position *wireVec3       `json:"position"`
	Rotation *wireQuaternion `json:"rotation"`
}

// Pose validates the payload and returns the reported pose
func (r PlayerUpdateRequest) Pose() (Vec3, Quaternion, error) {
	if r.Position == nil || r.Rotation == nil {
		return Vec3{}, Quaternion{}, errMalformed
	}
	pos, ok := finite(r.Position.X, r.Position.Y, r.Position.Z)
	if !ok {
		return Vec3{}, Quaternion{}, errMalformed
	}
	rot, ok := finite(r.Rotation.X, r.Rotation.Y, r.Rotation.Z, r.Rotation.W)
	if !ok {
		return Vec3{}, Quaternion{}, errMalformed
	}
	return Vec3{X: pos[0], Y: pos[1], Z: pos[2]},
		Quaternion{X: rot[0], Y: rot[1], Z: rot[2], W: rot[3]},
		nil
}

func finite(vals ...*float64) ([]float64, bool) {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil, false
		}
		out[i] = *v
	}
	return out, true
}

// LapCompletedRequest is the inbound lapCompleted payload
type LapCompletedRequest struct {
	LapCount *int `json:"lapCount"`
}

// RoomCreatedPayload is sent to the creator of a room
type RoomCreatedPayload struct {
	Code    string            `json:"code"`
	ID      string            `json:"id"`
	Players map[string]Player `json:"players"`
}

// JoinErrorPayload is sent when a create or join request is refused
type JoinErrorPayload struct {
	Message string `json:"message"`
}

// JoinSuccessPayload is sent to a player who joined a room
type JoinSuccessPayload struct {
	Code    string            `json:"code"`
	ID      string            `json:"id"`
	Players map[string]Player `json:"players"`
}

// RaceStartPayload is sent to the whole room when the race begins
type RaceStartPayload struct {
	Code      string            `json:"code"`
	Players   map[string]Player `json:"players"`
	LapTarget int               `json:"lapTarget"`
	StartedAt time.Time         `json:"startedAt"`
}

// CurrentPlayersPayload answers a getUpdate request
type CurrentPlayersPayload struct {
	Code    string            `json:"code"`
	Status  Status            `json:"status"`
	Players map[string]Player `json:"players"`
}

// LapCompletedPayload announces an accepted lap
type LapCompletedPayload struct {
	ID       string `json:"id"`
	LapCount int    `json:"lapCount"`
}

// PlayerWonPayload announces the first player to reach the lap target
type PlayerWonPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LapCount  int    `json:"lapCount"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// PlayerDisconnectedPayload announces a player leaving the room
type PlayerDisconnectedPayload struct {
	ID string `json:"id"`
}
