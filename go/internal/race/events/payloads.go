package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a room lifecycle event
type EventType string

const (
	EventTypeRoomCreated  EventType = "RoomCreated"
	EventTypePlayerJoined EventType = "PlayerJoined"
	EventTypeRaceStarted  EventType = "RaceStarted"
	EventTypePlayerWon    EventType = "PlayerWon"
	EventTypePlayerLeft   EventType = "PlayerLeft"
	EventTypeRoomClosed   EventType = "RoomClosed"
)

// Event is a lifecycle event emitted by a room
type Event struct {
	ID        uuid.UUID
	Type      EventType
	RoomCode  string
	CreatedAt time.Time
	Payload   json.RawMessage
}

// New builds an event with a fresh id and the marshalled payload
func New(eventType EventType, roomCode string, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		RoomCode:  roomCode,
		CreatedAt: at,
		Payload:   data,
	}, nil
}

// Envelope is the wire form published to the message bus
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType EventType       `json:"eventType"`
	RoomCode  string          `json:"roomCode"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Envelope converts the event to its wire form
func (e Event) Envelope() Envelope {
	return Envelope{
		EventID:   e.ID.String(),
		EventType: e.Type,
		RoomCode:  e.RoomCode,
		Timestamp: e.CreatedAt,
		Payload:   e.Payload,
	}
}

// RoomCreatedPayload is the payload for a RoomCreated event
type RoomCreatedPayload struct {
	RoomCode  string    `json:"room_code"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	RoomCode   string `json:"room_code"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Players    int    `json:"players"`
}

// RaceStartedPayload is the payload for a RaceStarted event
type RaceStartedPayload struct {
	RoomCode  string    `json:"room_code"`
	StartedAt time.Time `json:"started_at"`
	Players   int       `json:"players"`
	LapTarget int       `json:"lap_target"`
}

// PlayerWonPayload is the payload for a PlayerWon event
type PlayerWonPayload struct {
	RoomCode   string    `json:"room_code"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Laps       int       `json:"laps"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   string    `json:"duration"`
}

// PlayerLeftPayload is the payload for a PlayerLeft event
type PlayerLeftPayload struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	Players  int    `json:"players"`
}

// RoomClosedPayload is the payload for a RoomClosed event
type RoomClosedPayload struct {
	RoomCode string    `json:"room_code"`
	ClosedAt time.Time `json:"closed_at"`
	Reason   string    `json:"reason"`
}
