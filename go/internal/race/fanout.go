package race

import (
	"github.com/rs/zerolog/log"
)

// Sender delivers an encoded frame to one connection. Implementations must
// not block; the room actor calls Send while holding the room.
type Sender interface {
	Send(connID string, frame []byte)
}

// fanout addresses frames to the members of one room
type fanout struct {
	sender Sender
	code   string
}

// unicast replies only to the given connection
func (f fanout) unicast(connID string, t MessageType, data any) {
	frame, ok := f.encode(t, data)
	if !ok {
		return
	}
	f.sender.Send(connID, frame)
}

// others sends to every member except the sender
func (f fanout) others(members []string, sender string, t MessageType, data any) {
	frame, ok := f.encode(t, data)
	if !ok {
		return
	}
	for _, id := range members {
		if id == sender {
			continue
		}
		f.sender.Send(id, frame)
	}
}

// all sends to every member of the room
func (f fanout) all(members []string, t MessageType, data any) {
	frame, ok := f.encode(t, data)
	if !ok {
		return
	}
	for _, id := range members {
		f.sender.Send(id, frame)
	}
}

func (f fanout) encode(t MessageType, data any) ([]byte, bool) {
	frame, err := EncodeMessage(t, data)
	if err != nil {
		log.Error().
			Err(err).
			Str("room_code", f.code).
			Str("message_type", string(t)).
			Msg("failed to encode outbound message")
		return nil, false
	}
	return frame, true
}
