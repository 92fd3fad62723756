package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race"
)

var errMissingField = errors.New("missing required field")

// handleClientMessage decodes one inbound frame and drives the room store.
// Malformed frames are logged and dropped; the connection stays open.
func (c *Connection) handleClientMessage(message []byte) {
	var msg race.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.dropMessage("", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.RequestTimeout)
	defer cancel()

	rooms := c.Manager.rooms
	var err error

	switch msg.Type {
	case race.MsgCreateRoom:
		var req race.CreateRoomRequest
		if err = decode(msg.Data, &req); err == nil {
			_, err = rooms.CreateRoom(ctx, c.ID, req.PlayerName)
		}

	case race.MsgJoinRoom:
		var req race.JoinRoomRequest
		if err = decode(msg.Data, &req); err == nil {
			err = rooms.JoinRoom(ctx, c.ID, req.RoomCode, req.PlayerName)
		}

	case race.MsgGetUpdate:
		var req race.GetUpdateRequest
		if len(msg.Data) > 0 {
			err = decode(msg.Data, &req)
		}
		if err == nil {
			err = rooms.RequestUpdate(c.ID, req.RoomCode)
		}

	case race.MsgPlayerUpdate:
		var req race.PlayerUpdateRequest
		if err = decode(msg.Data, &req); err == nil {
			pos, rot, perr := req.Pose()
			if perr != nil {
				err = perr
				break
			}
			err = rooms.UpdatePose(c.ID, pos, rot)
		}

	case race.MsgLapCompleted:
		var req race.LapCompletedRequest
		if err = decode(msg.Data, &req); err == nil {
			if req.LapCount == nil {
				err = errMissingField
				break
			}
			err = rooms.CompleteLap(c.ID, *req.LapCount)
		}

	case race.MsgLeaveRoom:
		err = rooms.LeaveRoom(ctx, c.ID)

	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("message_type", string(msg.Type)).
			Msg("ignoring unknown message type")
		return
	}

	if err != nil {
		c.dropMessage(msg.Type, err)
	}
}

// dropMessage logs a client message that was not applied
func (c *Connection) dropMessage(t race.MessageType, err error) {
	event := log.Debug()
	switch {
	case errors.Is(err, race.ErrCodeSpaceExhausted):
		event = log.Error()
	case errors.Is(err, context.DeadlineExceeded):
		event = log.Warn()
	}

	event.
		Err(err).
		Str("connection_id", c.ID).
		Str("message_type", string(t)).
		Msg("client message not applied")
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errMissingField
	}
	return json.Unmarshal(data, v)
}
