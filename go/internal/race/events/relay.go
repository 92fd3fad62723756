package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Relay hands events from room actors to a Publisher on its own goroutine so
// that a slow bus never stalls a room.
type Relay struct {
	publisher Publisher
	ch        chan Event
}

// NewRelay creates a relay with the given buffer size
func NewRelay(publisher Publisher, buffer int) *Relay {
	return &Relay{
		publisher: publisher,
		ch:        make(chan Event, buffer),
	}
}

// Emit queues an event; it drops the event when the buffer is full
func (r *Relay) Emit(event Event) {
	select {
	case r.ch <- event:
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("room_code", event.RoomCode).
			Msg("event relay buffer full, dropping event")
	}
}

// Start publishes queued events until ctx is cancelled
func (r *Relay) Start(ctx context.Context) {
	log.Info().Msg("event relay started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("dropped", len(r.ch)).Msg("event relay shutting down")
			return
		case event := <-r.ch:
			r.publish(ctx, event)
		}
	}
}

func (r *Relay) publish(ctx context.Context, event Event) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := r.publisher.Publish(pubCtx, event); err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID.String()).
			Str("event_type", string(event.Type)).
			Str("room_code", event.RoomCode).
			Msg("failed to publish room event")
	}
}
