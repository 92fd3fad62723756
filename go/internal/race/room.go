package race

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race/events"
)

const roomInboxSize = 128

// Emitter receives room lifecycle events
type Emitter interface {
	Emit(event events.Event)
}

type discardEmitter struct{}

func (discardEmitter) Emit(events.Event) {}

// Room is a single race session. All state below the inbox is owned by the
// room's actor goroutine and must only be touched from closures it runs.
//
// Lifecycle:
//
//	forming → active → finished
//
// forming → active when membership reaches Rules.MinPlayers.
// active → finished when the first player completes Rules.LapTarget laps.
// Lap claims are only accepted while active.
type Room struct {
	code    string
	rules   Rules
	clock   clockwork.Clock
	out     fanout
	emitter Emitter

	inbox    chan func()
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	players   map[string]*Player
	order     []string // join order
	status    Status
	createdAt time.Time
	startedAt time.Time
	winnerID  string
	closed    bool
}

func newRoom(code string, rules Rules, clock clockwork.Clock, sender Sender, emitter Emitter, creatorID, creatorName string) *Room {
	r := &Room{
		code:      code,
		rules:     rules,
		clock:     clock,
		out:       fanout{sender: sender, code: code},
		emitter:   emitter,
		inbox:     make(chan func(), roomInboxSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		players:   make(map[string]*Player),
		status:    StatusForming,
		createdAt: clock.Now(),
	}

	r.addPlayer(creatorID, creatorName)

	go r.run()

	return r
}

// Code returns the room code
func (r *Room) Code() string {
	return r.code
}

func (r *Room) run() {
	defer close(r.done)

	for {
		select {
		case fn := <-r.inbox:
			fn()
			if r.closed {
				log.Debug().Str("room_code", r.code).Msg("room actor stopped")
				return
			}
		case <-r.stop:
			return
		}
	}
}

// post queues fn without waiting for it to run. It reports false when the
// room has shut down, including when shutdown races the enqueue. A true
// result can still be followed by a shutdown that discards fn; callers only
// post work that is moot once the room is gone.
func (r *Room) post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	select {
	case r.inbox <- fn:
	case <-r.done:
		return false
	}

	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// call runs fn on the actor and waits for it. Once fn is queued the call no
// longer honours ctx, so a queued mutation is never half-observed.
func (r *Room) call(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	wrapped := func() {
		fn()
		close(reply)
	}

	select {
	case <-r.done:
		return ErrRoomNotFound
	default:
	}

	select {
	case r.inbox <- wrapped:
	case <-r.done:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-r.done:
		select {
		case <-reply:
			return nil
		default:
			return ErrRoomNotFound
		}
	}
}

// shutdown stops the actor without notifying members
func (r *Room) shutdown() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}

func (r *Room) announceCreated(creatorID string) bool {
	return r.post(func() {
		r.out.unicast(creatorID, MsgRoomCreated, RoomCreatedPayload{
			Code:    r.code,
			ID:      creatorID,
			Players: r.playerMap(),
		})
		r.emit(events.EventTypeRoomCreated, events.RoomCreatedPayload{
			RoomCode:  r.code,
			CreatorID: creatorID,
			CreatedAt: r.createdAt,
		})
	})
}

func (r *Room) join(ctx context.Context, connID, name string) error {
	var err error
	if cerr := r.call(ctx, func() { err = r.handleJoin(connID, name) }); cerr != nil {
		return cerr
	}
	return err
}

func (r *Room) leave(ctx context.Context, connID string) (bool, error) {
	var empty bool
	if err := r.call(ctx, func() { empty = r.handleLeave(connID) }); err != nil {
		return false, err
	}
	return empty, nil
}

func (r *Room) updatePose(connID string, pos Vec3, rot Quaternion) bool {
	return r.post(func() { r.handlePose(connID, pos, rot) })
}

func (r *Room) completeLap(connID string, lap int) bool {
	return r.post(func() {
		if err := r.handleLap(connID, lap); err != nil {
			log.Warn().
				Err(err).
				Str("room_code", r.code).
				Str("connection_id", connID).
				Int("claimed_lap", lap).
				Msg("lap claim rejected")
		}
	})
}

func (r *Room) sendSnapshot(connID string) bool {
	return r.post(func() {
		r.out.unicast(connID, MsgCurrentPlayers, CurrentPlayersPayload{
			Code:    r.code,
			Status:  r.status,
			Players: r.playerMap(),
		})
	})
}

func (r *Room) summary(ctx context.Context) (Summary, error) {
	var s Summary
	if err := r.call(ctx, func() { s = r.snapshot() }); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func (r *Room) handleJoin(connID, name string) error {
	if r.status.Started() {
		return ErrRaceAlreadyStarted
	}
	if len(r.players) >= r.rules.MaxPlayers {
		return ErrRoomFull
	}
	if _, exists := r.players[connID]; exists {
		return ErrAlreadyInRoom
	}

	p := r.addPlayer(connID, name)

	r.out.unicast(connID, MsgJoinSuccess, JoinSuccessPayload{
		Code:    r.code,
		ID:      connID,
		Players: r.playerMap(),
	})
	r.out.others(r.order, connID, MsgNewPlayer, *p)
	r.emit(events.EventTypePlayerJoined, events.PlayerJoinedPayload{
		RoomCode:   r.code,
		PlayerID:   connID,
		PlayerName: name,
		Players:    len(r.players),
	})

	log.Info().
		Str("room_code", r.code).
		Str("connection_id", connID).
		Str("player_name", name).
		Int("players", len(r.players)).
		Msg("player joined room")

	r.maybeStart()
	return nil
}

func (r *Room) maybeStart() {
	if r.status != StatusForming || len(r.players) < r.rules.MinPlayers {
		return
	}

	r.status = StatusActive
	r.startedAt = r.clock.Now()

	r.out.all(r.order, MsgRaceStart, RaceStartPayload{
		Code:      r.code,
		Players:   r.playerMap(),
		LapTarget: r.rules.LapTarget,
		StartedAt: r.startedAt,
	})
	r.emit(events.EventTypeRaceStarted, events.RaceStartedPayload{
		RoomCode:  r.code,
		StartedAt: r.startedAt,
		Players:   len(r.players),
		LapTarget: r.rules.LapTarget,
	})

	log.Info().
		Str("room_code", r.code).
		Int("players", len(r.players)).
		Msg("race started")
}

// handleLeave removes connID and reports whether the room is now empty
func (r *Room) handleLeave(connID string) bool {
	if _, exists := r.players[connID]; !exists {
		return len(r.players) == 0
	}

	delete(r.players, connID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == connID })

	r.emit(events.EventTypePlayerLeft, events.PlayerLeftPayload{
		RoomCode: r.code,
		PlayerID: connID,
		Players:  len(r.players),
	})

	log.Info().
		Str("room_code", r.code).
		Str("connection_id", connID).
		Int("players", len(r.players)).
		Msg("player left room")

	if len(r.players) == 0 {
		r.closed = true
		r.emit(events.EventTypeRoomClosed, events.RoomClosedPayload{
			RoomCode: r.code,
			ClosedAt: r.clock.Now(),
			Reason:   "empty",
		})
		return true
	}

	r.out.all(r.order, MsgPlayerDisconnected, PlayerDisconnectedPayload{ID: connID})
	return false
}

func (r *Room) handlePose(connID string, pos Vec3, rot Quaternion) {
	p, ok := r.players[connID]
	if !ok {
		return
	}
	p.Position = pos
	p.Rotation = rot
	r.out.others(r.order, connID, MsgOpponentUpdate, *p)
}

func (r *Room) handleLap(connID string, lap int) error {
	p, ok := r.players[connID]
	if !ok {
		return ErrNotInRoom
	}
	if r.status != StatusActive {
		return fmt.Errorf("%w: race is %s", ErrInvalidLap, r.status)
	}
	if lap != p.LapCount+1 {
		return fmt.Errorf("%w: claimed %d after %d", ErrInvalidLap, lap, p.LapCount)
	}

	p.LapCount = lap
	r.out.others(r.order, connID, MsgLapCompleted, LapCompletedPayload{
		ID:       connID,
		LapCount: lap,
	})

	log.Debug().
		Str("room_code", r.code).
		Str("connection_id", connID).
		Int("lap", lap).
		Msg("lap accepted")

	if lap >= r.rules.LapTarget && r.winnerID == "" {
		r.finish(p)
	}
	return nil
}

func (r *Room) finish(winner *Player) {
	r.winnerID = winner.ID
	r.status = StatusFinished

	finishedAt := r.clock.Now()
	elapsed := finishedAt.Sub(r.startedAt)

	r.out.all(r.order, MsgPlayerWon, PlayerWonPayload{
		ID:        winner.ID,
		Name:      winner.Name,
		LapCount:  winner.LapCount,
		ElapsedMs: elapsed.Milliseconds(),
	})
	r.emit(events.EventTypePlayerWon, events.PlayerWonPayload{
		RoomCode:   r.code,
		PlayerID:   winner.ID,
		PlayerName: winner.Name,
		Laps:       winner.LapCount,
		FinishedAt: finishedAt,
		Duration:   elapsed.String(),
	})

	log.Info().
		Str("room_code", r.code).
		Str("winner_id", winner.ID).
		Dur("elapsed", elapsed).
		Msg("race finished")
}

func (r *Room) addPlayer(id, name string) *Player {
	p := newPlayer(id, name)
	r.players[id] = p
	r.order = append(r.order, id)
	return p
}

func (r *Room) playerMap() map[string]Player {
	out := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		out[id] = *p
	}
	return out
}

func (r *Room) snapshot() Summary {
	s := Summary{
		Code:      r.code,
		Status:    r.status,
		Players:   make([]Player, 0, len(r.order)),
		WinnerID:  r.winnerID,
		CreatedAt: r.createdAt,
	}
	for _, id := range r.order {
		s.Players = append(s.Players, *r.players[id])
	}
	if r.status.Started() {
		startedAt := r.startedAt
		s.StartedAt = &startedAt
	}
	return s
}

func (r *Room) emit(eventType events.EventType, payload any) {
	event, err := events.New(eventType, r.code, r.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("room_code", r.code).Msg("failed to build room event")
		return
	}
	r.emitter.Emit(event)
}
