package race

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrInvalidName is returned when a player name is blank
var ErrInvalidName = errors.New("player name is required")

// Store is the process-wide table of live rooms. Each room is owned by its
// own actor goroutine; the store only maps codes to rooms and keeps the
// connection registry in step with membership.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	registry *Registry
	codes    *CodeGenerator
	rules    Rules
	clock    clockwork.Clock
	sender   Sender
	emitter  Emitter
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock rooms use for timestamps
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithEmitter sets the sink for room lifecycle events
func WithEmitter(emitter Emitter) Option {
	return func(s *Store) { s.emitter = emitter }
}

// WithCodeGenerator overrides the room code generator
func WithCodeGenerator(codes *CodeGenerator) Option {
	return func(s *Store) { s.codes = codes }
}

// NewStore creates an empty store that replies to clients through sender
func NewStore(rules Rules, sender Sender, opts ...Option) (*Store, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid race rules: %w", err)
	}

	s := &Store{
		rooms:    make(map[string]*Room),
		registry: NewRegistry(),
		codes:    NewCodeGenerator(),
		rules:    rules,
		clock:    clockwork.NewRealClock(),
		sender:   sender,
		emitter:  discardEmitter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Rules returns the race rules rooms are created with
func (s *Store) Rules() Rules {
	return s.rules
}

// CreateRoom opens a new room with connID as its first player and replies
// roomCreated to the creator.
func (s *Store) CreateRoom(ctx context.Context, connID, playerName string) (string, error) {
	name, ok := s.sanitizeName(playerName)
	if !ok {
		return "", s.rejectJoin(connID, "", ErrInvalidName)
	}

	if _, inRoom := s.registry.Lookup(connID); inRoom {
		if err := s.LeaveRoom(ctx, connID); err != nil {
			return "", s.rejectJoin(connID, "", fmt.Errorf("leave current room: %w", err))
		}
	}

	s.mu.Lock()
	code, err := s.codes.Generate(func(candidate string) bool {
		_, taken := s.rooms[candidate]
		return taken
	})
	if err != nil {
		s.mu.Unlock()
		log.Error().
			Err(err).
			Str("connection_id", connID).
			Int("live_rooms", s.Len()).
			Msg("could not allocate room code")
		return "", s.rejectJoin(connID, "", err)
	}
	room := newRoom(code, s.rules, s.clock, s.sender, s.emitter, connID, name)
	s.rooms[code] = room
	s.mu.Unlock()

	s.registry.Bind(connID, code)
	room.announceCreated(connID)

	log.Info().
		Str("room_code", code).
		Str("connection_id", connID).
		Str("player_name", name).
		Msg("room created")

	return code, nil
}

// JoinRoom adds connID to the room with the given code. Every failure is
// answered with joinError.
func (s *Store) JoinRoom(ctx context.Context, connID, code, playerName string) error {
	code = NormalizeCode(code)
	name, ok := s.sanitizeName(playerName)
	if !ok {
		return s.rejectJoin(connID, code, ErrInvalidName)
	}
	if err := ctx.Err(); err != nil {
		return s.rejectJoin(connID, code, err)
	}

	if current, inRoom := s.registry.Lookup(connID); inRoom {
		if current == code {
			return s.rejectJoin(connID, code, ErrAlreadyInRoom)
		}
		if err := s.LeaveRoom(ctx, connID); err != nil {
			return s.rejectJoin(connID, code, fmt.Errorf("leave current room: %w", err))
		}
	}

	room, ok := s.room(code)
	if !ok {
		return s.rejectJoin(connID, code, ErrRoomNotFound)
	}

	if err := room.join(ctx, connID, name); err != nil {
		return s.rejectJoin(connID, code, err)
	}

	s.registry.Bind(connID, code)
	return nil
}

func (s *Store) rejectJoin(connID, code string, err error) error {
	frame, encErr := EncodeMessage(MsgJoinError, JoinErrorPayload{Message: joinErrorMessage(err)})
	if encErr == nil {
		s.sender.Send(connID, frame)
	}

	log.Info().
		Err(err).
		Str("room_code", code).
		Str("connection_id", connID).
		Msg("join refused")
	return err
}

// LeaveRoom removes connID from whichever room it occupies. An emptied room
// is removed from the store. A leave is never abandoned part way: ctx
// cancellation is ignored once the connection is known to be in a room.
func (s *Store) LeaveRoom(ctx context.Context, connID string) error {
	code, ok := s.registry.Lookup(connID)
	if !ok {
		return nil
	}

	room, ok := s.room(code)
	if !ok {
		s.registry.Unbind(connID)
		return nil
	}

	empty, err := room.leave(context.WithoutCancel(ctx), connID)
	s.registry.Unbind(connID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		return err
	}

	if empty {
		s.removeRoom(code, room)
	}
	return nil
}

// RequestUpdate sends the current player list of a room to connID. An empty
// code resolves to the sender's own room.
func (s *Store) RequestUpdate(connID, code string) error {
	code = NormalizeCode(code)
	if code == "" {
		var ok bool
		if code, ok = s.registry.Lookup(connID); !ok {
			return ErrNotInRoom
		}
	}

	room, ok := s.room(code)
	if !ok || !room.sendSnapshot(connID) {
		return ErrRoomNotFound
	}
	return nil
}

// UpdatePose overwrites the sender's pose and relays it to the room
func (s *Store) UpdatePose(connID string, pos Vec3, rot Quaternion) error {
	room, err := s.memberRoom(connID)
	if err != nil {
		return err
	}
	if !room.updatePose(connID, pos, rot) {
		return ErrRoomNotFound
	}
	return nil
}

// CompleteLap submits a lap claim for validation by the sender's room
func (s *Store) CompleteLap(connID string, lap int) error {
	room, err := s.memberRoom(connID)
	if err != nil {
		return err
	}
	if !room.completeLap(connID, lap) {
		return ErrRoomNotFound
	}
	return nil
}

// Room returns a summary of the room with the given code
func (s *Store) Room(ctx context.Context, code string) (Summary, error) {
	room, ok := s.room(NormalizeCode(code))
	if !ok {
		return Summary{}, ErrRoomNotFound
	}
	return room.summary(ctx)
}

// Rooms returns summaries of every live room ordered by code
func (s *Store) Rooms(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.RUnlock()

	summaries := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		summary, err := room.summary(ctx)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Code < summaries[j].Code })
	return summaries, nil
}

// RoomOf returns the code of the room connID occupies
func (s *Store) RoomOf(connID string) (string, bool) {
	return s.registry.Lookup(connID)
}

// Len returns the number of live rooms
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Members returns the number of connections currently in a room
func (s *Store) Members() int {
	return s.registry.Len()
}

// Close stops every room actor
func (s *Store) Close() {
	s.mu.Lock()
	rooms := s.rooms
	s.rooms = make(map[string]*Room)
	s.mu.Unlock()

	for _, room := range rooms {
		room.shutdown()
	}
	log.Info().Int("rooms", len(rooms)).Msg("room store closed")
}

func (s *Store) room(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *Store) memberRoom(connID string) (*Room, error) {
	code, ok := s.registry.Lookup(connID)
	if !ok {
		return nil, ErrNotInRoom
	}
	room, ok := s.room(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// removeRoom deletes code only if it still maps to room
func (s *Store) removeRoom(code string, room *Room) {
	s.mu.Lock()
	if current, ok := s.rooms[code]; ok && current == room {
		delete(s.rooms, code)
	}
	s.mu.Unlock()

	log.Info().Str("room_code", code).Msg("room removed")
}

func (s *Store) sanitizeName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if utf8.RuneCountInString(name) > s.rules.MaxNameLength {
		name = string([]rune(name)[:s.rules.MaxNameLength])
	}
	return name, true
}
