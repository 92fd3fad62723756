package race

import "errors"

var (
	// ErrRoomNotFound is returned when no live room has the requested code
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a room already holds the maximum number of players
	ErrRoomFull = errors.New("room is full")
	// ErrRaceAlreadyStarted is returned when joining a room whose race has begun
	ErrRaceAlreadyStarted = errors.New("race has already started")
	// ErrAlreadyInRoom is returned when a connection joins the room it occupies
	ErrAlreadyInRoom = errors.New("already in room")
	// ErrNotInRoom is returned when a connection is not a member of any room
	ErrNotInRoom = errors.New("not in a room")
	// ErrInvalidLap marks a lap claim that is not exactly one above the stored
	// count. Rooms log and discard such claims.
	ErrInvalidLap = errors.New("invalid lap sequence")
	// ErrCodeSpaceExhausted is returned when no free room code could be found
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)

// joinErrorMessage maps a join failure to the text shown by clients
func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found."
	case errors.Is(err, ErrRoomFull):
		return "Room is full."
	case errors.Is(err, ErrRaceAlreadyStarted):
		return "Race has already started."
	case errors.Is(err, ErrAlreadyInRoom):
		return "You are already in this room."
	case errors.Is(err, ErrInvalidName):
		return "Player name is required."
	default:
		return "Could not join room."
	}
}
