package race

import (
	"fmt"
	"time"
)

// Vec3 is a world-space position reported by a client
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a client-reported orientation
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Canonical start pose for every player entering a room. The Z offset
// matches the client's starting grid.
var (
	StartPosition = Vec3{X: 0, Y: 0.5, Z: 55}
	StartRotation = Quaternion{X: 0, Y: 0, Z: 0, W: 1}
)

// Player is the per-connection race state held by a room
type Player struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position Vec3       `json:"position"`
	Rotation Quaternion `json:"rotation"`
	LapCount int        `json:"lapCount"`
}

func newPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Position: StartPosition,
		Rotation: StartRotation,
	}
}

// Status represents the race session state of a room
type Status string

const (
	StatusForming  Status = "forming"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Started reports whether the race has left the Forming state
func (s Status) Started() bool {
	return s == StatusActive || s == StatusFinished
}

// Rules holds the tunable race parameters
type Rules struct {
	MaxPlayers    int `yaml:"max_players"`
	MinPlayers    int `yaml:"min_players"`
	LapTarget     int `yaml:"lap_target"`
	MaxNameLength int `yaml:"max_name_length"`
}

// DefaultRules returns the standard four-seat, three-lap race
func DefaultRules() Rules {
	return Rules{
		MaxPlayers:    4,
		MinPlayers:    2,
		LapTarget:     3,
		MaxNameLength: 24,
	}
}

// Validate checks that the rules describe a playable race
func (r Rules) Validate() error {
	if r.MinPlayers < 2 {
		return fmt.Errorf("min_players must be at least 2, got %d", r.MinPlayers)
	}
	if r.MaxPlayers < r.MinPlayers {
		return fmt.Errorf("max_players (%d) must not be below min_players (%d)", r.MaxPlayers, r.MinPlayers)
	}
	if r.LapTarget < 1 {
		return fmt.Errorf("lap_target must be positive, got %d", r.LapTarget)
	}
	if r.MaxNameLength < 1 {
		return fmt.Errorf("max_name_length must be positive, got %d", r.MaxNameLength)
	}
	return nil
}

// Summary is a read-only copy of a room's state
type Summary struct {
	Code      string     `json:"code"`
	Status    Status     `json:"status"`
	Players   []Player   `json:"players"`
	WinnerID  string     `json:"winnerId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Player returns the player with the given id from the summary
func (s Summary) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}
