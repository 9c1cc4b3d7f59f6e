package unit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
)

// PlayerID identifies a player. Players are numbered from 1; NoPlayer marks an uncontrolled cell.
type PlayerID int

const NoPlayer PlayerID = 0

func (p PlayerID) String() string {
	if p == NoPlayer {
		return "NONE"
	}
	return fmt.Sprintf("PLAYER_%d", int(p))
}

type Type uint8

const (
	Empty Type = iota
	PhysicalBuilder
	RaeclarianManus
)

func (t Type) String() string {
	switch t {
	case Empty:
		return "EMPTY"
	case PhysicalBuilder:
		return "PHYSICAL_BUILDER"
	case RaeclarianManus:
		return "RAECLARIAN_MANUS"
	default:
		return fmt.Sprintf("UNIT(%d)", t)
	}
}

// ParseType accepts the names produced by String.
func ParseType(s string) (Type, error) {
	for _, t := range []Type{PhysicalBuilder, RaeclarianManus} {
		if t.String() == s {
			return t, nil
		}
	}
	return Empty, fmt.Errorf("unknown unit type %q", s)
}

// Unit is a single piece on the board. Its location is owned by the Registry holding it.
type Unit struct {
	ID         uuid.UUID
	Type       Type
	Player     PlayerID
	Locomotion grid.Locomotion
	Stats      Stats

	location grid.Cell
	placed   bool
	sequence int
}

// New creates a ground unit with the default stat block of its type.
func New(t Type, player PlayerID) *Unit {
	return &Unit{
		ID:     uuid.New(),
		Type:   t,
		Player: player,
		Stats:  DefaultStats(t),
	}
}

func (u *Unit) Location() grid.Cell {
	return u.location
}

func (u *Unit) Placed() bool {
	return u.placed
}

func (u *Unit) MovementSpeed() int {
	return u.Stats.MovementSpeed
}

func (u *Unit) SightRadius() int {
	return u.Stats.SightRadius
}

// NextSequence advances the command sequence used to order this unit's own activities.
func (u *Unit) NextSequence() int {
	u.sequence++
	return u.sequence
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s[%s %s @%s]", u.Type, u.ID.String()[:8], u.Player, u.location)
}
