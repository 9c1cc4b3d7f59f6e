package unit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedDescriptor = errors.New("malformed descriptor")

// Pair is an attack/defense stat pair. -1 marks a stat that does not apply.
type Pair struct {
	Attack  int
	Defense int
}

// Stats is the fixed stat block of a unit. The simulation core only reads MovementSpeed and
// SightRadius; everything else is carried for the UI descriptor.
type Stats struct {
	Health          int
	MagicPoints     int
	MagicRegen      int
	EnergyPoints    int
	EnergyRegen     int
	MovementSpeed   int
	SightRadius     int
	NumAttacks      int
	AttackSpeed     int
	Ranged          int
	SquaresOccupied int
	DeathExperience int
	Levels          int
	ProductionCost  int
	TurnsPlayed     int
	ChannelTime     int
	MeleeDamage     int
	RangedDamage    int

	Intellect Pair
	Solar     Pair
	Symbiosis Pair
	Poison    Pair
	Kinesis   Pair
	Illusion  Pair
	Holy      Pair
	Dark      Pair
	Dispel    Pair
	Summon    Pair
	Threat    Pair
	DeathBlow Pair
	Ethereal  Pair
	Wind      Pair
	Fire      Pair
	Water     Pair
	Charge    Pair
	Agility   Pair
	Unarmed   Pair
	Blunt     Pair
	Blade     Pair
	Pierce    Pair
}

// DefaultStats returns the stat table for a unit type. Both playable types share one block.
func DefaultStats(t Type) Stats {
	if t == Empty {
		return Stats{}
	}
	return Stats{
		Health:          12,
		MagicPoints:     6,
		MagicRegen:      3,
		EnergyPoints:    -1,
		EnergyRegen:     -1,
		MovementSpeed:   6,
		SightRadius:     6,
		NumAttacks:      4,
		AttackSpeed:     0,
		Ranged:          -1,
		SquaresOccupied: 1,
		DeathExperience: 6,
		Levels:          0,
		ProductionCost:  4,
		MeleeDamage:     3,
		RangedDamage:    -1,

		Intellect: Pair{3, 6},
		Solar:     Pair{-1, 3},
		Symbiosis: Pair{-1, 3},
		Poison:    Pair{-1, 3},
		Kinesis:   Pair{-1, 3},
		Illusion:  Pair{-1, 4},
		Holy:      Pair{-1, 5},
		Dark:      Pair{-1, 4},
		Dispel:    Pair{-1, 4},
		Summon:    Pair{-1, 3},
		Threat:    Pair{-1, 3},
		DeathBlow: Pair{-1, 4},
		Ethereal:  Pair{-1, 3},
		Wind:      Pair{-1, 3},
		Fire:      Pair{-1, 4},
		Water:     Pair{-1, 5},
		Charge:    Pair{-1, 3},
		Agility:   Pair{-1, 3},
		Unarmed:   Pair{-1, 3},
		Blunt:     Pair{-1, 3},
		Blade:     Pair{-1, 4},
		Pierce:    Pair{6, 5},
	}
}

// descriptorSpacer occupies the fixed slot between the owner and the production cost.
const descriptorSpacer = -1

// Descriptor is the decoded form of the colon-delimited UI stat dump.
type Descriptor struct {
	Stats    Stats
	Location int
	Player   PlayerID
}

// fields lists the descriptor slots in wire order. The order is an external contract.
func (d *Descriptor) fields(spacer *int) []*int {
	s := &d.Stats
	player := (*int)(&d.Player)
	out := []*int{
		&s.Health, &s.MagicPoints, &s.EnergyPoints,
		&s.MovementSpeed, &s.SightRadius, &s.NumAttacks, &s.AttackSpeed,
		&s.Ranged, &s.SquaresOccupied, &s.DeathExperience, &s.Levels,
		&d.Location, player,
		spacer,
		&s.ProductionCost, &s.TurnsPlayed,
	}
	for _, p := range []*Pair{
		&s.Intellect, &s.Solar, &s.Symbiosis, &s.Poison,
		&s.Kinesis, &s.Illusion, &s.Holy, &s.Dark,
		&s.Dispel, &s.Summon, &s.Threat, &s.DeathBlow,
		&s.Ethereal, &s.Wind, &s.Fire, &s.Water,
		&s.Charge, &s.Agility, &s.Unarmed, &s.Blunt,
		&s.Blade, &s.Pierce,
	} {
		out = append(out, &p.Attack, &p.Defense)
	}
	return out
}

// DescriptorFieldCount is the number of colon-separated fields in a unit descriptor.
var DescriptorFieldCount = len((&Descriptor{}).fields(new(int)))

func (d Descriptor) String() string {
	spacer := descriptorSpacer
	fields := d.fields(&spacer)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strconv.Itoa(*f)
	}
	return strings.Join(parts, ":")
}

// ParseDescriptor decodes a unit descriptor, rejecting anything that does not have exactly
// DescriptorFieldCount integer fields and the fixed spacer.
func ParseDescriptor(s string) (Descriptor, error) {
	parts := strings.Split(s, ":")
	if len(parts) != DescriptorFieldCount {
		return Descriptor{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedDescriptor, DescriptorFieldCount, len(parts))
	}
	var d Descriptor
	var spacer int
	for i, f := range d.fields(&spacer) {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: field %d: %v", ErrMalformedDescriptor, i, err)
		}
		*f = v
	}
	if spacer != descriptorSpacer {
		return Descriptor{}, fmt.Errorf("%w: spacer is %d", ErrMalformedDescriptor, spacer)
	}
	return d, nil
}

// Descriptor renders this unit's stat dump. The location is the row-major cell index on a map
// of the given size.
func (u *Unit) Descriptor(mapSize int) string {
	return Descriptor{
		Stats:    u.Stats,
		Location: u.location.Row*mapSize + u.location.Col,
		Player:   u.Player,
	}.String()
}
