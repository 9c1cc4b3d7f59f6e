package grid

import "fmt"

type TerrainType uint8

const (
	Crystal TerrainType = iota
	Dirt
	Grass
	Rock
	Sand
)

const terrainTypeCount = 5

func (t TerrainType) String() string {
	switch t {
	case Crystal:
		return "CRYSTAL"
	case Dirt:
		return "DIRT"
	case Grass:
		return "GRASS"
	case Rock:
		return "ROCK"
	case Sand:
		return "SAND"
	default:
		return fmt.Sprintf("TERRAIN(%d)", t)
	}
}

// SubType refines passability. Values 0..6 are open ground.
type SubType uint8

const (
	AirOnly    SubType = 7
	Impassable SubType = 8

	subTypeCount = 9
)

type Locomotion uint8

const (
	Ground Locomotion = iota
	Air
)

func (l Locomotion) String() string {
	switch l {
	case Ground:
		return "GROUND"
	case Air:
		return "AIR"
	default:
		return fmt.Sprintf("LOCOMOTION(%d)", l)
	}
}

type Terrain struct {
	Type     TerrainType `json:"type"`
	SubType  SubType     `json:"subType"`
	Darkened bool        `json:"darkened"`
}

// PassableBy reports whether a unit with locomotion l may enter this terrain.
func (t Terrain) PassableBy(l Locomotion) bool {
	switch t.SubType {
	case Impassable:
		return false
	case AirOnly:
		return l == Air
	default:
		return true
	}
}

// Descriptor is the name shown to the UI for an empty cell.
func (t Terrain) Descriptor() string {
	return t.Type.String()
}

func (t Terrain) valid() error {
	if t.Type >= terrainTypeCount {
		return fmt.Errorf("unknown terrain type %d", t.Type)
	}
	if t.SubType >= subTypeCount {
		return fmt.Errorf("unknown terrain subtype %d", t.SubType)
	}
	return nil
}
