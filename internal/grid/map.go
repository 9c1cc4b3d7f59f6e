package grid

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrBadSize = errors.New("bad map size")

// MaxSize bounds the side of any map so size*size stays allocatable.
const MaxSize = 512

// Map is a square terrain layer stored row-major.
type Map struct {
	size  int
	cells []Terrain
}

func NewMap(size int) (*Map, error) {
	if err := CheckSize(size); err != nil {
		return nil, err
	}
	return &Map{size: size, cells: make([]Terrain, size*size)}, nil
}

// FromSlice builds a map from a row-major terrain slice of length size*size.
func FromSlice(size int, cells []Terrain) (*Map, error) {
	if err := CheckSize(size); err != nil {
		return nil, err
	}
	if len(cells) != size*size {
		return nil, fmt.Errorf("expected %d cells for a %dx%d map, got %d", size*size, size, size, len(cells))
	}
	for i, t := range cells {
		if err := t.valid(); err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
	}
	m, err := NewMap(size)
	if err != nil {
		return nil, err
	}
	copy(m.cells, cells)
	return m, nil
}

// CheckSize rejects map sides outside 1..MaxSize.
func CheckSize(size int) error {
	if size <= 0 || size > MaxSize {
		return fmt.Errorf("%w: %d not in 1..%d", ErrBadSize, size, MaxSize)
	}
	return nil
}

func (m *Map) Size() int {
	return m.size
}

func (m *Map) InBounds(c Cell) bool {
	return CheckBounds(c, m.size) == nil
}

func (m *Map) At(c Cell) (Terrain, error) {
	if err := CheckBounds(c, m.size); err != nil {
		return Terrain{}, err
	}
	return m.cells[c.Row*m.size+c.Col], nil
}

func (m *Map) Set(c Cell, t Terrain) error {
	if err := CheckBounds(c, m.size); err != nil {
		return err
	}
	if err := t.valid(); err != nil {
		return err
	}
	m.cells[c.Row*m.size+c.Col] = t
	return nil
}

// SetDarkened flips the rendering-only flag. It is the only field a player's copy may change.
func (m *Map) SetDarkened(c Cell, dark bool) error {
	if err := CheckBounds(c, m.size); err != nil {
		return err
	}
	m.cells[c.Row*m.size+c.Col].Darkened = dark
	return nil
}

// Copy returns an independent per-player copy.
func (m *Map) Copy() *Map {
	cells := make([]Terrain, len(m.cells))
	copy(cells, m.cells)
	return &Map{size: m.size, cells: cells}
}

// SamePassability reports whether two maps agree on everything except the darkened flag.
func (m *Map) SamePassability(other *Map) error {
	if m.size != other.size {
		return fmt.Errorf("size mismatch %d vs %d", m.size, other.size)
	}
	var errs []error
	for i := range m.cells {
		a, b := m.cells[i], other.cells[i]
		if a.Type != b.Type || a.SubType != b.SubType {
			errs = append(errs, fmt.Errorf("cell (%d,%d) diverged", i/m.size, i%m.size))
		}
	}
	return errors.Join(errs...)
}

// Generate builds a terrain layer with the seed-zone algorithm: the map is cut into 10-20 zones
// per side, each zone centre gets a random terrain which spreads outward ring by ring with a
// falloff proportional to the ring radius, and unseeded cells are backfilled at random.
func Generate(size int, rng *rand.Rand) (*Map, error) {
	m, err := NewMap(size)
	if err != nil {
		return nil, err
	}
	seeded := make([]bool, size*size)
	put := func(r, c int, t TerrainType) {
		if r < 0 || r >= size || c < 0 || c >= size {
			return
		}
		m.cells[r*size+c] = Terrain{Type: t, SubType: SubType(rng.Intn(subTypeCount))}
		seeded[r*size+c] = true
	}

	zones := rng.Intn(11) + 10
	zoneLength := size / zones
	half := zoneLength / 2
	for x := 0; x < zones; x++ {
		for y := 0; y < zones; y++ {
			seedC := zoneLength*x + half
			seedR := zoneLength*y + half
			seedType := TerrainType(rng.Intn(terrainTypeCount))
			put(seedR, seedC, seedType)
			for i := 1; i <= half; i++ {
				chance := float64(i-1) / float64(half)
				for c := seedC - i; c <= seedC+i; c++ {
					if rng.Float64() >= chance {
						put(seedR-i, c, seedType)
					}
					if rng.Float64() >= chance {
						put(seedR+i, c, seedType)
					}
				}
				for r := seedR - i + 1; r <= seedR+i-1; r++ {
					if rng.Float64() >= chance {
						put(r, seedC-i, seedType)
					}
					if rng.Float64() >= chance {
						put(r, seedC+i, seedType)
					}
				}
			}
		}
	}

	for i := range m.cells {
		if !seeded[i] {
			m.cells[i] = Terrain{
				Type:    TerrainType(rng.Intn(terrainTypeCount)),
				SubType: SubType(rng.Intn(subTypeCount)),
			}
		}
	}
	return m, nil
}
