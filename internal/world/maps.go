package world

import (
	"fmt"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
)

const (
	MapGenerated = "generated"
	MapCorridor  = "corridor"
	MapCustom    = "custom"
)

// starterTypes cycles through the playable unit types when seeding a match.
var starterTypes = []unit.Type{unit.PhysicalBuilder, unit.RaeclarianManus}

// InitMap loads a preset. Unknown names fall back to a generated map. The custom preset starts
// from an open map of the configured size; InitCustomMap uploads real terrain.
func (w *World) InitMap(mapName string) error {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	switch mapName {
	case MapGenerated:
		return w.initGenerated()

	case MapCorridor:
		m, err := corridorMap()
		if err != nil {
			return err
		}
		w.load(MapCorridor, m)
		starts := []grid.Cell{{Row: 1, Col: 1}, {Row: 1, Col: 3}, {Row: 4, Col: 0}, {Row: 4, Col: 4}}
		for i, p := range w.players() {
			if _, err := w.spawn(p, unit.PhysicalBuilder, starts[i%len(starts)]); err != nil {
				w.log.Warnf("could not place starter for %s on corridor map: %v", p, err)
			}
		}
		w.refreshVision()
		w.log.Infof("Corridor map made")
		return nil

	case MapCustom:
		m, err := grid.NewMap(w.opts.Size)
		if err != nil {
			return err
		}
		w.load(MapCustom, m)
		w.log.Infof("Custom map made")
		return nil

	default:
		w.log.Warnf("Unknown map '%s', falling back to %s", mapName, MapGenerated)
		return w.initGenerated()
	}
}

func (w *World) initGenerated() error {
	m, err := grid.Generate(w.opts.Size, w.rng)
	if err != nil {
		return err
	}
	w.load(MapGenerated, m)
	w.placeStarters()
	w.refreshVision()
	w.log.Infof("Generated %dx%d map for %d players", m.Size(), m.Size(), w.opts.Players)
	return nil
}

// InitCustomMap installs uploaded row-major terrain and seeds starters on it.
func (w *World) InitCustomMap(size int, cells []grid.Terrain) error {
	m, err := grid.FromSlice(size, cells)
	if err != nil {
		return fmt.Errorf("custom map: %w", err)
	}
	w.Mu.Lock()
	defer w.Mu.Unlock()
	w.load(MapCustom, m)
	w.placeStarters()
	w.refreshVision()
	w.log.Infof("Custom map initialized, %dx%d", size, size)
	return nil
}

// corridorMap is the 5x5 box whose rows 0-2 are closed except the corridor at row 1, columns 1-3.
func corridorMap() (*grid.Map, error) {
	const size = 5
	cells := make([]grid.Terrain, 0, size*size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			t := grid.Terrain{Type: grid.Grass}
			if r <= 2 && !(r == 1 && c >= 1 && c <= 3) {
				t = grid.Terrain{Type: grid.Rock, SubType: grid.Impassable}
			}
			cells = append(cells, t)
		}
	}
	return grid.FromSlice(size, cells)
}

// placeStarters drops StartingUnits units per player on random free ground. Caller holds Mu.
func (w *World) placeStarters() {
	size := w.terrain.Size()
	for _, p := range w.players() {
		for i := 0; i < w.opts.StartingUnits; i++ {
			t := starterTypes[i%len(starterTypes)]
			placed := false
			for attempts := 0; attempts < 1000; attempts++ {
				c := grid.Cell{Row: w.rng.Intn(size), Col: w.rng.Intn(size)}
				if _, err := w.spawn(p, t, c); err == nil {
					placed = true
					break
				}
			}
			if !placed {
				w.log.Warnf("Could not place starter %d for %s", i+1, p)
			}
		}
	}
}
