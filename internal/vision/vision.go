// Package vision rebuilds each player's fog-of-war view after a round resolves.
package vision

import (
	"slices"

	"github.com/Nigel-Baldwen/Ascension/internal/activity"
	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
)

// State is what one player knows about one cell.
type State struct {
	ControllingPlayer unit.PlayerID    `json:"controllingPlayer"`
	Occupying         unit.Type        `json:"occupying"`
	Destination       unit.Type        `json:"destination"`
	InMotion          []unit.Type      `json:"inMotion"`
	Terrain           grid.TerrainType `json:"terrain"`
	SubType           grid.SubType     `json:"subType"`
	InVisionRange     bool             `json:"inVisionRange"`
}

// Grid is a single player's view of the whole map.
type Grid struct {
	player  unit.PlayerID
	terrain *grid.Map
	states  []State
}

func NewGrid(player unit.PlayerID, terrain *grid.Map) *Grid {
	g := &Grid{
		player:  player,
		terrain: terrain,
		states:  make([]State, terrain.Size()*terrain.Size()),
	}
	g.clear()
	return g
}

func (g *Grid) Player() unit.PlayerID {
	return g.player
}

func (g *Grid) Size() int {
	return g.terrain.Size()
}

func (g *Grid) At(c grid.Cell) (State, error) {
	if err := grid.CheckBounds(c, g.Size()); err != nil {
		return State{}, err
	}
	s := g.states[g.idx(c)]
	s.InMotion = slices.Clone(s.InMotion)
	return s, nil
}

// Snapshot copies the view into rows for the renderer.
func (g *Grid) Snapshot() [][]State {
	size := g.Size()
	rows := make([][]State, size)
	for r := range rows {
		rows[r] = make([]State, size)
		for c := range rows[r] {
			s := g.states[r*size+c]
			s.InMotion = slices.Clone(s.InMotion)
			rows[r][c] = s
		}
	}
	return rows
}

// MarkInMotion adds t to the in-motion overlay of every in-bounds cell.
func (g *Grid) MarkInMotion(t unit.Type, cells ...grid.Cell) {
	for _, c := range cells {
		if g.inBounds(c) {
			s := &g.states[g.idx(c)]
			s.InMotion = append(s.InMotion, t)
		}
	}
}

// ClearInMotion drops one t marker from each cell.
func (g *Grid) ClearInMotion(t unit.Type, cells ...grid.Cell) {
	for _, c := range cells {
		if !g.inBounds(c) {
			continue
		}
		s := &g.states[g.idx(c)]
		if i := slices.Index(s.InMotion, t); i >= 0 {
			s.InMotion = slices.Delete(s.InMotion, i, i+1)
		}
	}
}

func (g *Grid) MarkDestination(t unit.Type, cells ...grid.Cell) {
	for _, c := range cells {
		if g.inBounds(c) {
			g.states[g.idx(c)].Destination = t
		}
	}
}

func (g *Grid) ClearDestination(cells ...grid.Cell) {
	g.MarkDestination(unit.Empty, cells...)
}

// Overlay draws a unit's pending plan: every step but the last is in motion, the last is the
// destination.
func (g *Grid) Overlay(t unit.Type, list *activity.List) {
	acts := list.Activities()
	for i, a := range acts {
		if i == len(acts)-1 {
			g.MarkDestination(t, a.Target()...)
			continue
		}
		g.MarkInMotion(t, a.Target()...)
	}
}

// Unoverlay removes what Overlay drew for the same list.
func (g *Grid) Unoverlay(t unit.Type, list *activity.List) {
	acts := list.Activities()
	for i, a := range acts {
		if i == len(acts)-1 {
			g.ClearDestination(a.Target()...)
			continue
		}
		g.ClearInMotion(t, a.Target()...)
	}
}

func (g *Grid) clear() {
	size := g.Size()
	for i := range g.states {
		t, _ := g.terrain.At(grid.Cell{Row: i / size, Col: i % size})
		g.states[i] = State{Terrain: t.Type, SubType: t.SubType}
	}
}

func (g *Grid) inBounds(c grid.Cell) bool {
	return g.terrain.InBounds(c)
}

func (g *Grid) idx(c grid.Cell) int {
	return c.Row*g.Size() + c.Col
}

// Grids holds every player's view.
type Grids map[unit.PlayerID]*Grid

func (gs Grids) ClearInMotion(p unit.PlayerID, t unit.Type, cells ...grid.Cell) {
	if g, ok := gs[p]; ok {
		g.ClearInMotion(t, cells...)
	}
}

func (gs Grids) ClearDestination(p unit.PlayerID, cells ...grid.Cell) {
	if g, ok := gs[p]; ok {
		g.ClearDestination(cells...)
	}
}

// Recompute rebuilds every view from scratch: own units first, then sight, then the overlays
// of pending plans.
func Recompute(gs Grids, regs unit.Registries, ledger *activity.Ledger) {
	players := regs.Players()
	for _, p := range players {
		g, ok := gs[p]
		if !ok {
			continue
		}
		g.clear()
		regs[p].Each(func(c grid.Cell, units []*unit.Unit) {
			s := &g.states[g.idx(c)]
			s.ControllingPlayer = p
			s.Occupying = units[0].Type
			s.InVisionRange = true
		})
	}

	for _, p := range players {
		g, ok := gs[p]
		if !ok {
			continue
		}
		size := g.Size()
		regs[p].Each(func(c grid.Cell, units []*unit.Unit) {
			radius := 0
			for _, u := range units {
				radius = max(radius, u.SightRadius())
			}
			for r := max(0, c.Row-radius); r <= min(size-1, c.Row+radius); r++ {
				for col := max(0, c.Col-radius); col <= min(size-1, c.Col+radius); col++ {
					s := &g.states[r*size+col]
					if s.InVisionRange {
						continue
					}
					s.InVisionRange = true
					if u, ok := regs.ForeignOccupant(p, grid.Cell{Row: r, Col: col}); ok {
						s.ControllingPlayer = u.Player
						s.Occupying = u.Type
					}
				}
			}
		})
	}

	for _, p := range players {
		g, ok := gs[p]
		if !ok {
			continue
		}
		regs[p].Each(func(_ grid.Cell, units []*unit.Unit) {
			for _, u := range units {
				if list, ok := ledger.Pending(u.ID); ok {
					g.Overlay(u.Type, list)
				}
			}
		})
	}
}
