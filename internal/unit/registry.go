package unit

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
)

var (
	ErrNotPlaced     = errors.New("unit is not on the board")
	ErrAlreadyPlaced = errors.New("unit is already on the board")
	ErrWrongPlayer   = errors.New("unit belongs to another player")
)

// Registry is one player's board of units: every cell holds an ordered, possibly empty, list.
// A unit is held by exactly one cell list while placed.
type Registry struct {
	player PlayerID
	size   int
	cells  [][]*Unit
	index  map[uuid.UUID]*Unit
}

func NewRegistry(player PlayerID, size int) *Registry {
	return &Registry{
		player: player,
		size:   size,
		cells:  make([][]*Unit, size*size),
		index:  make(map[uuid.UUID]*Unit),
	}
}

func (r *Registry) Player() PlayerID {
	return r.player
}

func (r *Registry) Size() int {
	return r.size
}

// Units returns a copy of the list at c.
func (r *Registry) Units(c grid.Cell) ([]*Unit, error) {
	if err := grid.CheckBounds(c, r.size); err != nil {
		return nil, err
	}
	return slices.Clone(r.cells[r.idx(c)]), nil
}

// Occupied reports whether any unit of this player stands at c. Out-of-bounds cells are empty.
func (r *Registry) Occupied(c grid.Cell) bool {
	if grid.CheckBounds(c, r.size) != nil {
		return false
	}
	return len(r.cells[r.idx(c)]) > 0
}

// First returns the first unit listed at c.
func (r *Registry) First(c grid.Cell) (*Unit, bool) {
	if !r.Occupied(c) {
		return nil, false
	}
	return r.cells[r.idx(c)][0], true
}

func (r *Registry) Find(id uuid.UUID) (*Unit, bool) {
	u, ok := r.index[id]
	return u, ok
}

func (r *Registry) Len() int {
	return len(r.index)
}

// Insert places an unplaced unit at c.
func (r *Registry) Insert(u *Unit, c grid.Cell) error {
	if u.Player != r.player {
		return fmt.Errorf("%w: %s into %s registry", ErrWrongPlayer, u, r.player)
	}
	if u.placed {
		return fmt.Errorf("%w: %s", ErrAlreadyPlaced, u)
	}
	if err := grid.CheckBounds(c, r.size); err != nil {
		return err
	}
	i := r.idx(c)
	r.cells[i] = append(r.cells[i], u)
	r.index[u.ID] = u
	u.location = c
	u.placed = true
	return nil
}

// Take removes a unit from its cell and hands it back unplaced.
func (r *Registry) Take(id uuid.UUID) (*Unit, error) {
	u, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotPlaced, id)
	}
	i := r.idx(u.location)
	list := r.cells[i]
	pos := slices.Index(list, u)
	if pos < 0 {
		return nil, fmt.Errorf("registry index out of sync for %s", u)
	}
	r.cells[i] = slices.Delete(list, pos, pos+1)
	delete(r.index, id)
	u.placed = false
	return u, nil
}

// Move transfers a unit to c as a Take followed by an Insert.
func (r *Registry) Move(id uuid.UUID, c grid.Cell) error {
	if err := grid.CheckBounds(c, r.size); err != nil {
		return err
	}
	u, err := r.Take(id)
	if err != nil {
		return err
	}
	return r.Insert(u, c)
}

// Each calls fn for every non-empty cell in row-major order.
func (r *Registry) Each(fn func(c grid.Cell, units []*Unit)) {
	for i, list := range r.cells {
		if len(list) == 0 {
			continue
		}
		fn(grid.Cell{Row: i / r.size, Col: i % r.size}, list)
	}
}

// CheckInvariant verifies every indexed unit sits in exactly one cell list at its recorded
// location and nothing unindexed lingers on the board.
func (r *Registry) CheckInvariant() error {
	seen := make(map[uuid.UUID]int, len(r.index))
	var errs []error
	r.Each(func(c grid.Cell, units []*Unit) {
		for _, u := range units {
			seen[u.ID]++
			if u.location != c {
				errs = append(errs, fmt.Errorf("%s listed at %s", u, c))
			}
			if _, ok := r.index[u.ID]; !ok {
				errs = append(errs, fmt.Errorf("%s listed but not indexed", u))
			}
		}
	})
	for id, u := range r.index {
		if n := seen[id]; n != 1 {
			errs = append(errs, fmt.Errorf("%s appears in %d cells", u, n))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) idx(c grid.Cell) int {
	return c.Row*r.size + c.Col
}

// Registries maps every player to their own registry.
type Registries map[PlayerID]*Registry

// Players returns the player ids in ascending order.
func (rs Registries) Players() []PlayerID {
	ids := make([]PlayerID, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Find looks a unit up across all players.
func (rs Registries) Find(id uuid.UUID) (*Unit, bool) {
	for _, r := range rs {
		if u, ok := r.Find(id); ok {
			return u, true
		}
	}
	return nil, false
}

// ForeignOccupant returns the first unit at c not owned by player, scanning players in order.
func (rs Registries) ForeignOccupant(player PlayerID, c grid.Cell) (*Unit, bool) {
	for _, p := range rs.Players() {
		if p == player {
			continue
		}
		if u, ok := rs[p].First(c); ok {
			return u, true
		}
	}
	return nil, false
}
