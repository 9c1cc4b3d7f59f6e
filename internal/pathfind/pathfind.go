// Package pathfind computes movement paths bounded by a unit's movement allowance.
package pathfind

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
)

// ErrNotFound means no passable route exists inside the speed-bounded window. It is distinct
// from an empty path, which means origin and destination coincide.
var ErrNotFound = errors.New("no path within movement range")

// Terrain is the read-only view the finder searches.
type Terrain interface {
	Size() int
	At(c grid.Cell) (grid.Terrain, error)
}

type Finder struct {
	terrain Terrain
}

func New(terrain Terrain) *Finder {
	return &Finder{terrain: terrain}
}

type options struct {
	blocked map[grid.Cell]bool
}

type Option func(*options)

// WithBlocked closes extra cells, e.g. a cell just taken by another unit.
func WithBlocked(cells ...grid.Cell) Option {
	return func(o *options) {
		if o.blocked == nil {
			o.blocked = make(map[grid.Cell]bool, len(cells))
		}
		for _, c := range cells {
			o.blocked[c] = true
		}
	}
}

type node struct {
	cell   grid.Cell
	g, f   int
	seq    int
	parent *node
	index  int
	open   bool
}

type openList []*node

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	if ol[i].f != ol[j].f {
		return ol[i].f < ol[j].f
	}
	return ol[i].seq < ol[j].seq
}
func (ol openList) Swap(i, j int)       { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x interface{}) { n := x.(*node); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var dirs = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// FindPath returns the cells to step through from origin to dest, excluding origin and
// including dest. The search never leaves the (2*speed+1)^2 window centred on origin.
func (f *Finder) FindPath(origin, dest grid.Cell, speed int, loc grid.Locomotion, opts ...Option) ([]grid.Cell, error) {
	if speed < 0 {
		return nil, fmt.Errorf("negative movement speed %d", speed)
	}
	if err := grid.CheckBounds(origin, f.terrain.Size()); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if origin == dest {
		return []grid.Cell{}, nil
	}
	if grid.Chebyshev(origin, dest) > speed {
		return nil, ErrNotFound
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	side := 2*speed + 1
	// window coordinates: origin sits at (speed, speed)
	toWindow := func(c grid.Cell) int {
		return (c.Row-origin.Row+speed)*side + (c.Col - origin.Col + speed)
	}
	closed := make([]bool, side*side)
	nodes := make([]*node, side*side)
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			cell := grid.Cell{Row: origin.Row - speed + r, Col: origin.Col - speed + c}
			if cell == origin {
				continue
			}
			if !f.enterable(cell, loc, o.blocked) {
				closed[r*side+c] = true
			}
		}
	}

	seq := 0
	start := &node{cell: origin, f: grid.Chebyshev(origin, dest), seq: seq, open: true}
	nodes[toWindow(origin)] = start
	ol := &openList{start}
	heap.Init(ol)

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*node)
		cur.open = false
		if cur.cell == dest {
			return buildPath(cur), nil
		}
		closed[toWindow(cur.cell)] = true

		for _, d := range dirs {
			next := grid.Cell{Row: cur.cell.Row + d[0], Col: cur.cell.Col + d[1]}
			if grid.Chebyshev(origin, next) > speed {
				continue
			}
			wi := toWindow(next)
			if closed[wi] {
				continue
			}
			g := cur.g + 1
			n := nodes[wi]
			if n == nil {
				seq++
				n = &node{cell: next, g: g, f: g + grid.Chebyshev(next, dest), seq: seq, parent: cur, open: true}
				nodes[wi] = n
				heap.Push(ol, n)
				continue
			}
			if g >= n.g {
				continue
			}
			n.g = g
			n.f = g + grid.Chebyshev(next, dest)
			n.parent = cur
			if n.open {
				heap.Fix(ol, n.index)
			}
		}
	}
	return nil, ErrNotFound
}

func (f *Finder) enterable(c grid.Cell, loc grid.Locomotion, blocked map[grid.Cell]bool) bool {
	if blocked[c] {
		return false
	}
	t, err := f.terrain.At(c)
	if err != nil {
		return false
	}
	return t.PassableBy(loc)
}

func buildPath(end *node) []grid.Cell {
	var cells []grid.Cell
	for n := end; n.parent != nil; n = n.parent {
		cells = append(cells, n.cell)
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}

// Cost is the number of steps a path takes.
func Cost(path []grid.Cell) int {
	return len(path)
}
