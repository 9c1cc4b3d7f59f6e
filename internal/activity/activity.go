// Package activity holds the discrete, queued actions units carry into round resolution.
package activity

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
)

type Kind uint8

const (
	Move Kind = iota
	Attack
	Ability
)

func (k Kind) String() string {
	switch k {
	case Move:
		return "MOVE"
	case Attack:
		return "ATTACK"
	case Ability:
		return "ABILITY"
	default:
		return fmt.Sprintf("KIND(%d)", k)
	}
}

// Rider is a side effect an Attack or Ability activity carries. Move resolution never
// applies riders.
type Rider struct {
	Effect string `json:"effect"`
	Value  int    `json:"value"`
}

// Params describes an activity before it is frozen by New.
type Params struct {
	Tier             int
	RelativePriority int
	Kind             Kind
	Origin           []grid.Cell
	Target           []grid.Cell
	Occupied         []grid.Cell
	Riders           []Rider
	Player           unit.PlayerID
	Unit             uuid.UUID
}

// Activity is one atomic step of a unit's plan. It cannot be changed once built.
type Activity struct {
	tier     int
	priority int
	kind     Kind
	origin   []grid.Cell
	target   []grid.Cell
	occupied []grid.Cell
	riders   []Rider
	player   unit.PlayerID
	unit     uuid.UUID
}

func New(p Params) (*Activity, error) {
	if len(p.Origin) == 0 || len(p.Target) == 0 {
		return nil, errors.New("activity needs origin and target cells")
	}
	if p.Unit == uuid.Nil {
		return nil, errors.New("activity needs a requesting unit")
	}
	occupied := p.Occupied
	if len(occupied) == 0 {
		occupied = p.Target
	}
	return &Activity{
		tier:     p.Tier,
		priority: p.RelativePriority,
		kind:     p.Kind,
		origin:   slices.Clone(p.Origin),
		target:   slices.Clone(p.Target),
		occupied: slices.Clone(occupied),
		riders:   slices.Clone(p.Riders),
		player:   p.Player,
		unit:     p.Unit,
	}, nil
}

func (a *Activity) Tier() int             { return a.tier }
func (a *Activity) RelativePriority() int { return a.priority }
func (a *Activity) Kind() Kind            { return a.kind }
func (a *Activity) Origin() []grid.Cell   { return slices.Clone(a.origin) }
func (a *Activity) Target() []grid.Cell   { return slices.Clone(a.target) }
func (a *Activity) Occupied() []grid.Cell { return slices.Clone(a.occupied) }
func (a *Activity) Riders() []Rider       { return slices.Clone(a.riders) }
func (a *Activity) Player() unit.PlayerID { return a.player }
func (a *Activity) Unit() uuid.UUID       { return a.unit }
func (a *Activity) From() grid.Cell       { return a.origin[len(a.origin)-1] }
func (a *Activity) To() grid.Cell         { return a.target[len(a.target)-1] }
func (a *Activity) TargetKey() string     { return grid.Key(a.target) }
func (a *Activity) DoubleStep() bool      { return len(a.target) > 1 }

func (a *Activity) String() string {
	return fmt.Sprintf("%s %s->%s t%d/p%d", a.kind, grid.Key(a.origin), grid.Key(a.target), a.tier, a.priority)
}

// List is the ordered plan of a single unit.
type List struct {
	unit  uuid.UUID
	items []*Activity
}

func NewList(id uuid.UUID) *List {
	return &List{unit: id}
}

func (l *List) Unit() uuid.UUID {
	return l.unit
}

func (l *List) Len() int {
	return len(l.items)
}

// Append adds activities to the tail. Activities of another unit are refused.
func (l *List) Append(as ...*Activity) error {
	for _, a := range as {
		if a.unit != l.unit {
			return fmt.Errorf("activity for unit %s appended to list of %s", a.unit, l.unit)
		}
	}
	l.items = append(l.items, as...)
	return nil
}

func (l *List) Head() (*Activity, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	return l.items[0], true
}

func (l *List) Last() (*Activity, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	return l.items[len(l.items)-1], true
}

func (l *List) Pop() (*Activity, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	a := l.items[0]
	l.items[0] = nil
	l.items = l.items[1:]
	return a, true
}

// Activities returns the pending activities in execution order.
func (l *List) Activities() []*Activity {
	return slices.Clone(l.items)
}

func (l *List) Clear() {
	l.items = nil
}

// Organize orders the list by tier, then relative priority. Equal keys keep their insertion order.
func (l *List) Organize() {
	slices.SortStableFunc(l.items, func(a, b *Activity) int {
		if a.tier != b.tier {
			return a.tier - b.tier
		}
		return a.priority - b.priority
	})
}

// Ledger maps every unit to its activity list.
type Ledger struct {
	lists map[uuid.UUID]*List
}

func NewLedger() *Ledger {
	return &Ledger{lists: make(map[uuid.UUID]*List)}
}

// List returns the unit's list, creating an empty one on first use.
func (l *Ledger) List(id uuid.UUID) *List {
	list, ok := l.lists[id]
	if !ok {
		list = NewList(id)
		l.lists[id] = list
	}
	return list
}

// Pending returns the unit's list only when it still holds activities.
func (l *Ledger) Pending(id uuid.UUID) (*List, bool) {
	list, ok := l.lists[id]
	if !ok || list.Len() == 0 {
		return nil, false
	}
	return list, true
}

// Remove forgets the unit's list entirely.
func (l *Ledger) Remove(id uuid.UUID) {
	delete(l.lists, id)
}

// Total counts every pending activity across all units.
func (l *Ledger) Total() int {
	n := 0
	for _, list := range l.lists {
		n += list.Len()
	}
	return n
}
