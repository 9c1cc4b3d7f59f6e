// Package resolve executes every queued activity at the end of a round.
package resolve

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/activity"
	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/pathfind"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
)

// ErrLivelock means the resolving loop stopped shrinking the queue.
var ErrLivelock = errors.New("activity queue did not drain")

// Policy decides what happens to the losers of a conflict.
type Policy string

const (
	// Hold keeps the loser's plan untouched for the next round.
	Hold Policy = "hold"
	// Replan routes the loser around the contested cell toward its final destination.
	Replan Policy = "replan"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case Hold, Replan:
		return p, nil
	case "":
		return Hold, nil
	default:
		return "", fmt.Errorf("unknown reattempt policy %q", s)
	}
}

// Pathfinder is the part of pathfind.Finder the replan policy needs.
type Pathfinder interface {
	FindPath(origin, dest grid.Cell, speed int, loc grid.Locomotion, opts ...pathfind.Option) ([]grid.Cell, error)
}

// Overlays receives overlay updates as units move.
type Overlays interface {
	ClearInMotion(p unit.PlayerID, t unit.Type, cells ...grid.Cell)
	ClearDestination(p unit.PlayerID, cells ...grid.Cell)
}

// State is everything a resolution mutates. Overlays and Finders are optional.
type State struct {
	Registries unit.Registries
	Ledger     *activity.Ledger
	Overlays   Overlays
	Finders    map[unit.PlayerID]Pathfinder
}

type Move struct {
	Unit   uuid.UUID     `json:"unit"`
	Player unit.PlayerID `json:"player"`
	From   grid.Cell     `json:"from"`
	To     grid.Cell     `json:"to"`
	Pass   int           `json:"pass"`
}

type Conflict struct {
	Target []grid.Cell `json:"target"`
	Winner uuid.UUID   `json:"winner"`
	Losers []uuid.UUID `json:"losers"`
	Pass   int         `json:"pass"`
}

// Report summarises one resolution.
type Report struct {
	Moves     []Move      `json:"moves"`
	Conflicts []Conflict  `json:"conflicts"`
	Replanned []uuid.UUID `json:"replanned,omitempty"`
	Discarded []uuid.UUID `json:"discarded,omitempty"`
	Deferred  []uuid.UUID `json:"deferred"`
	Passes    int         `json:"passes"`
}

type Resolver struct {
	rng    *rand.Rand
	policy Policy
	log    *log.Entry
}

// New builds a resolver drawing tie-breaks from rng. A nil logger uses the standard logger.
func New(rng *rand.Rand, policy Policy, logger *log.Entry) *Resolver {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Resolver{rng: rng, policy: policy, log: logger}
}

func (r *Resolver) Policy() Policy {
	return r.policy
}

type entry struct {
	unit *unit.Unit
	list *activity.List
}

// Resolve drains every pending activity list. Lists that cannot advance are left in the ledger
// and show up in Report.Deferred.
func (r *Resolver) Resolve(st State) (Report, error) {
	var rep Report
	queue := collect(st)
	budget := 1
	for _, e := range queue {
		budget += e.list.Len()
	}

	for len(queue) > 0 {
		rep.Passes++
		if rep.Passes > budget {
			return rep, fmt.Errorf("%w after %d passes", ErrLivelock, rep.Passes-1)
		}

		groups := make(map[string][]*entry)
		for _, e := range queue {
			head, _ := e.list.Head()
			key := head.TargetKey()
			groups[key] = append(groups[key], e)
		}
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		reserved := make(map[grid.Cell]bool)
		withdrawn := make(map[*entry]bool)
		progressed := false
		for _, key := range keys {
			claimants := groups[key]
			winner := claimants[0]
			if len(claimants) > 1 {
				var losers []*entry
				winner, losers = r.tieBreak(claimants)
				head, _ := winner.list.Head()
				c := Conflict{Target: head.Target(), Winner: winner.unit.ID, Pass: rep.Passes}
				for _, l := range losers {
					c.Losers = append(c.Losers, l.unit.ID)
					if err := r.withdraw(st, l, head.Target(), &rep); err != nil {
						return rep, err
					}
					withdrawn[l] = true
				}
				rep.Conflicts = append(rep.Conflicts, c)
				progressed = true
				r.log.WithFields(log.Fields{"target": key, "winner": winner.unit.ID}).Debugf("conflict among %d claimants", len(claimants))
			}
			moved, err := r.execute(st, winner, reserved, &rep)
			if err != nil {
				return rep, err
			}
			progressed = progressed || moved
		}

		next := make([]*entry, 0, len(queue))
		for _, e := range queue {
			if !withdrawn[e] && e.list.Len() > 0 {
				next = append(next, e)
			}
		}
		if !progressed {
			r.log.Debugf("pass %d stalled, deferring %d lists", rep.Passes, len(next))
			next = nil
		}
		queue = next
	}

	for _, p := range st.Registries.Players() {
		st.Registries[p].Each(func(_ grid.Cell, units []*unit.Unit) {
			for _, u := range units {
				if _, ok := st.Ledger.Pending(u.ID); ok {
					rep.Deferred = append(rep.Deferred, u.ID)
				}
			}
		})
	}
	r.log.Infof("resolved %d moves, %d conflicts, %d deferred in %d passes", len(rep.Moves), len(rep.Conflicts), len(rep.Deferred), rep.Passes)
	return rep, nil
}

// collect walks players in ascending order, cells row-major, units in cell order.
func collect(st State) []*entry {
	var queue []*entry
	for _, p := range st.Registries.Players() {
		st.Registries[p].Each(func(_ grid.Cell, units []*unit.Unit) {
			for _, u := range units {
				if list, ok := st.Ledger.Pending(u.ID); ok {
					list.Organize()
					queue = append(queue, &entry{unit: u, list: list})
				}
			}
		})
	}
	return queue
}

// tieBreak draws one value per claimant in (player, unit id) order. The lowest draw wins.
func (r *Resolver) tieBreak(claimants []*entry) (*entry, []*entry) {
	sorted := slices.Clone(claimants)
	slices.SortFunc(sorted, func(a, b *entry) int {
		if c := cmp.Compare(a.unit.Player, b.unit.Player); c != 0 {
			return c
		}
		return bytes.Compare(a.unit.ID[:], b.unit.ID[:])
	})
	best, bestDraw := 0, int64(-1)
	for i := range sorted {
		d := r.rng.Int63()
		if bestDraw < 0 || d < bestDraw {
			best, bestDraw = i, d
		}
	}
	winner := sorted[best]
	losers := slices.Delete(sorted, best, best+1)
	return winner, losers
}

// execute performs the head activity of e if its target is free. reserved holds every cell
// left or crossed earlier in the pass; those only open up on the next pass.
func (r *Resolver) execute(st State, e *entry, reserved map[grid.Cell]bool, rep *Report) (bool, error) {
	head, _ := e.list.Head()
	u := e.unit
	if u.Location() != head.From() {
		r.log.Debugf("%s is not at %s", u, head.From())
		return false, nil
	}
	own := st.Registries[u.Player]
	for _, c := range head.Target() {
		if reserved[c] || own.Occupied(c) {
			return false, nil
		}
		if _, ok := st.Registries.ForeignOccupant(u.Player, c); ok {
			return false, nil
		}
	}

	e.list.Pop()
	from := u.Location()
	if err := own.Move(u.ID, head.To()); err != nil {
		return false, fmt.Errorf("moving %s: %w", u, err)
	}
	reserved[from] = true
	for _, c := range head.Target() {
		reserved[c] = true
	}
	if st.Overlays != nil {
		st.Overlays.ClearInMotion(u.Player, u.Type, head.Occupied()...)
		if e.list.Len() == 0 {
			st.Overlays.ClearDestination(u.Player, head.Target()...)
		}
	}
	rep.Moves = append(rep.Moves, Move{Unit: u.ID, Player: u.Player, From: from, To: head.To(), Pass: rep.Passes})
	return true, nil
}

// withdraw takes a conflict loser out of this round, replanning first when the policy asks.
func (r *Resolver) withdraw(st State, e *entry, contested []grid.Cell, rep *Report) error {
	if r.policy != Replan {
		return nil
	}
	finder, ok := st.Finders[e.unit.Player]
	if !ok {
		return nil
	}
	last, _ := e.list.Last()
	dest := last.To()
	u := e.unit
	path, err := finder.FindPath(u.Location(), dest, u.MovementSpeed(), u.Locomotion, pathfind.WithBlocked(contested...))
	if st.Overlays != nil {
		for i, a := range e.list.Activities() {
			if i == e.list.Len()-1 {
				st.Overlays.ClearDestination(u.Player, a.Target()...)
			} else {
				st.Overlays.ClearInMotion(u.Player, u.Type, a.Target()...)
			}
		}
	}
	e.list.Clear()
	switch {
	case errors.Is(err, pathfind.ErrNotFound):
		rep.Discarded = append(rep.Discarded, u.ID)
		return nil
	case err != nil:
		return fmt.Errorf("replanning %s: %w", u, err)
	}
	if err := activity.GenerateMoveActivities(u, path, e.list); err != nil {
		return fmt.Errorf("replanning %s: %w", u, err)
	}
	rep.Replanned = append(rep.Replanned, u.ID)
	return nil
}
