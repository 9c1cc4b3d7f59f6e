package activity

import (
	"fmt"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
)

// GenerateMoveActivities turns a path into timed steps and appends them to list.
//
// The travel modifier 1 - len(path)/speed is accumulated once per path cell. Scaled by speed
// it becomes the integer speed - len(path) against a threshold of speed: reaching the
// threshold merges the current and the next cell into one double step.
// The first step starts where the list currently ends, or at the unit's cell.
func GenerateMoveActivities(u *unit.Unit, path []grid.Cell, list *List) error {
	if list.Unit() != u.ID {
		return fmt.Errorf("list of %s used for %s", list.Unit(), u)
	}
	if len(path) == 0 {
		return nil
	}
	speed := u.MovementSpeed()
	if speed <= 0 {
		return fmt.Errorf("%s cannot move with speed %d", u, speed)
	}

	origin := []grid.Cell{u.Location()}
	if last, ok := list.Last(); ok {
		origin = last.Target()
	}

	step := speed - len(path)
	acc := 0
	var out []*Activity
	for i := 0; i < len(path); i++ {
		acc += step
		target := path[i : i+1]
		if acc >= speed && i+1 < len(path) {
			target = path[i : i+2]
			acc -= speed
			i++
		}
		a, err := New(Params{
			RelativePriority: u.NextSequence(),
			Kind:             Move,
			Origin:           origin,
			Target:           target,
			Occupied:         target,
			Player:           u.Player,
			Unit:             u.ID,
		})
		if err != nil {
			return err
		}
		out = append(out, a)
		origin = a.target
	}
	return list.Append(out...)
}
