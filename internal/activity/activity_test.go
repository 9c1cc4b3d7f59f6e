package activity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
)

func placedUnit(t *testing.T, at grid.Cell, speed int) *unit.Unit {
	t.Helper()
	u := unit.New(unit.PhysicalBuilder, 1)
	u.Stats.MovementSpeed = speed
	reg := unit.NewRegistry(1, 10)
	require.NoError(t, reg.Insert(u, at))
	return u
}

func line(from grid.Cell, n int) []grid.Cell {
	path := make([]grid.Cell, n)
	for i := range path {
		path[i] = grid.Cell{Row: from.Row, Col: from.Col + i + 1}
	}
	return path
}

func targets(l *List) []grid.Cell {
	var cells []grid.Cell
	for _, a := range l.Activities() {
		cells = append(cells, a.Target()...)
	}
	return cells
}

func TestGenerateMoveActivitiesShape(t *testing.T) {
	start := grid.Cell{Row: 2, Col: 0}
	tests := []struct {
		name  string
		speed int
		steps int
		sizes []int
	}{
		{"single cell", 6, 1, []int{1}},
		{"slow path", 6, 2, []int{1, 1}},
		{"merge at end", 6, 3, []int{1, 2}},
		{"merge late", 6, 4, []int{1, 1, 2}},
		{"full speed", 6, 6, []int{1, 1, 1, 1, 1, 1}},
		{"speed one", 1, 1, []int{1}},
		{"detour longer than speed", 3, 5, []int{1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := placedUnit(t, start, tt.speed)
			l := NewList(u.ID)
			path := line(start, tt.steps)
			require.NoError(t, GenerateMoveActivities(u, path, l))

			var sizes []int
			for _, a := range l.Activities() {
				sizes = append(sizes, len(a.Target()))
				assert.Equal(t, a.Target(), a.Occupied())
				assert.Equal(t, Move, a.Kind())
				assert.Equal(t, unit.PlayerID(1), a.Player())
			}
			assert.Equal(t, tt.sizes, sizes)
			assert.Equal(t, path, targets(l))
		})
	}
}

func TestGenerateChainsOrigins(t *testing.T) {
	start := grid.Cell{Row: 0, Col: 0}
	u := placedUnit(t, start, 6)
	l := NewList(u.ID)
	first := line(start, 3)
	require.NoError(t, GenerateMoveActivities(u, first, l))
	second := line(first[len(first)-1], 2)
	require.NoError(t, GenerateMoveActivities(u, second, l))

	acts := l.Activities()
	require.Len(t, acts, 4)
	assert.Equal(t, []grid.Cell{start}, acts[0].Origin())
	for i := 1; i < len(acts); i++ {
		assert.Equal(t, acts[i-1].Target(), acts[i].Origin(), "activity %d", i)
	}
	assert.Equal(t, append(first, second...), targets(l))

	// relative priority follows the unit's command sequence
	for i := 1; i < len(acts); i++ {
		assert.Less(t, acts[i-1].RelativePriority(), acts[i].RelativePriority())
	}
}

func TestGenerateRejectsForeignList(t *testing.T) {
	u := placedUnit(t, grid.Cell{}, 6)
	err := GenerateMoveActivities(u, line(grid.Cell{}, 1), NewList(uuid.New()))
	assert.Error(t, err)
}

func TestGenerateEmptyPathIsNoop(t *testing.T) {
	u := placedUnit(t, grid.Cell{}, 6)
	l := NewList(u.ID)
	require.NoError(t, GenerateMoveActivities(u, []grid.Cell{}, l))
	assert.Zero(t, l.Len())
}

func TestActivityIsImmutable(t *testing.T) {
	target := []grid.Cell{{Row: 1, Col: 1}}
	a, err := New(Params{Origin: []grid.Cell{{}}, Target: target, Unit: uuid.New()})
	require.NoError(t, err)
	target[0] = grid.Cell{Row: 9, Col: 9}
	got := a.Target()
	got[0] = grid.Cell{Row: 8, Col: 8}
	assert.Equal(t, []grid.Cell{{Row: 1, Col: 1}}, a.Target())
	assert.Equal(t, a.Target(), a.Occupied(), "occupied defaults to target")
}

func TestNewRejectsIncompleteActivity(t *testing.T) {
	_, err := New(Params{Target: []grid.Cell{{}}, Unit: uuid.New()})
	assert.Error(t, err)
	_, err = New(Params{Origin: []grid.Cell{{}}, Target: []grid.Cell{{}}})
	assert.Error(t, err)
}

func TestOrganizeIsStable(t *testing.T) {
	id := uuid.New()
	mk := func(tier, prio, col int) *Activity {
		a, err := New(Params{
			Tier: tier, RelativePriority: prio,
			Origin: []grid.Cell{{}}, Target: []grid.Cell{{Col: col}}, Unit: id,
		})
		require.NoError(t, err)
		return a
	}
	l := NewList(id)
	require.NoError(t, l.Append(mk(1, 0, 1), mk(0, 2, 2), mk(0, 1, 3), mk(0, 1, 4), mk(1, 0, 5)))

	l.Organize()
	var cols []int
	for _, a := range l.Activities() {
		cols = append(cols, a.To().Col)
	}
	assert.Equal(t, []int{3, 4, 2, 1, 5}, cols)

	l.Organize()
	var again []int
	for _, a := range l.Activities() {
		again = append(again, a.To().Col)
	}
	assert.Equal(t, cols, again)
}

func TestListHeadPop(t *testing.T) {
	u := placedUnit(t, grid.Cell{}, 6)
	l := NewList(u.ID)
	_, ok := l.Head()
	assert.False(t, ok)

	require.NoError(t, GenerateMoveActivities(u, line(grid.Cell{}, 2), l))
	head, ok := l.Head()
	require.True(t, ok)
	popped, ok := l.Pop()
	require.True(t, ok)
	assert.Same(t, head, popped)
	assert.Equal(t, 1, l.Len())

	_, _ = l.Pop()
	_, ok = l.Pop()
	assert.False(t, ok)
}

func TestLedger(t *testing.T) {
	led := NewLedger()
	u := placedUnit(t, grid.Cell{}, 6)

	_, ok := led.Pending(u.ID)
	assert.False(t, ok)

	require.NoError(t, GenerateMoveActivities(u, line(grid.Cell{}, 4), led.List(u.ID)))
	l, ok := led.Pending(u.ID)
	require.True(t, ok)
	assert.Same(t, l, led.List(u.ID))
	assert.Equal(t, l.Len(), led.Total())

	led.Remove(u.ID)
	assert.Zero(t, led.Total())
}
