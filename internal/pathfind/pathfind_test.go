package pathfind

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
)

// corridorMap is a 5x5 map whose rows 0-2 are impassable except row 1, columns 1-3.
func corridorMap(t *testing.T) *grid.Map {
	t.Helper()
	m, err := grid.NewMap(5)
	require.NoError(t, err)
	for r := 0; r <= 2; r++ {
		for c := 0; c < 5; c++ {
			sub := grid.Impassable
			if r == 1 && c >= 1 && c <= 3 {
				sub = 0
			}
			require.NoError(t, m.Set(grid.Cell{Row: r, Col: c}, grid.Terrain{Type: grid.Rock, SubType: sub}))
		}
	}
	return m
}

func TestCorridorScenario(t *testing.T) {
	f := New(corridorMap(t))
	for _, speed := range []int{2, 3, 6} {
		path, err := f.FindPath(grid.Cell{Row: 1, Col: 1}, grid.Cell{Row: 1, Col: 3}, speed, grid.Ground)
		require.NoError(t, err, "speed %d", speed)
		assert.Equal(t, []grid.Cell{{Row: 1, Col: 2}, {Row: 1, Col: 3}}, path, "speed %d", speed)

		_, err = f.FindPath(grid.Cell{Row: 1, Col: 1}, grid.Cell{Row: 0, Col: 0}, speed, grid.Ground)
		assert.ErrorIs(t, err, ErrNotFound, "speed %d", speed)
	}
}

func TestOriginEqualsDestination(t *testing.T) {
	f := New(corridorMap(t))
	path, err := f.FindPath(grid.Cell{Row: 1, Col: 2}, grid.Cell{Row: 1, Col: 2}, 3, grid.Ground)
	require.NoError(t, err)
	assert.NotNil(t, path)
	assert.Empty(t, path)
}

func TestDestinationBeyondSpeed(t *testing.T) {
	m, err := grid.NewMap(20)
	require.NoError(t, err)
	f := New(m)

	_, err = f.FindPath(grid.Cell{Row: 0, Col: 0}, grid.Cell{Row: 0, Col: 5}, 4, grid.Ground)
	assert.ErrorIs(t, err, ErrNotFound)

	path, err := f.FindPath(grid.Cell{Row: 0, Col: 0}, grid.Cell{Row: 0, Col: 4}, 4, grid.Ground)
	require.NoError(t, err)
	assert.Equal(t, 4, Cost(path))
}

func TestDetourMustFitInsideWindow(t *testing.T) {
	// A wall at column 2 with one gap at row 4 forces a detour that leaves a speed-2 window.
	m, err := grid.NewMap(7)
	require.NoError(t, err)
	for r := 0; r < 7; r++ {
		if r == 4 {
			continue
		}
		require.NoError(t, m.Set(grid.Cell{Row: r, Col: 2}, grid.Terrain{SubType: grid.Impassable}))
	}
	f := New(m)
	_, err = f.FindPath(grid.Cell{Row: 0, Col: 1}, grid.Cell{Row: 0, Col: 3}, 2, grid.Ground)
	assert.ErrorIs(t, err, ErrNotFound)

	path, err := f.FindPath(grid.Cell{Row: 0, Col: 1}, grid.Cell{Row: 0, Col: 3}, 5, grid.Ground)
	require.NoError(t, err)
	assert.Equal(t, 8, Cost(path))
}

func TestLocomotionGating(t *testing.T) {
	// Column 2 is air-only except for an impassable cell at row 0.
	m, err := grid.NewMap(5)
	require.NoError(t, err)
	for r := 0; r < 5; r++ {
		sub := grid.AirOnly
		if r == 0 {
			sub = grid.Impassable
		}
		require.NoError(t, m.Set(grid.Cell{Row: r, Col: 2}, grid.Terrain{SubType: sub}))
	}
	f := New(m)

	_, err = f.FindPath(grid.Cell{Row: 2, Col: 0}, grid.Cell{Row: 2, Col: 4}, 4, grid.Ground)
	assert.ErrorIs(t, err, ErrNotFound)

	path, err := f.FindPath(grid.Cell{Row: 0, Col: 0}, grid.Cell{Row: 0, Col: 4}, 4, grid.Air)
	require.NoError(t, err)
	assert.Equal(t, 4, Cost(path))
	for _, c := range path {
		tr, err := m.At(c)
		require.NoError(t, err)
		assert.NotEqual(t, grid.Impassable, tr.SubType, "air path crossed impassable %s", c)
	}
}

func TestWithBlocked(t *testing.T) {
	m, err := grid.NewMap(5)
	require.NoError(t, err)
	f := New(m)
	origin, dest := grid.Cell{Row: 2, Col: 0}, grid.Cell{Row: 2, Col: 2}

	path, err := f.FindPath(origin, dest, 3, grid.Ground, WithBlocked(grid.Cell{Row: 2, Col: 1}))
	require.NoError(t, err)
	assert.Equal(t, 2, Cost(path))
	assert.NotContains(t, path, grid.Cell{Row: 2, Col: 1})

	_, err = f.FindPath(origin, dest, 3, grid.Ground, WithBlocked(dest))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadInputFailsFast(t *testing.T) {
	m, err := grid.NewMap(5)
	require.NoError(t, err)
	f := New(m)
	_, err = f.FindPath(grid.Cell{Row: -1, Col: 0}, grid.Cell{}, 3, grid.Ground)
	assert.ErrorIs(t, err, grid.ErrOutOfBounds)
	_, err = f.FindPath(grid.Cell{}, grid.Cell{Row: 1}, -1, grid.Ground)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

// bfs is the reference: shortest 8-directional route inside the same window.
func bfs(m *grid.Map, origin, dest grid.Cell, speed int, loc grid.Locomotion) int {
	dist := map[grid.Cell]int{origin: 0}
	queue := []grid.Cell{origin}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dest {
			return dist[cur]
		}
		for _, d := range dirs {
			next := grid.Cell{Row: cur.Row + d[0], Col: cur.Col + d[1]}
			if _, seen := dist[next]; seen || grid.Chebyshev(origin, next) > speed {
				continue
			}
			tr, err := m.At(next)
			if err != nil || !tr.PassableBy(loc) {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return -1
}

func TestAdmissibilityAgainstBFS(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 40; trial++ {
		m, err := grid.Generate(16, rng)
		require.NoError(t, err)
		f := New(m)
		for q := 0; q < 25; q++ {
			origin := grid.Cell{Row: rng.Intn(16), Col: rng.Intn(16)}
			dest := grid.Cell{Row: rng.Intn(16), Col: rng.Intn(16)}
			speed := 1 + rng.Intn(6)
			loc := grid.Locomotion(rng.Intn(2))

			want := bfs(m, origin, dest, speed, loc)
			path, err := f.FindPath(origin, dest, speed, loc)
			if want < 0 {
				assert.ErrorIs(t, err, ErrNotFound, "%s->%s speed %d", origin, dest, speed)
				continue
			}
			require.NoError(t, err, "%s->%s speed %d", origin, dest, speed)
			assert.Equal(t, want, Cost(path), "%s->%s speed %d", origin, dest, speed)

			prev := origin
			for _, c := range path {
				assert.Equal(t, 1, grid.Chebyshev(prev, c), "non-adjacent step")
				tr, err := m.At(c)
				require.NoError(t, err)
				assert.True(t, tr.PassableBy(loc), "path crosses %s", c)
				prev = c
			}
			if len(path) > 0 {
				assert.Equal(t, dest, path[len(path)-1])
			}
		}
	}
}

func TestDeterministicTieBreak(t *testing.T) {
	m, err := grid.NewMap(9)
	require.NoError(t, err)
	f := New(m)
	a, err := f.FindPath(grid.Cell{Row: 4, Col: 4}, grid.Cell{Row: 1, Col: 7}, 4, grid.Ground)
	require.NoError(t, err)
	b, err := f.FindPath(grid.Cell{Row: 4, Col: 4}, grid.Cell{Row: 1, Col: 7}, 4, grid.Ground)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 3, Cost(a))
}
