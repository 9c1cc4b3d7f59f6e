package unit

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
)

func TestRegistryInsertTakeMove(t *testing.T) {
	r := NewRegistry(1, 5)
	u := New(PhysicalBuilder, 1)

	require.NoError(t, r.Insert(u, grid.Cell{Row: 1, Col: 1}))
	assert.True(t, r.Occupied(grid.Cell{Row: 1, Col: 1}))
	assert.Equal(t, grid.Cell{Row: 1, Col: 1}, u.Location())
	assert.ErrorIs(t, r.Insert(u, grid.Cell{Row: 2, Col: 2}), ErrAlreadyPlaced)

	require.NoError(t, r.Move(u.ID, grid.Cell{Row: 1, Col: 2}))
	assert.False(t, r.Occupied(grid.Cell{Row: 1, Col: 1}))
	assert.True(t, r.Occupied(grid.Cell{Row: 1, Col: 2}))
	assert.Equal(t, grid.Cell{Row: 1, Col: 2}, u.Location())
	require.NoError(t, r.CheckInvariant())

	taken, err := r.Take(u.ID)
	require.NoError(t, err)
	assert.False(t, taken.Placed())
	assert.Equal(t, 0, r.Len())
	_, err = r.Take(u.ID)
	assert.ErrorIs(t, err, ErrNotPlaced)
}

func TestRegistryStacking(t *testing.T) {
	r := NewRegistry(2, 3)
	a, b := New(PhysicalBuilder, 2), New(RaeclarianManus, 2)
	c := grid.Cell{Row: 0, Col: 0}
	require.NoError(t, r.Insert(a, c))
	require.NoError(t, r.Insert(b, c))

	units, err := r.Units(c)
	require.NoError(t, err)
	assert.Equal(t, []*Unit{a, b}, units)
	first, ok := r.First(c)
	require.True(t, ok)
	assert.Same(t, a, first)

	_, err = r.Take(a.ID)
	require.NoError(t, err)
	first, _ = r.First(c)
	assert.Same(t, b, first)
	require.NoError(t, r.CheckInvariant())
}

func TestRegistryRejectsForeignAndOutOfBounds(t *testing.T) {
	r := NewRegistry(1, 3)
	assert.ErrorIs(t, r.Insert(New(PhysicalBuilder, 2), grid.Cell{}), ErrWrongPlayer)
	assert.ErrorIs(t, r.Insert(New(PhysicalBuilder, 1), grid.Cell{Row: 3, Col: 0}), grid.ErrOutOfBounds)

	u := New(PhysicalBuilder, 1)
	require.NoError(t, r.Insert(u, grid.Cell{}))
	assert.ErrorIs(t, r.Move(u.ID, grid.Cell{Row: -1, Col: 0}), grid.ErrOutOfBounds)
	assert.Equal(t, grid.Cell{}, u.Location(), "failed move must leave the unit in place")
	_, err := r.Units(grid.Cell{Row: 9, Col: 9})
	assert.ErrorIs(t, err, grid.ErrOutOfBounds)
}

func TestRegistryUnitConservation(t *testing.T) {
	r := NewRegistry(1, 6)
	var ids []uuid.UUID
	for i := 0; i < 6; i++ {
		u := New(PhysicalBuilder, 1)
		require.NoError(t, r.Insert(u, grid.Cell{Row: i, Col: i}))
		ids = append(ids, u.ID)
	}
	for step := 0; step < 30; step++ {
		id := ids[step%len(ids)]
		require.NoError(t, r.Move(id, grid.Cell{Row: step % 6, Col: (step * 7) % 6}))
		require.NoError(t, r.CheckInvariant())
		assert.Equal(t, len(ids), r.Len())
	}
}

func TestRegistriesForeignOccupant(t *testing.T) {
	rs := Registries{1: NewRegistry(1, 4), 2: NewRegistry(2, 4), 3: NewRegistry(3, 4)}
	c := grid.Cell{Row: 2, Col: 2}
	mine := New(PhysicalBuilder, 1)
	third := New(RaeclarianManus, 3)
	second := New(PhysicalBuilder, 2)
	require.NoError(t, rs[1].Insert(mine, c))
	require.NoError(t, rs[3].Insert(third, c))

	got, ok := rs.ForeignOccupant(1, c)
	require.True(t, ok)
	assert.Same(t, third, got)

	require.NoError(t, rs[2].Insert(second, c))
	got, _ = rs.ForeignOccupant(1, c)
	assert.Same(t, second, got, "lowest foreign player wins")

	_, ok = rs.ForeignOccupant(1, grid.Cell{})
	assert.False(t, ok)
	assert.Equal(t, []PlayerID{1, 2, 3}, rs.Players())

	found, ok := rs.Find(third.ID)
	require.True(t, ok)
	assert.Same(t, third, found)
}

func TestDescriptorRoundTrip(t *testing.T) {
	r := NewRegistry(3, 50)
	u := New(PhysicalBuilder, 3)
	require.NoError(t, r.Insert(u, grid.Cell{Row: 2, Col: 7}))

	s := u.Descriptor(50)
	parts := strings.Split(s, ":")
	require.Len(t, parts, DescriptorFieldCount)
	assert.Equal(t, 60, DescriptorFieldCount)
	assert.Equal(t, "12", parts[0], "health leads")
	assert.Equal(t, "6", parts[3], "movement speed")
	assert.Equal(t, "107", parts[11], "row-major location")
	assert.Equal(t, "3", parts[12], "owner")
	assert.Equal(t, "-1", parts[13], "spacer")
	assert.Equal(t, "4", parts[14], "production cost")
	assert.Equal(t, "3", parts[16], "intellect attack")
	assert.Equal(t, "5", parts[59], "pierce defense closes the dump")

	d, err := ParseDescriptor(s)
	require.NoError(t, err)
	assert.Equal(t, PlayerID(3), d.Player)
	assert.Equal(t, 107, d.Location)
	want := u.Stats
	want.MagicRegen, want.EnergyRegen, want.ChannelTime, want.MeleeDamage, want.RangedDamage = 0, 0, 0, 0, 0
	assert.Equal(t, want, d.Stats)
}

func TestParseDescriptorRejectsMalformed(t *testing.T) {
	good := New(RaeclarianManus, 1).Descriptor(10)
	tests := map[string]string{
		"empty":      "",
		"short":      "1:2:3",
		"not a num":  strings.Replace(good, "12", "x", 1),
		"bad spacer": replaceField(good, 13, "0"),
	}
	for name, in := range tests {
		_, err := ParseDescriptor(in)
		assert.ErrorIs(t, err, ErrMalformedDescriptor, name)
	}
}

func replaceField(s string, i int, v string) string {
	parts := strings.Split(s, ":")
	parts[i] = v
	return strings.Join(parts, ":")
}

func TestParseType(t *testing.T) {
	got, err := ParseType("RAECLARIAN_MANUS")
	require.NoError(t, err)
	assert.Equal(t, RaeclarianManus, got)
	_, err = ParseType("DRAGON")
	assert.Error(t, err)
}
