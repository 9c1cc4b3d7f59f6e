package grid

import (
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("cell out of bounds")

// Cell is a (row, column) coordinate on the square map.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Chebyshev returns max(|dRow|, |dCol|), the number of 8-directional steps between a and b
// on an open grid.
func Chebyshev(a, b Cell) int {
	return max(abs(a.Row-b.Row), abs(a.Col-b.Col))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CheckBounds fails with ErrOutOfBounds when c is not inside a size x size grid.
func CheckBounds(c Cell, size int) error {
	if c.Row < 0 || c.Row >= size || c.Col < 0 || c.Col >= size {
		return fmt.Errorf("%w: %s not in [0,%d)", ErrOutOfBounds, c, size)
	}
	return nil
}

// Key renders an ordered cell sequence as a comparable value, "r,c;r,c".
func Key(cells []Cell) string {
	b := make([]byte, 0, len(cells)*6)
	for i, c := range cells {
		if i > 0 {
			b = append(b, ';')
		}
		b = fmt.Appendf(b, "%d,%d", c.Row, c.Col)
	}
	return string(b)
}
