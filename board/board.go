// Package board implements the 4x4x4 tic-tac-toe cube: cell storage, move
// placement, and winner detection across every straight line of four cells.
package board

import "errors"

// Size is the length of each board axis. The board is Size x Size x Size.
const Size = 4

// LineCount is the number of distinct winning lines in the cube:
// 48 axis-aligned + 24 face diagonals + 4 space diagonals.
const LineCount = 76

// Cell holds the owner of a single board position. The numeric values match
// the wire encoding, so a grid serializes without translation.
type Cell int8

const (
	Empty   Cell = 0  // No mark placed yet
	PlayerA Cell = -1 // Mark of the player in slot 0
	PlayerB Cell = 1  // Mark of the player in slot 1
)

// Coord addresses one cell as (Z, Y, X), each axis in [0, Size).
type Coord struct {
	Z int
	Y int
	X int
}

// Grid is the raw cell array, indexed [z][y][x]. It is a value type; passing
// or returning a Grid copies all cells.
type Grid [Size][Size][Size]Cell

var (
	// ErrOutOfBounds is returned when a coordinate falls outside [0, Size).
	ErrOutOfBounds = errors.New("coordinates out of bounds")
	// ErrCellOccupied is returned when the target cell already holds a mark.
	ErrCellOccupied = errors.New("cell already occupied")
)

// lines is the precomputed table of every winning line in the cube.
var lines = buildLines()

// buildLines enumerates all straight lines of Size cells. The order is rows,
// columns, verticals, then the two face diagonals per layer for each axis,
// then the four space diagonals.
func buildLines() [][Size]Coord {
	ls := make([][Size]Coord, 0, LineCount)

	for a := 0; a < Size; a++ {
		for b := 0; b < Size; b++ {
			var row, col, vert [Size]Coord
			for i := 0; i < Size; i++ {
				row[i] = Coord{Z: a, Y: b, X: i}
				col[i] = Coord{Z: a, Y: i, X: b}
				vert[i] = Coord{Z: i, Y: a, X: b}
			}

			ls = append(ls, row, col, vert)
		}
	}

	for a := 0; a < Size; a++ {
		var yx, yxInv, zy, zyInv, zx, zxInv [Size]Coord
		for i := 0; i < Size; i++ {
			yx[i] = Coord{Z: a, Y: i, X: i}
			yxInv[i] = Coord{Z: a, Y: i, X: Size - 1 - i}
			zy[i] = Coord{Z: i, Y: i, X: a}
			zyInv[i] = Coord{Z: i, Y: Size - 1 - i, X: a}
			zx[i] = Coord{Z: i, Y: a, X: i}
			zxInv[i] = Coord{Z: i, Y: a, X: Size - 1 - i}
		}

		ls = append(ls, yx, yxInv, zy, zyInv, zx, zxInv)
	}

	var d1, d2, d3, d4 [Size]Coord
	for i := 0; i < Size; i++ {
		d1[i] = Coord{Z: i, Y: i, X: i}
		d2[i] = Coord{Z: i, Y: i, X: Size - 1 - i}
		d3[i] = Coord{Z: i, Y: Size - 1 - i, X: i}
		d4[i] = Coord{Z: Size - 1 - i, Y: i, X: i}
	}

	return append(ls, d1, d2, d3, d4)
}

// InBounds reports whether (z, y, x) addresses a cell on the board.
//
// Parameters:
//   - z, y, x: The coordinate to check
//
// Returns:
//   - true if every axis is within [0, Size), false otherwise
func InBounds(z, y, x int) bool {
	return z >= 0 && z < Size && y >= 0 && y < Size && x >= 0 && x < Size
}

// CellForSlot returns the mark owned by the given player slot. Slot 0 owns
// PlayerA marks; any other slot owns PlayerB marks. Only slots 0 and 1 ever
// reach the board in a two-player game.
//
// Parameters:
//   - slot: The player slot placing a mark
//
// Returns:
//   - The Cell value representing that player's mark
func CellForSlot(slot int) Cell {
	if slot == 0 {
		return PlayerA
	}

	return PlayerB
}

// SlotForCell returns the player slot that owns the given mark.
//
// Parameters:
//   - c: The cell value to map back to a slot
//
// Returns:
//   - 0 for PlayerA, 1 for PlayerB, -1 for Empty
func SlotForCell(c Cell) int {
	switch c {
	case PlayerA:
		return 0
	case PlayerB:
		return 1
	default:
		return -1
	}
}

// Board owns the cell grid. A cell is written at most once per game; marks
// never revert to Empty. Board itself is not safe for concurrent use; callers
// serialize access.
type Board struct {
	cells Grid
}

// NewBoard returns an empty board.
//
// Returns:
//   - A pointer to a Board with every cell Empty
func NewBoard() *Board {
	return &Board{}
}

// Place writes the mark of the given slot at (z, y, x) if the coordinate is
// on the board and the cell is Empty. On failure nothing is mutated.
//
// Parameters:
//   - z, y, x: The target cell coordinate
//   - slot: The player slot placing the mark
//
// Returns:
//   - nil on success, ErrOutOfBounds or ErrCellOccupied otherwise
func (b *Board) Place(z, y, x int, slot int) error {
	if !InBounds(z, y, x) {
		return ErrOutOfBounds
	}

	if b.cells[z][y][x] != Empty {
		return ErrCellOccupied
	}

	b.cells[z][y][x] = CellForSlot(slot)
	return nil
}

// Cell returns the value at (z, y, x), or Empty if the coordinate is off the
// board.
//
// Parameters:
//   - z, y, x: The cell coordinate to read
//
// Returns:
//   - The Cell value at that coordinate
func (b *Board) Cell(z, y, x int) Cell {
	if !InBounds(z, y, x) {
		return Empty
	}

	return b.cells[z][y][x]
}

// Grid returns a copy of the full cell array.
//
// Returns:
//   - The current Grid by value
func (b *Board) Grid() Grid {
	return b.cells
}

// Winner scans every line in the cube and reports the first player found to
// own all four cells of a line. With alternating turns at most one player can
// satisfy a line, so which line matches first never changes the result.
//
// Returns:
//   - The winning player slot and true, or -1 and false if no line is owned
func (b *Board) Winner() (int, bool) {
	for _, line := range lines {
		first := b.cells[line[0].Z][line[0].Y][line[0].X]
		if first == Empty {
			continue
		}

		owned := true
		for _, c := range line[1:] {
			if b.cells[c.Z][c.Y][c.X] != first {
				owned = false
				break
			}
		}

		if owned {
			return SlotForCell(first), true
		}
	}

	return -1, false
}

// Full reports whether no Empty cell remains in the grid.
//
// Returns:
//   - true if every cell holds a mark, false otherwise
func (g Grid) Full() bool {
	for z := 0; z < Size; z++ {
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				if g[z][y][x] == Empty {
					return false
				}
			}
		}
	}

	return true
}

// Full reports whether no Empty cell remains on the board.
//
// Returns:
//   - true if every cell holds a mark, false otherwise
func (b *Board) Full() bool {
	return b.cells.Full()
}
