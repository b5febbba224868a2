package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type Mark string

const (
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
	EmptyCell Mark = ""
)

const (
	MinBoardSize     = 3
	MaxBoardSize     = 4
	DefaultBoardSize = 3
)

// Opponent - returns the mark playing against this one.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

// Board is an immutable snapshot of an N×N grid, the mark to move next and
// the order in which cells were filled. Transitions produce a new Board.
type Board struct {
	size    int
	cells   []Mark
	turn    Mark
	history []int
}

// NewBoard - creates an empty board with X to move.
func NewBoard(size int) (Board, error) {
	if size < MinBoardSize || size > MaxBoardSize {
		return Board{}, fmt.Errorf("%w: %d", apperror.ErrInvalidBoardSize, size)
	}

	return Board{
		size:  size,
		cells: make([]Mark, size*size),
		turn:  PlayerX,
	}, nil
}

// BoardFromCells - rebuilds a board from a persisted grid. X always moves
// first, so the grid must hold as many X as O, or exactly one more X.
func BoardFromCells(size int, cells []Mark) (Board, error) {
	board, err := NewBoard(size)
	if err != nil {
		return Board{}, err
	}

	if len(cells) != size*size {
		return Board{}, fmt.Errorf("%w: expected %d cells, got %d", apperror.ErrInvalidBoard, size*size, len(cells))
	}

	var xCount, oCount int
	for i, cell := range cells {
		switch cell {
		case PlayerX:
			xCount++
		case PlayerO:
			oCount++
		case EmptyCell:
			continue
		default:
			return Board{}, fmt.Errorf("%w: unknown mark %q", apperror.ErrInvalidBoard, cell)
		}

		board.history = append(board.history, i)
	}

	switch xCount - oCount {
	case 0:
		board.turn = PlayerX
	case 1:
		board.turn = PlayerO
	default:
		return Board{}, fmt.Errorf("%w: %d X against %d O", apperror.ErrInvalidBoard, xCount, oCount)
	}

	copy(board.cells, cells)

	return board, nil
}

func (that Board) Size() int {
	return that.size
}

func (that Board) CellCount() int {
	return len(that.cells)
}

// At - returns the mark in the cell, EmptyCell for cells outside the grid.
func (that Board) At(cell int) Mark {
	if !that.InBounds(cell) {
		return EmptyCell
	}
	return that.cells[cell]
}

func (that Board) InBounds(cell int) bool {
	return cell >= 0 && cell < len(that.cells)
}

func (that Board) Turn() Mark {
	return that.turn
}

func (that Board) MoveCount() int {
	return len(that.history)
}

func (that Board) EmptyCount() int {
	return len(that.cells) - len(that.history)
}

func (that Board) Cells() []Mark {
	cells := make([]Mark, len(that.cells))
	copy(cells, that.cells)
	return cells
}

func (that Board) History() []int {
	history := make([]int, len(that.history))
	copy(history, that.history)
	return history
}

// Place - fills the cell with the current turn's mark and flips the turn.
// It performs no validation; tictactoe.ApplyMove is the checked entry point.
func (that Board) Place(cell int) Board {
	next := Board{
		size:    that.size,
		cells:   make([]Mark, len(that.cells)),
		turn:    that.turn.Opponent(),
		history: make([]int, len(that.history), len(that.history)+1),
	}

	copy(next.cells, that.cells)
	copy(next.history, that.history)

	next.cells[cell] = that.turn
	next.history = append(next.history, cell)

	return next
}

func (that Board) Equal(other Board) bool {
	if that.size != other.size || that.turn != other.turn {
		return false
	}

	if len(that.cells) != len(other.cells) || len(that.history) != len(other.history) {
		return false
	}

	for i := range that.cells {
		if that.cells[i] != other.cells[i] {
			return false
		}
	}

	for i := range that.history {
		if that.history[i] != other.history[i] {
			return false
		}
	}

	return true
}

// Key - compact grid form, one character per cell.
func (that Board) Key() string {
	var sb strings.Builder
	sb.Grow(len(that.cells))

	for _, cell := range that.cells {
		if cell == EmptyCell {
			sb.WriteByte('.')
			continue
		}
		sb.WriteString(string(cell))
	}

	return sb.String()
}

func (that Board) String() string {
	key := that.Key()

	rows := make([]string, 0, that.size)
	for r := 0; r < that.size; r++ {
		rows = append(rows, key[r*that.size:(r+1)*that.size])
	}

	return strings.Join(rows, "/")
}

func (that Board) IsZero() bool {
	return that.size == 0
}
