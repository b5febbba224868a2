package tictactoe

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	x = entity.PlayerX
	o = entity.PlayerO
	e = entity.EmptyCell
)

func mustBoard(t *testing.T, cells ...entity.Mark) entity.Board {
	t.Helper()

	size := 3
	if len(cells) == 16 {
		size = 4
	}

	board, err := entity.BoardFromCells(size, cells)
	require.NoError(t, err)

	return board
}

func emptyBoard(t *testing.T, size int) entity.Board {
	t.Helper()

	board, err := entity.NewBoard(size)
	require.NoError(t, err)

	return board
}

func TestWinLines(t *testing.T) {
	t.Run("Standard board has eight lines", func(t *testing.T) {
		// When: building the lines of a 3x3 board
		lines := WinLines(3)

		// Then: rows, columns and both diagonals are returned in order
		expected := [][]int{
			{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
			{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
			{0, 4, 8}, {2, 4, 6},
		}
		assert.Equal(t, expected, lines)
	})

	t.Run("4x4 board lines have length four", func(t *testing.T) {
		// When: building the lines of a 4x4 board
		lines := WinLines(4)

		// Then: there are ten lines of four cells each
		require.Len(t, lines, 10)
		for _, line := range lines {
			assert.Len(t, line, 4)
		}
		assert.Equal(t, []int{3, 6, 9, 12}, lines[9])
	})
}

func TestLegalMoves(t *testing.T) {
	t.Run("Center played leaves the other eight cells", func(t *testing.T) {
		// Given: an empty board where X plays the center
		board, err := ApplyMove(emptyBoard(t, 3), entity.Move{Cell: 4, Mark: x})
		require.NoError(t, err)

		// When: enumerating legal moves
		moves := slices.Collect(LegalMoves(board))

		// Then: every other cell is offered to O
		cells := make([]int, 0, len(moves))
		for _, move := range moves {
			assert.Equal(t, o, move.Mark)
			cells = append(cells, move.Cell)
		}
		assert.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 8}, cells)
		assert.Equal(t, entity.OutcomeInProgress, Evaluate(board).Kind)
	})

	t.Run("Sequence is restartable and stops early", func(t *testing.T) {
		// Given: an empty board
		board := emptyBoard(t, 3)
		moves := LegalMoves(board)

		// When: the sequence is consumed twice, the second time partially
		first := slices.Collect(moves)
		var second []entity.Move
		for move := range moves {
			second = append(second, move)
			if len(second) == 2 {
				break
			}
		}

		// Then: both passes start from the lowest cell
		assert.Len(t, first, 9)
		assert.Equal(t, first[:2], second)
	})

	t.Run("Count equals empty cells on every reachable board", func(t *testing.T) {
		// Given: every board reachable from the empty 3x3 grid
		visited := map[string]bool{}

		var walk func(board entity.Board)
		walk = func(board entity.Board) {
			if visited[board.Key()] {
				return
			}
			visited[board.Key()] = true

			// Then: legal moves are exactly the empty cells
			count := 0
			for move := range LegalMoves(board) {
				require.Equal(t, e, board.At(move.Cell))
				count++
			}
			require.Equal(t, board.CellCount()-board.MoveCount(), count)

			if Evaluate(board).IsTerminal() {
				return
			}

			for move := range LegalMoves(board) {
				next, err := ApplyMove(board, move)
				require.NoError(t, err)
				walk(next)
			}
		}

		// When: walking the whole game tree
		walk(emptyBoard(t, 3))

		assert.Len(t, visited, 5478)
	})
}

func TestApplyMove(t *testing.T) {
	t.Run("Valid move fills cell and flips turn", func(t *testing.T) {
		// Given: a new board
		board := emptyBoard(t, 3)

		// When: X plays cell 0
		next, err := ApplyMove(board, entity.Move{Cell: 0, Mark: x})
		require.NoError(t, err)

		// Then: the new board reflects the move, the old one does not
		assert.Equal(t, x, next.At(0))
		assert.Equal(t, o, next.Turn())
		assert.Equal(t, 1, next.MoveCount())
		assert.Equal(t, []int{0}, next.History())

		assert.Equal(t, e, board.At(0))
		assert.Equal(t, x, board.Turn())
		assert.Equal(t, 0, board.MoveCount())
	})

	t.Run("Same input gives identical result", func(t *testing.T) {
		// Given: a board and a move
		board := mustBoard(t, x, e, e, e, o, e, e, e, e)
		move := entity.Move{Cell: 8, Mark: x}

		// When: applying the move twice
		first, err := ApplyMove(board, move)
		require.NoError(t, err)
		second, err := ApplyMove(board, move)
		require.NoError(t, err)

		// Then: both results are structurally equal
		assert.True(t, first.Equal(second))
	})

	t.Run("Error on cell already occupied", func(t *testing.T) {
		// Given: a board where X holds cell 0
		board, err := ApplyMove(emptyBoard(t, 3), entity.Move{Cell: 0, Mark: x})
		require.NoError(t, err)
		before := board.Key()

		// When: O tries the same cell
		next, err := ApplyMove(board, entity.Move{Cell: 0, Mark: o})

		// Then: the move is illegal and nothing changes
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		require.ErrorIs(t, err, apperror.ErrIllegalMove)
		assert.True(t, next.Equal(board))
		assert.Equal(t, before, board.Key())
	})

	t.Run("Error on playing out of turn", func(t *testing.T) {
		// Given: a new board, X to move
		board := emptyBoard(t, 3)

		// When: O tries to move
		_, err := ApplyMove(board, entity.Move{Cell: 1, Mark: o})

		// Then: ErrNotYourTurn is returned
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		require.ErrorIs(t, err, apperror.ErrIllegalMove)
	})

	t.Run("Invalid Cell", func(t *testing.T) {
		// Given: a new board
		board := emptyBoard(t, 3)

		// When: cells outside the grid are passed
		_, errHigh := ApplyMove(board, entity.Move{Cell: 20, Mark: x})
		_, errLow := ApplyMove(board, entity.Move{Cell: -1, Mark: x})

		// Then: ErrInvalidCell is returned for both
		assert.ErrorIs(t, errHigh, apperror.ErrInvalidCell)
		assert.ErrorIs(t, errLow, apperror.ErrInvalidCell)
	})

	t.Run("Move After Game Finished", func(t *testing.T) {
		// Given: a board where X has already won
		board := mustBoard(t, x, x, x, o, o, e, e, e, e)

		// When: O tries to move
		_, err := ApplyMove(board, entity.Move{Cell: 5, Mark: o})

		// Then: ErrGameFinished is returned
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Zero board is rejected", func(t *testing.T) {
		// When: a move is applied to an uninitialised board
		_, err := ApplyMove(entity.Board{}, entity.Move{Cell: 0, Mark: x})

		// Then: ErrInvalidBoard is returned
		assert.ErrorIs(t, err, apperror.ErrInvalidBoard)
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("Top row win", func(t *testing.T) {
		// Given: X X X / O O _ / _ _ _
		board := mustBoard(t, x, x, x, o, o, e, e, e, e)

		// When: evaluating
		outcome := Evaluate(board)

		// Then: X wins on the top row
		assert.Equal(t, entity.Outcome{Kind: entity.OutcomeWin, Winner: x, Line: []int{0, 1, 2}}, outcome)
	})

	t.Run("Column and diagonal wins", func(t *testing.T) {
		// Given: O holds the middle column, X the main diagonal
		column := mustBoard(t, x, o, e, e, o, x, x, o, e)
		diagonal := mustBoard(t, x, o, e, e, x, o, e, e, x)

		// Then: the matching lines are reported
		assert.Equal(t, []int{1, 4, 7}, Evaluate(column).Line)
		assert.Equal(t, o, Evaluate(column).Winner)
		assert.Equal(t, []int{0, 4, 8}, Evaluate(diagonal).Line)
	})

	t.Run("Full board without line is a draw", func(t *testing.T) {
		// Given: X O X / X O O / O X X
		board := mustBoard(t, x, o, x, x, o, o, o, x, x)

		// When: evaluating
		outcome := Evaluate(board)

		// Then: it is a draw without winner
		assert.Equal(t, entity.OutcomeDraw, outcome.Kind)
		assert.Empty(t, outcome.Winner)
		assert.Empty(t, outcome.Line)
	})

	t.Run("Ongoing board", func(t *testing.T) {
		// Given: a board with no line and empty cells
		board := mustBoard(t, x, o, e, e, x, e, e, e, o)

		// Then: the game continues
		assert.Equal(t, entity.OutcomeInProgress, Evaluate(board).Kind)
	})

	t.Run("4x4 anti diagonal", func(t *testing.T) {
		// Given: X on the anti diagonal of a 4x4 board
		board := mustBoard(t,
			o, o, e, x,
			e, o, x, e,
			e, x, e, e,
			x, e, e, o,
		)

		// Then: X wins on the anti diagonal
		outcome := Evaluate(board)
		assert.Equal(t, x, outcome.Winner)
		assert.Equal(t, []int{3, 6, 9, 12}, outcome.Line)
	})

	t.Run("Never win and draw at once", func(t *testing.T) {
		// Given: a full board whose last move completes a line
		board := mustBoard(t, x, o, x, o, x, o, o, x, x)

		// Then: the win takes precedence
		outcome := Evaluate(board)
		assert.Equal(t, entity.OutcomeWin, outcome.Kind)
		assert.Equal(t, x, outcome.Winner)
	})
}
