package tictactoe

import (
	"fmt"
	"iter"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var winLinesCache sync.Map // size -> [][]int

// WinLines - every row, column and both diagonals of an N×N grid, in that order.
func WinLines(size int) [][]int {
	if size <= 0 {
		return nil
	}

	if lines, ok := winLinesCache.Load(size); ok {
		return lines.([][]int)
	}

	lines := make([][]int, 0, 2*size+2)

	for r := 0; r < size; r++ {
		row := make([]int, size)
		for c := 0; c < size; c++ {
			row[c] = r*size + c
		}
		lines = append(lines, row)
	}

	for c := 0; c < size; c++ {
		column := make([]int, size)
		for r := 0; r < size; r++ {
			column[r] = r*size + c
		}
		lines = append(lines, column)
	}

	diagonal := make([]int, size)
	antiDiagonal := make([]int, size)
	for i := 0; i < size; i++ {
		diagonal[i] = i*size + i
		antiDiagonal[i] = i*size + (size - 1 - i)
	}
	lines = append(lines, diagonal, antiDiagonal)

	actual, _ := winLinesCache.LoadOrStore(size, lines)
	return actual.([][]int)
}

// LegalMoves - every empty cell in ascending order, paired with the mark to move.
func LegalMoves(board entity.Board) iter.Seq[entity.Move] {
	return func(yield func(entity.Move) bool) {
		turn := board.Turn()
		for cell := 0; cell < board.CellCount(); cell++ {
			if board.At(cell) != entity.EmptyCell {
				continue
			}
			if !yield(entity.Move{Cell: cell, Mark: turn}) {
				return
			}
		}
	}
}

// ApplyMove - validates the move and returns the board that results from it.
// The input board is never modified.
func ApplyMove(board entity.Board, move entity.Move) (entity.Board, error) {
	if err := validateMove(board, move); err != nil {
		return board, fmt.Errorf("invalid turn: %w", err)
	}

	return board.Place(move.Cell), nil
}

// validateMove - checks if the move is valid.
func validateMove(board entity.Board, move entity.Move) error {
	if board.IsZero() {
		return apperror.ErrInvalidBoard
	}

	if Evaluate(board).IsTerminal() {
		return apperror.ErrGameFinished
	}

	if !board.InBounds(move.Cell) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, move.Cell)
	}

	if board.Turn() != move.Mark {
		return fmt.Errorf("%w: %s to move", apperror.ErrNotYourTurn, board.Turn())
	}

	if board.At(move.Cell) != entity.EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, move.Cell)
	}

	return nil
}

// Evaluate - returns Win with the first complete line, Draw once the grid is
// full, InProgress otherwise.
func Evaluate(board entity.Board) entity.Outcome {
	for _, line := range WinLines(board.Size()) {
		first := board.At(line[0])
		if first == entity.EmptyCell {
			continue
		}

		complete := true
		for _, cell := range line[1:] {
			if board.At(cell) != first {
				complete = false
				break
			}
		}

		if complete {
			winning := make([]int, len(line))
			copy(winning, line)

			return entity.Outcome{Kind: entity.OutcomeWin, Winner: first, Line: winning}
		}
	}

	// the game will continue until all the squares are full
	if board.EmptyCount() > 0 {
		return entity.Outcome{Kind: entity.OutcomeInProgress}
	}

	return entity.Outcome{Kind: entity.OutcomeDraw}
}
