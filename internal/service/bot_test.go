package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

const (
	x = entity.PlayerX
	o = entity.PlayerO
	e = entity.EmptyCell
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot() BotService {
	return NewBotService(newTestLogger(), BotOptions{Seed: 42})
}

func boardOf(t *testing.T, cells ...entity.Mark) entity.Board {
	t.Helper()

	size := 3
	if len(cells) == 16 {
		size = 4
	}

	board, err := entity.BoardFromCells(size, cells)
	require.NoError(t, err)

	return board
}

func TestBotService_SelectMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Fails with ErrNoLegalMove on a finished board", func(t *testing.T) {
		// Given: a board X has already won
		board := boardOf(t, x, x, x, o, o, e, e, e, e)

		for _, difficulty := range []entity.Difficulty{entity.DifficultyRandom, entity.DifficultyHeuristic, entity.DifficultyOptimal} {
			// When: the bot is asked for a move
			_, err := newTestBot().SelectMove(ctx, board, difficulty)

			// Then: ErrNoLegalMove is returned
			require.ErrorIs(t, err, apperror.ErrNoLegalMove)
		}
	})

	t.Run("Fails with ErrUnknownDifficulty", func(t *testing.T) {
		// Given: an empty board
		board, err := entity.NewBoard(3)
		require.NoError(t, err)

		// When: an unknown difficulty is requested
		_, err = newTestBot().SelectMove(ctx, board, "godlike")

		// Then: ErrUnknownDifficulty is returned
		require.ErrorIs(t, err, apperror.ErrUnknownDifficulty)
	})

	t.Run("Cancelled context stops thinking", func(t *testing.T) {
		// Given: a bot that thinks for an hour and a cancelled context
		bot := NewBotService(newTestLogger(), BotOptions{ThinkDelay: time.Hour, Seed: 1})
		board, err := entity.NewBoard(3)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		// When: the bot is asked for a move
		_, err = bot.SelectMove(cancelled, board, entity.DifficultyRandom)

		// Then: the context error is returned
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBotService_Random(t *testing.T) {
	t.Run("Always legal and covers every cell", func(t *testing.T) {
		// Given: a board with the center taken
		board := boardOf(t, e, e, e, e, x, e, e, e, e)
		bot := newTestBot()
		seen := map[int]bool{}

		// When: asking for many random moves
		for range 500 {
			move, err := bot.SelectMove(context.Background(), board, entity.DifficultyRandom)
			require.NoError(t, err)

			// Then: every move is legal for O
			_, err = tictactoe.ApplyMove(board, move)
			require.NoError(t, err)
			seen[move.Cell] = true
		}

		// Then: all eight empty cells were chosen at some point
		assert.Len(t, seen, 8)
		assert.False(t, seen[4])
	})
}

func TestBotService_Heuristic(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		board    entity.Board
		expected int
	}{
		{
			name:     "Takes the center on an empty board",
			board:    boardOf(t, e, e, e, e, e, e, e, e, e),
			expected: 4,
		},
		{
			name:     "Takes the lowest corner when the center is gone",
			board:    boardOf(t, e, e, e, e, x, e, e, e, e),
			expected: 0,
		},
		{
			name:     "Blocks the opponent",
			board:    boardOf(t, x, x, e, o, e, e, e, e, e),
			expected: 2,
		},
		{
			name:     "Winning beats blocking",
			board:    boardOf(t, x, x, e, o, o, e, x, e, e),
			expected: 5,
		},
		{
			name: "Takes the lowest center cell of a 4x4 board",
			board: boardOf(t,
				e, e, e, e,
				e, e, e, e,
				e, e, e, e,
				e, e, e, e,
			),
			expected: 5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// When: the heuristic bot moves
			move, err := newTestBot().SelectMove(ctx, tc.board, entity.DifficultyHeuristic)

			// Then: the expected cell is chosen for the side to move
			require.NoError(t, err)
			assert.Equal(t, tc.expected, move.Cell)
			assert.Equal(t, tc.board.Turn(), move.Mark)
		})
	}

	t.Run("Always blocks a single threat on every reachable board", func(t *testing.T) {
		bot := newTestBot()
		visited := map[string]bool{}
		checked := 0

		var walk func(board entity.Board)
		walk = func(board entity.Board) {
			if visited[board.Key()] || tictactoe.Evaluate(board).IsTerminal() {
				return
			}
			visited[board.Key()] = true

			// Given: no win for the side to move and exactly one opponent threat
			_, canWin := findWinningCell(board, board.Turn())
			threats := threatCells(board, board.Turn().Opponent())

			if !canWin && len(threats) == 1 {
				// When: the heuristic bot moves
				move, err := bot.SelectMove(ctx, board, entity.DifficultyHeuristic)
				require.NoError(t, err)

				// Then: it plays the blocking cell
				require.Equal(t, threats[0], move.Cell, board.String())
				checked++
			}

			for move := range tictactoe.LegalMoves(board) {
				walk(board.Place(move.Cell))
			}
		}

		walk(boardOf(t, e, e, e, e, e, e, e, e, e))

		assert.Positive(t, checked)
	})
}

func threatCells(board entity.Board, mark entity.Mark) []int {
	var cells []int
	for cell := 0; cell < board.CellCount(); cell++ {
		if board.At(cell) != entity.EmptyCell {
			continue
		}

		for _, line := range tictactoe.WinLines(board.Size()) {
			count, contains := 0, false
			for _, other := range line {
				if other == cell {
					contains = true
				} else if board.At(other) == mark {
					count++
				}
			}
			if contains && count == len(line)-1 {
				cells = append(cells, cell)
				break
			}
		}
	}
	return cells
}

func TestBoardTiers(t *testing.T) {
	assert.Equal(t, []int{4}, centerCells(3))
	assert.Equal(t, []int{0, 2, 6, 8}, cornerCells(3))
	assert.Equal(t, []int{1, 3, 5, 7}, edgeCells(3))

	assert.Equal(t, []int{5, 6, 9, 10}, centerCells(4))
	assert.Equal(t, []int{0, 3, 12, 15}, cornerCells(4))
	assert.Equal(t, []int{1, 2, 4, 7, 8, 11, 13, 14}, edgeCells(4))
}

func TestBotService_Optimal(t *testing.T) {
	ctx := context.Background()

	t.Run("Takes an immediate win", func(t *testing.T) {
		// Given: X can win at once on cell 2
		board := boardOf(t, x, x, e, o, o, e, e, e, e)

		// When: the optimal bot moves
		move, err := newTestBot().SelectMove(ctx, board, entity.DifficultyOptimal)

		// Then: it completes the top row
		require.NoError(t, err)
		assert.Equal(t, 2, move.Cell)
	})

	t.Run("Blocks when losing otherwise", func(t *testing.T) {
		// Given: X threatens the top row and O is to move
		board := boardOf(t, x, x, e, e, o, e, e, e, e)

		// When: the optimal bot moves
		move, err := newTestBot().SelectMove(ctx, board, entity.DifficultyOptimal)

		// Then: it blocks on cell 2
		require.NoError(t, err)
		assert.Equal(t, 2, move.Cell)
	})

	t.Run("Finds the forced win", func(t *testing.T) {
		// Given: X opened in a corner and O answered on the adjacent edge
		board := boardOf(t, x, o, e, e, e, e, e, e, e)

		// When: the optimal bot moves
		move, err := newTestBot().SelectMove(ctx, board, entity.DifficultyOptimal)
		require.NoError(t, err)

		// Then: the chosen move leads to a forced win against every reply
		next, err := tictactoe.ApplyMove(board, move)
		require.NoError(t, err)
		assert.Equal(t, entity.ResultWin, bestAchievable(t, next, x))
	})

	t.Run("Optimal against optimal is a draw from every opening", func(t *testing.T) {
		bot := newTestBot()

		for cell := range 9 {
			// Given: X opens on the cell
			board, err := entity.NewBoard(3)
			require.NoError(t, err)
			board = board.Place(cell)

			// When: both sides play optimally
			for !tictactoe.Evaluate(board).IsTerminal() {
				move, err := bot.SelectMove(ctx, board, entity.DifficultyOptimal)
				require.NoError(t, err)

				board, err = tictactoe.ApplyMove(board, move)
				require.NoError(t, err)
			}

			// Then: nobody wins
			assert.Equal(t, entity.OutcomeDraw, tictactoe.Evaluate(board).Kind, "opening %d: %s", cell, board)
		}
	})

	t.Run("Never loses against any line of play", func(t *testing.T) {
		bot := newTestBot()

		for _, aiMark := range []entity.Mark{x, o} {
			board, err := entity.NewBoard(3)
			require.NoError(t, err)

			games := 0

			var play func(board entity.Board)
			play = func(board entity.Board) {
				outcome := tictactoe.Evaluate(board)
				if outcome.IsTerminal() {
					games++
					// Then: the opponent never completes a line
					require.NotEqual(t, aiMark.Opponent(), outcome.Winner, board.String())
					return
				}

				if board.Turn() == aiMark {
					move, err := bot.SelectMove(ctx, board, entity.DifficultyOptimal)
					require.NoError(t, err)

					next, err := tictactoe.ApplyMove(board, move)
					require.NoError(t, err)
					play(next)
					return
				}

				// When: the opponent tries every legal reply
				for move := range tictactoe.LegalMoves(board) {
					play(board.Place(move.Cell))
				}
			}

			play(board)

			assert.Positive(t, games)
		}
	})

	t.Run("Search timeout falls back to the heuristic", func(t *testing.T) {
		// Given: a bot whose search deadline expires immediately
		bot := NewBotService(newTestLogger(), BotOptions{SearchTimeout: time.Nanosecond, Seed: 1})
		board, err := entity.NewBoard(4)
		require.NoError(t, err)

		// When: the optimal bot moves on an empty 4x4 board
		move, err := bot.SelectMove(ctx, board, entity.DifficultyOptimal)

		// Then: the heuristic center choice is played
		require.NoError(t, err)
		assert.Equal(t, 5, move.Cell)
	})

	t.Run("Cancelled caller aborts the search", func(t *testing.T) {
		// Given: a cancelled context
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		// When: searching directly
		_, err := searchBestMove(cancelled, boardOf(t, e, e, e, e, e, e, e, e, e))

		// Then: the context error is returned
		require.ErrorIs(t, err, context.Canceled)
	})
}

// bestAchievable - plain minimax result for mark from the given position.
func bestAchievable(t *testing.T, board entity.Board, mark entity.Mark) entity.GameResult {
	t.Helper()

	outcome := tictactoe.Evaluate(board)
	if outcome.IsTerminal() {
		return outcome.ResultFor(mark)
	}

	rank := map[entity.GameResult]int{entity.ResultLoss: 0, entity.ResultDraw: 1, entity.ResultWin: 2}
	maximize := board.Turn() == mark

	var best entity.GameResult
	for move := range tictactoe.LegalMoves(board) {
		result := bestAchievable(t, board.Place(move.Cell), mark)
		switch {
		case best == "":
			best = result
		case maximize && rank[result] > rank[best]:
			best = result
		case !maximize && rank[result] < rank[best]:
			best = result
		}
	}

	return best
}
