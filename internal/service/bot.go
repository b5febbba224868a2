package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type BotService interface {
	SelectMove(ctx context.Context, board entity.Board, difficulty entity.Difficulty) (entity.Move, error)
}

type BotOptions struct {
	// ThinkDelay is waited before every move so replies do not look instant.
	ThinkDelay time.Duration
	// SearchTimeout bounds the optimal search; on expiry the heuristic move is played.
	SearchTimeout time.Duration
	// Seed makes random choices reproducible, zero picks a random seed.
	Seed uint64
}

type botService struct {
	logger *slog.Logger

	thinkDelay    time.Duration
	searchTimeout time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBotService(logger *slog.Logger, opts BotOptions) BotService {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &botService{
		logger:        logger.With("component", "bot"),
		thinkDelay:    opts.ThinkDelay,
		searchTimeout: opts.SearchTimeout,
		rnd:           rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

func (that *botService) SelectMove(ctx context.Context, board entity.Board, difficulty entity.Difficulty) (entity.Move, error) {
	if !difficulty.IsValid() {
		return entity.Move{}, fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, difficulty)
	}

	if board.IsZero() || tictactoe.Evaluate(board).IsTerminal() {
		return entity.Move{}, apperror.ErrNoLegalMove
	}

	if err := that.think(ctx); err != nil {
		return entity.Move{}, err
	}

	var (
		move entity.Move
		err  error
	)

	switch difficulty {
	case entity.DifficultyRandom:
		move = that.randomMove(board)
	case entity.DifficultyHeuristic:
		move = that.heuristicMove(board)
	case entity.DifficultyOptimal:
		move, err = that.optimalMove(ctx, board)
	}

	if err != nil {
		return entity.Move{}, err
	}

	that.logger.Debug("bot selected move", "difficulty", difficulty, "board", board.String(), "cell", move.Cell)

	return move, nil
}

// think - waits the configured delay, returning early when ctx is done.
func (that *botService) think(ctx context.Context) error {
	if that.thinkDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(that.thinkDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("bot stopped thinking: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (that *botService) randomMove(board entity.Board) entity.Move {
	moves := slices.Collect(tictactoe.LegalMoves(board))

	that.mu.Lock()
	defer that.mu.Unlock()

	return moves[that.rnd.IntN(len(moves))]
}

// heuristicMove - win if it can, block if it must, otherwise center, corners,
// edges, taking the lowest free cell of the first tier that has one.
func (that *botService) heuristicMove(board entity.Board) entity.Move {
	turn := board.Turn()

	if cell, ok := findWinningCell(board, turn); ok {
		return entity.Move{Cell: cell, Mark: turn}
	}

	if cell, ok := findWinningCell(board, turn.Opponent()); ok {
		return entity.Move{Cell: cell, Mark: turn}
	}

	size := board.Size()
	for _, tier := range [][]int{centerCells(size), cornerCells(size), edgeCells(size)} {
		for _, cell := range tier {
			if board.At(cell) == entity.EmptyCell {
				return entity.Move{Cell: cell, Mark: turn}
			}
		}
	}

	return that.randomMove(board)
}

// findWinningCell - lowest empty cell that completes a line for mark.
func findWinningCell(board entity.Board, mark entity.Mark) (int, bool) {
	lines := tictactoe.WinLines(board.Size())

	for cell := 0; cell < board.CellCount(); cell++ {
		if board.At(cell) != entity.EmptyCell {
			continue
		}

		for _, line := range lines {
			if !slices.Contains(line, cell) {
				continue
			}

			completes := true
			for _, other := range line {
				if other != cell && board.At(other) != mark {
					completes = false
					break
				}
			}

			if completes {
				return cell, true
			}
		}
	}

	return 0, false
}

func centerCells(size int) []int {
	mid := size / 2
	if size%2 == 1 {
		return []int{mid*size + mid}
	}

	return []int{
		(mid-1)*size + mid - 1, (mid-1)*size + mid,
		mid*size + mid - 1, mid*size + mid,
	}
}

func cornerCells(size int) []int {
	last := size - 1
	return []int{0, last, last * size, last*size + last}
}

func edgeCells(size int) []int {
	last := size - 1
	edges := make([]int, 0, 4*(size-2))

	for cell := 0; cell < size*size; cell++ {
		row, col := cell/size, cell%size
		onBorder := row == 0 || row == last || col == 0 || col == last
		isCorner := (row == 0 || row == last) && (col == 0 || col == last)

		if onBorder && !isCorner {
			edges = append(edges, cell)
		}
	}

	return edges
}

func (that *botService) optimalMove(ctx context.Context, board entity.Board) (entity.Move, error) {
	searchCtx := ctx
	if that.searchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, that.searchTimeout)
		defer cancel()
	}

	move, err := searchBestMove(searchCtx, board)
	if err == nil {
		return move, nil
	}

	// only our own deadline degrades to the heuristic, a cancelled caller gets the error
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		that.logger.Warn("optimal search timed out, falling back to heuristic",
			"board", board.String(), "timeout", that.searchTimeout)

		return that.heuristicMove(board), nil
	}

	return entity.Move{}, fmt.Errorf("optimal search aborted: %w", err)
}
