package service

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

// ctxCheckInterval is how many nodes are searched between context checks.
const ctxCheckInterval = 1 << 12

type boundFlag uint8

const (
	boundExact boundFlag = iota
	boundLower
	boundUpper
)

type ttEntry struct {
	value int
	flag  boundFlag
}

// searcher runs one negamax search with alpha-beta pruning. Scores are seen
// from the side to move: a win found at ply p is worth cells+1-p, a loss the
// negation of that, a draw zero. Within one search the ply of a position is
// fixed by its mark count, so the table can be keyed by grid alone.
type searcher struct {
	ctx      context.Context
	maxScore int
	table    map[string]ttEntry
	nodes    int
	err      error
}

// searchBestMove - the lowest cell whose exact minimax score is maximal.
func searchBestMove(ctx context.Context, board entity.Board) (entity.Move, error) {
	s := &searcher{
		ctx:      ctx,
		maxScore: board.CellCount() + 1,
		table:    make(map[string]ttEntry),
	}
	inf := s.maxScore + 1

	best := -inf
	var bestMove entity.Move

	for move := range tictactoe.LegalMoves(board) {
		if err := ctx.Err(); err != nil {
			return entity.Move{}, err
		}

		// a child scoring above best is exact inside the window (best, inf)
		score := -s.negamax(board.Place(move.Cell), 1, -inf, -best)
		if s.err != nil {
			return entity.Move{}, s.err
		}

		if score > best {
			best = score
			bestMove = move
		}
	}

	return bestMove, nil
}

func (that *searcher) negamax(board entity.Board, ply, alpha, beta int) int {
	if that.err != nil {
		return 0
	}

	that.nodes++
	if that.nodes%ctxCheckInterval == 0 {
		if err := that.ctx.Err(); err != nil {
			that.err = err
			return 0
		}
	}

	switch tictactoe.Evaluate(board).Kind {
	case entity.OutcomeWin:
		// the previous mover completed the line
		return -(that.maxScore - ply)
	case entity.OutcomeDraw:
		return 0
	}

	key := board.Key()
	alphaOrig := alpha

	if entry, ok := that.table[key]; ok {
		switch {
		case entry.flag == boundExact:
			return entry.value
		case entry.flag == boundLower && entry.value >= beta:
			return entry.value
		case entry.flag == boundUpper && entry.value <= alpha:
			return entry.value
		}
	}

	value := -that.maxScore - 1
	for move := range tictactoe.LegalMoves(board) {
		score := -that.negamax(board.Place(move.Cell), ply+1, -beta, -alpha)
		if score > value {
			value = score
		}
		if value > alpha {
			alpha = value
		}
		if alpha >= beta {
			break
		}
	}

	if that.err != nil {
		return 0
	}

	entry := ttEntry{value: value, flag: boundExact}
	switch {
	case value <= alphaOrig:
		entry.flag = boundUpper
	case value >= beta:
		entry.flag = boundLower
	}
	that.table[key] = entry

	return value
}
