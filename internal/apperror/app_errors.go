package apperror

import (
	"errors"
	"fmt"
)

var ErrIllegalMove = errors.New("illegal move")

var (
	ErrInvalidCell  = fmt.Errorf("%w: invalid cell index", ErrIllegalMove)
	ErrCellOccupied = fmt.Errorf("%w: cell is already occupied", ErrIllegalMove)
	ErrNotYourTurn  = fmt.Errorf("%w: it's not your turn", ErrIllegalMove)
)

var (
	ErrGameFinished      = errors.New("game is already finished")
	ErrNoLegalMove       = errors.New("no legal move available")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrMoveInProgress    = errors.New("another move is in progress")
	ErrSessionNotFound   = errors.New("session not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInvalidBoardSize  = errors.New("invalid board size")
	ErrInvalidBoard      = errors.New("invalid board")
	ErrInvalidResult     = errors.New("invalid game result")
	ErrInvalidPlayerName = errors.New("invalid player name")
)

var (
	// ErrSessionClosed - the session was ended or evicted while in use.
	ErrSessionClosed = fmt.Errorf("%w: session is closed", ErrSessionNotFound)
	// ErrFinishedNoMove - no move can be suggested for a finished game.
	ErrFinishedNoMove = fmt.Errorf("%w: %w", ErrNoLegalMove, ErrGameFinished)
)
