package entity

import (
	"errors"
	"fmt"
	"time"
)

var ErrCorruptHistory = errors.New("corrupt game history")

const (
	StatusAwaitingMove = "awaiting_move"
	StatusFinished     = "finished"
)

type Players struct {
	X Player `json:"x"`
	O Player `json:"o"`
}

// ByMark - returns the player holding the mark.
func (that Players) ByMark(mark Mark) Player {
	if mark == PlayerO {
		return that.O
	}
	return that.X
}

// Game is the snapshot of a session handed to collaborators and persisted
// as the game record.
type Game struct {
	ID        string    `json:"id"`
	Size      int       `json:"size"`
	Board     []Mark    `json:"board"`
	Turn      Mark      `json:"turn,omitempty"`
	Status    string    `json:"status"`
	MoveCount int       `json:"moveCount"`
	History   []int     `json:"history,omitempty"`
	Players   Players   `json:"players"`
	Outcome   Outcome   `json:"outcome"`
	LastMove  *Move     `json:"lastMove,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewGame - builds the snapshot of a board with its outcome.
func NewGame(id string, board Board, players Players, outcome Outcome) *Game {
	game := &Game{
		ID:        id,
		Size:      board.Size(),
		Board:     board.Cells(),
		Turn:      board.Turn(),
		Status:    StatusAwaitingMove,
		MoveCount: board.MoveCount(),
		History:   board.History(),
		Players:   players,
		Outcome:   outcome,
	}

	if outcome.IsTerminal() {
		game.Status = StatusFinished
		game.Turn = EmptyCell
	}

	if history := game.History; len(history) > 0 {
		cell := history[len(history)-1]
		game.LastMove = &Move{Cell: cell, Mark: game.Board[cell]}
	}

	return game
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsAwaitingMove() bool {
	return that.Status == StatusAwaitingMove
}

// TurnOwner - the player expected to move, false once the game is finished.
func (that *Game) TurnOwner() (Player, bool) {
	if that.IsFinished() {
		return Player{}, false
	}
	return that.Players.ByMark(that.Turn), true
}

// RestoreBoard - rebuilds the board by replaying the recorded history, so the
// move order survives a round trip through storage.
func (that *Game) RestoreBoard() (Board, error) {
	board, err := NewBoard(that.Size)
	if err != nil {
		return Board{}, fmt.Errorf("failed to restore board of game %s: %w", that.ID, err)
	}

	for _, cell := range that.History {
		if !board.InBounds(cell) || board.At(cell) != EmptyCell {
			return Board{}, fmt.Errorf("%w: game %s replays cell %d twice or out of grid", ErrCorruptHistory, that.ID, cell)
		}
		board = board.Place(cell)
	}

	expected, err := BoardFromCells(that.Size, that.Board)
	if err != nil {
		return Board{}, fmt.Errorf("failed to restore board of game %s: %w", that.ID, err)
	}

	if board.Key() != expected.Key() {
		return Board{}, fmt.Errorf("%w: game %s history does not match its grid", ErrCorruptHistory, that.ID)
	}

	return board, nil
}
