package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

func playedBoard(t *testing.T, cells ...int) Board {
	t.Helper()

	board, err := NewBoard(3)
	require.NoError(t, err)
	for _, cell := range cells {
		board = board.Place(cell)
	}

	return board
}

func testPlayers() Players {
	return Players{
		X: Player{Name: "Alice", Mark: PlayerX},
		O: Player{Mark: PlayerO, Difficulty: DifficultyOptimal},
	}
}

func TestNewGame(t *testing.T) {
	t.Run("Game in progress", func(t *testing.T) {
		// Given: a board after two moves
		board := playedBoard(t, 4, 0)

		// When: building its snapshot
		game := NewGame("g1", board, testPlayers(), Outcome{Kind: OutcomeInProgress})

		// Then: it is awaiting X with the last move recorded
		assert.True(t, game.IsAwaitingMove())
		assert.Equal(t, PlayerX, game.Turn)
		assert.Equal(t, 2, game.MoveCount)
		assert.Equal(t, &Move{Cell: 0, Mark: PlayerO}, game.LastMove)

		owner, ok := game.TurnOwner()
		require.True(t, ok)
		assert.Equal(t, "Alice", owner.Name)
	})

	t.Run("Finished game has no turn", func(t *testing.T) {
		board := playedBoard(t, 0, 3, 1, 4, 2)

		game := NewGame("g1", board, testPlayers(), Outcome{Kind: OutcomeWin, Winner: PlayerX, Line: []int{0, 1, 2}})

		assert.True(t, game.IsFinished())
		assert.Equal(t, EmptyCell, game.Turn)

		_, ok := game.TurnOwner()
		assert.False(t, ok)
	})

	t.Run("Fresh game omits optionals in JSON", func(t *testing.T) {
		game := NewGame("g1", playedBoard(t), Players{X: Player{Mark: PlayerX}, O: Player{Mark: PlayerO}}, Outcome{Kind: OutcomeInProgress})

		data, err := json.Marshal(game)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		assert.NotContains(t, fields, "lastMove")
		assert.NotContains(t, fields, "history")
		assert.Equal(t, map[string]any{"kind": "in_progress"}, fields["outcome"])
		assert.Equal(t, map[string]any{"mark": "X"}, fields["players"].(map[string]any)["x"])
	})
}

func TestGame_RestoreBoard(t *testing.T) {
	t.Run("Replays the history", func(t *testing.T) {
		// Given: a stored game
		board := playedBoard(t, 8, 4, 0)
		game := NewGame("g1", board, testPlayers(), Outcome{Kind: OutcomeInProgress})

		// When: restoring it after a JSON round trip
		data, err := json.Marshal(game)
		require.NoError(t, err)
		var stored Game
		require.NoError(t, json.Unmarshal(data, &stored))

		restored, err := stored.RestoreBoard()

		// Then: the board is the same, move order included
		require.NoError(t, err)
		assert.True(t, board.Equal(restored))
	})

	testCases := []struct {
		name     string
		game     Game
		expected error
	}{
		{
			name:     "history out of grid",
			game:     Game{ID: "g", Size: 3, Board: make([]Mark, 9), History: []int{9}},
			expected: ErrCorruptHistory,
		},
		{
			name:     "history disagrees with grid",
			game:     Game{ID: "g", Size: 3, Board: []Mark{PlayerX, "", "", "", "", "", "", "", ""}, History: []int{4}},
			expected: ErrCorruptHistory,
		},
		{
			name:     "bad size",
			game:     Game{ID: "g", Size: 9},
			expected: apperror.ErrInvalidBoardSize,
		},
		{
			name:     "bad grid",
			game:     Game{ID: "g", Size: 3, Board: []Mark{PlayerO, "", "", "", "", "", "", "", ""}},
			expected: apperror.ErrInvalidBoard,
		},
	}

	for _, tc := range testCases {
		t.Run("Rejects "+tc.name, func(t *testing.T) {
			_, err := tc.game.RestoreBoard()

			require.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	testCases := []struct {
		label    string
		expected Difficulty
	}{
		{"random", DifficultyRandom},
		{"easy", DifficultyRandom},
		{"Medium", DifficultyHeuristic},
		{" heuristic ", DifficultyHeuristic},
		{"HARD", DifficultyOptimal},
		{"optimal", DifficultyOptimal},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			difficulty, err := ParseDifficulty(tc.label)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, difficulty)
			assert.True(t, difficulty.IsValid())
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseDifficulty("impossible")

		require.ErrorIs(t, err, apperror.ErrUnknownDifficulty)
		assert.False(t, Difficulty("impossible").IsValid())
	})

	t.Run("Bot players", func(t *testing.T) {
		assert.True(t, Player{Difficulty: DifficultyRandom}.IsBot())
		assert.False(t, Player{Name: "Alice"}.IsBot())
	})
}
