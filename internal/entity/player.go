package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type Difficulty string

const (
	DifficultyRandom    Difficulty = "random"
	DifficultyHeuristic Difficulty = "heuristic"
	DifficultyOptimal   Difficulty = "optimal"
)

var difficultyAliases = map[string]Difficulty{
	"random":    DifficultyRandom,
	"easy":      DifficultyRandom,
	"heuristic": DifficultyHeuristic,
	"medium":    DifficultyHeuristic,
	"optimal":   DifficultyOptimal,
	"hard":      DifficultyOptimal,
}

// ParseDifficulty - accepts a difficulty label or one of its easy/medium/hard aliases.
func ParseDifficulty(label string) (Difficulty, error) {
	difficulty, ok := difficultyAliases[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, label)
	}

	return difficulty, nil
}

func (that Difficulty) IsValid() bool {
	switch that {
	case DifficultyRandom, DifficultyHeuristic, DifficultyOptimal:
		return true
	default:
		return false
	}
}

// Player is a participant of a session. A player without difficulty is a human.
type Player struct {
	Name       string     `json:"name,omitempty"`
	Mark       Mark       `json:"mark"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

func (that Player) IsBot() bool {
	return that.Difficulty != ""
}
