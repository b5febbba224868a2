package entity

import (
	"encoding/json"
	"time"
)

type GameResult string

const (
	ResultWin  GameResult = "win"
	ResultLoss GameResult = "loss"
	ResultDraw GameResult = "draw"
)

func (that GameResult) IsValid() bool {
	return that == ResultWin || that == ResultLoss || that == ResultDraw
}

// OutcomeRecord is what a finished session reports for one human player.
type OutcomeRecord struct {
	PlayerName         string     `json:"playerName"`
	Result             GameResult `json:"result"`
	OpponentDifficulty Difficulty `json:"opponentDifficulty,omitempty"`
}

type DifficultyStats struct {
	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// PlayerStats - running tallies of one player. CurrentStreak is positive for
// consecutive wins and negative for consecutive losses.
type PlayerStats struct {
	Name             string                         `json:"name"`
	GamesPlayed      int                            `json:"gamesPlayed"`
	Wins             int                            `json:"wins"`
	Losses           int                            `json:"losses"`
	Draws            int                            `json:"draws"`
	CurrentStreak    int                            `json:"currentStreak"`
	LongestWinStreak int                            `json:"longestWinStreak"`
	Difficulties     map[Difficulty]DifficultyStats `json:"difficulties,omitempty"`
	LastPlayedAt     *time.Time                     `json:"lastPlayedAt,omitempty"`
}

func NewPlayerStats(name string) *PlayerStats {
	return &PlayerStats{Name: name}
}

// Apply - counts one finished game. A draw ends any streak.
func (that *PlayerStats) Apply(result GameResult, opponent Difficulty, at time.Time) {
	that.GamesPlayed++

	switch result {
	case ResultWin:
		that.Wins++
		if that.CurrentStreak > 0 {
			that.CurrentStreak++
		} else {
			that.CurrentStreak = 1
		}
	case ResultLoss:
		that.Losses++
		if that.CurrentStreak < 0 {
			that.CurrentStreak--
		} else {
			that.CurrentStreak = -1
		}
	case ResultDraw:
		that.Draws++
		that.CurrentStreak = 0
	}

	if that.CurrentStreak > that.LongestWinStreak {
		that.LongestWinStreak = that.CurrentStreak
	}

	if opponent != "" {
		if that.Difficulties == nil {
			that.Difficulties = make(map[Difficulty]DifficultyStats)
		}

		breakdown := that.Difficulties[opponent]
		breakdown.Games++
		switch result {
		case ResultWin:
			breakdown.Wins++
		case ResultLoss:
			breakdown.Losses++
		case ResultDraw:
			breakdown.Draws++
		}
		that.Difficulties[opponent] = breakdown
	}

	playedAt := at.UTC()
	that.LastPlayedAt = &playedAt
}

func (that *PlayerStats) WinRate() float64 {
	if that.GamesPlayed == 0 {
		return 0
	}
	return float64(that.Wins) / float64(that.GamesPlayed)
}

// Clone - deep copy, safe to hand out while the original keeps changing.
func (that *PlayerStats) Clone() PlayerStats {
	clone := *that

	if that.Difficulties != nil {
		clone.Difficulties = make(map[Difficulty]DifficultyStats, len(that.Difficulties))
		for difficulty, breakdown := range that.Difficulties {
			clone.Difficulties[difficulty] = breakdown
		}
	}

	if that.LastPlayedAt != nil {
		playedAt := *that.LastPlayedAt
		clone.LastPlayedAt = &playedAt
	}

	return clone
}

// MarshalJSON adds the derived win rate to the wire form.
func (that PlayerStats) MarshalJSON() ([]byte, error) {
	type plain PlayerStats

	return json.Marshal(struct {
		plain
		WinRate float64 `json:"winRate"`
	}{
		plain:   plain(that),
		WinRate: that.WinRate(),
	})
}

type PlayerStatsDto struct {
	Name  string      `json:"name"`
	Stats PlayerStats `json:"stats"`
}

// StatsTotals are counted once per finished game, never per player.
type StatsTotals struct {
	Games int `json:"games"`
	Draws int `json:"draws"`
}

type StatsSummary struct {
	PlayerCount      int     `json:"playerCount"`
	TotalGames       int     `json:"totalGames"`
	TotalWins        int     `json:"totalWins"`
	TotalDraws       int     `json:"totalDraws"`
	AverageWinRate   float64 `json:"averageWinRate"`
	TopPlayerName    string  `json:"topPlayerName"`
	TopPlayerWinRate float64 `json:"topPlayerWinRate"`
	LongestWinStreak int     `json:"longestWinStreak"`
}
