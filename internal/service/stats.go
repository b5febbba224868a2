package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const noTopPlayer = "N/A"

type statsRepo interface {
	SaveGame(ctx context.Context, players []entity.PlayerStats, totals entity.StatsTotals) error
	LoadAll(ctx context.Context) ([]entity.PlayerStats, entity.StatsTotals, error)
}

// StatsService aggregates finished games into per-player statistics. The
// in-memory state is authoritative; every change is written through to the
// repository in the order it was applied.
type StatsService struct {
	logger *slog.Logger
	repo   statsRepo
	now    func() time.Time

	mu      sync.RWMutex
	players map[string]*entity.PlayerStats
	totals  entity.StatsTotals

	// taken before mu is released so saves reach storage in apply order
	persistMu sync.Mutex
}

func NewStatsService(logger *slog.Logger, repo statsRepo) *StatsService {
	return &StatsService{
		logger:  logger.With("component", "stats"),
		repo:    repo,
		now:     time.Now,
		players: make(map[string]*entity.PlayerStats),
	}
}

// Restore - loads previously persisted statistics, replacing the in-memory state.
func (that *StatsService) Restore(ctx context.Context) error {
	players, totals, err := that.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.players = make(map[string]*entity.PlayerStats, len(players))
	for i := range players {
		stats := players[i].Clone()
		that.players[stats.Name] = &stats
	}
	that.totals = totals

	that.logger.Info("stats restored", "players", len(players), "games", totals.Games)

	return nil
}

// RecordOutcome - counts one game for a single player.
func (that *StatsService) RecordOutcome(ctx context.Context, name string, result entity.GameResult, opponent entity.Difficulty) (entity.PlayerStats, error) {
	record := entity.OutcomeRecord{PlayerName: name, Result: result, OpponentDifficulty: opponent}

	updated, err := that.record(ctx, []entity.OutcomeRecord{record}, result == entity.ResultDraw)
	if err != nil {
		return entity.PlayerStats{}, err
	}

	return updated[0], nil
}

// RecordGame - counts one finished session for all of its players at once.
// The session is counted a single time in the totals however many players it touched.
func (that *StatsService) RecordGame(ctx context.Context, sessionID string, records []entity.OutcomeRecord, draw bool) error {
	if _, err := that.record(ctx, records, draw); err != nil {
		return fmt.Errorf("failed to record session %s: %w", sessionID, err)
	}

	return nil
}

func (that *StatsService) record(ctx context.Context, records []entity.OutcomeRecord, draw bool) ([]entity.PlayerStats, error) {
	records = slices.Clone(records)
	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return nil, err
		}
	}

	that.mu.Lock()

	now := that.now()
	updated := make([]entity.PlayerStats, 0, len(records))

	for _, record := range records {
		stats, ok := that.players[record.PlayerName]
		if !ok {
			stats = entity.NewPlayerStats(record.PlayerName)
			that.players[record.PlayerName] = stats
		}

		stats.Apply(record.Result, record.OpponentDifficulty, now)
		updated = append(updated, stats.Clone())
	}

	that.totals.Games++
	if draw {
		that.totals.Draws++
	}
	totals := that.totals

	that.persistMu.Lock()
	that.mu.Unlock()
	defer that.persistMu.Unlock()

	// a failed save is not rolled back, the next successful save of the player catches up
	if err := that.repo.SaveGame(ctx, updated, totals); err != nil {
		that.logger.Error("failed to persist stats", "error", err, "players", len(updated))
	}

	return updated, nil
}

func validateRecord(record *entity.OutcomeRecord) error {
	record.PlayerName = strings.TrimSpace(record.PlayerName)
	if record.PlayerName == "" {
		return apperror.ErrInvalidPlayerName
	}

	if !record.Result.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidResult, record.Result)
	}

	if record.OpponentDifficulty != "" && !record.OpponentDifficulty.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, record.OpponentDifficulty)
	}

	return nil
}

func (that *StatsService) GetStats(name string) (entity.PlayerStatsDto, error) {
	name = strings.TrimSpace(name)

	that.mu.RLock()
	defer that.mu.RUnlock()

	stats, ok := that.players[name]
	if !ok {
		return entity.PlayerStatsDto{}, fmt.Errorf("%w: %q", apperror.ErrPlayerNotFound, name)
	}

	return entity.PlayerStatsDto{Name: name, Stats: stats.Clone()}, nil
}

// Leaderboard - ranked players, all of them when limit is not positive.
func (that *StatsService) Leaderboard(limit int) []entity.PlayerStatsDto {
	players, _ := that.snapshot()
	ranked := RankPlayers(players)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	return ranked
}

func (that *StatsService) Summary() entity.StatsSummary {
	return Summarize(that.snapshot())
}

// snapshot - copies of the players with the totals of the same moment.
func (that *StatsService) snapshot() ([]entity.PlayerStats, entity.StatsTotals) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	players := make([]entity.PlayerStats, 0, len(that.players))
	for _, stats := range that.players {
		players = append(players, stats.Clone())
	}

	return players, that.totals
}

// RankPlayers - orders by win rate, then games played (both descending), then name.
func RankPlayers(players []entity.PlayerStats) []entity.PlayerStatsDto {
	sorted := slices.Clone(players)

	slices.SortStableFunc(sorted, func(a, b entity.PlayerStats) int {
		if c := cmp.Compare(b.WinRate(), a.WinRate()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.GamesPlayed, a.GamesPlayed); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	ranked := make([]entity.PlayerStatsDto, 0, len(sorted))
	for _, stats := range sorted {
		ranked = append(ranked, entity.PlayerStatsDto{Name: stats.Name, Stats: stats})
	}

	return ranked
}

// Summarize - aggregate view. Game and draw totals come from game events
// because summing per-player counters counts a two-player game twice.
func Summarize(players []entity.PlayerStats, totals entity.StatsTotals) entity.StatsSummary {
	summary := entity.StatsSummary{
		PlayerCount:   len(players),
		TotalGames:    totals.Games,
		TotalDraws:    totals.Draws,
		TopPlayerName: noTopPlayer,
	}

	if len(players) == 0 {
		return summary
	}

	var rateSum float64
	for i := range players {
		summary.TotalWins += players[i].Wins
		rateSum += players[i].WinRate()
		summary.LongestWinStreak = max(summary.LongestWinStreak, players[i].LongestWinStreak)
	}
	summary.AverageWinRate = rateSum / float64(len(players))

	top := RankPlayers(players)[0]
	summary.TopPlayerName = top.Name
	summary.TopPlayerWinRate = top.Stats.WinRate()

	return summary
}
