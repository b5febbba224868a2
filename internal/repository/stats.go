package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	statsPlayerKeyPrefix = "stats:player:"
	statsPlayersKey      = "stats:players"
	statsTotalsKey       = "stats:totals"
)

type StatsRepository interface {
	SaveGame(ctx context.Context, players []entity.PlayerStats, totals entity.StatsTotals) error
	LoadAll(ctx context.Context) ([]entity.PlayerStats, entity.StatsTotals, error)
}

type dbStats struct {
	client *redis.Client
}

// dbTotals - hash layout of the totals key.
type dbTotals struct {
	Games int `redis:"games"`
	Draws int `redis:"draws"`
}

func NewStatsRepository(client *redis.Client) StatsRepository {
	return &dbStats{
		client: client,
	}
}

// SaveGame - writes the players touched by one game together with the new totals in one transaction.
func (that *dbStats) SaveGame(ctx context.Context, players []entity.PlayerStats, totals entity.StatsTotals) error {
	values := make(map[string][]byte, len(players))
	for _, stats := range players {
		statsJSON, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("could not marshal stats of %s: %w", stats.Name, err)
		}
		values[stats.Name] = statsJSON
	}

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for name, statsJSON := range values {
			pipe.Set(ctx, statsPlayerKeyPrefix+name, statsJSON, 0)
			pipe.SAdd(ctx, statsPlayersKey, name)
		}
		pipe.HSet(ctx, statsTotalsKey, dbTotals{Games: totals.Games, Draws: totals.Draws})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}

	return nil
}

func (that *dbStats) LoadAll(ctx context.Context) ([]entity.PlayerStats, entity.StatsTotals, error) {
	var stored dbTotals
	if err := that.client.HGetAll(ctx, statsTotalsKey).Scan(&stored); err != nil {
		return nil, entity.StatsTotals{}, fmt.Errorf("failed to get stats totals: %w", err)
	}
	totals := entity.StatsTotals{Games: stored.Games, Draws: stored.Draws}

	names, err := that.client.SMembers(ctx, statsPlayersKey).Result()
	if err != nil {
		return nil, entity.StatsTotals{}, fmt.Errorf("failed to list players: %w", err)
	}

	if len(names) == 0 {
		return []entity.PlayerStats{}, totals, nil
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, statsPlayerKeyPrefix+name)
	}

	responses, err := that.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, entity.StatsTotals{}, fmt.Errorf("failed to get player stats: %w", err)
	}

	players := make([]entity.PlayerStats, 0, len(responses))
	for i, response := range responses {
		statsJSON, ok := response.(string)
		if !ok {
			// listed but never written, nothing to restore
			continue
		}

		var stats entity.PlayerStats
		if err = json.Unmarshal([]byte(statsJSON), &stats); err != nil {
			return nil, entity.StatsTotals{}, fmt.Errorf("failed to unmarshal stats of %s: %w", names[i], err)
		}
		players = append(players, stats)
	}

	return players, totals, nil
}
