package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	defaultDifficulty, err := entity.ParseDifficulty(conf.AI.DefaultDifficulty)
	if err != nil {
		return fmt.Errorf("invalid ai.default-difficulty: %w", err)
	}

	if conf.Redis.Host == "" || conf.Redis.Port == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr(), conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	statsRepo := repository.NewStatsRepository(redisStorage.Connection)
	gameRepo := repository.NewGameRepository(redisStorage.Connection, conf.Redis.GameTTL)

	statsService := service.NewStatsService(logger, statsRepo)
	if err = statsService.Restore(ctx); err != nil {
		return fmt.Errorf("could not restore stats: %w", err)
	}

	botService := service.NewBotService(logger, service.BotOptions{
		ThinkDelay:    conf.AI.ThinkDelay,
		SearchTimeout: conf.AI.SearchTimeout,
		Seed:          conf.AI.Seed,
	})

	gameManager := usecase.NewGameManager(logger, gameRepo, botService, statsService, usecase.ManagerOptions{
		DefaultBoardSize: conf.BoardSize,
		IdleTimeout:      conf.SessionIdleTimeout,
	})

	server := rest.NewServer(logger, conf.HTTPPort, rest.NewHandlers(logger, gameManager, defaultDifficulty))

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		return gameManager.Run(ctx)
	})

	errg.Go(func() error {
		return server.Start(ctx)
	})

	if err = errg.Wait(); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}
