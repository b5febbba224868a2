package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type botService interface {
	SelectMove(ctx context.Context, board entity.Board, difficulty entity.Difficulty) (entity.Move, error)
}

type statsService interface {
	RecordGame(ctx context.Context, sessionID string, records []entity.OutcomeRecord, draw bool) error
	GetStats(name string) (entity.PlayerStatsDto, error)
	Leaderboard(limit int) []entity.PlayerStatsDto
	Summary() entity.StatsSummary
}

type SessionOptions struct {
	// Size of the board, zero means the configured default.
	Size    int
	PlayerX entity.Player
	PlayerO entity.Player
}

type ManagerOptions struct {
	DefaultBoardSize int
	// IdleTimeout evicts sessions without a transition for that long, zero disables it.
	IdleTimeout time.Duration
}

// GameManager owns the live sessions. Finished sessions leave memory at once
// and stay readable from their stored record.
type GameManager struct {
	logger   *slog.Logger
	gameRepo gameRepo
	bot      botService
	stats    statsService

	defaultSize int
	idleTimeout time.Duration
	now         func() time.Time

	sessions *xsync.MapOf[string, *tictactoe.GameController]
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo, bot botService, stats statsService, opts ManagerOptions) *GameManager {
	defaultSize := opts.DefaultBoardSize
	if defaultSize == 0 {
		defaultSize = entity.DefaultBoardSize
	}

	return &GameManager{
		logger:      logger.With("component", "game_manager"),
		gameRepo:    gameRepo,
		bot:         bot,
		stats:       stats,
		defaultSize: defaultSize,
		idleTimeout: opts.IdleTimeout,
		now:         time.Now,
		sessions:    xsync.NewMapOf[string, *tictactoe.GameController](),
	}
}

func (that *GameManager) StartSession(ctx context.Context, opts SessionOptions) (*entity.Game, error) {
	size := opts.Size
	if size == 0 {
		size = that.defaultSize
	}

	board, err := entity.NewBoard(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	id := pkg.GenerateNewSessionID()
	players := entity.Players{X: opts.PlayerX, O: opts.PlayerO}

	controller, err := tictactoe.NewGameController(id, board, players, that.bot, that.stats, that.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	that.sessions.Store(id, controller)

	that.logger.Info("session started", "session", id, "size", size,
		"x", describePlayer(players.X), "o", describePlayer(players.O))

	state, err := controller.Start(ctx)
	that.afterTransition(ctx, controller)

	if err != nil {
		return state, fmt.Errorf("failed to start session: %w", err)
	}

	return state, nil
}

func (that *GameManager) SubmitMove(ctx context.Context, sessionID string, move entity.Move) (*entity.Game, error) {
	return retryClosed(func() (*entity.Game, error) {
		return that.submitMove(ctx, sessionID, move)
	})
}

func (that *GameManager) submitMove(ctx context.Context, sessionID string, move entity.Move) (*entity.Game, error) {
	controller, record, err := that.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if controller == nil {
		return record, apperror.ErrGameFinished
	}

	state, err := controller.SubmitMove(ctx, move)
	if isRejected(err) || errors.Is(err, apperror.ErrIllegalMove) {
		return state, err
	}

	that.afterTransition(ctx, controller)

	if err != nil {
		return state, fmt.Errorf("failed to play move: %w", err)
	}

	return state, nil
}

// Advance - resumes the AI turns of a session, used after a cancelled AI selection.
func (that *GameManager) Advance(ctx context.Context, sessionID string) (*entity.Game, error) {
	return retryClosed(func() (*entity.Game, error) {
		return that.advance(ctx, sessionID)
	})
}

func (that *GameManager) advance(ctx context.Context, sessionID string) (*entity.Game, error) {
	controller, record, err := that.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if controller == nil {
		return record, apperror.ErrGameFinished
	}

	state, err := controller.Advance(ctx)
	if isRejected(err) {
		return state, err
	}

	that.afterTransition(ctx, controller)

	if err != nil {
		return state, fmt.Errorf("failed to advance session: %w", err)
	}

	return state, nil
}

// GetAIMove - suggests a move for the side to move without playing it.
// A finished session reports ErrFinishedNoMove.
func (that *GameManager) GetAIMove(ctx context.Context, sessionID string, difficulty entity.Difficulty) (entity.Move, error) {
	return retryClosed(func() (entity.Move, error) {
		controller, _, err := that.lookup(ctx, sessionID)
		if err != nil {
			return entity.Move{}, err
		}

		if controller == nil {
			return entity.Move{}, apperror.ErrFinishedNoMove
		}

		return controller.Hint(ctx, difficulty)
	})
}

func (that *GameManager) GetSession(ctx context.Context, sessionID string) (*entity.Game, error) {
	controller, record, err := that.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if controller == nil {
		return record, nil
	}

	return controller.State(), nil
}

// EndSession - abandons a session and forgets its record. An abandoned game is not counted in the stats.
func (that *GameManager) EndSession(ctx context.Context, sessionID string) error {
	log := that.logger.With("method", "EndSession", "session", sessionID)

	controller, live := that.sessions.LoadAndDelete(sessionID)
	if live {
		controller.Close()
	}

	err := that.gameRepo.DeleteByID(ctx, sessionID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrSessionNotFound) && live:
	case errors.Is(err, apperror.ErrSessionNotFound):
		return fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, sessionID)
	default:
		return fmt.Errorf("failed to delete session: %w", err)
	}

	log.Info("session ended")

	return nil
}

func (that *GameManager) GetStats(_ context.Context, name string) (entity.PlayerStatsDto, error) {
	return that.stats.GetStats(name)
}

func (that *GameManager) GetLeaderboard(_ context.Context, limit int) []entity.PlayerStatsDto {
	return that.stats.Leaderboard(limit)
}

func (that *GameManager) GetSummary(_ context.Context) entity.StatsSummary {
	return that.stats.Summary()
}

// Run - evicts idle sessions until ctx is done, then closes every live session.
func (that *GameManager) Run(ctx context.Context) error {
	defer that.closeAll()

	if that.idleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(that.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			that.evictIdle(now)
		}
	}
}

// evictIdle - sessions busy with a transition are left for the next sweep.
func (that *GameManager) evictIdle(now time.Time) {
	deadline := now.Add(-that.idleTimeout)

	that.sessions.Range(func(id string, controller *tictactoe.GameController) bool {
		if controller.CloseIfIdle(deadline) {
			that.logger.Debug("session idle, evicting", "session", id)
			that.evict(controller)
		}
		return true
	})
}

func (that *GameManager) closeAll() {
	that.sessions.Range(func(_ string, controller *tictactoe.GameController) bool {
		that.evict(controller)
		return true
	})
}

// lookup - the live controller of a session, restoring an unfinished one from
// its record. A finished session yields no controller and its record.
func (that *GameManager) lookup(ctx context.Context, sessionID string) (*tictactoe.GameController, *entity.Game, error) {
	if controller, ok := that.sessions.Load(sessionID); ok {
		return controller, nil, nil
	}

	if !pkg.IsSessionID(sessionID) {
		return nil, nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, sessionID)
	}

	record, err := that.gameRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	if record.IsFinished() {
		return nil, record, nil
	}

	restored, err := tictactoe.RestoreGameController(record, that.bot, that.stats, that.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
	}

	controller, loaded := that.sessions.LoadOrStore(sessionID, restored)
	if loaded {
		restored.Close()
	} else {
		that.logger.Info("session restored", "session", sessionID, "moves", record.MoveCount)
	}

	return controller, nil, nil
}

// afterTransition - stores the record of the controller's state and lets a
// finished session go. A controller that was ended or evicted meanwhile is
// no longer the session and saves nothing.
func (that *GameManager) afterTransition(ctx context.Context, controller *tictactoe.GameController) {
	var finished bool

	that.sessions.Compute(controller.ID(), func(current *tictactoe.GameController, loaded bool) (*tictactoe.GameController, bool) {
		if !loaded || current != controller {
			that.logger.Debug("session replaced, state not saved", "session", controller.ID())
			return current, !loaded
		}

		state := controller.State()
		if err := that.gameRepo.CreateOrUpdate(context.WithoutCancel(ctx), state); err != nil {
			that.logger.Error("failed to save game", "session", state.ID, "error", err)
		}

		finished = state.IsFinished()
		return current, finished
	})

	if finished {
		controller.Close()
	}
}

// retryClosed - calls fn once more when the controller it used was closed
// under it: an evicted session is restored, an ended one is not found.
func retryClosed[T any](fn func() (T, error)) (T, error) {
	result, err := fn()
	if errors.Is(err, apperror.ErrSessionClosed) {
		return fn()
	}

	return result, err
}

// isRejected - the controller refused the call and nothing changed.
func isRejected(err error) bool {
	return errors.Is(err, apperror.ErrMoveInProgress) ||
		errors.Is(err, apperror.ErrGameFinished) ||
		errors.Is(err, apperror.ErrSessionClosed)
}

func (that *GameManager) evict(controller *tictactoe.GameController) {
	that.sessions.Compute(controller.ID(), func(current *tictactoe.GameController, loaded bool) (*tictactoe.GameController, bool) {
		// keep a newer controller stored under the same id
		return current, !loaded || current == controller
	})
	controller.Close()
}

func describePlayer(player entity.Player) string {
	if player.IsBot() {
		return "bot:" + string(player.Difficulty)
	}
	if player.Name == "" {
		return "anonymous"
	}
	return player.Name
}
