package tictactoe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type moveSelector interface {
	SelectMove(ctx context.Context, board entity.Board, difficulty entity.Difficulty) (entity.Move, error)
}

type outcomeRecorder interface {
	RecordGame(ctx context.Context, sessionID string, records []entity.OutcomeRecord, draw bool) error
}

// GameController drives one session: it validates human moves, plays the
// AI turns that follow and reports the result once the game ends.
type GameController struct {
	id       string
	players  entity.Players
	bot      moveSelector
	recorder outcomeRecorder
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// held for a whole transition, including the AI turns it triggers
	turnMu sync.Mutex

	mu        sync.RWMutex
	board     entity.Board
	outcome   entity.Outcome
	recorded  bool
	closed    bool
	startedAt time.Time
	updatedAt time.Time
}

func NewGameController(
	id string,
	board entity.Board,
	players entity.Players,
	bot moveSelector,
	recorder outcomeRecorder,
	logger *slog.Logger,
) (*GameController, error) {
	if board.IsZero() {
		return nil, apperror.ErrInvalidBoard
	}

	players.X.Mark = entity.PlayerX
	players.O.Mark = entity.PlayerO

	for _, player := range []entity.Player{players.X, players.O} {
		if player.IsBot() && !player.Difficulty.IsValid() {
			return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, player.Difficulty)
		}
	}

	// both records of a game would land on one player
	if !players.X.IsBot() && !players.O.IsBot() && players.X.Name != "" && players.X.Name == players.O.Name {
		return nil, fmt.Errorf("%w: %q plays both sides", apperror.ErrInvalidPlayerName, players.X.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC()
	outcome := Evaluate(board)

	return &GameController{
		id:        id,
		players:   players,
		bot:       bot,
		recorder:  recorder,
		logger:    logger.With("component", "game_controller", "session", id),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		board:     board,
		outcome:   outcome,
		recorded:  outcome.IsTerminal(),
		startedAt: now,
		updatedAt: now,
	}, nil
}

// RestoreGameController - rebuilds the controller of a persisted game, keeping its timestamps.
func RestoreGameController(game *entity.Game, bot moveSelector, recorder outcomeRecorder, logger *slog.Logger) (*GameController, error) {
	board, err := game.RestoreBoard()
	if err != nil {
		return nil, err
	}

	controller, err := NewGameController(game.ID, board, game.Players, bot, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to restore game %s: %w", game.ID, err)
	}

	if !game.StartedAt.IsZero() {
		controller.startedAt = game.StartedAt
	}
	if !game.UpdatedAt.IsZero() {
		controller.updatedAt = game.UpdatedAt
	}

	return controller, nil
}

func (that *GameController) ID() string {
	return that.id
}

// Start - plays the opening AI turns, if X is an AI.
func (that *GameController) Start(ctx context.Context) (*entity.Game, error) {
	return that.Advance(ctx)
}

// SubmitMove - applies a human move and the AI replies it triggers. An
// illegal move leaves the session untouched.
func (that *GameController) SubmitMove(ctx context.Context, move entity.Move) (*entity.Game, error) {
	if !that.turnMu.TryLock() {
		return that.State(), apperror.ErrMoveInProgress
	}
	defer that.turnMu.Unlock()

	if that.isClosed() {
		return that.State(), apperror.ErrSessionClosed
	}

	board, outcome := that.current()
	if outcome.IsTerminal() {
		return that.State(), apperror.ErrGameFinished
	}

	if owner := that.players.ByMark(board.Turn()); owner.IsBot() {
		return that.State(), fmt.Errorf("%w: %s is played by the %s bot", apperror.ErrNotYourTurn, board.Turn(), owner.Difficulty)
	}

	next, err := ApplyMove(board, move)
	if err != nil {
		return that.State(), err
	}

	ctx, stop := that.sessionContext(ctx)
	defer stop()

	if err = that.commit(ctx, next); err != nil {
		return that.State(), err
	}

	if err = that.playBotTurns(ctx); err != nil {
		return that.State(), err
	}

	return that.State(), nil
}

// Advance - plays AI turns until a human is to move or the game ends. It
// resumes a session whose AI turn was abandoned.
func (that *GameController) Advance(ctx context.Context) (*entity.Game, error) {
	if !that.turnMu.TryLock() {
		return that.State(), apperror.ErrMoveInProgress
	}
	defer that.turnMu.Unlock()

	if that.isClosed() {
		return that.State(), apperror.ErrSessionClosed
	}

	if _, outcome := that.current(); outcome.IsTerminal() {
		return that.State(), apperror.ErrGameFinished
	}

	ctx, stop := that.sessionContext(ctx)
	defer stop()

	if err := that.playBotTurns(ctx); err != nil {
		return that.State(), err
	}

	return that.State(), nil
}

// Hint - the move the bot would play for the side to move, not applied.
// A finished game has no move to suggest.
func (that *GameController) Hint(ctx context.Context, difficulty entity.Difficulty) (entity.Move, error) {
	if that.isClosed() {
		return entity.Move{}, apperror.ErrSessionClosed
	}

	board, outcome := that.current()
	if outcome.IsTerminal() {
		return entity.Move{}, apperror.ErrFinishedNoMove
	}

	ctx, stop := that.sessionContext(ctx)
	defer stop()

	move, err := that.bot.SelectMove(ctx, board, difficulty)
	if err != nil {
		return entity.Move{}, fmt.Errorf("failed to get hint: %w", err)
	}

	return move, nil
}

func (that *GameController) State() *entity.Game {
	that.mu.RLock()
	defer that.mu.RUnlock()

	game := entity.NewGame(that.id, that.board, that.players, that.outcome)
	game.StartedAt = that.startedAt
	game.UpdatedAt = that.updatedAt

	return game
}

func (that *GameController) IsFinished() bool {
	_, outcome := that.current()
	return outcome.IsTerminal()
}

// Close - abandons any AI selection in flight. A closed session drops the
// transition in flight and rejects new ones with ErrSessionClosed.
func (that *GameController) Close() {
	that.mu.Lock()
	that.closed = true
	that.mu.Unlock()

	that.cancel()
}

// CloseIfIdle - closes the session when no transition is in flight and its
// last one happened before deadline. Reports whether it closed.
func (that *GameController) CloseIfIdle(deadline time.Time) bool {
	if !that.turnMu.TryLock() {
		return false
	}
	defer that.turnMu.Unlock()

	that.mu.RLock()
	idle := that.updatedAt.Before(deadline)
	that.mu.RUnlock()

	if idle {
		that.Close()
	}

	return idle
}

func (that *GameController) isClosed() bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.closed
}

func (that *GameController) current() (entity.Board, entity.Outcome) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.board, that.outcome
}

// sessionContext - ctx that is also cancelled when the session is closed.
func (that *GameController) sessionContext(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(that.ctx, cancel)

	return ctx, func() {
		stop()
		cancel()
	}
}

func (that *GameController) playBotTurns(ctx context.Context) error {
	for {
		board, outcome := that.current()
		if outcome.IsTerminal() {
			return nil
		}

		owner := that.players.ByMark(board.Turn())
		if !owner.IsBot() {
			return nil
		}

		move, err := that.bot.SelectMove(ctx, board, owner.Difficulty)
		if err != nil {
			if errors.Is(err, apperror.ErrNoLegalMove) {
				that.logger.Error("bot found no move on a board in progress", "board", board.String())
			}
			return fmt.Errorf("bot turn for %s: %w", owner.Mark, err)
		}

		// a selection finishing after cancellation is dropped
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("bot turn for %s: %w", owner.Mark, err)
		}

		next, err := ApplyMove(board, move)
		if err != nil {
			that.logger.Error("bot selected an illegal move", "board", board.String(), "cell", move.Cell, "error", err)
			return fmt.Errorf("bot turn for %s: %w", owner.Mark, err)
		}

		if err = that.commit(ctx, next); err != nil {
			return err
		}
	}
}

func (that *GameController) commit(ctx context.Context, next entity.Board) error {
	that.mu.Lock()

	if that.closed {
		that.mu.Unlock()
		return apperror.ErrSessionClosed
	}

	that.board = next
	that.outcome = Evaluate(next)
	that.updatedAt = that.now().UTC()

	finished := that.outcome.IsTerminal() && !that.recorded
	if finished {
		that.recorded = true
	}
	outcome := that.outcome

	that.mu.Unlock()

	if finished {
		that.logger.Info("game finished", "outcome", outcome.Kind, "winner", outcome.Winner, "board", next.String())
		that.report(context.WithoutCancel(ctx), outcome)
	}

	return nil
}

// report - one record per named human player, sent once per session.
func (that *GameController) report(ctx context.Context, outcome entity.Outcome) {
	var records []entity.OutcomeRecord

	for _, player := range []entity.Player{that.players.X, that.players.O} {
		if player.IsBot() || player.Name == "" {
			continue
		}

		records = append(records, entity.OutcomeRecord{
			PlayerName:         player.Name,
			Result:             outcome.ResultFor(player.Mark),
			OpponentDifficulty: that.players.ByMark(player.Mark.Opponent()).Difficulty,
		})
	}

	if len(records) == 0 {
		return
	}

	if err := that.recorder.RecordGame(ctx, that.id, records, outcome.Kind == entity.OutcomeDraw); err != nil {
		that.logger.Error("failed to record game", "error", err)
	}
}
