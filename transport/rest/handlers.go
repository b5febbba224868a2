package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

var ErrBadRequest = errors.New("bad request")

const maxBodyBytes = 1 << 16

type gameManager interface {
	StartSession(ctx context.Context, opts usecase.SessionOptions) (*entity.Game, error)
	SubmitMove(ctx context.Context, sessionID string, move entity.Move) (*entity.Game, error)
	Advance(ctx context.Context, sessionID string) (*entity.Game, error)
	GetAIMove(ctx context.Context, sessionID string, difficulty entity.Difficulty) (entity.Move, error)
	GetSession(ctx context.Context, sessionID string) (*entity.Game, error)
	EndSession(ctx context.Context, sessionID string) error

	GetStats(ctx context.Context, name string) (entity.PlayerStatsDto, error)
	GetLeaderboard(ctx context.Context, limit int) []entity.PlayerStatsDto
	GetSummary(ctx context.Context) entity.StatsSummary
}

type Handlers interface {
	StartSession(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request)
	EndSession(w http.ResponseWriter, r *http.Request)
	SubmitMove(w http.ResponseWriter, r *http.Request)
	Advance(w http.ResponseWriter, r *http.Request)
	Hint(w http.ResponseWriter, r *http.Request)

	GetStats(w http.ResponseWriter, r *http.Request)
	GetLeaderboard(w http.ResponseWriter, r *http.Request)
	GetSummary(w http.ResponseWriter, r *http.Request)
}

type handlers struct {
	logger *slog.Logger
	games  gameManager

	defaultDifficulty entity.Difficulty
}

func NewHandlers(logger *slog.Logger, games gameManager, defaultDifficulty entity.Difficulty) Handlers {
	return &handlers{
		logger:            logger.With("component", "rest"),
		games:             games,
		defaultDifficulty: defaultDifficulty,
	}
}

type playerRequest struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
}

// startSessionRequest - a missing X is an anonymous human, a missing O is a bot of the default difficulty.
type startSessionRequest struct {
	Size    int            `json:"size"`
	PlayerX *playerRequest `json:"playerX"`
	PlayerO *playerRequest `json:"playerO"`
}

// moveRequest - the cell is given either by index or by row and column.
type moveRequest struct {
	Cell   *int   `json:"cell"`
	Row    *int   `json:"row"`
	Column *int   `json:"column"`
	Mark   string `json:"mark"`
}

type hintResponse struct {
	Move       entity.Move       `json:"move"`
	Row        int               `json:"row"`
	Column     int               `json:"column"`
	Difficulty entity.Difficulty `json:"difficulty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	var request startSessionRequest
	if err := decodeBody(r, &request); err != nil {
		that.writeError(w, r, err)
		return
	}

	playerX, err := that.toPlayer(request.PlayerX, false)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	playerO, err := that.toPlayer(request.PlayerO, true)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	state, err := that.games.StartSession(r.Context(), usecase.SessionOptions{
		Size:    request.Size,
		PlayerX: playerX,
		PlayerO: playerO,
	})
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, state)
}

func (that *handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := that.games.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, state)
}

func (that *handlers) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := that.games.EndSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		that.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *handlers) SubmitMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var request moveRequest
	if err := decodeBody(r, &request); err != nil {
		that.writeError(w, r, err)
		return
	}

	move, err := that.toMove(r.Context(), sessionID, request)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	state, err := that.games.SubmitMove(r.Context(), sessionID, move)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, state)
}

func (that *handlers) Advance(w http.ResponseWriter, r *http.Request) {
	state, err := that.games.Advance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, state)
}

func (that *handlers) Hint(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	difficulty := that.defaultDifficulty
	if label := r.URL.Query().Get("difficulty"); label != "" {
		parsed, err := entity.ParseDifficulty(label)
		if err != nil {
			that.writeError(w, r, err)
			return
		}
		difficulty = parsed
	}

	move, err := that.games.GetAIMove(r.Context(), sessionID, difficulty)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	state, err := that.games.GetSession(r.Context(), sessionID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, hintResponse{
		Move:       move,
		Row:        move.Row(state.Size),
		Column:     move.Column(state.Size),
		Difficulty: difficulty,
	})
}

func (that *handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := that.games.GetStats(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, stats)
}

func (that *handlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			that.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", ErrBadRequest))
			return
		}
		limit = parsed
	}

	that.writeJSON(w, http.StatusOK, that.games.GetLeaderboard(r.Context(), limit))
}

func (that *handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	that.writeJSON(w, http.StatusOK, that.games.GetSummary(r.Context()))
}

func (that *handlers) toPlayer(request *playerRequest, botByDefault bool) (entity.Player, error) {
	if request == nil {
		if botByDefault {
			return entity.Player{Difficulty: that.defaultDifficulty}, nil
		}
		return entity.Player{}, nil
	}

	player := entity.Player{Name: request.Name}
	if request.Difficulty != "" {
		difficulty, err := entity.ParseDifficulty(request.Difficulty)
		if err != nil {
			return entity.Player{}, err
		}
		player.Difficulty = difficulty
	}

	return player, nil
}

func (that *handlers) toMove(ctx context.Context, sessionID string, request moveRequest) (entity.Move, error) {
	mark := entity.Mark(request.Mark)
	if !mark.IsPlayer() {
		return entity.Move{}, fmt.Errorf("%w: mark must be X or O", ErrBadRequest)
	}

	switch {
	case request.Cell != nil && request.Row == nil && request.Column == nil:
		return entity.Move{Cell: *request.Cell, Mark: mark}, nil
	case request.Cell == nil && request.Row != nil && request.Column != nil:
		state, err := that.games.GetSession(ctx, sessionID)
		if err != nil {
			return entity.Move{}, err
		}
		return entity.MoveAt(state.Size, *request.Row, *request.Column, mark), nil
	default:
		return entity.Move{}, fmt.Errorf("%w: give either cell or row and column", ErrBadRequest)
	}
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	return nil
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	log := that.logger.With("method", r.Method, "path", r.URL.Path, "status", status)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Debug("request rejected", "error", err)
	}

	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor - maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrMoveInProgress),
		errors.Is(err, apperror.ErrNoLegalMove):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrSessionNotFound),
		errors.Is(err, apperror.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrUnknownDifficulty),
		errors.Is(err, apperror.ErrInvalidBoardSize),
		errors.Is(err, apperror.ErrInvalidPlayerName),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
