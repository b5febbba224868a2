package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

func NewServer(logger *slog.Logger, port string, handlers Handlers) *Server {
	return &Server{
		logger: logger.With("component", "http_server"),
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      NewRouter(handlers),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// NewRouter - routes of the game API.
func NewRouter(handlers Handlers) *mux.Router {
	ping := NewPingHandler()

	r := mux.NewRouter()
	r.HandleFunc("/ping", ping.PingHandler).Methods(http.MethodGet)

	r.HandleFunc("/sessions", handlers.StartSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", handlers.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", handlers.EndSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/moves", handlers.SubmitMove).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/advance", handlers.Advance).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/hint", handlers.Hint).Methods(http.MethodGet)

	r.HandleFunc("/stats/{name}", handlers.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", handlers.GetLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/summary", handlers.GetSummary).Methods(http.MethodGet)

	return r
}

// Start - serves until ctx is done, then shuts down gracefully.
func (that *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		that.logger.Info("Starting HTTP server", "addr", that.srv.Addr)
		errCh <- that.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := that.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}

	that.logger.Info("HTTP server stopped")

	return nil
}
