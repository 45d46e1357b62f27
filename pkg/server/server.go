// Package server assembles the HTTP surface: the websocket endpoint, a status
// probe and access logging.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/astromechza/ramblathon/pkg/deltabuf"
	"github.com/astromechza/ramblathon/pkg/gate"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	gate       *gate.Gate
	buffer     *deltabuf.Buffer
}

// Status is the body of GET /healthz.
type Status struct {
	SessionActive bool `json:"session_active"`
	PendingBytes  int  `json:"pending_bytes"`
}

func New(addr string, sessions http.Handler, g *gate.Gate, buf *deltabuf.Buffer, logger *slog.Logger) *Server {
	s := &Server{logger: logger, gate: g, buffer: buf}

	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			logger.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})
	r.Methods(http.MethodGet).Path("/ws").Handler(sessions)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.getStatus)

	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) getStatus(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(Status{
		SessionActive: s.gate.Held(),
		PendingBytes:  s.buffer.Len(),
	}); err != nil {
		s.logger.Error("failed to write status", "err", err)
	}
}

// Serve listens until ctx is done and then shuts the listener down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server listen failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		// connections still open after the timeout are dropped
		_ = s.httpServer.Close()
	}
	return <-errCh
}
