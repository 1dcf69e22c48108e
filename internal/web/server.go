// Package web provides an HTTP status and control server for the motor-switch daemon.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sweeney/motor-switch/internal/history"
	"github.com/sweeney/motor-switch/internal/logic"
	"github.com/sweeney/motor-switch/internal/status"
)

// submitTimeout bounds how long a handler waits for the command loop.
const submitTimeout = 5 * time.Second

var errLoopUnavailable = errors.New("command loop unavailable")

// HistoryReader returns recent command history.
type HistoryReader interface {
	Recent(limit int) ([]history.Entry, error)
}

// Server serves the status page and control endpoints over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	requests   chan<- logic.Request
	history    HistoryReader
}

// New creates a Server that reads state from tracker and submits commands
// to the loop through requests. hist may be nil when history is disabled.
func New(addr string, tracker *status.Tracker, requests chan<- logic.Request, hist HistoryReader) *Server {
	s := &Server{tracker: tracker, requests: requests, history: hist}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/history.json", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/posture", s.handlePosture).Methods(http.MethodPost)
	r.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// submit hands line to the command loop and waits for its outcome.
func (s *Server) submit(ctx context.Context, line string) (logic.Outcome, error) {
	if s.requests == nil {
		return logic.Outcome{}, errLoopUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	reply := make(chan logic.Outcome, 1)
	req := logic.Request{Line: line, Source: logic.SourceHTTP, Reply: reply}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return logic.Outcome{}, ctx.Err()
	}

	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return logic.Outcome{}, ctx.Err()
	}
}
