// Package web provides an HTTP status server for the squat-coach daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/squat-coach/internal/status"
	"github.com/sweeney/squat-coach/internal/store"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 200
)

// SessionLister reads session history.
type SessionLister interface {
	RecentSessions(limit int) ([]store.Session, error)
}

// Deps are the optional collaborators of the server. Nil fields disable
// the matching endpoint.
type Deps struct {
	Sessions SessionLister
	Gatherer prometheus.Gatherer
	// Resets receives a value per POST /reset. Sends never block.
	Resets chan<- struct{}
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	deps       Deps
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, deps Deps) *Server {
	s := &Server{tracker: tracker, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/sessions.json", s.handleSessions)
	mux.HandleFunc("/reset", s.handleReset)
	if deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
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

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.deps.Resets != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		http.Error(w, "session history disabled", http.StatusNotFound)
		return
	}

	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxSessionLimit)
	}

	sessions, err := s.deps.Sessions.RecentSessions(limit)
	if err != nil {
		log.Errorf("web: list sessions: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data, err := formatSessions(sessions)
	if err != nil {
		log.Errorf("web: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if s.deps.Resets == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// A pending request already covers this one.
	select {
	case s.deps.Resets <- struct{}{}:
	default:
	}

	// The status page form asks to be sent back.
	if r.FormValue("redirect") != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"reset":"requested"}`))
}
