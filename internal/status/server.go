// Package status serves daemon health, the last run report and Prometheus
// metrics over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"listingbot/internal/notifier"
	"listingbot/internal/runtime/supervisor"
	logx "listingbot/pkg/logx"
)

// Tracker records the latest run. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	last    *notifier.Report
	running bool
	next    func() time.Time
	tasks   func() []supervisor.TaskStats
}

func NewTracker(next func() time.Time) *Tracker {
	return &Tracker{next: next}
}

// WatchTasks adds the daemon's goroutine stats to every snapshot.
func (t *Tracker) WatchTasks(fn func() []supervisor.TaskStats) {
	t.mu.Lock()
	t.tasks = fn
	t.mu.Unlock()
}

func (t *Tracker) Begin() {
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()
}

func (t *Tracker) Finish(rep notifier.Report) {
	t.mu.Lock()
	t.running = false
	t.last = &rep
	t.mu.Unlock()
}

type Snapshot struct {
	Running bool             `json:"running"`
	NextRun *time.Time       `json:"next_run,omitempty"`
	LastRun *notifier.Report `json:"last_run,omitempty"`

	Tasks []supervisor.TaskStats `json:"tasks,omitempty"`
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	s := Snapshot{Running: t.running}
	if t.last != nil {
		cp := *t.last
		s.LastRun = &cp
	}
	tasks := t.tasks
	t.mu.Unlock()
	if tasks != nil {
		s.Tasks = tasks()
	}
	if t.next != nil {
		if n := t.next(); !n.IsZero() {
			s.NextRun = &n
		}
	}
	return s
}

// NewRouter wires the status endpoints.
func NewRouter(tr *Tracker, m *Metrics) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tr.Snapshot())
	}).Methods(http.MethodGet)

	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// MountPprof adds the runtime profiling handlers under /debug/pprof/.
func MountPprof(r *mux.Router) {
	sub := r.PathPrefix("/debug/pprof").Subrouter()
	sub.HandleFunc("/cmdline", hpprof.Cmdline)
	sub.HandleFunc("/profile", hpprof.Profile)
	sub.HandleFunc("/symbol", hpprof.Symbol)
	sub.HandleFunc("/trace", hpprof.Trace)
	// Index also serves the named profiles (heap, goroutine, ...).
	sub.PathPrefix("/").HandlerFunc(hpprof.Index)
}

// Server runs the status router until its context is cancelled.
type Server struct {
	srv *http.Server
	log logx.Logger
}

func NewServer(addr string, h http.Handler, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

// Run listens and serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.log.Info("status server listening", logx.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(sctx); err != nil {
		s.log.Warn("status server shutdown", logx.Err(err))
	}
	s.log.Info("status server stopped")
	return nil
}
