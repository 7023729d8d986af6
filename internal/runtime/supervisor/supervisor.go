// Package supervisor runs the daemon's long-lived goroutines under one
// context, with panic recovery and optional restart backoff.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	logx "listingbot/pkg/logx"
)

// TaskStats is a best-effort view of one named goroutine.
type TaskStats struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	Restarts  int       `json:"restarts"`
	Panics    int       `json:"panics"`
	LastStart time.Time `json:"last_start"`
	LastErr   string    `json:"last_err,omitempty"`
}

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logx.Logger
	wg     sync.WaitGroup

	mu       sync.Mutex
	tasks    map[string]*TaskStats
	firstErr error
}

func New(parent context.Context, log logx.Logger) *Supervisor {
	if log.IsZero() {
		log = logx.Nop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{ctx: ctx, cancel: cancel, log: log, tasks: map[string]*TaskStats{}}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Err returns the first error a goroutine exited with, if any.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

// Go runs fn once. A panic is recovered and recorded as an error.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.started(name, false)
		s.stopped(name, s.runOnce(name, fn))
	}()
}

// GoRestart runs fn and restarts it after an error or panic, backing off
// exponentially between minBackoff and maxBackoff. A nil return or
// cancellation stops it.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, minBackoff, maxBackoff time.Duration) {
	if fn == nil {
		return
	}
	if minBackoff <= 0 {
		minBackoff = 250 * time.Millisecond
	}
	maxBackoff = max(maxBackoff, minBackoff)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		backoff := minBackoff
		for restart := false; ; restart = true {
			s.started(name, restart)
			began := time.Now()
			err := s.runOnce(name, fn)
			s.stopped(name, err)
			if err == nil || s.ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}

			// a long healthy run resets the backoff
			if time.Since(began) >= 30*time.Second {
				backoff = minBackoff
			}
			s.log.Warn("goroutine restarting", logx.String("name", name), logx.Duration("backoff", backoff), logx.Err(err))
			t := time.NewTimer(backoff)
			select {
			case <-s.ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}()
}

// Stop cancels the shared context and waits for every goroutine until ctx is done.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns task stats sorted by name.
func (s *Supervisor) Snapshot() []TaskStats {
	s.mu.Lock()
	out := make([]TaskStats, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Supervisor) runOnce(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.task(name).Panics++
			s.mu.Unlock()
			s.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", r), logx.Stack(logx.StackTrace(3, 16)))
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	s.log.Debug("goroutine started", logx.String("name", name))
	return fn(s.ctx)
}

// task must be called with mu held.
func (s *Supervisor) task(name string) *TaskStats {
	t, ok := s.tasks[name]
	if !ok {
		t = &TaskStats{Name: name}
		s.tasks[name] = t
	}
	return t
}

func (s *Supervisor) started(name string, restart bool) {
	s.mu.Lock()
	t := s.task(name)
	t.Running = true
	t.LastStart = time.Now()
	if restart {
		t.Restarts++
	}
	s.mu.Unlock()
}

func (s *Supervisor) stopped(name string, err error) {
	s.mu.Lock()
	t := s.task(name)
	t.Running = false
	failed := err != nil && !errors.Is(err, context.Canceled)
	if failed {
		t.LastErr = err.Error()
		if s.firstErr == nil {
			s.firstErr = fmt.Errorf("%s: %w", name, err)
		}
	}
	s.mu.Unlock()

	if failed {
		s.log.Error("goroutine exited with error", logx.String("name", name), logx.Err(err))
	}
}
