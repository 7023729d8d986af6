package config

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "listingbot/pkg/logx"
)

// Manager holds the current configuration and reloads it when the config file
// changes. A reload that fails to parse or validate is logged and ignored.
type Manager struct {
	opts LoadOptions
	log  logx.Logger

	cur      atomic.Pointer[Config]
	lastHash atomic.Uint64

	debounce time.Duration
}

func NewManager(opts LoadOptions, initial *Config, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	// The env file was applied by the initial Load; reloads only re-read the config file.
	opts.EnvFile = ""
	m := &Manager{opts: opts, log: log, debounce: 250 * time.Millisecond}
	m.cur.Store(initial)
	m.lastHash.Store(hashConfig(initial))
	return m
}

// Get returns the current configuration snapshot. Callers must not mutate it.
func (m *Manager) Get() *Config { return m.cur.Load() }

// Reload re-resolves the configuration. It reports whether a new, different
// config was committed.
func (m *Manager) Reload() (bool, error) {
	cfg, err := Load(m.opts)
	if err != nil {
		return false, err
	}
	h := hashConfig(cfg)
	if h != 0 && h == m.lastHash.Load() {
		return false, nil
	}
	m.cur.Store(cfg)
	m.lastHash.Store(h)
	return true, nil
}

// Watch watches the config file's directory until ctx is done and calls
// onChange after each committed reload. It is a no-op without a config file.
func (m *Manager) Watch(ctx context.Context, onChange func(*Config)) error {
	path := strings.TrimSpace(m.opts.Path)
	if path == "" {
		<-ctx.Done()
		return nil
	}
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Watch the directory: editors often replace the file via rename.
	if err := w.Add(dir); err != nil {
		return err
	}
	m.log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", file))

	var (
		timerMu sync.Mutex
		timer   *time.Timer

		// Held while a debounced reload runs; closed is set once Watch returns.
		applyMu sync.Mutex
		closed  bool
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(m.debounce, func() {
			applyMu.Lock()
			defer applyMu.Unlock()
			if !closed {
				m.apply(ctx, path, onChange)
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
		applyMu.Lock()
		closed = true
		applyMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watch error", logx.Err(err), logx.String("dir", dir))
		}
	}
}

// apply reloads the file and hands a committed change to onChange. Nothing
// happens once ctx is done.
func (m *Manager) apply(ctx context.Context, path string, onChange func(*Config)) {
	if ctx.Err() != nil {
		return
	}
	changed, err := m.Reload()
	if err != nil {
		m.log.Warn("config reload rejected", logx.String("path", path), logx.Err(err))
		return
	}
	if !changed {
		m.log.Debug("config unchanged; skipping", logx.String("path", path))
		return
	}
	m.log.Info("config reloaded", logx.String("path", path))
	if onChange != nil && ctx.Err() == nil {
		onChange(m.Get())
	}
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	// Credentials are not marshaled; fold them in so a token change still counts.
	_, _ = h.Write([]byte(cfg.Token + "\x00" + cfg.ChatID))
	return h.Sum64()
}
