package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a non-negative Go duration; empty means zero.
// path is the config key used in error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Pauses is PacingConfig with parsed durations.
type Pauses struct {
	AfterHeader time.Duration
	AfterRegion time.Duration
	AfterEmpty  time.Duration
}

func (p PacingConfig) Parse() (Pauses, error) {
	var out Pauses
	var err error
	if out.AfterHeader, err = ParseDurationField("pacing.after_header", p.AfterHeader); err != nil {
		return Pauses{}, err
	}
	if out.AfterRegion, err = ParseDurationField("pacing.after_region", p.AfterRegion); err != nil {
		return Pauses{}, err
	}
	if out.AfterEmpty, err = ParseDurationField("pacing.after_empty", p.AfterEmpty); err != nil {
		return Pauses{}, err
	}
	return out, nil
}

// HTTPTimeout returns the parsed telegram.timeout (default 10s).
func (t TelegramConfig) HTTPTimeout() time.Duration {
	d, err := ParseDurationOrDefault("telegram.timeout", t.Timeout, 10*time.Second)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
