package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // schedule timezones must resolve on minimal hosts

	"github.com/joho/godotenv"

	"listingbot/internal/schedule"
	logx "listingbot/pkg/logx"
)

// ErrMissingCredentials is returned when BOT_TOKEN or CHAT_ID is not set.
var ErrMissingCredentials = errors.New("config: BOT_TOKEN and CHAT_ID are required")

// MissingCredentialsHint is printed for ErrMissingCredentials.
const MissingCredentialsHint = "❌ 환경변수 BOT_TOKEN과 CHAT_ID를 설정해주세요."

const (
	EnvToken    = "BOT_TOKEN"
	EnvChatID   = "CHAT_ID"
	EnvLogLevel = "LOG_LEVEL"
	EnvLogChat  = "LOG_CHAT_ID"
	EnvAPIURL   = "TELEGRAM_API_URL"
)

type LoadOptions struct {
	// Path is the optional config file (.json, .yaml, .yml).
	Path string
	// EnvFile is loaded into the process environment first when it exists.
	// Variables already set win.
	EnvFile string
	// RequireCredentials makes Load fail with ErrMissingCredentials when the
	// token or chat id is absent.
	RequireCredentials bool
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// LoadEnvFile loads KEY=VALUE pairs from path without overriding existing
// variables. A missing file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration from the env file, the optional config
// file and the environment, in that order, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	if err := LoadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Default()
	if strings.TrimSpace(opts.Path) != "" {
		if err := ParseFile(opts.Path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg, getenv)

	if opts.RequireCredentials && (cfg.Token == "" || cfg.ChatID == "") {
		return nil, ErrMissingCredentials
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseFile decodes path over dst. Unknown keys and trailing data are errors.
func ParseFile(path string, dst *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	jb, err := coerceToJSONBytes(path, b)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse config %s: trailing data", path)
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	cfg.Token = strings.TrimSpace(getenv(EnvToken))
	cfg.ChatID = strings.TrimSpace(getenv(EnvChatID))
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvLogChat)); v != "" {
		cfg.Logging.Telegram.Enabled = true
		cfg.Logging.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		cfg.Telegram.APIURL = v
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(strings.TrimSpace(c.Telegram.Transport)) {
	case "", TransportForm, TransportTelebot:
	default:
		errs = append(errs, fmt.Errorf("telegram.transport: unknown transport %q", c.Telegram.Transport))
	}
	if _, err := ParseDurationField("telegram.timeout", c.Telegram.Timeout); err != nil {
		errs = append(errs, err)
	}
	if !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if !logx.ValidLevel(c.Logging.Telegram.MinLevel) {
		errs = append(errs, fmt.Errorf("logging.telegram.min_level: unknown level %q", c.Logging.Telegram.MinLevel))
	}
	if _, err := c.Pacing.Parse(); err != nil {
		errs = append(errs, err)
	}
	if _, err := schedule.ParseSchedule(c.Schedule.Spec); err != nil {
		errs = append(errs, fmt.Errorf("schedule.spec: %w", err))
	}
	if _, err := c.Schedule.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Status.Enabled && strings.TrimSpace(c.Status.Addr) == "" {
		errs = append(errs, errors.New("status.addr: required when status is enabled"))
	}

	if len(c.Regions) == 0 {
		errs = append(errs, errors.New("regions: at least one region is required"))
	}
	for i, r := range c.Regions {
		if strings.TrimSpace(r.Name) == "" {
			errs = append(errs, fmt.Errorf("regions[%d].name: required", i))
		}
	}
	if err := c.Pools.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves the schedule timezone (default Asia/Seoul).
func (s ScheduleConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(s.Timezone)
	if tz == "" {
		tz = "Asia/Seoul"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}
