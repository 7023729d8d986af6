package config

import (
	"listingbot/internal/listing"
)

// Config is the resolved runtime configuration.
//
// Token and ChatID only ever come from the environment; everything else may be
// set in the optional config file and falls back to Default().
type Config struct {
	Token  string `json:"-"`
	ChatID string `json:"-"`

	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Report   ReportConfig   `json:"report"`
	Pacing   PacingConfig   `json:"pacing"`
	Schedule ScheduleConfig `json:"schedule"`
	Status   StatusConfig   `json:"status"`

	// Regions replaces the default region list when present.
	Regions []listing.Region `json:"regions"`
	// Pools is merged field-by-field over listing.DefaultPools().
	Pools listing.Pools `json:"pools"`
}

type TelegramConfig struct {
	// Transport selects the sender: "form" (default) posts form-encoded
	// sendMessage requests; "telebot" goes through gopkg.in/telebot.v4.
	Transport string `json:"transport"`
	APIURL    string `json:"api_url"`
	// Timeout is a Go duration string (e.g. "10s").
	Timeout        string `json:"timeout"`
	DisablePreview bool   `json:"disable_preview"`
	ThreadID       int    `json:"thread_id,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     string `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type ReportConfig struct {
	Title    string   `json:"title"`
	RunLabel string   `json:"run_label"`
	Sources  []string `json:"sources"`
	// NextUpdate is the summary's next-update hint for one-shot runs.
	// Daemon mode renders the scheduler's next fire time instead.
	NextUpdate string `json:"next_update"`
}

// PacingConfig holds the fixed pauses between sends (Go duration strings).
// "0s" disables a pause.
type PacingConfig struct {
	AfterHeader string `json:"after_header"`
	AfterRegion string `json:"after_region"`
	AfterEmpty  string `json:"after_empty"`
}

type ScheduleConfig struct {
	// Spec is a cron expression ("0 9 * * *", "@daily") or an interval ("24h").
	Spec     string `json:"spec"`
	Timezone string `json:"timezone"`
}

// StatusConfig controls the optional HTTP status server (daemon mode only).
//
// Prefer binding to localhost; the server has no authentication.
type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	// Pprof mounts /debug/pprof/ on the status server.
	Pprof bool `json:"pprof"`
}

const (
	TransportForm    = "form"
	TransportTelebot = "telebot"
)

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Transport: TransportForm,
			APIURL:    "https://api.telegram.org",
			Timeout:   "10s",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Console:  true,
			Telegram: LoggingTelegram{MinLevel: "error", RatePerSec: 1},
		},
		Report: ReportConfig{
			Title:      "경기도 전세 매물 알림",
			RunLabel:   "GitHub Actions",
			Sources:    []string{"네이버부동산", "직방", "다방", "부동산114", "원룸원"},
			NextUpdate: "내일 오전 9시",
		},
		Pacing: PacingConfig{
			AfterHeader: "2s",
			AfterRegion: "2s",
			AfterEmpty:  "1s",
		},
		Schedule: ScheduleConfig{
			Spec:     "0 9 * * *",
			Timezone: "Asia/Seoul",
		},
		Status: StatusConfig{
			Addr: "127.0.0.1:9464",
		},
		Regions: listing.DefaultRegions(),
		Pools:   listing.DefaultPools(),
	}
}
