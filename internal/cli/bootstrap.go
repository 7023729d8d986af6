package cli

import (
	"fmt"
	"strings"
	"time"

	"listingbot/internal/config"
	"listingbot/internal/listing"
	"listingbot/internal/notifier"
	"listingbot/internal/report"
	kit "listingbot/internal/transport"
	"listingbot/internal/transport/telegram/adapter"
	"listingbot/internal/transport/telegram/botapi"
	logx "listingbot/pkg/logx"
)

func loggingConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ChatID:     l.Telegram.ChatID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

func newSender(cfg *config.Config, log logx.Logger) (kit.Sender, error) {
	log = log.With(logx.String("comp", "telegram"))
	switch strings.ToLower(strings.TrimSpace(cfg.Telegram.Transport)) {
	case config.TransportTelebot:
		return adapter.New(adapter.Config{
			Token:   cfg.Token,
			URL:     cfg.Telegram.APIURL,
			Timeout: cfg.Telegram.HTTPTimeout(),
		}, log)
	case "", config.TransportForm:
		return botapi.New(botapi.Config{
			Token:   cfg.Token,
			BaseURL: cfg.Telegram.APIURL,
			Timeout: cfg.Telegram.HTTPTimeout(),
		}, log)
	default:
		return nil, fmt.Errorf("telegram.transport: unknown transport %q", cfg.Telegram.Transport)
	}
}

type notifierOverrides struct {
	nextUpdate string
	noPauses   bool
	metrics    notifier.Metrics
}

func labelsFrom(cfg *config.Config) report.Labels {
	return report.Labels{
		Title:      cfg.Report.Title,
		RunLabel:   cfg.Report.RunLabel,
		Sources:    cfg.Report.Sources,
		NextUpdate: cfg.Report.NextUpdate,
	}
}

// newNotifier builds a notifier whose clock reads in loc, the schedule's zone,
// regardless of the host's local time zone.
func newNotifier(cfg *config.Config, sender kit.Sender, ov notifierOverrides, loc *time.Location, log logx.Logger) (*notifier.Notifier, error) {
	pauses, err := cfg.Pacing.Parse()
	if err != nil {
		return nil, err
	}
	gen, err := listing.NewGenerator(cfg.Pools, nil)
	if err != nil {
		return nil, err
	}

	labels := labelsFrom(cfg)
	if ov.nextUpdate != "" {
		labels.NextUpdate = ov.nextUpdate
	}
	pacing := notifier.Pacing(pauses)
	if ov.noPauses {
		pacing = notifier.Pacing{}
	}

	return notifier.New(sender, gen, notifier.Options{
		Chat:           kit.ChatTarget{ChatID: cfg.ChatID, ThreadID: cfg.Telegram.ThreadID},
		Regions:        cfg.Regions,
		Labels:         labels,
		Pacing:         pacing,
		DisablePreview: cfg.Telegram.DisablePreview,
		Metrics:        ov.metrics,
		Now:            func() time.Time { return time.Now().In(loc) },
	}, log)
}
