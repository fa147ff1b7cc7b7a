package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"stockrelay/internal/config"
	"stockrelay/internal/dispatch"
	"stockrelay/internal/notifier"
	"stockrelay/internal/stock"
	"stockrelay/internal/storage"
	telegram "stockrelay/internal/transport/telegram/adapter"
	logx "stockrelay/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	// Validate already rejected a malformed group_log.
	chatID, _ := cfg.GroupLogChatID()
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled && chatID != 0,
			ChatID:     chatID,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{Token: cfg.Telegram.Token, PollTimeout: poll}, nil
}

func mapFetcherOptions(cfg *config.Config) ([]stock.FetcherOption, error) {
	timeout, err := config.ParseDurationOrDefault("upstream.timeout", cfg.Upstream.Timeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	opts := []stock.FetcherOption{stock.WithHTTPClient(&http.Client{Timeout: timeout})}
	if u := strings.TrimSpace(cfg.Upstream.URL); u != "" {
		opts = append(opts, stock.WithURL(u))
	}
	if ua := strings.TrimSpace(cfg.Upstream.UserAgent); ua != "" {
		opts = append(opts, stock.WithUserAgent(ua))
	}
	return opts, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	retryMax := n.RetryMax
	if retryMax == 0 {
		retryMax = 3
	}
	base, err := config.ParseDurationField("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	attempt, err := config.ParseDurationField("notifier.attempt_timeout", n.AttemptTimeout)
	if err != nil {
		return notifier.Config{}, err
	}
	if maxDelay > 0 && base > maxDelay {
		return notifier.Config{}, fmt.Errorf("notifier.retry_base (%s) exceeds notifier.retry_max_delay (%s)", base, maxDelay)
	}
	return notifier.Config{
		RatePerSec:     n.RatePerSec,
		RetryMax:       retryMax,
		RetryBase:      base,
		RetryMaxDelay:  maxDelay,
		AttemptTimeout: attempt,
	}, nil
}

func mapRelayConfig(cfg *config.Config) (dispatch.Config, dispatch.SchedulerConfig, error) {
	r := cfg.Relay
	sendTimeout, err := config.ParseDurationField("relay.send_timeout", r.SendTimeout)
	if err != nil {
		return dispatch.Config{}, dispatch.SchedulerConfig{}, err
	}
	schedule := strings.TrimSpace(r.Schedule)
	if schedule == "" {
		schedule = dispatch.DefaultSchedule
	}
	if _, err := dispatch.ParseSchedule(schedule); err != nil {
		return dispatch.Config{}, dispatch.SchedulerConfig{}, fmt.Errorf("relay.schedule: %w", err)
	}
	dc := dispatch.Config{Workers: r.Workers, SendTimeout: sendTimeout, CombineAll: r.CombineAll}
	sc := dispatch.SchedulerConfig{
		Enabled:    r.IsEnabled(),
		Schedule:   schedule,
		Timezone:   strings.TrimSpace(r.Timezone),
		RunOnStart: r.RunOnStart,
	}
	return dc, sc, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(cfg.Storage.Path), BusyTimeout: busy}, true, nil
}

// validate runs every mapper so a reload that cannot be applied is rejected
// before it is committed.
func validate(cfg *config.Config) error {
	if _, err := mapTelegramConfig(cfg); err != nil {
		return err
	}
	if _, err := mapFetcherOptions(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, _, err := mapRelayConfig(cfg); err != nil {
		return err
	}
	_, _, err := mapStorageConfig(cfg)
	return err
}
