package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	logx "stockrelay/pkg/logx"
)

const (
	EnvToken       = "STOCKRELAY_TELEGRAM_TOKEN"
	EnvUpstreamURL = "STOCKRELAY_UPSTREAM_URL"
)

// applyEnv lets the environment override secrets and endpoints.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUpstreamURL)); v != "" {
		cfg.Upstream.URL = v
	}
}

// Validate checks everything that can be checked without other packages.
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add(fmt.Errorf("telegram.token is required (or set %s)", EnvToken))
	}
	_, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	add(err)
	_, err = cfg.GroupLogChatID()
	add(err)

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" && !logx.ValidLevel(lvl) {
		add(fmt.Errorf("logging.level: unknown level %q", lvl))
	}
	if lvl := strings.TrimSpace(cfg.Logging.Telegram.MinLevel); lvl != "" && !logx.ValidLevel(lvl) {
		add(fmt.Errorf("logging.telegram.min_level: unknown level %q", lvl))
	}

	if raw := strings.TrimSpace(cfg.Upstream.URL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(fmt.Errorf("upstream.url: want an absolute http(s) URL, got %q", raw))
		}
	}
	_, err = ParseDurationField("upstream.timeout", cfg.Upstream.Timeout)
	add(err)

	if cfg.Relay.Workers < 0 {
		add(errors.New("relay.workers must be >= 0"))
	}
	_, err = ParseDurationField("relay.send_timeout", cfg.Relay.SendTimeout)
	add(err)
	if tz := strings.TrimSpace(cfg.Relay.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add(fmt.Errorf("relay.timezone: %w", err))
		}
	}

	if cfg.Notifier.RatePerSec < 0 || cfg.Notifier.RetryMax < 0 {
		add(errors.New("notifier.rate_per_sec and notifier.retry_max must be >= 0"))
	}
	for path, raw := range map[string]string{
		"notifier.retry_base":      cfg.Notifier.RetryBase,
		"notifier.retry_max_delay": cfg.Notifier.RetryMaxDelay,
		"notifier.attempt_timeout": cfg.Notifier.AttemptTimeout,
	} {
		_, err := ParseDurationField(path, raw)
		add(err)
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(st.Path) == "" {
				add(errors.New("storage.path is required when storage.driver is set"))
			}
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		_, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout)
		add(err)
	}
	return errors.Join(errs...)
}

// GroupLogChatID parses telegram.group_log; 0 means unset.
func (c *Config) GroupLogChatID() (int64, error) {
	raw := strings.TrimSpace(c.Telegram.GroupLog)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.group_log: want a numeric chat id, got %q", raw)
	}
	return id, nil
}

// IsOwner reports whether userID is listed in telegram.owner_user_ids.
func (c *Config) IsOwner(userID int64) bool {
	for _, id := range c.Telegram.OwnerUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
