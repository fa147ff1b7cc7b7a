package config

// Config is the on-disk configuration (JSON, or YAML by file extension).
// Durations are Go duration strings such as "500ms", "10s" or "5m".
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Upstream UpstreamConfig `json:"upstream"`
	Relay    RelayConfig    `json:"relay"`
	Notifier NotifierConfig `json:"notifier"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// GroupLog is the chat that receives mirrored log lines, as a chat id.
	GroupLog    string `json:"group_log"`
	PollTimeout string `json:"poll_timeout"`
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
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// UpstreamConfig points at the stock API.
type UpstreamConfig struct {
	URL       string `json:"url"`
	Timeout   string `json:"timeout"`
	UserAgent string `json:"user_agent,omitempty"`
}

// RelayConfig controls the periodic fan-out.
//
// Defaults (when omitted/zero):
//   - enabled: true
//   - schedule: "5m"
//   - workers: 4
//   - send_timeout: "30s"
type RelayConfig struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	Schedule    string `json:"schedule"`
	Timezone    string `json:"timezone,omitempty"`
	Workers     int    `json:"workers"`
	SendTimeout string `json:"send_timeout"`
	CombineAll  bool   `json:"combine_all,omitempty"`
	RunOnStart  bool   `json:"run_on_start,omitempty"`
}

// IsEnabled applies the enabled-by-default rule.
func (r RelayConfig) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

// NotifierConfig tunes outbound delivery.
type NotifierConfig struct {
	RatePerSec     int    `json:"rate_per_sec"`
	RetryMax       int    `json:"retry_max"`
	RetryBase      string `json:"retry_base"`
	RetryMaxDelay  string `json:"retry_max_delay"`
	AttemptTimeout string `json:"attempt_timeout"`
}

// StorageConfig controls the audit store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/stockrelay.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}
