package config

import (
	"reflect"
	"strings"

	logx "stockrelay/pkg/logx"
)

// SummarizeChange returns the names of the sections that differ and safe
// fields describing the new values. The bot token is never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.PollTimeout != nt.PollTimeout || ot.GroupLog != nt.GroupLog ||
		!reflect.DeepEqual(ot.OwnerUserIDs, nt.OwnerUserIDs) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Int("telegram.owner_count", len(nt.OwnerUserIDs)),
			logx.Bool("telegram.group_log_set", strings.TrimSpace(nt.GroupLog) != ""),
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Upstream != newCfg.Upstream {
		changed = append(changed, "upstream")
		attrs = append(attrs,
			logx.String("upstream.url", newCfg.Upstream.URL),
			logx.String("upstream.timeout", newCfg.Upstream.Timeout),
		)
	}

	or, nr := oldCfg.Relay, newCfg.Relay
	if or.IsEnabled() != nr.IsEnabled() || or.Schedule != nr.Schedule || or.Timezone != nr.Timezone ||
		or.Workers != nr.Workers || or.SendTimeout != nr.SendTimeout ||
		or.CombineAll != nr.CombineAll || or.RunOnStart != nr.RunOnStart {
		changed = append(changed, "relay")
		attrs = append(attrs,
			logx.Bool("relay.enabled", nr.IsEnabled()),
			logx.String("relay.schedule", nr.Schedule),
			logx.Int("relay.workers", nr.Workers),
			logx.Bool("relay.combine_all", nr.CombineAll),
		)
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.Int("notifier.retry_max", newCfg.Notifier.RetryMax),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		driver := ""
		if newCfg.Storage != nil {
			driver = newCfg.Storage.Driver
		}
		attrs = append(attrs, logx.String("storage.driver", driver))
	}
	return changed, attrs
}
