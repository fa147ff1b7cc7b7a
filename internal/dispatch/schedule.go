package dispatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule is the relay cadence when none is configured.
const DefaultSchedule = "5m"

type ScheduleKind int

const (
	ScheduleCron ScheduleKind = iota
	ScheduleInterval
)

// Schedule is a normalized tick cadence.
//
// Accepted forms:
//   - cron: "*/5 * * * *", "0 */5 * * * *", "@hourly", "@every 5m"
//   - interval: "5m", "1h30m", or HH:MM such as "00:05"
//
// "cron:" and "every:" prefixes force one interpretation.
type Schedule struct {
	Kind  ScheduleKind
	Cron  string
	Every time.Duration
}

var (
	reHHMM     = regexp.MustCompile(`^(\d{1,3}):(\d{2})$`)
	cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, fmt.Errorf("schedule required")
	}
	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "every:"):
		return parseInterval(strings.TrimSpace(s[len("every:"):]))
	case strings.HasPrefix(s, "@") || strings.ContainsAny(s, " \t"):
		return parseCron(s)
	default:
		sc, err := parseInterval(s)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid schedule %q (use cron like '*/5 * * * *', HH:MM like '00:05', or a duration like '5m')", raw)
		}
		return sc, nil
	}
}

func parseCron(expr string) (Schedule, error) {
	if expr == "" {
		return Schedule{}, fmt.Errorf("cron expression required")
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return Schedule{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return Schedule{Kind: ScheduleCron, Cron: expr}, nil
}

func parseInterval(v string) (Schedule, error) {
	var d time.Duration
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return Schedule{}, fmt.Errorf("invalid minutes in %q", v)
		}
		d = time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	} else {
		var err error
		if d, err = time.ParseDuration(v); err != nil {
			return Schedule{}, fmt.Errorf("invalid interval %q", v)
		}
	}
	if d < time.Second {
		return Schedule{}, fmt.Errorf("interval must be at least 1s, got %s", d)
	}
	return Schedule{Kind: ScheduleInterval, Every: d}, nil
}

// Spec renders the schedule for cron.AddFunc.
func (s Schedule) Spec() string {
	if s.Kind == ScheduleInterval {
		return "@every " + s.Every.String()
	}
	return s.Cron
}

func (s Schedule) String() string { return s.Spec() }
