package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	rtsup "stockrelay/internal/runtime/supervisor"
	logx "stockrelay/pkg/logx"
)

var ErrTickInProgress = errors.New("a relay tick is already running")

// State is the scheduler's coarse state.
type State string

const (
	StateStopped     State = "stopped"
	StateIdle        State = "idle"
	StateDispatching State = "dispatching"
)

// TickRunner performs one tick. *Dispatcher satisfies it.
type TickRunner interface {
	RunTick(ctx context.Context) Report
}

type SchedulerConfig struct {
	Enabled    bool
	Schedule   string
	Timezone   string
	RunOnStart bool
}

// Scheduler owns the tick timer. Ticks never overlap: cron skips a trigger
// while the previous tick still runs, and RunNow refuses while one is active.
type Scheduler struct {
	mu     sync.Mutex
	cfg    SchedulerConfig
	c      *cron.Cron
	sup    *rtsup.Supervisor
	entry  cron.EntryID
	runner TickRunner
	log    logx.Logger
	// armed is set between Start and Stop, even while relaying is disabled,
	// so Apply knows whether to (re)start the cron loop.
	armed bool
	base  context.Context

	busy atomic.Bool

	rmu     sync.Mutex
	last    Report
	hasLast bool
	nextAt  time.Time
}

func NewScheduler(cfg SchedulerConfig, runner TickRunner, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{cfg: cfg, runner: runner, log: log}
}

// Start begins triggering ticks. It is a no-op when already running or
// when relaying is disabled. ctx bounds every tick until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	if s.base == nil {
		s.base = ctx
	}
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}
	sched, loc, err := resolve(s.cfg)
	if err != nil {
		return err
	}

	s.sup = rtsup.NewSupervisor(s.base, rtsup.WithLogger(s.log.With(logx.String("comp", "dispatch.scheduler"))))
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	id, err := c.AddFunc(sched.Spec(), s.cronTick)
	if err != nil {
		s.sup.Cancel()
		s.sup = nil
		return fmt.Errorf("schedule %q: %w", sched.Spec(), err)
	}
	s.c, s.entry = c, id
	c.Start()
	s.noteNext()
	s.log.Info("scheduler started", logx.String("schedule", sched.Spec()), logx.String("tz", loc.String()))

	if s.cfg.RunOnStart {
		sup := s.sup
		sup.Go0("relay.initial_tick", func(tctx context.Context) {
			if _, err := s.run(tctx); err != nil {
				s.log.Debug("initial tick skipped", logx.Err(err))
			}
		})
	}
	return nil
}

// Stop halts triggering and waits for an in-flight tick until ctx ends,
// at which point the tick's context is cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.armed = false
	s.base = nil
	s.mu.Unlock()
	s.halt(ctx)
}

func (s *Scheduler) halt(ctx context.Context) {
	s.mu.Lock()
	c, sup := s.c, s.sup
	s.c, s.sup = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	start := time.Now()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("tick still running at shutdown, cancelling")
	}
	sup.Cancel()
	_ = sup.Wait(ctx)
	s.rmu.Lock()
	s.nextAt = time.Time{}
	s.rmu.Unlock()
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

// Apply stores new settings and reschedules a running scheduler when the
// cadence, timezone or enabled flag changed.
func (s *Scheduler) Apply(ctx context.Context, cfg SchedulerConfig) error {
	if cfg.Enabled {
		if _, _, err := resolve(cfg); err != nil {
			return err
		}
	}
	// RunOnStart only matters at process start.
	cfg.RunOnStart = false

	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	armed, base := s.armed, s.base
	s.mu.Unlock()

	changed := old.Enabled != cfg.Enabled ||
		strings.TrimSpace(old.Schedule) != strings.TrimSpace(cfg.Schedule) ||
		strings.TrimSpace(old.Timezone) != strings.TrimSpace(cfg.Timezone)
	if !changed || !armed {
		return nil
	}
	s.halt(ctx)
	if !cfg.Enabled {
		s.log.Info("relay disabled")
		return nil
	}
	return s.Start(base)
}

// RunNow runs a tick immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	return s.run(ctx)
}

func (s *Scheduler) State() State {
	if s.busy.Load() {
		return StateDispatching
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return StateStopped
	}
	return StateIdle
}

// LastReport returns the most recent tick report, if any tick has run.
func (s *Scheduler) LastReport() (Report, bool) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return s.last, s.hasLast
}

// NextRun is the next cron trigger, zero when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return s.nextAt
}

func (s *Scheduler) cronTick() {
	s.mu.Lock()
	sup := s.sup
	s.mu.Unlock()
	if sup == nil {
		return
	}
	if _, err := s.run(sup.Context()); err != nil {
		s.log.Debug("scheduled tick skipped", logx.Err(err))
	}
	s.mu.Lock()
	s.noteNext()
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Report{}, ErrTickInProgress
	}
	defer s.busy.Store(false)

	rep := s.runner.RunTick(ctx)
	s.rmu.Lock()
	s.last, s.hasLast = rep, true
	s.rmu.Unlock()
	return rep, nil
}

// noteNext requires s.mu.
func (s *Scheduler) noteNext() {
	var next time.Time
	if s.c != nil {
		next = s.c.Entry(s.entry).Next
	}
	s.rmu.Lock()
	s.nextAt = next
	s.rmu.Unlock()
}

func resolve(cfg SchedulerConfig) (Schedule, *time.Location, error) {
	raw := cfg.Schedule
	if strings.TrimSpace(raw) == "" {
		raw = DefaultSchedule
	}
	sched, err := ParseSchedule(raw)
	if err != nil {
		return Schedule{}, nil, err
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return Schedule{}, nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
	}
	return sched, loc, nil
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}
