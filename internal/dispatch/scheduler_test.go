package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "stockrelay/pkg/logx"
)

type fakeRunner struct {
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	release chan struct{}
	started chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{release: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (f *fakeRunner) RunTick(ctx context.Context) Report {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)
	n := f.calls.Add(1)
	f.started <- struct{}{}
	select {
	case <-f.release:
	case <-ctx.Done():
	}
	return Report{TickID: string(rune('a' + n - 1)), Sent: int(n)}
}

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		kind ScheduleKind
		spec string
	}{
		{name: "duration", raw: "5m", kind: ScheduleInterval, spec: "@every 5m0s"},
		{name: "hhmm", raw: "01:30", kind: ScheduleInterval, spec: "@every 1h30m0s"},
		{name: "every prefix", raw: "every:45s", kind: ScheduleInterval, spec: "@every 45s"},
		{name: "cron", raw: "*/5 * * * *", kind: ScheduleCron, spec: "*/5 * * * *"},
		{name: "cron with seconds", raw: "0 */5 * * * *", kind: ScheduleCron, spec: "0 */5 * * * *"},
		{name: "descriptor", raw: "@every 5m", kind: ScheduleCron, spec: "@every 5m"},
		{name: "cron prefix", raw: "cron:@hourly", kind: ScheduleCron, spec: "@hourly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.kind, got.Kind)
			require.Equal(t, tt.spec, got.Spec())
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "soon", "10ms", "00:75", "cron:", "* * *"} {
		_, err := ParseSchedule(raw)
		require.Error(t, err, raw)
	}
}

func TestRunNowRefusesOverlap(t *testing.T) {
	r := newFakeRunner()
	s := NewScheduler(SchedulerConfig{}, r, logx.Nop())

	done := make(chan Report, 1)
	go func() {
		rep, err := s.RunNow(context.Background())
		assert.NoError(t, err)
		done <- rep
	}()
	<-r.started
	require.Equal(t, StateDispatching, s.State())

	_, err := s.RunNow(context.Background())
	require.ErrorIs(t, err, ErrTickInProgress)

	close(r.release)
	rep := <-done
	require.Equal(t, 1, rep.Sent)

	last, ok := s.LastReport()
	require.True(t, ok)
	require.Equal(t, rep.TickID, last.TickID)
	require.Equal(t, StateStopped, s.State())
	require.False(t, r.overlap.Load())
}

func TestSchedulerTicksAndStops(t *testing.T) {
	r := newFakeRunner()
	close(r.release)
	s := NewScheduler(SchedulerConfig{Enabled: true, Schedule: "every:1s", Timezone: "UTC"}, r, logx.Nop())

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, StateIdle, s.State())
	require.False(t, s.NextRun().IsZero())

	select {
	case <-r.started:
	case <-time.After(3 * time.Second):
		t.Fatal("no tick fired")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	require.Equal(t, StateStopped, s.State())
	require.True(t, s.NextRun().IsZero())
}

func TestRunOnStartFiresImmediately(t *testing.T) {
	r := newFakeRunner()
	close(r.release)
	s := NewScheduler(SchedulerConfig{Enabled: true, Schedule: "1h", RunOnStart: true}, r, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("initial tick did not run")
	}
}

func TestStopCancelsLongTick(t *testing.T) {
	r := newFakeRunner()
	s := NewScheduler(SchedulerConfig{Enabled: true, Schedule: "1h", RunOnStart: true}, r, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	<-r.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Stop(ctx)

	require.Eventually(t, func() bool { return r.active.Load() == 0 }, time.Second, 10*time.Millisecond)
}

func TestDisabledSchedulerDoesNotStart(t *testing.T) {
	r := newFakeRunner()
	s := NewScheduler(SchedulerConfig{Enabled: false, Schedule: "1s"}, r, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, StateStopped, s.State())

	require.NoError(t, s.Apply(context.Background(), SchedulerConfig{Enabled: true, Schedule: "1h"}))
	require.Equal(t, StateIdle, s.State())
	s.Stop(context.Background())
}

func TestApplyRejectsBadScheduleAndKeepsRunning(t *testing.T) {
	r := newFakeRunner()
	s := NewScheduler(SchedulerConfig{Enabled: true, Schedule: "1h"}, r, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.Error(t, s.Apply(context.Background(), SchedulerConfig{Enabled: true, Schedule: "whenever"}))
	require.Error(t, s.Apply(context.Background(), SchedulerConfig{Enabled: true, Schedule: "1h", Timezone: "Mars/Olympus"}))
	require.Equal(t, StateIdle, s.State())
}
