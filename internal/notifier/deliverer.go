package notifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"stockrelay/internal/eventbus"
	kit "stockrelay/internal/transport"
	logx "stockrelay/pkg/logx"
)

var ErrNoAdapter = errors.New("notifier has no chat adapter")

type Deliverer struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	sender  Sender

	log logx.Logger
	bus eventbus.Bus

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender Sender, log logx.Logger, bus eventbus.Bus) *Deliverer {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Deliverer{sender: sender, log: log, bus: bus}
	d.applyLocked(cfg)
	return d
}

func (d *Deliverer) Apply(cfg Config) {
	d.mu.Lock()
	d.applyLocked(cfg)
	d.mu.Unlock()
}

func (d *Deliverer) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	d.cfg = cfg
	// burst = rate so a tick's first few sends go out immediately.
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// SetSender attaches the adapter once it exists.
func (d *Deliverer) SetSender(s Sender) {
	d.mu.Lock()
	d.sender = s
	d.mu.Unlock()
}

// CanDeliver asks the adapter whether the bot may post to the destination.
func (d *Deliverer) CanDeliver(ctx context.Context, to kit.ChatTarget) (bool, error) {
	d.mu.Lock()
	s := d.sender
	d.mu.Unlock()
	if s == nil {
		return false, ErrNoAdapter
	}
	return s.CanDeliver(ctx, to)
}

// Deliver sends text to the destination, prefixed by mention when non-empty.
// It returns once the message was sent or every attempt failed.
func (d *Deliverer) Deliver(ctx context.Context, to kit.ChatTarget, text, mention string) error {
	d.mu.Lock()
	cfg, lim, s := d.cfg, d.limiter, d.sender
	d.mu.Unlock()
	if s == nil {
		return ErrNoAdapter
	}
	if mention != "" {
		text = mention + "\n\n" + text
	}

	maxAttempts := 1 + cfg.RetryMax
	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		if err := lim.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		actx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		_, err := s.SendText(actx, to, text, &kit.SendOptions{DisablePreview: true})
		cancel()
		if err == nil {
			d.record(to, attempt, nil)
			return nil
		}
		lastErr = err
		// Chunks that already went out are not sent again.
		var partial *kit.PartialSendError
		if errors.As(err, &partial) {
			text = partial.Rest
		}
		d.log.Debug("send attempt failed",
			logx.Int64("chat_id", to.ChatID),
			logx.Int("attempt", attempt),
			logx.Int("max", maxAttempts),
			logx.Err(err),
		)
		if attempt >= maxAttempts || ctx.Err() != nil {
			break
		}

		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			lastErr = ctx.Err()
			attempt = maxAttempts
		}
	}

	err := fmt.Errorf("deliver to %d after %d attempt(s): %w", to.ChatID, attempt, lastErr)
	d.record(to, attempt, err)
	return err
}

func (d *Deliverer) record(to kit.ChatTarget, attempts int, err error) {
	now := time.Now()
	it := HistoryItem{At: now, To: to, Attempts: attempts}
	ev := DeliveryEvent{ChatID: to.ChatID, ThreadID: to.ThreadID, Attempts: attempts, At: now}
	typ := "relay.delivered"
	if err != nil {
		it.Err = err.Error()
		ev.Error = err.Error()
		typ = "relay.delivery_failed"
	}

	d.hmu.Lock()
	d.history = append(d.history, it)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
	d.hmu.Unlock()

	if d.bus != nil {
		d.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})
	}
}

// History returns recent deliveries, oldest first.
func (d *Deliverer) History() []HistoryItem {
	d.hmu.Lock()
	defer d.hmu.Unlock()
	return append([]HistoryItem(nil), d.history...)
}

// retryDelay is the wait before attempt+1: base*2^(attempt-1) with 0.7..1.3 jitter, capped.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt && d < cfg.RetryMaxDelay; i++ {
		d *= 2
	}
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	return min(max(d, 0), cfg.RetryMaxDelay)
}
