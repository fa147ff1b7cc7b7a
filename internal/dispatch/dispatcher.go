// Package dispatch runs the relay: on every tick it fetches one stock
// snapshot and fans per-category messages out to every subscribed
// destination, isolating failures per destination and per message.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stockrelay/internal/eventbus"
	"stockrelay/internal/stock"
	"stockrelay/internal/subscription"
	logx "stockrelay/pkg/logx"
)

//go:generate mockgen -destination=mock_deps_test.go -package=dispatch . Fetcher,Deliverer,Source

type Fetcher interface {
	Fetch(ctx context.Context) (stock.Snapshot, error)
}

type Deliverer interface {
	CanDeliver(ctx context.Context, to subscription.Destination) (bool, error)
	Deliver(ctx context.Context, to subscription.Destination, text, mention string) error
}

// Source enumerates live subscriptions. *subscription.Registry satisfies it.
type Source interface {
	All() []subscription.Entry
}

type Config struct {
	Workers     int
	SendTimeout time.Duration
	// CombineAll sends one "current stock" message to destinations that follow
	// every category with identical tag settings.
	CombineAll bool
}

type Dispatcher struct {
	mu  sync.Mutex
	cfg Config

	fetcher   Fetcher
	deliverer Deliverer
	source    Source

	log logx.Logger
	bus eventbus.Bus
	now func() time.Time
}

func NewDispatcher(cfg Config, f Fetcher, d Deliverer, src Source, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	dp := &Dispatcher{fetcher: f, deliverer: d, source: src, log: log, bus: bus, now: time.Now}
	dp.Apply(cfg)
	return dp
}

func (d *Dispatcher) Apply(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

// message is one outbound send planned for a destination.
type message struct {
	categories []stock.Category
	text       string
	mention    string
}

// RunTick performs one fetch and one full fan-out. It returns after every
// planned send has resolved. A fetch failure ends the tick with no sends.
func (d *Dispatcher) RunTick(ctx context.Context) Report {
	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	rep := Report{TickID: uuid.NewString(), StartedAt: d.now()}
	log := d.log.With(logx.String("tick_id", rep.TickID))

	snap, err := d.fetcher.Fetch(ctx)
	if err != nil {
		rep.FetchErr = err
		rep.Took = d.now().Sub(rep.StartedAt)
		log.Warn("stock fetch failed, skipping tick", logx.Err(err))
		d.publish(rep)
		return rep
	}

	entries := d.source.All()
	rep.Destinations = len(entries)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(cfg.Workers)
	for _, e := range entries {
		g.Go(func() error {
			sent, skipped, errs := d.deliverEntry(ctx, cfg, snap, e, log)
			mu.Lock()
			rep.Sent += sent
			if skipped {
				rep.Skipped++
			}
			rep.Failed += len(errs)
			rep.Errors = append(rep.Errors, errs...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	rep.Took = d.now().Sub(rep.StartedAt)
	log.Info("tick finished",
		logx.Int("destinations", rep.Destinations),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", rep.Failed),
		logx.Int("skipped", rep.Skipped),
		logx.Duration("took", rep.Took),
	)
	d.publish(rep)
	return rep
}

func (d *Dispatcher) deliverEntry(ctx context.Context, cfg Config, snap stock.Snapshot, e subscription.Entry, log logx.Logger) (sent int, skipped bool, errs []*DeliveryError) {
	dest := e.Destination
	log = log.With(logx.Int64("chat_id", dest.ChatID), logx.Int("thread_id", dest.ThreadID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("destination panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			errs = append(errs, &DeliveryError{Destination: dest, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	ok, err := d.deliverer.CanDeliver(cctx, dest)
	cancel()
	if err != nil || !ok {
		// Unreachable destinations stay registered; the next tick tries again.
		log.Warn("destination not deliverable, skipping", logx.Bool("allowed", ok), logx.Err(err))
		return 0, true, nil
	}

	for _, m := range plan(e.Subscriptions, snap, cfg.CombineAll) {
		if derr := d.send(ctx, cfg, dest, m, log); derr != nil {
			errs = append(errs, derr)
			continue
		}
		sent++
	}
	return sent, false, errs
}

// send delivers one planned message. A panic is recovered here so the
// destination's remaining messages still go out.
func (d *Dispatcher) send(ctx context.Context, cfg Config, dest subscription.Destination, m message, log logx.Logger) (derr *DeliveryError) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("delivery panicked", logx.Any("categories", m.categories), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			derr = &DeliveryError{Destination: dest, Categories: m.categories, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()
	if err := d.deliverer.Deliver(sctx, dest, m.text, m.mention); err != nil {
		log.Warn("delivery failed", logx.Any("categories", m.categories), logx.Err(err))
		return &DeliveryError{Destination: dest, Categories: m.categories, Err: err}
	}
	return nil
}

// plan renders one message per subscription, or a single combined message
// when combine is set and the destination follows every category with the
// same tag settings.
func plan(subs []subscription.Subscription, snap stock.Snapshot, combine bool) []message {
	if combine && combinable(subs) {
		return []message{{
			categories: stock.Categories(),
			text:       stock.SnapshotMessage(snap),
			mention:    subs[0].Mention(),
		}}
	}
	out := make([]message, 0, len(subs))
	for _, s := range subs {
		out = append(out, message{
			categories: []stock.Category{s.Category},
			text:       stock.CategoryMessage(s.Category, snap.Items(s.Category)),
			mention:    s.Mention(),
		})
	}
	return out
}

func combinable(subs []subscription.Subscription) bool {
	if len(subs) != len(stock.Categories()) {
		return false
	}
	for _, s := range subs[1:] {
		if s.NotifyTag != subs[0].NotifyTag || s.Mention() != subs[0].Mention() {
			return false
		}
	}
	return true
}

func (d *Dispatcher) publish(rep Report) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Type: "relay.tick", Time: d.now(), Data: rep})
}
