package app

import (
	"context"
	"fmt"
	"time"

	"stockrelay/internal/config"
	"stockrelay/internal/dispatch"
	"stockrelay/internal/eventbus"
	"stockrelay/internal/notifier"
	rtsup "stockrelay/internal/runtime/supervisor"
	"stockrelay/internal/stock"
	"stockrelay/internal/storage"
	"stockrelay/internal/subscription"
	kit "stockrelay/internal/transport"
	telegram "stockrelay/internal/transport/telegram/adapter"
	"stockrelay/internal/transport/telegram/router"
	logx "stockrelay/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter  kit.Adapter
	fetcher  *stock.Fetcher
	registry *subscription.Registry
	notif    *notifier.Deliverer
	disp     *dispatch.Dispatcher
	sched    *dispatch.Scheduler

	cmdm *router.CommandManager
	serv *router.Services

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logSvc, root := logx.New(mapLogConfig(cfg))
	log := root.With(logx.String("comp", "app"))

	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(tcfg, root.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logSvc.SetSender(func(ctx context.Context, chatID int64, threadID int, text string) error {
		_, err := ad.SendText(ctx, kit.ChatTarget{ChatID: chatID, ThreadID: threadID}, text, &kit.SendOptions{DisablePreview: true})
		return err
	})

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	fopts, err := mapFetcherOptions(cfg)
	if err != nil {
		return nil, err
	}
	fetcher := stock.NewFetcher(fopts...)

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, root.With(logx.String("comp", "notifier")), bus)

	registry := subscription.New(root.With(logx.String("comp", "subscriptions")), bus)

	dcfg, scfg, err := mapRelayConfig(cfg)
	if err != nil {
		return nil, err
	}
	disp := dispatch.NewDispatcher(dcfg, fetcher, notif, registry, root.With(logx.String("comp", "dispatch")), bus)
	sched := dispatch.NewScheduler(scfg, disp, root.With(logx.String("comp", "scheduler")))

	serv := &router.Services{
		Registry:           registry,
		Stock:              fetcher,
		Relay:              sched,
		History:            notif,
		RuntimeSupervisors: router.NewSupervisorRegistry(),
	}
	if store != nil {
		serv.Audit = store
	}
	cmdm := router.NewCommandManager(root.With(logx.String("comp", "commands")), ad, serv, cfg.Telegram.OwnerUserIDs)

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		adapter:  ad,
		fetcher:  fetcher,
		registry: registry,
		notif:    notif,
		disp:     disp,
		sched:    sched,
		cmdm:     cmdm,
		serv:     serv,
		updates:  make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.serv.AppSupervisor = a.sup
	a.serv.RuntimeSupervisors.Set("app", a.sup)

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })

	a.cmdm.SetRegistry(router.RelayCommands())

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128, "relay.", "subscription.")
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		a.logEvents(c, events)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.String("upstream", a.fetcher.URL()))
	return nil
}

func (a *App) logEvents(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			fields := []logx.Field{logx.String("type", e.Type), logx.Time("time", e.Time)}
			if rep, ok := e.Data.(dispatch.Report); ok {
				fields = append(fields, logx.String("report", rep.String()))
			}
			a.log.Debug("event", fields...)
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	a.step(ctx, "scheduler", 5*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	a.step(ctx, "storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	if n := a.bus.Dropped(); n > 0 {
		a.log.Debug("events dropped during run", logx.Uint64("count", n))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

// step runs one shutdown step bounded by max and the caller's deadline.
// A step that overruns is logged and left running.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
