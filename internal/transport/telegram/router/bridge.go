package router

import (
	"context"
	"time"

	"stockrelay/internal/dispatch"
	"stockrelay/internal/notifier"
	"stockrelay/internal/runtime/supervisor"
	"stockrelay/internal/stock"
	"stockrelay/internal/storage"
	"stockrelay/internal/subscription"
	kit "stockrelay/internal/transport"
)

//go:generate mockgen -destination=mock_adapter_test.go -package=router stockrelay/internal/transport Adapter
//go:generate mockgen -destination=mock_ports_test.go -package=router stockrelay/internal/transport/telegram/router StockSource,Relay

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError

var WithRestartBackoff = supervisor.WithRestartBackoff

var WithPublishFirstError = supervisor.WithPublishFirstError

var WithStopOnCleanExit = supervisor.WithStopOnCleanExit

// ---- Ports used by the relay commands ----

// Registry is the subset of *subscription.Registry the commands need.
type Registry interface {
	Subscribe(dest kit.ChatTarget, sel stock.Selection, notifyTag bool, tagTarget string) ([]stock.Category, error)
	Unsubscribe(dest kit.ChatTarget, sel stock.Selection) ([]stock.Category, error)
	ListFor(dest kit.ChatTarget) []subscription.Subscription
	Len() int
}

// StockSource fetches on demand. *stock.Fetcher satisfies it.
type StockSource interface {
	Fetch(ctx context.Context) (stock.Snapshot, error)
	FetchCategory(ctx context.Context, c stock.Category) ([]stock.Item, error)
}

// Relay exposes the scheduler. *dispatch.Scheduler satisfies it.
type Relay interface {
	State() dispatch.State
	NextRun() time.Time
	LastReport() (dispatch.Report, bool)
	RunNow(ctx context.Context) (dispatch.Report, error)
}

// DeliveryHistory exposes recent outbound deliveries. *notifier.Deliverer satisfies it.
type DeliveryHistory interface {
	History() []notifier.HistoryItem
}

// AuditStore receives one entry per audited command. storage.Store satisfies it.
type AuditStore interface {
	AppendAudit(ctx context.Context, e storage.AuditEntry) error
}
