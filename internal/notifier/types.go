package notifier

import (
	"context"
	"time"

	kit "stockrelay/internal/transport"
)

//go:generate mockgen -destination=mock_sender_test.go -package=notifier . Sender

// Sender is the part of the chat adapter the notifier needs.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	CanDeliver(ctx context.Context, to kit.ChatTarget) (bool, error)
}

type Config struct {
	RatePerSec     int
	RetryMax       int
	RetryBase      time.Duration
	RetryMaxDelay  time.Duration
	AttemptTimeout time.Duration
}

const historyLimit = 300

type HistoryItem struct {
	At       time.Time
	To       kit.ChatTarget
	Attempts int
	Err      string
}

// DeliveryEvent is published on the bus after each delivery resolves.
type DeliveryEvent struct {
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
