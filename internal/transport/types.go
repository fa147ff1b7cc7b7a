package transport

import (
	"context"
	"fmt"
)

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

// ChatTarget addresses a chat, optionally a forum topic inside it.
// It is comparable and doubles as the relay's destination key.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// PartialSendError is returned by SendText when a long text failed after
// some of its chunks were already posted. Rest is the text still unsent, so
// a retry can resume instead of posting the first chunks twice.
type PartialSendError struct {
	Sent int
	Rest string
	Err  error
}

func (e *PartialSendError) Error() string {
	return fmt.Sprintf("sent %d chunk(s) before failing: %v", e.Sent, e.Err)
}

func (e *PartialSendError) Unwrap() error { return e.Err }

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)

	// CanDeliver reports whether the bot can currently post into the chat.
	CanDeliver(ctx context.Context, to ChatTarget) (bool, error)
	// IsChatAdmin reports whether userID administers the chat.
	IsChatAdmin(ctx context.Context, chatID int64, userID int64) (bool, error)
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
