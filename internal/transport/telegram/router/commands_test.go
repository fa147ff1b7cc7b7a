package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockrelay/internal/storage"
	kit "stockrelay/internal/transport"
	logx "stockrelay/pkg/logx"
)

func TestTokenizeCommandLine(t *testing.T) {
	require.Equal(t,
		[]string{"/set", "here", "egg", "true", "@egg hunters"},
		tokenizeCommandLine(`/set here egg true "@egg hunters"`))
	require.Equal(t, []string{"a", "", "b c"}, tokenizeCommandLine(`a '' b\ c`))
	require.Nil(t, tokenizeCommandLine("   "))
}

func TestCommandWord(t *testing.T) {
	require.Equal(t, "set", commandWord("/Set@StockRelayBot"))
	require.Equal(t, "list", commandWord("/list"))
}

func TestResolveAliasesAndSubcommands(t *testing.T) {
	m := NewCommandManager(logx.Nop(), nil, nil, nil)
	noop := func(context.Context, *Request) error { return nil }
	m.SetRegistry([]Command{
		{Route: "set", Aliases: []string{"subscribe"}, Handle: noop},
		{Route: "relay tick", Handle: noop},
	})

	cmd, path, args, ok := m.resolve("/subscribe@bot here egg false")
	require.True(t, ok)
	require.Equal(t, "set", cmd.Route)
	require.Equal(t, []string{"set"}, path)
	require.Equal(t, []string{"here", "egg", "false"}, args)

	cmd, path, _, ok = m.resolve("/relay tick")
	require.True(t, ok)
	require.Equal(t, "relay tick", cmd.Route)
	require.Equal(t, []string{"relay", "tick"}, path)

	cmd, _, _, ok = m.resolve("/relay_tick")
	require.True(t, ok)
	require.Equal(t, "relay tick", cmd.Route)

	// Group node without its own handler.
	cmd, path, _, ok = m.resolve("/relay")
	require.True(t, ok)
	require.Nil(t, cmd)
	require.Equal(t, []string{"relay"}, path)

	_, _, _, ok = m.resolve("/nope")
	require.False(t, ok)
}

func TestHelpListsOwnerCommandsLast(t *testing.T) {
	m := NewCommandManager(logx.Nop(), nil, nil, nil)
	m.SetRegistry(RelayCommands())

	top := m.helpText(nil)
	require.Contains(t, top, "<code>/set</code>: send stock updates to a chat")
	require.Less(t, strings.Index(top, "/unset"), strings.Index(top, "🔒 <code>/relay</code>: subcommands: status, tick"))

	detail := m.helpText([]string{"subscribe"})
	require.Contains(t, detail, "<code>/set</code>")
	require.Contains(t, detail, "&lt;chat|here&gt;")

	tick := m.helpText([]string{"tick"})
	require.Contains(t, tick, "<b>Help</b> <code>/relay tick</code>")
	require.Contains(t, tick, "• <code>/relay_tick</code>\n• <code>/tick</code>")
}

func TestMenuCommandsForRelaySet(t *testing.T) {
	m := NewCommandManager(logx.Nop(), nil, nil, nil)
	m.SetRegistry(RelayCommands())

	got := buildTelegramMenuCommands(m.root, RelayCommands())

	require.Equal(t, []kit.BotCommand{
		{Command: "help", Description: "show available commands"},
		{Command: "list", Description: "show the updates set for a chat"},
		{Command: "relay", Description: "🔒 subcommands: status, tick"},
		{Command: "set", Description: "send stock updates to a chat"},
		{Command: "stock", Description: "show the current stock"},
		{Command: "unset", Description: "stop stock updates in a chat"},
		{Command: "relay_status", Description: "🔒 relay state and last tick"},
		{Command: "relay_tick", Description: "🔒 run a relay tick now"},
	}, got)
}

func TestGroupedCommandsAnswerToShortForms(t *testing.T) {
	m := NewCommandManager(logx.Nop(), nil, nil, nil)
	m.SetRegistry(RelayCommands())

	for _, line := range []string{"/tick", "/relay tick", "/relay_tick"} {
		cmd, path, _, ok := m.resolve(line)
		require.True(t, ok, line)
		require.Equal(t, "relay tick", cmd.Route, line)
		require.Equal(t, []string{"relay", "tick"}, path, line)
	}
	cmd, _, _, ok := m.resolve("/status")
	require.True(t, ok)
	require.Equal(t, "relay status", cmd.Route)
}

func TestTruncateRunesKeepsUTF8Valid(t *testing.T) {
	require.Equal(t, "ab", truncateRunes("ab", 4))
	require.Equal(t, "a", truncateRunes("a🔒", 3))
}

func TestSanitizeTelegramCommand(t *testing.T) {
	require.Equal(t, "relay_tick", sanitizeTelegramCommand("relay tick"))
	require.Equal(t, "stock_now", sanitizeTelegramCommand("Stock-Now"))
	require.Equal(t, "cmd_5m", sanitizeTelegramCommand("5m"))
	require.Equal(t, "", sanitizeTelegramCommand("!!"))
}

type memAudit struct {
	mu      sync.Mutex
	entries []storage.AuditEntry
}

func (a *memAudit) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()
	return nil
}

func TestAuditRecordsOutcome(t *testing.T) {
	store := &memAudit{}
	boom := errors.New("boom")
	h := Chain(func(_ context.Context, req *Request) error {
		req.AuditTarget = "-100:3"
		return boom
	}, MWAudit(store, logx.Nop()))

	req := &Request{Chat: groupChat, FromID: 42, FromUsername: "op", Command: "set", ReqID: "r1"}
	require.ErrorIs(t, h(context.Background(), req), boom)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	require.Equal(t, "set", e.Action)
	require.Equal(t, "-100:3", e.Target)
	require.Equal(t, int64(42), e.ActorID)
	require.Equal(t, "op", e.ActorUsername)
	require.False(t, e.OK)
	require.Equal(t, "boom", e.Error)
}

func TestPanicRecoverTurnsPanicIntoError(t *testing.T) {
	h := Chain(func(context.Context, *Request) error { panic("kaboom") }, MWPanicRecover(logx.Nop()))
	err := h(context.Background(), &Request{})
	require.ErrorContains(t, err, "kaboom")
}

func TestDispatchLoopRoutesCommands(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := NewMockAdapter(ctrl)
	replies := make(chan string, 8)
	adapter.EXPECT().SendText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
			replies <- text
			return kit.MessageRef{}, nil
		}).AnyTimes()

	m := NewCommandManager(logx.Nop(), adapter, &Services{}, []int64{ownerID})
	m.SetRegistry([]Command{
		{Route: "ping", Handle: func(ctx context.Context, req *Request) error { return req.Reply(ctx, "pong") }},
		{Route: "secret", Access: AccessOwnerOnly, Handle: func(ctx context.Context, req *Request) error { return req.Reply(ctx, "ok") }},
	})

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, 4)
	done := make(chan error, 1)
	go func() { done <- m.DispatchLoop(ctx, updates) }()

	send := func(from int64, text string, group bool) string {
		updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 10, FromID: from, Text: text, IsGroup: group}}
		select {
		case r := <-replies:
			return r
		case <-time.After(3 * time.Second):
			t.Fatalf("no reply to %q", text)
			return ""
		}
	}

	require.Equal(t, "pong", send(7, "/ping", false))
	require.Equal(t, "only the bot owner can use this command", send(7, "/secret", false))
	require.Equal(t, "ok", send(ownerID, "/secret", false))
	require.Equal(t, "unknown command, try /help", send(7, "/what", false))

	// Unknown commands in groups are ignored; plain text never routes.
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 10, FromID: 7, Text: "/what", IsGroup: true}}
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 10, FromID: 7, Text: "hello"}}
	require.Equal(t, "pong", send(7, "/ping", true))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch loop did not stop")
	}
}
