package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	kit "stockrelay/internal/transport"
	logx "stockrelay/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

const defaultCommandTimeout = 15 * time.Second

type Command struct {
	// Route is a space-separated command path, e.g. "set" or "relay tick".
	Route       string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	// Audit records every invocation in the audit store.
	Audit   bool
	Timeout time.Duration
	Handle  HandlerFunc
}

type Request struct {
	Update       kit.Update
	Chat         kit.ChatTarget
	FromID       int64
	FromUsername string
	IsGroup      bool
	Path         []string
	Command      string
	Args         []string
	ReqID        string

	// AuditTarget is filled by handlers that act on a chat other than Chat.
	AuditTarget string

	Adapter  kit.Adapter
	Logger   logx.Logger
	Services *Services
	Owners   []int64
}

// IsOwner reports whether the caller is a configured owner.
func (r *Request) IsOwner() bool { return isOwner(r.FromID, r.Owners) }

// Reply sends plain text back to the chat the command came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

type Services struct {
	Registry Registry
	Stock    StockSource
	Relay    Relay
	History  DeliveryHistory
	Audit    AuditStore

	// AppSupervisor is set by the app once started; nil in tests.
	AppSupervisor *Supervisor
	// RuntimeSupervisors lists subsystem supervisors for /status.
	RuntimeSupervisors *SupervisorRegistry
}

type CommandManager struct {
	mu    sync.RWMutex
	root  *cmdNode
	alias map[string]*cmdNode

	owners []int64

	log     logx.Logger
	adapter kit.Adapter
	serv    *Services

	runMu   sync.Mutex
	running bool
	sup     *Supervisor

	jobs chan func()
}

func NewCommandManager(log logx.Logger, adapter kit.Adapter, serv *Services, owners []int64) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	if serv == nil {
		serv = &Services{}
	}
	return &CommandManager{
		root:    newRoot(),
		alias:   map[string]*cmdNode{},
		log:     log,
		adapter: adapter,
		serv:    serv,
		owners:  append([]int64(nil), owners...),
		jobs:    make(chan func(), 256),
	}
}

// Supervisor returns the worker pool supervisor, nil when not running.
func (m *CommandManager) Supervisor() *Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return nil
	}
	return m.sup
}

func (m *CommandManager) setSupervisor(sup *Supervisor, running bool) {
	m.runMu.Lock()
	m.sup = sup
	m.running = running
	m.runMu.Unlock()
}

// tryEnqueue tolerates the jobs channel being closed during shutdown.
func (m *CommandManager) tryEnqueue(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// SetOwners replaces the owner list. Safe during hot reload.
func (m *CommandManager) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

func (m *CommandManager) ownersSnapshot() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.owners...)
}

// SetRegistry installs the command set. /help is always added.
func (m *CommandManager) SetRegistry(cmds []Command) {
	cmds = append(cmds, Command{
		Route:       "help",
		Aliases:     []string{"start"},
		Description: "show available commands",
		Usage:       "/help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			_, err := req.Adapter.SendText(ctx, req.Chat, m.helpText(req.Args), &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
			return err
		},
	})

	root := newRoot()
	alias := map[string]*cmdNode{}
	leaves := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		route := splitRoute(c.Route)
		if len(route) == 0 || c.Handle == nil {
			continue
		}
		root.add(route, c)
		leaves = append(leaves, c)
		leaf := root.find(route)

		// Multi-token routes also answer to their underscore form (/relay_tick),
		// which is what Telegram's menu autocomplete sends.
		if menu, ok := telegramCommandNameFromRoute(route); ok && (len(route) > 1 || menu != route[0]) {
			if _, exists := alias[menu]; !exists {
				alias[menu] = leaf
			}
		}
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			alias[a] = leaf
		}
	}

	m.mu.Lock()
	m.root = root
	m.alias = alias
	m.mu.Unlock()

	up, ok := m.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	menu := buildTelegramMenuCommands(root, leaves)
	run := func(parent context.Context) {
		ctx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()
		if err := up.UpdateMenuCommands(ctx, menu); err != nil {
			m.log.Warn("menu update failed", logx.Err(err))
		}
	}
	if m.serv.AppSupervisor != nil {
		m.serv.AppSupervisor.Go0("telegram.menu.update", run)
		return
	}
	go run(context.Background())
}

// DispatchLoop routes updates to a bounded worker pool until ctx is done
// or updates is closed.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := max(runtime.NumCPU(), 2)

	sup := NewSupervisor(ctx,
		WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		WithCancelOnError(false),
	)
	m.setSupervisor(sup, true)
	m.serv.RuntimeSupervisors.Set("telegram.router", sup)
	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	for i := 0; i < workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					m.runJob(idx, job)
				}
			}
		},
			WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			WithPublishFirstError(true),
			WithStopOnCleanExit(true),
		)
	}

	defer func() {
		m.setSupervisor(sup, false)
		close(m.jobs)
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.serv.RuntimeSupervisors.Delete("telegram.router")
		m.setSupervisor(nil, false)
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Kind == kit.UpdateMessage {
				m.routeMessage(ctx, up)
			}
		}
	}
}

func (m *CommandManager) runJob(worker int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in command job", logx.Int("worker", worker), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()
	job()
}

// resolve maps a command line to its command, the matched path and the
// remaining arguments.
func (m *CommandManager) resolve(text string) (*Command, []string, []string, bool) {
	parts := tokenizeCommandLine(text)
	if len(parts) == 0 {
		return nil, nil, nil, false
	}
	word := commandWord(parts[0])
	args := parts[1:]

	m.mu.RLock()
	root := m.root
	aliases := m.alias
	m.mu.RUnlock()

	if leaf, ok := aliases[word]; ok && leaf.cmd != nil {
		return leaf.cmd, splitRoute(leaf.cmd.Route), args, true
	}
	cur, ok := root.child(word)
	if !ok {
		return nil, []string{word}, args, false
	}
	path := []string{word}
	for len(args) > 0 {
		child, ok := cur.child(strings.ToLower(args[0]))
		if !ok {
			break
		}
		cur = child
		path = append(path, strings.ToLower(args[0]))
		args = args[1:]
	}
	return cur.cmd, path, args, true
}

func (m *CommandManager) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	cmd, path, args, found := m.resolve(text)
	if !found {
		// In groups the command is likely meant for another bot.
		if !msg.IsGroup {
			_, _ = m.adapter.SendText(ctx, chat, "unknown command, try /help", nil)
		}
		return
	}
	if cmd == nil {
		_, _ = m.adapter.SendText(ctx, chat, m.helpText(path), &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
		return
	}

	owners := m.ownersSnapshot()
	if cmd.Access == AccessOwnerOnly && !isOwner(msg.FromID, owners) {
		_, _ = m.adapter.SendText(ctx, chat, "only the bot owner can use this command", nil)
		return
	}

	rid := newReqID()
	req := &Request{
		Update:       up,
		Chat:         chat,
		FromID:       msg.FromID,
		FromUsername: msg.FromUsername,
		IsGroup:      msg.IsGroup,
		Path:         path,
		Command:      cmd.Route,
		Args:         args,
		ReqID:        rid,
		Adapter:      m.adapter,
		Services:     m.serv,
		Owners:       owners,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int("thread_id", msg.ThreadID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Route),
		),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	mws := []Middleware{MWPanicRecover(m.log), MWRequestLog(m.log)}
	if cmd.Audit {
		mws = append(mws, MWAudit(m.serv.Audit, m.log))
	}
	mws = append(mws, MWTimeout(timeout))
	final := Chain(cmd.Handle, mws...)

	if !m.tryEnqueue(func() { _ = final(ctx, req) }) {
		_, _ = m.adapter.SendText(ctx, chat, "busy, try again in a moment", nil)
	}
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
