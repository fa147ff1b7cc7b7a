package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stockrelay/internal/dispatch"
	"stockrelay/internal/stock"
	"stockrelay/internal/subscription"
	kit "stockrelay/internal/transport"
)

const (
	setUsage   = "/set <chat|here> <category|all> <true|false> [tag]"
	unsetUsage = "/unset <chat|here> <category|all>"
	listUsage  = "/list [chat|here]"
	stockUsage = "/stock [category|all]"
)

var (
	errUsage      = errors.New("bad usage")
	errNotAdmin   = errors.New("caller is not an administrator of the target chat")
	errCannotPost = errors.New("bot cannot post in the target chat")
)

// RelayCommands returns the operator commands of the stock relay.
func RelayCommands() []Command {
	return []Command{
		{
			Route:       "set",
			Aliases:     []string{"subscribe"},
			Description: "send stock updates to a chat",
			Usage:       setUsage,
			Audit:       true,
			Handle:      handleSet,
		},
		{
			Route:       "unset",
			Aliases:     []string{"unsubscribe"},
			Description: "stop stock updates in a chat",
			Usage:       unsetUsage,
			Audit:       true,
			Handle:      handleUnset,
		},
		{
			Route:       "list",
			Description: "show the updates set for a chat",
			Usage:       listUsage,
			Handle:      handleList,
		},
		{
			Route:       "stock",
			Description: "show the current stock",
			Usage:       stockUsage,
			Timeout:     30 * time.Second,
			Handle:      handleStock,
		},
		{
			Route:       "relay status",
			Aliases:     []string{"status"},
			Description: "relay state and last tick",
			Usage:       "/relay status",
			Access:      AccessOwnerOnly,
			Handle:      handleStatus,
		},
		{
			Route:       "relay tick",
			Aliases:     []string{"tick"},
			Description: "run a relay tick now",
			Usage:       "/relay tick",
			Access:      AccessOwnerOnly,
			Audit:       true,
			Timeout:     3 * time.Minute,
			Handle:      handleTick,
		},
	}
}

func handleSet(ctx context.Context, req *Request) error {
	if len(req.Args) < 3 {
		return fail(ctx, req, "usage: "+setUsage, errUsage)
	}
	target, err := parseTarget(req.Args[0], req.Chat)
	if err != nil {
		return fail(ctx, req, err.Error(), err)
	}
	req.AuditTarget = formatTarget(target)

	sel, err := stock.ParseSelection(req.Args[1])
	if err != nil {
		return fail(ctx, req, err.Error(), err)
	}
	notify, err := parseBool(req.Args[2])
	if err != nil {
		return fail(ctx, req, err.Error()+"\nusage: "+setUsage, err)
	}
	tag := strings.TrimSpace(strings.Join(req.Args[3:], " "))
	if notify && tag == "" {
		return fail(ctx, req, "tagging is on, so tell me who to tag, e.g. /set here egg true @egg_hunters", errUsage)
	}

	if err := authorize(ctx, req, target); err != nil {
		return err
	}
	if err := checkDeliverable(ctx, req, target); err != nil {
		return err
	}

	cats, err := req.Services.Registry.Subscribe(target, sel, notify, tag)
	if err != nil {
		var ve *subscription.ValidationError
		if errors.As(err, &ve) {
			return fail(ctx, req, ve.Error(), err)
		}
		return fail(ctx, req, "could not save that, try again", err)
	}
	return req.Reply(ctx, fmt.Sprintf("updates set for %s in %s", joinCategories(cats), describeTarget(target, req.Chat)))
}

func handleUnset(ctx context.Context, req *Request) error {
	if len(req.Args) < 2 {
		return fail(ctx, req, "usage: "+unsetUsage, errUsage)
	}
	target, err := parseTarget(req.Args[0], req.Chat)
	if err != nil {
		return fail(ctx, req, err.Error(), err)
	}
	req.AuditTarget = formatTarget(target)

	sel, err := stock.ParseSelection(req.Args[1])
	if err != nil {
		return fail(ctx, req, err.Error(), err)
	}
	if err := authorize(ctx, req, target); err != nil {
		return err
	}
	if err := checkDeliverable(ctx, req, target); err != nil {
		return err
	}

	removed, err := req.Services.Registry.Unsubscribe(target, sel)
	if errors.Is(err, subscription.ErrNotFound) {
		return req.Reply(ctx, "no updates are set for that chat")
	}
	if err != nil {
		return fail(ctx, req, err.Error(), err)
	}
	return req.Reply(ctx, fmt.Sprintf("updates removed for %s in %s", joinCategories(removed), describeTarget(target, req.Chat)))
}

func handleList(ctx context.Context, req *Request) error {
	target := req.Chat
	if len(req.Args) > 0 {
		t, err := parseTarget(req.Args[0], req.Chat)
		if err != nil {
			return fail(ctx, req, err.Error(), err)
		}
		target = t
	}
	if target != req.Chat {
		if err := authorize(ctx, req, target); err != nil {
			return err
		}
	}

	subs := req.Services.Registry.ListFor(target)
	if len(subs) == 0 {
		return req.Reply(ctx, "no updates are set for "+describeTarget(target, req.Chat))
	}
	lines := []string{"updates in " + describeTarget(target, req.Chat) + ":"}
	for _, s := range subs {
		line := "• " + string(s.Category)
		if m := s.Mention(); m != "" {
			line += " (tags " + m + ")"
		}
		lines = append(lines, line)
	}
	return req.Reply(ctx, strings.Join(lines, "\n"))
}

func handleStock(ctx context.Context, req *Request) error {
	raw := stock.AllKeyword
	if len(req.Args) > 0 {
		raw = req.Args[0]
	}
	sel, err := stock.ParseSelection(raw)
	if err != nil {
		return fail(ctx, req, err.Error(), err)
	}
	src := req.Services.Stock

	cats := sel.Expand()
	if !sel.All && len(cats) == 1 {
		items, err := src.FetchCategory(ctx, cats[0])
		if err != nil {
			return fail(ctx, req, "could not reach the stock API right now, try again later", err)
		}
		return req.Reply(ctx, stock.CategoryMessage(cats[0], items))
	}

	snap, err := src.Fetch(ctx)
	if err != nil {
		return fail(ctx, req, "could not reach the stock API right now, try again later", err)
	}
	if sel.All {
		return req.Reply(ctx, stock.SnapshotMessage(snap))
	}
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, stock.CategoryMessage(c, snap.Items(c)))
	}
	return req.Reply(ctx, strings.Join(parts, "\n\n"))
}

func handleStatus(ctx context.Context, req *Request) error {
	s := req.Services
	lines := make([]string, 0, 12)

	if s.Relay != nil {
		lines = append(lines, "relay: "+string(s.Relay.State()))
		if next := s.Relay.NextRun(); !next.IsZero() {
			lines = append(lines, fmt.Sprintf("next tick: %s (in %s)",
				next.Format(time.RFC3339), time.Until(next).Round(time.Second)))
		}
		if rep, ok := s.Relay.LastReport(); ok {
			lines = append(lines, "last "+rep.String())
		} else {
			lines = append(lines, "last tick: none yet")
		}
	}
	if s.Registry != nil {
		lines = append(lines, fmt.Sprintf("destinations: %d", s.Registry.Len()))
	}
	if s.History != nil {
		var ok, failed int
		for _, h := range s.History.History() {
			if h.Err == "" {
				ok++
			} else {
				failed++
			}
		}
		lines = append(lines, fmt.Sprintf("recent deliveries: %d ok, %d failed", ok, failed))
	}
	if sups := s.RuntimeSupervisors.Snapshot(); len(sups) > 0 {
		names := make([]string, 0, len(sups))
		for n := range sups {
			names = append(names, n)
		}
		sort.Strings(names)
		lines = append(lines, "goroutines:")
		for _, n := range names {
			c := sups[n].Counters()
			lines = append(lines, fmt.Sprintf("• %s: %d active, %d panics, %d restarts", n, c.Active, c.Panics, c.Restarts))
		}
	}
	return req.Reply(ctx, strings.Join(lines, "\n"))
}

func handleTick(ctx context.Context, req *Request) error {
	rep, err := req.Services.Relay.RunNow(ctx)
	if errors.Is(err, dispatch.ErrTickInProgress) {
		return fail(ctx, req, "a tick is already running", err)
	}
	if err != nil {
		return fail(ctx, req, "tick failed: "+err.Error(), err)
	}
	if rep.FetchErr != nil {
		return fail(ctx, req, rep.String(), rep.FetchErr)
	}
	return req.Reply(ctx, rep.String())
}

// fail replies with text and returns err so the middleware logs and audits it.
func fail(ctx context.Context, req *Request, text string, err error) error {
	_ = req.Reply(ctx, text)
	return err
}

// authorize lets owners through; anyone else must administer the target chat.
func authorize(ctx context.Context, req *Request, target kit.ChatTarget) error {
	if req.IsOwner() {
		return nil
	}
	ok, err := req.Adapter.IsChatAdmin(ctx, target.ChatID, req.FromID)
	if err != nil {
		return fail(ctx, req, "could not check your permissions in that chat", fmt.Errorf("admin check: %w", err))
	}
	if !ok {
		return fail(ctx, req, "you need to be an administrator of that chat", errNotAdmin)
	}
	return nil
}

func checkDeliverable(ctx context.Context, req *Request, target kit.ChatTarget) error {
	ok, err := req.Adapter.CanDeliver(ctx, target)
	if err != nil {
		return fail(ctx, req, "could not look up that chat, is the bot a member?", fmt.Errorf("delivery check: %w", err))
	}
	if !ok {
		return fail(ctx, req, "I can't post in that chat, add me and allow me to send messages", errCannotPost)
	}
	return nil
}

// parseTarget accepts "here" or "<chat_id>[:<thread_id>]".
func parseTarget(arg string, here kit.ChatTarget) (kit.ChatTarget, error) {
	a := strings.ToLower(strings.TrimSpace(arg))
	if a == "here" || a == "this" {
		return here, nil
	}
	idPart, threadPart, hasThread := strings.Cut(a, ":")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id == 0 {
		return kit.ChatTarget{}, fmt.Errorf("chat must be \"here\" or a numeric chat id, got %q", arg)
	}
	t := kit.ChatTarget{ChatID: id}
	if hasThread {
		th, err := strconv.Atoi(threadPart)
		if err != nil || th <= 0 {
			return kit.ChatTarget{}, fmt.Errorf("topic must be a positive number, got %q", threadPart)
		}
		t.ThreadID = th
	}
	return t, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("tag must be true or false, got %q", raw)
}

func formatTarget(t kit.ChatTarget) string {
	s := strconv.FormatInt(t.ChatID, 10)
	if t.ThreadID != 0 {
		s += ":" + strconv.Itoa(t.ThreadID)
	}
	return s
}

func describeTarget(t, here kit.ChatTarget) string {
	if t == here {
		return "this chat"
	}
	return "chat " + formatTarget(t)
}

func joinCategories(cats []stock.Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
