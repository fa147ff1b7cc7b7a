// Package subscription holds the in-memory mapping from chat destinations to
// the stock categories they follow.
//
// The registry is process-local and rebuilt empty on every start. It is safe
// for concurrent use: command handlers mutate it while the dispatcher
// enumerates it, and All() hands out a copy so a tick never observes a
// half-applied change.
package subscription

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"stockrelay/internal/eventbus"
	"stockrelay/internal/stock"
	kit "stockrelay/internal/transport"
	logx "stockrelay/pkg/logx"
)

// ErrNotFound is returned when an unsubscribe matches nothing.
var ErrNotFound = errors.New("no matching subscription")

// ValidationError reports a subscribe request rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

// Destination identifies where notifications go.
type Destination = kit.ChatTarget

// Subscription is one destination's interest in one category.
type Subscription struct {
	Category  stock.Category `json:"category"`
	NotifyTag bool           `json:"notify_tag"`
	TagTarget string         `json:"tag_target,omitempty"`
}

// Mention returns the tag to attach to a notification, or "".
func (s Subscription) Mention() string {
	if !s.NotifyTag {
		return ""
	}
	return s.TagTarget
}

// Entry is one destination with its subscriptions in canonical category order.
type Entry struct {
	Destination   Destination
	Subscriptions []Subscription
}

// ChangeEvent is published on the bus after every successful mutation.
type ChangeEvent struct {
	Destination Destination      `json:"destination"`
	Action      string           `json:"action"`
	Categories  []stock.Category `json:"categories"`
	At          time.Time        `json:"at"`
}

type Registry struct {
	mu   sync.RWMutex
	subs map[Destination]map[stock.Category]Subscription

	log logx.Logger
	bus eventbus.Bus
}

func New(log logx.Logger, bus eventbus.Bus) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{
		subs: map[Destination]map[stock.Category]Subscription{},
		log:  log,
		bus:  bus,
	}
}

// Subscribe upserts one subscription per selected category. An existing
// subscription for the same (destination, category) is replaced.
func (r *Registry) Subscribe(dest Destination, sel stock.Selection, notifyTag bool, tagTarget string) ([]stock.Category, error) {
	tagTarget = strings.TrimSpace(tagTarget)
	if notifyTag && tagTarget == "" {
		return nil, &ValidationError{Field: "tag", Reason: "a tag target is required when tagging is enabled"}
	}
	cats, err := expand(sel)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	set := r.subs[dest]
	if set == nil {
		set = make(map[stock.Category]Subscription, len(cats))
		r.subs[dest] = set
	}
	for _, c := range cats {
		set[c] = Subscription{Category: c, NotifyTag: notifyTag, TagTarget: tagTarget}
	}
	total := len(set)
	r.mu.Unlock()

	r.log.Debug("subscribed",
		logx.Int64("chat_id", dest.ChatID),
		logx.Int("thread_id", dest.ThreadID),
		logx.String("categories", sel.String()),
		logx.Bool("tag", notifyTag),
		logx.Int("total", total),
	)
	r.publish(dest, "subscribe", cats)
	return cats, nil
}

// Unsubscribe removes the selected categories. When the destination ends up
// with nothing, its entry is dropped. ErrNotFound means nothing was removed.
func (r *Registry) Unsubscribe(dest Destination, sel stock.Selection) ([]stock.Category, error) {
	cats, err := expand(sel)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	set, ok := r.subs[dest]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	removed := make([]stock.Category, 0, len(cats))
	for _, c := range cats {
		if _, ok := set[c]; ok {
			delete(set, c)
			removed = append(removed, c)
		}
	}
	if len(set) == 0 {
		delete(r.subs, dest)
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return nil, ErrNotFound
	}
	r.log.Debug("unsubscribed",
		logx.Int64("chat_id", dest.ChatID),
		logx.Int("thread_id", dest.ThreadID),
		logx.String("categories", sel.String()),
	)
	r.publish(dest, "unsubscribe", removed)
	return removed, nil
}

// ListFor returns the destination's subscriptions in canonical order.
func (r *Registry) ListFor(dest Destination) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sorted(r.subs[dest])
}

// All returns a point-in-time copy of every live entry.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.subs))
	for d, set := range r.subs {
		out = append(out, Entry{Destination: d, Subscriptions: sorted(set)})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Destination.ChatID != out[j].Destination.ChatID {
			return out[i].Destination.ChatID < out[j].Destination.ChatID
		}
		return out[i].Destination.ThreadID < out[j].Destination.ThreadID
	})
	return out
}

// Len returns the number of destinations with at least one subscription.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Registry) publish(dest Destination, action string, cats []stock.Category) {
	if r.bus == nil {
		return
	}
	now := time.Now()
	r.bus.Publish(eventbus.Event{
		Type: "subscription." + action,
		Time: now,
		Data: ChangeEvent{Destination: dest, Action: action, Categories: cats, At: now},
	})
}

func expand(sel stock.Selection) ([]stock.Category, error) {
	cats := sel.Expand()
	if len(cats) == 0 {
		return nil, &ValidationError{Field: "category", Reason: "no category selected"}
	}
	for _, c := range cats {
		if !c.Valid() {
			return nil, &ValidationError{Field: "category", Reason: "unknown category " + string(c)}
		}
	}
	return cats, nil
}

func sorted(set map[stock.Category]Subscription) []Subscription {
	if len(set) == 0 {
		return nil
	}
	out := make([]Subscription, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category.Index() < out[j].Category.Index() })
	return out
}
