package stock

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Count is an item's stock count as reported upstream.
// The provider sends either a number or a string; both are kept as display text.
type Count string

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Count(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Count(n.String())
	return nil
}

// CountOf formats an integer stock count.
func CountOf(n int) Count { return Count(strconv.Itoa(n)) }

// Item is a single upstream inventory entry.
type Item struct {
	Name  string `json:"name"`
	Stock Count  `json:"stock"`
}

// Snapshot is the result of one upstream fetch.
// It is read-only once built; accessors hand out copies.
type Snapshot struct {
	fetchedAt time.Time
	items     map[Category][]Item
}

// NewSnapshot builds a snapshot from per-category items. Categories missing
// from the map read as empty lists.
func NewSnapshot(at time.Time, items map[Category][]Item) Snapshot {
	m := make(map[Category][]Item, len(canonical))
	for _, c := range canonical {
		m[c] = append([]Item(nil), items[c]...)
	}
	return Snapshot{fetchedAt: at, items: m}
}

func (s Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// Items returns the items of one category in upstream order.
func (s Snapshot) Items(c Category) []Item {
	return append([]Item(nil), s.items[c]...)
}

// Len returns the number of items across all categories.
func (s Snapshot) Len() int {
	n := 0
	for _, it := range s.items {
		n += len(it)
	}
	return n
}
