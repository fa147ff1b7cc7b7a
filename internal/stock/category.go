package stock

import (
	"fmt"
	"strings"
)

// Category is one of the canonical inventory kinds tracked by the relay.
type Category string

const (
	CategoryEgg      Category = "egg"
	CategoryStock    Category = "stock"
	CategoryGear     Category = "gear"
	CategoryCosmetic Category = "cosmetic"
	CategoryEvent    Category = "event"
)

// AllKeyword is the selection shorthand for every canonical category.
// It is never stored as a category on its own.
const AllKeyword = "all"

var canonical = []Category{CategoryEgg, CategoryStock, CategoryGear, CategoryCosmetic, CategoryEvent}

// Categories returns the canonical categories in display order.
func Categories() []Category {
	return append([]Category(nil), canonical...)
}

func (c Category) Valid() bool {
	for _, k := range canonical {
		if k == c {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// Index returns the canonical position of c, or -1.
func (c Category) Index() int {
	for i, k := range canonical {
		if k == c {
			return i
		}
	}
	return -1
}

// Selection is the parsed form of a "<category>|all" argument.
type Selection struct {
	All        bool
	Categories []Category
}

// Expand returns the concrete categories covered by the selection.
func (s Selection) Expand() []Category {
	if s.All {
		return Categories()
	}
	return append([]Category(nil), s.Categories...)
}

func (s Selection) String() string {
	if s.All {
		return AllKeyword
	}
	parts := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}

// SelectAll is the selection covering every canonical category.
func SelectAll() Selection { return Selection{All: true} }

// Select builds a selection from explicit categories.
func Select(cs ...Category) Selection { return Selection{Categories: cs} }

// ValidationError reports a malformed category argument.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Input == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Input)
}

// Choices lists the accepted category arguments, "all" included.
func Choices() string {
	parts := make([]string, 0, len(canonical)+1)
	for _, c := range canonical {
		parts = append(parts, string(c))
	}
	parts = append(parts, AllKeyword)
	return strings.Join(parts, ", ")
}

// ParseSelection parses a category argument as typed by an operator.
//
// Accepted forms: a single category ("egg"), "all", or a comma separated list
// ("egg,gear"). Matching is case-insensitive and duplicates collapse. A list
// that contains "all" selects everything.
func ParseSelection(raw string) (Selection, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Selection{}, &ValidationError{Reason: "category required (choose: " + Choices() + ")"}
	}

	seen := map[Category]bool{}
	var out []Category
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == AllKeyword {
			return SelectAll(), nil
		}
		c := Category(part)
		if !c.Valid() {
			return Selection{}, &ValidationError{Input: part, Reason: "unknown category (choose: " + Choices() + ")"}
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return Selection{}, &ValidationError{Input: raw, Reason: "category required (choose: " + Choices() + ")"}
	}
	return Selection{Categories: out}, nil
}
