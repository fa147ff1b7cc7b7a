package stock

import "strings"

// EmptyPlaceholder is rendered for a category with no items.
const EmptyPlaceholder = "nothing here right now"

// RenderList renders one line per item as "<name> — <stock>".
func RenderList(items []Item) string {
	if len(items) == 0 {
		return EmptyPlaceholder
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = "unnamed"
		}
		count := strings.TrimSpace(string(it.Stock))
		if count == "" {
			count = "?"
		}
		b.WriteString(name)
		b.WriteString(" — ")
		b.WriteString(count)
	}
	return b.String()
}

// RenderSnapshot renders every category in canonical order, each as a header
// line followed by its list, separated by blank lines.
func RenderSnapshot(s Snapshot) string {
	parts := make([]string, 0, len(canonical))
	for _, c := range canonical {
		parts = append(parts, string(c)+"\n"+RenderList(s.Items(c)))
	}
	return strings.Join(parts, "\n\n")
}

// CategoryMessage is the full text sent for a single-category subscription.
func CategoryMessage(c Category, items []Item) string {
	return string(c) + " stock\n\n" + RenderList(items)
}

// SnapshotMessage is the full text of a combined all-categories message.
func SnapshotMessage(s Snapshot) string {
	return "current stock\n\n" + RenderSnapshot(s)
}
