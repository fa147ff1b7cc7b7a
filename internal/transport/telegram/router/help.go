package router

import (
	"html"
	"sort"
	"strings"
)

// helpText renders help for Telegram's HTML parse mode.
func (m *CommandManager) helpText(path []string) string {
	m.mu.RLock()
	root := m.root
	alias := m.alias
	m.mu.RUnlock()

	if len(path) == 0 {
		return helpTopHTML(root)
	}

	cur := root
	full := make([]string, 0, len(path))
	for _, p := range path {
		p = strings.ToLower(strings.TrimPrefix(p, "/"))
		n, ok := cur.child(p)
		if !ok {
			if leaf, ok := alias[p]; ok && leaf.cmd != nil {
				cur = leaf
				full = splitRoute(leaf.cmd.Route)
				break
			}
			return "Unknown command. Send <code>/help</code> for the list."
		}
		cur = n
		full = append(full, p)
	}
	return helpNodeHTML(cur, full)
}

type topRow struct {
	name string
	desc string
	lock bool
}

func helpTopHTML(root *cmdNode) string {
	rows := make([]topRow, 0, len(root.children))
	for _, name := range root.childNames() {
		n, _ := root.child(name)
		rows = append(rows, topRow{name: name, desc: summarizeNodeDesc(n), lock: nodeIsOwnerOnly(n)})
	}
	// Owner-only commands go last.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].lock != rows[j].lock {
			return !rows[i].lock
		}
		return rows[i].name < rows[j].name
	})

	lines := []string{
		"<b>Commands</b>",
		"Send <code>/help &lt;command&gt;</code> for details.",
		"",
	}
	for _, r := range rows {
		line := "• "
		if r.lock {
			line += ownerLock
		}
		line += "<code>/" + html.EscapeString(r.name) + "</code>"
		if r.desc != "" {
			line += ": " + html.EscapeString(r.desc)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", "Categories: <code>egg, stock, gear, cosmetic, event, all</code>")
	return strings.Join(lines, "\n")
}

func helpNodeHTML(cur *cmdNode, full []string) string {
	lines := []string{"<b>Help</b> <code>/" + html.EscapeString(strings.Join(full, " ")) + "</code>"}

	if c := cur.cmd; c != nil {
		if d := strings.TrimSpace(c.Description); d != "" {
			lines = append(lines, html.EscapeString(d))
		}
		if c.Access == AccessOwnerOnly {
			lines = append(lines, ownerLock+"<i>owner only</i>")
		}
		if u := strings.TrimSpace(c.Usage); u != "" {
			lines = append(lines, "", "<b>Usage</b>", "<code>"+html.EscapeString(u)+"</code>")
		}
		if short := buildShortcuts(*c); len(short) > 0 {
			lines = append(lines, "", "<b>Also</b>")
			for _, s := range short {
				lines = append(lines, "• <code>/"+html.EscapeString(s)+"</code>")
			}
		}
	}

	if len(cur.children) > 0 {
		lines = append(lines, "", "<b>Subcommands</b>")
		for _, name := range cur.childNames() {
			n, _ := cur.child(name)
			line := "• "
			if nodeIsOwnerOnly(n) {
				line += ownerLock
			}
			line += "<code>/" + html.EscapeString(strings.Join(append(append([]string(nil), full...), name), " ")) + "</code>"
			if d := summarizeNodeDesc(n); d != "" {
				line += ": " + html.EscapeString(d)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func summarizeNodeDesc(n *cmdNode) string {
	if n.cmd != nil {
		if d := strings.TrimSpace(n.cmd.Description); d != "" {
			return d
		}
	}
	kids := n.childNames()
	if len(kids) == 0 {
		return ""
	}
	shown := kids[:min(3, len(kids))]
	s := strings.Join(shown, ", ")
	if len(kids) > len(shown) {
		s += ", …"
	}
	return "subcommands: " + s
}

// nodeIsOwnerOnly is true for an owner-only leaf, or a group whose every
// descendant is owner-only.
func nodeIsOwnerOnly(n *cmdNode) bool {
	if n.cmd != nil {
		return n.cmd.Access == AccessOwnerOnly
	}
	for _, ch := range n.children {
		if !nodeIsOwnerOnly(ch) {
			return false
		}
	}
	return len(n.children) > 0
}

// buildShortcuts lists the other names a command answers to: its aliases
// and, for grouped commands, the underscore form used by the menu.
func buildShortcuts(c Command) []string {
	seen := map[string]bool{}
	route := splitRoute(c.Route)
	out := make([]string, 0, len(c.Aliases)+1)
	if len(route) > 1 {
		if menu, ok := telegramCommandNameFromRoute(route); ok {
			out = append(out, menu)
			seen[menu] = true
		}
	}
	for _, a := range c.Aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || strings.Contains(a, " ") || seen[a] {
			continue
		}
		out = append(out, a)
		seen[a] = true
	}
	sort.Strings(out)
	return out
}
