package router

import (
	"sort"
	"strings"
	"unicode/utf8"

	kit "stockrelay/internal/transport"
)

const (
	menuMaxEntries = 100
	menuNameMax    = 32
	menuDescMax    = 256
	ownerLock      = "🔒 "
)

// sanitizeTelegramCommand maps a route or alias onto Telegram's command
// alphabet [a-z0-9_]{1,32}. Separators collapse into one underscore.
func sanitizeTelegramCommand(s string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			sep = false
		case r == '_' || r == '-' || r == '/' || r == ' ' || r == '\t':
			if b.Len() > 0 && !sep {
				b.WriteByte('_')
				sep = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "cmd_" + out
	}
	if len(out) > menuNameMax {
		out = strings.TrimRight(out[:menuNameMax], "_")
	}
	return out
}

// telegramCommandNameFromRoute gives the underscore form of a route,
// e.g. "relay tick" becomes "relay_tick".
func telegramCommandNameFromRoute(route []string) (string, bool) {
	out := sanitizeTelegramCommand(strings.Join(route, "_"))
	return out, out != ""
}

// buildTelegramMenuCommands lists top-level commands and groups first, then
// one underscore shortcut per grouped command (/relay_tick), since Telegram's
// menu cannot hold spaces.
func buildTelegramMenuCommands(root *cmdNode, leaves []Command) []kit.BotCommand {
	seen := map[string]bool{}
	entry := func(name, desc string, locked bool) (kit.BotCommand, bool) {
		name = sanitizeTelegramCommand(name)
		if name == "" || seen[name] {
			return kit.BotCommand{}, false
		}
		seen[name] = true
		desc = strings.Join(strings.Fields(desc), " ")
		if desc == "" {
			desc = name
		}
		if locked {
			desc = ownerLock + desc
		}
		return kit.BotCommand{Command: name, Description: truncateRunes(desc, menuDescMax)}, true
	}

	var out []kit.BotCommand
	if root != nil {
		for _, name := range root.childNames() {
			n, _ := root.child(name)
			if e, ok := entry(name, summarizeNodeDesc(n), nodeIsOwnerOnly(n)); ok {
				out = append(out, e)
			}
		}
	}

	var shortcuts []kit.BotCommand
	for _, c := range leaves {
		route := splitRoute(c.Route)
		if len(route) < 2 {
			continue
		}
		name, ok := telegramCommandNameFromRoute(route)
		if !ok {
			continue
		}
		if e, ok := entry(name, c.Description, c.Access == AccessOwnerOnly); ok {
			shortcuts = append(shortcuts, e)
		}
	}
	sort.Slice(shortcuts, func(i, j int) bool { return shortcuts[i].Command < shortcuts[j].Command })

	out = append(out, shortcuts...)
	if len(out) > menuMaxEntries {
		out = out[:menuMaxEntries]
	}
	return out
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
