package adapter

import (
	"strings"
	"unicode/utf16"
)

// telegramTextLimit stays under Telegram's 4096 limit, which is counted in
// UTF-16 code units.
const telegramTextLimit = 4000

// splitTelegramText cuts s into chunks of at most limit UTF-16 code units.
// Cuts land on a newline when one sits in the last two thirds of the window,
// and never inside an open HTML tag when parseMode is HTML.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	// units[i] is the UTF-16 length of rs[:i].
	units := make([]int, len(rs)+1)
	for i, r := range rs {
		units[i+1] = units[i] + utf16Len(r)
	}
	if units[len(rs)] <= limit {
		return []string{s}
	}
	html := strings.EqualFold(parseMode, "HTML")

	var out []string
	for start := 0; start < len(rs); {
		end := start + 1
		for end < len(rs) && units[end+1]-units[start] <= limit {
			end++
		}
		if end < len(rs) {
			end = newlineCut(rs, units, start, end, limit)
			if html {
				end = tagCut(rs, start, end)
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func newlineCut(rs []rune, units []int, start, end, limit int) int {
	for i := end - 1; units[i]-units[start] >= limit/3; i-- {
		if rs[i] == '\n' {
			return i + 1
		}
	}
	return end
}

func tagCut(rs []rune, start, end int) int {
	lastOpen, lastClose := -1, -1
	for i := start; i < end; i++ {
		switch rs[i] {
		case '<':
			lastOpen = i
		case '>':
			lastClose = i
		}
	}
	if lastOpen > lastClose && lastOpen > start+1 {
		return lastOpen
	}
	return end
}
