package util

import "unicode/utf8"

// Truncate cuts s to at most max bytes on a rune boundary and appends "…" when
// something was dropped.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
