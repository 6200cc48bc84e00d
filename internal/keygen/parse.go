package keygen

import (
	"strings"
	"unicode"

	"github.com/JakeFAU/seo-linker/internal/linker"
)

// ParseReply extracts "keyword, url" pairs from a completion. Each line that
// contains a comma is split at its first comma; list markers before the
// keyword are dropped, as are pairs with an empty side.
func ParseReply(reply string) []linker.Association {
	var out []linker.Association
	for _, line := range strings.Split(reply, "\n") {
		kw, u, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		kw = stripListMarker(strings.TrimSpace(kw))
		u = strings.TrimSpace(u)
		if kw == "" || u == "" {
			continue
		}
		out = append(out, linker.Association{Keyword: kw, URL: u})
	}
	return out
}

// stripListMarker removes "-", "*", "•" bullets and "1." / "2)" numbering.
func stripListMarker(s string) string {
	switch {
	case strings.HasPrefix(s, "- "), strings.HasPrefix(s, "* "):
		return strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "• "):
		return strings.TrimSpace(strings.TrimPrefix(s, "• "))
	}
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits+1 >= len(s) {
		return s
	}
	if (s[digits] == '.' || s[digits] == ')') && unicode.IsSpace(rune(s[digits+1])) {
		return strings.TrimSpace(s[digits+1:])
	}
	return s
}
