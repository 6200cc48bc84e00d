package linker

import (
	"fmt"
	"regexp"
	"strings"
)

// protectedPattern matches heading spans <h1>..</h1> through <h6>..</h6> and
// existing anchors. RE2 has no backreferences, so every tag gets its own
// alternative and the closing tag always pairs with the opening one.
var protectedPattern = regexp.MustCompile(buildProtectedPattern())

func buildProtectedPattern() string {
	tags := []string{"a"}
	for level := 1; level <= 6; level++ {
		tags = append(tags, fmt.Sprintf("h%d", level))
	}
	alts := make([]string, 0, len(tags))
	for _, tag := range tags {
		alts = append(alts, fmt.Sprintf(`<%[1]s(?:\s[^>]*)?>.*?</%[1]s\s*>`, tag))
	}
	return `(?is)` + strings.Join(alts, "|")
}

// Partition splits text into protected and rewritable segments. Concatenating
// the Text of every returned segment reproduces the input exactly. A heading
// without a closing tag is left as rewritable text.
func Partition(text string) []Segment {
	if text == "" {
		return nil
	}
	matches := protectedPattern.FindAllStringIndex(text, -1)
	segments := make([]Segment, 0, 2*len(matches)+1)
	cursor := 0
	for _, m := range matches {
		if m[0] > cursor {
			segments = append(segments, Segment{Kind: Rewritable, Text: text[cursor:m[0]]})
		}
		segments = append(segments, Segment{Kind: Protected, Text: text[m[0]:m[1]]})
		cursor = m[1]
	}
	if cursor < len(text) {
		segments = append(segments, Segment{Kind: Rewritable, Text: text[cursor:]})
	}
	return segments
}
