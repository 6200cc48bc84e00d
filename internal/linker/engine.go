package linker

import (
	"html"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
)

// DefaultPerTargetCap is the number of links a single URL may receive in one
// document unless overridden with WithPerTargetCap.
const DefaultPerTargetCap = 2

// Engine injects hyperlinks into text. The zero value is not usable; build
// one with New. An Engine holds only configuration and is safe for
// concurrent use.
type Engine struct {
	perTargetCap int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPerTargetCap sets how many links may point at the same URL. Values
// below 1 are ignored.
func WithPerTargetCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.perTargetCap = n
		}
	}
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{perTargetCap: DefaultPerTargetCap}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PerTargetCap reports the configured per-URL link limit.
func (e *Engine) PerTargetCap() int {
	return e.perTargetCap
}

// Inject wraps keyword occurrences in text as links to their table URLs.
// Entries targeting excludeURL are never used.
func (e *Engine) Inject(text string, table []Association, excludeURL string) Result {
	return e.InjectIndex(text, NewIndex(table, excludeURL))
}

// InjectIndex is Inject with a prebuilt index.
func (e *Engine) InjectIndex(text string, idx *Index) Result {
	res := Result{Text: text, Usages: []Usage{}}
	if text == "" || idx.Len() == 0 {
		return res
	}

	st := &scanState{
		idx:    idx,
		limit:  e.perTargetCap,
		used:   make(map[string]struct{}),
		hits:   make(map[string]int),
		fold:   cases.Fold(),
		usages: []Usage{},
	}
	var out strings.Builder
	out.Grow(len(text) + len(text)/4)
	for _, seg := range Partition(text) {
		if seg.Kind == Protected {
			out.WriteString(seg.Text)
			continue
		}
		st.rewrite(&out, seg.Text)
	}
	res.Text = out.String()
	res.Usages = st.usages
	return res
}

// scanState is the per-call bookkeeping: keywords already linked, links per
// URL, and the usage log in discovery order.
type scanState struct {
	idx    *Index
	limit  int
	used   map[string]struct{}
	hits   map[string]int
	fold   cases.Caser
	usages []Usage
}

func (st *scanState) rewrite(out *strings.Builder, seg string) {
	prevWord := false
	for i := 0; i < len(seg); {
		if n := markupLen(seg[i:]); n > 0 {
			out.WriteString(seg[i : i+n])
			i += n
			prevWord = false
			continue
		}
		if c, end, ok := st.accept(seg, i, prevWord); ok {
			matched := seg[i:end]
			st.record(c, matched)
			out.WriteString(`<a href="`)
			out.WriteString(html.EscapeString(c.entry.URL))
			out.WriteString(`">`)
			out.WriteString(matched)
			out.WriteString(`</a>`)
			last, _ := utf8.DecodeLastRuneInString(matched)
			prevWord = isWordRune(last)
			i = end
			continue
		}
		r, size := utf8.DecodeRuneInString(seg[i:])
		out.WriteString(seg[i : i+size])
		prevWord = isWordRune(r)
		i += size
	}
}

// accept returns the highest-priority candidate that can be linked at pos.
func (st *scanState) accept(seg string, pos int, prevWord bool) (candidate, int, bool) {
	r, _ := utf8.DecodeRuneInString(seg[pos:])
	for _, ci := range st.idx.startingWith(r) {
		c := st.idx.candidates[ci]
		if c.wordStart && prevWord {
			continue
		}
		end, ok := matchFold(seg, pos, c.phrase)
		if !ok {
			continue
		}
		if c.wordEnd && end < len(seg) {
			next, _ := utf8.DecodeRuneInString(seg[end:])
			if isWordRune(next) {
				continue
			}
		}
		if _, done := st.used[st.key(seg[pos:end])]; done {
			continue
		}
		if st.hits[c.entry.URL] >= st.limit {
			continue
		}
		return c, end, true
	}
	return candidate{}, 0, false
}

func (st *scanState) record(c candidate, matched string) {
	st.used[st.key(matched)] = struct{}{}
	st.hits[c.entry.URL]++
	st.usages = append(st.usages, Usage{
		Keyword: c.entry.Keyword,
		Matched: matched,
		URL:     c.entry.URL,
	})
}

func (st *scanState) key(s string) string {
	st.fold.Reset()
	return st.fold.String(s)
}

// markupLen returns the length of a tag (<...>) or character reference
// (&...;) at the start of s, or 0. Markup is copied through untouched so that
// attribute values and entity names never match a keyword. A tag only counts
// when its element and attribute names are known HTML names, so prose such
// as "a<b then c > d" stays text.
func markupLen(s string) int {
	if len(s) < 3 {
		return 0
	}
	switch s[0] {
	case '<':
		switch s[1] {
		case '!', '?':
			if i := strings.IndexAny(s[1:], "<>"); i >= 0 && s[1+i] == '>' {
				return i + 2
			}
			return 0
		case '/':
			return closeTagLen(s)
		}
		return openTagLen(s)
	case '&':
		for i := 1; i < len(s) && i <= 32; i++ {
			c := s[i]
			switch {
			case c == ';':
				if i == 1 {
					return 0
				}
				return i + 1
			case c == '#' && i == 1, isASCIILetter(c), c >= '0' && c <= '9':
			default:
				return 0
			}
		}
	}
	return 0
}

// closeTagLen matches </name> with optional whitespace before '>'.
func closeTagLen(s string) int {
	name, i := scanName(s, 2)
	if !isHTMLName(name) {
		return 0
	}
	i = skipSpace(s, i)
	if i < len(s) && s[i] == '>' {
		return i + 1
	}
	return 0
}

// openTagLen matches <name attr attr=value attr="value" /> where every
// attribute name is a known HTML attribute or a data-/aria- attribute.
func openTagLen(s string) int {
	name, i := scanName(s, 1)
	if !isHTMLName(name) {
		return 0
	}
	for {
		j := skipSpace(s, i)
		if j >= len(s) {
			return 0
		}
		switch {
		case s[j] == '>':
			return j + 1
		case strings.HasPrefix(s[j:], "/>"):
			return j + 2
		case j == i:
			// attributes must be separated from the name and each other
			return 0
		}
		attr, k := scanName(s, j)
		if !isAttribute(attr) {
			return 0
		}
		if m := skipSpace(s, k); m < len(s) && s[m] == '=' {
			k = skipSpace(s, m+1)
			if k >= len(s) {
				return 0
			}
			switch q := s[k]; q {
			case '"', '\'':
				end := strings.IndexByte(s[k+1:], q)
				if end < 0 {
					return 0
				}
				k += end + 2
			default:
				start := k
				for k < len(s) && !isSpace(s[k]) && s[k] != '>' && s[k] != '<' {
					k++
				}
				if k == start {
					return 0
				}
			}
		}
		i = k
	}
}

func scanName(s string, i int) (string, int) {
	start := i
	for i < len(s) && (isASCIILetter(s[i]) || (i > start && (s[i] == '-' || (s[i] >= '0' && s[i] <= '9')))) {
		i++
	}
	return s[start:i], i
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isHTMLName(name string) bool {
	return name != "" && atom.Lookup([]byte(strings.ToLower(name))) != 0
}

func isAttribute(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "data-") || strings.HasPrefix(lower, "aria-") {
		return len(lower) > 5
	}
	return isHTMLName(lower)
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
