package linker

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// candidate is one matchable keyword together with its originating entry.
type candidate struct {
	entry  Association
	phrase string
	length int
	// Word boundaries are only enforced on edges where the phrase itself
	// begins or ends with a word rune.
	wordStart bool
	wordEnd   bool
}

// Index is the priority-ordered candidate list built from an association
// table. It is immutable once built.
type Index struct {
	candidates []candidate
	byRune     map[rune][]int
}

// NewIndex filters out entries that target excludeURL or have a blank
// keyword, then orders the rest by keyword length (in runes) descending.
// Ties keep table order. The caller's slice is not modified.
func NewIndex(table []Association, excludeURL string) *Index {
	cands := make([]candidate, 0, len(table))
	for _, entry := range table {
		if excludeURL != "" && entry.URL == excludeURL {
			continue
		}
		phrase := strings.TrimSpace(entry.Keyword)
		if phrase == "" || entry.URL == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(phrase)
		last, _ := utf8.DecodeLastRuneInString(phrase)
		cands = append(cands, candidate{
			entry:     entry,
			phrase:    phrase,
			length:    utf8.RuneCountInString(phrase),
			wordStart: isWordRune(first),
			wordEnd:   isWordRune(last),
		})
	}
	sortCandidates(cands)

	byRune := make(map[rune][]int, len(cands))
	for i, c := range cands {
		first, _ := utf8.DecodeRuneInString(c.phrase)
		key := foldKey(first)
		byRune[key] = append(byRune[key], i)
	}
	return &Index{candidates: cands, byRune: byRune}
}

func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].length > cands[j].length
	})
}

// Len reports the number of usable candidates.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.candidates)
}

// entries returns the candidates' originating entries in priority order.
func (x *Index) entries() []Association {
	if x == nil {
		return nil
	}
	out := make([]Association, len(x.candidates))
	for i, c := range x.candidates {
		out[i] = c.entry
	}
	return out
}

// startingWith returns, in priority order, the candidates whose first rune
// folds to the same value as r.
func (x *Index) startingWith(r rune) []int {
	return x.byRune[foldKey(r)]
}

// isWordRune mirrors the \w class of Unicode-aware regex engines.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// foldKey maps r to the smallest rune of its simple case-folding orbit, so
// two runes are equal under case folding exactly when their keys are equal.
func foldKey(r rune) rune {
	key := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < key {
			key = f
		}
	}
	return key
}

// matchFold reports whether phrase occurs at text[pos:] under simple case
// folding and returns the end offset of the match in text.
func matchFold(text string, pos int, phrase string) (int, bool) {
	i := pos
	for _, want := range phrase {
		if i >= len(text) {
			return 0, false
		}
		got, size := utf8.DecodeRuneInString(text[i:])
		if got != want && foldKey(got) != foldKey(want) {
			return 0, false
		}
		i += size
	}
	return i, true
}
