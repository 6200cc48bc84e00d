package linker

// Association maps a keyword phrase to the URL it should link to.
type Association struct {
	Keyword string `json:"keyword"`
	URL     string `json:"url"`
}

// Usage records one link created during an injection call.
type Usage struct {
	// Keyword is the table keyword as supplied by the caller.
	Keyword string `json:"keyword"`
	// Matched is the text span that was wrapped, in its source casing.
	Matched string `json:"matched"`
	URL     string `json:"url"`
}

// Result is the outcome of an injection call.
type Result struct {
	Text   string  `json:"hyperlinked_text"`
	Usages []Usage `json:"found_keywords"`
}

// SegmentKind tags a Segment as protected or rewritable.
type SegmentKind int

// Segment kinds produced by Partition.
const (
	Rewritable SegmentKind = iota
	Protected
)

func (k SegmentKind) String() string {
	switch k {
	case Rewritable:
		return "rewritable"
	case Protected:
		return "protected"
	default:
		return "unknown"
	}
}

// Segment is a contiguous slice of the input text.
type Segment struct {
	Kind SegmentKind
	Text string
}
