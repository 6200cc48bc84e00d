// Package linker rewrites a block of text so that recognized keyword phrases
// become hyperlinks to their associated URLs.
//
// The engine works in four steps:
//   - Partition splits the text into protected regions (headings and existing
//     anchors) and rewritable regions. The segments tile the input exactly.
//   - NewIndex filters the association table (excluded URL, blank keywords)
//     and orders it longest keyword first, keeping table order on ties.
//   - Inject scans each rewritable region left to right. At every position the
//     first candidate that matches on word boundaries, whose keyword has not
//     been linked yet, and whose URL is still below the per-target cap wins.
//   - The rewritten segments and the usage log are concatenated in document
//     order.
//
// All state lives inside a single call. An Index is immutable once built and
// may be shared between goroutines.
package linker
