// Package crawler discovers the pages of a site so keywords can be generated
// for them. It follows same-host anchors breadth-first up to a depth limit
// using colly and reports normalized, de-duplicated URLs.
package crawler
