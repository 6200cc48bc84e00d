// Package keywords loads and holds the keyword/URL association table the
// linker consumes.
package keywords

import (
	"context"
	"errors"

	"github.com/JakeFAU/seo-linker/internal/linker"
)

var (
	// ErrMissingColumns is returned when a CSV header lacks Keyword or URL.
	ErrMissingColumns = errors.New("csv must contain 'Keyword' and 'URL' columns")
	// ErrEmptyTable is returned when a source yields no usable rows.
	ErrEmptyTable = errors.New("keyword table is empty")
)

// Source loads an association table.
type Source interface {
	Load(ctx context.Context) ([]linker.Association, error)
}

// Column headers used by the CSV format.
const (
	KeywordColumn = "Keyword"
	URLColumn     = "URL"
)
