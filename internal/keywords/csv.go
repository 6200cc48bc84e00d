package keywords

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/linker"
)

// CSVSource reads the table from a CSV file with Keyword and URL columns.
type CSVSource struct {
	Path   string
	Logger *zap.Logger
}

// NewCSVSource builds a CSVSource for path.
func NewCSVSource(path string, logger *zap.Logger) *CSVSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSource{Path: path, Logger: logger}
}

// Load reads and validates the file.
func (s *CSVSource) Load(_ context.Context) ([]linker.Association, error) {
	// #nosec G304 -- path comes from operator configuration.
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open keyword csv: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	table, skipped, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	if skipped > 0 {
		s.Logger.Warn("skipped incomplete keyword rows",
			zap.String("path", s.Path),
			zap.Int("skipped", skipped),
		)
	}
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}
	return table, nil
}

// Decode parses CSV rows into associations. Rows with a blank keyword or URL
// are skipped and counted; extra columns are ignored.
func Decode(r io.Reader) ([]linker.Association, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, ErrMissingColumns
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	kwCol, urlCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case KeywordColumn:
			kwCol = i
		case URLColumn:
			urlCol = i
		}
	}
	if kwCol < 0 || urlCol < 0 {
		return nil, 0, ErrMissingColumns
	}

	var (
		table   []linker.Association
		skipped int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}
		if kwCol >= len(record) || urlCol >= len(record) {
			skipped++
			continue
		}
		kw := strings.TrimSpace(record[kwCol])
		u := strings.TrimSpace(record[urlCol])
		if kw == "" || u == "" {
			skipped++
			continue
		}
		table = append(table, linker.Association{Keyword: kw, URL: u})
	}
	return table, skipped, nil
}

// Encode writes the table as CSV with a Keyword,URL header.
func Encode(w io.Writer, table []linker.Association) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{KeywordColumn, URLColumn}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range table {
		if err := writer.Write([]string{a.Keyword, a.URL}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
