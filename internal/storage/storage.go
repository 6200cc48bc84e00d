// Package storage defines the blob store used to export generated keyword
// tables and the object naming shared by every backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CSVContentType is attached to exported keyword tables.
const CSVContentType = "text/csv; charset=utf-8"

// Metadata keys attached to exports.
const (
	MetaDomain      = "domain"
	MetaRequestID   = "request-id"
	MetaExportID    = "export-id"
	MetaGeneratedAt = "generated-at"
)

// ErrObjectExists is returned when a backend refuses to overwrite an export.
var ErrObjectExists = errors.New("object already exists")

// Object is one artifact handed to a BlobStore.
type Object struct {
	Path        string
	ContentType string
	// Filename is the download name offered to browsers; empty omits it.
	Filename string
	// Metadata is stored alongside the object where the backend supports it.
	Metadata map[string]string
	Body     io.Reader
}

// Validate checks the fields every backend relies on.
func (o Object) Validate() error {
	if strings.TrimSpace(o.Path) == "" {
		return fmt.Errorf("path is required")
	}
	if o.Body == nil {
		return fmt.Errorf("body is required")
	}
	return nil
}

// ContentDisposition renders an attachment header for Filename.
func (o Object) ContentDisposition() string {
	if o.Filename == "" {
		return ""
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": o.Filename})
}

// BlobStore writes objects without overwriting and returns a URI.
type BlobStore interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// ObjectPath names an export as <prefix>/<yyyy-mm-dd>/<id>.csv using the UTC date.
func ObjectPath(prefix string, at time.Time, id uuid.UUID) string {
	prefix = strings.Trim(prefix, "/")
	name := fmt.Sprintf("%s/%s.csv", at.UTC().Format(time.DateOnly), id)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Export describes a generated keyword table.
type Export struct {
	Prefix    string
	Domain    string
	RequestID string
	At        time.Time
	ID        uuid.UUID
}

// Object builds the CSV object for e around body.
func (e Export) Object(body io.Reader) Object {
	meta := map[string]string{
		MetaExportID:    e.ID.String(),
		MetaGeneratedAt: e.At.UTC().Format(time.RFC3339),
	}
	if e.Domain != "" {
		meta[MetaDomain] = e.Domain
	}
	if e.RequestID != "" {
		meta[MetaRequestID] = e.RequestID
	}
	return Object{
		Path:        ObjectPath(e.Prefix, e.At, e.ID),
		ContentType: CSVContentType,
		Filename:    exportFilename(e.Domain, e.At),
		Metadata:    meta,
		Body:        body,
	}
}

// exportFilename yields keywords-<host>-<yyyy-mm-dd>.csv, or keywords-<date>.csv
// when the domain has no usable host characters.
func exportFilename(domain string, at time.Time) string {
	host := domain
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	host = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, host)
	date := at.UTC().Format(time.DateOnly)
	if host == "" {
		return "keywords-" + date + ".csv"
	}
	return "keywords-" + host + "-" + date + ".csv"
}
