package keywords

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/metrics"
)

// Table holds the currently loaded associations. Readers receive snapshots
// that are never mutated afterwards, so they may be shared across requests.
type Table struct {
	source Source
	logger *zap.Logger
	reload singleflight.Group

	mu      sync.RWMutex
	entries []linker.Association
	loaded  bool
}

// NewTable builds an empty Table backed by source.
func NewTable(source Source, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{source: source, logger: logger}
}

// Reload replaces the held entries with a fresh load from the source. On
// failure the previous entries stay in place. Concurrent calls share one load.
func (t *Table) Reload(ctx context.Context) (int, error) {
	if t.source == nil {
		return 0, fmt.Errorf("no keyword source configured")
	}
	n, err, _ := t.reload.Do("reload", func() (any, error) {
		entries, err := t.source.Load(ctx)
		if err != nil {
			return 0, fmt.Errorf("load keyword table: %w", err)
		}
		t.Replace(entries)
		return len(entries), nil
	})
	return n.(int), err
}

// Replace swaps in a copy of entries.
func (t *Table) Replace(entries []linker.Association) {
	cp := make([]linker.Association, len(entries))
	copy(cp, entries)
	if dups := Duplicates(cp); len(dups) > 0 {
		t.logger.Info("keyword table has repeated keywords",
			zap.Strings("keywords", dups),
		)
	}

	t.mu.Lock()
	t.entries = cp
	t.loaded = true
	t.mu.Unlock()
	metrics.SetKeywordTableEntries(len(cp))
	t.logger.Info("keyword table loaded", zap.Int("entries", len(cp)))
}

// Snapshot returns the current entries. The slice must not be modified.
func (t *Table) Snapshot() []linker.Association {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries
}

// Loaded reports whether a load has succeeded at least once.
func (t *Table) Loaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

// Duplicates returns keywords that occur more than once under Unicode case
// folding, in first-seen order.
func Duplicates(entries []linker.Association) []string {
	fold := cases.Fold()
	seen := make(map[string]int, len(entries))
	var dups []string
	for _, e := range entries {
		key := fold.String(e.Keyword)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, e.Keyword)
		}
	}
	return dups
}
