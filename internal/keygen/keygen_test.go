package keygen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/llm"
)

// echoCompleter answers with one "kw-<url>, <url>" line per URL in the prompt.
type echoCompleter struct {
	mu      sync.Mutex
	prompts []llm.Prompt
	fail    func(p llm.Prompt) error
	active  atomic.Int32
	peak    atomic.Int32
}

func (e *echoCompleter) Complete(_ context.Context, p llm.Prompt) (string, error) {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		old := e.peak.Load()
		if n <= old || e.peak.CompareAndSwap(old, n) {
			break
		}
	}

	e.mu.Lock()
	e.prompts = append(e.prompts, p)
	e.mu.Unlock()
	if e.fail != nil {
		if err := e.fail(p); err != nil {
			return "", err
		}
	}
	_, list, _ := strings.Cut(p.User, "for these urls:\n")
	var b strings.Builder
	for _, u := range strings.Fields(list) {
		fmt.Fprintf(&b, "kw-%s, %s\n", strings.TrimPrefix(u, "/"), u)
	}
	return b.String(), nil
}

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/p%02d", i)
	}
	return out
}

func TestGenerateBatchesInOrder(t *testing.T) {
	t.Parallel()

	comp := &echoCompleter{}
	gen := New(comp, Config{BatchSize: 10, Concurrency: 3}, nil)

	got, err := gen.Generate(context.Background(), urls(25))
	require.NoError(t, err)
	require.Len(t, got, 25)
	for i, a := range got {
		u := fmt.Sprintf("/p%02d", i)
		assert.Equal(t, linker.Association{Keyword: "kw-" + u[1:], URL: u}, a)
	}

	require.Len(t, comp.prompts, 3)
	for _, p := range comp.prompts {
		assert.Equal(t, systemPrompt, p.System)
		assert.Equal(t, 150, p.MaxTokens)
		assert.Contains(t, p.User, "in German.")
	}
	assert.LessOrEqual(t, comp.peak.Load(), int32(3))
}

func TestGenerateSkipsFailedBatch(t *testing.T) {
	t.Parallel()

	comp := &echoCompleter{fail: func(p llm.Prompt) error {
		if strings.Contains(p.User, "/p00\n") {
			return errors.New("rate limited")
		}
		return nil
	}}
	gen := New(comp, Config{BatchSize: 2, Concurrency: 1}, nil)

	got, err := gen.Generate(context.Background(), urls(4))
	require.NoError(t, err)
	assert.Equal(t, []linker.Association{
		{Keyword: "kw-p02", URL: "/p02"},
		{Keyword: "kw-p03", URL: "/p03"},
	}, got)
}

func TestGenerateCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&echoCompleter{}, Config{}, nil).Generate(ctx, urls(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateWithoutCompleter(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{}, nil).Generate(context.Background(), urls(1))
	assert.Error(t, err)
}

func TestBatches(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Batches(nil, 10))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, Batches([]string{"a", "b", "c"}, 2))
	assert.Len(t, Batches(urls(3), 0), 3)
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	p := BuildPrompt([]string{"https://x.test/a", "https://x.test/b"}, "English")
	assert.True(t, strings.HasPrefix(p, "For each URL below given, generate exactly 2 double-word keywords and 2 single-word keywords in English.\n\n"))
	assert.True(t, strings.HasSuffix(p, "for these urls:\nhttps://x.test/a\nhttps://x.test/b\n"))
}
