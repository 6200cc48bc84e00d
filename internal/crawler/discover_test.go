package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/": `<a href="/a">A</a><a href="/b#top">B</a><a href="https://other.example/x">X</a>` +
			`<a href="mailto:hi@example.com">mail</a>`,
		"/a":     `<a href="/c?z=1&amp;a=2">C</a><a href="/">home</a>`,
		"/b":     `<a href="/a">A again</a>`,
		"/c":     `<a href="/d">D</a>`,
		"/empty": `<p>no links</p>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscoverDepthLimited(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	c := New(Config{UserAgent: "seo-linker-test"}, zap.NewNop())

	urls, err := c.Discover(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/a",
		srv.URL + "/b",
		srv.URL + "/c?a=2&z=1",
	}, urls)

	shallow, err := c.Discover(context.Background(), srv.URL, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b"}, shallow)
}

func TestDiscoverMaxURLs(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	urls, err := New(Config{MaxURLs: 1}, nil).Discover(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestDiscoverNoURLs(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	_, err := New(Config{}, nil).Discover(context.Background(), srv.URL+"/empty", 2)
	assert.ErrorIs(t, err, ErrNoURLs)
}

func TestDiscoverCanceled(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}, nil).Discover(ctx, srv.URL, 2)
	assert.Error(t, err)
}

func TestSeedURL(t *testing.T) {
	t.Parallel()

	u, err := seedURL(" example.com ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", u.String())

	for _, bad := range []string{"", "ftp://example.com", "http://"} {
		_, err := seedURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://Example.COM:80/Path", "http://example.com/Path"},
		{"https://example.com:443", "https://example.com/"},
		{"https://example.com/a?b=2&a=1#frag", "https://example.com/a?a=1&b=2"},
		{"https://example.com:8443/x", "https://example.com:8443/x"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := NormalizeURL("http://%zz")
	assert.Error(t, err)
}

func TestDiscoverFiltersAndRobots(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"/robots.txt": "User-agent: *\nDisallow: /b\n",
		"/": `<a href="/a">A</a><a href="/b">B</a><a href="/files/report.PDF">report</a>` +
			`<a href="/private/x">private</a>`,
		"/a": `<p>leaf</p>`,
		"/b": `<a href="/hidden">hidden</a>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, body)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	}))
	t.Cleanup(srv.Close)

	open := New(Config{ExcludePaths: []string{"private"}}, nil)
	urls, err := open.Discover(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/hidden"}, urls)

	polite := New(Config{ExcludePaths: []string{"/private"}, RespectRobots: true}, nil)
	urls, err = polite.Discover(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/a"}, urls)

	noExt := New(Config{SkipExtensions: []string{}}, nil)
	urls, err = noExt.Discover(context.Background(), srv.URL, 1)
	require.NoError(t, err)
	assert.Contains(t, urls, srv.URL+"/files/report.PDF")
}
