package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkFilter(t *testing.T) {
	t.Parallel()

	f := newLinkFilter([]string{"wp-admin", "/tag/", " ", "/wp-admin"}, []string{"PDF", ".jpg", ""})
	assert.Len(t, f.prefixes, 2)

	tests := map[string]bool{
		"https://x.test/":                   false,
		"https://x.test/blog/post":          false,
		"https://x.test/wp-admin":           true,
		"https://x.test/wp-admin/edit.php":  true,
		"https://x.test/wp-administrator":   false,
		"https://x.test/tag/go":             true,
		"https://x.test/files/report.PDF":   true,
		"https://x.test/img/photo.jpg?w=10": true,
		"https://x.test/page.html":          false,
	}
	for link, want := range tests {
		assert.Equal(t, want, f.Skip(link), link)
	}
}

func TestLinkFilterEmpty(t *testing.T) {
	t.Parallel()

	var f *linkFilter = newLinkFilter(nil, []string{" "})
	assert.Nil(t, f)
	assert.False(t, f.Skip("https://x.test/a.pdf"))
}
