package crawler

import (
	"net/url"
	"path"
	"strings"
)

// DefaultSkipExtensions lists file types that are never useful link targets.
var DefaultSkipExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".zip", ".gz", ".mp3", ".mp4", ".css", ".js", ".xml", ".json",
}

// linkFilter rejects discovered URLs by path prefix or file extension.
type linkFilter struct {
	prefixes   []string
	extensions map[string]struct{}
}

func newLinkFilter(excludePaths, skipExtensions []string) *linkFilter {
	f := &linkFilter{extensions: make(map[string]struct{})}
	for _, raw := range excludePaths {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if !strings.HasPrefix(value, "/") {
			value = "/" + value
		}
		f.addPrefix(value)
	}
	for _, raw := range skipExtensions {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		if !strings.HasPrefix(value, ".") {
			value = "." + value
		}
		f.extensions[value] = struct{}{}
	}
	if len(f.prefixes) == 0 && len(f.extensions) == 0 {
		return nil
	}
	return f
}

func (f *linkFilter) addPrefix(prefix string) {
	for _, existing := range f.prefixes {
		if existing == prefix {
			return
		}
	}
	f.prefixes = append(f.prefixes, prefix)
}

// Skip reports whether the normalized URL link should be left out.
func (f *linkFilter) Skip(link string) bool {
	if f == nil {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	p := u.Path
	for _, prefix := range f.prefixes {
		if p == prefix || strings.HasPrefix(p, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	_, skip := f.extensions[strings.ToLower(path.Ext(p))]
	return skip
}
