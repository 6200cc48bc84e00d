package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if httpRequestsTotal == nil || linksInjectedTotal == nil || llmRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveInjection(t *testing.T) {
	Init()
	beforeLinks := testutil.ToFloat64(linksInjectedTotal)
	beforeEmpty := testutil.ToFloat64(injectionsTotal.WithLabelValues("false"))

	ObserveInjection(3)
	ObserveInjection(0)

	if got := testutil.ToFloat64(linksInjectedTotal) - beforeLinks; got != 3 {
		t.Errorf("expected 3 links recorded, got %f", got)
	}
	if got := testutil.ToFloat64(injectionsTotal.WithLabelValues("false")) - beforeEmpty; got != 1 {
		t.Errorf("expected 1 empty injection, got %f", got)
	}
}

func TestObserveLLM(t *testing.T) {
	ObserveLLM("openai", nil)
	ObserveLLM("openai", errors.New("boom"))

	if val := testutil.ToFloat64(llmRequestsTotal.WithLabelValues("openai", "error")); val < 1 {
		t.Errorf("expected an error outcome to be recorded, got %f", val)
	}
	SetKeywordTableEntries(7)
	if val := testutil.ToFloat64(keywordTableEntries); val != 7 {
		t.Errorf("expected table gauge 7, got %f", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}

func TestObserveLicense(t *testing.T) {
	Init()
	before := testutil.ToFloat64(licenseChecksTotal.WithLabelValues("validate_key", "rejected"))

	ObserveLicense("validate_key", false)
	ObserveLicense("validate_key", true)

	if got := testutil.ToFloat64(licenseChecksTotal.WithLabelValues("validate_key", "rejected")) - before; got != 1 {
		t.Errorf("expected 1 rejected key, got %f", got)
	}
}
