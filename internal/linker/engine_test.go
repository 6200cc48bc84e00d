package linker

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		table      []Association
		text       string
		exclude    string
		wantText   string
		wantUsages []Usage
	}{
		{
			name: "longest phrase wins",
			table: []Association{
				{Keyword: "migration", URL: "/b"},
				{Keyword: "data migration", URL: "/a"},
			},
			text:     "We discuss data migration strategies.",
			wantText: `We discuss <a href="/a">data migration</a> strategies.`,
			wantUsages: []Usage{
				{Keyword: "data migration", Matched: "data migration", URL: "/a"},
			},
		},
		{
			name:     "heading is protected",
			table:    []Association{{Keyword: "cloud", URL: "/x"}},
			text:     "<h1>Cloud Strategy</h1><p>Our cloud platform.</p>",
			wantText: `<h1>Cloud Strategy</h1><p>Our <a href="/x">cloud</a> platform.</p>`,
			wantUsages: []Usage{
				{Keyword: "cloud", Matched: "cloud", URL: "/x"},
			},
		},
		{
			name:     "keyword linked once",
			table:    []Association{{Keyword: "api", URL: "/docs"}},
			text:     "api api api",
			wantText: `<a href="/docs">api</a> api api`,
			wantUsages: []Usage{
				{Keyword: "api", Matched: "api", URL: "/docs"},
			},
		},
		{
			name: "per target cap",
			table: []Association{
				{Keyword: "plans", URL: "/pricing"},
				{Keyword: "cost", URL: "/pricing"},
				{Keyword: "price", URL: "/pricing"},
			},
			text:     "See plans, cost and price.",
			wantText: `See <a href="/pricing">plans</a>, <a href="/pricing">cost</a> and price.`,
			wantUsages: []Usage{
				{Keyword: "plans", Matched: "plans", URL: "/pricing"},
				{Keyword: "cost", Matched: "cost", URL: "/pricing"},
			},
		},
		{
			name:       "excluded url",
			table:      []Association{{Keyword: "contact", URL: "/contact"}},
			text:       "Contact us",
			exclude:    "/contact",
			wantText:   "Contact us",
			wantUsages: []Usage{},
		},
		{
			name:       "empty table",
			text:       "Nothing to link here.",
			wantText:   "Nothing to link here.",
			wantUsages: []Usage{},
		},
		{
			name:       "empty text",
			table:      []Association{{Keyword: "api", URL: "/docs"}},
			wantText:   "",
			wantUsages: []Usage{},
		},
		{
			name:       "whole words only",
			table:      []Association{{Keyword: "cat", URL: "/cats"}},
			text:       "Pick a category, concatenate.",
			wantText:   "Pick a category, concatenate.",
			wantUsages: []Usage{},
		},
		{
			name:     "source casing preserved",
			table:    []Association{{Keyword: "Cloud Hosting", URL: "/hosting"}},
			text:     "CLOUD HOSTING made simple",
			wantText: `<a href="/hosting">CLOUD HOSTING</a> made simple`,
			wantUsages: []Usage{
				{Keyword: "Cloud Hosting", Matched: "CLOUD HOSTING", URL: "/hosting"},
			},
		},
		{
			name:     "once per keyword across casing",
			table:    []Association{{Keyword: "api", URL: "/docs"}},
			text:     "API and api",
			wantText: `<a href="/docs">API</a> and api`,
			wantUsages: []Usage{
				{Keyword: "api", Matched: "API", URL: "/docs"},
			},
		},
		{
			name: "spent keyword is not relinked to another url",
			table: []Association{
				{Keyword: "api", URL: "/docs"},
				{Keyword: "API", URL: "/reference"},
			},
			text:     "api then API",
			wantText: `<a href="/docs">api</a> then API`,
			wantUsages: []Usage{
				{Keyword: "api", Matched: "api", URL: "/docs"},
			},
		},
		{
			name: "shorter keyword inside spent phrase may still match",
			table: []Association{
				{Keyword: "data migration", URL: "/a"},
				{Keyword: "migration", URL: "/b"},
			},
			text:     "data migration, again data migration",
			wantText: `<a href="/a">data migration</a>, again data <a href="/b">migration</a>`,
			wantUsages: []Usage{
				{Keyword: "data migration", Matched: "data migration", URL: "/a"},
				{Keyword: "migration", Matched: "migration", URL: "/b"},
			},
		},
		{
			name:     "existing anchor untouched",
			table:    []Association{{Keyword: "docs", URL: "/docs"}},
			text:     `<a href="/old">docs</a> and docs`,
			wantText: `<a href="/old">docs</a> and <a href="/docs">docs</a>`,
			wantUsages: []Usage{
				{Keyword: "docs", Matched: "docs", URL: "/docs"},
			},
		},
		{
			name:     "attributes never match",
			table:    []Association{{Keyword: "lead", URL: "/lead"}},
			text:     `<p class="lead">A lead form</p>`,
			wantText: `<p class="lead">A <a href="/lead">lead</a> form</p>`,
			wantUsages: []Usage{
				{Keyword: "lead", Matched: "lead", URL: "/lead"},
			},
		},
		{
			name:       "no match leaves empty usages",
			table:      []Association{{Keyword: "cloud", URL: "/x"}},
			text:       "nothing here",
			wantText:   "nothing here",
			wantUsages: []Usage{},
		},
		{
			name:     "comparison in prose is not a tag",
			table:    []Association{{Keyword: "cloud", URL: "/x"}},
			text:     "if a<b then cloud > c",
			wantText: `if a<b then <a href="/x">cloud</a> > c`,
			wantUsages: []Usage{
				{Keyword: "cloud", Matched: "cloud", URL: "/x"},
			},
		},
		{
			name:     "boolean and data attributes stay markup",
			table:    []Association{{Keyword: "checked", URL: "/c"}},
			text:     `<input type=checkbox checked data-cloud="checked"> checked`,
			wantText: `<input type=checkbox checked data-cloud="checked"> <a href="/c">checked</a>`,
			wantUsages: []Usage{
				{Keyword: "checked", Matched: "checked", URL: "/c"},
			},
		},
		{
			name:       "entities never match",
			table:      []Association{{Keyword: "amp", URL: "/amp"}},
			text:       "R&amp;D",
			wantText:   "R&amp;D",
			wantUsages: []Usage{},
		},
		{
			name:       "unterminated heading is rewritable",
			table:      []Association{{Keyword: "guide", URL: "/guide"}},
			text:       "<h2>Setup guide",
			wantText:   `<h2>Setup <a href="/guide">guide</a>`,
			wantUsages: []Usage{{Keyword: "guide", Matched: "guide", URL: "/guide"}},
		},
		{
			name:       "blank keyword ignored",
			table:      []Association{{Keyword: "  ", URL: "/all"}, {Keyword: "", URL: "/none"}},
			text:       "Every word stays plain.",
			wantText:   "Every word stays plain.",
			wantUsages: []Usage{},
		},
		{
			name:     "unicode word boundaries",
			table:    []Association{{Keyword: "straße", URL: "/strasse"}},
			text:     "Hauptstraße und STRASSE und Straße",
			wantText: `Hauptstraße und STRASSE und <a href="/strasse">Straße</a>`,
			wantUsages: []Usage{
				{Keyword: "straße", Matched: "Straße", URL: "/strasse"},
			},
		},
		{
			name:     "url is escaped",
			table:    []Association{{Keyword: "search", URL: `/s?q=a&b="c"`}},
			text:     "search",
			wantText: `<a href="/s?q=a&amp;b=&#34;c&#34;">search</a>`,
			wantUsages: []Usage{
				{Keyword: "search", Matched: "search", URL: `/s?q=a&b="c"`},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := New().Inject(tt.text, tt.table, tt.exclude)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantUsages, got.Usages)
		})
	}
}

func TestInjectDoesNotMutateTable(t *testing.T) {
	t.Parallel()

	table := []Association{
		{Keyword: "a", URL: "/a"},
		{Keyword: "Bbb", URL: "/b"},
		{Keyword: "cc", URL: "/c"},
	}
	snapshot := append([]Association(nil), table...)

	New().Inject("a Bbb cc", table, "")
	require.Equal(t, snapshot, table)
}

func TestWithPerTargetCap(t *testing.T) {
	t.Parallel()

	table := []Association{
		{Keyword: "one", URL: "/n"},
		{Keyword: "two", URL: "/n"},
		{Keyword: "three", URL: "/n"},
	}
	text := "one two three"

	assert.Len(t, New(WithPerTargetCap(1)).Inject(text, table, "").Usages, 1)
	assert.Len(t, New(WithPerTargetCap(3)).Inject(text, table, "").Usages, 3)
	assert.Equal(t, DefaultPerTargetCap, New(WithPerTargetCap(0)).PerTargetCap())
}

func TestInjectConcurrentCallsShareTable(t *testing.T) {
	t.Parallel()

	table := []Association{
		{Keyword: "go", URL: "/go"},
		{Keyword: "golang tips", URL: "/tips"},
	}
	idx := NewIndex(table, "")
	engine := New()
	want := engine.InjectIndex("golang tips for go", idx)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := engine.InjectIndex("golang tips for go", idx)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

var insertedMarkup = regexp.MustCompile(`<a href="[^"]*">|</a>`)

// checkInvariants asserts the properties every injection result must hold.
func checkInvariants(t *testing.T, text string, table []Association, exclude string, res Result) {
	t.Helper()

	perURL := map[string]int{}
	seen := map[string]bool{}
	for _, u := range res.Usages {
		if exclude != "" && u.URL == exclude {
			t.Fatalf("excluded url %q used", exclude)
		}
		perURL[u.URL]++
		if perURL[u.URL] > DefaultPerTargetCap {
			t.Fatalf("url %q linked %d times", u.URL, perURL[u.URL])
		}
		key := strings.ToLower(u.Matched)
		if seen[key] {
			t.Fatalf("keyword %q linked twice", u.Matched)
		}
		seen[key] = true
	}

	// Inputs that already carry anchor markup cannot be restored by stripping.
	if strings.Contains(text, "<a") || strings.Contains(text, "</a") {
		return
	}
	if stripped := insertedMarkup.ReplaceAllString(res.Text, ""); stripped != text {
		t.Fatalf("stripping links does not restore input:\n got %q\nwant %q", stripped, text)
	}
	for _, seg := range Partition(text) {
		if seg.Kind == Protected && !strings.Contains(res.Text, seg.Text) {
			t.Fatalf("protected segment %q altered", seg.Text)
		}
	}
	if again := New().Inject(text, table, exclude); fmt.Sprint(again) != fmt.Sprint(res) {
		t.Fatalf("non-deterministic result")
	}
}

func TestInjectInvariants(t *testing.T) {
	t.Parallel()

	table := []Association{
		{Keyword: "cloud", URL: "/cloud"},
		{Keyword: "cloud storage", URL: "/storage"},
		{Keyword: "storage", URL: "/storage"},
		{Keyword: "backup", URL: "/storage"},
		{Keyword: "pricing", URL: "/pricing"},
		{Keyword: "Pricing", URL: "/other"},
	}
	texts := []string{
		"Cloud storage, cloud backup and storage pricing. Backup pricing!",
		"<h2>Cloud storage</h2> cloud storage <H3 id=x>pricing</H3> pricing",
		"<h1>unterminated cloud storage backup",
	}
	for _, text := range texts {
		for _, exclude := range []string{"", "/storage", "/cloud"} {
			res := New().Inject(text, table, exclude)
			checkInvariants(t, text, table, exclude, res)
		}
	}
}

func FuzzInject(f *testing.F) {
	f.Add("We discuss data migration strategies.", "/a")
	f.Add("<h1>Cloud</h1> cloud api api", "")
	f.Add("<h3>dangling api migration", "/b")
	table := []Association{
		{Keyword: "data migration", URL: "/a"},
		{Keyword: "migration", URL: "/b"},
		{Keyword: "api", URL: "/a"},
		{Keyword: "cloud", URL: "/c"},
	}
	f.Fuzz(func(t *testing.T, text, exclude string) {
		res := New().Inject(text, table, exclude)
		checkInvariants(t, text, table, exclude, res)
	})
}
