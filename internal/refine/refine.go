// Package refine asks a language model to smooth the prose around injected
// links and verifies that the rewrite kept every link target.
package refine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/llm"
)

// ErrLinksChanged is returned when the rewritten text links to a different
// set of targets than its input.
var ErrLinksChanged = errors.New("refined text changed the link targets")

const systemPrompt = "You are an SEO editor. You improve the wording around existing hyperlinks " +
	"so that the anchors read naturally. Keep every <a href> element and its href exactly as given, " +
	"do not add or remove links, keep the language of the text and return only the revised text."

// Refiner rewrites hyperlinked text.
type Refiner struct {
	completer   llm.Completer
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// New builds a Refiner. maxTokens of zero lets the provider decide.
func New(completer llm.Completer, maxTokens int, temperature float64, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{completer: completer, maxTokens: maxTokens, temperature: temperature, logger: logger}
}

// Refine returns the model's rewrite of text. usages describes the links that
// were injected and is passed to the model as context.
func (r *Refiner) Refine(ctx context.Context, text string, usages []linker.Usage) (string, error) {
	if r.completer == nil {
		return "", fmt.Errorf("no llm provider configured")
	}
	if len(usages) == 0 {
		return text, nil
	}
	want, err := HrefTargets(text)
	if err != nil {
		return "", err
	}

	out, err := r.completer.Complete(ctx, llm.Prompt{
		System:      systemPrompt,
		User:        buildPrompt(text, usages),
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("refine text: %w", err)
	}
	out = stripFence(out)

	got, err := HrefTargets(out)
	if err != nil {
		return "", err
	}
	if !slices.Equal(want, got) {
		r.logger.Warn("refined text dropped or altered links",
			zap.Strings("want", want),
			zap.Strings("got", got),
		)
		return "", ErrLinksChanged
	}
	return out, nil
}

func buildPrompt(text string, usages []linker.Usage) string {
	var b strings.Builder
	b.WriteString("The following links were inserted automatically:\n")
	for _, u := range usages {
		fmt.Fprintf(&b, "- %q -> %s\n", u.Matched, u.URL)
	}
	b.WriteString("\nRevise this text:\n\n")
	b.WriteString(text)
	return b.String()
}

// stripFence removes a surrounding markdown code fence some models add.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " <") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

// HrefTargets returns the href of every <a> start tag in text, sorted, with
// repeats kept.
func HrefTargets(text string) ([]string, error) {
	z := html.NewTokenizer(strings.NewReader(text))
	var hrefs []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("tokenize html: %w", err)
			}
			slices.Sort(hrefs)
			return hrefs, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					hrefs = append(hrefs, string(val))
					break
				}
				if !more {
					break
				}
			}
		}
	}
}
