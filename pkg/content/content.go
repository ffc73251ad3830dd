// Package content selects the main content of a fetched web page and turns it
// into a minimal standalone document whose resource references are absolute.
//
// Selection runs an ordered chain of strategies; the first that produces
// content wins:
//
//  1. an explicit CSS selector
//  2. readability extraction (when enabled)
//  3. common content containers (main, article, #content, ...)
//  4. the document body
//
// Script and noscript elements are removed before selection and never appear
// in a Fragment.
package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

// Options configures an Extractor.
type Options struct {
	// Selector is an optional CSS selector naming the content element.
	Selector string
	// Readability enables heuristic extraction before the container list.
	Readability bool
}

// Extractor runs the strategy chain over fetched markup.
type Extractor struct {
	strategies []Strategy
}

// New builds the strategy chain for opts. An invalid selector is an error.
func New(opts Options) (*Extractor, error) {
	var strategies []Strategy
	if sel := strings.TrimSpace(opts.Selector); sel != "" {
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, fmt.Errorf("invalid CSS selector %q: %w", sel, err)
		}
		strategies = append(strategies, NewSelectorStrategy(sel))
	}
	if opts.Readability {
		strategies = append(strategies, NewReadabilityStrategy())
	}
	strategies = append(strategies, NewContainerStrategy(DefaultContainers...), BodyStrategy{})
	return NewWithStrategies(strategies...), nil
}

// NewWithStrategies creates an Extractor running strategies in order.
// BodyStrategy is appended when the chain does not already end with it, so
// extraction always produces content.
func NewWithStrategies(strategies ...Strategy) *Extractor {
	if n := len(strategies); n == 0 {
		strategies = []Strategy{BodyStrategy{}}
	} else if _, ok := strategies[n-1].(BodyStrategy); !ok {
		strategies = append(strategies, BodyStrategy{})
	}
	return &Extractor{strategies: strategies}
}

// Name describes the chain for logging.
func (e *Extractor) Name() string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return "chain(" + strings.Join(names, "->") + ")"
}

// Extract selects the content of markup and wraps it in a Fragment. base is
// the page's address; it is handed to strategies and used as the title when
// the page has none.
func (e *Extractor) Extract(markup, base string) (*Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = base
	}

	stripExecutable(doc.Selection)

	src := &Source{Doc: doc}
	if u, err := url.Parse(base); err == nil {
		src.Base = u
	}

	for _, s := range e.strategies {
		selected, err := s.Select(src)
		if err != nil {
			logger.Debug("content strategy skipped", "strategy", s.Name(), "reason", err)
			continue
		}
		logger.Debug("content strategy matched", "strategy", s.Name(), "size", len(selected))
		return newFragment(title, s.Name(), selected)
	}

	// unreachable while the chain ends with BodyStrategy
	return nil, ErrNoMatch
}

// stripExecutable removes script-bearing elements below sel.
func stripExecutable(sel *goquery.Selection) {
	sel.Find("script, noscript").Remove()
}
