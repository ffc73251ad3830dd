package content

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNoMatch is returned by a strategy that found nothing to select.
var ErrNoMatch = errors.New("no content matched")

// DefaultContainers are the common content containers, in priority order.
var DefaultContainers = []string{
	"main",
	"article",
	"#content",
	".content",
	"#main",
	".post",
	"#root",
}

// Source is the parsed page a strategy selects from. Doc has already had its
// script and noscript elements removed; Base may be nil.
type Source struct {
	Doc  *goquery.Document
	Base *url.URL
}

// Strategy picks the content of a page.
type Strategy interface {
	// Select returns the HTML of the selected content. Any error, including
	// ErrNoMatch, makes the chain move on to the next strategy.
	Select(src *Source) (string, error)

	// Name returns the strategy type for logging.
	Name() string
}

// SelectorStrategy selects the first element matching a CSS selector.
type SelectorStrategy struct {
	selector string
}

// NewSelectorStrategy creates a selector strategy.
func NewSelectorStrategy(selector string) *SelectorStrategy {
	return &SelectorStrategy{selector: selector}
}

// Select returns the outer HTML of the first match.
func (s *SelectorStrategy) Select(src *Source) (string, error) {
	return firstMatch(src.Doc, s.selector)
}

// Name returns the strategy type.
func (s *SelectorStrategy) Name() string {
	return "selector(" + s.selector + ")"
}

// ContainerStrategy tries a list of selectors in order.
type ContainerStrategy struct {
	selectors []string
}

// NewContainerStrategy creates a container strategy over selectors.
func NewContainerStrategy(selectors ...string) *ContainerStrategy {
	return &ContainerStrategy{selectors: selectors}
}

// Select returns the outer HTML of the first selector that matches.
func (s *ContainerStrategy) Select(src *Source) (string, error) {
	for _, sel := range s.selectors {
		if out, err := firstMatch(src.Doc, sel); err == nil {
			return out, nil
		}
	}
	return "", ErrNoMatch
}

// Name returns the strategy type.
func (s *ContainerStrategy) Name() string {
	return "containers"
}

// ReadabilityStrategy extracts the article with go-readability, a port of
// Mozilla's Readability.js.
type ReadabilityStrategy struct {
	parser readability.Parser
}

// NewReadabilityStrategy creates a readability strategy with default tuning.
func NewReadabilityStrategy() *ReadabilityStrategy {
	return &ReadabilityStrategy{parser: readability.NewParser()}
}

// Select runs the readability parser over the script-free document. Parser
// errors, panics and empty articles are reported as errors so the chain
// falls through.
func (s *ReadabilityStrategy) Select(src *Source) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("readability panicked: %v", r)
		}
	}()

	markup, err := src.Doc.Html()
	if err != nil {
		return "", err
	}

	article, err := s.parser.Parse(strings.NewReader(markup), src.Base)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	if article.Node == nil {
		return "", ErrNoMatch
	}

	var buf bytes.Buffer
	if err := article.RenderHTML(&buf); err != nil {
		buf.Reset()
		if err := html.Render(&buf, article.Node); err != nil {
			return "", fmt.Errorf("readability render: %w", err)
		}
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", ErrNoMatch
	}
	return buf.String(), nil
}

// Name returns the strategy type.
func (s *ReadabilityStrategy) Name() string {
	return "readability"
}

// BodyStrategy is the final fallback: the body's content verbatim, or the
// whole document when there is no body element.
type BodyStrategy struct{}

// Select never fails.
func (BodyStrategy) Select(src *Source) (string, error) {
	if body := src.Doc.Find("body").First(); body.Length() > 0 {
		return body.Html()
	}
	return src.Doc.Html()
}

// Name returns the strategy type.
func (BodyStrategy) Name() string {
	return "body"
}

func firstMatch(doc *goquery.Document, selector string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", ErrNoMatch
	}
	return goquery.OuterHtml(sel)
}
