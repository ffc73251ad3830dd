package content

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/yosssi/gohtml"
)

const fragmentShell = `<!DOCTYPE html><html><head><meta charset="utf-8"/><title></title></head><body></body></html>`

// Fragment is a minimal standalone document: an encoding declaration and a
// title in the head, the selected content in the body.
type Fragment struct {
	// Title is the page title, or the base address when the page had none.
	Title string
	// Strategy names the strategy that selected the content.
	Strategy string

	doc *goquery.Document
}

func newFragment(title, strategy, body string) (*Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragmentShell))
	if err != nil {
		return nil, fmt.Errorf("failed to build fragment: %w", err)
	}
	doc.Find("title").SetText(title)
	doc.Find("body").AppendHtml(body)
	stripExecutable(doc.Selection)

	return &Fragment{Title: title, Strategy: strategy, doc: doc}, nil
}

// Document exposes the underlying goquery document.
func (f *Fragment) Document() *goquery.Document {
	return f.doc
}

// Body returns the fragment's body element.
func (f *Fragment) Body() *goquery.Selection {
	return f.doc.Find("body").First()
}

// HTML serializes the whole fragment document.
func (f *Fragment) HTML() (string, error) {
	return f.doc.Html()
}

// StageFormat is the markup format handed to the renderer.
type StageFormat string

const (
	StageHTML     StageFormat = "html"
	StageMarkdown StageFormat = "markdown"
)

// PandocFormat returns the renderer's input format name.
func (s StageFormat) PandocFormat() string {
	if s == StageMarkdown {
		return "gfm"
	}
	return "html"
}

// FileExt returns the extension for a staged file.
func (s StageFormat) FileExt() string {
	if s == StageMarkdown {
		return ".md"
	}
	return ".html"
}

// ParseStageFormat validates a stage format name.
func ParseStageFormat(s string) (StageFormat, error) {
	switch StageFormat(strings.ToLower(strings.TrimSpace(s))) {
	case StageHTML, "":
		return StageHTML, nil
	case StageMarkdown, "md":
		return StageMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported stage format: %s (use 'html' or 'markdown')", s)
	}
}

// Stage serializes the fragment for the renderer. Markdown staging converts
// only the body; the title travels as renderer metadata.
func (f *Fragment) Stage(format StageFormat) (string, error) {
	switch format {
	case StageMarkdown:
		body, err := f.Body().Html()
		if err != nil {
			return "", err
		}
		out, err := md.ConvertString(body)
		if err != nil {
			return "", fmt.Errorf("markdown conversion failed: %w", err)
		}
		return strings.TrimSpace(out) + "\n", nil
	default:
		return f.HTML()
	}
}

// Pretty returns the fragment as indented HTML for inspection. The output is
// for humans only; indentation may alter whitespace inside pre blocks.
func (f *Fragment) Pretty() (string, error) {
	out, err := f.HTML()
	if err != nil {
		return "", err
	}
	return gohtml.Format(out), nil
}
