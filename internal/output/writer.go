// Package output writes listings as text, JSON, JSONL or YAML.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Format represents output format types.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats in help-text order.
var Formats = []Format{FormatText, FormatJSON, FormatJSONL, FormatYAML}

// ErrUnsupportedFormat is returned for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormat maps a user-supplied name onto a Format. Matching ignores case
// and surrounding space; an empty name selects FormatText.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FormatText, nil
	}
	for _, f := range Formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Writer serializes a sequence of items. Items are written in call order;
// nothing is guaranteed to reach the underlying writer before Flush.
type Writer interface {
	Write(item any) error
	Flush() error
}

// Option configures a writer.
type Option func(*writerConfig)

type writerConfig struct {
	indent string
}

// WithIndent sets the JSON indentation string. An empty indent produces
// compact output.
func WithIndent(indent string) Option {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...Option) (Writer, error) {
	cfg := &writerConfig{indent: "  "}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatText:
		return NewTextWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
