// Package fetcher retrieves the markup of a single web page.
// A run performs exactly one fetch; there are no retries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves the page at url, following redirects.
	Fetch(ctx context.Context, url string) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns "static" or "dynamic".
	Type() string
}

// Config holds settings shared by all fetchers.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
}

// DefaultUserAgent identifies wikidoc to the sites it fetches.
const DefaultUserAgent = "Mozilla/5.0 (compatible; wikidoc/1.0; +https://github.com/jmylchreest/wikidoc)"

// DefaultTimeout is the request timeout when none is configured.
const DefaultTimeout = 30 * time.Second

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Content represents a fetched page.
type Content struct {
	URL         string // final URL after redirects
	HTML        string // UTF-8 decoded markup
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// ErrStatus is matched by every *StatusError.
var ErrStatus = errors.New("unexpected HTTP status")

// StatusError reports a non-success response.
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStatus) true.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// New creates a fetcher for mode ("static" or "dynamic").
func New(mode string, cfg Config) (Fetcher, error) {
	switch mode {
	case "static", "":
		return NewStatic(cfg), nil
	case "dynamic":
		return NewDynamic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use 'static' or 'dynamic')", mode)
	}
}
