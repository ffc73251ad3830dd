package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

// StaticFetcher uses Colly for plain HTTP fetching.
type StaticFetcher struct {
	config Config
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg Config) *StaticFetcher {
	return &StaticFetcher{config: cfg.withDefaults()}
}

// Fetch retrieves page content using Colly. The body is converted to UTF-8
// from the charset the server declares (or Colly detects). Non-2xx responses
// are returned as *StatusError.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) (Content, error) {
	if err := ctx.Err(); err != nil {
		return Content{}, err
	}
	logger.Debug("static fetch starting", "url", targetURL, "timeout", f.config.Timeout)

	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	// A fresh collector per request: no visited-URL state leaks between runs.
	c := colly.NewCollector(colly.UserAgent(f.config.UserAgent))
	c.DetectCharset = true
	c.SetRequestTimeout(f.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		for k, v := range f.config.Headers {
			r.Headers.Set(k, v)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		result.URL = r.Request.URL.String()
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		logger.Debug("static fetch response received",
			"url", result.URL,
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"size", humanize.Bytes(uint64(len(r.Body))))
	})

	var statusErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			result.StatusCode = r.StatusCode
			statusErr = &StatusError{URL: r.Request.URL.String(), StatusCode: r.StatusCode, Err: err}
		}
		logger.Debug("static fetch error", "url", targetURL, "error", err)
	})

	if err := c.Visit(targetURL); err != nil {
		if statusErr != nil {
			return result, statusErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, fmt.Errorf("failed to fetch %s: %w", targetURL, err)
	}
	if statusErr != nil {
		return result, statusErr
	}
	// an aborted request returns without error
	if err := ctx.Err(); err != nil {
		return result, err
	}

	result.Title = pageTitle(result.HTML)
	logger.Debug("static fetch complete", "url", result.URL, "title", result.Title)
	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}

// pageTitle returns the trimmed <title> text, or "" when absent.
func pageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
