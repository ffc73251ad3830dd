package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

// DynamicFetcher renders the page in headless Chrome before reading the DOM,
// for pages whose content is built by JavaScript.
type DynamicFetcher struct {
	config   Config
	execPath string
}

// NewDynamic creates a dynamic fetcher. The browser is started per Fetch.
func NewDynamic(cfg Config) *DynamicFetcher {
	return &DynamicFetcher{config: cfg.withDefaults(), execPath: FindChrome()}
}

// Fetch navigates to the URL, waits for the body and returns the rendered
// markup and the final location.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string) (Content, error) {
	logger.Debug("dynamic fetch starting", "url", targetURL, "timeout", f.config.Timeout)

	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.config.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, f.config.Timeout)
	defer cancelTimeout()

	var html, title, location string
	var actions []chromedp.Action
	if len(f.config.Headers) > 0 {
		actions = append(actions,
			network.Enable(),
			network.SetExtraHTTPHeaders(extraHeaders(f.config.Headers)),
		)
	}
	actions = append(actions,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
		chromedp.Location(&location),
	)
	err := chromedp.Run(timeoutCtx, actions...)
	if err != nil {
		return result, fmt.Errorf("browser fetch of %s failed: %w", targetURL, err)
	}

	if location != "" {
		result.URL = location
	}
	result.HTML = html
	result.Title = title
	result.StatusCode = 200 // chromedp does not expose the document status
	result.ContentType = "text/html"

	logger.Debug("dynamic fetch complete",
		"url", result.URL,
		"title", title,
		"size", humanize.Bytes(uint64(len(html))))
	return result, nil
}

// extraHeaders converts configured headers into the form the DevTools
// protocol sends with every request of the page.
func extraHeaders(headers map[string]string) network.Headers {
	out := make(network.Headers, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}

// Close releases resources.
func (f *DynamicFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}
