package wiki

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

var (
	// [text](target) and [text](target "title")
	inlineLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	// [[Page]] and [[Text|Page]]
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	// trailing link title inside the parentheses
	linkTitlePattern = regexp.MustCompile(`\s+("[^"]*"|'[^']*')\s*$`)
)

// ExtractLinkTargets returns the link targets of a Markdown document.
// All inline links come first, then all wiki-style links, each group in
// document order.
func ExtractLinkTargets(text string) []string {
	var targets []string
	for _, m := range inlineLinkPattern.FindAllStringSubmatch(text, -1) {
		target := strings.TrimSpace(linkTitlePattern.ReplaceAllString(m[2], ""))
		target = strings.Trim(target, "<>")
		if target != "" {
			targets = append(targets, target)
		}
	}
	for _, m := range wikiLinkPattern.FindAllStringSubmatch(text, -1) {
		target := m[1]
		if i := strings.LastIndexByte(target, '|'); i >= 0 {
			target = target[i+1:]
		}
		if target = strings.TrimSpace(target); target != "" {
			targets = append(targets, target)
		}
	}
	return targets
}

// WikiPageFromURL reduces a hosted wiki page URL,
// scheme://host/<owner>/<repo>/wiki/<page>, to the page name. It reports
// false for any other URL, including single-site wikis such as
// https://en.wikipedia.org/wiki/<page> that carry no owner and repository.
func WikiPageFromURL(raw string) (string, bool) {
	_, page, ok := parseWikiURL(raw)
	return page, ok
}

func parseWikiURL(raw string) (Site, string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return Site{}, "", false
	}
	// u.Path is already percent-decoded.
	path := u.Path
	i := strings.LastIndex(path, "/wiki/")
	if i < 0 {
		return Site{}, "", false
	}
	page := strings.Trim(path[i+len("/wiki/"):], "/")
	if page == "" {
		return Site{}, "", false
	}

	var segments []string
	for _, seg := range strings.Split(path[:i], "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 2 {
		return Site{}, "", false
	}
	site := Site{
		Host:  u.Hostname(),
		Owner: segments[len(segments)-2],
		Repo:  segments[len(segments)-1],
	}
	return site, page, true
}

// navigationPage maps an absolute navigation link onto a page name. When
// the resolver knows its site, links into any other wiki are rejected.
func (r *Resolver) navigationPage(target string) (string, bool) {
	site, page, ok := parseWikiURL(target)
	if !ok {
		return "", false
	}
	if r.site != nil && !r.site.Matches(site) {
		logger.Debug("navigation link points at another wiki", "target", target, "site", site.String())
		return "", false
	}
	return page, true
}

// BuildOrder reads the navigation document in dir and returns the pages it
// links to, in first-resolution order, without duplicates or reserved pages.
// A missing navigation document yields an empty order. Links that resolve to
// nothing are skipped, since navigation often references pages not yet
// written.
func BuildOrder(dir string, opts ...Option) ([]Page, error) {
	r, err := NewResolver(dir, opts...)
	if err != nil {
		return nil, err
	}
	return r.BuildOrder()
}

// BuildOrder is BuildOrder rooted at the resolver's directory.
func (r *Resolver) BuildOrder() ([]Page, error) {
	navPath := filepath.Join(r.dir, NavigationPage)
	data, err := os.ReadFile(navPath) //#nosec G304 -- fixed file name inside the wiki directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no navigation document", "path", navPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read navigation document: %w", err)
	}

	var order []Page
	placed := make(pageSet)
	for _, target := range ExtractLinkTargets(string(data)) {
		if isAbsoluteURL(target) {
			page, ok := r.navigationPage(target)
			if !ok {
				logger.Debug("skipping external navigation link", "target", target)
				continue
			}
			target = page
		}

		page, ok := r.Resolve(target)
		if !ok {
			logger.Debug("navigation link did not resolve", "target", target)
			continue
		}
		if IsReserved(page.Name()) || !placed.add(page) {
			continue
		}
		order = append(order, page)
	}

	logger.Debug("navigation order built", "pages", len(order))
	return order, nil
}
