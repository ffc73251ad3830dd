package wiki

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

// Resolver maps link targets onto Markdown files under one directory.
type Resolver struct {
	dir  string
	site *Site
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSite restricts absolute navigation links to pages of the given
// hosted wiki.
func WithSite(site Site) Option {
	return func(r *Resolver) {
		r.site = &site
	}
}

// NewResolver creates a resolver rooted at dir. The directory is made
// absolute and symlink-free so resolved paths are canonical.
func NewResolver(dir string, opts ...Option) (*Resolver, error) {
	canonical, err := canonicalPath(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	r := &Resolver{dir: canonical}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir returns the canonical working directory.
func (r *Resolver) Dir() string {
	return r.dir
}

// Resolve returns the page a raw link target denotes.
//
// Each candidate stem is probed as <stem>.md, <stem>/Home.md and <stem>, in
// candidate order. The first probe naming an existing regular .md file wins.
// Absolute URLs never resolve; callers reduce wiki URLs to page names first.
func (r *Resolver) Resolve(target string) (Page, bool) {
	if isAbsoluteURL(target) {
		return Page{}, false
	}

	stem := Normalize(target)
	for _, candidate := range stem.Candidates {
		probes := []string{
			candidate + ".md",
			filepath.Join(candidate, AnchorPage),
			candidate,
		}
		for _, probe := range probes {
			if page, ok := r.probe(probe); ok {
				logger.Debug("resolved link target", "target", target, "page", page.Name())
				return page, true
			}
		}
	}
	return Page{}, false
}

// probe checks a single path relative to the working directory.
func (r *Resolver) probe(rel string) (Page, bool) {
	path := filepath.Join(r.dir, filepath.FromSlash(rel))
	if !r.contains(path) {
		return Page{}, false
	}
	if !hasMarkdownExt(path) {
		return Page{}, false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Page{}, false
	}
	canonical, err := canonicalPath(path)
	if err != nil {
		return Page{}, false
	}
	return Page{Path: r.onDiskCase(canonical)}, true
}

// onDiskCase respells the components of path below the working directory as
// their parent directories list them. On a case-insensitive filesystem
// "faq.md" opens FAQ.md, and both spellings must yield the same Page.
func (r *Resolver) onDiskCase(path string) string {
	rel, err := filepath.Rel(r.dir, path)
	if err != nil || rel == "." || !r.contains(path) {
		return path
	}
	current := r.dir
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, entryName(current, part))
	}
	return current
}

// entryName returns the directory entry of dir spelled name, preferring an
// exact match over a case-insensitive one. Unlisted names come back as given.
func entryName(dir, name string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return name
	}
	folded := ""
	for _, entry := range entries {
		if entry.Name() == name {
			return name
		}
		if folded == "" && strings.EqualFold(entry.Name(), name) {
			folded = entry.Name()
		}
	}
	if folded != "" {
		return folded
	}
	return name
}

// contains reports whether path lies inside the working directory.
func (r *Resolver) contains(path string) bool {
	rel, err := filepath.Rel(r.dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasMarkdownExt(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// opaqueSchemes are schemes whose URLs carry no "//" authority.
var opaqueSchemes = map[string]bool{
	"mailto":     true,
	"tel":        true,
	"data":       true,
	"javascript": true,
}

// isAbsoluteURL reports whether target is a URL rather than a page name.
// Page names may contain colons ("Note: Setup"), so a bare scheme-like prefix
// only counts for schemes that never name pages.
func isAbsoluteURL(target string) bool {
	target = strings.TrimSpace(target)
	if strings.Contains(target, "://") {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return opaqueSchemes[strings.ToLower(u.Scheme)]
}
