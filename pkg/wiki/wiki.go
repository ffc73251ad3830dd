// Package wiki resolves the pages of a Markdown wiki checkout into a single,
// deterministically ordered document set.
//
// Links between wiki pages are written in many spellings (spaces, hyphens,
// underscores, percent-encoding, trailing .md, absolute site URLs). Normalize
// turns one spelling into candidate stems, Resolver maps candidates onto files,
// BuildOrder reads the navigation document and Assemble produces the final
// DocumentSet handed to the renderer.
package wiki

import (
	"errors"
	"path/filepath"
	"strings"
)

const (
	// AnchorPage is always placed first when it exists.
	AnchorPage = "Home.md"
	// NavigationPage declares the reading order of the other pages.
	NavigationPage = "_Sidebar.md"
)

// reservedPages are navigation infrastructure, never content.
var reservedPages = []string{
	"_Sidebar.md",
	"_Footer.md",
	"_Header.md",
	"README.md",
}

// ErrNoPages is returned by Assemble when the directory holds no content pages.
var ErrNoPages = errors.New("no markdown pages found")

// IsReserved reports whether name (a file name, not a path) is a reserved
// special page.
func IsReserved(name string) bool {
	for _, r := range reservedPages {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

// Page is a resolved, existing Markdown file. Path is canonical, so two Pages
// denote the same file iff their paths are equal.
type Page struct {
	Path string `json:"path" yaml:"path"`
}

// Name returns the page's file name.
func (p Page) Name() string {
	return filepath.Base(p.Path)
}

// DocumentSet is the ordered, duplicate-free list of pages to render.
type DocumentSet struct {
	Dir   string `json:"dir" yaml:"dir"`
	Pages []Page `json:"pages" yaml:"pages"`
}

// Paths returns the page paths in order.
func (s DocumentSet) Paths() []string {
	paths := make([]string, len(s.Pages))
	for i, p := range s.Pages {
		paths[i] = p.Path
	}
	return paths
}

// Len returns the number of pages.
func (s DocumentSet) Len() int {
	return len(s.Pages)
}

// pageSet tracks placed pages by canonical path.
type pageSet map[string]struct{}

func (s pageSet) has(p Page) bool {
	_, ok := s[p.Path]
	return ok
}

// add records p and reports whether it was new.
func (s pageSet) add(p Page) bool {
	if s.has(p) {
		return false
	}
	s[p.Path] = struct{}{}
	return true
}

// Site identifies the hosted wiki a checkout was published from, as in
// https://<Host>/<Owner>/<Repo>/wiki.
type Site struct {
	Host  string `json:"host" yaml:"host"`
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo" yaml:"repo"`
}

// Matches reports whether other names the same wiki. Comparison ignores
// case and a ".wiki" suffix on the repository name.
func (s Site) Matches(other Site) bool {
	return strings.EqualFold(s.Host, other.Host) &&
		strings.EqualFold(s.Owner, other.Owner) &&
		strings.EqualFold(strings.TrimSuffix(s.Repo, ".wiki"), strings.TrimSuffix(other.Repo, ".wiki"))
}

func (s Site) String() string {
	return s.Host + "/" + s.Owner + "/" + s.Repo
}
