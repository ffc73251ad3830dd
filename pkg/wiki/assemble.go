package wiki

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

// Assemble builds the document set for the wiki in dir: the anchor page,
// then the navigation order, then every remaining page sorted
// case-insensitively by file name. It returns ErrNoPages when dir holds no
// content pages.
func Assemble(dir string, opts ...Option) (DocumentSet, error) {
	r, err := NewResolver(dir, opts...)
	if err != nil {
		return DocumentSet{}, err
	}

	discovered, err := r.discover()
	if err != nil {
		return DocumentSet{}, err
	}
	if len(discovered) == 0 {
		return DocumentSet{Dir: r.dir}, ErrNoPages
	}

	set := DocumentSet{Dir: r.dir}
	placed := make(pageSet)
	place := func(p Page) {
		if placed.add(p) {
			set.Pages = append(set.Pages, p)
		}
	}

	if anchor, ok := r.probe(AnchorPage); ok {
		place(anchor)
	}

	order, err := r.BuildOrder()
	if err != nil {
		return DocumentSet{}, err
	}
	for _, p := range order {
		place(p)
	}

	sort.SliceStable(discovered, func(i, j int) bool {
		a, b := discovered[i].Name(), discovered[j].Name()
		if la, lb := strings.ToLower(a), strings.ToLower(b); la != lb {
			return la < lb
		}
		return a < b
	})
	for _, p := range discovered {
		place(p)
	}

	logger.Debug("document set assembled",
		"dir", r.dir,
		"discovered", len(discovered),
		"navigation", len(order),
		"pages", set.Len())
	return set, nil
}

// discover lists the content pages directly inside the working directory.
func (r *Resolver) discover() ([]Page, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list wiki directory: %w", err)
	}

	var pages []Page
	for _, entry := range entries {
		name := entry.Name()
		if !hasMarkdownExt(name) || IsReserved(name) {
			continue
		}
		page, ok := r.probe(name)
		if !ok {
			continue
		}
		// a symlink pointing outside the directory canonicalizes elsewhere
		if filepath.Dir(page.Path) != r.dir {
			logger.Debug("skipping page outside wiki directory", "name", name, "path", page.Path)
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}
