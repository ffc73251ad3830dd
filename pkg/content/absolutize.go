package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrInvalidBase is returned when the base address is not an absolute URL.
var ErrInvalidBase = errors.New("base address must be an absolute URL")

// resourceAttrs lists, per element, the attributes holding a resource or
// navigation reference.
var resourceAttrs = []struct {
	tag   string
	attrs []string
}{
	{"a", []string{"href"}},
	{"img", []string{"src", "srcset"}},
	{"source", []string{"src", "srcset"}},
	{"link", []string{"href"}},
	{"video", []string{"src", "poster"}},
	{"audio", []string{"src"}},
	{"track", []string{"src"}},
	{"embed", []string{"src"}},
	{"object", []string{"data"}},
	{"iframe", []string{"src"}},
	{"frame", []string{"src"}},
}

// Absolutize rewrites every resource reference in the fragment against base,
// in place, and returns the number of attributes changed. Absolute
// references are left as they are, so a second run changes nothing.
func Absolutize(f *Fragment, base string) (int, error) {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	if !baseURL.IsAbs() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBase, base)
	}

	changed := 0
	for _, ra := range resourceAttrs {
		f.doc.Find(ra.tag).Each(func(_ int, el *goquery.Selection) {
			for _, attr := range ra.attrs {
				val, ok := el.Attr(attr)
				if !ok || strings.TrimSpace(val) == "" {
					continue
				}
				var next string
				if attr == "srcset" {
					next = resolveSrcset(baseURL, val)
				} else {
					next = resolveRef(baseURL, val)
				}
				if next != val {
					el.SetAttr(attr, next)
					changed++
				}
			}
		})
	}
	return changed, nil
}

// resolveRef joins ref with base. Absolute and unparseable references are
// returned unchanged.
func resolveRef(base *url.URL, ref string) string {
	trimmed := strings.TrimSpace(ref)
	u, err := url.Parse(trimmed)
	if err != nil || u.IsAbs() {
		return ref
	}
	return base.ResolveReference(u).String()
}

// resolveSrcset resolves each "url descriptor" candidate of a srcset,
// keeping descriptors verbatim. A srcset whose URLs are all absolute is
// returned as given, spacing included.
func resolveSrcset(base *url.URL, srcset string) string {
	var parts []string
	rewritten := false
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		if ref := resolveRef(base, fields[0]); ref != fields[0] {
			fields[0] = ref
			rewritten = true
		}
		parts = append(parts, strings.Join(fields, " "))
	}
	if !rewritten {
		return srcset
	}
	return strings.Join(parts, ", ")
}
