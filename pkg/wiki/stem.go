package wiki

import (
	"net/url"
	"strings"
)

// Stem holds the spellings a link target may have on disk.
// Preferred is always Candidates[0] when Candidates is non-empty.
type Stem struct {
	Preferred  string
	Candidates []string
}

// Normalize derives candidate on-disk stems from a raw link target.
//
// The target is percent-decoded, trimmed of whitespace and surrounding
// slashes, stripped of its fragment, reduced to the part after the last
// "/wiki/" segment and stripped of a trailing ".md". Those steps are applied
// until nothing changes, so Normalize is idempotent on Preferred.
//
// Candidates, in order: the base, spaces as hyphens, spaces as underscores
// and, for nested-looking names, slashes as hyphens. Two spellings for file
// names that themselves contain percent signs follow: the target decoded
// once, then the target not decoded at all. An input that normalizes to
// nothing yields an empty Stem.
func Normalize(raw string) Stem {
	base := strip(raw, true)
	if base == "" {
		return Stem{}
	}

	variants := []string{
		base,
		strings.ReplaceAll(base, " ", "-"),
		strings.ReplaceAll(base, " ", "_"),
	}
	if strings.Contains(base, "/") {
		variants = append(variants, strings.ReplaceAll(base, "/", "-"))
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		variants = append(variants, strip(decoded, false))
	}
	variants = append(variants, strip(raw, false))

	return Stem{
		Preferred:  base,
		Candidates: dedupe(variants),
	}
}

// strip applies normalizeOnce until s stops changing.
func strip(s string, decode bool) string {
	for {
		next := normalizeOnce(s, decode)
		if next == s {
			return s
		}
		s = next
	}
}

// normalizeOnce runs one pass of the normalization steps. Every step either
// leaves s unchanged or shortens it.
func normalizeOnce(s string, decode bool) string {
	if decode {
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
	}
	s = trimTarget(s)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = trimTarget(s[:i])
	}
	if i := strings.LastIndex(s, "/wiki/"); i >= 0 {
		s = trimTarget(s[i+len("/wiki/"):])
	}
	if n := len(s); n >= 3 && strings.EqualFold(s[n-3:], ".md") {
		s = trimTarget(s[:n-3])
	}
	return s
}

func trimTarget(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
