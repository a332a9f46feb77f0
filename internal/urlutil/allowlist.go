package urlutil

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// AllowList decides whether a URL is in crawl scope. Patterns are either
// plain prefixes or globs; a URL is in scope iff at least one pattern
// matches. The zero value matches nothing.
type AllowList struct {
	prefixes []string
	globs    []glob.Glob
}

// NewAllowList compiles the given patterns. A pattern containing glob
// metacharacters is compiled with gobwas/glob and matched against the whole
// URL; anything else is a plain prefix. Prefix patterns are normalized the
// same way URLs are, so "https://a.test/docs/" scopes "https://a.test/docs".
func NewAllowList(patterns []string) (*AllowList, error) {
	al := &AllowList{}
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if strings.ContainsAny(pattern, "*?[") {
			g, err := glob.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("compile allow-list pattern %q: %w", pattern, err)
			}
			al.globs = append(al.globs, g)
			continue
		}
		al.prefixes = append(al.prefixes, strings.TrimSuffix(pattern, "/"))
	}
	if len(al.prefixes) == 0 && len(al.globs) == 0 {
		return nil, fmt.Errorf("allow-list needs at least one pattern")
	}
	return al, nil
}

// Match reports whether the normalized URL is in scope.
func (al *AllowList) Match(u string) bool {
	if al == nil {
		return false
	}
	for _, p := range al.prefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	for _, g := range al.globs {
		if g.Match(u) {
			return true
		}
	}
	return false
}
