package proxy

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// hostMatcher restricts the hosts a token may target. Patterns are globs
// with '.' as separator: '*' matches a single label and '**' any number of
// labels. An empty matcher permits every host.
type hostMatcher []glob.Glob

func newHostMatcher(patterns []string) (hostMatcher, error) {
	m := make(hostMatcher, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern %q: %w", pattern, err)
		}
		m = append(m, g)
	}
	return m, nil
}

func (m hostMatcher) allowed(host string) bool {
	if len(m) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, g := range m {
		if g.Match(host) {
			return true
		}
	}
	return false
}
