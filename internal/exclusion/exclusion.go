// Package exclusion implements a prefix-based URL exclusion policy: a URL
// is excluded when it starts with any entry of a configured prefix list.
package exclusion

import "strings"

// Policy decides whether a URL should be skipped based on a configured list
// of exact, case-sensitive URL prefixes. Matching is O(len(prefixes)) and
// side-effect-free.
type Policy struct {
	prefixes []string
}

// New builds a Policy from a prefix list. Empty and duplicate entries are
// dropped; order does not affect matching.
func New(prefixes []string) *Policy {
	p := &Policy{}
	seen := make(map[string]bool)
	for _, prefix := range prefixes {
		if prefix == "" || seen[prefix] {
			continue
		}
		seen[prefix] = true
		p.prefixes = append(p.prefixes, prefix)
	}
	return p
}

// IsExcluded reports whether url starts with any configured prefix.
func (p *Policy) IsExcluded(url string) bool {
	if p == nil {
		return false
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// Prefixes returns a copy of the configured exclusion prefixes.
func (p *Policy) Prefixes() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.prefixes))
	copy(out, p.prefixes)
	return out
}
