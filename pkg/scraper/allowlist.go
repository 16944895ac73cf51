package scraper

import (
	"sort"
	"strings"
)

// AllowList is the set of location names an operator wants reports for.
// Membership is case-insensitive. It is safe for concurrent reads.
type AllowList struct {
	names map[string]string
}

// NewAllowList builds an allow-list; blank names are ignored
func NewAllowList(names ...string) AllowList {
	m := make(map[string]string, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, seen := m[key]; seen {
			continue
		}
		m[key] = n
	}
	return AllowList{names: m}
}

func (a AllowList) Contains(name string) bool {
	_, ok := a.names[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (a AllowList) Len() int {
	return len(a.names)
}

// Names returns the configured spellings, sorted
func (a AllowList) Names() []string {
	out := make([]string, 0, len(a.names))
	for _, n := range a.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
