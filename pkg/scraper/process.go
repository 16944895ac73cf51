package scraper

import (
	"slices"
	"strings"
)

// Process turns raw observations into the list that gets reported.
//
// Locations without a date are dropped, then locations not on the allow-list,
// then repeated location names (first one wins). The rest is sorted by date;
// equal dates keep discovery order. An empty allow-list yields an empty result.
// The input slice is not modified.
func Process(observations []Observation, allow AllowList) []Observation {
	out := make([]Observation, 0, len(observations))
	if allow.Len() == 0 {
		return out
	}

	seen := make(map[string]struct{}, len(observations))
	for _, o := range observations {
		if !o.HasDate() {
			continue
		}
		if !allow.Contains(o.Location()) {
			continue
		}
		key := strings.ToLower(o.Location())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}

	slices.SortStableFunc(out, func(a, b Observation) int {
		return a.date.Compare(b.date)
	})
	return out
}
