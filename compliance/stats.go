package compliance

import "sort"

// toEntries converts raw grouped counts into a breakdown sorted by count,
// largest first. Order among equal counts is not defined.
func toEntries(groups []GroupCount) []StatEntry {
	entries := make([]StatEntry, 0, len(groups))
	for _, g := range groups {
		entries = append(entries, StatEntry{Name: g.Key, Value: g.Count})
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []StatEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
}

// bySchemeType partitions region × scheme-type counts into one region
// breakdown per scheme type. The four fixed scheme types are always present,
// empty when nothing matched. Scheme types outside the fixed set get their
// own bucket.
func bySchemeType(counts []RegionTypeCount) map[SchemeType][]StatEntry {
	buckets := make(map[SchemeType][]StatEntry, len(SchemeTypes))
	for _, t := range SchemeTypes {
		buckets[t] = []StatEntry{}
	}

	for _, c := range counts {
		buckets[c.SchemeType] = append(buckets[c.SchemeType], StatEntry{
			Name:  c.Region,
			Value: c.Count,
		})
	}

	for _, entries := range buckets {
		sortEntries(entries)
	}
	return buckets
}

// Sum adds up the counts of a breakdown.
func Sum(entries []StatEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Value
	}
	return total
}
