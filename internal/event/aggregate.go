package event

import "sort"

func topRanked(counts map[string]int, total, limit int) []RankedEntry {
	entries := make([]RankedEntry, 0, len(counts))
	for key, count := range counts {
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		entries = append(entries, RankedEntry{Key: key, Count: count, Percentage: pct})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func sortHourBuckets(buckets []HourBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Hour < buckets[j].Hour
	})
}
