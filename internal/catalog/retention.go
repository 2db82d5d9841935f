package catalog

import (
	"sort"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Cutoff returns the oldest published timestamp still inside the retention window.
func Cutoff(now time.Time, retentionDays int) int64 {
	return now.Unix() - int64(retentionDays)*secondsPerDay
}

// Retain drops undated items and items published before the retention window, orders
// the rest newest first (ties keep input order), and truncates to maxItems when
// maxItems is positive.
func Retain(items []Item, now time.Time, retentionDays, maxItems int) []Item {
	cutoff := Cutoff(now, retentionDays)

	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it.PublishedTS <= 0 || it.PublishedTS < cutoff {
			continue
		}
		kept = append(kept, it)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PublishedTS > kept[j].PublishedTS
	})

	if maxItems > 0 && len(kept) > maxItems {
		kept = kept[:maxItems]
	}
	return kept
}
