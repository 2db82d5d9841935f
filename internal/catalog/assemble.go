package catalog

import (
	"sort"
	"time"
)

// Assemble packages retained items with run metadata. GeneratedAt is filled from now
// when meta leaves it empty; ItemsCount always reflects items.
func Assemble(items []Item, meta Meta, now time.Time) Catalog {
	out := make([]Item, len(items))
	copy(out, items)

	if meta.GeneratedAt == "" {
		meta.GeneratedAt = now.UTC().Format(time.RFC3339)
	}
	meta.ItemsCount = len(out)

	return Catalog{Meta: meta, Items: out}
}

// BundleCount is the number of catalog items carrying one bundle name.
type BundleCount struct {
	Bundle string `json:"bundle"`
	Items  int    `json:"items"`
}

// CountByBundle tallies items per bundle, sorted by bundle name.
func CountByBundle(items []Item) []BundleCount {
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.Bundle]++
	}

	out := make([]BundleCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, BundleCount{Bundle: name, Items: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Bundle < out[j].Bundle
	})
	return out
}
