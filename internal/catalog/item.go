// Package catalog holds the persisted item model and the engine that folds freshly
// fetched candidates into it: identity, merge, retention and assembly.
package catalog

import "strings"

// Item is the persisted unit. PublishedTS is epoch seconds; zero means undated.
type Item struct {
	ID           string  `json:"id"`
	Bundle       string  `json:"bundle"`
	Query        string  `json:"query"`
	Title        string  `json:"title"`
	Source       string  `json:"source"`
	URL          string  `json:"url"`
	CanonicalURL string  `json:"canonical_url"`
	GUID         string  `json:"guid"`
	PublishedTS  int64   `json:"published_ts"`
	Blurb        *string `json:"blurb,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
	PDFPath      *string `json:"pdf_path,omitempty"`
	Lang         *string `json:"lang,omitempty"`
}

// Meta describes one generated catalog.
type Meta struct {
	GeneratedAt        string `json:"generated_at"`
	RunID              string `json:"run_id,omitempty"`
	RetentionDays      int    `json:"retention_days"`
	MaxTotalItems      int    `json:"max_total_items,omitempty"`
	BundlesCount       int    `json:"bundles_count"`
	QueriesCount       int    `json:"queries_count"`
	ItemsCount         int    `json:"items_count"`
	NewItemsCount      int    `json:"new_items_count"`
	FailedQueriesCount int    `json:"failed_queries_count"`
}

// Catalog is the sole persisted artifact. Items are ordered newest first.
type Catalog struct {
	Meta  Meta   `json:"meta"`
	Items []Item `json:"items"`
}

// NeedsImage reports whether the item still lacks an image.
func (it *Item) NeedsImage() bool {
	return isBlank(it.ImageURL)
}

// NeedsBlurb reports whether the item still lacks a description.
func (it *Item) NeedsBlurb() bool {
	return isBlank(it.Blurb)
}

// Optional returns a pointer to the trimmed value, or nil when it is blank.
func Optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Value dereferences an optional field, returning "" when absent.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func isBlank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}
