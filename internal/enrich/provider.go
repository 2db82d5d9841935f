package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"horse.fit/bundlefeed/internal/catalog"
	"horse.fit/bundlefeed/internal/langdetect"
)

// Request asks for enrichment of one item. Clip additionally requests a clipped
// document when a Clipper is configured.
type Request struct {
	Item catalog.Item
	Clip bool
}

// Result carries whatever enrichment was produced. Empty fields mean nothing was found.
type Result struct {
	ImageURL string
	Blurb    string
	Lang     string
	PDFPath  string
}

// Empty reports whether nothing was produced.
func (r Result) Empty() bool {
	return r.ImageURL == "" && r.Blurb == "" && r.Lang == "" && r.PDFPath == ""
}

// Patch returns a candidate carrying only id and the enrichment fields, suitable for
// folding into the store with fill-if-blank semantics.
func (r Result) Patch(id string) catalog.Item {
	return catalog.Item{
		ID:       id,
		ImageURL: catalog.Optional(r.ImageURL),
		Blurb:    catalog.Optional(r.Blurb),
		Lang:     catalog.Optional(r.Lang),
		PDFPath:  catalog.Optional(r.PDFPath),
	}
}

// Options configures a Provider.
type Options struct {
	Scrape         ScrapeOptions
	DetectLanguage bool
	Clipper        *Clipper
}

// Provider runs every enrichment step an item still needs.
type Provider struct {
	scraper    *Scraper
	detectLang bool
	clipper    *Clipper
}

func NewProvider(opts Options) *Provider {
	return &Provider{
		scraper:    NewScraper(opts.Scrape),
		detectLang: opts.DetectLanguage,
		clipper:    opts.Clipper,
	}
}

// Enrich fills the image, blurb, lang and pdf_path fields the item lacks. The returned
// Result holds everything that succeeded even when err reports a failed step.
func (p *Provider) Enrich(ctx context.Context, req Request) (Result, error) {
	it := req.Item
	target := strings.TrimSpace(it.CanonicalURL)
	if target == "" {
		target = strings.TrimSpace(it.URL)
	}

	var (
		result Result
		errs   []error
	)

	if target != "" && (it.NeedsImage() || it.NeedsBlurb()) {
		page, err := p.scraper.Scrape(ctx, target)
		if err != nil {
			errs = append(errs, fmt.Errorf("scrape %s: %w", target, err))
		} else {
			if it.NeedsImage() {
				result.ImageURL = page.ImageURL
			}
			if it.NeedsBlurb() {
				result.Blurb = page.Description
			}
		}
	}

	if p.detectLang && catalog.Value(it.Lang) == "" {
		blurb := catalog.Value(it.Blurb)
		if blurb == "" {
			blurb = result.Blurb
		}
		result.Lang = langdetect.DetectItem(it.Title, blurb)
	}

	if req.Clip && p.clipper != nil && catalog.Value(it.PDFPath) == "" && target != "" {
		path, err := p.clipper.Clip(ctx, it.ID, target)
		if err != nil {
			errs = append(errs, fmt.Errorf("clip %s: %w", target, err))
		} else {
			result.PDFPath = path
		}
	}

	return result, errors.Join(errs...)
}

// Clipping reports whether the provider can produce clipped documents.
func (p *Provider) Clipping() bool {
	return p.clipper != nil
}
