// Package feed fetches keyword search feeds and flattens their entries.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 12 * time.Second
	DefaultMaxItems = 30
)

// Entry is one raw feed entry. PublishedTS is zero when no timestamp could be parsed.
type Entry struct {
	Link        string
	Title       string
	Source      string
	GUID        string
	PublishedTS int64
	Blurb       string
	ImageURL    string
}

// Fetcher returns the raw entries for one compiled query.
type Fetcher interface {
	Fetch(ctx context.Context, query string) ([]Entry, error)
}

// SearchOptions configures a SearchFetcher.
type SearchOptions struct {
	BaseURL    string
	HL         string
	GL         string
	CEID       string
	MaxItems   int
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	// RatePerSecond caps outgoing feed requests across all workers; zero disables it.
	RatePerSecond float64
	Burst         int
}

// SearchFetcher queries an RSS search endpoint such as Google News.
type SearchFetcher struct {
	parser   *gofeed.Parser
	opts     SearchOptions
	maxItems int
	timeout  time.Duration
	limiter  *rate.Limiter
}

func NewSearchFetcher(opts SearchOptions) *SearchFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	parser := gofeed.NewParser()
	parser.RSSTranslator = newSourceTranslator()
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		parser.UserAgent = ua
	}
	if opts.HTTPClient != nil {
		parser.Client = opts.HTTPClient
	} else {
		parser.Client = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(opts.Burst, 1))
	}

	return &SearchFetcher{
		parser:   parser,
		opts:     opts,
		maxItems: maxItems,
		timeout:  timeout,
		limiter:  limiter,
	}
}

// SearchURL builds the feed URL for query.
func (f *SearchFetcher) SearchURL(query string) string {
	params := []string{"q=" + url.QueryEscape(query)}
	if hl := strings.TrimSpace(f.opts.HL); hl != "" {
		params = append(params, "hl="+url.QueryEscape(hl))
	}
	if gl := strings.TrimSpace(f.opts.GL); gl != "" {
		params = append(params, "gl="+url.QueryEscape(gl))
	}
	if ceid := strings.TrimSpace(f.opts.CEID); ceid != "" {
		params = append(params, "ceid="+url.QueryEscape(ceid))
	}

	base := strings.TrimSpace(f.opts.BaseURL)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(params, "&")
}

// Fetch downloads and parses the search feed for query, keeping at most MaxItems
// entries. Entries with neither link nor title are dropped.
func (f *SearchFetcher) Fetch(ctx context.Context, query string) ([]Entry, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for feed rate limit: %w", err)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(f.SearchURL(query), fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed for %q: %w", query, err)
	}

	items := parsed.Items
	if len(items) > f.maxItems {
		items = items[:f.maxItems]
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entry := toEntry(item)
		if entry.Link == "" && entry.Title == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toEntry(item *gofeed.Item) Entry {
	return Entry{
		Link:        strings.TrimSpace(item.Link),
		Title:       strings.TrimSpace(item.Title),
		Source:      strings.TrimSpace(item.Custom[customSourceKey]),
		GUID:        strings.TrimSpace(item.GUID),
		PublishedTS: entryTimestamp(item),
		Blurb:       HTMLToText(item.Description),
		ImageURL:    entryImage(item),
	}
}

// entryTimestamp prefers the parsed published date, then the parsed updated date,
// then a lenient parse of the raw strings.
func entryTimestamp(item *gofeed.Item) int64 {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Unix()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.Unix()
	}
	for _, raw := range []string{item.Published, item.Updated} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.Unix()
		}
	}
	return 0
}

func entryImage(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"thumbnail", "content"} {
			for _, ext := range media[name] {
				if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
					return u
				}
			}
		}
	}
	if item.Image != nil {
		return strings.TrimSpace(item.Image.URL)
	}
	return ""
}

// HTMLToText flattens an HTML fragment into single-spaced text. Text from sibling
// elements is separated by a space; script and style content is dropped.
func HTMLToText(fragment string) string {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return strings.Join(strings.Fields(trimmed), " ")
	}

	var parts []string
	collectText(doc.Find("body"), &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			if text := strings.TrimSpace(s.Text()); text != "" {
				*parts = append(*parts, text)
			}
		case "script", "style", "#comment":
		default:
			collectText(s, parts)
		}
	})
}
