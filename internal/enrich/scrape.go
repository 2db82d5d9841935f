// Package enrich augments catalog items with best-effort metadata scraped from the
// publisher page: an image, a short description, a language tag and an optional
// clipped document.
package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTimeout       = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024
	DefaultExcerptChars  = 320

	defaultUserAgent = "Mozilla/5.0 (compatible; ProjectFeedsBot/1.0)"
)

// ErrNotHTML is returned when the page is not an HTML document.
var ErrNotHTML = errors.New("page is not html")

// ScrapeOptions controls how publisher pages are fetched.
type ScrapeOptions struct {
	Timeout        time.Duration
	BodyByteLimit  int64
	ExcerptChars   int
	UserAgent      string
	AcceptLanguage string
	HTTPClient     *http.Client
}

// Page is what a publisher page offers for enrichment. Either field may be empty.
type Page struct {
	ImageURL    string
	Description string
}

// Scraper reads Open Graph metadata from publisher pages.
type Scraper struct {
	opts   ScrapeOptions
	client *http.Client
}

func NewScraper(opts ScrapeOptions) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BodyByteLimit <= 0 {
		opts.BodyByteLimit = DefaultBodyByteLimit
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = DefaultExcerptChars
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Scraper{opts: opts, client: client}
}

// Scrape fetches pageURL and extracts og:image plus og:description, falling back to the
// description meta tag and then to a readability excerpt of the page body.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (Page, error) {
	target := strings.TrimSpace(pageURL)
	if target == "" {
		return Page{}, fmt.Errorf("page url is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	if lang := strings.TrimSpace(s.opts.AcceptLanguage); lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetch status %d", resp.StatusCode)
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return Page{}, fmt.Errorf("%w: %q", ErrNotHTML, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.BodyByteLimit))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	page := Page{
		ImageURL:    absoluteURL(finalURL, metaContent(doc, "og:image")),
		Description: collapse(metaContent(doc, "og:description")),
	}
	if page.Description == "" {
		page.Description = collapse(metaContent(doc, "description"))
	}
	if page.Description == "" {
		page.Description = s.excerpt(body, finalURL)
	}
	return page, nil
}

func (s *Scraper) excerpt(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}

	text := collapse(article.Excerpt())
	if text == "" {
		var rendered bytes.Buffer
		if err := article.RenderText(&rendered); err != nil {
			return ""
		}
		text = collapse(rendered.String())
	}
	clipped, _ := TruncateText(text, s.opts.ExcerptChars)
	return clipped
}

// metaContent returns the content of the first meta tag whose property, or failing
// that whose name, equals key.
func metaContent(doc *goquery.Document, key string) string {
	for _, attr := range []string{"property", "name"} {
		sel := doc.Find(fmt.Sprintf("meta[%s=%q]", attr, key)).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.AttrOr("content", "")) != ""
		})
		if sel.Length() > 0 {
			return strings.TrimSpace(sel.First().AttrOr("content", ""))
		}
	}
	return ""
}

func absoluteURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

func collapse(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// TruncateText clips text to maxChars runes, ending with a single ellipsis rune when
// anything was cut.
func TruncateText(raw string, maxChars int) (string, bool) {
	text := strings.TrimSpace(raw)
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text, false
	}
	if maxChars == 1 {
		return "…", true
	}
	return strings.TrimSpace(string(runes[:maxChars-1])) + "…", true
}
