// Package canonical maps aggregator redirect links to the publisher URL behind them.
package canonical

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 12 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; ProjectFeedsBot/1.0)"
	maxDrainBytes    = 64 * 1024
	maxRedirects     = 10
)

// ErrUnresolved means no publisher URL could be determined. It is never fatal.
var ErrUnresolved = errors.New("canonical url unresolved")

// Method names how a URL was resolved.
type Method string

const (
	MethodQueryParam Method = "query_param"
	MethodRedirect   Method = "redirect"
)

// Resolution is a successful canonicalization.
type Resolution struct {
	URL    string
	Method Method
}

// embeddedURLKeys are query parameters aggregators use to carry the target link.
var embeddedURLKeys = []string{"url", "u"}

var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
}

// Options controls HTTP behavior for the redirect probe.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Resolver canonicalizes aggregator URLs. It is safe for concurrent use.
type Resolver struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

func NewResolver(opts Options) *Resolver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	return &Resolver{client: client, timeout: timeout, userAgent: userAgent}
}

// Resolve returns the publisher URL for aggregatorURL. It first looks for a literal
// publisher URL in the query string, then follows redirects with a single GET and
// accepts the final URL only when it left the aggregator's host. Every failure,
// including network errors and timeouts, is reported as ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, aggregatorURL string) (Resolution, error) {
	raw := strings.TrimSpace(aggregatorURL)
	if raw == "" {
		return Resolution{}, ErrUnresolved
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return Resolution{}, fmt.Errorf("%w: invalid url %q", ErrUnresolved, raw)
	}

	if embedded, ok := EmbeddedURL(parsed); ok {
		return Resolution{URL: embedded, Method: MethodQueryParam}, nil
	}

	final, err := r.followRedirects(ctx, raw)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	if sameHost(final, parsed) {
		return Resolution{}, fmt.Errorf("%w: stayed on %s", ErrUnresolved, parsed.Hostname())
	}

	normalized := Normalize(final.String())
	if normalized == "" {
		return Resolution{}, fmt.Errorf("%w: unusable final url", ErrUnresolved)
	}
	return Resolution{URL: normalized, Method: MethodRedirect}, nil
}

func (r *Resolver) followRedirects(ctx context.Context, raw string) (*url.URL, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.Request == nil || resp.Request.URL == nil {
		return nil, fmt.Errorf("response carries no final url")
	}
	return resp.Request.URL, nil
}

// EmbeddedURL returns a decoded absolute http(s) URL carried in the "url" or "u"
// query parameter of u.
func EmbeddedURL(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	q := u.Query()
	for _, key := range embeddedURLKeys {
		for _, value := range q[key] {
			if normalized := Normalize(value); normalized != "" {
				return normalized, true
			}
		}
	}
	return "", false
}

func sameHost(final *url.URL, origin *url.URL) bool {
	return hostKey(final) == hostKey(origin)
}

// hostKey is the lower-cased host with default ports removed.
func hostKey(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		return host
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}

// Normalize validates an absolute http(s) URL and strips its fragment and tracking
// parameters. Remaining query parameters keep their original order and encoding. It
// returns "" for anything that is not an absolute http(s) URL.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return ""
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.RawQuery != "" {
		parsed.RawQuery = stripTracking(parsed.RawQuery)
	}
	parsed.ForceQuery = false

	return parsed.String()
}

// stripTracking drops tracking pairs from a raw query string and leaves every
// other pair byte-for-byte in place.
func stripTracking(rawQuery string) string {
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if isTrackingKey(pair) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTrackingKey(pair string) bool {
	key, _, _ := strings.Cut(pair, "=")
	if unescaped, err := url.QueryUnescape(key); err == nil {
		key = unescaped
	}
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := trackingQueryKeys[key]
	return ok
}
