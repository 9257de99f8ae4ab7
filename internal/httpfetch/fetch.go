// Package httpfetch implements HTTP retrieval with retry, throttle, and
// User-Agent/proxy rotation, built on hashicorp/go-retryablehttp for the
// retry/backoff transport and golang.org/x/time/rate for the post-response
// throttle.
package httpfetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/scrapeerr"
)

// Hooks are invoked around each attempt for observability: a pre-request
// hook sees the outgoing request and chosen proxy, a post-response hook
// sees the status (or error) that resulted.
type Hooks struct {
	BeforeRequest func(ctx context.Context, req *http.Request, proxy string)
	AfterResponse func(ctx context.Context, req *http.Request, status int, err error)
}

// Config configures a Fetcher.
type Config struct {
	Timeout       time.Duration
	MaxRetries    int
	BaseThrottle  time.Duration
	Jitter        time.Duration
	Headers       map[string]string
	UserAgents    []string
	Proxies       []string
	RenderJS      bool
	BrowserFetch  BrowserFetcher
	Hooks         Hooks
	Logger        *zap.SugaredLogger
}

// BrowserFetcher is a pluggable JS-render hook. The default implementation
// (noBrowserFetcher) always returns ErrNotConfigured; a real implementation
// could back it with chromedp (github.com/chromedp/chromedp) without this
// package needing to depend on it directly.
type BrowserFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ErrNotConfigured is returned by the default BrowserFetcher.
var ErrNotConfigured = errors.New("browser fetch: not configured")

type noBrowserFetcher struct{}

func (noBrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return "", ErrNotConfigured
}

// Fetcher retrieves page content under a retry/throttle/rotation policy. It
// is safe for concurrent use by multiple worker goroutines: the underlying
// transport and cookie jar are shared, so callers do not need a fetcher per
// worker to get a per-worker session.
type Fetcher struct {
	cfg       Config
	client    *retryablehttp.Client
	limiter   *rate.Limiter
	rng       *rand.Rand
	rngMu     sync.Mutex
	browser   BrowserFetcher
}

// New builds a Fetcher from cfg, filling in defaults for any zero-valued
// field.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseThrottle <= 0 {
		cfg.BaseThrottle = 700 * time.Millisecond
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: false},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	f := &Fetcher{cfg: cfg, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	if cfg.BrowserFetch != nil {
		f.browser = cfg.BrowserFetch
	} else {
		f.browser = noBrowserFetcher{}
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.MaxRetries
	rc.HTTPClient = &http.Client{
		Transport: f.rotatingTransport(transport),
		Jar:       jar,
		Timeout:   cfg.Timeout,
	}
	rc.CheckRetry = f.checkRetry
	rc.Backoff = f.backoff
	rc.PrepareRetry = func(req *http.Request) error { return nil }
	f.client = rc

	// Base throttle is modeled as a token-bucket limiter: one token is
	// produced every BaseThrottle, so callers pay a minimum inter-request
	// delay after every successful response.
	burst := 1
	f.limiter = rate.NewLimiter(rate.Every(cfg.BaseThrottle), burst)

	return f
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

func (f *Fetcher) randomUserAgent() string {
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	return f.cfg.UserAgents[f.rng.Intn(len(f.cfg.UserAgents))]
}

func (f *Fetcher) randomProxy() string {
	if len(f.cfg.Proxies) == 0 {
		return ""
	}
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	return f.cfg.Proxies[f.rng.Intn(len(f.cfg.Proxies))]
}

// rotatingTransport wraps base so every attempt carries a freshly chosen
// User-Agent and proxy, each selected uniformly at random. retryablehttp
// reuses the same *http.Request object across retries, so the draw has to
// happen here, per RoundTrip call, rather than once in Fetch.
func (f *Fetcher) rotatingTransport(base *http.Transport) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		req.Header.Set("User-Agent", f.randomUserAgent())
		proxy := f.randomProxy()
		t := base
		if proxy != "" {
			proxyURL, err := url.Parse(proxy)
			if err == nil {
				clone := base.Clone()
				clone.Proxy = http.ProxyURL(proxyURL)
				t = clone
			}
		}
		if f.cfg.Hooks.BeforeRequest != nil {
			f.cfg.Hooks.BeforeRequest(req.Context(), req, proxy)
		}
		resp, err := t.RoundTrip(req)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		if f.cfg.Hooks.AfterResponse != nil {
			f.cfg.Hooks.AfterResponse(req.Context(), req, status, err)
		}
		return resp, err
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// checkRetry retries on connection failure, timeout, or HTTP status in
// {429,500,502,503,504}; it never retries other 4xx responses.
func (f *Fetcher) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}
	return false, nil
}

// backoff computes base * 1.5^attempt plus small random jitter, capped at
// max.
func (f *Fetcher) backoff(min, max time.Duration, attempt int, resp *http.Response) time.Duration {
	base := float64(f.cfg.BaseThrottle)
	if base <= 0 {
		base = float64(500 * time.Millisecond)
	}
	d := base * math.Pow(1.5, float64(attempt))
	jitter := float64(0)
	if f.cfg.Jitter > 0 {
		f.rngMu.Lock()
		jitter = f.rng.Float64() * float64(f.cfg.Jitter)
		f.rngMu.Unlock()
	}
	total := time.Duration(d + jitter)
	if max > 0 && total > max {
		total = max
	}
	return total
}

// Fetch retrieves url's HTML text. Fails with an error wrapping
// scrapeerr.ErrNetwork once all retries are exhausted. If cfg.RenderJS is
// set, the request is delegated to the configured BrowserFetcher instead of
// the HTTP retry path.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	if f.cfg.RenderJS {
		html, err := f.browser.Fetch(ctx, target)
		if err != nil {
			return "", fmt.Errorf("%w: browser render %s: %v", scrapeerr.ErrNetwork, target, err)
		}
		return html, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: building request for %s: %v", scrapeerr.ErrNetwork, target, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9,en;q=0.8")
	for k, v := range f.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.cfg.Logger.Warnw("fetch failed", "url", target, "error", err)
		return "", fmt.Errorf("%w: %s: %v", scrapeerr.ErrNetwork, target, err)
	}
	defer resp.Body.Close()
	f.cfg.Logger.Debugw("fetch completed", "url", target, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: HTTP %d", scrapeerr.ErrNetwork, target, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading body of %s: %v", scrapeerr.ErrNetwork, target, err)
	}

	// Throttle: block until the next token is available (base_throttle),
	// then sleep an additional uniform(0, Jitter) on top of it.
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: throttle wait for %s: %v", scrapeerr.ErrCancelled, target, err)
	}
	if f.cfg.Jitter > 0 {
		f.rngMu.Lock()
		sleep := time.Duration(f.rng.Float64() * float64(f.cfg.Jitter))
		f.rngMu.Unlock()
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: throttle jitter wait for %s: %v", scrapeerr.ErrCancelled, target, ctx.Err())
		case <-time.After(sleep):
		}
	}

	return string(body), nil
}
