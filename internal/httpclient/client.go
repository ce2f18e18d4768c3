// Package httpclient is the single pooled HTTP client shared by every
// source adapter (spec.md §4.1). It adds retry with backoff, per-host rate
// limiting, and a uniform never-throws contract: a terminal failure always
// returns (nil, error) so callers log and move on rather than propagate a
// panic or an unbounded hang across a subscriber or tick boundary.
package httpclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 flatradar/1.0"

	defaultMaxRetries  = 3
	defaultRetryBase   = 2 * time.Second
	defaultJSONTimeout = 10 * time.Second
	defaultHTMLTimeout = 15 * time.Second

	defaultHostConcurrency = 4
	defaultHostMinSpacing  = 500 * time.Millisecond
)

// Options tunes per-source behavior. Zero value yields the spec.md §4.1
// defaults.
type Options struct {
	JSONTimeout time.Duration
	HTMLTimeout time.Duration
	MaxRetries  int
	RetryBase   time.Duration
	Referer     string
	Origin      string
	Headers     map[string]string
}

func (o Options) withDefaults() Options {
	if o.JSONTimeout == 0 {
		o.JSONTimeout = defaultJSONTimeout
	}
	if o.HTMLTimeout == 0 {
		o.HTMLTimeout = defaultHTMLTimeout
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.RetryBase == 0 {
		o.RetryBase = defaultRetryBase
	}
	return o
}

// hostLimiter pairs a concurrency semaphore with a minimum-spacing token
// bucket for one host, grounded on the pooled-transport/semaphore pattern
// in the pack's ESI client (other_examples: eve-flipper internal/esi).
type hostLimiter struct {
	sem     chan struct{}
	spacing *rate.Limiter
}

// Client is the pooled, rate-limited HTTP client every adapter shares. Safe
// for concurrent use by many goroutines.
type Client struct {
	http *http.Client
	log  *log.Logger

	hostsMu sync.Mutex
	hosts   map[string]*hostLimiter

	hostConcurrency int
	hostMinSpacing  time.Duration
}

// New builds a Client with a tuned transport for high-concurrency,
// many-page scraping: generous idle-connection reuse, HTTP/1.1 preferred
// over per-request TLS handshakes.
func New(lg *log.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		http:            &http.Client{Transport: transport},
		log:             lg,
		hosts:           make(map[string]*hostLimiter),
		hostConcurrency: defaultHostConcurrency,
		hostMinSpacing:  defaultHostMinSpacing,
	}
}

func (c *Client) limiterFor(host string) *hostLimiter {
	c.hostsMu.Lock()
	defer c.hostsMu.Unlock()

	hl, ok := c.hosts[host]
	if !ok {
		hl = &hostLimiter{
			sem:     make(chan struct{}, c.hostConcurrency),
			spacing: rate.NewLimiter(rate.Every(c.hostMinSpacing), 1),
		}
		c.hosts[host] = hl
	}
	return hl
}

// FetchJSON performs a GET request and decodes the JSON body into v.
// Never returns a panic; terminal failures return a non-nil error and are
// logged with the source tag. Retries transient errors (network failure,
// 5xx, JSON decode error, 429) up to Options.MaxRetries times with
// attempt*base backoff, honoring a server "Retry-After" hint exactly.
func (c *Client) FetchJSON(ctx context.Context, source, rawURL string, params url.Values, opts Options, v any) error {
	opts = opts.withDefaults()
	var err error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		body, ferr := c.fetch(ctx, source, rawURL, params, opts, opts.JSONTimeout, "application/json")
		if ferr != nil {
			return ferr
		}
		if err = json.Unmarshal(body, v); err == nil {
			return nil
		}
		err = fmt.Errorf("%s: decode json: %w", source, err)
		c.log.Printf("[%s] attempt %d/%d: %v", source, attempt, opts.MaxRetries, err)
		if attempt < opts.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * opts.RetryBase):
			}
		}
	}
	return err
}

// FetchHTML performs a GET request and returns the raw HTML body for the
// caller to parse with goquery.
func (c *Client) FetchHTML(ctx context.Context, source, rawURL string, params url.Values, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	return c.fetch(ctx, source, rawURL, params, opts, opts.HTMLTimeout, "text/html")
}

func (c *Client) fetch(ctx context.Context, source, rawURL string, params url.Values, opts Options, timeout time.Duration, accept string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		c.log.Printf("[%s] bad url %q: %v", source, rawURL, err)
		return nil, fmt.Errorf("%s: bad url: %w", source, err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	limiter := c.limiterFor(u.Host)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		body, retryAfter, err := c.attempt(ctx, limiter, u.String(), opts, timeout, accept, source)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isTransient(err) {
			c.log.Printf("[%s] permanent failure: %v", source, err)
			return nil, err
		}
		if attempt == opts.MaxRetries {
			break
		}

		wait := retryAfter
		if wait <= 0 {
			wait = time.Duration(attempt) * opts.RetryBase
		}
		c.log.Printf("[%s] attempt %d/%d failed: %v (retry in %s)", source, attempt, opts.MaxRetries, err, wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	c.log.Printf("[%s] giving up after %d attempts: %v", source, opts.MaxRetries, lastErr)
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, hl *hostLimiter, fullURL string, opts Options, timeout time.Duration, accept, source string) (body []byte, retryAfter time.Duration, err error) {
	select {
	case hl.sem <- struct{}{}:
		defer func() { <-hl.sem }()
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
	if err := hl.spacing.Wait(ctx); err != nil {
		return nil, 0, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, &permanentError{err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	if opts.Referer != "" {
		req.Header.Set("Referer", opts.Referer)
	}
	if opts.Origin != "" {
		req.Header.Set("Origin", opts.Origin)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &transientError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		ra := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, ra, &transientError{fmt.Errorf("%s: status %d", source, resp.StatusCode)}
	}
	if resp.StatusCode >= 500 {
		return nil, 0, &transientError{fmt.Errorf("%s: status %d", source, resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, 0, &permanentError{fmt.Errorf("%s: status %d", source, resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &transientError{fmt.Errorf("%s: read body: %w", source, err)}
	}
	return data, 0, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	_, ok := err.(*transientError)
	return ok
}
