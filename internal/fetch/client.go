// Package fetch is the shared HTTP client used by every provider adapter.
//
// Each request carries a User-Agent (pinned, or rotated per request), the
// adapter's Referer and any configured cookies. Responses are decoded to
// UTF-8 before they are returned, so adapters never deal with GBK pages.
package fetch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/brogergvhs/noveld/internal/logging"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 16 << 20
	retryBackoff   = 500 * time.Millisecond
)

// Request describes a single GET.
type Request struct {
	URL     string
	Referer string
	Timeout time.Duration // zero means the client default
}

type Options struct {
	Timeout time.Duration
	// UserAgent pins one identity for every request. When empty, an
	// identity is drawn from RandomUserAgent for each request.
	UserAgent        string
	RandomUserAgent  func() string
	Cookie           string
	CookieFile       string
	CloudflareBypass bool
	RateLimit        float64 // requests per second, 0 disables
	Retries          int     // extra attempts on network errors and 5xx
	Transport        http.RoundTripper
	Logger           *logging.Logger
}

type Client struct {
	http    *http.Client
	timeout time.Duration
	retries int
	maxBody int64
	log     *logging.Logger
}

func NewClient(opts Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxConnsPerHost:     32,
			MaxIdleConnsPerHost: 32,
			ForceAttemptHTTP2:   true,
		}
	}
	if opts.CloudflareBypass {
		base = cloudflarebp.AddCloudFlareByPass(base)
	}

	ua := opts.RandomUserAgent
	if ua == nil {
		ua = browser.Random
	}
	if pinned := strings.TrimSpace(opts.UserAgent); pinned != "" {
		ua = func() string { return pinned }
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	cookies, err := joinCookies(opts.Cookie, opts.CookieFile)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}

	log.Debugf("HTTP client initialized (timeout=%s, pinned_ua=%t, cookies=%t, cf_bypass=%t, rate=%.2f, retries=%d)",
		timeout, opts.UserAgent != "", cookies != "", opts.CloudflareBypass, opts.RateLimit, retries)

	return &Client{
		http: &http.Client{
			Transport: roundTripper{
				base:         base,
				ua:           ua,
				cookieHeader: cookies,
				limiter:      limiter,
				log:          log,
			},
			Jar: jar,
		},
		timeout: timeout,
		retries: retries,
		maxBody: maxBodyBytes,
		log:     log,
	}, nil
}

// Get fetches req.URL and returns the body decoded to UTF-8. Failures are
// returned as *Error.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Debugf("retrying %s (attempt %d/%d): %v", req.URL, attempt+1, c.retries+1, err)

			select {
			case <-ctx.Done():
				return nil, classify(req.URL, ctx.Err())
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		var body []byte
		body, err = c.once(ctx, req)
		if err == nil {
			return body, nil
		}
		if !retryable(err) {
			return nil, err
		}
	}

	return nil, err
}

func (c *Client) once(ctx context.Context, req Request) ([]byte, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Err: err}
	}
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classify(req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: KindHTTPStatus, URL: req.URL, Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, classify(req.URL, err)
	}
	if int64(len(raw)) > c.maxBody {
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, c.maxBody)}
	}
	if len(raw) == 0 {
		return []byte{}, nil
	}

	r, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Err: fmt.Errorf("decode body: %w", err)}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: req.URL, Err: fmt.Errorf("decode body: %w", err)}
	}

	return body, nil
}

type roundTripper struct {
	base         http.RoundTripper
	ua           func() string
	cookieHeader string
	limiter      *rate.Limiter
	log          *logging.Logger
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.limiter != nil {
		if err := rt.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	req = req.Clone(req.Context())
	if ua := rt.ua(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.6")
	}
	if rt.cookieHeader != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookieHeader)
	}

	rt.log.Debugf("HTTP %s %s", req.Method, req.URL.String())

	return rt.base.RoundTrip(req)
}

// joinCookies merges an inline cookie string with the first non-empty line
// of cookieFile.
func joinCookies(inline, cookieFile string) (string, error) {
	s := strings.TrimSpace(inline)
	if cookieFile == "" {
		return s, nil
	}

	f, err := os.Open(cookieFile)
	if err != nil {
		return "", fmt.Errorf("cookie file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if s == "" {
			return line, nil
		}
		return s + "; " + line, nil
	}

	return s, sc.Err()
}
