package scanner

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
	"golang.org/x/net/publicsuffix"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// Response holds the parsed HTTP response data.
type Response struct {
	StatusCode    int
	ContentLength int64
	Header        http.Header
	Body          []byte
	Hash          uint64
	WordCount     int
	LineCount     int
	URL           string
	RedirectURL   string
	Duration      time.Duration
}

// NewResponse computes the content signature fields for body.
func NewResponse(status int, body []byte) *Response {
	r := &Response{
		StatusCode:    status,
		ContentLength: int64(len(body)),
		Body:          body,
		Hash:          murmur3.Sum64(body),
		WordCount:     len(bytes.Fields(body)),
	}
	if len(body) > 0 {
		r.LineCount = bytes.Count(body, []byte("\n")) + 1
	}
	return r
}

// Sender issues one HTTP request for a path relative to the target base.
type Sender interface {
	Do(ctx context.Context, method, path string) (*Response, error)
}

// TransportError wraps a connection, timeout or TLS failure.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// RequesterConfig configures the HTTP transport.
type RequesterConfig struct {
	URL             string
	Scheme          string // used when URL has none; default http
	Timeout         time.Duration
	FollowRedirects bool
	Headers         map[string]string
	UserAgent       string
	RandomAgent     bool
	Cookie          string
	Auth            string // "user:pass" for basic, token for bearer
	AuthType        string // basic | bearer
	Data            string // request body
	Proxy           string // http(s):// or socks5(h)://
	Threads         int    // sizes the idle connection pool
}

// Requester wraps an HTTP client bound to one target.
type Requester struct {
	client  *http.Client
	baseURL *url.URL
	cfg     RequesterConfig
}

// NewRequester parses the target URL and builds the HTTP client.
func NewRequester(cfg RequesterConfig) (*Requester, error) {
	raw := cfg.URL
	if !strings.Contains(raw, "://") {
		scheme := cfg.Scheme
		if scheme == "" {
			scheme = "http"
		}
		raw = scheme + "://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", cfg.URL, err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", cfg.URL)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery, base.Fragment = "", ""

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: max(cfg.Threads, 1),
		MaxIdleConns:        max(cfg.Threads, 1),
	}
	if err := configureProxy(transport, dialer, cfg.Proxy); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		Jar:       jar,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Requester{client: client, baseURL: base, cfg: cfg}, nil
}

// BaseURL returns the normalised target URL without a trailing slash.
func (r *Requester) BaseURL() string { return r.baseURL.String() }

// BasePath returns the target base path without a trailing slash.
func (r *Requester) BasePath() string { return r.baseURL.Path }

// Do sends an HTTP request for the given path and returns the parsed response.
// method defaults to GET if empty. Transport failures are returned as
// *TransportError.
func (r *Requester) Do(ctx context.Context, method, path string) (*Response, error) {
	if method == "" {
		method = http.MethodGet
	}
	targetURL := r.baseURL.String() + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	if r.cfg.Data != "" {
		body = strings.NewReader(r.cfg.Data)
	}
	req, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, err
	}
	r.decorate(req)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{URL: targetURL, Err: fmt.Errorf("reading body: %w", err)}
	}

	result := NewResponse(resp.StatusCode, data)
	result.Header = resp.Header
	result.URL = targetURL
	result.Duration = time.Since(start)
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		result.RedirectURL = resp.Header.Get("Location")
	}
	return result, nil
}

func (r *Requester) decorate(req *http.Request) {
	ua := r.cfg.UserAgent
	if r.cfg.RandomAgent {
		ua = userAgents[rand.IntN(len(userAgents))]
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range r.cfg.Headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	if r.cfg.Cookie != "" {
		req.Header.Set("Cookie", r.cfg.Cookie)
	}
	if r.cfg.Data != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	switch strings.ToLower(r.cfg.AuthType) {
	case "basic":
		user, pass, _ := strings.Cut(r.cfg.Auth, ":")
		req.SetBasicAuth(user, pass)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+r.cfg.Auth)
	}
}
