// Package whttp is the shared outbound HTTP layer: retries through
// go-retryablehttp, a per-host rate limit, and charset-aware body decoding.
package whttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// ErrUnexpectedStatus is returned by Fetch for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
}

type WHTTPRes struct {
	StatusCode     int
	ResponseLength int
	HTTPTitle      string
	BodyString     string
}

// Options configures a Client. Zero values fall back to sane defaults.
type Options struct {
	Timeout           time.Duration
	RetryMax          int
	RequestsPerSecond float64
	UserAgent         string
	Proxy             string
}

// Client sends requests with retries and a token bucket per host.
type Client struct {
	retry     *retryablehttp.Client
	userAgent string
	rps       float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	// Hand back the last response once retries run out so callers see its status.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if opts.Timeout > 0 {
		retryClient.HTTPClient.Timeout = opts.Timeout
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		retryClient.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &Client{
		retry:     retryClient,
		userAgent: ua,
		rps:       opts.RequestsPerSecond,
		limiters:  make(map[string]*rate.Limiter),
	}, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[host]
	if !ok {
		limit := rate.Inf
		if c.rps > 0 {
			limit = rate.Limit(c.rps)
		}
		l = rate.NewLimiter(limit, 1)
		c.limiters[host] = l
	}
	return l
}

// SendHTTPRequest performs wReq and returns the decoded body regardless of
// the status code.
func (c *Client) SendHTTPRequest(ctx context.Context, wReq *WHTTPReq) (*WHTTPRes, error) {
	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}

	var body any
	if wReq.Body != nil {
		body = bytes.NewReader(wReq.Body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(req.Host, ":80") {
		req.Host = strings.TrimSuffix(req.Host, ":80")
	} else if strings.HasSuffix(req.Host, ":443") {
		req.Host = strings.TrimSuffix(req.Host, ":443")
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	if err := c.limiter(req.URL.Host).Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding body of %s: %w", wReq.URL, err)
	}
	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}
	if title, ok := getHTMLTitle(wRes.BodyString); ok {
		wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}
	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)
	return wRes, nil
}

// Fetch GETs rawURL and fails on any non-2xx status.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*WHTTPRes, error) {
	res, err := c.SendHTTPRequest(ctx, &WHTTPReq{Method: http.MethodGet, URL: rawURL})
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, res.StatusCode, rawURL)
	}
	return res, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, ok := traverse(c); ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(body string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	return traverse(doc)
}
