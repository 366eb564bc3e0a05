// Package websearch complements the collected catalog with live web search
// results from the Tavily API, cached per query.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/whttp"
)

const (
	DefaultEndpoint   = "https://api.tavily.com/search"
	DefaultMaxResults = 7
)

var (
	// ErrMissingAPIKey is returned when searching without a Tavily key.
	ErrMissingAPIKey = errors.New("tavily API key not configured")
	// ErrSearchFailed wraps non-2xx answers of the search API.
	ErrSearchFailed = errors.New("web search failed")
)

// Result is one web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Domain  string  `json:"domain"`
}

// Sender is the subset of whttp.Client the search client needs.
type Sender interface {
	SendHTTPRequest(ctx context.Context, req *whttp.WHTTPReq) (*whttp.WHTTPRes, error)
}

// Options configures the Tavily client.
type Options struct {
	APIKey         string
	Endpoint       string
	MaxResults     int
	IncludeDomains []string
	ExcludeDomains []string
}

// Client talks to the Tavily search endpoint.
type Client struct {
	sender Sender
	opts   Options
}

func NewClient(sender Sender, opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	return &Client{sender: sender, opts: opts}
}

// HasAPIKey reports whether searches can be issued at all.
func (c *Client) HasAPIKey() bool { return c.opts.APIKey != "" }

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

// Search runs query against Tavily with advanced depth.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(searchRequest{
		APIKey:         c.opts.APIKey,
		Query:          query,
		SearchDepth:    "advanced",
		MaxResults:     c.opts.MaxResults,
		IncludeDomains: c.opts.IncludeDomains,
		ExcludeDomains: c.opts.ExcludeDomains,
	})
	if err != nil {
		return nil, err
	}

	res, err := c.sender.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: http.MethodPost,
		URL:    c.opts.Endpoint,
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "Authorization", Value: "Bearer " + c.opts.APIKey},
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := gjson.Get(res.BodyString, "detail.error").String()
		if msg == "" {
			msg = gjson.Get(res.BodyString, "detail").String()
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, res.StatusCode, msg)
	}

	return parseResults(res.BodyString), nil
}

func parseResults(body string) []Result {
	var results []Result
	gjson.Get(body, "results").ForEach(func(_, value gjson.Result) bool {
		r := Result{
			Title:   strings.TrimSpace(value.Get("title").String()),
			URL:     strings.TrimSpace(value.Get("url").String()),
			Content: strings.TrimSpace(value.Get("content").String()),
			Score:   value.Get("score").Float(),
		}
		if r.URL == "" {
			return true
		}
		r.Domain = registrableDomain(r.URL)
		results = append(results, r)
		return true
	})
	return results
}

// registrableDomain returns the eTLD+1 of rawURL, or its host when the
// public suffix list cannot place it.
func registrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return domain
}
