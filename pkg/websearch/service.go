package websearch

import (
	"context"
	"errors"
	"strings"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/cache"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/metrics"
)

// ErrEmptyQuery is returned when a query carries no search terms.
var ErrEmptyQuery = errors.New("query has no type, location or date")

// Logger abstracts logging so callers can plug logrus or anything similar.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Query describes what the user is looking for. Every field is optional
// but at least one must be set.
type Query struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Date     string `json:"date"`
}

// Text renders the query sent to the search engine, which doubles as its
// cache key. An empty query renders as "".
func (q Query) Text() string {
	var parts []string
	if t := strings.TrimSpace(q.Type); t != "" {
		parts = append(parts, t)
	}
	if l := strings.TrimSpace(q.Location); l != "" {
		parts = append(parts, "em "+l)
	}
	if d := strings.TrimSpace(q.Date); d != "" {
		parts = append(parts, "em "+d)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Eventos culturais ou atividades " + strings.Join(parts, " ") + " em São Paulo"
}

// Service answers queries from the QueryCache when it can and from the
// search client otherwise.
type Service struct {
	client *Client
	cache  *cache.QueryCache[Result]
	log    Logger
}

func NewService(client *Client, c *cache.QueryCache[Result], log Logger) *Service {
	if log == nil {
		log = nopLogger{}
	}
	return &Service{client: client, cache: c, log: log}
}

// Search returns the results for q. Without an API key it returns no
// results and no error. Only non-empty fresh results are cached, so an
// empty answer is retried on the next call.
func (s *Service) Search(ctx context.Context, q Query) ([]Result, error) {
	key := q.Text()
	if key == "" {
		return nil, ErrEmptyQuery
	}

	if results, ok := s.cache.Get(key); ok {
		s.log.Debugf("Web search cache hit for %q", key)
		return results, nil
	}

	if !s.client.HasAPIKey() {
		metrics.SearchRequests.WithLabelValues("skipped").Inc()
		s.log.Infof("No Tavily API key configured, skipping web search for %q", key)
		return nil, nil
	}

	results, err := s.client.Search(ctx, key)
	if err != nil {
		metrics.SearchRequests.WithLabelValues("failed").Inc()
		s.log.Warnf("Web search for %q failed: %v", key, err)
		return nil, err
	}
	metrics.SearchRequests.WithLabelValues("success").Inc()

	if len(results) > 0 {
		s.cache.Put(key, results)
	}
	s.log.Infof("Web search for %q returned %d results", key, len(results))
	return results, nil
}

// ClearCache drops every cached query.
func (s *Service) ClearCache() {
	s.cache.ClearAll()
}

// CachedQueries returns the number of cached queries.
func (s *Service) CachedQueries() int {
	return s.cache.Len()
}
