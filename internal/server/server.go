// Package server exposes the catalog, the web search and the change journal
// over a small JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/aggregator"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/storage"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/websearch"
)

const shutdownTimeout = 10 * time.Second

// Catalog is the aggregator side of the API.
type Catalog interface {
	CollectAll(ctx context.Context) []catalog.Record
	LastReport() (aggregator.Report, bool)
	Collectors() []string
}

// Snapshot reports on the collection cache without triggering a refresh.
type Snapshot interface {
	LastRefreshed() (time.Time, bool)
	Len() int
	Interval() time.Duration
}

// Searcher is the web search side of the API.
type Searcher interface {
	Search(ctx context.Context, q websearch.Query) ([]websearch.Result, error)
	ClearCache()
	CachedQueries() int
}

// Journal is the change journal side of the API.
type Journal interface {
	ListRecentChanges(ctx context.Context, f storage.ChangeFilter) ([]storage.Change, error)
	GetStats(ctx context.Context) ([]storage.SourceStats, error)
}

type Server struct {
	Catalog  Catalog
	Snapshot Snapshot
	Search   Searcher
	Journal  Journal // nil when the journal is disabled
	Username string
	Password string
	Log      logrus.FieldLogger
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/records", s.basicAuth(s.handleRecords))
	mux.HandleFunc("GET /api/search", s.basicAuth(s.handleSearch))
	mux.HandleFunc("DELETE /api/search/cache", s.basicAuth(s.handleClearSearchCache))
	mux.HandleFunc("GET /api/changes", s.basicAuth(s.handleChanges))
	mux.HandleFunc("GET /api/status", s.basicAuth(s.handleStatus))
	mux.Handle("GET /metrics", s.basicAuthMiddleware(promhttp.Handler()))

	return mux
}

// Start serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger().WithField("addr", addr).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger().Info("Server stopped")
	return nil
}

func (s *Server) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Server) authorized(r *http.Request) bool {
	if s.Username == "" && s.Password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	return ok && user == s.Username && pass == s.Password
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return s.basicAuth(next.ServeHTTP)
}
