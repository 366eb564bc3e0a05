package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/storage"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/websearch"
)

const (
	defaultChangesLimit = 50
	maxChangesLimit     = 1000
)

type recordsResponse struct {
	Count   int              `json:"count"`
	Records []catalog.Record `json:"records"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []websearch.Result `json:"results"`
}

type reportStatus struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Records    int       `json:"records"`
	Rejected   int       `json:"rejected"`
	Duplicates int       `json:"duplicates"`
	Failed     []string  `json:"failed"`
	Replaced   bool      `json:"replaced"`
	Changes    int       `json:"changes"`
}

type statusResponse struct {
	Collectors      []string              `json:"collectors"`
	Records         int                   `json:"records"`
	RefreshInterval string                `json:"refresh_interval"`
	LastRefreshed   *time.Time            `json:"last_refreshed,omitempty"`
	LastReport      *reportStatus         `json:"last_report,omitempty"`
	CachedQueries   int                   `json:"cached_queries"`
	Journal         []storage.SourceStats `json:"journal,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := catalog.FilterOptions{
		Type:         q.Get("type"),
		Neighborhood: q.Get("neighborhood"),
		Date:         q.Get("date"),
		Source:       q.Get("source"),
	}

	records := catalog.Filter(s.Catalog.CollectAll(r.Context()), opts)
	writeJSON(w, http.StatusOK, recordsResponse{Count: len(records), Records: records})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := websearch.Query{
		Type:     q.Get("type"),
		Location: q.Get("location"),
		Date:     q.Get("date"),
	}

	results, err := s.Search.Search(r.Context(), query)
	if errors.Is(err, websearch.ErrEmptyQuery) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if results == nil {
		results = []websearch.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query.Text(), Results: results})
}

func (s *Server) handleClearSearchCache(w http.ResponseWriter, r *http.Request) {
	s.Search.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "change journal is disabled", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	filter := storage.ChangeFilter{Limit: defaultChangesLimit, Source: q.Get("source")}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = min(limit, maxChangesLimit)
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "since must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}

	changes, err := s.Journal.ListRecentChanges(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if changes == nil {
		changes = []storage.Change{}
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Collectors:      s.Catalog.Collectors(),
		Records:         s.Snapshot.Len(),
		RefreshInterval: s.Snapshot.Interval().String(),
	}
	if ts, ok := s.Snapshot.LastRefreshed(); ok {
		resp.LastRefreshed = &ts
	}
	if rep, ok := s.Catalog.LastReport(); ok {
		resp.LastReport = &reportStatus{
			StartedAt:  rep.StartedAt,
			DurationMS: rep.Duration.Milliseconds(),
			Records:    rep.Records,
			Rejected:   rep.Rejected,
			Duplicates: rep.Duplicates,
			Failed:     rep.Failed,
			Replaced:   rep.Replaced,
			Changes:    rep.Changes,
		}
	}
	if s.Search != nil {
		resp.CachedQueries = s.Search.CachedQueries()
	}
	if s.Journal != nil {
		stats, err := s.Journal.GetStats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Journal = stats
	}
	writeJSON(w, http.StatusOK, resp)
}
