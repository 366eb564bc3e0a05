package cmd

import (
	"context"
	"fmt"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/internal/utils"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/aggregator"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/cache"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/collectors"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/collectors/fablab"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/collectors/visitesp"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/collectors/wikipedia"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/config"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/normalize"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/storage"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/websearch"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/whttp"
)

// defaultRegistry knows every collector shipped with smartplaces.
func defaultRegistry() *collectors.Registry {
	r := collectors.NewRegistry()
	r.Register(fablab.Name, fablab.New)
	r.Register(visitesp.Name, visitesp.New)
	r.Register(wikipedia.Name, wikipedia.New)
	return r
}

// app is the wired set of components shared by the commands.
type app struct {
	settings   *config.Settings
	http       *whttp.Client
	collection *cache.CollectionCache
	aggregator *aggregator.Aggregator
	search     *websearch.Service
	journal    *storage.DB
}

func newApp(s *config.Settings) (*app, error) {
	client, err := whttp.NewClient(whttp.Options{
		Timeout:           s.HTTP.Timeout,
		RetryMax:          s.HTTP.RetryMax,
		RequestsPerSecond: s.HTTP.RequestsPerSecond,
		UserAgent:         s.HTTP.UserAgent,
		Proxy:             s.HTTP.Proxy,
	})
	if err != nil {
		return nil, err
	}

	cs, err := defaultRegistry().Build(s.Catalog.Collectors, client)
	if err != nil {
		return nil, err
	}

	collection, err := cache.NewCollectionCache(s.Catalog.RefreshInterval, cache.WithName("catalog"))
	if err != nil {
		return nil, err
	}
	queries, err := cache.NewQueryCache[websearch.Result](s.Search.RefreshInterval, cache.WithName("search"))
	if err != nil {
		return nil, err
	}

	a := &app{settings: s, http: client, collection: collection}

	var journal aggregator.Journal
	if s.Journal.Enabled {
		if journal, err = a.openJournal(); err != nil {
			return nil, err
		}
	}

	a.aggregator, err = aggregator.New(aggregator.Config{
		Cache:            collection,
		Normalizer:       normalize.New(normalize.WithProfiles(collectors.Profiles(cs))),
		Collectors:       cs,
		Concurrency:      s.Catalog.Concurrency,
		CollectorTimeout: s.Catalog.CollectorTimeout,
		WaitTimeout:      s.Catalog.WaitTimeout,
		RefreshTimeout:   s.Catalog.RefreshTimeout,
		FailureCooldown:  s.Catalog.FailureCooldown,
		Journal:          journal,
		Log:              utils.Component("aggregator"),
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.search = websearch.NewService(websearch.NewClient(client, websearch.Options{
		APIKey:         s.Search.APIKey,
		Endpoint:       s.Search.Endpoint,
		MaxResults:     s.Search.MaxResults,
		IncludeDomains: s.Search.IncludeDomains,
		ExcludeDomains: s.Search.ExcludeDomains,
	}), queries, utils.Component("websearch"))

	return a, nil
}

func (a *app) openJournal() (aggregator.Journal, error) {
	path, err := utils.GetAbsJournalPath(a.settings.Journal.Path)
	if err != nil {
		return nil, err
	}
	lock, err := utils.NewJournalLock(path)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	a.journal = db
	return &lockedJournal{db: db, lock: lock}, nil
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			utils.Log.Warnf("Closing journal: %v", err)
		}
	}
}

// lockedJournal serializes journal writes across processes.
type lockedJournal struct {
	db   *storage.DB
	lock *utils.JournalLock
}

func (j *lockedJournal) SyncRecords(ctx context.Context, records []catalog.Record, skipSources ...string) ([]storage.Change, error) {
	if err := j.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := j.lock.Unlock(); err != nil {
			utils.Log.Warnf("Releasing journal lock: %v", err)
		}
	}()

	return j.db.SyncRecords(ctx, records, skipSources...)
}

// openJournalReadOnly opens the journal for the read-only commands.
func openJournalReadOnly(s *config.Settings, override string) (*storage.DB, error) {
	p := s.Journal.Path
	if override != "" {
		p = override
	}
	path, err := utils.GetAbsJournalPath(p)
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}
