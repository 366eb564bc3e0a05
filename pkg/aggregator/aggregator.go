// Package aggregator runs the configured collectors, normalizes and merges
// their output and keeps the CollectionCache filled. At most one refresh
// runs per aggregator at any time; every other caller either reads the
// cached snapshot or waits for that refresh.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/cache"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/collectors"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/metrics"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/normalize"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/storage"
)

const (
	defaultConcurrency = 3
	refreshKey         = "collection"
)

var (
	// ErrNoCollectors is returned by New when no collector is configured.
	ErrNoCollectors = errors.New("no collectors configured")
	// ErrInvalidConfig is returned by New for a nil dependency or a
	// non-positive timeout.
	ErrInvalidConfig = errors.New("invalid aggregator config")
	// ErrCollectorPanic wraps the value recovered from a panicking collector.
	ErrCollectorPanic = errors.New("collector panicked")
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Journal receives every snapshot that replaced the cache, along with the
// collectors that failed to contribute to it.
type Journal interface {
	SyncRecords(ctx context.Context, records []catalog.Record, skipSources ...string) ([]storage.Change, error)
}

// Config holds everything an Aggregator needs.
type Config struct {
	Cache      *cache.CollectionCache
	Normalizer *normalize.Normalizer
	Collectors []collectors.Collector // merged in this order

	Concurrency      int           // defaults to 3 if <= 0
	CollectorTimeout time.Duration // bound on a single collector
	WaitTimeout      time.Duration // bound on how long a caller waits for a refresh
	RefreshTimeout   time.Duration // bound on the whole shared refresh
	FailureCooldown  time.Duration // pause after a total failure; 0 disables

	Journal Journal          // optional
	Log     Logger           // optional; nil = no logging
	Now     func() time.Time // optional; defaults to time.Now

	// OnCollectorDone is called once per collector with its raw record count
	// and error, from the refresh goroutines. Nil = no callback.
	OnCollectorDone func(name string, records int, err error)
}

// Report summarizes one refresh.
type Report struct {
	StartedAt  time.Time
	Duration   time.Duration
	Records    int
	Rejected   int
	Duplicates int
	Failed     []string
	Replaced   bool
	Changes    int
}

// Aggregator owns the refresh of one CollectionCache.
type Aggregator struct {
	cfg   Config
	log   Logger
	now   func() time.Time
	group singleflight.Group

	mu         sync.Mutex
	failedAt   time.Time
	lastReport *Report
}

// New validates cfg and returns an Aggregator.
func New(cfg Config) (*Aggregator, error) {
	switch {
	case cfg.Cache == nil:
		return nil, fmt.Errorf("%w: nil cache", ErrInvalidConfig)
	case cfg.Normalizer == nil:
		return nil, fmt.Errorf("%w: nil normalizer", ErrInvalidConfig)
	case len(cfg.Collectors) == 0:
		return nil, ErrNoCollectors
	case cfg.CollectorTimeout <= 0, cfg.WaitTimeout <= 0, cfg.RefreshTimeout <= 0:
		return nil, fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case cfg.FailureCooldown < 0:
		return nil, fmt.Errorf("%w: negative failure cooldown", ErrInvalidConfig)
	}
	for _, c := range cfg.Collectors {
		if c.Name == "" || c.Collect == nil {
			return nil, fmt.Errorf("%w: collector without name or func", ErrInvalidConfig)
		}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	a := &Aggregator{cfg: cfg, log: cfg.Log, now: cfg.Now}
	if a.log == nil {
		a.log = nopLogger{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// CollectAll returns the catalog, refreshing it first when it is stale.
// Collector and normalization failures never surface here: on failure, on
// cancellation of ctx, or after WaitTimeout the current snapshot is returned
// as is, possibly stale or empty.
func (a *Aggregator) CollectAll(ctx context.Context) []catalog.Record {
	if !a.needsRefresh() {
		return a.cfg.Cache.Get()
	}

	ch := a.group.DoChan(refreshKey, func() (interface{}, error) {
		// A refresh may have completed between the check above and here.
		if !a.needsRefresh() {
			return nil, nil
		}
		rctx, cancel := context.WithTimeout(context.Background(), a.cfg.RefreshTimeout)
		defer cancel()
		report := a.refresh(rctx)
		return report, nil
	})

	timer := time.NewTimer(a.cfg.WaitTimeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-ctx.Done():
		a.log.Debugf("Caller gave up waiting for catalog refresh: %v", ctx.Err())
	case <-timer.C:
		a.log.Warnf("Catalog refresh still running after %s, serving current snapshot", a.cfg.WaitTimeout)
	}
	return a.cfg.Cache.Get()
}

// LastReport returns the summary of the most recent refresh attempt.
func (a *Aggregator) LastReport() (Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lastReport == nil {
		return Report{}, false
	}
	r := *a.lastReport
	r.Failed = append([]string(nil), r.Failed...)
	return r, true
}

// Collectors returns the names of the configured collectors in merge order.
func (a *Aggregator) Collectors() []string {
	names := make([]string, 0, len(a.cfg.Collectors))
	for _, c := range a.cfg.Collectors {
		names = append(names, c.Name)
	}
	return names
}

func (a *Aggregator) needsRefresh() bool {
	if !a.cfg.Cache.ShouldRefresh() {
		return false
	}
	return !a.coolingDown()
}

func (a *Aggregator) coolingDown() bool {
	if a.cfg.FailureCooldown <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	return !a.failedAt.IsZero() && a.now().Sub(a.failedAt) < a.cfg.FailureCooldown
}

// collectorResult is an internal type returned by runCollector.
type collectorResult struct {
	name    string
	records []catalog.RawRecord
	err     error
}

// refresh runs one full collection and updates the cache.
func (a *Aggregator) refresh(ctx context.Context) *Report {
	started := a.now()
	report := &Report{StartedAt: started}
	defer func() {
		report.Duration = a.now().Sub(started)
		metrics.RefreshDuration.Observe(report.Duration.Seconds())
		a.mu.Lock()
		a.lastReport = report
		a.mu.Unlock()
	}()

	a.log.Infof("Refreshing catalog from %d collectors", len(a.cfg.Collectors))
	results := a.runCollectors(ctx)

	merged := make([]catalog.Record, 0)
	seen := make(map[string]bool)
	for _, res := range results {
		if res.err != nil {
			report.Failed = append(report.Failed, res.name)
			continue
		}
		for _, raw := range res.records {
			rec, err := a.cfg.Normalizer.Normalize(res.name, raw)
			if err != nil {
				report.Rejected++
				metrics.RecordsRejected.WithLabelValues(res.name, rejectReason(err)).Inc()
				a.log.Debugf("Rejected record from %s: %v", res.name, err)
				continue
			}
			if seen[rec.ID] {
				report.Duplicates++
				a.log.Debugf("Dropping duplicate record %s (%s) from %s", rec.ID, rec.Name, res.name)
				continue
			}
			seen[rec.ID] = true
			merged = append(merged, rec)
		}
	}
	report.Records = len(merged)

	if len(report.Failed) == len(results) {
		a.mu.Lock()
		a.failedAt = a.now()
		a.mu.Unlock()
		metrics.RefreshesTotal.WithLabelValues("failed").Inc()
		a.log.Errorf("Every collector failed (%v), keeping the previous catalog of %d records", report.Failed, a.cfg.Cache.Len())
		return report
	}

	partial := len(report.Failed) > 0
	report.Replaced = a.cfg.Cache.Replace(merged, partial)
	switch {
	case !report.Replaced:
		metrics.RefreshesTotal.WithLabelValues("skipped").Inc()
		a.log.Warnf("Collectors %v failed and the rest returned nothing, keeping the previous catalog", report.Failed)
		return report
	case partial:
		metrics.RefreshesTotal.WithLabelValues("partial").Inc()
		a.log.Warnf("Catalog refreshed with %d records, collectors %v failed", len(merged), report.Failed)
	default:
		metrics.RefreshesTotal.WithLabelValues("replaced").Inc()
		a.log.Infof("Catalog refreshed with %d records", len(merged))
	}

	if a.cfg.Journal != nil {
		changes, err := a.cfg.Journal.SyncRecords(ctx, merged, report.Failed...)
		if err != nil {
			a.log.Warnf("Could not journal catalog changes: %v", err)
		}
		report.Changes = len(changes)
	}
	return report
}

// runCollectors fans out over the collectors with bounded concurrency and
// returns their results in registration order.
func (a *Aggregator) runCollectors(ctx context.Context) []collectorResult {
	results := make([]collectorResult, len(a.cfg.Collectors))
	sem := semaphore.NewWeighted(int64(a.cfg.Concurrency))

	var wg sync.WaitGroup
	for i, c := range a.cfg.Collectors {
		results[i].name = c.Name
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].err = err
			a.log.Warnf("Collector %s not started: %v", c.Name, err)
			continue
		}
		wg.Add(1)
		go func(i int, c collectors.Collector) {
			defer wg.Done()
			defer sem.Release(1)

			records, err := a.runCollector(ctx, c)
			results[i].records = records
			results[i].err = err
			metrics.CollectorRecords.WithLabelValues(c.Name).Set(float64(len(records)))
			if a.cfg.OnCollectorDone != nil {
				a.cfg.OnCollectorDone(c.Name, len(records), err)
			}
		}(i, c)
	}
	wg.Wait()
	return results
}

// runCollector runs a single collector under CollectorTimeout. A collector
// that ignores its context is abandoned once the timeout fires.
func (a *Aggregator) runCollector(ctx context.Context, c collectors.Collector) ([]catalog.RawRecord, error) {
	cctx, cancel := context.WithTimeout(ctx, a.cfg.CollectorTimeout)
	defer cancel()

	type outcome struct {
		records []catalog.RawRecord
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrCollectorPanic, r)}
			}
		}()
		records, err := c.Collect(cctx)
		done <- outcome{records: records, err: err}
	}()

	select {
	case o := <-done:
		switch {
		case errors.Is(o.err, ErrCollectorPanic):
			metrics.CollectorRuns.WithLabelValues(c.Name, "panic").Inc()
			a.log.Errorf("Collector %s panicked: %v", c.Name, o.err)
			return nil, o.err
		case o.err != nil:
			metrics.CollectorRuns.WithLabelValues(c.Name, "failed").Inc()
			a.log.Warnf("Collector %s failed: %v", c.Name, o.err)
			return nil, o.err
		}
		metrics.CollectorRuns.WithLabelValues(c.Name, "success").Inc()
		a.log.Debugf("Collector %s returned %d raw records", c.Name, len(o.records))
		return o.records, nil
	case <-cctx.Done():
		metrics.CollectorRuns.WithLabelValues(c.Name, "timeout").Inc()
		a.log.Warnf("Collector %s timed out after %s", c.Name, a.cfg.CollectorTimeout)
		return nil, fmt.Errorf("collector %s: %w", c.Name, cctx.Err())
	}
}

func rejectReason(err error) string {
	if errors.Is(err, normalize.ErrMissingName) {
		return "missing_name"
	}
	return "other"
}
