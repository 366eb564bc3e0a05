// Package refresher keeps the catalog warm by calling CollectAll on a cron
// schedule, so user requests rarely pay for a refresh.
package refresher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

// ErrAlreadyStarted is returned by Start when the scheduler is running.
var ErrAlreadyStarted = errors.New("refresher already started")

// Collector is the part of the aggregator the refresher drives. CollectAll
// only refreshes when the catalog is stale, so runs on a fresh catalog are
// cheap.
type Collector interface {
	CollectAll(ctx context.Context) []catalog.Record
}

type Refresher struct {
	log       logrus.FieldLogger
	collector Collector
	schedule  cron.Schedule
	expr      string
	timeout   time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	lastRun time.Time
	runs    int
}

// New parses expr (standard cron or a descriptor such as "@every 1h").
// timeout bounds each run; zero means no bound.
func New(log logrus.FieldLogger, collector Collector, expr string, timeout time.Duration) (*Refresher, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", expr, err)
	}
	return &Refresher{
		log:       log.WithField("component", "refresher"),
		collector: collector,
		schedule:  schedule,
		expr:      expr,
		timeout:   timeout,
	}, nil
}

// Start schedules the job and, when warm is set, runs it once right away.
// It returns immediately; Stop ends the schedule.
func (r *Refresher) Start(ctx context.Context, warm bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(r.schedule, cron.FuncJob(func() { r.RunOnce(ctx) }))
	c.Start()

	r.cron = c
	r.cancel = cancel
	r.log.WithField("schedule", r.expr).Info("Scheduled catalog refresh")

	if warm {
		go r.RunOnce(ctx)
	}
	return nil
}

// RunOnce performs a single collection and logs its outcome.
func (r *Refresher) RunOnce(ctx context.Context) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	records := r.collector.CollectAll(ctx)

	r.mu.Lock()
	r.lastRun = start
	r.runs++
	r.mu.Unlock()

	if len(records) == 0 {
		r.log.Warn("Scheduled refresh left the catalog empty")
		return
	}
	r.log.WithFields(logrus.Fields{
		"records":  len(records),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Scheduled refresh finished")
}

// Next returns the next scheduled run after now.
func (r *Refresher) Next(now time.Time) time.Time {
	return r.schedule.Next(now)
}

// Runs returns how many runs finished and when the last one started.
func (r *Refresher) Runs() (int, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs, r.lastRun
}

// Stop halts the schedule and waits for a running job to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()
	if c == nil {
		return
	}

	cancel()
	<-c.Stop().Done()
	r.log.Info("Stopped catalog refresh")
}
