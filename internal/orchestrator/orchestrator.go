// Package orchestrator runs the two-stage concurrent pipeline: Stage A
// enumerates product URLs per category leaf, Stage B extracts a product
// record per URL. Both stages use a bounded worker pool built on
// golang.org/x/sync/errgroup and golang.org/x/sync/semaphore, with eager
// task submission, incremental progress callbacks, and per-task failure
// isolation — one task's error is logged and the stage continues rather
// than aborting the run.
package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/category"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/collector"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
)

// Progress is invoked after each completed task in either stage.
type Progress func(stage string, done, total int)

// IncrementalSink is invoked after every Stage B task that yields a record
// (excluded URLs and failed tasks do not trigger it) with the full set of
// records extracted so far, letting a caller persist partial
// progress (e.g. to a scratch file) so a crash mid-run doesn't lose
// everything already extracted. A sink error is logged and does not abort
// the run.
type IncrementalSink func(records []*product.Record) error

// Config controls pool width, progress reporting, and optional incremental
// persistence.
type Config struct {
	MaxWorkers      int
	OnProgress      Progress
	Logger          *zap.SugaredLogger
	IncrementalSink IncrementalSink
}

// Orchestrator drives Stage A and Stage B over a Collector and Extractor.
// Each instance carries its own run ID, attached to every log line it
// emits, so concurrent or successive runs can be told apart in a shared log
// stream.
type Orchestrator struct {
	cfg       Config
	collector *collector.Collector
	extractor *product.Extractor
	runID     string
}

// New builds an Orchestrator. MaxWorkers defaults to 8 when unset.
func New(cfg Config, c *collector.Collector, e *product.Extractor) *Orchestrator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.OnProgress == nil {
		cfg.OnProgress = func(string, int, int) {}
	}
	runID := uuid.NewString()
	cfg.Logger = cfg.Logger.With("run_id", runID)
	return &Orchestrator{cfg: cfg, collector: c, extractor: e, runID: runID}
}

// RunID returns the correlation ID attached to every log line this
// Orchestrator emits.
func (o *Orchestrator) RunID() string { return o.runID }

// RunStageA enumerates product URLs across every leaf of tree, fanning the
// per-leaf results into one deduplicated slice. A single leaf's failure is
// logged and does not abort the stage.
func (o *Orchestrator) RunStageA(ctx context.Context, tree []*category.Node) ([]collector.ProductURL, error) {
	var leaves []*category.Node
	for _, n := range category.Flatten(tree) {
		if len(n.Subs) == 0 {
			leaves = append(leaves, n)
		}
	}
	total := len(leaves)

	sem := semaphore.NewWeighted(int64(o.cfg.MaxWorkers))
	var mu sync.Mutex
	seen := make(map[string]bool)
	var all []collector.ProductURL
	var done int

	g, gctx := errgroup.WithContext(ctx)
	for _, leaf := range leaves {
		leaf := leaf
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if gctx.Err() != nil {
				return nil
			}
			urls, err := o.collector.CollectLeaf(gctx, leaf)
			if err != nil {
				o.cfg.Logger.Errorw("stage A task failed", "category", leaf.URL, "error", err)
			}
			mu.Lock()
			for _, u := range urls {
				if !seen[u.URL] {
					seen[u.URL] = true
					all = append(all, u)
				}
			}
			done++
			d := done
			mu.Unlock()
			o.cfg.OnProgress("collect", d, total)
			return nil
		})
	}
	_ = g.Wait()
	return all, ctx.Err()
}

// RunStageB extracts a Record per product URL, fanning results into one
// slice deduplicated by (SKU, canonical URL). A single URL's failure is
// logged and does not abort the stage. Cancellation stops new task
// submission; tasks already fetched are still extracted so no fetched work
// is discarded silently.
func (o *Orchestrator) RunStageB(ctx context.Context, tree []*category.Node, urls []collector.ProductURL) ([]*product.Record, error) {
	total := len(urls)

	sem := semaphore.NewWeighted(int64(o.cfg.MaxWorkers))
	var mu sync.Mutex
	type key struct{ sku, url string }
	seen := make(map[key]bool)
	var records []*product.Record
	var done int

	g, gctx := errgroup.WithContext(ctx)
	for _, pu := range urls {
		pu := pu
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			rec, err := o.extractor.Extract(gctx, pu.URL, tree)
			if err != nil {
				o.cfg.Logger.Errorw("stage B task failed", "url", pu.URL, "error", err)
			}
			var snapshot []*product.Record
			if rec != nil {
				k := key{sku: rec.SKU, url: rec.ProductURL}
				mu.Lock()
				if !seen[k] {
					seen[k] = true
					records = append(records, rec)
				}
				if o.cfg.IncrementalSink != nil {
					snapshot = append(snapshot, records...)
				}
				mu.Unlock()
			}
			mu.Lock()
			done++
			d := done
			mu.Unlock()
			o.cfg.OnProgress("extract", d, total)
			if snapshot != nil {
				if err := o.cfg.IncrementalSink(snapshot); err != nil {
					o.cfg.Logger.Warnw("incremental sink failed", "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return records, ctx.Err()
}

// Run drives Stage A followed by Stage B to completion, returning every
// extracted record. Stage A completes fully before Stage B begins; within
// each stage no ordering is preserved.
func (o *Orchestrator) Run(ctx context.Context, tree []*category.Node) ([]*product.Record, error) {
	urls, err := o.RunStageA(ctx, tree)
	if err != nil && len(urls) == 0 {
		return nil, err
	}
	records, err := o.RunStageB(ctx, tree, urls)
	if err != nil && len(records) == 0 {
		return records, err
	}
	return records, nil
}
