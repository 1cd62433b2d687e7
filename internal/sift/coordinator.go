package sift

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Processor processes a single file. *Engine is the production implementation.
type Processor interface {
	DecideAndApply(ctx context.Context, path string, folderID int64) Outcome
}

// FileResult pairs a path with its outcome.
type FileResult struct {
	Path    string
	Outcome Outcome
}

// BatchProgress is a snapshot of a running or finished batch.
type BatchProgress struct {
	ID         string     `json:"id"`
	FolderID   int64      `json:"folder_id,omitempty"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	InProgress int        `json:"in_progress"`
	Inflight   []string   `json:"inflight"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Cancelled  bool       `json:"cancelled"`
}

// Done reports whether the batch has finished.
func (p BatchProgress) Done() bool { return p.FinishedAt != nil }

// BatchReport is the result of a finished batch.
type BatchReport struct {
	ID         string
	Total      int
	Completed  int
	Failed     int
	Elapsed    time.Duration
	Results    []FileResult
	Cancelled  bool
	StartedAt  time.Time
	ReportPath string
}

// ElapsedSeconds is the wall time of the batch in seconds.
func (r *BatchReport) ElapsedSeconds() float64 { return r.Elapsed.Seconds() }

// ReportWriter persists a summary of a finished batch and returns where it went.
type ReportWriter interface {
	WriteReport(report *BatchReport) (string, error)
}

// BulkCoordinator runs batches of files through a shared, bounded worker pool.
type BulkCoordinator struct {
	processor Processor
	pool      *ants.Pool
	reports   ReportWriter
	logger    Logger
	clock     Clock
	ids       IDGenerator
	grace     time.Duration

	mu      sync.Mutex
	batches map[string]*batch
}

type batch struct {
	mu       sync.Mutex
	progress BatchProgress
	inflight map[string]struct{}
	cancel   context.CancelFunc
}

// DefaultGracePeriod is how long finished batch snapshots stay queryable.
const DefaultGracePeriod = 10 * time.Minute

// NewBulkCoordinator creates a coordinator with workers concurrent files.
// reports may be nil.
func NewBulkCoordinator(processor Processor, workers int, reports ReportWriter, logger Logger, clock Clock, ids IDGenerator) (*BulkCoordinator, error) {
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p any) {
		logger.Error("worker panic", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	return &BulkCoordinator{
		processor: processor,
		pool:      pool,
		reports:   reports,
		logger:    logger,
		clock:     clock,
		ids:       ids,
		grace:     DefaultGracePeriod,
		batches:   make(map[string]*batch),
	}, nil
}

// SetGracePeriod changes how long finished batches remain queryable.
func (c *BulkCoordinator) SetGracePeriod(d time.Duration) { c.grace = d }

// RunBatch processes paths and blocks until every started file has finished.
// Cancelling ctx stops new files from starting; files already in flight complete.
func (c *BulkCoordinator) RunBatch(ctx context.Context, paths []string, folderID int64) *BatchReport {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b := c.register(paths, folderID, cancel)
	return c.run(ctx, b, paths, folderID)
}

// StartBatch begins processing paths in the background and returns the batch id.
func (c *BulkCoordinator) StartBatch(paths []string, folderID int64) string {
	ctx, cancel := context.WithCancel(context.Background())
	b := c.register(paths, folderID, cancel)
	id := b.progress.ID
	go func() {
		defer cancel()
		c.run(ctx, b, paths, folderID)
	}()
	return id
}

// Progress returns a snapshot of batch id.
func (c *BulkCoordinator) Progress(id string) (BatchProgress, bool) {
	c.mu.Lock()
	b, ok := c.batches[id]
	c.mu.Unlock()
	if !ok {
		return BatchProgress{}, false
	}
	return b.snapshot(), true
}

// Cancel requests cooperative cancellation of batch id.
func (c *BulkCoordinator) Cancel(id string) bool {
	c.mu.Lock()
	b, ok := c.batches[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	b.mu.Lock()
	done := b.progress.FinishedAt != nil
	if !done {
		b.progress.Cancelled = true
	}
	b.mu.Unlock()
	if done {
		return false
	}
	b.cancel()
	return true
}

// Close releases the worker pool.
func (c *BulkCoordinator) Close() {
	c.pool.Release()
}

func (c *BulkCoordinator) register(paths []string, folderID int64, cancel context.CancelFunc) *batch {
	b := &batch{
		progress: BatchProgress{
			ID:        c.ids.New(),
			FolderID:  folderID,
			Total:     len(paths),
			StartedAt: c.clock.Now(),
		},
		inflight: make(map[string]struct{}),
		cancel:   cancel,
	}
	c.mu.Lock()
	c.batches[b.progress.ID] = b
	c.mu.Unlock()
	return b
}

func (c *BulkCoordinator) run(ctx context.Context, b *batch, paths []string, folderID int64) *BatchReport {
	started := b.progress.StartedAt
	c.logger.Info("batch started", "batch_id", b.progress.ID, "files", len(paths))

	// Files that have started are allowed to finish even after cancellation.
	fileCtx := context.WithoutCancel(ctx)

	results := make([]*FileResult, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			b.start(p)
			out := c.processor.DecideAndApply(fileCtx, p, folderID)
			b.finish(p, out)
			results[i] = &FileResult{Path: p, Outcome: out}
		})
		if err != nil {
			wg.Done()
			out := Failed{Message: fmt.Sprintf("submitting to worker pool: %v", err)}
			b.start(p)
			b.finish(p, out)
			results[i] = &FileResult{Path: p, Outcome: out}
		}
	}
	wg.Wait()

	finished := c.clock.Now()
	b.mu.Lock()
	b.progress.FinishedAt = &finished
	if ctx.Err() != nil {
		b.progress.Cancelled = true
	}
	report := &BatchReport{
		ID:        b.progress.ID,
		Total:     b.progress.Total,
		Completed: b.progress.Completed,
		Failed:    b.progress.Failed,
		Elapsed:   finished.Sub(started),
		Cancelled: b.progress.Cancelled,
		StartedAt: started,
	}
	b.mu.Unlock()

	for _, r := range results {
		if r != nil {
			report.Results = append(report.Results, *r)
		}
	}

	if c.reports != nil && len(report.Results) > 0 {
		path, err := c.reports.WriteReport(report)
		if err != nil {
			c.logger.Warn("writing batch report", "batch_id", report.ID, "error", err)
		}
		report.ReportPath = path
	}

	c.logger.Info("batch finished", "batch_id", report.ID, "completed", report.Completed,
		"failed", report.Failed, "cancelled", report.Cancelled)

	id := report.ID
	time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		delete(c.batches, id)
		c.mu.Unlock()
	})

	return report
}

func (b *batch) start(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight[path] = struct{}{}
	b.progress.InProgress = len(b.inflight)
}

func (b *batch) finish(path string, out Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, path)
	b.progress.InProgress = len(b.inflight)
	if _, ok := out.(Moved); ok {
		b.progress.Completed++
	} else {
		b.progress.Failed++
	}
}

func (b *batch) snapshot() BatchProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.progress
	p.Inflight = make([]string, 0, len(b.inflight))
	for path := range b.inflight {
		p.Inflight = append(p.Inflight, path)
	}
	sort.Strings(p.Inflight)
	return p
}
