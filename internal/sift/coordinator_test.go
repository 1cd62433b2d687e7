package sift_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sift-go/internal/sift"
	"sift-go/internal/testutil"
)

// fakeProcessor tracks concurrency and can hold files until released.
type fakeProcessor struct {
	active  atomic.Int32
	peak    atomic.Int32
	started chan string
	release chan struct{}
	outcome func(path string) sift.Outcome
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		started: make(chan string, 100),
		release: make(chan struct{}),
	}
}

func (p *fakeProcessor) DecideAndApply(_ context.Context, path string, _ int64) sift.Outcome {
	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	p.started <- path
	<-p.release
	p.active.Add(-1)
	if p.outcome != nil {
		return p.outcome(path)
	}
	return sift.Moved{Destination: "/sorted/" + filepath.Base(path), Category: "Docs", Confidence: 0.9}
}

func paths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/inbox/file-%02d.txt", i)
	}
	return out
}

func newCoordinator(t *testing.T, p sift.Processor, workers int, reports sift.ReportWriter) *sift.BulkCoordinator {
	t.Helper()
	c, err := sift.NewBulkCoordinator(p, workers, reports, sift.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("NewBulkCoordinator() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestBulkCoordinator_BoundsConcurrency(t *testing.T) {
	p := newFakeProcessor()
	close(p.release)
	c := newCoordinator(t, p, 3, nil)

	report := c.RunBatch(context.Background(), paths(20), 0)

	if report.Total != 20 || report.Completed != 20 || report.Failed != 0 {
		t.Errorf("report = %d/%d/%d, want 20 total, 20 completed", report.Total, report.Completed, report.Failed)
	}
	if len(report.Results) != 20 {
		t.Errorf("len(Results) = %d, want 20", len(report.Results))
	}
	if peak := p.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestBulkCoordinator_CountsOnlyMovesAsCompleted(t *testing.T) {
	p := newFakeProcessor()
	close(p.release)
	p.outcome = func(path string) sift.Outcome {
		switch {
		case strings.HasSuffix(path, "00.txt"):
			return sift.KeptInPlace{Confidence: 0.2, Reason: sift.ReasonLowConfidence}
		case strings.HasSuffix(path, "01.txt"):
			return sift.Failed{Message: "boom"}
		default:
			return sift.Moved{Destination: "/sorted/x", Category: "Docs", Confidence: 0.9}
		}
	}
	c := newCoordinator(t, p, 2, nil)

	report := c.RunBatch(context.Background(), paths(4), 0)

	if report.Completed != 2 || report.Failed != 2 {
		t.Errorf("Completed = %d, Failed = %d, want 2 and 2", report.Completed, report.Failed)
	}
	if report.Results[1].Outcome.Status() != sift.StatusFailed {
		t.Errorf("Results[1] = %#v, want Failed in input order", report.Results[1])
	}
}

func TestBulkCoordinator_ProgressAndCancel(t *testing.T) {
	p := newFakeProcessor()
	c := newCoordinator(t, p, 2, nil)

	id := c.StartBatch(paths(10), 7)

	// Wait until both workers hold a file.
	for i := 0; i < 2; i++ {
		select {
		case <-p.started:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for workers to start")
		}
	}

	prog, ok := c.Progress(id)
	if !ok {
		t.Fatalf("Progress(%q) not found", id)
	}
	if prog.Total != 10 || prog.InProgress != 2 || len(prog.Inflight) != 2 || prog.FolderID != 7 {
		t.Errorf("Progress() = %+v, want 10 total with 2 in flight", prog)
	}
	if prog.Done() {
		t.Error("Done() = true while files are in flight")
	}

	if !c.Cancel(id) {
		t.Fatal("Cancel() = false, want true")
	}
	close(p.release)

	deadline := time.After(5 * time.Second)
	for {
		prog, _ = c.Progress(id)
		if prog.Done() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("batch did not finish after cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if !prog.Cancelled {
		t.Error("Cancelled = false, want true")
	}
	finished := prog.Completed + prog.Failed
	if finished < 2 || finished >= 10 {
		t.Errorf("finished files = %d, want in-flight files completed and the rest never started", finished)
	}
	if prog.InProgress != 0 {
		t.Errorf("InProgress = %d, want 0", prog.InProgress)
	}
	if c.Cancel(id) {
		t.Error("Cancel() on finished batch = true, want false")
	}
}

func TestBulkCoordinator_UnknownBatch(t *testing.T) {
	c := newCoordinator(t, newFakeProcessor(), 1, nil)
	if _, ok := c.Progress("nope"); ok {
		t.Error("Progress(unknown) found a batch")
	}
	if c.Cancel("nope") {
		t.Error("Cancel(unknown) = true")
	}
}

func TestBulkCoordinator_ForgetsFinishedBatches(t *testing.T) {
	p := newFakeProcessor()
	close(p.release)
	c := newCoordinator(t, p, 1, nil)
	c.SetGracePeriod(10 * time.Millisecond)

	report := c.RunBatch(context.Background(), paths(1), 0)

	deadline := time.After(5 * time.Second)
	for {
		if _, ok := c.Progress(report.ID); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("finished batch still queryable after grace period")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

type capturingReports struct {
	mu      sync.Mutex
	reports []*sift.BatchReport
}

func (c *capturingReports) WriteReport(r *sift.BatchReport) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
	return "/reports/" + r.ID + ".txt", nil
}

func TestBulkCoordinator_WritesReport(t *testing.T) {
	p := newFakeProcessor()
	close(p.release)
	reports := &capturingReports{}
	c := newCoordinator(t, p, 2, reports)

	report := c.RunBatch(context.Background(), paths(3), 0)

	if len(reports.reports) != 1 {
		t.Fatalf("reports written = %d, want 1", len(reports.reports))
	}
	if report.ReportPath != "/reports/id-1.txt" {
		t.Errorf("ReportPath = %q, want /reports/id-1.txt", report.ReportPath)
	}
}

func TestBulkCoordinator_WithEngine(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.99}

	var files []string
	for i := 0; i < 12; i++ {
		files = append(files, h.file(fmt.Sprintf("f%02d.txt", i), "x"))
	}
	// The same path twice in one batch is moved once.
	files = append(files, files[0])

	c := newCoordinator(t, h.engine, 4, nil)
	report := c.RunBatch(context.Background(), files, 0)

	if report.Completed != 12 {
		t.Errorf("Completed = %d, want 12", report.Completed)
	}
	recs, _ := h.history.List(0)
	if len(recs) != 12 {
		t.Errorf("history records = %d, want 12", len(recs))
	}
	entries, _ := os.ReadDir(filepath.Join(h.root, "sorted", "Docs"))
	if len(entries) != 12 {
		t.Errorf("files in destination = %d, want 12", len(entries))
	}
}
