package sift_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sift-go/internal/database"
	siftfs "sift-go/internal/fs"
	"sift-go/internal/model"
	"sift-go/internal/sift"
	"sift-go/internal/testutil"
)

type indexCall struct {
	path     string
	category string
}

// recordingIndexer remembers Index and Relocate calls.
type recordingIndexer struct {
	mu        sync.Mutex
	indexed   []indexCall
	relocated [][2]string
}

func (r *recordingIndexer) Index(_ context.Context, path string, _ *sift.ExtractedContent, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, indexCall{path: path, category: category})
	return nil
}

func (r *recordingIndexer) Relocate(oldPath, newPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relocated = append(r.relocated, [2]string{oldPath, newPath})
	return nil
}

type harness struct {
	t          *testing.T
	root       string
	inbox      string
	db         *database.SQLiteDatabase
	fsmgr      *siftfs.OSFilesystemManager
	classifier *testutil.StubClassifier
	extractor  *testutil.StubExtractor
	settings   *sift.SettingsHolder
	clock      *testutil.StubClock
	cache      *sift.IdempotencyCache
	history    *sift.MovementHistory
	indexer    *recordingIndexer
	backups    sift.BackupSink
	engine     *sift.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()

	s := sift.DefaultSettings()
	s.ReviewDir = filepath.Join(root, "Review")

	h := &harness{
		t:          t,
		root:       root,
		inbox:      filepath.Join(root, "inbox"),
		db:         testutil.NewTestDatabase(t),
		fsmgr:      siftfs.NewOSFilesystemManager(nil),
		classifier: &testutil.StubClassifier{},
		extractor:  &testutil.StubExtractor{Text: "some text"},
		settings:   sift.NewSettingsHolder(s),
		clock:      testutil.FixedClock(),
		indexer:    &recordingIndexer{},
	}
	h.build()
	return h
}

// build wires the engine; call again after changing collaborators.
func (h *harness) build() {
	logger := sift.NewNopLogger()
	h.cache = sift.NewIdempotencyCache(h.db, h.fsmgr, h.clock, logger)
	h.history = sift.NewMovementHistory(h.db, h.fsmgr, h.cache, h.indexer, h.settings, h.clock, logger)
	h.engine = sift.NewEngine(sift.EngineDeps{
		Cache:      h.cache,
		Categories: h.db,
		Folders:    h.db,
		History:    h.history,
		Filesystem: h.fsmgr,
		Extractor:  h.extractor,
		Classifier: h.classifier,
		Indexer:    h.indexer,
		Backups:    h.backups,
		Settings:   h.settings,
		Logger:     logger,
		Clock:      h.clock,
	})
}

func (h *harness) addCategory(name string) string {
	h.t.Helper()
	dest := filepath.Join(h.root, "sorted", name)
	if _, err := h.db.CreateCategory(name, dest); err != nil {
		h.t.Fatalf("CreateCategory() error = %v", err)
	}
	return dest
}

func (h *harness) file(name, content string) string {
	h.t.Helper()
	path := testutil.WriteFile(h.t, filepath.Join(h.inbox, name), content)
	testutil.SetModTime(h.t, path, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	return path
}

func (h *harness) updateSettings(fn func(*sift.Settings)) {
	s := h.settings.Settings()
	fn(&s)
	h.settings.Store(s)
}

func (h *harness) process(path string) sift.Outcome {
	return h.engine.DecideAndApply(context.Background(), path, 0)
}

func TestEngine_MovesConfidentFile(t *testing.T) {
	h := newHarness(t)
	dest := h.addCategory("Invoices")
	h.classifier.Result = sift.Classification{Category: "Invoices", Confidence: 0.92}
	path := h.file("bill.txt", "invoice total due")

	out := h.process(path)

	moved, ok := out.(sift.Moved)
	if !ok {
		t.Fatalf("DecideAndApply() = %#v, want Moved", out)
	}
	want := filepath.Join(dest, "bill.txt")
	if moved.Destination != want {
		t.Errorf("Destination = %q, want %q", moved.Destination, want)
	}
	if moved.Category != "Invoices" || moved.Confidence != 0.92 {
		t.Errorf("Moved = %+v, want Invoices at 0.92", moved)
	}
	if got := h.classifier.LastCandidates(); len(got) != 1 || got[0] != "Invoices" {
		t.Errorf("candidates = %v, want [Invoices]", got)
	}
	if testutil.Exists(path) {
		t.Error("source still exists after move")
	}
	if got := testutil.ReadFile(t, want); got != "invoice total due" {
		t.Errorf("destination content = %q", got)
	}

	rec, err := h.history.Get(moved.RecordID)
	if err != nil {
		t.Fatalf("history.Get() error = %v", err)
	}
	if rec.FromPath != path || rec.ToPath != want || rec.Status != model.MovementCompleted {
		t.Errorf("record = %+v, want completed move from %s", rec, path)
	}
	if rec.ConfidenceLabel() != "92%" {
		t.Errorf("ConfidenceLabel() = %q, want 92%%", rec.ConfidenceLabel())
	}

	entry, err := h.cache.Lookup(path)
	if err != nil || entry == nil {
		t.Fatalf("cache entry = %v, %v; want entry", entry, err)
	}
	if entry.Status != "moved" {
		t.Errorf("cache status = %q, want moved", entry.Status)
	}

	if len(h.indexer.indexed) != 1 || h.indexer.indexed[0].path != want {
		t.Errorf("indexer calls = %v, want one call for %s", h.indexer.indexed, want)
	}
}

func TestEngine_LowConfidenceKeepsFile(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Invoices")
	h.classifier.Result = sift.Classification{Category: "Invoices", Confidence: 0.5}
	path := h.file("maybe.txt", "hmm")

	out := h.process(path)

	kept, ok := out.(sift.KeptInPlace)
	if !ok {
		t.Fatalf("DecideAndApply() = %#v, want KeptInPlace", out)
	}
	if kept.Reason != sift.ReasonLowConfidence || kept.Confidence != 0.5 {
		t.Errorf("KeptInPlace = %+v, want low confidence 0.5", kept)
	}
	if !testutil.Exists(path) {
		t.Error("file was moved")
	}
	recs, _ := h.history.List(0)
	if len(recs) != 0 {
		t.Errorf("history has %d records, want 0", len(recs))
	}
}

func TestEngine_ReviewFallback(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Invoices")
	h.updateSettings(func(s *sift.Settings) { s.Fallback = sift.FallbackReview })
	h.classifier.Result = sift.Classification{Category: "Invoices", Confidence: 0.3}
	path := h.file("unsure.txt", "?")

	out := h.process(path)

	moved, ok := out.(sift.Moved)
	if !ok {
		t.Fatalf("DecideAndApply() = %#v, want Moved", out)
	}
	if moved.Category != sift.ReviewCategory {
		t.Errorf("Category = %q, want %q", moved.Category, sift.ReviewCategory)
	}
	if moved.Destination != filepath.Join(h.root, "Review", "unsure.txt") {
		t.Errorf("Destination = %q, want review folder", moved.Destination)
	}
}

func TestEngine_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		fileType   sift.FileType
		wantMoved  bool
	}{
		{name: "text at threshold", confidence: 0.85, fileType: sift.FileTypeDocument, wantMoved: true},
		{name: "text just below", confidence: 0.849, fileType: sift.FileTypeDocument, wantMoved: false},
		{name: "percentage scale at threshold", confidence: 85, fileType: sift.FileTypeDocument, wantMoved: true},
		{name: "image uses image threshold", confidence: 0.80, fileType: sift.FileTypeImage, wantMoved: true},
		{name: "video uses video threshold", confidence: 0.70, fileType: sift.FileTypeVideo, wantMoved: true},
		{name: "audio below audio threshold", confidence: 0.74, fileType: sift.FileTypeAudio, wantMoved: false},
		{name: "unknown type uses text threshold", confidence: 0.80, fileType: sift.FileTypeOther, wantMoved: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.addCategory("Docs")
			h.extractor.FileType = tt.fileType
			h.classifier.Result = sift.Classification{Category: "Docs", Confidence: tt.confidence}

			out := h.process(h.file("f.bin", "x"))

			if _, moved := out.(sift.Moved); moved != tt.wantMoved {
				t.Errorf("DecideAndApply() = %#v, want moved=%v", out, tt.wantMoved)
			}
		})
	}
}

func TestEngine_NoCategoriesNeverCallsClassifier(t *testing.T) {
	h := newHarness(t)
	path := h.file("a.txt", "text")

	out := h.process(path)

	kept, ok := out.(sift.KeptInPlace)
	if !ok || kept.Reason != sift.ReasonNoCategories || kept.Confidence != 0 {
		t.Fatalf("DecideAndApply() = %#v, want KeptInPlace{0, no_categories}", out)
	}
	if h.classifier.Calls() != 0 {
		t.Errorf("classifier called %d times, want 0", h.classifier.Calls())
	}
	if !testutil.Exists(path) {
		t.Error("file was moved")
	}
}

func TestEngine_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.1}
	path := h.file("a.txt", "text")

	first := h.process(path)
	if first.Status() != sift.StatusKeptInPlace {
		t.Fatalf("first DecideAndApply() = %#v, want KeptInPlace", first)
	}

	second := h.process(path)
	skipped, ok := second.(sift.Skipped)
	if !ok || skipped.Reason != sift.ReasonAlreadyProcessed {
		t.Errorf("second DecideAndApply() = %#v, want Skipped{already_processed}", second)
	}
	if h.classifier.Calls() != 1 {
		t.Errorf("classifier called %d times, want 1", h.classifier.Calls())
	}
	if !h.cache.ShouldProcess(path, "different-fingerprint") {
		t.Error("ShouldProcess() with another fingerprint = false, want true")
	}
	if h.cache.ShouldProcess(path, h.settings.Settings().Fingerprint()) {
		t.Error("ShouldProcess() with current fingerprint = true, want false")
	}
}

func TestEngine_RetriggersOnEdit(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.1}
	path := h.file("a.txt", "draft")

	h.process(path)

	testutil.WriteFile(t, path, "final version")
	testutil.SetModTime(t, path, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))

	out := h.process(path)
	if out.Status() != sift.StatusKeptInPlace {
		t.Errorf("DecideAndApply() after edit = %#v, want KeptInPlace", out)
	}
	if h.classifier.Calls() != 2 {
		t.Errorf("classifier called %d times, want 2", h.classifier.Calls())
	}
}

func TestEngine_RetriggersOnSettingsChange(t *testing.T) {
	h := newHarness(t)
	dest := h.addCategory("Docs")
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.6}
	path := h.file("a.txt", "text")

	if out := h.process(path); out.Status() != sift.StatusKeptInPlace {
		t.Fatalf("DecideAndApply() = %#v, want KeptInPlace", out)
	}

	h.updateSettings(func(s *sift.Settings) { s.Thresholds.Text = 0.5 })

	out := h.process(path)
	if _, ok := out.(sift.Moved); !ok {
		t.Fatalf("DecideAndApply() after threshold change = %#v, want Moved", out)
	}
	if !testutil.Exists(filepath.Join(dest, "a.txt")) {
		t.Error("file not at destination")
	}
}

func TestEngine_HiddenFileSkippedAndCached(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	path := h.file(".secret.txt", "x")

	out := h.process(path)
	skipped, ok := out.(sift.Skipped)
	if !ok || skipped.Reason != sift.ReasonHiddenFile {
		t.Fatalf("DecideAndApply() = %#v, want Skipped{hidden_file}", out)
	}

	entry, _ := h.cache.Lookup(path)
	if entry == nil || entry.Status != "skipped:hidden_file" {
		t.Errorf("cache entry = %+v, want skipped:hidden_file", entry)
	}

	h.updateSettings(func(s *sift.Settings) { s.SkipHiddenFiles = false })
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.99}
	if out := h.process(path); out.Status() != sift.StatusMoved {
		t.Errorf("DecideAndApply() with hidden files allowed = %#v, want Moved", out)
	}
}

func TestEngine_SizeLimit(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.updateSettings(func(s *sift.Settings) { s.MaxFileSizeMB = 0.000001 })
	path := h.file("big.txt", strings.Repeat("x", 100))

	out := h.process(path)
	skipped, ok := out.(sift.Skipped)
	if !ok || skipped.Reason != sift.ReasonSizeLimitExceeded {
		t.Fatalf("DecideAndApply() = %#v, want Skipped{size_limit_exceeded}", out)
	}
	if h.classifier.Calls() != 0 {
		t.Errorf("classifier called %d times, want 0", h.classifier.Calls())
	}
}

func TestEngine_MissingFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.inbox, "gone.txt")

	out := h.process(path)
	skipped, ok := out.(sift.Skipped)
	if !ok || skipped.Reason != sift.ReasonNotFound {
		t.Fatalf("DecideAndApply() = %#v, want Skipped{not_found}", out)
	}
	if entry, _ := h.cache.Lookup(path); entry != nil {
		t.Errorf("cache entry = %+v, want none", entry)
	}
	if h.cache.ShouldProcess(path, "fp") {
		t.Error("ShouldProcess() on missing file = true, want false")
	}
}

func TestEngine_ExtractionFailureFallsBackToFilename(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Invoices")
	h.extractor.Err = errors.New("corrupt pdf")
	h.classifier.Func = func(_ context.Context, c *sift.ExtractedContent, _ []string) (sift.Classification, error) {
		if c.Filename != "invoice-2024.pdf" || c.HasSignals() {
			return sift.Classification{}, errors.New("unexpected content")
		}
		return sift.Classification{Category: "Invoices", Confidence: 0.9}, nil
	}

	out := h.process(h.file("invoice-2024.pdf", "%PDF"))
	if out.Status() != sift.StatusMoved {
		t.Errorf("DecideAndApply() = %#v, want Moved", out)
	}
}

func TestEngine_ClassifierErrorIsFailed(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Err = errors.New("connection refused")
	path := h.file("a.txt", "x")

	out := h.process(path)
	failed, ok := out.(sift.Failed)
	if !ok {
		t.Fatalf("DecideAndApply() = %#v, want Failed", out)
	}
	if !strings.Contains(failed.Message, "connection refused") {
		t.Errorf("Message = %q, want classifier error", failed.Message)
	}
	if !testutil.Exists(path) {
		t.Error("file was moved")
	}
	if entry, _ := h.cache.Lookup(path); entry == nil || entry.Status != "failed" {
		t.Errorf("cache entry = %+v, want failed", entry)
	}
}

func TestEngine_ClassifierPanicIsFailedAndCached(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Func = func(context.Context, *sift.ExtractedContent, []string) (sift.Classification, error) {
		panic("boom")
	}
	path := h.file("broken.txt", "x")

	out := h.process(path)
	failed, ok := out.(sift.Failed)
	if !ok || !strings.Contains(failed.Message, "boom") {
		t.Fatalf("DecideAndApply() = %#v, want Failed with panic value", out)
	}
	if entry, _ := h.cache.Lookup(path); entry == nil || entry.Status != "failed" {
		t.Errorf("cache entry = %+v, want failed", entry)
	}

	out = h.process(path)
	if s, ok := out.(sift.Skipped); !ok || s.Reason != sift.ReasonAlreadyProcessed {
		t.Errorf("second DecideAndApply() = %#v, want Skipped{already_processed}", out)
	}
	if h.classifier.Calls() != 1 {
		t.Errorf("classifier called %d times, want 1", h.classifier.Calls())
	}
	if got := h.engine.Stats().Failed; got != 1 {
		t.Errorf("Stats().Failed = %d, want 1", got)
	}
}

func TestEngine_ClassifierTimeout(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.updateSettings(func(s *sift.Settings) { s.ClassifierTimeout = 20 * time.Millisecond })
	h.classifier.Func = func(ctx context.Context, _ *sift.ExtractedContent, _ []string) (sift.Classification, error) {
		<-ctx.Done()
		return sift.Classification{}, ctx.Err()
	}

	out := h.process(h.file("slow.txt", "x"))
	failed, ok := out.(sift.Failed)
	if !ok || !strings.Contains(failed.Message, "timed out") {
		t.Errorf("DecideAndApply() = %#v, want Failed with timeout", out)
	}
}

func TestEngine_UnknownCategoryKeepsFile(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Result = sift.Classification{Category: "Recipes", Confidence: 0.99}

	out := h.process(h.file("a.txt", "x"))
	if kept, ok := out.(sift.KeptInPlace); !ok || kept.Reason != sift.ReasonLowConfidence {
		t.Errorf("DecideAndApply() = %#v, want KeptInPlace{low_confidence}", out)
	}
}

func TestEngine_OverwritesExistingDestination(t *testing.T) {
	h := newHarness(t)
	dest := h.addCategory("Docs")
	testutil.WriteFile(t, filepath.Join(dest, "a.txt"), "old")
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.99}

	out := h.process(h.file("a.txt", "new"))
	if out.Status() != sift.StatusMoved {
		t.Fatalf("DecideAndApply() = %#v, want Moved", out)
	}
	if got := testutil.ReadFile(t, filepath.Join(dest, "a.txt")); got != "new" {
		t.Errorf("destination content = %q, want new", got)
	}
}

func TestEngine_ResetsTimestampsWithoutPreserveMetadata(t *testing.T) {
	h := newHarness(t)
	dest := h.addCategory("Docs")
	h.updateSettings(func(s *sift.Settings) { s.PreserveMetadata = false })
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.99}

	h.process(h.file("a.txt", "x"))

	info, err := os.Stat(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(h.clock.Now()) {
		t.Errorf("ModTime() = %v, want %v", info.ModTime(), h.clock.Now())
	}
}

func TestEngine_BacksUpBeforeMoving(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	v := testutil.NewTestVault()
	h.backups = sift.NewBackupService(v, nil, h.fsmgr, t.TempDir())
	h.build()
	h.updateSettings(func(s *sift.Settings) { s.CreateBackups = true })
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.99}

	out := h.process(h.file("a.txt", "precious"))
	moved, ok := out.(sift.Moved)
	if !ok {
		t.Fatalf("DecideAndApply() = %#v, want Moved", out)
	}

	rec, err := h.history.Get(moved.RecordID)
	if err != nil {
		t.Fatal(err)
	}
	wantKey := "2024-01-15/" + testutil.SHA256Hex([]byte("precious")) + "/a.txt"
	if rec.BackupKey != wantKey {
		t.Errorf("BackupKey = %q, want %q", rec.BackupKey, wantKey)
	}
	var buf strings.Builder
	if err := v.Get(context.Background(), wantKey, &buf); err != nil {
		t.Fatalf("vault Get() error = %v", err)
	}
	if buf.String() != "precious" {
		t.Errorf("backup content = %q, want precious", buf.String())
	}
}

func TestEngine_TouchesFolder(t *testing.T) {
	h := newHarness(t)
	folder, err := h.db.CreateFolder("Inbox", h.inbox)
	if err != nil {
		t.Fatal(err)
	}

	h.engine.DecideAndApply(context.Background(), h.file("a.txt", "x"), folder.ID)

	got, err := h.db.FindFolder(folder.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastActivityAt == nil || !got.LastActivityAt.Equal(h.clock.Now()) {
		t.Errorf("LastActivityAt = %v, want %v", got.LastActivityAt, h.clock.Now())
	}
}

func TestEngine_ConcurrentCallsOnSamePathMoveOnce(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.99}
	path := h.file("a.txt", "x")

	const n = 8
	outcomes := make([]sift.Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = h.process(path)
		}(i)
	}
	wg.Wait()

	moves := 0
	for _, o := range outcomes {
		switch v := o.(type) {
		case sift.Moved:
			moves++
		case sift.Skipped:
			if v.Reason != sift.ReasonNotFound && v.Reason != sift.ReasonAlreadyProcessed {
				t.Errorf("unexpected skip reason %q", v.Reason)
			}
		default:
			t.Errorf("unexpected outcome %#v", o)
		}
	}
	if moves != 1 {
		t.Errorf("moves = %d, want 1", moves)
	}
	if h.classifier.Calls() != 1 {
		t.Errorf("classifier called %d times, want 1", h.classifier.Calls())
	}
	recs, _ := h.history.List(0)
	if len(recs) != 1 {
		t.Errorf("history records = %d, want 1", len(recs))
	}
}

func TestEngine_Stats(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Docs")
	h.classifier.Result = sift.Classification{Category: "Docs", Confidence: 0.99}

	h.process(h.file("a.txt", "x"))
	h.process(h.file(".b", "x"))
	h.process(filepath.Join(h.inbox, "missing"))

	s := h.engine.Stats()
	if s.Processed != 3 || s.Moved != 1 || s.Skipped != 2 {
		t.Errorf("Stats() = %+v, want 3 processed, 1 moved, 2 skipped", s)
	}
}
