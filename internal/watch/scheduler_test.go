package watch_test

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	siftfs "sift-go/internal/fs"
	"sift-go/internal/model"
	"sift-go/internal/sift"
	"sift-go/internal/testutil"
	"sift-go/internal/watch"
)

type recordingBatcher struct {
	mu      sync.Mutex
	batches []submitted
	notify  chan struct{}
}

type submitted struct {
	folderID int64
	paths    []string
}

func newRecordingBatcher() *recordingBatcher {
	return &recordingBatcher{notify: make(chan struct{}, 100)}
}

func (b *recordingBatcher) RunBatch(_ context.Context, paths []string, folderID int64) *sift.BatchReport {
	b.mu.Lock()
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	b.batches = append(b.batches, submitted{folderID: folderID, paths: sorted})
	b.mu.Unlock()
	b.notify <- struct{}{}
	return &sift.BatchReport{Total: len(paths)}
}

func (b *recordingBatcher) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, s := range b.batches {
		out = append(out, s.paths...)
	}
	return out
}

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

type fixture struct {
	db      sift.Database
	batcher *recordingBatcher
	sched   *watch.Scheduler
}

func newFixture(t *testing.T, opts watch.Options) *fixture {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	b := newRecordingBatcher()
	settings := sift.NewSettingsHolder(sift.DefaultSettings())
	sched := watch.NewScheduler(db, siftfs.NewOSFilesystemManager([]string{"*.tmp"}), b, settings, sift.NewNopLogger(), opts)
	return &fixture{db: db, batcher: b, sched: sched}
}

func (f *fixture) folder(t *testing.T, name string) (*model.WatchedFolder, string) {
	t.Helper()
	dir := t.TempDir()
	folder, err := f.db.CreateFolder(name, dir)
	if err != nil {
		t.Fatal(err)
	}
	return folder, dir
}

func TestScheduler_ScanAllSkipsPausedAndIgnored(t *testing.T) {
	f := newFixture(t, watch.Options{})
	active, activeDir := f.folder(t, "Downloads")
	paused, pausedDir := f.folder(t, "Desktop")
	if err := f.db.SetFolderStatus(paused.ID, model.FolderPaused); err != nil {
		t.Fatal(err)
	}

	keep := testutil.WriteFile(t, filepath.Join(activeDir, "invoice.txt"), "x")
	testutil.WriteFile(t, filepath.Join(activeDir, "draft.tmp"), "x")
	testutil.WriteFile(t, filepath.Join(pausedDir, "notes.txt"), "x")

	reports, err := f.sched.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}
	if len(f.batcher.batches) != 1 || f.batcher.batches[0].folderID != active.ID {
		t.Fatalf("batches = %+v, want one for folder %d", f.batcher.batches, active.ID)
	}
	if got := f.batcher.batches[0].paths; len(got) != 1 || got[0] != keep {
		t.Errorf("paths = %v, want [%s]", got, keep)
	}
}

func TestScheduler_ScanFolderRecursive(t *testing.T) {
	f := newFixture(t, watch.Options{Recursive: true})
	folder, dir := f.folder(t, "Downloads")
	nested := testutil.WriteFile(t, filepath.Join(dir, "sub", "deep.txt"), "x")

	report, err := f.sched.ScanFolder(context.Background(), folder)
	if err != nil {
		t.Fatalf("ScanFolder() error = %v", err)
	}
	if report.Total != 1 || !contains(f.batcher.all(), nested) {
		t.Errorf("submitted = %v, want %s", f.batcher.all(), nested)
	}
}

func TestScheduler_RunSubmitsNewFiles(t *testing.T) {
	f := newFixture(t, watch.Options{Debounce: 20 * time.Millisecond, ScanInterval: time.Hour})
	_, dir := f.folder(t, "Downloads")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	// The initial sweep of the empty folder.
	select {
	case <-f.batcher.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("initial sweep never ran")
	}

	hidden := filepath.Join(dir, ".secret")
	testutil.WriteFile(t, hidden, "x")
	path := testutil.WriteFile(t, filepath.Join(dir, "photo.jpg"), "x")

	deadline := time.After(5 * time.Second)
	for !contains(f.batcher.all(), path) {
		select {
		case <-f.batcher.notify:
		case <-deadline:
			t.Fatalf("new file never submitted; got %v", f.batcher.all())
		}
	}
	if contains(f.batcher.all(), hidden) {
		t.Error("hidden file was submitted")
	}
}

func TestScheduler_RefreshStopsWatchingPausedFolder(t *testing.T) {
	f := newFixture(t, watch.Options{Debounce: 20 * time.Millisecond, ScanInterval: time.Hour})
	folder, dir := f.folder(t, "Downloads")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-f.batcher.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("initial sweep never ran")
	}

	if err := f.db.SetFolderStatus(folder.ID, model.FolderPaused); err != nil {
		t.Fatal(err)
	}
	f.sched.Refresh()
	time.Sleep(100 * time.Millisecond)

	path := testutil.WriteFile(t, filepath.Join(dir, "later.txt"), "x")
	time.Sleep(200 * time.Millisecond)

	if contains(f.batcher.all(), path) {
		t.Error("file in paused folder was submitted")
	}
}
