// Package watch feeds files from watched folders into the organizer, both as
// they appear and on a periodic sweep.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sift-go/internal/model"
	"sift-go/internal/sift"
)

// Batcher runs a batch of files to completion.
type Batcher interface {
	RunBatch(ctx context.Context, paths []string, folderID int64) *sift.BatchReport
}

// Options tune the scheduler. Zero values fall back to the defaults below.
type Options struct {
	ScanInterval time.Duration
	Debounce     time.Duration
	Recursive    bool
}

const (
	defaultScanInterval = 5 * time.Minute
	defaultDebounce     = 1500 * time.Millisecond
)

// Scheduler watches every Active folder and submits new or changed files to
// a Batcher. Paused folders are neither watched nor swept.
type Scheduler struct {
	folders  sift.FolderStore
	fsmgr    sift.FilesystemManager
	batches  Batcher
	settings sift.SettingsProvider
	logger   sift.Logger
	opts     Options

	refresh chan struct{}

	mu      sync.Mutex
	watched map[string]int64 // directory -> folder id
	pending map[string]int64 // path -> folder id
}

func NewScheduler(folders sift.FolderStore, fsmgr sift.FilesystemManager, batches Batcher, settings sift.SettingsProvider, logger sift.Logger, opts Options) *Scheduler {
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = defaultScanInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	return &Scheduler{
		folders:  folders,
		fsmgr:    fsmgr,
		batches:  batches,
		settings: settings,
		logger:   logger,
		opts:     opts,
		refresh:  make(chan struct{}, 1),
		watched:  make(map[string]int64),
		pending:  make(map[string]int64),
	}
}

// Refresh asks a running scheduler to pick up added, paused or resumed folders.
func (s *Scheduler) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// ScanAll sweeps every Active folder once and returns one report per folder.
func (s *Scheduler) ScanAll(ctx context.Context) ([]*sift.BatchReport, error) {
	folders, err := s.folders.ListFolders()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	var reports []*sift.BatchReport
	for _, f := range folders {
		if f.Status != model.FolderActive {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		report, err := s.ScanFolder(ctx, f)
		if err != nil {
			s.logger.Warn("scanning folder", "folder", f.Name, "path", f.SourcePath, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// ScanFolder submits every non-ignored file of one folder, whatever its status.
func (s *Scheduler) ScanFolder(ctx context.Context, f *model.WatchedFolder) (*sift.BatchReport, error) {
	paths, err := FolderFiles(s.fsmgr, f.SourcePath, s.opts.Recursive)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("sweeping folder", "folder", f.Name, "files", len(paths))
	return s.batches.RunBatch(ctx, paths, f.ID), nil
}

// FolderFiles lists the regular files under dir that are not ignored.
func FolderFiles(fsmgr sift.FilesystemManager, dir string, recursive bool) ([]string, error) {
	found, err := fsmgr.FindFiles(dir, recursive)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	paths := make([]string, 0, len(found))
	for _, p := range found {
		if fsmgr.IsIgnored(dir, p.String()) {
			continue
		}
		paths = append(paths, p.String())
	}
	return paths, nil
}

// Run watches folders until ctx is done. It sweeps once at start and then
// every scan interval.
func (s *Scheduler) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating folder watcher: %w", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	sweep := func() {
		s.sync(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ScanAll(ctx); err != nil {
				s.logger.Error("periodic sweep", "error", err)
			}
		}()
	}
	sweep()

	ticker := time.NewTicker(s.opts.ScanInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	flush := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep()
		case <-s.refresh:
			s.sync(w)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !s.enqueue(ev) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(s.opts.Debounce, func() {
				select {
				case flush <- struct{}{}:
				default:
				}
			})
		case <-flush:
			for folderID, paths := range s.drain() {
				wg.Add(1)
				go func(folderID int64, paths []string) {
					defer wg.Done()
					s.batches.RunBatch(ctx, paths, folderID)
				}(folderID, paths)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("folder watcher", "error", err)
		}
	}
}

// sync makes the watch list match the Active folders.
func (s *Scheduler) sync(w *fsnotify.Watcher) {
	folders, err := s.folders.ListFolders()
	if err != nil {
		s.logger.Error("listing folders", "error", err)
		return
	}

	want := make(map[string]int64)
	for _, f := range folders {
		if f.Status == model.FolderActive {
			want[filepath.Clean(f.SourcePath)] = f.ID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for dir := range s.watched {
		if _, ok := want[dir]; !ok {
			_ = w.Remove(dir)
			delete(s.watched, dir)
		}
	}
	for dir, id := range want {
		if _, ok := s.watched[dir]; ok {
			s.watched[dir] = id
			continue
		}
		if err := w.Add(dir); err != nil {
			s.logger.Warn("watching folder", "path", dir, "error", err)
			continue
		}
		s.watched[dir] = id
	}
}

// enqueue records a file event and reports whether it is worth processing.
func (s *Scheduler) enqueue(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	path := filepath.Clean(ev.Name)
	dir := filepath.Dir(path)

	info, err := s.fsmgr.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if s.settings.Settings().SkipHiddenFiles && s.fsmgr.IsHidden(path, info) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.watched[dir]
	if !ok || s.fsmgr.IsIgnored(dir, path) {
		return false
	}
	s.pending[path] = id
	return true
}

func (s *Scheduler) drain() map[int64][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64][]string)
	for path, id := range s.pending {
		out[id] = append(out[id], path)
	}
	s.pending = make(map[string]int64)
	return out
}
