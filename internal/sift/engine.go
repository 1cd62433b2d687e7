package sift

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"time"

	"sift-go/internal/model"
)

// EngineDeps are the collaborators of an Engine. Backups and Indexer are optional.
type EngineDeps struct {
	Cache      *IdempotencyCache
	Categories CategoryStore
	Folders    FolderStore
	History    *MovementHistory
	Filesystem FilesystemManager
	Extractor  Extractor
	Classifier Classifier
	Indexer    Indexer
	Backups    BackupSink
	Settings   SettingsProvider
	Logger     Logger
	Clock      Clock
}

// Engine decides, for a single file, whether and where it moves, applies the
// move and records the decision.
type Engine struct {
	cache      *IdempotencyCache
	categories CategoryStore
	folders    FolderStore
	history    *MovementHistory
	fsmgr      FilesystemManager
	extractor  Extractor
	classifier Classifier
	indexer    Indexer
	backups    BackupSink
	settings   SettingsProvider
	logger     Logger
	clock      Clock
	locks      *pathLocks
	stats      Stats
}

func NewEngine(deps EngineDeps) *Engine {
	// Undo and processing share locks so a file is never moved by both at once.
	locks := newPathLocks()
	if deps.History != nil {
		locks = deps.History.locks
	}
	return &Engine{
		cache:      deps.Cache,
		categories: deps.Categories,
		folders:    deps.Folders,
		history:    deps.History,
		fsmgr:      deps.Filesystem,
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		indexer:    deps.Indexer,
		backups:    deps.Backups,
		settings:   deps.Settings,
		logger:     deps.Logger,
		clock:      deps.Clock,
		locks:      locks,
	}
}

// Stats returns the outcome counters of this engine.
func (e *Engine) Stats() StatsSnapshot { return e.stats.Snapshot() }

// DecideAndApply processes one file and returns its outcome. It never returns
// an error: failures become Failed outcomes. folderID is 0 when the file does
// not belong to a watched folder.
func (e *Engine) DecideAndApply(ctx context.Context, path string, folderID int64) (out Outcome) {
	unlock := e.locks.Lock(path)
	defer unlock()

	defer func() {
		e.stats.observe(out)
		if folderID != 0 {
			if err := e.folders.TouchFolder(folderID, e.clock.Now()); err != nil {
				e.logger.Warn("updating folder activity", "folder_id", folderID, "error", err)
			}
		}
	}()

	info, err := e.fsmgr.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Skipped{Reason: ReasonNotFound}
		}
		return Failed{Message: fmt.Sprintf("stat %s: %v", path, err)}
	}

	settings := e.settings.Settings()
	fingerprint := settings.Fingerprint()

	if !e.cache.shouldProcessInfo(path, info, fingerprint) {
		e.logger.Debug("already processed", "path", path)
		return Skipped{Reason: ReasonAlreadyProcessed}
	}

	out = e.decideSafely(ctx, path, info, settings)

	if err := e.cache.Record(path, info.Size(), info.ModTime(), fingerprint, StatusTag(out)); err != nil {
		e.logger.Error("recording decision", "path", path, "error", err)
	}

	e.logger.Info("file processed", "path", path, "status", StatusTag(out))
	return out
}

// decideSafely turns a panic in a collaborator into Failed so the outcome is
// still cached.
func (e *Engine) decideSafely(ctx context.Context, path string, info fs.FileInfo, settings Settings) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while processing file", "path", path, "panic", r)
			out = Failed{Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return e.decide(ctx, path, info, settings)
}

func (e *Engine) decide(ctx context.Context, path string, info fs.FileInfo, settings Settings) Outcome {
	if !info.Mode().IsRegular() {
		return Failed{Message: fmt.Sprintf("not a regular file: %s", path)}
	}

	if settings.SkipHiddenFiles && e.fsmgr.IsHidden(path, info) {
		return Skipped{Reason: ReasonHiddenFile}
	}

	if settings.MaxFileSizeMB > 0 && float64(info.Size()) > settings.MaxFileSizeMB*1024*1024 {
		return Skipped{Reason: ReasonSizeLimitExceeded}
	}

	name := filepath.Base(path)
	content := e.extract(ctx, path, name)

	categories, err := e.categories.ListCategories()
	if err != nil {
		return Failed{Message: fmt.Sprintf("loading categories: %v", err)}
	}
	if len(categories) == 0 {
		return KeptInPlace{Confidence: 0, Reason: ReasonNoCategories}
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	result, err := e.classify(ctx, content, names, settings.ClassifierTimeout)
	if err != nil {
		return Failed{Message: err.Error()}
	}

	confidence := NormalizeConfidence(result.Confidence)
	threshold := settings.ThresholdFor(content.FileType)

	var destDir, label string
	if cat := matchCategory(categories, result.Category); cat != nil && confidence >= threshold {
		destDir, label = cat.DestinationPath, cat.Name
	} else if settings.Fallback == FallbackReview {
		if settings.ReviewDir == "" {
			return Failed{Message: "review fallback configured without a review directory"}
		}
		destDir, label = settings.ReviewDir, ReviewCategory
	} else {
		return KeptInPlace{Confidence: confidence, Reason: ReasonLowConfidence}
	}

	moved, err := e.apply(ctx, path, destDir, label, confidence, content, settings)
	if err != nil {
		e.logger.Error("moving file", "path", path, "destination", destDir, "error", err)
		return Failed{Message: err.Error()}
	}
	return moved
}

// extract never fails: extraction errors degrade to filename-only content.
func (e *Engine) extract(ctx context.Context, path, name string) *ExtractedContent {
	content, err := e.extractor.Extract(ctx, path)
	if err != nil || content == nil {
		e.logger.Warn("extraction failed, classifying by filename", "path", path, "error", err)
		return &ExtractedContent{
			Filename: name,
			FileType: FileTypeOther,
			Metadata: map[string]string{"extract_error": fmt.Sprint(err)},
		}
	}
	if content.Filename == "" {
		content.Filename = name
	}
	return content
}

func (e *Engine) classify(ctx context.Context, content *ExtractedContent, names []string, timeout time.Duration) (Classification, error) {
	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := e.classifier.Classify(cctx, content, names)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return Classification{}, fmt.Errorf("classifier timed out after %s", timeout)
		}
		return Classification{}, fmt.Errorf("classifier: %w", err)
	}
	return result, nil
}

func (e *Engine) apply(ctx context.Context, path, destDir, label string, confidence float64, content *ExtractedContent, settings Settings) (Moved, error) {
	name := filepath.Base(path)
	dest := filepath.Join(destDir, name)
	if filepath.Clean(dest) == filepath.Clean(path) {
		return Moved{Destination: dest, Category: label, Confidence: confidence}, nil
	}

	now := e.clock.Now()

	var backupKey string
	if settings.CreateBackups && e.backups != nil {
		key, err := e.backups.Backup(ctx, path, now)
		if err != nil {
			return Moved{}, fmt.Errorf("backing up %s: %w", name, err)
		}
		backupKey = key
	}

	if err := e.fsmgr.MkdirAll(destDir); err != nil {
		return Moved{}, fmt.Errorf("creating destination %s: %w", destDir, err)
	}

	if _, err := e.fsmgr.Stat(dest); err == nil {
		if err := e.fsmgr.Remove(dest); err != nil {
			return Moved{}, fmt.Errorf("replacing existing %s: %w", dest, err)
		}
	}

	if err := e.fsmgr.Move(path, dest, settings.PreserveMetadata); err != nil {
		return Moved{}, fmt.Errorf("moving to %s: %w", dest, err)
	}

	if !settings.PreserveMetadata {
		if err := e.fsmgr.Chtimes(dest, now, now); err != nil {
			e.logger.Warn("resetting timestamps", "path", dest, "error", err)
		}
	}

	rec := &model.MovementRecord{
		Filename:   name,
		FromPath:   path,
		ToPath:     dest,
		Category:   label,
		Confidence: confidence,
		Detection:  "classification: " + label,
		BackupKey:  backupKey,
		Status:     model.MovementCompleted,
		CreatedAt:  now,
	}
	if err := e.history.Append(rec); err != nil {
		// The move already happened; a missing history entry is logged, not undone.
		e.logger.Error("appending movement history", "path", dest, "error", err)
	}

	if e.indexer != nil {
		if err := e.indexer.Index(ctx, dest, content, label); err != nil {
			e.logger.Warn("indexing moved file", "path", dest, "error", err)
		}
	}

	return Moved{Destination: dest, Category: label, Confidence: confidence, RecordID: rec.ID}, nil
}

// NormalizeConfidence maps a classifier confidence onto [0, 1]. Values above
// 1 are taken to be percentages.
func NormalizeConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		c /= 100
	}
	return math.Min(c, 1)
}

func matchCategory(categories []*model.Category, name string) *model.Category {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}
