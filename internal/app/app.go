package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sift-go/internal/classify"
	"sift-go/internal/config"
	"sift-go/internal/database"
	"sift-go/internal/encryption"
	"sift-go/internal/extract"
	"sift-go/internal/fs"
	"sift-go/internal/index"
	"sift-go/internal/model"
	"sift-go/internal/sift"
	"sift-go/internal/vault"
	"sift-go/internal/watch"
)

// Options are per-run knobs that do not belong in the config file.
type Options struct {
	Verbose bool

	// Logger replaces the file logger. Tests pass sift.NewNopLogger().
	Logger sift.Logger
	// Clock and IDs default to the real clock and UUIDs.
	Clock sift.Clock
	IDs   sift.IDGenerator
	// Classifier replaces the configured classifier.
	Classifier sift.Classifier
}

// App is the application layer between the CLI and the organizer. It builds
// every dependency from config, exposes high-level operations that accept raw
// string paths, and closes the database on Close.
type App struct {
	cfg         *config.Config
	db          *database.SQLiteDatabase
	fsmgr       sift.FilesystemManager
	settings    *sift.SettingsHolder
	cache       *sift.IdempotencyCache
	history     *sift.MovementHistory
	engine      *sift.Engine
	coordinator *sift.BulkCoordinator
	index       *index.Index
	vault       sift.Vault
	encryptor   sift.Encryptor
	backups     *sift.BackupService
	scheduler   *watch.Scheduler
	logger      sift.Logger
	clock       sift.Clock
	op          *Operation
	logFile     *os.File
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "Process", "Watch").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = sift.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = sift.UUIDGenerator{}
	}
	op := NewOperation(operation, clock, ids)

	a := &App{cfg: cfg, clock: clock, op: op, logger: opts.Logger}
	if a.logger == nil {
		l, f, err := newLogger(cfg.LogDir, op.RunID, opts.Verbose)
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
		a.logger, a.logFile = &slogAdapter{l: l}, f
	}

	if err := a.build(ctx, ids, opts.Classifier); err != nil {
		a.closeResources()
		return nil, err
	}
	a.logger.Debug("operation started", "operation", op.Name)
	return a, nil
}

func (a *App) build(ctx context.Context, ids sift.IDGenerator, classifier sift.Classifier) error {
	cfg := a.cfg

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	a.fsmgr = fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)
	a.settings = sift.NewSettingsHolder(SettingsFromConfig(cfg))

	if classifier == nil {
		classifier, err = classify.NewClassifierFromConfig(cfg.Classifier, a.logger)
		if err != nil {
			return fmt.Errorf("creating classifier: %w", err)
		}
	}

	a.vault, err = vault.NewVaultFromConfig(ctx, cfg.Backup)
	if err != nil {
		return fmt.Errorf("creating backup vault: %w", err)
	}
	a.encryptor, err = encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	var backupEnc sift.Encryptor
	if cfg.Backup.Encrypt {
		if cfg.Organizer.CreateBackups && !a.encryptor.IsConfigured() {
			return errors.New("backup encryption is on but no keys exist: run 'sift keys init'")
		}
		backupEnc = a.encryptor
	}
	a.backups = sift.NewBackupService(a.vault, backupEnc, a.fsmgr, "")

	a.index = index.New(db, a.clock)
	a.cache = sift.NewIdempotencyCache(db, a.fsmgr, a.clock, a.logger)
	a.history = sift.NewMovementHistory(db, a.fsmgr, a.cache, a.index, a.settings, a.clock, a.logger)
	a.engine = sift.NewEngine(sift.EngineDeps{
		Cache:      a.cache,
		Categories: db,
		Folders:    db,
		History:    a.history,
		Filesystem: a.fsmgr,
		Extractor:  extract.NewExtractor(a.settings, a.logger),
		Classifier: classifier,
		Indexer:    a.index,
		Backups:    a.backups,
		Settings:   a.settings,
		Logger:     a.logger,
		Clock:      a.clock,
	})

	var reports sift.ReportWriter
	if cfg.Organizer.ReportDir != "" {
		reports = sift.NewFileReportWriter(cfg.Organizer.ReportDir)
	}
	a.coordinator, err = sift.NewBulkCoordinator(a.engine, cfg.Organizer.Workers, reports, a.logger, a.clock, ids)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}

	a.scheduler = watch.NewScheduler(db, a.fsmgr, a.coordinator, a.settings, a.logger, watch.Options{
		ScanInterval: time.Duration(cfg.Organizer.ScanIntervalSeconds) * time.Second,
		Debounce:     time.Duration(cfg.Organizer.DebounceMillis) * time.Millisecond,
		Recursive:    cfg.Organizer.Recursive,
	})
	return nil
}

// Settings returns the settings currently in effect.
func (a *App) Settings() sift.Settings { return a.settings.Settings() }

// Stats returns the processing counters of this run.
func (a *App) Stats() sift.StatsSnapshot { return a.engine.Stats() }

// ListCategories returns every category sorted by name.
func (a *App) ListCategories() ([]*model.Category, error) { return a.db.ListCategories() }

// AddCategory creates a category whose files go to destination.
func (a *App) AddCategory(name, destination string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("category name is required")
	}
	dest, err := filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}
	c, err := a.db.CreateCategory(name, dest)
	if err != nil {
		return nil, err
	}
	a.logger.Info("category added", "name", c.Name, "destination", c.DestinationPath)
	return c, nil
}

// RemoveCategory deletes a category by id.
func (a *App) RemoveCategory(id int64) error {
	if err := a.db.DeleteCategory(id); err != nil {
		return err
	}
	a.logger.Info("category removed", "id", id)
	return nil
}

// RemoveCategoryByName deletes a category, matching the name ignoring case.
func (a *App) RemoveCategoryByName(name string) error {
	c, err := a.db.FindCategoryByName(name)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("category %q: %w", name, sift.ErrNotFound)
	}
	return a.RemoveCategory(c.ID)
}

// ListFolders returns every watched folder.
func (a *App) ListFolders() ([]*model.WatchedFolder, error) { return a.db.ListFolders() }

// AddFolder starts watching the directory at rawPath. An empty name uses the
// directory's base name.
func (a *App) AddFolder(name, rawPath string) (*model.WatchedFolder, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if !p.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", p)
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(p.String())
	}
	f, err := a.db.CreateFolder(name, p.String())
	if err != nil {
		return nil, err
	}
	a.scheduler.Refresh()
	a.logger.Info("folder added", "name", f.Name, "path", f.SourcePath)
	return f, nil
}

// SetFolderStatus pauses or resumes a folder.
func (a *App) SetFolderStatus(id int64, status model.FolderStatus) error {
	if err := a.db.SetFolderStatus(id, status); err != nil {
		return err
	}
	a.scheduler.Refresh()
	a.logger.Info("folder status changed", "id", id, "status", status)
	return nil
}

// FindFolder looks up a folder by id or, failing that, by name.
func (a *App) FindFolder(ref string) (*model.WatchedFolder, error) {
	folders, err := a.db.ListFolders()
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if fmt.Sprint(f.ID) == ref {
			return f, nil
		}
	}
	for _, f := range folders {
		if strings.EqualFold(f.Name, ref) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("folder %q: %w", ref, sift.ErrNotFound)
}

func (a *App) folderFiles(id int64) (*model.WatchedFolder, []string, error) {
	f, err := a.db.FindFolder(id)
	if err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, fmt.Errorf("folder %d: %w", id, sift.ErrNotFound)
	}
	paths, err := watch.FolderFiles(a.fsmgr, f.SourcePath, a.cfg.Organizer.Recursive)
	if err != nil {
		return nil, nil, err
	}
	return f, paths, nil
}

// ProcessFolder starts a batch over a folder in the background and returns its id.
func (a *App) ProcessFolder(id int64) (string, error) {
	_, paths, err := a.folderFiles(id)
	if err != nil {
		return "", err
	}
	return a.coordinator.StartBatch(paths, id), nil
}

// ProcessFolderNow processes a folder and waits for the batch to finish.
func (a *App) ProcessFolderNow(ctx context.Context, id int64) (*sift.BatchReport, error) {
	_, paths, err := a.folderFiles(id)
	if err != nil {
		return nil, err
	}
	return a.coordinator.RunBatch(ctx, paths, id), nil
}

// ProcessPaths processes files, expanding directories to the files they hold.
func (a *App) ProcessPaths(ctx context.Context, rawPaths []string) (*sift.BatchReport, error) {
	var paths []string
	for _, raw := range rawPaths {
		p, err := a.fsmgr.Resolve(raw)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", raw, err)
		}
		if !p.IsDir() {
			paths = append(paths, p.String())
			continue
		}
		files, err := watch.FolderFiles(a.fsmgr, p.String(), a.cfg.Organizer.Recursive)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return a.coordinator.RunBatch(ctx, paths, 0), nil
}

// Scan sweeps every Active folder once.
func (a *App) Scan(ctx context.Context) ([]*sift.BatchReport, error) {
	return a.scheduler.ScanAll(ctx)
}

func (a *App) BatchProgress(id string) (sift.BatchProgress, bool) { return a.coordinator.Progress(id) }

func (a *App) CancelBatch(id string) bool { return a.coordinator.Cancel(id) }

// History returns the newest limit movement records.
func (a *App) History(limit int) ([]*model.MovementRecord, error) { return a.history.List(limit) }

func (a *App) HistoryStats() (*sift.HistoryStats, error) { return a.history.Stats() }

// Undo moves a file back to where it came from.
func (a *App) Undo(id int64) (*model.MovementRecord, error) { return a.history.Undo(id) }

// Search finds moved files whose summaries match query.
func (a *App) Search(query string, limit int) ([]index.Result, error) {
	return a.index.Search(query, limit)
}

// Fail marks the current operation as failed for the closing log line.
func (a *App) Fail() { a.op.Fail() }

// Close stops the worker pool, logs how the operation ended and closes the
// database and log file.
func (a *App) Close() error {
	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status,
		"elapsed", a.op.Elapsed(a.clock).Round(time.Millisecond))
	return a.closeResources()
}

func (a *App) closeResources() error {
	var firstErr error
	if a.coordinator != nil {
		a.coordinator.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
