package sift

import (
	"time"

	"sift-go/internal/model"
)

// CacheStore persists the processing cache. Lookups return (nil, nil) when
// no entry exists.
type CacheStore interface {
	GetCacheEntry(path string) (*model.CacheEntry, error)
	PutCacheEntry(entry *model.CacheEntry) error
	DeleteCacheEntry(path string) error
}

// CategoryStore persists user-defined categories.
type CategoryStore interface {
	ListCategories() ([]*model.Category, error)
	FindCategoryByName(name string) (*model.Category, error)
	// CreateCategory returns ErrDuplicateCategory if the name is taken (case-insensitive).
	CreateCategory(name, destination string) (*model.Category, error)
	DeleteCategory(id int64) error
}

// FolderStore persists watched folders.
type FolderStore interface {
	ListFolders() ([]*model.WatchedFolder, error)
	FindFolder(id int64) (*model.WatchedFolder, error)
	CreateFolder(name, sourcePath string) (*model.WatchedFolder, error)
	SetFolderStatus(id int64, status model.FolderStatus) error
	TouchFolder(id int64, at time.Time) error
}

// HistoryStore persists movement records.
type HistoryStore interface {
	// AppendMovement assigns rec.ID and trims the history to the newest
	// retention entries (0 keeps everything).
	AppendMovement(rec *model.MovementRecord, retention int) error
	FindMovement(id int64) (*model.MovementRecord, error)
	// ListMovements returns records newest first. limit <= 0 returns all.
	ListMovements(limit int) ([]*model.MovementRecord, error)
	// MarkMovementUndone flips a completed record to undone. It returns
	// ErrAlreadyUndone if the record is not in the completed state.
	MarkMovementUndone(id int64, at time.Time) error
}

// SummaryStore persists search summaries keyed by final path.
type SummaryStore interface {
	PutSummary(s *model.Summary) error
	MoveSummary(oldPath, newPath string) error
	ListSummaries() ([]*model.Summary, error)
}

// Database groups every store the organizer needs.
type Database interface {
	CacheStore
	CategoryStore
	FolderStore
	HistoryStore
	SummaryStore

	Close() error
}
