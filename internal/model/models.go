package model

import (
	"fmt"
	"time"
)

// SchemaVersion is stamped on every persisted cache entry and movement record.
const SchemaVersion = 1

// Category is a user-defined destination that files are sorted into.
type Category struct {
	ID              int64
	Name            string // unique, case-insensitive
	DestinationPath string
	CreatedAt       time.Time
}

// FolderStatus controls whether a watched folder is scanned.
type FolderStatus string

const (
	FolderActive FolderStatus = "Active"
	FolderPaused FolderStatus = "Paused"
)

// WatchedFolder is a source directory the organizer scans for new files.
type WatchedFolder struct {
	ID             int64
	Name           string
	SourcePath     string
	Status         FolderStatus
	LastActivityAt *time.Time
	CreatedAt      time.Time
}

// CacheEntry records the last decision made for a path.
type CacheEntry struct {
	Path          string
	Size          int64
	ModifiedAt    time.Time
	Fingerprint   string // settings fingerprint in effect when decided
	Status        string // outcome status tag
	SchemaVersion int
	UpdatedAt     time.Time
}

// MovementStatus is the lifecycle state of a movement record.
type MovementStatus string

const (
	MovementCompleted MovementStatus = "completed"
	MovementUndone    MovementStatus = "undone"
)

// MovementRecord is one entry of the movement history.
type MovementRecord struct {
	ID            int64 // monotonic, assigned on append
	Filename      string
	FromPath      string
	ToPath        string
	Category      string
	Confidence    float64 // [0, 1]
	Detection     string
	BackupKey     string // empty when no backup was taken
	Status        MovementStatus
	CreatedAt     time.Time
	UndoneAt      *time.Time
	SchemaVersion int
}

// ConfidenceLabel renders the confidence as a whole percentage, e.g. "72%".
func (r *MovementRecord) ConfidenceLabel() string {
	return fmt.Sprintf("%.0f%%", r.Confidence*100)
}

// Summary is the searchable digest of a file that was moved.
type Summary struct {
	Path       string // final path of the file
	Filename   string
	Category   string
	FileType   string
	Summary    string
	Keywords   []string
	Body       string
	Transcript string
	IndexedAt  time.Time
}
