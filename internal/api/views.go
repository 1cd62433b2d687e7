package api

import (
	"time"

	"sift-go/internal/model"
)

type categoryView struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DestinationPath string    `json:"destination_path"`
	CreatedAt       time.Time `json:"created_at"`
}

func newCategoryView(c *model.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, DestinationPath: c.DestinationPath, CreatedAt: c.CreatedAt}
}

type folderView struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	SourcePath     string             `json:"source_path"`
	Status         model.FolderStatus `json:"status"`
	LastActivityAt *time.Time         `json:"last_activity_at,omitempty"`
}

func newFolderView(f *model.WatchedFolder) folderView {
	return folderView{ID: f.ID, Name: f.Name, SourcePath: f.SourcePath, Status: f.Status, LastActivityAt: f.LastActivityAt}
}

type movementView struct {
	ID         int64                `json:"id"`
	Filename   string               `json:"filename"`
	FromPath   string               `json:"from_path"`
	ToPath     string               `json:"to_path"`
	Category   string               `json:"category"`
	Confidence string               `json:"confidence"`
	Detection  string               `json:"detection"`
	BackupKey  string               `json:"backup_key,omitempty"`
	Status     model.MovementStatus `json:"status"`
	CreatedAt  time.Time            `json:"created_at"`
	UndoneAt   *time.Time           `json:"undone_at,omitempty"`
}

func newMovementView(r *model.MovementRecord) movementView {
	return movementView{
		ID:         r.ID,
		Filename:   r.Filename,
		FromPath:   r.FromPath,
		ToPath:     r.ToPath,
		Category:   r.Category,
		Confidence: r.ConfidenceLabel(),
		Detection:  r.Detection,
		BackupKey:  r.BackupKey,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		UndoneAt:   r.UndoneAt,
	}
}
