package sift

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"sift-go/internal/model"
)

// MovementHistory is the durable log of moves and supports undoing them.
type MovementHistory struct {
	store    HistoryStore
	fsmgr    FilesystemManager
	cache    *IdempotencyCache
	indexer  Indexer
	settings SettingsProvider
	clock    Clock
	logger   Logger
	locks    *pathLocks
}

// NewMovementHistory creates a history. indexer may be nil.
func NewMovementHistory(store HistoryStore, fsmgr FilesystemManager, cache *IdempotencyCache, indexer Indexer, settings SettingsProvider, clock Clock, logger Logger) *MovementHistory {
	return &MovementHistory{
		store:    store,
		fsmgr:    fsmgr,
		cache:    cache,
		indexer:  indexer,
		settings: settings,
		clock:    clock,
		logger:   logger,
		locks:    newPathLocks(),
	}
}

// Append stores rec and assigns its ID.
func (h *MovementHistory) Append(rec *model.MovementRecord) error {
	rec.SchemaVersion = model.SchemaVersion
	if rec.Status == "" {
		rec.Status = model.MovementCompleted
	}
	if err := h.store.AppendMovement(rec, h.settings.Settings().HistoryRetention); err != nil {
		return fmt.Errorf("appending movement: %w", err)
	}
	return nil
}

// Get returns the record with id or ErrNotFound.
func (h *MovementHistory) Get(id int64) (*model.MovementRecord, error) {
	rec, err := h.store.FindMovement(id)
	if err != nil {
		return nil, fmt.Errorf("finding movement %d: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("movement %d: %w", id, ErrNotFound)
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (h *MovementHistory) List(limit int) ([]*model.MovementRecord, error) {
	recs, err := h.store.ListMovements(limit)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	return recs, nil
}

// Undo moves the file of record id back to where it came from and marks the
// record undone. The restored file is recorded in the processing cache so it
// is not moved again on the next scan.
func (h *MovementHistory) Undo(id int64) (*model.MovementRecord, error) {
	rec, err := h.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.MovementUndone {
		return nil, fmt.Errorf("movement %d: %w", id, ErrAlreadyUndone)
	}

	unlock := h.locks.LockAll(rec.FromPath, rec.ToPath)
	defer unlock()

	// A concurrent undo may have finished while we waited for the locks.
	rec, err = h.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.MovementUndone {
		return nil, fmt.Errorf("movement %d: %w", id, ErrAlreadyUndone)
	}

	if _, err := h.fsmgr.Stat(rec.ToPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("movement %d: %s: %w", id, rec.ToPath, ErrFileMissing)
		}
		return nil, fmt.Errorf("checking %s: %w", rec.ToPath, err)
	}

	if err := h.fsmgr.MkdirAll(filepath.Dir(rec.FromPath)); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(rec.FromPath), err)
	}
	if _, err := h.fsmgr.Stat(rec.FromPath); err == nil {
		if err := h.fsmgr.Remove(rec.FromPath); err != nil {
			return nil, fmt.Errorf("replacing existing %s: %w", rec.FromPath, err)
		}
	}
	if err := h.fsmgr.Move(rec.ToPath, rec.FromPath, true); err != nil {
		return nil, fmt.Errorf("moving back to %s: %w", rec.FromPath, err)
	}

	now := h.clock.Now()
	if err := h.store.MarkMovementUndone(id, now); err != nil {
		return nil, fmt.Errorf("marking movement %d undone: %w", id, err)
	}
	rec.Status = model.MovementUndone
	rec.UndoneAt = &now

	if info, err := h.fsmgr.Stat(rec.FromPath); err == nil {
		fp := h.settings.Settings().Fingerprint()
		if err := h.cache.Record(rec.FromPath, info.Size(), info.ModTime(), fp, string(model.MovementUndone)); err != nil {
			h.logger.Warn("recording undone file in cache", "path", rec.FromPath, "error", err)
		}
	}

	if h.indexer != nil {
		if err := h.indexer.Relocate(rec.ToPath, rec.FromPath); err != nil {
			h.logger.Warn("relocating summary", "from", rec.ToPath, "to", rec.FromPath, "error", err)
		}
	}

	h.logger.Info("movement undone", "id", id, "path", rec.FromPath)
	return rec, nil
}

// HistoryStats summarizes the retained history.
type HistoryStats struct {
	Total             int            `json:"total"`
	Completed         int            `json:"completed"`
	Undone            int            `json:"undone"`
	AverageConfidence float64        `json:"average_confidence"`
	ByCategory        map[string]int `json:"by_category"`
}

// Stats computes HistoryStats over every retained record.
func (h *MovementHistory) Stats() (*HistoryStats, error) {
	recs, err := h.List(0)
	if err != nil {
		return nil, err
	}
	stats := &HistoryStats{ByCategory: make(map[string]int)}
	var sum float64
	for _, r := range recs {
		stats.Total++
		sum += r.Confidence
		stats.ByCategory[r.Category]++
		if r.Status == model.MovementUndone {
			stats.Undone++
		} else {
			stats.Completed++
		}
	}
	if stats.Total > 0 {
		stats.AverageConfidence = sum / float64(stats.Total)
	}
	return stats, nil
}
