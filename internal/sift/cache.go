package sift

import (
	"fmt"
	"io/fs"
	"time"

	"sift-go/internal/model"
)

// IdempotencyCache decides whether a path needs (re)processing.
// A file is reprocessed when it has no entry, its size or modification time
// changed, or the settings fingerprint changed.
type IdempotencyCache struct {
	store  CacheStore
	fsmgr  FilesystemManager
	clock  Clock
	logger Logger
}

func NewIdempotencyCache(store CacheStore, fsmgr FilesystemManager, clock Clock, logger Logger) *IdempotencyCache {
	return &IdempotencyCache{store: store, fsmgr: fsmgr, clock: clock, logger: logger}
}

// ShouldProcess reports whether path needs processing under fingerprint.
// It returns false when the file no longer exists and never returns an error.
func (c *IdempotencyCache) ShouldProcess(path, fingerprint string) bool {
	info, err := c.fsmgr.Stat(path)
	if err != nil {
		return false
	}
	return c.shouldProcessInfo(path, info, fingerprint)
}

func (c *IdempotencyCache) shouldProcessInfo(path string, info fs.FileInfo, fingerprint string) bool {
	entry, err := c.store.GetCacheEntry(path)
	if err != nil {
		// Reprocessing is the safe side of an unreadable cache.
		c.logger.Warn("reading cache entry", "path", path, "error", err)
		return true
	}
	if entry == nil {
		return true
	}
	return entry.Size != info.Size() ||
		!entry.ModifiedAt.Equal(info.ModTime()) ||
		entry.Fingerprint != fingerprint
}

// Record upserts the cache entry for path. It is durable when it returns.
func (c *IdempotencyCache) Record(path string, size int64, modTime time.Time, fingerprint, status string) error {
	entry := &model.CacheEntry{
		Path:          path,
		Size:          size,
		ModifiedAt:    modTime,
		Fingerprint:   fingerprint,
		Status:        status,
		SchemaVersion: model.SchemaVersion,
		UpdatedAt:     c.clock.Now(),
	}
	if err := c.store.PutCacheEntry(entry); err != nil {
		return fmt.Errorf("recording cache entry for %s: %w", path, err)
	}
	return nil
}

// Lookup returns the cache entry for path, or nil.
func (c *IdempotencyCache) Lookup(path string) (*model.CacheEntry, error) {
	return c.store.GetCacheEntry(path)
}
