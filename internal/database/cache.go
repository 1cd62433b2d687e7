package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sift-go/internal/model"
)

func (s *SQLiteDatabase) GetCacheEntry(path string) (*model.CacheEntry, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	var e model.CacheEntry
	var modNs int64
	err := s.db.QueryRow(`
		SELECT path, size, modified_at_ns, fingerprint, status, schema_version, updated_at
		FROM processing_cache WHERE path = ?`, path,
	).Scan(&e.Path, &e.Size, &modNs, &e.Fingerprint, &e.Status, &e.SchemaVersion, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cache entry: %w", err)
	}
	e.ModifiedAt = time.Unix(0, modNs)
	return &e, nil
}

func (s *SQLiteDatabase) PutCacheEntry(e *model.CacheEntry) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO processing_cache (path, size, modified_at_ns, fingerprint, status, schema_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			size = excluded.size,
			modified_at_ns = excluded.modified_at_ns,
			fingerprint = excluded.fingerprint,
			status = excluded.status,
			schema_version = excluded.schema_version,
			updated_at = excluded.updated_at`,
		e.Path, e.Size, e.ModifiedAt.UnixNano(), e.Fingerprint, e.Status, e.SchemaVersion, e.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("putting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteCacheEntry(path string) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM processing_cache WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}
