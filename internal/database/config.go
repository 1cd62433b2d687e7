package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sift-go/internal/model"
	"sift-go/internal/sift"
)

// Category operations

func (s *SQLiteDatabase) ListCategories() ([]*model.Category, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	rows, err := s.db.Query(`SELECT id, name, destination_path, created_at FROM categories ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []*model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DestinationPath, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLiteDatabase) FindCategoryByName(name string) (*model.Category, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	return s.findCategoryByName(name)
}

func (s *SQLiteDatabase) findCategoryByName(name string) (*model.Category, error) {
	var c model.Category
	err := s.db.QueryRow(`
		SELECT id, name, destination_path, created_at FROM categories
		WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&c.ID, &c.Name, &c.DestinationPath, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding category: %w", err)
	}
	return &c, nil
}

func (s *SQLiteDatabase) CreateCategory(name, destination string) (*model.Category, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	existing, err := s.findCategoryByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%q: %w", name, sift.ErrDuplicateCategory)
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO categories (name, destination_path, created_at) VALUES (?, ?, ?)`,
		name, destination, now)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading category id: %w", err)
	}
	return &model.Category{ID: id, Name: name, DestinationPath: destination, CreatedAt: now}, nil
}

func (s *SQLiteDatabase) DeleteCategory(id int64) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	res, err := s.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return requireRow(res, fmt.Sprintf("category %d", id))
}

// Watched folder operations

const folderColumns = `id, name, source_path, status, last_activity_at, created_at`

func scanFolder(sc interface{ Scan(...any) error }) (*model.WatchedFolder, error) {
	var f model.WatchedFolder
	var status string
	var last sql.NullTime
	if err := sc.Scan(&f.ID, &f.Name, &f.SourcePath, &status, &last, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Status = model.FolderStatus(status)
	if last.Valid {
		t := last.Time
		f.LastActivityAt = &t
	}
	return &f, nil
}

func (s *SQLiteDatabase) ListFolders() ([]*model.WatchedFolder, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	rows, err := s.db.Query(`SELECT ` + folderColumns + ` FROM watched_folders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer rows.Close()

	var out []*model.WatchedFolder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteDatabase) FindFolder(id int64) (*model.WatchedFolder, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	f, err := scanFolder(s.db.QueryRow(`SELECT `+folderColumns+` FROM watched_folders WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	return f, nil
}

func (s *SQLiteDatabase) CreateFolder(name, sourcePath string) (*model.WatchedFolder, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM watched_folders WHERE source_path = ?`, sourcePath).Scan(&count); err != nil {
		return nil, fmt.Errorf("checking folder: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%s: %w", sourcePath, sift.ErrDuplicateFolder)
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO watched_folders (name, source_path, status, created_at) VALUES (?, ?, ?, ?)`,
		name, sourcePath, string(model.FolderActive), now)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading folder id: %w", err)
	}
	return &model.WatchedFolder{ID: id, Name: name, SourcePath: sourcePath, Status: model.FolderActive, CreatedAt: now}, nil
}

func (s *SQLiteDatabase) SetFolderStatus(id int64, status model.FolderStatus) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	res, err := s.db.Exec(`UPDATE watched_folders SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating folder status: %w", err)
	}
	return requireRow(res, fmt.Sprintf("folder %d", id))
}

func (s *SQLiteDatabase) TouchFolder(id int64, at time.Time) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	if _, err := s.db.Exec(`UPDATE watched_folders SET last_activity_at = ? WHERE id = ?`, at.UTC(), id); err != nil {
		return fmt.Errorf("touching folder: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, sift.ErrNotFound)
	}
	return nil
}
