package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sift-go/internal/model"
	"sift-go/internal/sift"
)

const movementColumns = `id, filename, from_path, to_path, category, confidence, detection,
	backup_key, status, created_at, undone_at, schema_version`

func scanMovement(sc interface{ Scan(...any) error }) (*model.MovementRecord, error) {
	var m model.MovementRecord
	var status string
	var undone sql.NullTime
	err := sc.Scan(&m.ID, &m.Filename, &m.FromPath, &m.ToPath, &m.Category, &m.Confidence, &m.Detection,
		&m.BackupKey, &status, &m.CreatedAt, &undone, &m.SchemaVersion)
	if err != nil {
		return nil, err
	}
	m.Status = model.MovementStatus(status)
	if undone.Valid {
		t := undone.Time
		m.UndoneAt = &t
	}
	return &m, nil
}

// AppendMovement inserts rec, assigns rec.ID and trims the history to the
// newest retention records in the same transaction.
func (s *SQLiteDatabase) AppendMovement(rec *model.MovementRecord, retention int) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO movements (filename, from_path, to_path, category, confidence, detection,
			backup_key, status, created_at, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Filename, rec.FromPath, rec.ToPath, rec.Category, rec.Confidence, rec.Detection,
		rec.BackupKey, string(rec.Status), rec.CreatedAt.UTC(), rec.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("inserting movement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading movement id: %w", err)
	}

	if retention > 0 {
		_, err := tx.Exec(`
			DELETE FROM movements WHERE id NOT IN (
				SELECT id FROM movements ORDER BY id DESC LIMIT ?
			)`, retention)
		if err != nil {
			return fmt.Errorf("trimming movement history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing movement: %w", err)
	}
	rec.ID = id
	return nil
}

func (s *SQLiteDatabase) FindMovement(id int64) (*model.MovementRecord, error) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	m, err := scanMovement(s.db.QueryRow(`SELECT `+movementColumns+` FROM movements WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding movement: %w", err)
	}
	return m, nil
}

func (s *SQLiteDatabase) ListMovements(limit int) ([]*model.MovementRecord, error) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.Query(`SELECT `+movementColumns+` FROM movements ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var out []*model.MovementRecord
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteDatabase) MarkMovementUndone(id int64, at time.Time) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	res, err := s.db.Exec(`UPDATE movements SET status = ?, undone_at = ? WHERE id = ? AND status = ?`,
		string(model.MovementUndone), at.UTC(), id, string(model.MovementCompleted))
	if err != nil {
		return fmt.Errorf("marking movement undone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM movements WHERE id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("checking movement: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("movement %d: %w", id, sift.ErrNotFound)
	}
	return fmt.Errorf("movement %d: %w", id, sift.ErrAlreadyUndone)
}
