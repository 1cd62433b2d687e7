package database

import (
	"fmt"
	"strings"

	"sift-go/internal/model"
)

func (s *SQLiteDatabase) PutSummary(sum *model.Summary) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO summaries (path, filename, category, file_type, summary, keywords, body, transcript, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			filename = excluded.filename,
			category = excluded.category,
			file_type = excluded.file_type,
			summary = excluded.summary,
			keywords = excluded.keywords,
			body = excluded.body,
			transcript = excluded.transcript,
			indexed_at = excluded.indexed_at`,
		sum.Path, sum.Filename, sum.Category, sum.FileType, sum.Summary,
		strings.Join(sum.Keywords, ","), sum.Body, sum.Transcript, sum.IndexedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("putting summary: %w", err)
	}
	return nil
}

// MoveSummary re-keys the summary stored for oldPath. A missing summary is not an error.
func (s *SQLiteDatabase) MoveSummary(oldPath, newPath string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM summaries WHERE path = ?`, newPath); err != nil {
		return fmt.Errorf("clearing summary at %s: %w", newPath, err)
	}
	if _, err := tx.Exec(`UPDATE summaries SET path = ? WHERE path = ?`, newPath, oldPath); err != nil {
		return fmt.Errorf("moving summary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing summary move: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListSummaries() ([]*model.Summary, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	rows, err := s.db.Query(`
		SELECT path, filename, category, file_type, summary, keywords, body, transcript, indexed_at
		FROM summaries ORDER BY indexed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	defer rows.Close()

	var out []*model.Summary
	for rows.Next() {
		var sum model.Summary
		var keywords string
		if err := rows.Scan(&sum.Path, &sum.Filename, &sum.Category, &sum.FileType, &sum.Summary,
			&keywords, &sum.Body, &sum.Transcript, &sum.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		if keywords != "" {
			sum.Keywords = strings.Split(keywords, ",")
		}
		out = append(out, &sum)
	}
	return out, rows.Err()
}
