package sift

import (
	"context"
	"strings"
	"time"
)

// FileType is the coarse content type of a file.
type FileType string

const (
	FileTypeDocument FileType = "document"
	FileTypeImage    FileType = "image"
	FileTypeAudio    FileType = "audio"
	FileTypeVideo    FileType = "video"
	FileTypeOther    FileType = "other"
)

// ExtractedContent is the set of signals derived from a file for classification.
type ExtractedContent struct {
	Filename         string
	Text             string
	AudioTranscript  string
	ImageDescription string
	FileType         FileType
	Metadata         map[string]string
}

// HasSignals reports whether any content signal beyond the filename was extracted.
func (c *ExtractedContent) HasSignals() bool {
	return strings.TrimSpace(c.Text) != "" ||
		strings.TrimSpace(c.AudioTranscript) != "" ||
		strings.TrimSpace(c.ImageDescription) != ""
}

// ClassificationText joins every available signal. With no signals it is the filename.
func (c *ExtractedContent) ClassificationText() string {
	var parts []string
	if c.Filename != "" {
		parts = append(parts, c.Filename)
	}
	for _, s := range []string{c.Text, c.AudioTranscript, c.ImageDescription} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Extractor derives content signals from a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*ExtractedContent, error)
}

// Classification is a classifier's answer. Confidence should be in [0, 1];
// the engine still treats values above 1 as percentages.
type Classification struct {
	Category   string
	Confidence float64
}

// Classifier picks one of the candidate category names for the content.
type Classifier interface {
	Classify(ctx context.Context, content *ExtractedContent, candidates []string) (Classification, error)
}

// Indexer is notified after every successful move and every undo.
type Indexer interface {
	Index(ctx context.Context, path string, content *ExtractedContent, category string) error
	Relocate(oldPath, newPath string) error
}

// BackupSink takes a copy of a file before it is moved and returns the backup key.
type BackupSink interface {
	Backup(ctx context.Context, path string, at time.Time) (string, error)
}
