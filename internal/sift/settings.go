package sift

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"sift-go/internal/model"
)

// FallbackBehavior decides what happens to files below the confidence threshold.
type FallbackBehavior string

const (
	FallbackKeep   FallbackBehavior = "keep"
	FallbackReview FallbackBehavior = "review"
)

// ReviewCategory labels files routed to the review folder.
const ReviewCategory = "Review"

// Thresholds are the minimum confidences per coarse file type.
type Thresholds struct {
	Text   float64 `json:"text"`
	Images float64 `json:"images"`
	Audio  float64 `json:"audio"`
	Video  float64 `json:"video"`
}

// ModelToggles switch content extraction per coarse file type.
type ModelToggles struct {
	Text   bool `json:"text"`
	Images bool `json:"images"`
	Audio  bool `json:"audio"`
	Video  bool `json:"video"`
}

// Enabled reports whether extraction is on for the file type.
func (m ModelToggles) Enabled(t FileType) bool {
	switch t {
	case FileTypeImage:
		return m.Images
	case FileTypeAudio:
		return m.Audio
	case FileTypeVideo:
		return m.Video
	default:
		return m.Text
	}
}

// Settings is an immutable snapshot of the organizer's decision settings.
type Settings struct {
	Thresholds        Thresholds
	Models            ModelToggles
	Fallback          FallbackBehavior
	ReviewDir         string
	SkipHiddenFiles   bool
	MaxFileSizeMB     float64 // 0 disables the limit
	CreateBackups     bool
	PreserveMetadata  bool
	ClassifierTimeout time.Duration
	HistoryRetention  int
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Thresholds:        Thresholds{Text: 0.85, Images: 0.80, Audio: 0.75, Video: 0.70},
		Models:            ModelToggles{Text: true, Images: true, Audio: true, Video: true},
		Fallback:          FallbackKeep,
		SkipHiddenFiles:   true,
		MaxFileSizeMB:     500,
		PreserveMetadata:  true,
		ClassifierTimeout: 60 * time.Second,
		HistoryRetention:  1000,
	}
}

// ThresholdFor returns the threshold for a coarse file type. Documents and
// unknown types use the text threshold.
func (s Settings) ThresholdFor(t FileType) float64 {
	switch t {
	case FileTypeImage:
		return s.Thresholds.Images
	case FileTypeVideo:
		return s.Thresholds.Video
	case FileTypeAudio:
		return s.Thresholds.Audio
	default:
		return s.Thresholds.Text
	}
}

// Fingerprint is a stable digest of every setting that affects a decision.
// Changing any of them makes previously cached files eligible again.
func (s Settings) Fingerprint() string {
	data, _ := json.Marshal(struct {
		Schema          int              `json:"schema"`
		Thresholds      Thresholds       `json:"thresholds"`
		Models          ModelToggles     `json:"models"`
		Fallback        FallbackBehavior `json:"fallback"`
		ReviewDir       string           `json:"review_dir"`
		SkipHiddenFiles bool             `json:"skip_hidden"`
		MaxFileSizeMB   float64          `json:"max_file_size_mb"`
	}{
		Schema:          model.SchemaVersion,
		Thresholds:      s.Thresholds,
		Models:          s.Models,
		Fallback:        s.Fallback,
		ReviewDir:       s.ReviewDir,
		SkipHiddenFiles: s.SkipHiddenFiles,
		MaxFileSizeMB:   s.MaxFileSizeMB,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SettingsProvider hands out the current settings snapshot.
type SettingsProvider interface {
	Settings() Settings
}

// SettingsHolder publishes settings snapshots. Readers never block.
type SettingsHolder struct {
	current atomic.Pointer[Settings]
}

func NewSettingsHolder(s Settings) *SettingsHolder {
	h := &SettingsHolder{}
	h.Store(s)
	return h
}

func (h *SettingsHolder) Settings() Settings { return *h.current.Load() }

// Store replaces the current snapshot.
func (h *SettingsHolder) Store(s Settings) { h.current.Store(&s) }
