package app

import (
	"time"

	"sift-go/internal/config"
	"sift-go/internal/sift"
)

// SettingsFromConfig builds the decision settings snapshot from a config.
func SettingsFromConfig(cfg *config.Config) sift.Settings {
	o := cfg.Organizer
	s := sift.Settings{
		Thresholds: sift.Thresholds{
			Text:   o.Thresholds.Text,
			Images: o.Thresholds.Images,
			Audio:  o.Thresholds.Audio,
			Video:  o.Thresholds.Video,
		},
		Models: sift.ModelToggles{
			Text:   cfg.Models.Text,
			Images: cfg.Models.Images,
			Audio:  cfg.Models.Audio,
			Video:  cfg.Models.Video,
		},
		Fallback:          sift.FallbackKeep,
		SkipHiddenFiles:   o.SkipHiddenFiles,
		MaxFileSizeMB:     o.MaxFileSizeMB,
		CreateBackups:     o.CreateBackups,
		PreserveMetadata:  o.PreserveMetadata,
		ClassifierTimeout: time.Duration(o.ClassifierTimeoutSeconds) * time.Second,
		HistoryRetention:  o.HistoryRetention,
	}
	if o.Fallback == string(sift.FallbackReview) {
		s.Fallback = sift.FallbackReview
		s.ReviewDir = o.ReviewDir
	}
	return s
}
