package sift_test

import (
	"math"
	"testing"
	"time"

	"sift-go/internal/sift"
)

func TestSettings_Fingerprint(t *testing.T) {
	base := sift.DefaultSettings()

	if base.Fingerprint() != sift.DefaultSettings().Fingerprint() {
		t.Fatal("Fingerprint() is not stable")
	}

	tests := []struct {
		name    string
		mutate  func(*sift.Settings)
		changes bool
	}{
		{name: "text threshold", mutate: func(s *sift.Settings) { s.Thresholds.Text = 0.9 }, changes: true},
		{name: "model toggle", mutate: func(s *sift.Settings) { s.Models.Audio = false }, changes: true},
		{name: "fallback", mutate: func(s *sift.Settings) { s.Fallback = sift.FallbackReview }, changes: true},
		{name: "hidden files", mutate: func(s *sift.Settings) { s.SkipHiddenFiles = false }, changes: true},
		{name: "size limit", mutate: func(s *sift.Settings) { s.MaxFileSizeMB = 10 }, changes: true},
		{name: "backups", mutate: func(s *sift.Settings) { s.CreateBackups = true }},
		{name: "timeout", mutate: func(s *sift.Settings) { s.ClassifierTimeout = time.Second }},
		{name: "retention", mutate: func(s *sift.Settings) { s.HistoryRetention = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sift.DefaultSettings()
			tt.mutate(&s)
			if got := s.Fingerprint() != base.Fingerprint(); got != tt.changes {
				t.Errorf("fingerprint changed = %v, want %v", got, tt.changes)
			}
		})
	}
}

func TestSettings_ThresholdFor(t *testing.T) {
	s := sift.DefaultSettings()
	tests := map[sift.FileType]float64{
		sift.FileTypeDocument: 0.85,
		sift.FileTypeImage:    0.80,
		sift.FileTypeAudio:    0.75,
		sift.FileTypeVideo:    0.70,
		sift.FileTypeOther:    0.85,
	}
	for ft, want := range tests {
		if got := s.ThresholdFor(ft); got != want {
			t.Errorf("ThresholdFor(%s) = %v, want %v", ft, got, want)
		}
	}
}

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{72, 0.72},
		{100, 1},
		{250, 1},
		{-3, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := sift.NormalizeConfidence(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSettingsHolder(t *testing.T) {
	h := sift.NewSettingsHolder(sift.DefaultSettings())
	s := h.Settings()
	s.Fallback = sift.FallbackReview

	if h.Settings().Fallback != sift.FallbackKeep {
		t.Error("mutating a snapshot changed the holder")
	}

	h.Store(s)
	if h.Settings().Fallback != sift.FallbackReview {
		t.Error("Store() did not publish the new snapshot")
	}
}

func TestStatusTag(t *testing.T) {
	tests := []struct {
		out  sift.Outcome
		want string
	}{
		{sift.Moved{}, "moved"},
		{sift.KeptInPlace{Reason: sift.ReasonNoCategories}, "kept_in_place:no_categories"},
		{sift.Skipped{Reason: sift.ReasonHiddenFile}, "skipped:hidden_file"},
		{sift.Failed{Message: "x"}, "failed"},
	}
	for _, tt := range tests {
		if got := sift.StatusTag(tt.out); got != tt.want {
			t.Errorf("StatusTag(%#v) = %q, want %q", tt.out, got, tt.want)
		}
	}
}
