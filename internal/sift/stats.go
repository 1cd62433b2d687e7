package sift

import "sync/atomic"

// Stats counts outcomes since the process started.
type Stats struct {
	processed atomic.Int64
	moved     atomic.Int64
	kept      atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Processed int64 `json:"processed"`
	Moved     int64 `json:"moved"`
	Kept      int64 `json:"kept_in_place"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

func (s *Stats) observe(o Outcome) {
	s.processed.Add(1)
	switch o.(type) {
	case Moved:
		s.moved.Add(1)
	case KeptInPlace:
		s.kept.Add(1)
	case Skipped:
		s.skipped.Add(1)
	default:
		s.failed.Add(1)
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Processed: s.processed.Load(),
		Moved:     s.moved.Load(),
		Kept:      s.kept.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
	}
}
