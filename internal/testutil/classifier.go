package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"sift-go/internal/sift"
)

// StubClassifier returns a fixed answer, or the answer of Func when set.
// It counts calls and remembers the candidates it was last given.
type StubClassifier struct {
	Result sift.Classification
	Err    error
	Func   func(ctx context.Context, content *sift.ExtractedContent, candidates []string) (sift.Classification, error)

	calls atomic.Int64

	mu             sync.Mutex
	lastCandidates []string
}

var _ sift.Classifier = (*StubClassifier)(nil)

func (c *StubClassifier) Classify(ctx context.Context, content *sift.ExtractedContent, candidates []string) (sift.Classification, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.lastCandidates = append([]string(nil), candidates...)
	c.mu.Unlock()
	if c.Func != nil {
		return c.Func(ctx, content, candidates)
	}
	return c.Result, c.Err
}

// Calls returns how many times Classify ran.
func (c *StubClassifier) Calls() int { return int(c.calls.Load()) }

// LastCandidates returns the candidate list of the most recent call.
func (c *StubClassifier) LastCandidates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCandidates
}

// StubExtractor returns the file's name and a fixed type, or Err.
type StubExtractor struct {
	Text     string
	FileType sift.FileType
	Err      error
}

var _ sift.Extractor = (*StubExtractor)(nil)

func (x *StubExtractor) Extract(_ context.Context, path string) (*sift.ExtractedContent, error) {
	if x.Err != nil {
		return nil, x.Err
	}
	ft := x.FileType
	if ft == "" {
		ft = sift.FileTypeDocument
	}
	return &sift.ExtractedContent{Filename: filepath.Base(path), Text: x.Text, FileType: ft}, nil
}
