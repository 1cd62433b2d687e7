// Package index keeps a searchable summary of every file the organizer moves.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sift-go/internal/model"
	"sift-go/internal/sift"
	"sift-go/internal/textutil"
)

const (
	summaryChars = 500
	bodyChars    = 10000
	keywordCount = 10

	// DefaultLimit is the number of search results when none is given.
	DefaultLimit = 5
)

// Score weights per field a query word is found in.
const (
	weightSummary    = 3
	weightKeyword    = 5
	weightBody       = 1
	weightTranscript = 2
)

// Index stores summaries keyed by final path and searches them.
type Index struct {
	store sift.SummaryStore
	clock sift.Clock
}

var _ sift.Indexer = (*Index)(nil)

func New(store sift.SummaryStore, clock sift.Clock) *Index {
	return &Index{store: store, clock: clock}
}

// Index upserts the summary of the file now at path.
func (ix *Index) Index(_ context.Context, path string, content *sift.ExtractedContent, category string) error {
	text := strings.TrimSpace(content.Text)
	if text == "" {
		text = strings.TrimSpace(content.ImageDescription)
	}
	sum := &model.Summary{
		Path:       path,
		Filename:   content.Filename,
		Category:   category,
		FileType:   string(content.FileType),
		Summary:    textutil.Truncate(text, summaryChars),
		Keywords:   textutil.TopKeywords(content.ClassificationText(), keywordCount),
		Body:       textutil.Truncate(text, bodyChars),
		Transcript: textutil.Truncate(content.AudioTranscript, bodyChars),
		IndexedAt:  ix.clock.Now(),
	}
	if err := ix.store.PutSummary(sum); err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	return nil
}

// Relocate re-points the summary of oldPath at newPath.
func (ix *Index) Relocate(oldPath, newPath string) error {
	if err := ix.store.MoveSummary(oldPath, newPath); err != nil {
		return fmt.Errorf("relocating summary %s: %w", oldPath, err)
	}
	return nil
}

// Result is one search hit.
type Result struct {
	Path     string   `json:"path"`
	Filename string   `json:"filename"`
	Category string   `json:"category"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Score    int      `json:"score"`
}

// Search scores every summary against the words of query and returns the
// best limit hits, highest score first.
func (ix *Index) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	words := uniqueWords(query)
	if len(words) == 0 {
		return nil, nil
	}

	summaries, err := ix.store.ListSummaries()
	if err != nil {
		return nil, fmt.Errorf("loading summaries: %w", err)
	}

	var results []Result
	for _, s := range summaries {
		if score := scoreSummary(s, words); score > 0 {
			results = append(results, Result{
				Path:     s.Path,
				Filename: s.Filename,
				Category: s.Category,
				Summary:  s.Summary,
				Keywords: s.Keywords,
				Score:    score,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scoreSummary(s *model.Summary, words []string) int {
	summary := strings.ToLower(s.Summary)
	body := strings.ToLower(s.Body)
	transcript := strings.ToLower(s.Transcript)
	keywords := make(map[string]bool, len(s.Keywords))
	for _, k := range s.Keywords {
		keywords[strings.ToLower(k)] = true
	}

	score := 0
	for _, w := range words {
		if strings.Contains(summary, w) {
			score += weightSummary
		}
		if keywords[w] {
			score += weightKeyword
		}
		if strings.Contains(body, w) {
			score += weightBody
		}
		if strings.Contains(transcript, w) {
			score += weightTranscript
		}
	}
	return score
}

func uniqueWords(q string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(strings.ToLower(q)) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
