package classify

import (
	"context"

	"sift-go/internal/sift"
	"sift-go/internal/textutil"
)

// KeywordClassifier works offline. It scores each candidate by the share of
// its name words found in the file's name and content.
type KeywordClassifier struct{}

var _ sift.Classifier = KeywordClassifier{}

func NewKeywordClassifier() KeywordClassifier { return KeywordClassifier{} }

func (KeywordClassifier) Classify(ctx context.Context, content *sift.ExtractedContent, candidates []string) (sift.Classification, error) {
	if err := ctx.Err(); err != nil {
		return sift.Classification{}, err
	}

	words := stemSet(content.ClassificationText())

	var best sift.Classification
	for _, c := range candidates {
		name := stemSet(c)
		if len(name) == 0 {
			continue
		}
		hits := 0
		for w := range name {
			if _, ok := words[w]; ok {
				hits++
			}
		}
		score := float64(hits) / float64(len(name))
		if score > best.Confidence {
			best = sift.Classification{Category: c, Confidence: score}
		}
	}
	return best, nil
}

func stemSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range textutil.Tokenize(s) {
		set[textutil.Stem(w)] = struct{}{}
	}
	return set
}
