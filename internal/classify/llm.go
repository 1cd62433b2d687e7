// Package classify implements sift.Classifier backends.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"sift-go/internal/sift"
	"sift-go/internal/textutil"
)

// unparsedConfidence is used when the model names a category but its
// confidence line is unreadable.
const unparsedConfidence = 50

const systemPrompt = "You sort files into folders. Answer only in the requested format."

// LLMOptions configure an LLMClassifier.
type LLMOptions struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestsPerSecond float64 // 0 disables rate limiting
	Burst             int
	MaxPromptChars    int
}

// LLMClassifier asks an OpenAI-compatible chat endpoint (OpenAI, Ollama,
// LM Studio) to pick a category and rate its confidence from 0 to 100.
type LLMClassifier struct {
	client         *openai.Client
	model          string
	limiter        *rate.Limiter
	maxPromptChars int
	logger         sift.Logger
}

var _ sift.Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(opts LLMOptions, logger sift.Logger) (*LLMClassifier, error) {
	if opts.Model == "" {
		return nil, errors.New("llm classifier requires a model")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	maxChars := opts.MaxPromptChars
	if maxChars <= 0 {
		maxChars = 4000
	}

	return &LLMClassifier{
		client:         openai.NewClientWithConfig(cfg),
		model:          opts.Model,
		limiter:        limiter,
		maxPromptChars: maxChars,
		logger:         logger,
	}, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, content *sift.ExtractedContent, candidates []string) (sift.Classification, error) {
	if len(candidates) == 0 {
		return sift.Classification{}, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return sift.Classification{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(content, candidates, c.maxPromptChars)},
		},
	})
	if err != nil {
		return sift.Classification{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return sift.Classification{}, errors.New("chat completion returned no choices")
	}

	answer := resp.Choices[0].Message.Content
	result := ParseAnswer(answer, candidates)
	c.logger.Debug("llm classification", "file", content.Filename, "category", result.Category,
		"confidence", result.Confidence)
	return result, nil
}

func buildPrompt(content *sift.ExtractedContent, candidates []string, maxChars int) string {
	var b strings.Builder
	b.WriteString("Which category fits this file best? Rate your confidence from 0-100.\n\n")
	fmt.Fprintf(&b, "Filename: %s\n", content.Filename)
	fmt.Fprintf(&b, "File type: %s\n", content.FileType)
	if content.Text != "" {
		fmt.Fprintf(&b, "Content:\n%s\n", textutil.Truncate(content.Text, maxChars))
	}
	if content.ImageDescription != "" {
		fmt.Fprintf(&b, "Image description: %s\n", textutil.Truncate(content.ImageDescription, maxChars/4))
	}
	if content.AudioTranscript != "" {
		fmt.Fprintf(&b, "Transcript:\n%s\n", textutil.Truncate(content.AudioTranscript, maxChars/2))
	}
	fmt.Fprintf(&b, "\nAvailable categories: %s\n\n", strings.Join(candidates, ", "))
	b.WriteString("Respond ONLY in this exact format:\nCATEGORY: <category_name>\nCONFIDENCE: <number from 0-100>\n")
	return b.String()
}

// ParseAnswer reads the CATEGORY and CONFIDENCE lines of a model answer.
// The category is matched to a candidate case-insensitively, first exactly
// and then by containment, preferring the longest candidate. The confidence
// is read on the 0..100 scale the prompt asks for and returned as a
// fraction in [0, 1].
func ParseAnswer(answer string, candidates []string) sift.Classification {
	var category string
	confidence := -1.0

	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*#-"))
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(strings.Trim(key, "* "))) {
		case "CATEGORY":
			if category == "" {
				category = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `"'*<>[]`))
			}
		case "CONFIDENCE":
			if confidence < 0 {
				confidence = parseConfidence(value)
			}
		}
	}

	if category == "" {
		return sift.Classification{}
	}
	if confidence < 0 {
		confidence = unparsedConfidence
	}
	return sift.Classification{Category: matchCandidate(category, candidates), Confidence: min(confidence, 100) / 100}
}

func parseConfidence(s string) float64 {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if (r >= '0' && r <= '9') || r == '.' {
			digits.WriteRune(r)
		} else if digits.Len() > 0 {
			break
		}
	}
	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return unparsedConfidence
	}
	return v
}

func matchCandidate(answer string, candidates []string) string {
	lower := strings.ToLower(answer)
	for _, c := range candidates {
		if strings.EqualFold(c, answer) {
			return c
		}
	}
	best := ""
	for _, c := range candidates {
		if strings.Contains(lower, strings.ToLower(c)) && len(c) > len(best) {
			best = c
		}
	}
	return best
}
