package classify

import (
	"fmt"
	"os"

	"sift-go/internal/config"
	"sift-go/internal/sift"
)

// NewClassifierFromConfig creates the classifier named by cfg.Type.
func NewClassifierFromConfig(cfg config.ClassifierConfig, logger sift.Logger) (sift.Classifier, error) {
	switch cfg.Type {
	case "llm", "":
		var key string
		if cfg.APIKeyEnv != "" {
			key = os.Getenv(cfg.APIKeyEnv)
		}
		return NewLLMClassifier(LLMOptions{
			BaseURL:           cfg.BaseURL,
			APIKey:            key,
			Model:             cfg.Model,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
			MaxPromptChars:    cfg.MaxPromptChars,
		}, logger)
	case "keyword":
		return NewKeywordClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown classifier type: %q", cfg.Type)
	}
}
