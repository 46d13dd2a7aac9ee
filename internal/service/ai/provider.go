package ai

import (
	"fmt"

	"github.com/zhouzirui/vibecheck/backend/internal/config"
)

// NewGenerator picks the Generator named by cfg.Provider.
func NewGenerator(cfg config.AIConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		gen, err := NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case config.ProviderArk:
		gen, err := NewArkGenerator(cfg)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case config.ProviderOffline, "":
		return OfflineGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
