package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/vibecheck/backend/internal/config"
)

// ArkGenerator runs the annotation prompts through an eino chain backed by
// an Ark chat model.
type ArkGenerator struct {
	cfg config.AIConfig
}

// NewArkGenerator checks that Ark credentials are present.
func NewArkGenerator(cfg config.AIConfig) (*ArkGenerator, error) {
	if !cfg.ArkEnabled() {
		return nil, errors.New("ark credentials or model missing")
	}
	return &ArkGenerator{cfg: cfg}, nil
}

func (g *ArkGenerator) Name() string { return "ark:" + g.cfg.Model }

func (g *ArkGenerator) Generate(ctx context.Context, task Task, content string) (string, error) {
	chatModel, err := g.cfg.NewChatModel(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to compile annotation chain: %w", err)
	}

	msg, err := runnable.Invoke(ctx, map[string]any{
		"system": instructionFor(task),
		"query":  promptFor(task, content),
	})
	if err != nil {
		return "", fmt.Errorf("failed to run annotation chain: %w", err)
	}
	if msg == nil {
		return "", errors.New("empty model response")
	}
	return msg.Content, nil
}
