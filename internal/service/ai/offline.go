package ai

import (
	"context"
	"encoding/json"

	"github.com/zhouzirui/vibecheck/backend/internal/analysis/vibe"
)

// OfflineGenerator answers from the local keyword heuristics so the app
// stays usable without AI credentials.
type OfflineGenerator struct{}

func (OfflineGenerator) Name() string { return "offline" }

func (OfflineGenerator) Generate(_ context.Context, task Task, content string) (string, error) {
	var payload any
	if task == TaskReplies {
		payload = vibe.Replies(content)
	} else {
		r := vibe.Analyze(content)
		payload = Vibe{Emoji: r.Emoji, Mood: r.Mood, Insight: r.Insight}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
