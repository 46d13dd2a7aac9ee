package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/vibecheck/backend/internal/metrics"
)

// Vibe is the structured tone reading of a message.
type Vibe struct {
	Emoji   string `json:"emoji"`
	Mood    string `json:"mood"`
	Insight string `json:"insight"`
}

// ReplyCount is the number of suggested replies returned per message.
const ReplyCount = 3

// FallbackVibe is returned whenever the vibe analysis fails.
func FallbackVibe() Vibe {
	return Vibe{Emoji: "🤔", Mood: "Unknown", Insight: "Gemini couldn't read the room this time."}
}

// FallbackReplies is returned whenever reply generation fails.
func FallbackReplies() []string {
	return []string{"I have no words lol", "Mystery sender strikes again!", "Wait what? 😂"}
}

// Task selects the JSON contract a Generator must honour.
type Task string

const (
	// TaskVibe expects an object with emoji, mood and insight strings.
	TaskVibe Task = "vibe"
	// TaskReplies expects an array of strings.
	TaskReplies Task = "replies"
)

// Generator produces the raw JSON text for a task. Implementations build
// their remote client per call.
type Generator interface {
	Generate(ctx context.Context, task Task, content string) (string, error)
	Name() string
}

// Annotator turns Generator output into vibe readings and reply ideas,
// substituting fixed fallbacks on any failure.
type Annotator struct {
	gen Generator
	log *zap.Logger
}

// NewAnnotator wraps gen.
func NewAnnotator(gen Generator, logger *zap.Logger) *Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{gen: gen, log: logger.Named("ai").With(zap.String("provider", gen.Name()))}
}

// AnalyzeVibe never fails; errors are logged and replaced by FallbackVibe.
func (a *Annotator) AnalyzeVibe(ctx context.Context, content string) Vibe {
	metrics.AnnotationCalls.WithLabelValues(string(TaskVibe)).Inc()

	raw, err := a.gen.Generate(ctx, TaskVibe, content)
	if err != nil {
		return a.fallbackVibe(fmt.Errorf("generate: %w", err))
	}
	vibe, err := parseVibe(raw)
	if err != nil {
		return a.fallbackVibe(err)
	}
	return vibe
}

// SuggestReplies never fails; errors are logged and replaced by
// FallbackReplies. The result always has ReplyCount entries.
func (a *Annotator) SuggestReplies(ctx context.Context, content string) []string {
	metrics.AnnotationCalls.WithLabelValues(string(TaskReplies)).Inc()

	raw, err := a.gen.Generate(ctx, TaskReplies, content)
	if err != nil {
		return a.fallbackReplies(fmt.Errorf("generate: %w", err))
	}
	replies, err := parseReplies(raw)
	if err != nil {
		return a.fallbackReplies(err)
	}
	return replies
}

// Annotate runs both calls concurrently and waits for both.
func (a *Annotator) Annotate(ctx context.Context, content string) (Vibe, []string) {
	var (
		vibe    Vibe
		replies []string
		g       errgroup.Group
	)
	g.Go(func() error {
		vibe = a.AnalyzeVibe(ctx, content)
		return nil
	})
	g.Go(func() error {
		replies = a.SuggestReplies(ctx, content)
		return nil
	})
	_ = g.Wait()
	return vibe, replies
}

func (a *Annotator) fallbackVibe(err error) Vibe {
	metrics.AnnotationFallbacks.WithLabelValues(string(TaskVibe)).Inc()
	a.log.Warn("vibe analysis failed, use fallback", zap.Error(err))
	return FallbackVibe()
}

func (a *Annotator) fallbackReplies(err error) []string {
	metrics.AnnotationFallbacks.WithLabelValues(string(TaskReplies)).Inc()
	a.log.Warn("reply generation failed, use fallback", zap.Error(err))
	return FallbackReplies()
}

// parseVibe 解析模型返回的 JSON 对象，容忍前后多余文本。
func parseVibe(content string) (Vibe, error) {
	body, err := extractJSON(content, '{', '}')
	if err != nil {
		return Vibe{}, err
	}
	var v Vibe
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return Vibe{}, fmt.Errorf("decode vibe: %w", err)
	}
	v.Emoji = strings.TrimSpace(v.Emoji)
	v.Mood = strings.TrimSpace(v.Mood)
	v.Insight = strings.TrimSpace(v.Insight)
	if v.Emoji == "" || v.Mood == "" || v.Insight == "" {
		return Vibe{}, fmt.Errorf("vibe missing fields: %+v", v)
	}
	return v, nil
}

// parseReplies keeps the first ReplyCount non-empty strings; fewer is an error.
func parseReplies(content string) ([]string, error) {
	body, err := extractJSON(content, '[', ']')
	if err != nil {
		return nil, err
	}
	var items []string
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("decode replies: %w", err)
	}
	out := make([]string, 0, ReplyCount)
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
		if len(out) == ReplyCount {
			return out, nil
		}
	}
	return nil, fmt.Errorf("expected %d replies, got %d", ReplyCount, len(out))
}

func extractJSON(content string, opening, closing byte) (string, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.IndexByte(trimmed, opening)
	end := strings.LastIndexByte(trimmed, closing)
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("missing json %c%c", opening, closing)
	}
	return trimmed[start : end+1], nil
}
