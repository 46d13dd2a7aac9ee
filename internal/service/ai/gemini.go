package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini API with a JSON response schema.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiGenerator validates the credentials up front; the client itself
// is created per call.
func NewGeminiGenerator(apiKey, model, baseURL string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &GeminiGenerator{apiKey: apiKey, model: model, baseURL: baseURL}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini:" + g.model }

func (g *GeminiGenerator) Generate(ctx context.Context, task Task, content string) (string, error) {
	cc := &genai.ClientConfig{APIKey: g.apiKey, Backend: genai.BackendGeminiAPI}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(promptFor(task, content)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instructionFor(task), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(task),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned empty response")
	}
	return text, nil
}

func responseSchema(task Task) *genai.Schema {
	if task == TaskReplies {
		return &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"emoji":   {Type: genai.TypeString},
			"mood":    {Type: genai.TypeString},
			"insight": {Type: genai.TypeString},
		},
		Required: []string{"emoji", "mood", "insight"},
	}
}
