package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
	"github.com/bryanwahyu/thoraxsense/internal/infra/inference/prompt"
)

const maxTokens = 1024

// Client implementasi Diagnoser di atas OpenAI vision chat completion.
// Dipakai kalau endpoint inference internal tidak tersedia.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Diagnose(ctx context.Context, img *domain.ImageHandle) (*domain.DiagnosticRecord, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o"
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt()},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: img.DataURI}},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrUnreachable)
	}

	var out struct {
		Success         bool     `json:"success"`
		Disease         string   `json:"disease"`
		Confidence      float64  `json:"confidence"`
		Findings        []string `json:"findings"`
		Recommendations []string `json:"recommendations"`
		Error           string   `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("%w: decoding completion: %v", domain.ErrUnreachable, err)
	}
	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = "analysis failed"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRejected, reason)
	}
	if out.Disease == "" || len(out.Findings) == 0 || len(out.Recommendations) == 0 {
		return nil, fmt.Errorf("%w: malformed completion", domain.ErrUnreachable)
	}

	return &domain.DiagnosticRecord{
		Disease:         out.Disease,
		Confidence:      fmt.Sprintf("%.1f%%", out.Confidence),
		Findings:        out.Findings,
		Recommendations: out.Recommendations,
		Source:          domain.SourceInference,
		ProducedAt:      time.Now(),
	}, nil
}
