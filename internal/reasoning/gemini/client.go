// Package gemini provides the reasoning primitives over Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/shared/telemetry"
)

const transcribePrompt = "Transcribe this audio recording verbatim. Return only the spoken words, with no commentary."

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements reasoning.Completer and reasoning.AudioTranscriber.
type Client struct {
	models generator
	model  string
}

// NewClient builds a Gemini API client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{models: client.Models, model: model}, nil
}

func (c *Client) CompleteJSON(ctx context.Context, system, prompt string) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	}
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	logUsage(c.model, resp)
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: gemini response empty", reasoning.ErrMalformed)
	}
	return []byte(text), nil
}

func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	mime := mimetype.Detect(data).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(data, mime),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe %s: %w", filename, err)
	}
	logUsage(c.model, resp)
	return strings.TrimSpace(resp.Text()), nil
}

func logUsage(model string, resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	telemetry.Debug("gemini.usage", map[string]any{
		"model":         model,
		"prompt_tokens": resp.UsageMetadata.PromptTokenCount,
		"output_tokens": resp.UsageMetadata.CandidatesTokenCount,
		"total_tokens":  resp.UsageMetadata.TotalTokenCount,
	})
}

var (
	_ reasoning.Completer        = (*Client)(nil)
	_ reasoning.AudioTranscriber = (*Client)(nil)
)
