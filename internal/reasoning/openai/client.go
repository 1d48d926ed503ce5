// Package openai provides the reasoning primitives over the OpenAI HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/shared/telemetry"
)

var (
	apiURL        = "https://api.openai.com/v1/chat/completions"
	transcribeURL = "https://api.openai.com/v1/audio/transcriptions"
)

// Client implements reasoning.Completer and reasoning.AudioTranscriber.
type Client struct {
	apiKey          string
	model           string
	transcribeModel string
	httpClient      *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model, transcribeModel string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("REASONING_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(transcribeModel) == "" {
		transcribeModel = "whisper-1"
	}
	return &Client{
		apiKey:          apiKey,
		model:           model,
		transcribeModel: transcribeModel,
		// Per-operation deadlines come from the caller's context.
		httpClient: &http.Client{Timeout: 180 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// CompleteJSON sends one system and user message pair and returns the
// model's JSON object.
func (c *Client) CompleteJSON(ctx context.Context, system, prompt string) ([]byte, error) {
	withTemp := !isGPT5(c.model)
	raw, err := c.completeOnce(ctx, system, prompt, withTemp)
	if err != nil && withTemp && isTemperatureUnsupported(err) {
		telemetry.Warn("openai.temperature_unsupported", map[string]any{"model": c.model})
		raw, err = c.completeOnce(ctx, system, prompt, false)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid JSON from OpenAI", reasoning.ErrMalformed)
	}
	return raw, nil
}

func (c *Client) completeOnce(ctx context.Context, system, prompt string, withTemp bool) ([]byte, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if withTemp {
		temp := float32(0)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if status >= 300 {
			return nil, fmt.Errorf("openai http status %d", status)
		}
		return nil, fmt.Errorf("%w: openai response parse: %v", reasoning.ErrMalformed, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: http status %d: %s (%s)", status, parsed.Error.Message, parsed.Error.Type)
	}
	if status >= 300 {
		return nil, fmt.Errorf("openai http status %d", status)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai response missing choices", reasoning.ErrMalformed)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: openai response empty content", reasoning.ErrMalformed)
	}
	if parsed.Usage != nil {
		telemetry.Debug("openai.usage", map[string]any{
			"model":             c.model,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}
	return []byte(content), nil
}

// Transcribe uploads audio to the transcription endpoint and returns the text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", c.transcribeModel); err != nil {
		return "", err
	}
	if strings.TrimSpace(filename) == "" {
		filename = "audio.webm"
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, transcribeURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Text  string    `json:"text"`
		Error *apiError `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai http status %d: transcription parse: %w", status, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai error: http status %d: %s (%s)", status, parsed.Error.Message, parsed.Error.Type)
	}
	if status >= 300 {
		return "", fmt.Errorf("openai http status %d", status)
	}
	return strings.TrimSpace(parsed.Text), nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, 0, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

func isTemperatureUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "temperature") && strings.Contains(msg, "unsupported")
}

var (
	_ reasoning.Completer        = (*Client)(nil)
	_ reasoning.AudioTranscriber = (*Client)(nil)
)
