package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cv-optimizer/internal/sessions"
)

// Completer is one provider's JSON completion primitive.
type Completer interface {
	CompleteJSON(ctx context.Context, system, prompt string) ([]byte, error)
}

// AudioTranscriber is the provider primitive behind Transcribe.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Engine implements Service on top of a provider's JSON completion,
// validating every response before decoding it.
type Engine struct {
	Completer   Completer
	Transcriber AudioTranscriber
}

func (e *Engine) Analyze(ctx context.Context, in AnalyzeInput) (AnalyzeOutput, error) {
	raw, err := e.Completer.CompleteJSON(ctx, analyzeSystemPrompt, buildAnalyzePrompt(in))
	if err != nil {
		return AnalyzeOutput{}, err
	}
	if err := ValidateAnalyze(raw); err != nil {
		return AnalyzeOutput{}, err
	}
	var out AnalyzeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return AnalyzeOutput{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

func (e *Engine) Synthesize(ctx context.Context, in SynthesizeInput) (SynthesizeOutput, error) {
	prompt, err := buildSynthesizePrompt(in)
	if err != nil {
		return SynthesizeOutput{}, err
	}
	raw, err := e.Completer.CompleteJSON(ctx, synthesizeSystemPrompt, prompt)
	if err != nil {
		return SynthesizeOutput{}, err
	}
	if err := ValidateSynthesize(raw); err != nil {
		return SynthesizeOutput{}, err
	}
	var out SynthesizeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return SynthesizeOutput{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

func (e *Engine) Parse(ctx context.Context, resumeText string) (sessions.Resume, error) {
	raw, err := e.Completer.CompleteJSON(ctx, parseSystemPrompt, buildParsePrompt(resumeText))
	if err != nil {
		return sessions.Resume{}, err
	}
	if err := ValidateResume(raw); err != nil {
		return sessions.Resume{}, err
	}
	var out sessions.Resume
	if err := json.Unmarshal(raw, &out); err != nil {
		return sessions.Resume{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out.RawText = resumeText
	return out, nil
}

func (e *Engine) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if e.Transcriber == nil {
		return "", ErrNotConfigured
	}
	return e.Transcriber.Transcribe(ctx, audio, filename)
}

var _ Service = (*Engine)(nil)
