// Package reasoning holds the contract of the external language service:
// gap classification, resume synthesis, resume parsing and transcription.
package reasoning

import (
	"context"
	"errors"
	"io"

	"cv-optimizer/internal/sessions"
)

var (
	// ErrMalformed marks output that failed schema validation.
	ErrMalformed = errors.New("malformed reasoning output")
	// ErrUnavailable is returned while a circuit breaker is open.
	ErrUnavailable = errors.New("reasoning service unavailable")
	// ErrNotConfigured is returned when no provider is wired.
	ErrNotConfigured = errors.New("reasoning provider not configured")
)

type AnalyzeInput struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

// RawGap is one gap as reported by the service, before canonicalization.
type RawGap struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Importance  string `json:"importance"`
	Question    string `json:"question,omitempty"`
}

type AnalyzeOutput struct {
	Gaps       []RawGap `json:"gaps"`
	MatchScore int      `json:"match_score"`
}

// AnswerInput is one interview answer passed to synthesis. Skipped questions
// carry empty text.
type AnswerInput struct {
	QuestionID    string   `json:"question_id"`
	Prompt        string   `json:"question"`
	CoveredGapIDs []string `json:"covered_gap_ids"`
	Text          string   `json:"answer"`
}

type SynthesizeInput struct {
	ResumeText     string           `json:"resume_text"`
	Resume         *sessions.Resume `json:"resume,omitempty"`
	JobDescription string           `json:"job_description"`
	Gaps           []sessions.Gap   `json:"gaps"`
	Answers        []AnswerInput    `json:"answers"`
}

type SynthesizeOutput struct {
	ResumeText    string           `json:"resume_text"`
	Resume        *sessions.Resume `json:"resume,omitempty"`
	Score         int              `json:"score"`
	GapsAddressed []string         `json:"gaps_addressed"`
	GapsRemaining []string         `json:"gaps_remaining"`
	Improvements  []string         `json:"improvements"`
}

// Analyzer classifies the gaps between a resume and a job description.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalyzeInput) (AnalyzeOutput, error)
}

// Synthesizer writes an optimized resume from the gaps and answers.
type Synthesizer interface {
	Synthesize(ctx context.Context, in SynthesizeInput) (SynthesizeOutput, error)
}

// ResumeParser structures raw resume text.
type ResumeParser interface {
	Parse(ctx context.Context, resumeText string) (sessions.Resume, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Service bundles every capability one provider offers.
type Service interface {
	Analyzer
	Synthesizer
	ResumeParser
	Transcriber
}

// Unconfigured fails every call with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Analyze(context.Context, AnalyzeInput) (AnalyzeOutput, error) {
	return AnalyzeOutput{}, ErrNotConfigured
}

func (Unconfigured) Synthesize(context.Context, SynthesizeInput) (SynthesizeOutput, error) {
	return SynthesizeOutput{}, ErrNotConfigured
}

func (Unconfigured) Parse(context.Context, string) (sessions.Resume, error) {
	return sessions.Resume{}, ErrNotConfigured
}

func (Unconfigured) Transcribe(context.Context, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

var _ Service = Unconfigured{}
