package interview

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"cv-optimizer/internal/events"
	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/telemetry"
	"cv-optimizer/internal/shared/util"
)

const defaultTranscribeTimeout = 8 * time.Second

// Service applies interview transitions under the session write lock.
type Service struct {
	Sessions          *sessions.Service
	Transcriber       reasoning.Transcriber
	TranscribeTimeout time.Duration
}

func NewService(sess *sessions.Service, transcriber reasoning.Transcriber, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTranscribeTimeout
	}
	return &Service{Sessions: sess, Transcriber: transcriber, TranscribeTimeout: timeout}
}

// QuestionList is the interview as served to a client.
type QuestionList struct {
	Questions    []sessions.Question `json:"questions"`
	CurrentIndex int                 `json:"current_index"`
	Total        int                 `json:"total"`
	Complete     bool                `json:"complete"`
}

// Result is the outcome of one answer or skip.
type Result struct {
	QuestionID string                  `json:"question_id"`
	Status     sessions.QuestionStatus `json:"status"`
	Progress
}

// Questions returns the session's questions with the current position.
func (s *Service) Questions(ctx context.Context, sessionID string) (QuestionList, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return QuestionList{}, err
	}
	if sess.GapAnalysis == nil {
		return QuestionList{}, apperr.InvalidState("Run the analysis before starting the interview")
	}
	qs := sess.Questions
	if qs == nil {
		qs = []sessions.Question{}
	}
	p := ProgressOf(qs)
	return QuestionList{Questions: qs, CurrentIndex: p.NextIndex, Total: p.Total, Complete: p.Complete}, nil
}

// Answer records text for a question. Blank text is rejected.
func (s *Service) Answer(ctx context.Context, sessionID, questionID, text string) (Result, error) {
	return s.apply(ctx, sessionID, questionID, func(qs []sessions.Question) (Progress, error) {
		return Submit(qs, questionID, text)
	})
}

// Skip records an explicit skip for a question.
func (s *Service) Skip(ctx context.Context, sessionID, questionID string) (Result, error) {
	return s.apply(ctx, sessionID, questionID, func(qs []sessions.Question) (Progress, error) {
		return Skip(qs, questionID)
	})
}

func (s *Service) apply(ctx context.Context, sessionID, questionID string, step func([]sessions.Question) (Progress, error)) (Result, error) {
	if strings.TrimSpace(questionID) == "" {
		return Result{}, apperr.Validation("question_id is required")
	}
	var res Result
	_, err := s.Sessions.Mutate(ctx, sessionID, events.NameAnswered, func(_ context.Context, sess *sessions.Session) error {
		if sess.GapAnalysis == nil {
			return apperr.InvalidState("Run the analysis before answering questions")
		}
		p, err := step(sess.Questions)
		if err != nil {
			return err
		}
		if sess.Status == sessions.StatusAnalyzed {
			if err := sess.Transition(sessions.StatusInterviewActive); err != nil {
				return err
			}
		}
		q := sess.Questions[indexOf(sess.Questions, questionID)]
		res = Result{QuestionID: q.ID, Status: q.Status, Progress: p}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// VoiceResult is a transcribed answer.
type VoiceResult struct {
	Transcription string `json:"transcription"`
	Result
}

// Voice transcribes audio and records it as the answer. A blank
// transcription counts as a skip.
func (s *Service) Voice(ctx context.Context, sessionID, questionID string, audio io.Reader, filename string) (VoiceResult, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return VoiceResult{}, err
	}
	i := indexOf(sess.Questions, questionID)
	if i < 0 {
		return VoiceResult{}, apperr.NotFound("question not found")
	}
	if sess.Questions[i].Terminal() {
		return VoiceResult{}, apperr.InvalidState("This question has already been answered or skipped")
	}

	text, err := s.Transcribe(ctx, audio, filename)
	if err != nil {
		return VoiceResult{}, err
	}

	var res Result
	if text == "" {
		res, err = s.Skip(ctx, sessionID, questionID)
	} else {
		res, err = s.Answer(ctx, sessionID, questionID, text)
	}
	if err != nil {
		return VoiceResult{}, err
	}
	return VoiceResult{Transcription: text, Result: res}, nil
}

// Transcribe converts audio to text under the transcription timeout.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if s.Transcriber == nil {
		return "", apperr.Wrap(apperr.ErrUnavailable, "Transcription is not configured", reasoning.ErrNotConfigured)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.TranscribeTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.Transcriber.Transcribe(callCtx, audio, filename)
	if err != nil {
		telemetry.Warn("interview.transcribe_failed", map[string]any{
			"error":       util.SanitizeError(err),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if errors.Is(err, reasoning.ErrNotConfigured) {
			return "", apperr.Wrap(apperr.ErrUnavailable, "Transcription is not configured", err)
		}
		return "", apperr.Wrap(apperr.ErrAnalysis, "transcription failed", err)
	}
	return strings.TrimSpace(text), nil
}
