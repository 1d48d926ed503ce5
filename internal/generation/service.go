// Package generation synthesizes the optimized resume, compares it with the
// original analysis and stores the rendered documents.
package generation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-optimizer/internal/events"
	"cv-optimizer/internal/interview"
	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/render"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/metrics"
	"cv-optimizer/internal/shared/storage/object"
	"cv-optimizer/internal/shared/telemetry"
	"cv-optimizer/internal/shared/util"
)

const defaultTimeout = 120 * time.Second

// Service runs generation and serves its artifacts.
type Service struct {
	Sessions    *sessions.Service
	Synthesizer reasoning.Synthesizer
	Objects     object.ObjectStore
	Timeout     time.Duration
	Now         func() time.Time
	NewID       func() string
}

func NewService(sess *sessions.Service, synth reasoning.Synthesizer, objects object.ObjectStore, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{Sessions: sess, Synthesizer: synth, Objects: objects, Timeout: timeout}
}

// Generate produces the optimized resume for a session. Only one generation
// may run per session; a second concurrent call fails with a conflict.
// Pending questions are recorded as skipped in the same write.
func (s *Service) Generate(ctx context.Context, sessionID string) (sessions.Session, error) {
	start := time.Now()
	var (
		genPrefix string
		replaced  []string
	)

	sess, err := s.Sessions.TryMutate(ctx, sessionID, events.NameGenerated, func(opCtx context.Context, sess *sessions.Session) error {
		if sess.Resume == nil {
			return apperr.InvalidState("Upload a CV before generating")
		}
		if sess.GapAnalysis == nil {
			return apperr.InvalidState("Run the analysis before generating")
		}
		if err := sess.Transition(sessions.StatusGenerated); err != nil {
			return err
		}
		skipped := interview.SkipPending(sess.Questions)

		out, err := s.synthesize(opCtx, *sess)
		if err != nil {
			return err
		}
		resume := Reconcile(*sess.Resume, out.Resume, out.ResumeText)
		cmp := Compare(*sess.GapAnalysis, sess.Questions, out.Score, out.Improvements)

		genPrefix = object.SessionKey(sess.ID, "gen-"+s.newID()) + "/"
		arts, err := s.storeArtifacts(opCtx, genPrefix, resume)
		if err != nil {
			return err
		}

		replaced = sess.Artifacts.Keys()
		sess.GeneratedResume = &resume
		sess.Comparison = &cmp
		sess.Artifacts = arts
		telemetry.Info("generation.complete", map[string]any{
			"session_id":      sess.ID,
			"implicit_skips":  skipped,
			"gaps_addressed":  len(cmp.GapsAddressed),
			"gaps_remaining":  len(cmp.GapsRemaining),
			"original_score":  cmp.OriginalScore,
			"optimized_score": cmp.OptimizedScore,
			"reported_score":  cmp.ReportedScore,
			"duration_ms":     time.Since(start).Milliseconds(),
		})
		return nil
	})

	metrics.ObserveGeneration(outcomeOf(err), time.Since(start))
	if err != nil {
		if genPrefix != "" {
			s.Sessions.RemoveObjects(ctx, genPrefix)
		}
		if !errors.Is(err, apperr.ErrConflict) {
			telemetry.Warn("generation.failed", map[string]any{
				"session_id": sessionID,
				"error":      util.SanitizeError(err),
			})
		}
		return sessions.Session{}, err
	}
	s.Sessions.RemoveObjects(ctx, replaced...)
	return sess, nil
}

func (s *Service) synthesize(ctx context.Context, sess sessions.Session) (reasoning.SynthesizeOutput, error) {
	if s.Synthesizer == nil {
		return reasoning.SynthesizeOutput{}, unavailable(reasoning.ErrNotConfigured)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	in := reasoning.SynthesizeInput{
		ResumeText:     sess.Resume.RawText,
		Resume:         sess.Resume,
		JobDescription: sess.JobDescription,
		Gaps:           sess.GapAnalysis.All(),
		Answers:        answersOf(sess.Questions),
	}
	out, err := s.Synthesizer.Synthesize(callCtx, in)
	if err != nil {
		if errors.Is(err, reasoning.ErrNotConfigured) {
			return reasoning.SynthesizeOutput{}, unavailable(err)
		}
		return reasoning.SynthesizeOutput{}, apperr.Wrap(apperr.ErrGeneration, "generation failed", err)
	}
	if out.Score < 0 || out.Score > 100 {
		return reasoning.SynthesizeOutput{}, apperr.Wrap(apperr.ErrGeneration, "generation failed", reasoning.ErrMalformed)
	}
	return out, nil
}

func answersOf(qs []sessions.Question) []reasoning.AnswerInput {
	out := make([]reasoning.AnswerInput, 0, len(qs))
	for _, q := range qs {
		out = append(out, reasoning.AnswerInput{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			CoveredGapIDs: q.CoveredGapIDs,
			Text:          strings.TrimSpace(q.AnswerText),
		})
	}
	return out
}

// storeArtifacts renders every format and writes it under prefix, a
// location unique to this generation attempt.
func (s *Service) storeArtifacts(ctx context.Context, prefix string, resume sessions.Resume) (*sessions.Artifacts, error) {
	if s.Objects == nil {
		return nil, apperr.New(apperr.ErrStorage, "object store is not configured")
	}
	arts := &sessions.Artifacts{GeneratedAt: s.now()}
	for _, f := range render.Formats {
		data, err := render.Render(f, resume)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrGeneration, "render "+string(f), err)
		}
		key := prefix + f.FileName()
		if _, err := s.Objects.Put(ctx, key, f.ContentType(), bytes.NewReader(data)); err != nil {
			return nil, apperr.Storage("store "+f.FileName(), err)
		}
		switch f {
		case render.FormatPDF:
			arts.PDFKey = key
		case render.FormatDOCX:
			arts.DOCXKey = key
		}
	}
	return arts, nil
}

// Artifact is an open download stream.
type Artifact struct {
	Format   render.Format
	FileName string
	Body     io.ReadCloser
}

// Download opens a generated document. The caller closes Body.
func (s *Service) Download(ctx context.Context, sessionID, kind string) (Artifact, error) {
	f, err := render.ParseFormat(kind)
	if err != nil {
		return Artifact{}, apperr.Validation("Invalid file type. Use 'pdf' or 'docx'")
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return Artifact{}, err
	}
	if sess.Artifacts == nil {
		return Artifact{}, apperr.NotFound("No generated CV found. Generate one first")
	}
	key := sess.Artifacts.PDFKey
	if f == render.FormatDOCX {
		key = sess.Artifacts.DOCXKey
	}
	if key == "" {
		return Artifact{}, apperr.NotFound("No generated CV found. Generate one first")
	}
	if s.Objects == nil {
		return Artifact{}, apperr.New(apperr.ErrStorage, "object store is not configured")
	}
	body, err := s.Objects.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Artifact{}, apperr.NotFound("Generated file not found")
		}
		return Artifact{}, apperr.Storage("open artifact", err)
	}
	return Artifact{Format: f, FileName: f.FileName(), Body: body}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func unavailable(err error) error {
	return apperr.Wrap(apperr.ErrUnavailable, "The reasoning service is not configured", err)
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
