package analysis

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"cv-optimizer/internal/events"
	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/metrics"
	"cv-optimizer/internal/shared/telemetry"
	"cv-optimizer/internal/shared/util"
)

// MinJobDescriptionLength is counted in characters after trimming.
const MinJobDescriptionLength = 50

const defaultTimeout = 8 * time.Second

// Service runs gap analysis for a session.
type Service struct {
	Sessions *sessions.Service
	Analyzer reasoning.Analyzer
	Timeout  time.Duration
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(sess *sessions.Service, analyzer reasoning.Analyzer, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{Sessions: sess, Analyzer: analyzer, Timeout: timeout}
}

// ValidateJobDescription rejects descriptions too short to analyze.
func ValidateJobDescription(jd string) error {
	if utf8.RuneCountInString(strings.TrimSpace(jd)) < MinJobDescriptionLength {
		return apperr.Validation("job_description must be at least 50 characters")
	}
	return nil
}

// Analyze replaces the session's gap analysis and question list. Nothing is
// stored unless the reasoning call and canonicalization both succeed.
func (s *Service) Analyze(ctx context.Context, sessionID, jobDescription string) (sessions.Session, error) {
	if err := ValidateJobDescription(jobDescription); err != nil {
		return sessions.Session{}, err
	}
	jd := strings.TrimSpace(jobDescription)

	var stale []string
	sess, err := s.Sessions.Mutate(ctx, sessionID, events.NameAnalyzed, func(opCtx context.Context, sess *sessions.Session) error {
		if sess.Resume == nil || strings.TrimSpace(sess.Resume.RawText) == "" {
			return apperr.InvalidState("Upload a CV before running the analysis")
		}
		if err := sess.Transition(sessions.StatusAnalyzed); err != nil {
			return err
		}

		metrics.IncAnalysisStarted()
		start := time.Now()
		ga, questions, err := s.run(opCtx, sess.Resume.RawText, jd)
		if err != nil {
			metrics.IncAnalysisFailed()
			telemetry.Warn("analysis.failed", map[string]any{
				"session_id": sess.ID,
				"error":      util.SanitizeError(err),
			})
			return err
		}
		ga.AnalyzedAt = s.now()

		stale = sess.Artifacts.Keys()
		sess.ClearDerived()
		sess.JobDescription = jd
		sess.GapAnalysis = ga
		sess.Questions = questions

		metrics.IncAnalysisCompleted()
		metrics.ObserveAnalysisDurationMs(float64(time.Since(start).Milliseconds()))
		telemetry.Info("analysis.complete", map[string]any{
			"session_id":     sess.ID,
			"gaps":           len(ga.All()),
			"questions":      len(questions),
			"match_score":    ga.MatchScore,
			"reported_score": ga.ReportedScore,
			"duration_ms":    time.Since(start).Milliseconds(),
		})
		return nil
	})
	if err != nil {
		return sessions.Session{}, err
	}
	// The previous generation's documents are unreachable once committed.
	s.Sessions.RemoveObjects(ctx, stale...)
	return sess, nil
}

func (s *Service) run(ctx context.Context, resumeText, jd string) (*sessions.GapAnalysis, []sessions.Question, error) {
	if s.Analyzer == nil {
		return nil, nil, unavailable(reasoning.ErrNotConfigured)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	out, err := s.Analyzer.Analyze(callCtx, reasoning.AnalyzeInput{ResumeText: resumeText, JobDescription: jd})
	if err != nil {
		if errors.Is(err, reasoning.ErrNotConfigured) {
			return nil, nil, unavailable(err)
		}
		return nil, nil, apperr.Wrap(apperr.ErrAnalysis, "analysis failed", err)
	}
	if out.MatchScore < 0 || out.MatchScore > 100 {
		return nil, nil, apperr.Wrap(apperr.ErrAnalysis, "analysis failed", reasoning.ErrMalformed)
	}
	gaps, err := Canonicalize(out.Gaps)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.ErrAnalysis, "analysis failed", err)
	}
	return NewGapAnalysis(gaps, out.MatchScore), Cover(gaps), nil
}

func unavailable(err error) error {
	return apperr.Wrap(apperr.ErrUnavailable, "The reasoning service is not configured", err)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
