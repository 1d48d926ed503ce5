package analysis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/reasoning/reasoningtest"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/storage/object"
	"cv-optimizer/internal/shared/storage/object/local"
)

var sixGaps = []reasoning.RawGap{
	{Category: "skills", Description: "Kubernetes", Importance: "high"},
	{Category: "experience", Description: "Owning an on-call rotation", Importance: "high"},
	{Category: "skills", Description: "Docker", Importance: "high"},
	{Category: "metrics", Description: "No latency improvements quantified", Importance: "medium"},
	{Category: "keywords", Description: "SRE", Importance: "medium"},
	{Category: "keywords", Description: "observability", Importance: "low"},
}

const jobDescription = "Senior platform engineer running Kubernetes and Docker workloads with an on-call rotation."

type fixture struct {
	sessions *sessions.Service
	objects  object.ObjectStore
	fake     *reasoningtest.Fake
	svc      *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	objects := local.New(t.TempDir())
	sessSvc := sessions.NewService(sessions.NewMemoryStore(), objects, nil)
	fake := &reasoningtest.Fake{Gaps: sixGaps, MatchScore: 48}
	return fixture{sessions: sessSvc, objects: objects, fake: fake, svc: NewService(sessSvc, fake, time.Second)}
}

func (f fixture) uploaded(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	sess, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	_, err = f.sessions.Mutate(ctx, sess.ID, "", func(_ context.Context, s *sessions.Session) error {
		s.Resume = &sessions.Resume{RawText: "Jane Doe\nBackend engineer, Go and PostgreSQL."}
		return s.Transition(sessions.StatusCVUploaded)
	})
	require.NoError(t, err)
	return sess.ID
}

func TestAnalyzeJobDescriptionThreshold(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t)

	short := "  " + strings.Repeat("é", 49) + "  "
	_, err := f.svc.Analyze(context.Background(), id, short)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, f.fake.Calls(reasoning.OpAnalyze))

	sess, err := f.svc.Analyze(context.Background(), id, strings.Repeat("é", 50))
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusAnalyzed, sess.Status)
	assert.Equal(t, 1, f.fake.Calls(reasoning.OpAnalyze))
}

func TestAnalyzeStoresGapsAndQuestions(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t)

	sess, err := f.svc.Analyze(context.Background(), id, jobDescription)
	require.NoError(t, err)

	require.NotNil(t, sess.GapAnalysis)
	assert.Len(t, sess.GapAnalysis.All(), 6)
	assert.Equal(t, 50, sess.GapAnalysis.MatchScore)
	assert.Equal(t, 48, sess.GapAnalysis.ReportedScore)
	assert.LessOrEqual(t, len(sess.Questions), 6)
	assert.Equal(t, jobDescription, sess.JobDescription)

	stored, err := f.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, sess.Questions, stored.Questions)
}

func TestAnalyzeZeroGaps(t *testing.T) {
	f := newFixture(t)
	f.fake.Gaps = nil
	id := f.uploaded(t)

	sess, err := f.svc.Analyze(context.Background(), id, jobDescription)
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusAnalyzed, sess.Status)
	assert.Equal(t, ScoreCeiling, sess.GapAnalysis.MatchScore)
	assert.Empty(t, sess.GapAnalysis.All())
	assert.Empty(t, sess.Questions)
}

func TestReanalyzeRemovesPreviousDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.uploaded(t)
	_, err := f.svc.Analyze(ctx, id, jobDescription)
	require.NoError(t, err)

	pdfKey := object.SessionKey(id, "gen-1/optimized_cv.pdf")
	docxKey := object.SessionKey(id, "gen-1/optimized_cv.docx")
	for _, key := range []string{pdfKey, docxKey} {
		_, err := f.objects.Put(ctx, key, "application/octet-stream", strings.NewReader("doc"))
		require.NoError(t, err)
	}
	_, err = f.sessions.Mutate(ctx, id, "", func(_ context.Context, s *sessions.Session) error {
		s.Artifacts = &sessions.Artifacts{PDFKey: pdfKey, DOCXKey: docxKey}
		return s.Transition(sessions.StatusGenerated)
	})
	require.NoError(t, err)

	sess, err := f.svc.Analyze(ctx, id, jobDescription)
	require.NoError(t, err)
	assert.Nil(t, sess.Artifacts)
	for _, key := range []string{pdfKey, docxKey} {
		_, err := f.objects.Open(ctx, key)
		assert.ErrorIs(t, err, object.ErrNotFound, key)
	}
}

func TestFailedReanalysisKeepsPreviousDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.uploaded(t)
	_, err := f.svc.Analyze(ctx, id, jobDescription)
	require.NoError(t, err)

	pdfKey := object.SessionKey(id, "gen-1/optimized_cv.pdf")
	_, err = f.objects.Put(ctx, pdfKey, "application/pdf", strings.NewReader("doc"))
	require.NoError(t, err)
	_, err = f.sessions.Mutate(ctx, id, "", func(_ context.Context, s *sessions.Session) error {
		s.Artifacts = &sessions.Artifacts{PDFKey: pdfKey}
		return s.Transition(sessions.StatusGenerated)
	})
	require.NoError(t, err)

	f.fake.Err = errors.New("openai http status 500")
	_, err = f.svc.Analyze(ctx, id, jobDescription)
	require.ErrorIs(t, err, apperr.ErrAnalysis)

	body, err := f.objects.Open(ctx, pdfKey)
	require.NoError(t, err)
	body.Close()
}

func TestAnalyzeRequiresResume(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.sessions.Create(context.Background())

	_, err := f.svc.Analyze(context.Background(), sess.ID, jobDescription)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, 0, f.fake.Calls(reasoning.OpAnalyze))
}

func TestAnalyzeUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Analyze(context.Background(), "missing", jobDescription)
	assert.ErrorIs(t, err, apperr.ErrSessionNotFound)
}

func TestAnalyzeFailureLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t)
	f.fake.Err = errors.New("provider exploded")

	_, err := f.svc.Analyze(context.Background(), id, jobDescription)
	require.ErrorIs(t, err, apperr.ErrAnalysis)
	status, _ := apperr.HTTPStatus(err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.NotContains(t, apperr.PublicMessage(err), "exploded")

	stored, _ := f.sessions.Get(context.Background(), id)
	assert.Equal(t, sessions.StatusCVUploaded, stored.Status)
	assert.Nil(t, stored.GapAnalysis)
	assert.Empty(t, stored.JobDescription)
}

func TestAnalyzeMalformedGapsFail(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t)
	f.fake.Gaps = []reasoning.RawGap{{Category: "vibes", Description: "x", Importance: "high"}}

	_, err := f.svc.Analyze(context.Background(), id, jobDescription)
	assert.ErrorIs(t, err, apperr.ErrAnalysis)
	assert.ErrorIs(t, err, reasoning.ErrMalformed)
}

func TestAnalyzeTimeoutMapsToGatewayTimeout(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t)
	f.fake.Delay = 200 * time.Millisecond
	f.svc.Timeout = 10 * time.Millisecond

	_, err := f.svc.Analyze(context.Background(), id, jobDescription)
	require.Error(t, err)
	status, code := apperr.HTTPStatus(err)
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, apperr.CodeAnalysisTimeout, code)
}

func TestAnalyzeWithoutProvider(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t)
	f.svc.Analyzer = reasoning.Unconfigured{}

	_, err := f.svc.Analyze(context.Background(), id, jobDescription)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestReanalysisClearsAnswersAndGeneration(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t)
	ctx := context.Background()

	_, err := f.svc.Analyze(ctx, id, jobDescription)
	require.NoError(t, err)
	_, err = f.sessions.Mutate(ctx, id, "", func(_ context.Context, s *sessions.Session) error {
		s.Questions[0].Status = sessions.QuestionAnswered
		s.Questions[0].AnswerText = "Ran 30 clusters"
		s.GeneratedResume = &sessions.Resume{RawText: "old"}
		s.Comparison = &sessions.Comparison{OriginalScore: 50}
		return s.Transition(sessions.StatusGenerated)
	})
	require.NoError(t, err)

	sess, err := f.svc.Analyze(ctx, id, jobDescription+" Also Terraform.")
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusAnalyzed, sess.Status)
	assert.Empty(t, sess.Answers())
	assert.Nil(t, sess.GeneratedResume)
	assert.Nil(t, sess.Comparison)
	assert.Nil(t, sess.Artifacts)
	for _, q := range sess.Questions {
		assert.Equal(t, sessions.QuestionPending, q.Status)
	}
}
