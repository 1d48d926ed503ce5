package documents

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/reasoning/reasoningtest"
	"cv-optimizer/internal/render"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/storage/object"
	"cv-optimizer/internal/shared/storage/object/local"
)

const resumeText = "Jane Doe\njane@example.com\nBackend engineer building Go services at Acme Corp."

func samplePDF(t *testing.T) []byte {
	t.Helper()
	data, err := render.Render(render.FormatPDF, sessions.Resume{RawText: resumeText})
	require.NoError(t, err)
	return data
}

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
	fake := &reasoningtest.Fake{ParsedResume: &sessions.Resume{
		Summary:    "Backend engineer.",
		Experience: []sessions.Job{{Company: "Acme Corp", Title: "Backend Engineer"}},
	}}
	return fixture{sessions: sessSvc, objects: objects, fake: fake, svc: NewService(sessSvc, objects, fake, time.Second, 0)}
}

func (f fixture) create(t *testing.T) string {
	t.Helper()
	sess, err := f.sessions.Create(context.Background())
	require.NoError(t, err)
	return sess.ID
}

func TestUploadStoresResume(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	ctx := context.Background()
	data := samplePDF(t)

	sess, err := f.svc.Upload(ctx, id, "cv.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusCVUploaded, sess.Status)
	require.NotNil(t, sess.Resume)
	assert.Contains(t, sess.Resume.RawText, "Jane Doe")
	assert.Equal(t, "Acme Corp", sess.Resume.Experience[0].Company)
	assert.Equal(t, "jane@example.com", sess.Resume.Contact.Email)
	assert.Equal(t, "Jane Doe", sess.Resume.Contact.Name)
	assert.Equal(t, 1, f.fake.Calls(reasoning.OpParse))

	require.NotNil(t, sess.ResumeFile)
	assert.Equal(t, "sessions/"+id+"/original.pdf", sess.ResumeFile.Key)
	assert.Equal(t, int64(len(data)), sess.ResumeFile.SizeBytes)
	assert.NotEmpty(t, sess.ResumeFile.Checksum)

	rc, err := f.objects.Open(ctx, sess.ResumeFile.Key)
	require.NoError(t, err)
	stored, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, data, stored)
}

func TestUploadReplacesBeforeAnalysis(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, id, "first.pdf", samplePDF(t))
	require.NoError(t, err)
	sess, err := f.svc.Upload(ctx, id, "second.pdf", samplePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "second.pdf", sess.ResumeFile.FileName)

	_, err = f.sessions.Mutate(ctx, id, "", func(_ context.Context, s *sessions.Session) error {
		return s.Transition(sessions.StatusAnalyzed)
	})
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, id, "third.pdf", samplePDF(t))
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	ctx := context.Background()

	cases := map[string]struct {
		name string
		data []byte
	}{
		"empty":         {"cv.pdf", nil},
		"not a pdf":     {"cv.pdf", []byte("plain text pretending to be a pdf")},
		"wrong ext":     {"cv.docx", samplePDF(t)},
		"traversal":     {"../cv.pdf", samplePDF(t)},
		"corrupt pdf":   {"cv.pdf", []byte("%PDF-1.4\nnot really")},
		"no file name":  {"   ", samplePDF(t)},
	}
	for name, tc := range cases {
		_, err := f.svc.Upload(ctx, id, tc.name, tc.data)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}

	f.svc.MaxBytes = 16
	_, err := f.svc.Upload(ctx, id, "cv.pdf", samplePDF(t))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	sess, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusEmpty, sess.Status)
	assert.Equal(t, 0, f.fake.Calls(reasoning.OpParse))
}

func TestUploadUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), "missing", "cv.pdf", samplePDF(t))
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestUploadParseFailureKeepsRawText(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.fake.Err = errors.New("openai http status 503")

	sess, err := f.svc.Upload(context.Background(), id, "cv.pdf", samplePDF(t))
	require.NoError(t, err)
	assert.Contains(t, sess.Resume.RawText, "Acme Corp")
	assert.Empty(t, sess.Resume.Experience)
	assert.Equal(t, "jane@example.com", sess.Resume.Contact.Email)
}

func TestUploadWithoutParser(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.svc.Parser = reasoning.Unconfigured{}

	sess, err := f.svc.Upload(context.Background(), id, "cv.pdf", samplePDF(t))
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusCVUploaded, sess.Status)
	assert.Equal(t, "Jane Doe", sess.Resume.Contact.Name)
}
