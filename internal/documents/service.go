// Package documents accepts resume uploads: it validates the file, extracts
// its text, optionally structures it, and attaches it to a session.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"cv-optimizer/internal/events"
	"cv-optimizer/internal/extract"
	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/storage/object"
	"cv-optimizer/internal/shared/telemetry"
	"cv-optimizer/internal/shared/util"
)

const (
	DefaultMaxBytes     = 10 << 20
	defaultParseTimeout = 8 * time.Second

	// OriginalFileName is the object name of the uploaded resume.
	OriginalFileName = "original.pdf"
)

// Service attaches uploaded resumes to sessions.
type Service struct {
	Sessions     *sessions.Service
	Objects      object.ObjectStore
	Parser       reasoning.ResumeParser
	ParseTimeout time.Duration
	MaxBytes     int64
}

func NewService(sess *sessions.Service, objects object.ObjectStore, parser reasoning.ResumeParser, parseTimeout time.Duration, maxBytes int64) *Service {
	if parseTimeout <= 0 {
		parseTimeout = defaultParseTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{Sessions: sess, Objects: objects, Parser: parser, ParseTimeout: parseTimeout, MaxBytes: maxBytes}
}

// Upload validates a PDF, extracts and structures its text, stores the
// original file and moves the session to cv_uploaded. A resume may be
// replaced until the session is analyzed.
func (s *Service) Upload(ctx context.Context, sessionID, fileName string, data []byte) (sessions.Session, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return sessions.Session{}, apperr.Validation("a file name is required")
	}
	if err := s.validate(name, data); err != nil {
		return sessions.Session{}, err
	}

	// Fail fast before extraction and parsing.
	current, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return sessions.Session{}, err
	}
	if !sessions.CanTransition(current.Status, sessions.StatusCVUploaded) {
		return sessions.Session{}, apperr.InvalidState("a resume can only be uploaded before analysis")
	}

	text, err := extract.Text(ctx, data, extract.MimePDF, name)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return sessions.Session{}, err
		}
		telemetry.Warn("upload.extract_failed", map[string]any{"session_id": current.ID, "error": util.SanitizeError(err)})
		return sessions.Session{}, apperr.Validation("Could not extract text from the PDF. Upload a text-based PDF")
	}
	resume := s.structure(ctx, current.ID, text)

	return s.Sessions.Mutate(ctx, sessionID, events.NameUploaded, func(opCtx context.Context, sess *sessions.Session) error {
		if err := sess.Transition(sessions.StatusCVUploaded); err != nil {
			return err
		}
		key := object.SessionKey(sess.ID, OriginalFileName)
		size, err := s.Objects.Put(opCtx, key, extract.MimePDF, bytes.NewReader(data))
		if err != nil {
			return apperr.Storage("store resume", err)
		}
		sess.Resume = &resume
		sess.ResumeFile = &sessions.FileRef{
			Key:       key,
			FileName:  name,
			SizeBytes: size,
			MimeType:  extract.MimePDF,
			Checksum:  util.Checksum(data),
		}
		telemetry.Info("upload.complete", map[string]any{
			"session_id": sess.ID,
			"size_bytes": size,
			"chars":      len(text),
			"structured": len(resume.Experience) > 0 || resume.Summary != "",
		})
		return nil
	})
}

func (s *Service) validate(name string, data []byte) error {
	if len(data) == 0 {
		return apperr.Validation("the uploaded file is empty")
	}
	if int64(len(data)) > s.MaxBytes {
		return apperr.Validation(fmt.Sprintf("the file exceeds the %d MB limit", s.MaxBytes>>20))
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return apperr.Validation("Only PDF files are supported")
	}
	if mt := mimetype.Detect(data); !mt.Is(extract.MimePDF) {
		return apperr.Validation("Only PDF files are supported")
	}
	return nil
}

// structure asks the reasoning service for a structured resume. Parsing is
// best-effort: any failure keeps the raw text and the regex contact block.
func (s *Service) structure(ctx context.Context, sessionID, text string) sessions.Resume {
	resume := sessions.Resume{RawText: text}
	if s.Parser != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.ParseTimeout)
		parsed, err := s.Parser.Parse(callCtx, text)
		cancel()
		switch {
		case err == nil:
			resume = parsed
			resume.RawText = text
		case errors.Is(err, reasoning.ErrNotConfigured):
		default:
			telemetry.Warn("upload.parse_failed", map[string]any{"session_id": sessionID, "error": util.SanitizeError(err)})
		}
	}
	resume.Contact = FillContact(resume.Contact, text)
	return resume
}
