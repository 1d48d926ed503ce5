package interview

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

// MaxAudioBytes caps uploaded voice answers.
const MaxAudioBytes = 25 << 20

// Handler wires interview endpoints to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/interview/questions", h.questions)
	rg.POST("/interview/answer", h.answer)
	rg.POST("/interview/skip", h.skip)
	rg.POST("/interview/voice", h.voice)
	rg.POST("/transcribe", h.transcribe)
}

type answerRequest struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	AnswerText string `json:"answer_text"`
	Skip       bool   `json:"skip"`
}

func (h *Handler) questions(c *gin.Context) {
	id := c.Query("session_id")
	middleware.SetSessionID(c, id)
	list, err := h.Svc.Questions(c.Request.Context(), id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, list)
}

func (h *Handler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.FromError(c, apperr.Validation("invalid request body"))
		return
	}
	middleware.SetSessionID(c, req.SessionID)

	var (
		res Result
		err error
	)
	if req.Skip || strings.TrimSpace(req.AnswerText) == "" {
		res, err = h.Svc.Skip(sessions.TrackTransition(c), req.SessionID, req.QuestionID)
	} else {
		res, err = h.Svc.Answer(sessions.TrackTransition(c), req.SessionID, req.QuestionID, req.AnswerText)
	}
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) skip(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.FromError(c, apperr.Validation("invalid request body"))
		return
	}
	middleware.SetSessionID(c, req.SessionID)
	res, err := h.Svc.Skip(sessions.TrackTransition(c), req.SessionID, req.QuestionID)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) voice(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	questionID := c.PostForm("question_id")
	middleware.SetSessionID(c, sessionID)

	file, name, err := audioFile(c)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	defer file.Close()

	res, err := h.Svc.Voice(sessions.TrackTransition(c), sessionID, questionID, file, name)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) transcribe(c *gin.Context) {
	file, name, err := audioFile(c)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	defer file.Close()

	text, err := h.Svc.Transcribe(c.Request.Context(), file, name)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"transcription": text})
}

func audioFile(c *gin.Context) (io.ReadCloser, string, error) {
	hdr, err := c.FormFile("audio")
	if err != nil {
		return nil, "", apperr.Validation("audio file is required")
	}
	if hdr.Size == 0 {
		return nil, "", apperr.Validation("audio file is empty")
	}
	if hdr.Size > MaxAudioBytes {
		return nil, "", apperr.Validation("audio file exceeds 25MB")
	}
	f, err := hdr.Open()
	if err != nil {
		return nil, "", apperr.Validation("audio file could not be read")
	}
	return f, hdr.Filename, nil
}
