package documents

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

// multipartOverhead leaves room for form fields around the file part.
const multipartOverhead = 1 << 20

// Handler wires the upload endpoint to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cv/upload", h.upload)
}

type uploadResponse struct {
	Success   bool             `json:"success"`
	SessionID string           `json:"session_id"`
	Status    sessions.Status  `json:"status"`
	Resume    *sessions.Resume `json:"resume"`
	Message   string           `json:"message"`
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.MaxBytes+multipartOverhead)

	sessionID := c.PostForm("session_id")
	middleware.SetSessionID(c, sessionID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.FromError(c, apperr.Validation("the file exceeds the upload limit"))
			return
		}
		respond.FromError(c, apperr.Validation("file is required"))
		return
	}
	if fileHeader.Size > h.Svc.MaxBytes {
		respond.FromError(c, apperr.Validation("the file exceeds the upload limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.FromError(c, apperr.Validation("unable to read file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.Svc.MaxBytes+1))
	if err != nil {
		respond.FromError(c, apperr.Validation("unable to read file"))
		return
	}

	sess, err := h.Svc.Upload(sessions.TrackTransition(c), sessionID, fileHeader.Filename, data)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, uploadResponse{
		Success:   true,
		SessionID: sess.ID,
		Status:    sess.Status,
		Resume:    sess.Resume,
		Message:   "CV uploaded and parsed successfully",
	})
}
