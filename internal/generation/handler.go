package generation

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/render"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

// Handler wires generation and download endpoints to the service.
type Handler struct {
	Svc *Service
	// BasePath prefixes download URLs, e.g. "/api/v1".
	BasePath string
}

func NewHandler(svc *Service, basePath string) *Handler {
	return &Handler{Svc: svc, BasePath: basePath}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cv/generate", h.generate)
	rg.GET("/cv/download/:kind", h.download)
}

type generateRequest struct {
	SessionID string `json:"session_id"`
}

type generateResponse struct {
	SessionID       string               `json:"session_id"`
	Status          sessions.Status      `json:"status"`
	Comparison      *sessions.Comparison `json:"comparison"`
	OptimizedResume *sessions.Resume     `json:"optimized_resume"`
	PDFURL          string               `json:"pdf_url"`
	DOCXURL         string               `json:"docx_url"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.FromError(c, apperr.Validation("invalid request body"))
		return
	}
	middleware.SetSessionID(c, req.SessionID)

	sess, err := h.Svc.Generate(sessions.TrackTransition(c), req.SessionID)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, generateResponse{
		SessionID:       sess.ID,
		Status:          sess.Status,
		Comparison:      sess.Comparison,
		OptimizedResume: sess.GeneratedResume,
		PDFURL:          h.downloadURL(render.FormatPDF, sess.ID),
		DOCXURL:         h.downloadURL(render.FormatDOCX, sess.ID),
	})
}

func (h *Handler) downloadURL(f render.Format, sessionID string) string {
	return fmt.Sprintf("%s/cv/download/%s?session_id=%s", h.BasePath, f, url.QueryEscape(sessionID))
}

func (h *Handler) download(c *gin.Context) {
	id := c.Query("session_id")
	middleware.SetSessionID(c, id)

	art, err := h.Svc.Download(c.Request.Context(), id, c.Param("kind"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	defer art.Body.Close()

	c.Header("Content-Type", art.Format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, art.Body)
}
