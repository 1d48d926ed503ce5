package analysis

import (
	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

// Handler wires the analyze endpoint to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
}

type analyzeRequest struct {
	SessionID      string `json:"session_id"`
	JobDescription string `json:"job_description"`
}

type analyzeResponse struct {
	SessionID   string                `json:"session_id"`
	Status      sessions.Status       `json:"status"`
	GapAnalysis *sessions.GapAnalysis `json:"gap_analysis"`
	Questions   []sessions.Question   `json:"questions"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.FromError(c, apperr.Validation("invalid request body"))
		return
	}
	middleware.SetSessionID(c, req.SessionID)

	sess, err := h.Svc.Analyze(sessions.TrackTransition(c), req.SessionID, req.JobDescription)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, analyzeResponse{
		SessionID:   sess.ID,
		Status:      sess.Status,
		GapAnalysis: sess.GapAnalysis,
		Questions:   sess.Questions,
	})
}
