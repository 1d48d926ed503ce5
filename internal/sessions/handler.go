package sessions

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/server/respond"
)

// Handler wires session HTTP endpoints to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/session/create", h.create)
	rg.GET("/session/:id", h.summary)
	rg.GET("/session/:id/data", h.data)
	rg.DELETE("/session/:id", h.delete)
}

// TrackTransition returns the request context wired to record any status
// change in the request log.
func TrackTransition(c *gin.Context) context.Context {
	return WithTransitionHook(c.Request.Context(), func(from, to Status) {
		middleware.SetStatusTransition(c, string(from), string(to))
	})
}

func (h *Handler) create(c *gin.Context) {
	sess, err := h.Svc.Create(c.Request.Context())
	if err != nil {
		respond.FromError(c, err)
		return
	}
	middleware.SetSessionID(c, sess.ID)
	respond.JSON(c, http.StatusCreated, gin.H{"session_id": sess.ID})
}

func (h *Handler) summary(c *gin.Context) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	summary, err := h.Svc.Summary(c.Request.Context(), id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, summary)
}

// RestoreData is everything a client needs to resume a session.
type RestoreData struct {
	SessionID      string            `json:"session_id"`
	Status         Status            `json:"status"`
	Resume         *Resume           `json:"cv_data,omitempty"`
	JobDescription string            `json:"job_description,omitempty"`
	GapAnalysis    *GapAnalysis      `json:"gap_analysis,omitempty"`
	Questions      []Question        `json:"questions"`
	Answers        map[string]string `json:"answers"`
	Generated      *Resume           `json:"generated_cv,omitempty"`
	Comparison     *Comparison       `json:"comparison,omitempty"`
}

// Restore builds the restore payload of s.
func Restore(s Session) RestoreData {
	questions := s.Questions
	if questions == nil {
		questions = []Question{}
	}
	return RestoreData{
		SessionID:      s.ID,
		Status:         s.Status,
		Resume:         s.Resume,
		JobDescription: s.JobDescription,
		GapAnalysis:    s.GapAnalysis,
		Questions:      questions,
		Answers:        s.Answers(),
		Generated:      s.GeneratedResume,
		Comparison:     s.Comparison,
	}
}

func (h *Handler) data(c *gin.Context) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	sess, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, Restore(sess))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	middleware.SetSessionID(c, id)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "Session deleted"})
}
