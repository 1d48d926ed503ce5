package respond

import (
	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/telemetry"
	"cv-optimizer/internal/shared/util"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if sessionID := c.GetString("sessionId"); sessionID != "" {
		fields["session_id"] = sessionID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FromError maps a service error to its status, code and caller-safe message.
// The internal cause is logged but never returned.
func FromError(c *gin.Context, err error) {
	status, code := apperr.HTTPStatus(err)
	if status >= 500 {
		telemetry.Error("http.error_cause", map[string]any{
			"request_id": c.GetString("requestId"),
			"session_id": c.GetString("sessionId"),
			"code":       code,
			"error":      util.SanitizeError(err),
		})
	}
	Error(c, status, code, apperr.PublicMessage(err), nil)
}
