package middleware

import "github.com/gin-gonic/gin"

const (
	sessionIDKey        = "sessionId"
	statusTransitionKey = "statusTransition"
)

// SetSessionID records the session a request operates on for logging.
func SetSessionID(c *gin.Context, id string) {
	if c == nil || id == "" {
		return
	}
	c.Set(sessionIDKey, id)
}

// SessionIDFromContext returns the session id recorded by a handler.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}

// SetStatusTransition records a "from->to" status change for the request log.
func SetStatusTransition(c *gin.Context, from, to string) {
	if c == nil || from == to {
		return
	}
	c.Set(statusTransitionKey, from+"->"+to)
}
