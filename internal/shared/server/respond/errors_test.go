package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/shared/apperr"
)

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { FromError(c, err) })

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body ErrorResponse
	if decodeErr := json.Unmarshal(resp.Body.Bytes(), &body); decodeErr != nil {
		t.Fatalf("decode body: %v", decodeErr)
	}
	return resp, body
}

func TestFromErrorValidation(t *testing.T) {
	resp, body := serveError(t, apperr.Validation("job_description is too short"))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	if body.Error.Code != apperr.CodeValidation || body.Error.Message != "job_description is too short" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestFromErrorHidesReasoningCause(t *testing.T) {
	cause := errors.New("upstream said: secret prompt text")
	resp, body := serveError(t, apperr.Wrap(apperr.ErrAnalysis, "analysis failed", cause))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if body.Error.Code != apperr.CodeAnalysisFailed {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if body.Error.Message == cause.Error() {
		t.Fatalf("internal cause leaked to caller")
	}
}

func TestFromErrorSessionNotFound(t *testing.T) {
	resp, body := serveError(t, apperr.ErrSessionNotFound)
	if resp.Code != http.StatusNotFound || body.Error.Code != apperr.CodeSessionNotFound {
		t.Fatalf("unexpected %d %+v", resp.Code, body)
	}
}
