package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/recon/internal/platform/outcome"
)

func renderError(t *testing.T, method string, err error) (*httptest.ResponseRecorder, outcome.Outcome) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/api/v1/match", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop())(err, c)

	var out outcome.Outcome
	if rec.Body.Len() > 0 {
		if derr := json.Unmarshal(rec.Body.Bytes(), &out); derr != nil {
			t.Fatalf("decode outcome: %v", derr)
		}
	}
	return rec, out
}

func TestErrorHandler_HTTPError(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, outcome.CodeInvalid},
		{http.StatusNotFound, outcome.CodeNotFound},
		{http.StatusMethodNotAllowed, outcome.CodeNotSupported},
		{http.StatusRequestEntityTooLarge, outcome.CodeTooCostly},
		{http.StatusTooManyRequests, outcome.CodeThrottled},
		{http.StatusGatewayTimeout, outcome.CodeTimeout},
		{http.StatusServiceUnavailable, outcome.CodeException},
		{http.StatusConflict, outcome.CodeProcessing},
	}

	for _, tt := range tests {
		rec, out := renderError(t, http.MethodPost, echo.NewHTTPError(tt.status, "boom"))
		if rec.Code != tt.status {
			t.Errorf("status %d: got %d", tt.status, rec.Code)
		}
		if len(out.Issue) != 1 || out.Issue[0].Code != tt.code {
			t.Errorf("status %d: expected code %s, got %+v", tt.status, tt.code, out.Issue)
		}
		if out.Issue[0].Diagnostics != "boom" {
			t.Errorf("status %d: expected diagnostics boom, got %q", tt.status, out.Issue[0].Diagnostics)
		}
	}
}

func TestErrorHandler_PlainErrorIsHidden(t *testing.T) {
	rec, out := renderError(t, http.MethodPost, errors.New("pool exhausted at 10.0.0.5"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Error("internal error message leaked into the response")
	}
	if out.Issue[0].Code != outcome.CodeException {
		t.Errorf("expected exception code, got %s", out.Issue[0].Code)
	}
}

func TestErrorHandler_HeadHasNoBody(t *testing.T) {
	rec, _ := renderError(t, http.MethodHead, echo.NewHTTPError(http.StatusNotFound))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}
