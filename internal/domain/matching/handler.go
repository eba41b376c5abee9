package matching

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/recon/internal/platform/outcome"
	"github.com/ehr/recon/pkg/pagination"
)

type Handler struct {
	matcher *Matcher
	logger  zerolog.Logger
}

func NewHandler(matcher *Matcher, logger zerolog.Logger) *Handler {
	return &Handler{matcher: matcher, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/match", h.Match)
	api.GET("/test-mappings", h.ListTestMappings)
}

// Match handles POST /api/v1/match.
func (h *Handler) Match(c echo.Context) error {
	var req MatchRequest
	if err := c.Bind(&req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return c.JSON(he.Code, outcome.New(
				outcome.SeverityError, outcome.CodeTooCostly, "request body too large",
			))
		}
		return c.JSON(http.StatusBadRequest, outcome.New(
			outcome.SeverityError, outcome.CodeStructure, "invalid request body",
		))
	}
	if issues := req.Validate(); len(issues) > 0 {
		return c.JSON(http.StatusBadRequest, outcome.FromIssues(issues))
	}

	report := h.matcher.Reconcile(req.Bookings, req.Claims)

	rid, _ := c.Get("request_id").(string)
	h.logger.Debug().
		Str("request_id", rid).
		Int("bookings", len(req.Bookings)).
		Int("claims", len(req.Claims)).
		Int("candidates", report.Candidates).
		Int("matches", len(report.Matches)).
		Msg("reconciled")

	return c.JSON(http.StatusOK, MatchResponse{Matches: report.Matches})
}

// ListTestMappings handles GET /api/v1/test-mappings.
func (h *Handler) ListTestMappings(c echo.Context) error {
	pg := pagination.FromContext(c)
	entries := h.matcher.TestCodes().Entries()
	total := len(entries)

	resp := pagination.NewResponse(pagination.Slice(entries, pg), total, pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, total)
	return c.JSON(http.StatusOK, resp)
}
