package medicalhistory

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients/:id/medical-history",
		auth.RequireSelfOrRole("id", "admin", "doctor", "hospital"))
	g.GET("", h.GetTimeline)
	g.GET("/metrics", h.GetMetrics)
	g.GET("/export", h.Export)
}

// timelineResponse mirrors the list envelope and adds the degraded
// source list.
type timelineResponse struct {
	Entries  []*TimelineEntry `json:"entries"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	HasMore  bool             `json:"has_more"`
	Degraded []string         `json:"degraded,omitempty"`
}

type metricsResponse struct {
	MetricsSummary
	Degraded []string `json:"degraded,omitempty"`
}

func (h *Handler) GetTimeline(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil || patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	typ := c.QueryParam("type")
	if typ != "" && !ValidEntryTypes[typ] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid type: %s", typ))
	}
	from, to, err := parseWindow(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pg := pagination.FromContext(c)
	t, err := h.svc.GetTimeline(c.Request().Context(), patientID, Filter{
		Type:   typ,
		From:   from,
		To:     to,
		Limit:  pg.Limit,
		Offset: pg.Offset,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, timelineResponse{
		Entries:  t.Entries,
		Total:    t.Total,
		Limit:    pg.Limit,
		Offset:   pg.Offset,
		HasMore:  pg.HasNext(t.Total),
		Degraded: t.Degraded,
	})
}

func (h *Handler) GetMetrics(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil || patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	from, to, err := parseWindow(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	t, err := h.svc.FullHistory(c.Request().Context(), patientID, "", from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, metricsResponse{
		MetricsSummary: Summarize(t.Entries),
		Degraded:       t.Degraded,
	})
}

// Export streams the full filtered history as a CSV or PDF attachment.
// Format defaults to CSV when not given.
func (h *Handler) Export(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil || patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	typ := c.QueryParam("type")
	if typ != "" && !ValidEntryTypes[typ] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid type: %s", typ))
	}
	format := c.QueryParam("format")
	if format == "" {
		format = FormatCSV
	}
	if !ValidFormats[format] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid format: %s", format))
	}
	from, to, err := parseWindow(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	t, err := h.svc.FullHistory(c.Request().Context(), patientID, typ, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case FormatPDF:
		contentType = "application/pdf"
		err = WritePDF(&buf, patientID, t.Entries)
	default:
		contentType = "text/csv"
		err = WriteCSV(&buf, t.Entries)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", ExportFilename(patientID, format)))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// parseWindow reads start_date and end_date. Dates are RFC 3339
// timestamps or plain 2006-01-02 days; a day-only end bound covers that
// whole day.
func parseWindow(c echo.Context) (from, to *time.Time, err error) {
	from, err = parseDate(c.QueryParam("start_date"), false)
	if err != nil {
		return nil, nil, err
	}
	to, err = parseDate(c.QueryParam("end_date"), true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	t = t.UTC()
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
