package document

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/blobstore"
	"github.com/carehub/carehub/internal/platform/middleware"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "hospital", "lab", "patient"))
	readGroup.GET("/documents", h.ListDocuments)
	readGroup.GET("/documents/:id", h.GetDocument)
	readGroup.GET("/documents/:id/download", h.DownloadDocument)

	writeGroup := api.Group("", auth.RequireRole("admin", "doctor", "hospital", "lab", "patient"))
	writeGroup.POST("/documents", h.UploadDocument)

	deleteGroup := api.Group("", auth.RequireRole("admin", "hospital"))
	deleteGroup.DELETE("/documents/:id", h.DeleteDocument)
}

func (h *Handler) UploadDocument(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	// The uploader defaults to the authenticated subject.
	uploaderRaw := c.FormValue("uploader_id")
	if uploaderRaw == "" {
		uploaderRaw = auth.UserIDFromContext(c.Request().Context())
	}
	uploaderID, err := uuid.Parse(uploaderRaw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid uploader_id")
	}

	category := c.FormValue("category")
	if category == "lab-report" && !hasRole(c, auth.RoleLab) {
		return echo.NewHTTPError(http.StatusForbidden, "lab-report uploads require the lab role")
	}

	d := &Document{
		PatientID:   patientID,
		UploaderID:  uploaderID,
		Title:       middleware.SanitizeString(c.FormValue("title")),
		Category:    category,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
	}
	if note := middleware.SanitizeString(c.FormValue("note")); note != "" {
		d.Note = &note
	}

	if err := h.svc.UploadDocument(c.Request().Context(), d, src); err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blobstore.ErrEmptyContent):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDocument(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DownloadDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, rc, err := h.svc.DownloadDocument(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(d.FileName)))
	return c.Stream(http.StatusOK, d.ContentType, rc)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	pg := pagination.FromContext(c)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListDocumentsByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	params := map[string]string{
		"category":    c.QueryParam("category"),
		"uploader_id": c.QueryParam("uploader_id"),
		"title":       c.QueryParam("title"),
	}
	items, total, err := h.svc.SearchDocuments(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDocument(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func hasRole(c echo.Context, want string) bool {
	for _, r := range auth.RolesFromContext(c.Request().Context()) {
		if r == want || r == auth.RoleAdmin {
			return true
		}
	}
	return false
}

// sanitizeFilename strips characters that would break the
// Content-Disposition header or smuggle path segments.
func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20:
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "download"
	}
	return string(out)
}
