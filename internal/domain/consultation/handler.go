package consultation

import (
	"net/http"

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
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "hospital", "patient"))
	readGroup.GET("/consultations", h.ListConsultations)
	readGroup.GET("/consultations/:id", h.GetConsultation)

	// Clinical writes are doctor actions.
	writeGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	writeGroup.POST("/consultations", h.CreateConsultation)
	writeGroup.PUT("/consultations/:id", h.UpdateConsultation)
	writeGroup.PUT("/consultations/:id/start", h.StartConsultation)
	writeGroup.PUT("/consultations/:id/end", h.EndConsultation)
	writeGroup.DELETE("/consultations/:id", h.DeleteConsultation)
}

// consultationID parses the :id route segment.
func consultationID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "malformed consultation id")
	}
	return id, nil
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	con := new(Consultation)
	if err := c.Bind(con); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateConsultation(c.Request().Context(), con); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, con)
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := consultationID(c)
	if err != nil {
		return err
	}
	con, err := h.svc.GetConsultation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no consultation with that id")
	}
	return c.JSON(http.StatusOK, con)
}

// ListConsultations serves both shapes of the collection endpoint. With a
// patient_id it returns that patient's visits newest first; otherwise it
// searches on doctor, mode, and status.
func (h *Handler) ListConsultations(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if raw := c.QueryParam("patient_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed patient_id")
		}
		items, total, err := h.svc.ListConsultationsByPatient(ctx, pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	filters := make(map[string]string)
	for _, key := range []string{"doctor_id", "mode", "status"} {
		if v := c.QueryParam(key); v != "" {
			filters[key] = v
		}
	}
	items, total, err := h.svc.SearchConsultations(ctx, filters, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateConsultation(c echo.Context) error {
	id, err := consultationID(c)
	if err != nil {
		return err
	}
	con := new(Consultation)
	if err := c.Bind(con); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	con.ID = id
	if err := h.svc.UpdateConsultation(c.Request().Context(), con); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, con)
}

func (h *Handler) StartConsultation(c echo.Context) error {
	id, err := consultationID(c)
	if err != nil {
		return err
	}
	con, err := h.svc.StartConsultation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, con)
}

func (h *Handler) EndConsultation(c echo.Context) error {
	id, err := consultationID(c)
	if err != nil {
		return err
	}
	con, err := h.svc.EndConsultation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, con)
}

func (h *Handler) DeleteConsultation(c echo.Context) error {
	id, err := consultationID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteConsultation(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
