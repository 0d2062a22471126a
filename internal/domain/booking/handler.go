package booking

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
	// Any authenticated role may create or read bookings; list access
	// without a patient filter is limited to care-side roles in ListBookings.
	api.POST("/bookings", h.CreateBooking)
	api.GET("/bookings", h.ListBookings)
	api.GET("/bookings/:id", h.GetBooking)
	api.PUT("/bookings/:id", h.UpdateBooking)
	api.PUT("/bookings/:id/cancel", h.CancelBooking)

	// Status transitions past pending are staff actions.
	staffGroup := api.Group("", auth.RequireRole("admin", "hospital", "doctor"))
	staffGroup.PUT("/bookings/:id/confirm", h.ConfirmBooking)
	staffGroup.PUT("/bookings/:id/complete", h.CompleteBooking)
	staffGroup.DELETE("/bookings/:id", h.DeleteBooking)
}

// bookingID parses the :id route segment.
func bookingID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "malformed booking id")
	}
	return id, nil
}

func (h *Handler) CreateBooking(c echo.Context) error {
	b := new(Booking)
	if err := c.Bind(b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBooking(c.Request().Context(), b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no booking with that id")
	}
	return c.JSON(http.StatusOK, b)
}

// ListBookings serves both shapes of the collection endpoint. With a
// patient_id it returns that patient's bookings newest first; otherwise it
// searches on hospital, kind, status, and department.
func (h *Handler) ListBookings(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if raw := c.QueryParam("patient_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed patient_id")
		}
		items, total, err := h.svc.ListBookingsByPatient(ctx, pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	filters := make(map[string]string)
	for _, key := range []string{"hospital_id", "kind", "status", "department"} {
		if v := c.QueryParam(key); v != "" {
			filters[key] = v
		}
	}
	items, total, err := h.svc.SearchBookings(ctx, filters, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	b := new(Booking)
	if err := c.Bind(b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.ID = id
	if err := h.svc.UpdateBooking(c.Request().Context(), b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ConfirmBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.ConfirmBooking(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) CompleteBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.CompleteBooking(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) CancelBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.CancelBooking(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBooking(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
