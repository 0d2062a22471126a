package admission

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/domain/hospital"
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
	read := api.Group("/hospitals/:id", auth.RequireRole(auth.RoleHospital, auth.RoleAdmin, auth.RoleDoctor))
	read.GET("/queue", h.GetQueue)
	read.GET("/available-beds", h.ListAvailableBeds)

	manage := api.Group("/hospitals/:id", auth.RequireRole(auth.RoleHospital, auth.RoleAdmin))
	manage.POST("/allocate-bed", h.AllocateBed)
	manage.POST("/auto-allocate", h.AutoAllocate)
	manage.DELETE("/queue/:bookingId", h.Withdraw)
	manage.PUT("/release-bed/:bookingId", h.ReleaseBed)
}

// AllocateBedRequest is the staff-side payload for a manual bed assignment.
type AllocateBedRequest struct {
	BookingID uuid.UUID `json:"booking_id"`
	BedNumber int       `json:"bed_number"`
}

// GetQueue returns the hospital's ranked bed queue. Positions are ranks in
// the full queue; pagination only windows the view.
func (h *Handler) GetQueue(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	locationID, err := optionalUUID(c.QueryParam("location_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
	}

	entries, err := h.svc.BuildQueue(c.Request().Context(), hospitalID, locationID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build queue")
	}

	pg := pagination.FromContext(c)
	start := pg.Offset
	if start > len(entries) {
		start = len(entries)
	}
	end := start + pg.Limit
	if end > len(entries) {
		end = len(entries)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries[start:end], len(entries), pg.Limit, pg.Offset))
}

func (h *Handler) ListAvailableBeds(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	locationID, err := optionalUUID(c.QueryParam("location_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
	}
	bedType := c.QueryParam("bed_type")
	if bedType != "" && !hospital.ValidBedTypes[bedType] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid bed type: %s", bedType))
	}

	beds, err := h.svc.ListAvailableBeds(c.Request().Context(), hospitalID, locationID, bedType)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list available beds")
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) AllocateBed(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	var req AllocateBedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.BookingID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "booking_id is required")
	}

	entry, err := h.svc.AllocateBed(c.Request().Context(), hospitalID, req.BookingID, req.BedNumber)
	if err != nil {
		switch {
		case errors.Is(err, ErrBedNotFound), errors.Is(err, ErrNotInQueue):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrBedOccupied):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) AutoAllocate(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	locationID, err := optionalUUID(c.QueryParam("location_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
	}

	count, err := h.svc.AutoAllocate(c.Request().Context(), hospitalID, locationID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "auto-allocation failed")
	}
	return c.JSON(http.StatusOK, map[string]int{"allocated_count": count})
}

func (h *Handler) Withdraw(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	if err := h.svc.Withdraw(c.Request().Context(), hospitalID, bookingID); err != nil {
		if errors.Is(err, ErrNotInQueue) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to withdraw queue entry")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReleaseBed(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	bed, err := h.svc.ReleaseBed(c.Request().Context(), hospitalID, bookingID)
	if err != nil {
		if errors.Is(err, ErrBedNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to release bed")
	}
	return c.JSON(http.StatusOK, bed)
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
