package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/pkg/pagination"
)

// Handler exposes the notification manager over HTTP. Errors surface as
// echo HTTP errors so the platform error handler renders them the same
// way as every other endpoint.
type Handler struct {
	manager *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{manager: mgr}
}

// RegisterRoutes mounts the notification endpoints on the group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/notifications", h.SendNotification)
	g.POST("/notifications/templated", h.SendTemplated)
	g.GET("/notifications", h.ListNotifications)
	g.GET("/notifications/stats", h.DeliveryStats)
	g.GET("/notifications/templates", h.ListTemplates)
	g.GET("/notifications/:id", h.GetNotification)
	g.POST("/notifications/:id/retry", h.RetryNotification)
}

// SendNotification accepts a raw notification. Delivery failures are
// recorded on the stored notification rather than failing the request,
// so the caller always gets an ID it can retry with.
func (h *Handler) SendNotification(c echo.Context) error {
	n := new(Notification)
	if err := c.Bind(n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := n.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	_ = h.manager.Send(c.Request().Context(), n)
	return c.JSON(http.StatusCreated, n)
}

// SendTemplated renders a registered template and sends the result. The
// body names the template, the recipient, and the substitution data.
func (h *Handler) SendTemplated(c echo.Context) error {
	n := new(Notification)
	if err := c.Bind(n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if n.Recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient is required")
	}

	sent, err := h.manager.SendTemplated(c.Request().Context(), n.TemplateID, n.Recipient, n.TemplateData)
	if sent == nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sent)
}

func (h *Handler) GetNotification(c echo.Context) error {
	n, err := h.manager.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no notification with that id")
	}
	return c.JSON(http.StatusOK, n)
}

// ListNotifications returns a recipient's delivery log, newest first.
func (h *Handler) ListNotifications(c echo.Context) error {
	recipient := c.QueryParam("recipient")
	if recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient query parameter is required")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.manager.ListByRecipient(c.Request().Context(), recipient, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// RetryNotification re-sends a failed notification and returns its new
// state.
func (h *Handler) RetryNotification(c echo.Context) error {
	id := c.Param("id")
	if err := h.manager.Retry(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n, err := h.manager.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no notification with that id")
	}
	return c.JSON(http.StatusOK, n)
}

// DeliveryStats returns notification counts grouped by status.
func (h *Handler) DeliveryStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.StatsByStatus(c.Request().Context()))
}

// ListTemplates lists the registered templates.
func (h *Handler) ListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.Templates())
}
