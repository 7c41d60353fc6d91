package handler

import (
	"errors"
	"net/http"

	"github.com/HelderMendes/events-tickets/internal/dto"
	"github.com/HelderMendes/events-tickets/internal/middleware"
	"github.com/HelderMendes/events-tickets/internal/models"
	"github.com/HelderMendes/events-tickets/internal/service"
	"github.com/labstack/echo/v4"
)

type EventHandler struct {
	svc service.EventService
}

func NewEventHandler(svc service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

func (h *EventHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.POST("", h.CreateEvent)
	events.GET("", h.ListEvents)
	events.GET("/search", h.SearchEvents)
	events.GET("/:id", h.GetEvent)
	events.PUT("/:id", h.UpdateEvent)
	events.POST("/:id/cancel", h.CancelEvent)

	e.GET("/api/v1/seller/events", h.SellerEvents)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	ownerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req dto.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event := &models.Event{
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		EventDate:    req.EventDate,
		Price:        req.Price,
		TotalTickets: req.TotalTickets,
		OwnerID:      ownerID,
	}
	if err := h.svc.CreateEvent(c.Request().Context(), event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) UpdateEvent(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event := &models.Event{
		ID:           eventID,
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		EventDate:    req.EventDate,
		Price:        req.Price,
		TotalTickets: req.TotalTickets,
	}
	if err := h.svc.UpdateEvent(c.Request().Context(), event); err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrTicketFloor):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	return c.JSON(http.StatusOK, event)
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	event, err := h.svc.GetEvent(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, event)
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.svc.ListEvents(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, events)
}

func (h *EventHandler) SearchEvents(c echo.Context) error {
	events, err := h.svc.SearchEvents(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, events)
}

func (h *EventHandler) SellerEvents(c echo.Context) error {
	ownerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	events, err := h.svc.SellerEvents(c.Request().Context(), ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, events)
}

func (h *EventHandler) CancelEvent(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.CancelEvent(c.Request().Context(), eventID); err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrEventCancelled):
			return echo.NewHTTPError(http.StatusGone, err.Error())
		case errors.Is(err, service.ErrHasActiveTickets):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}
