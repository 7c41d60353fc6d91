package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/HelderMendes/events-tickets/internal/dto"
	"github.com/HelderMendes/events-tickets/internal/middleware"
	"github.com/HelderMendes/events-tickets/internal/service"
	"github.com/labstack/echo/v4"
)

type WaitlistHandler struct {
	svc service.WaitlistService
}

func NewWaitlistHandler(svc service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{svc: svc}
}

func (h *WaitlistHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.GET("/:id/availability", h.GetAvailability)
	events.POST("/:id/waitlist", h.Join)
	events.GET("/:id/waitlist/position", h.GetQueuePosition)
	events.POST("/:id/waitlist/process", h.ProcessQueue)

	e.DELETE("/api/v1/waitlist/:entryId", h.Release)
}

func (h *WaitlistHandler) GetAvailability(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	avail, err := h.svc.CheckAvailability(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.AvailabilityResponse{
		TotalTickets:   avail.TotalTickets,
		PurchasedCount: avail.PurchasedCount,
		ActiveOffers:   avail.ActiveOffers,
		RemainingSpots: max(0, avail.AvailableSpots),
		IsSoldOut:      avail.IsSoldOut,
	})
}

func (h *WaitlistHandler) Join(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	result, err := h.svc.Join(c.Request().Context(), eventID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrEventCancelled):
			return echo.NewHTTPError(http.StatusGone, err.Error())
		case errors.Is(err, service.ErrAlreadyQueued):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrTooManyJoins):
			return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.JoinResponse{
		Entry:   dto.ToWaitlistEntryResponse(result.Entry),
		Status:  result.Status,
		Message: result.Message,
	})
}

func (h *WaitlistHandler) GetQueuePosition(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	pos, err := h.svc.QueuePosition(c.Request().Context(), eventID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if pos == nil {
		return echo.NewHTTPError(http.StatusNotFound, "not in the waiting list for this event")
	}

	return c.JSON(http.StatusOK, dto.QueuePositionResponse{
		Entry:    dto.ToWaitlistEntryResponse(pos.Entry),
		Position: pos.Position,
	})
}

func (h *WaitlistHandler) Release(c echo.Context) error {
	entryID, err := parseID(c, "entryId")
	if err != nil {
		return err
	}
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Release(c.Request().Context(), entryID, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrOfferNotActive):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrOwnershipMismatch):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "released"})
}

func (h *WaitlistHandler) ProcessQueue(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.ProcessQueue(c.Request().Context(), eventID); err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "processed"})
}

func parseID(c echo.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
	}
	return uint(id), nil
}
