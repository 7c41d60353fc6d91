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

type TicketHandler struct {
	svc service.TicketService
}

func NewTicketHandler(svc service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

func (h *TicketHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/tickets", h.UserTickets)
	e.GET("/api/v1/tickets/:id", h.GetTicket)
	e.PATCH("/api/v1/tickets/:id/status", h.UpdateTicketStatus)

	// Webhook for the payment gateway's checkout-completed notification.
	e.POST("/api/v1/payments/confirm", h.ConfirmPayment)

	e.POST("/api/v1/events/:id/refunds", h.RefundEventTickets)
}

// ConfirmPayment finalizes a purchase. The gateway may deliver the same
// confirmation twice; the second call finds the entry no longer offered and
// gets a conflict instead of a second ticket.
func (h *TicketHandler) ConfirmPayment(c echo.Context) error {
	var req dto.PaymentConfirmationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PaymentReference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_reference is required")
	}

	ticket, err := h.svc.Purchase(c.Request().Context(), service.PurchaseInput{
		EventID:          req.EventID,
		UserID:           req.UserID,
		WaitlistEntryID:  req.WaitlistEntryID,
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEntryNotFound), errors.Is(err, service.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrOfferNotActive):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrOwnershipMismatch):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrEventCancelled):
			return echo.NewHTTPError(http.StatusGone, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.ToTicketResponse(ticket))
}

func (h *TicketHandler) UserTickets(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	tickets, err := h.svc.UserTickets(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.TicketResponse, len(tickets))
	for i := range tickets {
		resp[i] = dto.ToTicketResponse(&tickets[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) GetTicket(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	ticket, err := h.svc.GetTicket(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *TicketHandler) UpdateTicketStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateTicketStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	status := models.TicketStatus(req.Status)
	switch status {
	case models.TicketValid, models.TicketUsed, models.TicketRefunded, models.TicketCancelled:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket status")
	}

	if err := h.svc.UpdateTicketStatus(c.Request().Context(), id, status); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(status)})
}

func (h *TicketHandler) RefundEventTickets(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	refunded, err := h.svc.RefundEventTickets(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.TicketResponse, len(refunded))
	for i := range refunded {
		resp[i] = dto.ToTicketResponse(&refunded[i])
	}
	return c.JSON(http.StatusOK, resp)
}
