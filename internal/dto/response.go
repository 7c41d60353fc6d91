package dto

import (
	"time"

	"github.com/HelderMendes/events-tickets/internal/models"
)

type WaitlistEntryResponse struct {
	ID             uint                  `json:"id"`
	EventID        uint                  `json:"event_id"`
	UserID         string                `json:"user_id"`
	Status         models.WaitlistStatus `json:"status"`
	OfferExpiresAt *time.Time            `json:"offer_expires_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

type JoinResponse struct {
	Entry   WaitlistEntryResponse `json:"entry"`
	Status  models.WaitlistStatus `json:"status"`
	Message string                `json:"message"`
}

type QueuePositionResponse struct {
	Entry    WaitlistEntryResponse `json:"entry"`
	Position int64                 `json:"position"`
}

// AvailabilityResponse clamps available spots at zero. The raw signed value
// stays internal to the capacity checks.
type AvailabilityResponse struct {
	TotalTickets   int   `json:"total_tickets"`
	PurchasedCount int64 `json:"purchased_count"`
	ActiveOffers   int64 `json:"active_offers"`
	RemainingSpots int   `json:"remaining_spots"`
	IsSoldOut      bool  `json:"is_sold_out"`
}

type TicketResponse struct {
	ID               uint                `json:"id"`
	Code             string              `json:"code"`
	EventID          uint                `json:"event_id"`
	UserID           string              `json:"user_id"`
	Status           models.TicketStatus `json:"status"`
	PaymentReference string              `json:"payment_reference"`
	Amount           int64               `json:"amount"`
	PurchasedAt      time.Time           `json:"purchased_at"`
	Event            *models.Event       `json:"event,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToWaitlistEntryResponse(e *models.WaitlistEntry) WaitlistEntryResponse {
	return WaitlistEntryResponse{
		ID:             e.ID,
		EventID:        e.EventID,
		UserID:         e.UserID,
		Status:         e.Status,
		OfferExpiresAt: e.OfferExpiresAt,
		CreatedAt:      e.CreatedAt,
	}
}

func ToTicketResponse(t *models.Ticket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		Code:             t.Code,
		EventID:          t.EventID,
		UserID:           t.UserID,
		Status:           t.Status,
		PaymentReference: t.PaymentReference,
		Amount:           t.Amount,
		PurchasedAt:      t.PurchasedAt,
		Event:            t.Event,
	}
}
