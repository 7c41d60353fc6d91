package dto

import "time"

type CreateEventRequest struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	EventDate    time.Time `json:"event_date"`
	Price        int64     `json:"price"`
	TotalTickets int       `json:"total_tickets"`
}

type UpdateEventRequest struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	EventDate    time.Time `json:"event_date"`
	Price        int64     `json:"price"`
	TotalTickets int       `json:"total_tickets"`
}

// PaymentConfirmationRequest is the webhook body from the payment gateway,
// already verified upstream.
type PaymentConfirmationRequest struct {
	EventID          uint   `json:"event_id"`
	UserID           string `json:"user_id"`
	WaitlistEntryID  uint   `json:"waitlist_entry_id"`
	PaymentReference string `json:"payment_reference"`
	Amount           int64  `json:"amount"`
}

type UpdateTicketStatusRequest struct {
	Status string `json:"status"`
}
