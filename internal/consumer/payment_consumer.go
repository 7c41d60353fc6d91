package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/HelderMendes/events-tickets/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PaymentConfirmation is the gateway's checkout-completed message. The
// reference and amount are trusted as already authorized; the waitlist entry
// id ties the payment back to the offer being consumed.
type PaymentConfirmation struct {
	EventID          uint   `json:"event_id"`
	UserID           string `json:"user_id"`
	WaitlistEntryID  uint   `json:"waitlist_entry_id"`
	PaymentReference string `json:"payment_reference"`
	Amount           int64  `json:"amount"`
}

type PaymentConsumer struct {
	tickets service.TicketService
}

func NewPaymentConsumer(tickets service.TicketService) *PaymentConsumer {
	return &PaymentConsumer{tickets: tickets}
}

// Start listens for payment confirmations and finalizes the matching
// purchases.
func (pc *PaymentConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			pc.handleMessage(msg)
		}
		slog.Info("payment consumer channel closed, stopping")
	}()
}

func (pc *PaymentConsumer) handleMessage(msg amqp.Delivery) {
	var confirmation PaymentConfirmation
	if err := json.Unmarshal(msg.Body, &confirmation); err != nil {
		slog.Error("payment consumer: unmarshal failed", "error", err)
		msg.Nack(false, false)
		return
	}

	ticket, err := pc.tickets.Purchase(context.Background(), service.PurchaseInput{
		EventID:          confirmation.EventID,
		UserID:           confirmation.UserID,
		WaitlistEntryID:  confirmation.WaitlistEntryID,
		PaymentReference: confirmation.PaymentReference,
		Amount:           confirmation.Amount,
	})
	switch {
	case err == nil:
		slog.Info("purchase finalized", "ticket_id", ticket.ID, "event_id", ticket.EventID, "user_id", ticket.UserID)
		msg.Ack(false)
	case errors.Is(err, service.ErrOfferNotActive):
		// Duplicate delivery or a raced expiration; nothing to retry.
		slog.Info("payment confirmation ignored, offer no longer active",
			"entry_id", confirmation.WaitlistEntryID, "event_id", confirmation.EventID)
		msg.Ack(false)
	case errors.Is(err, service.ErrEntryNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrOwnershipMismatch),
		errors.Is(err, service.ErrEventCancelled):
		slog.Error("payment confirmation rejected", "error", err,
			"entry_id", confirmation.WaitlistEntryID, "event_id", confirmation.EventID)
		msg.Nack(false, false)
	default:
		slog.Error("payment confirmation failed, requeueing", "error", err,
			"entry_id", confirmation.WaitlistEntryID, "event_id", confirmation.EventID)
		msg.Nack(false, true)
	}
}
