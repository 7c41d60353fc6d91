package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/HelderMendes/events-tickets/internal/models"
	"github.com/HelderMendes/events-tickets/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseInput carries an externally-confirmed payment. The reference and
// amount arrive from the payment gateway and are trusted as already
// authorized.
type PurchaseInput struct {
	EventID          uint
	UserID           string
	WaitlistEntryID  uint
	PaymentReference string
	Amount           int64
}

type TicketService interface {
	// Purchase atomically converts a valid, unexpired offer into a committed
	// ticket. Duplicate gateway deliveries are absorbed: a replay finds the
	// entry no longer offered and fails with ErrOfferNotActive without
	// inserting a second ticket.
	Purchase(ctx context.Context, in PurchaseInput) (*models.Ticket, error)
	UserTickets(ctx context.Context, userID string) ([]models.Ticket, error)
	GetTicket(ctx context.Context, id uint) (*models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID uint, status models.TicketStatus) error
	// RefundEventTickets marks every valid ticket for the event refunded and
	// publishes a refund command per ticket. Row removal after the gateway
	// confirms is the refund collaborator's job, so event cancellation stays
	// blocked until then.
	RefundEventTickets(ctx context.Context, eventID uint) ([]models.Ticket, error)
}

type ticketService struct {
	tickets   repository.TicketRepository
	entries   repository.WaitlistRepository
	events    repository.EventRepository
	txm       repository.TxManager
	queue     WaitlistService
	publisher Publisher
	now       func() time.Time
}

func NewTicketService(
	tickets repository.TicketRepository,
	entries repository.WaitlistRepository,
	events repository.EventRepository,
	txm repository.TxManager,
	queue WaitlistService,
	publisher Publisher,
) TicketService {
	return &ticketService{
		tickets:   tickets,
		entries:   entries,
		events:    events,
		txm:       txm,
		queue:     queue,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *ticketService) Purchase(ctx context.Context, in PurchaseInput) (*models.Ticket, error) {
	var ticket *models.Ticket
	var promoted []models.WaitlistEntry

	err := s.txm.Do(ctx, func(tx *gorm.DB) error {
		if _, err := s.entries.FindByID(ctx, tx, in.WaitlistEntryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}

		event, err := s.events.FindByIDForUpdate(ctx, tx, in.EventID)
		if err != nil {
			return ErrEventNotFound
		}

		// Re-read under the lock: the decisive status check. A racing
		// expiration that committed first is seen here.
		entry, err := s.entries.FindByID(ctx, tx, in.WaitlistEntryID)
		if err != nil {
			return ErrEntryNotFound
		}
		// The entry must belong to the event being purchased; a mismatched
		// gateway payload must not commit a ticket against an event the
		// entry never held an offer on.
		if entry.EventID != in.EventID {
			return ErrEntryNotFound
		}
		if entry.Status != models.StatusOffered {
			return ErrOfferNotActive
		}
		if entry.UserID != in.UserID {
			return ErrOwnershipMismatch
		}
		if event.IsCancelled {
			return ErrEventCancelled
		}

		ticket = &models.Ticket{
			Code:             uuid.New().String(),
			EventID:          in.EventID,
			UserID:           in.UserID,
			Status:           models.TicketValid,
			PaymentReference: in.PaymentReference,
			Amount:           in.Amount,
			PurchasedAt:      s.now(),
		}
		if err := s.tickets.Create(ctx, tx, ticket); err != nil {
			return err
		}
		if err := s.entries.SetStatus(ctx, tx, entry.ID, models.StatusPurchased); err != nil {
			return err
		}

		// A purchase does not free capacity by itself, but every terminal
		// transition is followed by a processor pass so concurrent expiries
		// are picked up immediately.
		promoted, err = s.queue.ProcessQueueTx(ctx, tx, event)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish("ticket.purchased", ticket)
	for i := range promoted {
		s.publish("waitlist.offered", &promoted[i])
	}
	return ticket, nil
}

func (s *ticketService) UserTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	return s.tickets.FindByUser(ctx, userID)
}

func (s *ticketService) GetTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) UpdateTicketStatus(ctx context.Context, ticketID uint, status models.TicketStatus) error {
	return s.txm.Do(ctx, func(tx *gorm.DB) error {
		return s.tickets.UpdateStatus(ctx, tx, ticketID, status)
	})
}

func (s *ticketService) RefundEventTickets(ctx context.Context, eventID uint) ([]models.Ticket, error) {
	var refunded []models.Ticket

	err := s.txm.Do(ctx, func(tx *gorm.DB) error {
		if _, err := s.events.FindByIDForUpdate(ctx, tx, eventID); err != nil {
			return ErrEventNotFound
		}
		tickets, err := s.tickets.FindValidByEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		for _, t := range tickets {
			if err := s.tickets.UpdateStatus(ctx, tx, t.ID, models.TicketRefunded); err != nil {
				return err
			}
			t.Status = models.TicketRefunded
			refunded = append(refunded, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range refunded {
		s.publish("ticket.refund", &refunded[i])
	}
	return refunded, nil
}

func (s *ticketService) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		slog.Error("publish failed", "routing_key", routingKey, "error", err)
	}
}
