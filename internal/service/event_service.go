package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HelderMendes/events-tickets/internal/models"
	"github.com/HelderMendes/events-tickets/internal/repository"
	"gorm.io/gorm"
)

// EventMetrics is the per-event sales summary shown on the seller dashboard.
type EventMetrics struct {
	SoldTickets      int64 `json:"sold_tickets"`
	RefundedTickets  int64 `json:"refunded_tickets"`
	CancelledTickets int64 `json:"cancelled_tickets"`
	RemainingTickets int64 `json:"remaining_tickets"`
	Revenue          int64 `json:"revenue"` // cents
}

type EventWithMetrics struct {
	models.Event
	Metrics EventMetrics `json:"metrics"`
}

type EventService interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	// UpdateEvent applies field changes; TotalTickets may never drop below
	// the number of tickets already sold.
	UpdateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	SearchEvents(ctx context.Context, term string) ([]models.Event, error)
	SellerEvents(ctx context.Context, ownerID string) ([]EventWithMetrics, error)
	// CancelEvent closes admission for good: only permitted while no ticket
	// rows exist, and deletes every live waitlist entry. Pending expiry tasks
	// for deleted entries no-op on the missing rows.
	CancelEvent(ctx context.Context, eventID uint) error
}

type eventService struct {
	events    repository.EventRepository
	tickets   repository.TicketRepository
	entries   repository.WaitlistRepository
	txm       repository.TxManager
	publisher Publisher
}

func NewEventService(
	events repository.EventRepository,
	tickets repository.TicketRepository,
	entries repository.WaitlistRepository,
	txm repository.TxManager,
	publisher Publisher,
) EventService {
	return &eventService{
		events:    events,
		tickets:   tickets,
		entries:   entries,
		txm:       txm,
		publisher: publisher,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *models.Event) error {
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return fmt.Errorf("event name is required")
	}
	if event.TotalTickets < 1 {
		return fmt.Errorf("total_tickets must be at least 1")
	}
	if event.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	return s.events.Create(ctx, event)
}

func (s *eventService) UpdateEvent(ctx context.Context, event *models.Event) error {
	if event.TotalTickets < 1 {
		return fmt.Errorf("total_tickets must be at least 1")
	}
	return s.txm.Do(ctx, func(tx *gorm.DB) error {
		current, err := s.events.FindByIDForUpdate(ctx, tx, event.ID)
		if err != nil {
			return ErrEventNotFound
		}

		sold, err := s.tickets.CountCommitted(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if int64(event.TotalTickets) < sold {
			return ErrTicketFloor
		}

		current.Name = event.Name
		current.Description = event.Description
		current.Location = event.Location
		current.EventDate = event.EventDate
		current.Price = event.Price
		current.TotalTickets = event.TotalTickets
		if err := s.events.Update(ctx, tx, current); err != nil {
			return err
		}
		*event = *current
		return nil
	})
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.events.FindActive(ctx)
}

func (s *eventService) SearchEvents(ctx context.Context, term string) ([]models.Event, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.events.FindActive(ctx)
	}
	return s.events.Search(ctx, term)
}

func (s *eventService) SellerEvents(ctx context.Context, ownerID string) ([]EventWithMetrics, error) {
	events, err := s.events.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result := make([]EventWithMetrics, 0, len(events))
	for _, event := range events {
		tickets, err := s.tickets.FindByEvent(ctx, event.ID)
		if err != nil {
			return nil, err
		}

		var m EventMetrics
		for _, t := range tickets {
			switch {
			case t.Committed():
				m.SoldTickets++
			case t.Status == models.TicketRefunded:
				m.RefundedTickets++
			case t.Status == models.TicketCancelled:
				m.CancelledTickets++
			}
		}
		m.RemainingTickets = int64(event.TotalTickets) - m.SoldTickets
		m.Revenue = m.SoldTickets * event.Price

		result = append(result, EventWithMetrics{Event: event, Metrics: m})
	}
	return result, nil
}

func (s *eventService) CancelEvent(ctx context.Context, eventID uint) error {
	err := s.txm.Do(ctx, func(tx *gorm.DB) error {
		event, err := s.events.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return ErrEventNotFound
		}
		if event.IsCancelled {
			return ErrEventCancelled
		}

		count, err := s.tickets.CountAll(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrHasActiveTickets
		}

		if err := s.events.MarkCancelled(ctx, tx, eventID); err != nil {
			return err
		}
		return s.entries.DeleteByEvent(ctx, tx, eventID)
	})
	if err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish("event.cancelled", map[string]uint{"event_id": eventID}); err != nil {
			slog.Error("publish failed", "routing_key", "event.cancelled", "error", err)
		}
	}
	return nil
}
