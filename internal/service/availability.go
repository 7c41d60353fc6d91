package service

import (
	"context"
	"time"

	"github.com/HelderMendes/events-tickets/internal/models"
	"gorm.io/gorm"
)

// Availability is the capacity picture for one event at one instant.
// AvailableSpots is the raw signed value: a negative number means the event is
// overcommitted, which internal checks want to see rather than have clamped
// away. Handlers clamp to zero for display.
type Availability struct {
	TotalTickets   int   `json:"total_tickets"`
	PurchasedCount int64 `json:"purchased_count"`
	ActiveOffers   int64 `json:"active_offers"`
	AvailableSpots int   `json:"available_spots"`
	IsSoldOut      bool  `json:"is_sold_out"`
}

// availability computes free capacity for the event: total minus committed
// tickets minus offers whose deadline is still ahead. Side-effect free; the
// same arithmetic backs the join decision, the queue processor, and the public
// availability endpoint, so capacity can never diverge between them.
func (s *waitlistService) availability(ctx context.Context, tx *gorm.DB, event *models.Event, now time.Time) (*Availability, error) {
	purchased, err := s.tickets.CountCommitted(ctx, tx, event.ID)
	if err != nil {
		return nil, err
	}
	offers, err := s.entries.CountActiveOffers(ctx, tx, event.ID, now)
	if err != nil {
		return nil, err
	}
	spots := event.TotalTickets - int(purchased+offers)
	return &Availability{
		TotalTickets:   event.TotalTickets,
		PurchasedCount: purchased,
		ActiveOffers:   offers,
		AvailableSpots: spots,
		IsSoldOut:      spots <= 0,
	}, nil
}

// CheckAvailability reports current capacity for an event. Read-only; safe to
// call concurrently and repeatedly.
func (s *waitlistService) CheckAvailability(ctx context.Context, eventID uint) (*Availability, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, ErrEventNotFound
	}
	return s.availability(ctx, s.entries.GetDB(), event, s.now())
}
