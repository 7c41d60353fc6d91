package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/HelderMendes/events-tickets/internal/models"
	"github.com/HelderMendes/events-tickets/internal/repository"
	"gorm.io/gorm"
)

// OfferScheduler schedules the delayed expiration of a single offer,
// at-least-once. Scheduling happens before the surrounding transaction
// commits: a task fired for a rolled-back offer finds no offered entry and
// no-ops, so over-delivery is always safe and under-delivery never happens.
type OfferScheduler interface {
	ScheduleExpiry(ctx context.Context, entryID, eventID uint, delay time.Duration) error
}

// Publisher emits domain events to the message broker. A nil publisher is
// valid and skips publishing (used in tests).
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// JoinLimiter bounds how often a single user may join waitlists. A nil
// limiter imposes no bound.
type JoinLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

type JoinResult struct {
	Entry   *models.WaitlistEntry `json:"entry"`
	Status  models.WaitlistStatus `json:"status"`
	Message string                `json:"message"`
}

type QueuePosition struct {
	Entry    *models.WaitlistEntry `json:"entry"`
	Position int64                 `json:"position"`
}

type WaitlistService interface {
	CheckAvailability(ctx context.Context, eventID uint) (*Availability, error)
	Join(ctx context.Context, eventID uint, userID string) (*JoinResult, error)
	// ExpireOffer is the scheduled callback target. It must never surface an
	// error for the already-resolved case: at-least-once delivery means
	// replays and races with purchase or release are expected.
	ExpireOffer(ctx context.Context, entryID, eventID uint) error
	ProcessQueue(ctx context.Context, eventID uint) error
	Release(ctx context.Context, entryID uint, userID string) error
	QueuePosition(ctx context.Context, eventID uint, userID string) (*QueuePosition, error)
	SweepExpiredOffers(ctx context.Context) error

	// ProcessQueueTx runs a promotion pass inside an existing transaction
	// that already holds the event row lock.
	ProcessQueueTx(ctx context.Context, tx *gorm.DB, event *models.Event) ([]models.WaitlistEntry, error)
}

type waitlistService struct {
	entries   repository.WaitlistRepository
	events    repository.EventRepository
	tickets   repository.TicketRepository
	txm       repository.TxManager
	scheduler OfferScheduler
	publisher Publisher
	limiter   JoinLimiter

	offerWindow time.Duration
	now         func() time.Time
}

func NewWaitlistService(
	entries repository.WaitlistRepository,
	events repository.EventRepository,
	tickets repository.TicketRepository,
	txm repository.TxManager,
	scheduler OfferScheduler,
	publisher Publisher,
	limiter JoinLimiter,
	offerWindow time.Duration,
) WaitlistService {
	return &waitlistService{
		entries:     entries,
		events:      events,
		tickets:     tickets,
		txm:         txm,
		scheduler:   scheduler,
		publisher:   publisher,
		limiter:     limiter,
		offerWindow: offerWindow,
		now:         time.Now,
	}
}

// Join places the user in the event's admission queue. With free capacity the
// entry is created as a timed offer; otherwise it waits its turn. The
// check-then-insert runs under the event row lock so two concurrent joins can
// never both consume the same last spot.
func (s *waitlistService) Join(ctx context.Context, eventID uint, userID string) (*JoinResult, error) {
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, userID)
		if err != nil {
			slog.Error("join rate limiter unavailable, allowing", "user_id", userID, "error", err)
		} else if !ok {
			return nil, ErrTooManyJoins
		}
	}

	var result *JoinResult

	err := s.txm.Do(ctx, func(tx *gorm.DB) error {
		event, err := s.events.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return ErrEventNotFound
		}
		if event.IsCancelled {
			return ErrEventCancelled
		}

		_, err = s.entries.FindLiveByUserAndEvent(ctx, tx, userID, eventID)
		if err == nil {
			return ErrAlreadyQueued
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.now()
		avail, err := s.availability(ctx, tx, event, now)
		if err != nil {
			return err
		}

		if avail.AvailableSpots > 0 {
			expiresAt := now.Add(s.offerWindow)
			entry := &models.WaitlistEntry{
				EventID:        eventID,
				UserID:         userID,
				Status:         models.StatusOffered,
				OfferExpiresAt: &expiresAt,
			}
			if err := s.entries.Create(ctx, tx, entry); err != nil {
				return err
			}
			if err := s.scheduler.ScheduleExpiry(ctx, entry.ID, eventID, s.offerWindow); err != nil {
				// Abort the whole join rather than hand out an offer that
				// would never expire.
				return err
			}
			result = &JoinResult{
				Entry:   entry,
				Status:  models.StatusOffered,
				Message: "Ticket offered, complete your purchase before the offer expires",
			}
			return nil
		}

		entry := &models.WaitlistEntry{
			EventID: eventID,
			UserID:  userID,
			Status:  models.StatusWaiting,
		}
		if err := s.entries.Create(ctx, tx, entry); err != nil {
			return err
		}
		result = &JoinResult{
			Entry:   entry,
			Status:  models.StatusWaiting,
			Message: "You are on the waiting list, you'll be notified when a ticket becomes available",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == models.StatusOffered {
		s.publish("waitlist.offered", result.Entry)
	}
	return result, nil
}

// ExpireOffer retires a single offer and hands its capacity to the next
// waiting user. Safe to replay: any call after the entry left the offered
// state is a silent no-op with no queue pass.
func (s *waitlistService) ExpireOffer(ctx context.Context, entryID, eventID uint) error {
	var promoted []models.WaitlistEntry

	err := s.txm.Do(ctx, func(tx *gorm.DB) error {
		event, err := s.events.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		entry, err := s.entries.FindByID(ctx, tx, entryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Deleted by event cancellation, or the offer's transaction
				// never committed.
				return nil
			}
			return err
		}
		if entry.Status != models.StatusOffered {
			return nil
		}

		if err := s.entries.SetStatus(ctx, tx, entryID, models.StatusExpired); err != nil {
			return err
		}

		promoted, err = s.ProcessQueueTx(ctx, tx, event)
		return err
	})
	if err != nil {
		return err
	}

	s.publishPromotions(promoted)
	return nil
}

// ProcessQueue redistributes any free capacity to waiting users. Always safe
// to call after a state change that could have freed capacity.
func (s *waitlistService) ProcessQueue(ctx context.Context, eventID uint) error {
	var promoted []models.WaitlistEntry

	err := s.txm.Do(ctx, func(tx *gorm.DB) error {
		event, err := s.events.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return ErrEventNotFound
		}
		promoted, err = s.ProcessQueueTx(ctx, tx, event)
		return err
	})
	if err != nil {
		return err
	}

	s.publishPromotions(promoted)
	return nil
}

// ProcessQueueTx promotes up to availableSpots waiting entries to timed
// offers, strictly in arrival order. The caller must hold the event row lock,
// which keeps concurrent triggers from jointly over-promoting. A scheduling
// failure skips that one entry instead of aborting the pass; an entry is never
// left offered without a scheduled expiration.
func (s *waitlistService) ProcessQueueTx(ctx context.Context, tx *gorm.DB, event *models.Event) ([]models.WaitlistEntry, error) {
	now := s.now()
	avail, err := s.availability(ctx, tx, event, now)
	if err != nil {
		return nil, err
	}
	if avail.AvailableSpots <= 0 {
		return nil, nil
	}

	waiting, err := s.entries.FindWaiting(ctx, tx, event.ID, avail.AvailableSpots)
	if err != nil {
		return nil, err
	}

	var promoted []models.WaitlistEntry
	expiresAt := now.Add(s.offerWindow)
	for _, entry := range waiting {
		if err := s.scheduler.ScheduleExpiry(ctx, entry.ID, event.ID, s.offerWindow); err != nil {
			slog.Error("schedule offer expiry failed, skipping promotion",
				"entry_id", entry.ID, "event_id", event.ID, "error", err)
			continue
		}
		if err := s.entries.SetOffered(ctx, tx, entry.ID, expiresAt); err != nil {
			return nil, err
		}
		entry.Status = models.StatusOffered
		entry.OfferExpiresAt = &expiresAt
		promoted = append(promoted, entry)
	}
	return promoted, nil
}

// Release lets an offer holder give their spot back early. End state and
// downstream effect are identical to an automatic expiration.
func (s *waitlistService) Release(ctx context.Context, entryID uint, userID string) error {
	stale, err := s.entries.FindByID(ctx, s.entries.GetDB(), entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOfferNotActive
		}
		return err
	}

	var promoted []models.WaitlistEntry

	err = s.txm.Do(ctx, func(tx *gorm.DB) error {
		event, err := s.events.FindByIDForUpdate(ctx, tx, stale.EventID)
		if err != nil {
			return ErrEventNotFound
		}

		entry, err := s.entries.FindByID(ctx, tx, entryID)
		if err != nil || entry.Status != models.StatusOffered {
			return ErrOfferNotActive
		}
		if entry.UserID != userID {
			return ErrOwnershipMismatch
		}

		if err := s.entries.SetStatus(ctx, tx, entryID, models.StatusExpired); err != nil {
			return err
		}

		promoted, err = s.ProcessQueueTx(ctx, tx, event)
		return err
	})
	if err != nil {
		return err
	}

	s.publishPromotions(promoted)
	return nil
}

// QueuePosition reports the user's place in line, or nil when the user has no
// live entry for the event.
func (s *waitlistService) QueuePosition(ctx context.Context, eventID uint, userID string) (*QueuePosition, error) {
	entry, err := s.entries.FindLiveByUserAndEvent(ctx, s.entries.GetDB(), userID, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ahead, err := s.entries.CountLiveAhead(ctx, entry)
	if err != nil {
		return nil, err
	}
	return &QueuePosition{Entry: entry, Position: ahead + 1}, nil
}

// SweepExpiredOffers expires any offered entry whose deadline passed without
// a delivered expiry task. Backstop for lost schedules; each entry goes
// through the same idempotent ExpireOffer path.
func (s *waitlistService) SweepExpiredOffers(ctx context.Context) error {
	stale, err := s.entries.FindStaleOffers(ctx, s.now())
	if err != nil {
		return err
	}
	for _, entry := range stale {
		if err := s.ExpireOffer(ctx, entry.ID, entry.EventID); err != nil {
			slog.Error("sweep: expire offer failed", "entry_id", entry.ID, "event_id", entry.EventID, "error", err)
		}
	}
	return nil
}

func (s *waitlistService) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		slog.Error("publish failed", "routing_key", routingKey, "error", err)
	}
}

func (s *waitlistService) publishPromotions(promoted []models.WaitlistEntry) {
	for i := range promoted {
		s.publish("waitlist.offered", &promoted[i])
	}
}
