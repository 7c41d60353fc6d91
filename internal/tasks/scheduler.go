package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// OfferScheduler enqueues delayed expire-offer tasks. Implements
// service.OfferScheduler.
type OfferScheduler struct {
	client *asynq.Client
}

func NewOfferScheduler(client *asynq.Client) *OfferScheduler {
	return &OfferScheduler{client: client}
}

func (s *OfferScheduler) ScheduleExpiry(ctx context.Context, entryID, eventID uint, delay time.Duration) error {
	payload, err := json.Marshal(ExpireOfferPayload{WaitlistEntryID: entryID, EventID: eventID})
	if err != nil {
		return fmt.Errorf("marshal expire payload: %w", err)
	}
	task := asynq.NewTask(TypeExpireOffer, payload)
	if _, err := s.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.Queue("critical")); err != nil {
		return fmt.Errorf("enqueue expire task: %w", err)
	}
	return nil
}
