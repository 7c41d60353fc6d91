// Package tasks wires the waitlist engine to asynq: delayed offer-expiration
// tasks plus a periodic sweep that backstops lost schedules.
package tasks

import (
	"context"
	"encoding/json"
	"log"

	"github.com/HelderMendes/events-tickets/internal/service"
	"github.com/hibiken/asynq"
)

const (
	TypeExpireOffer = "offer:expire"
	TypeOfferSweep  = "offer:sweep"
)

type ExpireOfferPayload struct {
	WaitlistEntryID uint `json:"waitlist_entry_id"`
	EventID         uint `json:"event_id"`
}

type Handlers struct {
	waitlist service.WaitlistService
}

func NewHandlers(waitlist service.WaitlistService) *Handlers {
	return &Handlers{waitlist: waitlist}
}

// HandleExpireOffer is the delayed callback for a single offer. Delivery is
// at-least-once; the service call is a no-op for anything already resolved.
func (h *Handlers) HandleExpireOffer(ctx context.Context, t *asynq.Task) error {
	var payload ExpireOfferPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	return h.waitlist.ExpireOffer(ctx, payload.WaitlistEntryID, payload.EventID)
}

func (h *Handlers) HandleOfferSweep(ctx context.Context, t *asynq.Task) error {
	return h.waitlist.SweepExpiredOffers(ctx)
}

// StartServer runs the asynq worker and the cron scheduler for the sweep.
// Blocks; run in a goroutine.
func StartServer(redisOpt asynq.RedisClientOpt, handlers *Handlers) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpireOffer, handlers.HandleExpireOffer)
	mux.HandleFunc(TypeOfferSweep, handlers.HandleOfferSweep)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("*/1 * * * *", asynq.NewTask(TypeOfferSweep, nil), asynq.Queue("low")); err != nil {
		log.Fatal("failed to register offer sweep:", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal("scheduler failed to start:", err)
		}
	}()

	if err := srv.Run(mux); err != nil {
		log.Fatal("asynq server failed to start:", err)
	}
}
