package models

import "time"

type WaitlistStatus string

const (
	StatusWaiting   WaitlistStatus = "waiting"
	StatusOffered   WaitlistStatus = "offered"
	StatusPurchased WaitlistStatus = "purchased"
	StatusExpired   WaitlistStatus = "expired"
)

// WaitlistEntry is one user's place in an event's admission queue. At most one
// non-expired entry may exist per (event, user) pair; the partial unique index
// created in pkg/database enforces this at the store level.
type WaitlistEntry struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	EventID        uint           `gorm:"not null;index:idx_waitlist_event_status" json:"event_id"`
	UserID         string         `gorm:"not null" json:"user_id"`
	Status         WaitlistStatus `gorm:"type:varchar(20);not null;default:'waiting';index:idx_waitlist_event_status" json:"status"`
	OfferExpiresAt *time.Time     `json:"offer_expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

// IsLive reports whether the entry still occupies a place in the queue.
func (w *WaitlistEntry) IsLive() bool {
	return w.Status == StatusWaiting || w.Status == StatusOffered
}

// OfferActive reports whether the entry holds an offer that has not yet
// passed its deadline. Stored status alone is not trusted: an offered entry
// whose timer elapsed but has not been swept yet does not count.
func (w *WaitlistEntry) OfferActive(now time.Time) bool {
	return w.Status == StatusOffered && w.OfferExpiresAt != nil && w.OfferExpiresAt.After(now)
}
