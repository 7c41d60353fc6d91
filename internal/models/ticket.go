package models

import "time"

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketRefunded  TicketStatus = "refunded"
	TicketCancelled TicketStatus = "cancelled"
)

// Ticket is a committed purchase. Valid and used tickets count against event
// capacity permanently; refunded and cancelled ones do not.
type Ticket struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Code             string       `gorm:"not null;uniqueIndex" json:"code"`
	EventID          uint         `gorm:"not null;index" json:"event_id"`
	UserID           string       `gorm:"not null;index" json:"user_id"`
	Status           TicketStatus `gorm:"type:varchar(20);not null;default:'valid'" json:"status"`
	PaymentReference string       `gorm:"not null" json:"payment_reference"`
	Amount           int64        `gorm:"not null" json:"amount"` // cents
	PurchasedAt      time.Time    `gorm:"not null" json:"purchased_at"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

// Committed reports whether the ticket counts against capacity.
func (t *Ticket) Committed() bool {
	return t.Status == TicketValid || t.Status == TicketUsed
}
