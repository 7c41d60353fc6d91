package models

import "time"

type Event struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	EventDate    time.Time `gorm:"not null" json:"event_date"`
	Price        int64     `gorm:"not null" json:"price"` // cents
	TotalTickets int       `gorm:"not null" json:"total_tickets"`
	OwnerID      string    `gorm:"not null;index" json:"owner_id"`
	IsCancelled  bool      `gorm:"not null;default:false" json:"is_cancelled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
