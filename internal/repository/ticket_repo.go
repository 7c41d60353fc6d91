package repository

import (
	"context"

	"github.com/HelderMendes/events-tickets/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error
	FindByID(ctx context.Context, id uint) (*models.Ticket, error)
	// CountCommitted counts valid and used tickets; those occupy capacity
	// permanently.
	CountCommitted(ctx context.Context, tx *gorm.DB, eventID uint) (int64, error)
	// CountAll counts tickets in every status. Event cancellation is blocked
	// while any ticket row exists.
	CountAll(ctx context.Context, tx *gorm.DB, eventID uint) (int64, error)
	FindByUser(ctx context.Context, userID string) ([]models.Ticket, error)
	FindByEvent(ctx context.Context, eventID uint) ([]models.Ticket, error)
	FindValidByEvent(ctx context.Context, tx *gorm.DB, eventID uint) ([]models.Ticket, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, ticketID uint, status models.TicketStatus) error
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	return tx.WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) CountCommitted(ctx context.Context, tx *gorm.DB, eventID uint) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("event_id = ? AND status IN ?", eventID, []models.TicketStatus{models.TicketValid, models.TicketUsed}).
		Count(&count).Error
	return count, err
}

func (r *ticketRepository) CountAll(ctx context.Context, tx *gorm.DB, eventID uint) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}

func (r *ticketRepository) FindByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Event").
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) FindByEvent(ctx context.Context, eventID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) FindValidByEvent(ctx context.Context, tx *gorm.DB, eventID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := tx.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, models.TicketValid).
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, ticketID uint, status models.TicketStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", ticketID).
		Update("status", status).Error
}
