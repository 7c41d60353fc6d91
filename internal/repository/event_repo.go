package repository

import (
	"context"
	"fmt"

	"github.com/HelderMendes/events-tickets/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error)
	FindActive(ctx context.Context) ([]models.Event, error)
	FindByOwner(ctx context.Context, ownerID string) ([]models.Event, error)
	Search(ctx context.Context, term string) ([]models.Event, error)
	Update(ctx context.Context, tx *gorm.DB, event *models.Event) error
	MarkCancelled(ctx context.Context, tx *gorm.DB, id uint) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByIDForUpdate acquires a row-level lock on the event within the given
// transaction. Every operation that reads capacity and then writes a decision
// goes through this lock, which serialises concurrent attempts per event.
func (r *eventRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error) {
	var event models.Event
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindActive(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).
		Where("is_cancelled = ?", false).
		Order("event_date ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) FindByOwner(ctx context.Context, ownerID string) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("event_date ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Search(ctx context.Context, term string) ([]models.Event, error) {
	pattern := fmt.Sprintf("%%%s%%", term)
	var events []models.Event
	if err := r.db.WithContext(ctx).
		Where("is_cancelled = ?", false).
		Where("name ILIKE ? OR description ILIKE ? OR location ILIKE ?", pattern, pattern, pattern).
		Order("event_date ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, tx *gorm.DB, event *models.Event) error {
	return tx.WithContext(ctx).Save(event).Error
}

func (r *eventRepository) MarkCancelled(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("is_cancelled", true).Error
}
