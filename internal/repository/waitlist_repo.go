package repository

import (
	"context"
	"time"

	"github.com/HelderMendes/events-tickets/internal/models"
	"gorm.io/gorm"
)

type WaitlistRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.WaitlistEntry) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.WaitlistEntry, error)
	// FindLiveByUserAndEvent returns the user's non-expired entry for the
	// event. Purchased entries count: one ticket per user per event, a user
	// may only re-join after their entry expires.
	FindLiveByUserAndEvent(ctx context.Context, tx *gorm.DB, userID string, eventID uint) (*models.WaitlistEntry, error)
	CountActiveOffers(ctx context.Context, tx *gorm.DB, eventID uint, now time.Time) (int64, error)
	// FindWaiting returns up to limit waiting entries for the event in strict
	// arrival order (creation time, then id).
	FindWaiting(ctx context.Context, tx *gorm.DB, eventID uint, limit int) ([]models.WaitlistEntry, error)
	SetOffered(ctx context.Context, tx *gorm.DB, entryID uint, expiresAt time.Time) error
	SetStatus(ctx context.Context, tx *gorm.DB, entryID uint, status models.WaitlistStatus) error
	CountLiveAhead(ctx context.Context, entry *models.WaitlistEntry) (int64, error)
	FindStaleOffers(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error)
	DeleteByEvent(ctx context.Context, tx *gorm.DB, eventID uint) error
	GetDB() *gorm.DB
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (r *waitlistRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *waitlistRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.WaitlistEntry) error {
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *waitlistRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	if err := tx.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *waitlistRepository) FindLiveByUserAndEvent(ctx context.Context, tx *gorm.DB, userID string, eventID uint) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := tx.WithContext(ctx).
		Where("user_id = ? AND event_id = ? AND status <> ?", userID, eventID, models.StatusExpired).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountActiveOffers counts offered entries whose deadline is still ahead of
// now. Entries whose timer elapsed but were not swept yet are excluded, so the
// count never trusts stored status alone.
func (r *waitlistRepository) CountActiveOffers(ctx context.Context, tx *gorm.DB, eventID uint, now time.Time) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("event_id = ? AND status = ? AND offer_expires_at > ?", eventID, models.StatusOffered, now).
		Count(&count).Error
	return count, err
}

func (r *waitlistRepository) FindWaiting(ctx context.Context, tx *gorm.DB, eventID uint, limit int) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := tx.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, models.StatusWaiting).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *waitlistRepository) SetOffered(ctx context.Context, tx *gorm.DB, entryID uint, expiresAt time.Time) error {
	return tx.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]any{
			"status":           models.StatusOffered,
			"offer_expires_at": expiresAt,
		}).Error
}

func (r *waitlistRepository) SetStatus(ctx context.Context, tx *gorm.DB, entryID uint, status models.WaitlistStatus) error {
	return tx.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("id = ?", entryID).
		Update("status", status).Error
}

// CountLiveAhead counts live entries for the same event that joined earlier
// than the given one. Used for queue-position display only.
func (r *waitlistRepository) CountLiveAhead(ctx context.Context, entry *models.WaitlistEntry) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("event_id = ? AND status IN ?", entry.EventID, []models.WaitlistStatus{models.StatusWaiting, models.StatusOffered}).
		Where("created_at < ? OR (created_at = ? AND id < ?)", entry.CreatedAt, entry.CreatedAt, entry.ID).
		Count(&count).Error
	return count, err
}

// FindStaleOffers returns offered entries whose deadline already passed, for
// the periodic sweep that covers lost expiry tasks.
func (r *waitlistRepository) FindStaleOffers(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND offer_expires_at <= ?", models.StatusOffered, now).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *waitlistRepository) DeleteByEvent(ctx context.Context, tx *gorm.DB, eventID uint) error {
	return tx.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&models.WaitlistEntry{}).Error
}
