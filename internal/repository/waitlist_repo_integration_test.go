//go:build integration

package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/HelderMendes/events-tickets/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestEvent(t *testing.T, totalTickets int) *models.Event {
	t.Helper()
	event := &models.Event{
		Name:         "Integration Event",
		TotalTickets: totalTickets,
		OwnerID:      "seller-1",
		EventDate:    time.Now().Add(30 * 24 * time.Hour),
		Price:        5000,
	}
	require.NoError(t, testDB.Create(event).Error)
	return event
}

// The partial unique index allows at most one non-expired entry per
// (event, user); an expired entry frees the pair, a purchased one does not.
func TestLiveEntryIndex(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 10)
	repo := NewWaitlistRepository(testDB)

	entry := &models.WaitlistEntry{EventID: event.ID, UserID: "user-a", Status: models.StatusWaiting}
	require.NoError(t, repo.Create(t.Context(), testDB, entry))

	dup := &models.WaitlistEntry{EventID: event.ID, UserID: "user-a", Status: models.StatusWaiting}
	assert.Error(t, repo.Create(t.Context(), testDB, dup))

	require.NoError(t, repo.SetStatus(t.Context(), testDB, entry.ID, models.StatusPurchased))
	dup = &models.WaitlistEntry{EventID: event.ID, UserID: "user-a", Status: models.StatusWaiting}
	assert.Error(t, repo.Create(t.Context(), testDB, dup),
		"purchased entry must still block a new join")

	require.NoError(t, repo.SetStatus(t.Context(), testDB, entry.ID, models.StatusExpired))
	again := &models.WaitlistEntry{EventID: event.ID, UserID: "user-a", Status: models.StatusWaiting}
	assert.NoError(t, repo.Create(t.Context(), testDB, again))
}

func TestFindWaitingOrder(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 10)
	repo := NewWaitlistRepository(testDB)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := &models.WaitlistEntry{
			EventID:   event.ID,
			UserID:    fmt.Sprintf("user-%d", i),
			Status:    models.StatusWaiting,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(t.Context(), testDB, entry))
	}

	waiting, err := repo.FindWaiting(t.Context(), testDB, event.ID, 3)
	require.NoError(t, err)
	require.Len(t, waiting, 3)
	assert.Equal(t, "user-0", waiting[0].UserID)
	assert.Equal(t, "user-1", waiting[1].UserID)
	assert.Equal(t, "user-2", waiting[2].UserID)
}

func TestCountActiveOffersDeadlineCutoff(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 10)
	repo := NewWaitlistRepository(testDB)

	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	live := &models.WaitlistEntry{EventID: event.ID, UserID: "user-live", Status: models.StatusOffered, OfferExpiresAt: &future}
	lapsed := &models.WaitlistEntry{EventID: event.ID, UserID: "user-lapsed", Status: models.StatusOffered, OfferExpiresAt: &past}
	require.NoError(t, repo.Create(t.Context(), testDB, live))
	require.NoError(t, repo.Create(t.Context(), testDB, lapsed))

	count, err := repo.CountActiveOffers(t.Context(), testDB, event.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "lapsed but unswept offers must not be counted")

	stale, err := repo.FindStaleOffers(t.Context(), now)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "user-lapsed", stale[0].UserID)
}

func TestRowLockSerialisesCapacityDecisions(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 1)
	events := NewEventRepository(testDB)
	entries := NewWaitlistRepository(testDB)
	txm := NewTxManager(testDB)

	// Two transactions race on the last spot; the event row lock forces the
	// loser to see the winner's committed entry.
	users := []string{"user-a", "user-b"}
	results := make(chan error, len(users))
	for _, user := range users {
		go func(user string) {
			results <- txm.Do(t.Context(), func(tx *gorm.DB) error {
				locked, err := events.FindByIDForUpdate(t.Context(), tx, event.ID)
				if err != nil {
					return err
				}
				var offered int64
				if err := tx.Model(&models.WaitlistEntry{}).
					Where("event_id = ? AND status = ?", locked.ID, models.StatusOffered).
					Count(&offered).Error; err != nil {
					return err
				}
				if offered >= int64(locked.TotalTickets) {
					return fmt.Errorf("full")
				}
				return entries.Create(t.Context(), tx, &models.WaitlistEntry{
					EventID: locked.ID, UserID: user, Status: models.StatusOffered,
				})
			})
		}(user)
	}

	var failures int
	for range users {
		if err := <-results; err != nil {
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the two racers should find the event full")

	var offered int64
	testDB.Model(&models.WaitlistEntry{}).
		Where("event_id = ? AND status = ?", event.ID, models.StatusOffered).
		Count(&offered)
	assert.Equal(t, int64(1), offered)
}
