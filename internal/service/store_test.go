package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HelderMendes/events-tickets/internal/models"
	"gorm.io/gorm"
)

// In-memory store backing the service tests. One memStore exposes the three
// repository interfaces through thin views; the fake TxManager serialises
// transactions with its own mutex, standing in for the event row lock.

type memStore struct {
	mu       sync.Mutex
	events   map[uint]*models.Event
	entries  map[uint]*models.WaitlistEntry
	tickets  map[uint]*models.Ticket
	nextID   uint
	deleteds int // waitlist rows removed by event cancellation
}

func newMemStore() *memStore {
	return &memStore{
		events:  make(map[uint]*models.Event),
		entries: make(map[uint]*models.WaitlistEntry),
		tickets: make(map[uint]*models.Ticket),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) addEvent(event *models.Event) *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == 0 {
		event.ID = s.id()
	}
	s.events[event.ID] = event
	return event
}

func (s *memStore) entry(id uint) *models.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

func (s *memStore) entriesByStatus(eventID uint, status models.WaitlistStatus) []*models.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.WaitlistEntry
	for _, e := range s.entries {
		if e.EventID == eventID && e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) ticketCount(eventID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickets {
		if t.EventID == eventID {
			n++
		}
	}
	return n
}

// --- TxManager ---

type memTxManager struct {
	mu sync.Mutex
}

func (m *memTxManager) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(nil)
}

// --- EventRepository view ---

type memEventRepo struct{ s *memStore }

func (r *memEventRepo) Create(ctx context.Context, event *models.Event) error {
	r.s.addEvent(event)
	return nil
}

func (r *memEventRepo) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *memEventRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error) {
	return r.FindByID(ctx, id)
}

func (r *memEventRepo) FindActive(ctx context.Context) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Event
	for _, e := range r.s.events {
		if !e.IsCancelled {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memEventRepo) FindByOwner(ctx context.Context, ownerID string) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Event
	for _, e := range r.s.events {
		if e.OwnerID == ownerID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memEventRepo) Search(ctx context.Context, term string) ([]models.Event, error) {
	return r.FindActive(ctx)
}

func (r *memEventRepo) Update(ctx context.Context, tx *gorm.DB, event *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *event
	r.s.events[event.ID] = &copied
	return nil
}

func (r *memEventRepo) MarkCancelled(ctx context.Context, tx *gorm.DB, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.events[id]; ok {
		e.IsCancelled = true
	}
	return nil
}

// --- WaitlistRepository view ---

type memWaitlistRepo struct{ s *memStore }

func (r *memWaitlistRepo) GetDB() *gorm.DB { return nil }

func (r *memWaitlistRepo) Create(ctx context.Context, tx *gorm.DB, entry *models.WaitlistEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	copied := *entry
	r.s.entries[entry.ID] = &copied
	return nil
}

func (r *memWaitlistRepo) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry, ok := r.s.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *memWaitlistRepo) FindLiveByUserAndEvent(ctx context.Context, tx *gorm.DB, userID string, eventID uint) (*models.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.UserID == userID && e.EventID == eventID && e.Status != models.StatusExpired {
			copied := *e
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memWaitlistRepo) CountActiveOffers(ctx context.Context, tx *gorm.DB, eventID uint, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.entries {
		if e.EventID == eventID && e.Status == models.StatusOffered &&
			e.OfferExpiresAt != nil && e.OfferExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r *memWaitlistRepo) FindWaiting(ctx context.Context, tx *gorm.DB, eventID uint, limit int) ([]models.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range r.s.entries {
		if e.EventID == eventID && e.Status == models.StatusWaiting {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memWaitlistRepo) SetOffered(ctx context.Context, tx *gorm.DB, entryID uint, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.entries[entryID]; ok {
		e.Status = models.StatusOffered
		t := expiresAt
		e.OfferExpiresAt = &t
	}
	return nil
}

func (r *memWaitlistRepo) SetStatus(ctx context.Context, tx *gorm.DB, entryID uint, status models.WaitlistStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.entries[entryID]; ok {
		e.Status = status
	}
	return nil
}

func (r *memWaitlistRepo) CountLiveAhead(ctx context.Context, entry *models.WaitlistEntry) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.entries {
		if e.EventID != entry.EventID || e.ID == entry.ID {
			continue
		}
		if e.Status != models.StatusWaiting && e.Status != models.StatusOffered {
			continue
		}
		if e.CreatedAt.Before(entry.CreatedAt) ||
			(e.CreatedAt.Equal(entry.CreatedAt) && e.ID < entry.ID) {
			n++
		}
	}
	return n, nil
}

func (r *memWaitlistRepo) FindStaleOffers(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range r.s.entries {
		if e.Status == models.StatusOffered && e.OfferExpiresAt != nil && !e.OfferExpiresAt.After(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memWaitlistRepo) DeleteByEvent(ctx context.Context, tx *gorm.DB, eventID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, e := range r.s.entries {
		if e.EventID == eventID {
			delete(r.s.entries, id)
			r.s.deleteds++
		}
	}
	return nil
}

// --- TicketRepository view ---

type memTicketRepo struct{ s *memStore }

func (r *memTicketRepo) Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = r.s.id()
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) FindByID(ctx context.Context, id uint) (*models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) CountCommitted(ctx context.Context, tx *gorm.DB, eventID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tickets {
		if t.EventID == eventID && t.Committed() {
			n++
		}
	}
	return n, nil
}

func (r *memTicketRepo) CountAll(ctx context.Context, tx *gorm.DB, eventID uint) (int64, error) {
	return int64(r.s.ticketCount(eventID)), nil
}

func (r *memTicketRepo) FindByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Ticket
	for _, t := range r.s.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTicketRepo) FindByEvent(ctx context.Context, eventID uint) ([]models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Ticket
	for _, t := range r.s.tickets {
		if t.EventID == eventID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTicketRepo) FindValidByEvent(ctx context.Context, tx *gorm.DB, eventID uint) ([]models.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Ticket
	for _, t := range r.s.tickets {
		if t.EventID == eventID && t.Status == models.TicketValid {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTicketRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, ticketID uint, status models.TicketStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tickets[ticketID]; ok {
		t.Status = status
	}
	return nil
}

// --- Scheduler, publisher, limiter fakes ---

type scheduledExpiry struct {
	entryID uint
	eventID uint
	delay   time.Duration
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduledExpiry
	fail  func(entryID uint) error
}

func (f *fakeScheduler) ScheduleExpiry(ctx context.Context, entryID, eventID uint, delay time.Duration) error {
	if f.fail != nil {
		if err := f.fail(entryID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduledExpiry{entryID: entryID, eventID: eventID, delay: delay})
	return nil
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, routingKey)
	return nil
}

func (f *fakePublisher) published(routingKey string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.events {
		if k == routingKey {
			n++
		}
	}
	return n
}

type fakeLimiter struct {
	allow bool
}

func (f *fakeLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return f.allow, nil
}

// --- Fixture ---

type fixture struct {
	store     *memStore
	scheduler *fakeScheduler
	publisher *fakePublisher
	waitlist  *waitlistService
	tickets   TicketService
	events    EventService
	now       time.Time
}

func newFixture() *fixture {
	store := newMemStore()
	scheduler := &fakeScheduler{}
	publisher := &fakePublisher{}
	txm := &memTxManager{}

	eventRepo := &memEventRepo{s: store}
	waitlistRepo := &memWaitlistRepo{s: store}
	ticketRepo := &memTicketRepo{s: store}

	waitlist := NewWaitlistService(
		waitlistRepo, eventRepo, ticketRepo, txm, scheduler, publisher, nil, 30*time.Minute,
	).(*waitlistService)

	f := &fixture{
		store:     store,
		scheduler: scheduler,
		publisher: publisher,
		waitlist:  waitlist,
		now:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	waitlist.now = func() time.Time { return f.now }

	tickets := NewTicketService(ticketRepo, waitlistRepo, eventRepo, txm, waitlist, publisher).(*ticketService)
	tickets.now = func() time.Time { return f.now }
	f.tickets = tickets

	f.events = NewEventService(eventRepo, ticketRepo, waitlistRepo, txm, publisher)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) addEvent(totalTickets int) *models.Event {
	return f.store.addEvent(&models.Event{
		Name:         "Concert",
		TotalTickets: totalTickets,
		OwnerID:      "seller-1",
		EventDate:    f.now.Add(30 * 24 * time.Hour),
		Price:        5000,
	})
}
