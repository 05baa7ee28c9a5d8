package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
)

// MemoryStore backs every memory repository. It is used by STORE_DRIVER=memory
// and by tests.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[string]*entity.Account
	trips      map[string]*entity.Trip
	quarantine map[string]*entity.QuarantineEntry
	uploadLogs []*entity.UploadLog
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]*entity.Account),
		trips:      make(map[string]*entity.Trip),
		quarantine: make(map[string]*entity.QuarantineEntry),
	}
}

// PutAccount adds or replaces an account. Linked emails are lowercased.
func (s *MemoryStore) PutAccount(account *entity.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *account
	stored.LinkedEmails = account.NormalizedLinkedEmails()
	s.accounts[account.ID] = &stored
}

// SeedAccountsYAML loads accounts for a memory-backed deployment and returns
// how many were added
func (s *MemoryStore) SeedAccountsYAML(data []byte) (int, error) {
	return SeedAccounts(context.Background(), s.Accounts(), data)
}

// Trips returns a copy of every stored trip
func (s *MemoryStore) Trips() []*entity.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Trip, 0, len(s.trips))
	for _, t := range s.trips {
		out = append(out, cloneTrip(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}

// Accounts returns an AccountRepository over the store
func (s *MemoryStore) Accounts() repository.AccountRepository {
	return &memoryAccountRepository{store: s}
}

// TripRepository returns a TripRepository over the store
func (s *MemoryStore) TripRepository() repository.TripRepository {
	return &memoryTripRepository{store: s}
}

// QuarantineRepository returns a QuarantineRepository over the store
func (s *MemoryStore) QuarantineRepository() repository.QuarantineRepository {
	return &memoryQuarantineRepository{store: s}
}

// UploadLogRepository returns an UploadLogRepository over the store
func (s *MemoryStore) UploadLogRepository() repository.UploadLogRepository {
	return &memoryUploadLogRepository{store: s}
}

type memoryAccountRepository struct {
	store *MemoryStore
}

func (r *memoryAccountRepository) FindByLinkedEmail(ctx context.Context, email string) (*entity.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	email = entity.NormalizeEmail(email)
	ids := make([]string, 0, len(r.store.accounts))
	for id := range r.store.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		account := r.store.accounts[id]
		for _, linked := range account.LinkedEmails {
			if linked == email {
				copied := *account
				return &copied, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	account, ok := r.store.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *memoryAccountRepository) Upsert(ctx context.Context, account *entity.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account id is required")
	}
	r.store.PutAccount(account)
	return nil
}

type memoryTripRepository struct {
	store *MemoryStore
}

func (r *memoryTripRepository) FindByID(ctx context.Context, accountID, tripID string) (*entity.Trip, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	trip, ok := r.store.trips[entity.TripDocID(accountID, tripID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTrip(trip), nil
}

func (r *memoryTripRepository) Save(ctx context.Context, trip *entity.Trip, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if trip.DocID == "" {
		trip.DocID = entity.TripDocID(trip.AccountID, trip.ID)
	}

	var current int64
	if stored, ok := r.store.trips[trip.DocID]; ok {
		current = stored.Version
	}
	if current != expectedVersion {
		return repository.ErrVersionConflict
	}

	trip.Version = expectedVersion + 1
	r.store.trips[trip.DocID] = cloneTrip(trip)
	return nil
}

type memoryQuarantineRepository struct {
	store *MemoryStore
}

func (r *memoryQuarantineRepository) Save(ctx context.Context, entry *entity.QuarantineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := *entry
	if stored.Status == "" {
		stored.Status = entity.QuarantinePending
	}
	r.store.quarantine[entry.ID] = &stored
	return nil
}

func (r *memoryQuarantineRepository) FindByID(ctx context.Context, id string) (*entity.QuarantineEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entry, ok := r.store.quarantine[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *memoryQuarantineRepository) List(ctx context.Context, filter entity.QuarantineFilter) ([]*entity.QuarantineEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.QuarantineEntry
	for _, e := range r.store.quarantine {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.AccountID != "" && e.AccountID != filter.AccountID {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryQuarantineRepository) Claim(ctx context.Context, id, operator string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.quarantine[id]
	if !ok {
		return repository.ErrNotFound
	}
	if entry.Status == entity.QuarantineForcedImport {
		return repository.ErrAlreadyForced
	}
	if entry.ClaimedBy != "" && entry.ClaimedAt != nil && at.Sub(*entry.ClaimedAt) < claimTTL {
		return repository.ErrReplayInProgress
	}
	entry.ClaimedBy = operator
	claimedAt := at
	entry.ClaimedAt = &claimedAt
	return nil
}

func (r *memoryQuarantineRepository) Release(ctx context.Context, id, operator string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.quarantine[id]
	if !ok {
		return repository.ErrNotFound
	}
	if entry.Status == entity.QuarantinePending && entry.ClaimedBy == operator {
		entry.ClaimedBy = ""
		entry.ClaimedAt = nil
	}
	return nil
}

func (r *memoryQuarantineRepository) MarkForced(ctx context.Context, id, tripID, operator string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.quarantine[id]
	if !ok {
		return repository.ErrNotFound
	}
	if entry.Status == entity.QuarantineForcedImport {
		return repository.ErrAlreadyForced
	}
	if entry.ClaimedBy != operator {
		return repository.ErrReplayInProgress
	}

	forcedAt := at
	entry.Status = entity.QuarantineForcedImport
	entry.TripID = tripID
	entry.ForcedAt = &forcedAt
	entry.ForcedBy = operator
	entry.ClaimedBy = ""
	entry.ClaimedAt = nil
	return nil
}

type memoryUploadLogRepository struct {
	store *MemoryStore
}

func (r *memoryUploadLogRepository) Append(ctx context.Context, log *entity.UploadLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *log
	r.store.uploadLogs = append(r.store.uploadLogs, &copied)
	return nil
}

func (r *memoryUploadLogRepository) ExistsBySourceRef(ctx context.Context, sourceRef string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, l := range r.store.uploadLogs {
		if l.SourceRef == sourceRef && l.Settled() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUploadLogRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*entity.UploadLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}

	var out []*entity.UploadLog
	for i := len(r.store.uploadLogs) - 1; i >= 0 && len(out) < limit; i-- {
		l := r.store.uploadLogs[i]
		if accountID != "" && l.AccountID != accountID {
			continue
		}
		copied := *l
		out = append(out, &copied)
	}
	return out, nil
}

func cloneTrip(t *entity.Trip) *entity.Trip {
	c := *t
	c.Flights = append([]entity.Flight(nil), t.Flights...)
	c.Hotels = append([]entity.Hotel(nil), t.Hotels...)
	c.Travelers = append([]entity.Traveler(nil), t.Travelers...)
	c.Credits = append([]entity.TravelCredit(nil), t.Credits...)
	c.DataWarnings = append([]string(nil), t.DataWarnings...)
	if t.Cancellation != nil {
		cancellation := *t.Cancellation
		c.Cancellation = &cancellation
	}
	return &c
}
