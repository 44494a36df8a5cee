// Package memory provides an in-process Repository for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/pushups/internal/domain"
)

// Repository stores users and their ledgers in memory.
type Repository struct {
	mu      sync.RWMutex
	users   map[int64]domain.User
	records map[int64]map[string]domain.DailyActivityRecord
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		users:   make(map[int64]domain.User),
		records: make(map[int64]map[string]domain.DailyActivityRecord),
	}
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func cloneUser(u domain.User) *domain.User {
	if u.LastActivityDate != nil {
		last := *u.LastActivityDate
		u.LastActivityDate = &last
	}
	return &u
}

// GetUser implements domain.Repository.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(user), nil
}

// SaveUser implements domain.Repository.
func (r *Repository) SaveUser(ctx context.Context, candidate domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[candidate.ID]; ok {
		existing.Name = candidate.Name
		existing.UpdatedAt = candidate.UpdatedAt
		r.users[candidate.ID] = existing
		return cloneUser(existing), nil
	}
	r.users[candidate.ID] = *cloneUser(candidate)
	return cloneUser(candidate), nil
}

// UpdateUserLevel implements domain.Repository.
func (r *Repository) UpdateUserLevel(ctx context.Context, id int64, level, goal int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Level = level
	user.DailyGoal = goal
	user.UpdatedAt = updatedAt
	r.users[id] = user
	return nil
}

// RecordActivity implements domain.Repository. The transition sees a consistent snapshot and its
// result replaces user and record together.
func (r *Repository) RecordActivity(ctx context.Context, id int64, day time.Time, apply domain.ActivityTransition) (*domain.ActivityOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	ledger := r.records[id]
	state := domain.LedgerState{User: *cloneUser(user)}
	key := dateKey(day)
	if rec, exists := ledger[key]; exists {
		state.Today = &rec
	}
	for _, rec := range ledger {
		if rec.Amount > 0 {
			state.ActiveDays++
		}
	}

	outcome, err := apply(state)
	if err != nil {
		return nil, err
	}

	if ledger == nil {
		ledger = make(map[string]domain.DailyActivityRecord)
		r.records[id] = ledger
	}
	ledger[key] = outcome.Record
	r.users[id] = *cloneUser(outcome.User)
	return &outcome, nil
}

// TodayAmount implements domain.Repository.
func (r *Repository) TodayAmount(ctx context.Context, id int64, day time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.records[id][dateKey(day)].Amount, nil
}

// Summary implements domain.Repository.
func (r *Repository) Summary(ctx context.Context, id int64, today time.Time) (domain.ActivitySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]domain.DailyActivityRecord, 0, len(r.records[id]))
	for _, rec := range r.records[id] {
		records = append(records, rec)
	}
	return domain.Summarize(records, today), nil
}

// ActiveUsers implements domain.Repository.
func (r *Repository) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		if user.Active() {
			out = append(out, *cloneUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRecords implements domain.Repository.
func (r *Repository) ListRecords(ctx context.Context, id int64, cursor *domain.Cursor, limit int) ([]domain.DailyActivityRecord, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.DailyActivityRecord, 0, len(r.records[id]))
	for _, rec := range r.records[id] {
		if cursor != nil && !before(rec, *cursor) {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date.Equal(all[j].Date) {
			return all[i].ID > all[j].ID
		}
		return all[i].Date.After(all[j].Date)
	})

	if limit <= 0 || limit > len(all) {
		return all, nil, nil
	}
	page := all[:limit]
	last := page[len(page)-1]
	return page, &domain.Cursor{Date: last.Date, ID: last.ID}, nil
}

// before reports whether rec sorts after the cursor position in newest-first order.
func before(rec domain.DailyActivityRecord, c domain.Cursor) bool {
	if rec.Date.Equal(c.Date) {
		return rec.ID < c.ID
	}
	return rec.Date.Before(c.Date)
}
