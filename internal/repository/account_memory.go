package repository

import (
	"context"
	"strings"
	"sync"

	"zylorb/internal/model"
)

// MemoryAccountRepository keeps accounts for the lifetime of the process. It
// is selected explicitly at startup and is never swapped in on failure.
type MemoryAccountRepository struct {
	mu         sync.RWMutex
	byID       map[string]model.Account
	byEmail    map[string]string
	byUsername map[string]string
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:       map[string]model.Account{},
		byEmail:    map[string]string{},
		byUsername: map[string]string{},
	}
}

func (r *MemoryAccountRepository) FindByID(_ context.Context, id string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return a, nil
}

func (r *MemoryAccountRepository) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalize(email)]
	r.mu.RUnlock()
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryAccountRepository) FindByUsername(ctx context.Context, username string) (model.Account, error) {
	r.mu.RLock()
	id, ok := r.byUsername[normalize(username)]
	r.mu.RUnlock()
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return r.FindByID(ctx, id)
}

// Insert checks and claims both unique keys under one lock.
func (r *MemoryAccountRepository) Insert(_ context.Context, a model.Account) error {
	email := normalize(a.Email)
	username := normalize(a.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID]; exists {
		return model.ErrDuplicateAccount
	}
	if _, exists := r.byEmail[email]; exists {
		return model.ErrDuplicateAccount
	}
	if _, exists := r.byUsername[username]; exists {
		return model.ErrDuplicateAccount
	}

	r.byID[a.ID] = a
	r.byEmail[email] = a.ID
	r.byUsername[username] = a.ID
	return nil
}

// Update replaces mutable profile fields; identity and credentials are kept.
func (r *MemoryAccountRepository) Update(_ context.Context, a model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[a.ID]
	if !ok {
		return model.ErrAccountNotFound
	}

	current.Avatar = a.Avatar
	current.Zone = a.Zone
	current.FollowersCount = a.FollowersCount
	current.PostsCount = a.PostsCount
	current.IsVerified = a.IsVerified
	current.UpdatedAt = a.UpdatedAt
	r.byID[a.ID] = current
	return nil
}

func (r *MemoryAccountRepository) Ping(context.Context) error { return nil }

func (r *MemoryAccountRepository) Backend() string { return "memory" }

func (r *MemoryAccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
