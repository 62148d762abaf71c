package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"remitdesk.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. It backs
// unit tests and DSN-less development runs; production uses the pg package.
type InMemory struct {
	mu         sync.RWMutex
	users      map[string]*User // id -> user
	byUsername map[string]string
	txs        []*Transaction
	audit      []*AuditRecord
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:      make(map[string]*User),
		byUsername: make(map[string]string),
	}
}

func (s *InMemory) Users() UserStore               { return (*memUsers)(s) }
func (s *InMemory) Transactions() TransactionStore { return (*memTxs)(s) }
func (s *InMemory) Audit() AuditStore              { return (*memAudit)(s) }

type memUsers InMemory

func (s *memUsers) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUsername[u.Username]; exists {
		return ErrDuplicateUsername
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *memUsers) List(ctx context.Context, scope Scope) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		if !scope.Matches(u.Region) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memUsers) Stats(ctx context.Context, scope Scope) (*UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roleCounts := map[string]int{}
	regionCounts := map[string]int{}
	total := 0
	for _, u := range s.users {
		if !scope.Matches(u.Region) {
			continue
		}
		roleCounts[u.Role]++
		regionCounts[u.Region]++
		total++
	}
	stats := &UserStats{TotalUsers: total}
	for _, role := range sortedKeys(roleCounts) {
		stats.RoleDistribution = append(stats.RoleDistribution, RoleCount{Role: role, Count: roleCounts[role]})
	}
	for _, region := range sortedKeys(regionCounts) {
		stats.RegionDistribution = append(stats.RegionDistribution, RegionCount{Region: region, Count: regionCounts[region]})
	}
	return stats, nil
}

type memTxs InMemory

func (s *memTxs) Create(ctx context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = ids.New()
	}
	if tx.Status == "" {
		tx.Status = StatusPending
	}
	tx.CreatedAt = time.Now().UTC()
	cp := *tx
	s.txs = append(s.txs, &cp)
	return nil
}

func (s *memTxs) List(ctx context.Context, scope Scope) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Transaction, 0, len(s.txs))
	// Newest first, matching the pg ordering.
	for i := len(s.txs) - 1; i >= 0; i-- {
		tx := s.txs[i]
		if !scope.Matches(tx.Region) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	return out, nil
}

type memAudit InMemory

func (s *memAudit) Append(ctx context.Context, rec *AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	rec.CreatedAt = time.Now().UTC()
	cp := *rec
	s.audit = append(s.audit, &cp)
	return nil
}

func (s *memAudit) List(ctx context.Context, scope Scope) ([]*AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*AuditRecord, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		rec := s.audit[i]
		if !scope.Unrestricted {
			// Audit entries scope by their acting principal's region.
			actor, ok := s.users[rec.PrincipalID]
			if !ok || actor.Region != scope.Region {
				continue
			}
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
