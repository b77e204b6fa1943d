// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/linnemanlabs/warden/internal/triage"
)

// DefaultCapacity bounds the number of plan records kept when New is
// given a non-positive capacity.
const DefaultCapacity = 10000

// Store holds the most recent plan records in memory. Suitable for
// dev/testing and single-instance deployments.
type Store struct {
	mu      sync.RWMutex
	records *lru.Cache[string, *triage.PlanRecord] // plan ID -> record
	latest  map[string]string                      // alert fingerprint -> newest plan ID
}

// New initializes a new in-memory Store holding at most capacity records.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{latest: make(map[string]string)}
	// the callback runs inside Put, which already holds mu
	records, err := lru.NewWithEvict(capacity, func(id string, r *triage.PlanRecord) {
		if s.latest[r.Fingerprint] == id {
			delete(s.latest, r.Fingerprint)
		}
	})
	if err != nil {
		panic(err)
	}
	s.records = records
	return s
}

// Get retrieves a plan record by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.PlanRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records.Peek(id)
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetByFingerprint retrieves the newest plan record for an alert
// fingerprint. Returns a copy.
func (s *Store) GetByFingerprint(_ context.Context, fp string) (*triage.PlanRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.latest[fp]
	if !ok {
		return nil, false, nil
	}
	r, ok := s.records.Peek(id)
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the plan record.
func (s *Store) Put(_ context.Context, r *triage.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records.Add(r.ID, &cp)
	s.latest[r.Fingerprint] = r.ID
	return nil
}

// Len returns the number of records held.
func (s *Store) Len() int {
	return s.records.Len()
}
