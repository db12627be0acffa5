package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"canonreg/internal/registrant/models"
	"canonreg/pkg/platform/sentinel"
)

// InMemory keeps registrants in maps guarded by a RWMutex. It backs unit
// tests and local development; it intentionally favors clarity over
// performance.
type InMemory struct {
	mu      sync.RWMutex
	persons map[uuid.UUID]*models.Person
	orgs    map[uuid.UUID]*models.Organization
}

func NewInMemory() *InMemory {
	return &InMemory{
		persons: make(map[uuid.UUID]*models.Person),
		orgs:    make(map[uuid.UUID]*models.Organization),
	}
}

func (s *InMemory) CanonicalIDExists(_ context.Context, raw string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.takenLocked(raw), nil
}

// takenLocked scans both kinds; rejected records do not hold their slot.
func (s *InMemory) takenLocked(raw string) bool {
	for _, p := range s.persons {
		if p.CanonicalID.Raw == raw && p.Status != models.StatusRejected {
			return true
		}
	}
	for _, o := range s.orgs {
		if o.CanonicalID.Raw == raw && o.Status != models.StatusRejected {
			return true
		}
	}
	return false
}

func (s *InMemory) CreatePerson(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takenLocked(p.CanonicalID.Raw) {
		return sentinel.ErrConflict
	}
	cp := *p
	s.persons[p.ID] = &cp
	return nil
}

func (s *InMemory) CreateOrganization(_ context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takenLocked(o.CanonicalID.Raw) {
		return sentinel.ErrConflict
	}
	co := *o
	s.orgs[o.ID] = &co
	return nil
}

func (s *InMemory) FindPerson(_ context.Context, id uuid.UUID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.persons[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindOrganization(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orgs[id]; ok {
		co := *o
		return &co, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) UpdatePerson(_ context.Context, p *models.Person, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	cp.UpdatedAt = now
	s.persons[p.ID] = &cp
	return nil
}

func (s *InMemory) UpdateOrganization(_ context.Context, o *models.Organization, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; !ok {
		return sentinel.ErrNotFound
	}
	co := *o
	co.UpdatedAt = now
	s.orgs[o.ID] = &co
	return nil
}

func (s *InMemory) FindByCanonicalID(_ context.Context, raw string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.CanonicalID.Raw == raw {
			return p.Record(), nil
		}
	}
	for _, o := range s.orgs {
		if o.CanonicalID.Raw == raw {
			return o.Record(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListPending(_ context.Context, kind models.Kind) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.Record
	switch kind {
	case models.KindPerson:
		for _, p := range s.persons {
			if p.Status == models.StatusPending {
				records = append(records, p.Record())
			}
		}
	case models.KindOrganization:
		for _, o := range s.orgs {
			if o.Status == models.StatusPending {
				records = append(records, o.Record())
			}
		}
	}

	// Oldest request first, matching the admin review queue ordering.
	sort.Slice(records, func(i, j int) bool {
		return records[i].RequestedAt.Before(records[j].RequestedAt)
	})
	return records, nil
}

func (s *InMemory) CountByKind(_ context.Context, kind models.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case models.KindPerson:
		return len(s.persons), nil
	case models.KindOrganization:
		return len(s.orgs), nil
	}
	return 0, nil
}
