package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"canonreg/internal/migration/models"
	registrant "canonreg/internal/registrant/models"
	"canonreg/pkg/platform/sentinel"
)

// InMemory backs engine unit tests: a fixed legacy dataset on the read side,
// maps keyed by source id on the write side.
type InMemory struct {
	mu      sync.RWMutex
	ready   bool
	persons []*registrant.Person
	orgs    []*registrant.Organization
	users   map[uuid.UUID]*models.User
	orgsV2  map[uuid.UUID]*models.OrganizationV2
}

// NewInMemory constructs an in-memory migration store over the given legacy
// dataset.
func NewInMemory(persons []*registrant.Person, orgs []*registrant.Organization) *InMemory {
	return &InMemory{
		persons: persons,
		orgs:    orgs,
		users:   make(map[uuid.UUID]*models.User),
		orgsV2:  make(map[uuid.UUID]*models.OrganizationV2),
	}
}

func (s *InMemory) EnsureTargetSchema(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return nil
}

func (s *InMemory) ListLegacyPersons(context.Context) ([]*registrant.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*registrant.Person, len(s.persons))
	copy(out, s.persons)
	return out, nil
}

func (s *InMemory) ListLegacyOrganizations(context.Context) ([]*registrant.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*registrant.Organization, len(s.orgs))
	copy(out, s.orgs)
	return out, nil
}

func (s *InMemory) CanonicalIDExists(_ context.Context, raw string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Union namespace: live legacy rows count as taken, not just target rows.
	for _, p := range s.persons {
		if p.CanonicalID.Raw == raw && p.Status != registrant.StatusRejected {
			return true, nil
		}
	}
	for _, o := range s.orgs {
		if o.CanonicalID.Raw == raw && o.Status != registrant.StatusRejected {
			return true, nil
		}
	}
	for _, u := range s.users {
		if u.CanonicalID.Raw == raw && u.Status != registrant.StatusRejected {
			return true, nil
		}
	}
	for _, o := range s.orgsV2 {
		if o.CanonicalID.Raw == raw && o.Status != registrant.StatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) InsertUser(_ context.Context, u *models.User, _ models.Contact) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return false, sentinel.ErrUnavailable
	}
	if _, ok := s.users[u.SourceID]; ok {
		return false, nil
	}
	cu := *u
	s.users[u.SourceID] = &cu
	return true, nil
}

func (s *InMemory) InsertOrganization(_ context.Context, o *models.OrganizationV2, _ models.Contact) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return false, sentinel.ErrUnavailable
	}
	if _, ok := s.orgsV2[o.SourceID]; ok {
		return false, nil
	}
	co := *o
	s.orgsV2[o.SourceID] = &co
	return true, nil
}

func (s *InMemory) CountSource(_ context.Context, kind registrant.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind == registrant.KindOrganization {
		return len(s.orgs), nil
	}
	return len(s.persons), nil
}

func (s *InMemory) CountTarget(_ context.Context, kind registrant.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind == registrant.KindOrganization {
		return len(s.orgsV2), nil
	}
	return len(s.users), nil
}

// User returns the migrated user for a legacy source id, for tests.
func (s *InMemory) User(sourceID uuid.UUID) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[sourceID]
	return u, ok
}

// Organization returns the migrated organization for a legacy source id.
func (s *InMemory) Organization(sourceID uuid.UUID) (*models.OrganizationV2, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgsV2[sourceID]
	return o, ok
}
