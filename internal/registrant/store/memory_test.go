package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"canonreg/internal/canonical"
	"canonreg/internal/registrant/models"
	"canonreg/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) newPerson(raw string) *models.Person {
	p, err := models.NewPerson(
		uuid.New(),
		canonical.Identifier{Raw: raw, Scheme: canonical.SchemeDotted},
		"John", "Smith", "jsmith@example.com", "555-123-4567",
		time.Now(),
	)
	s.Require().NoError(err)
	return p
}

func (s *InMemorySuite) newOrganization(raw string) *models.Organization {
	o, err := models.NewOrganization(
		uuid.New(),
		canonical.Identifier{Raw: raw, Scheme: canonical.SchemeDotted},
		"Acme Corp", "Corporation", "info@acme.com", "555-000-1000",
		time.Now(),
	)
	s.Require().NoError(err)
	return o
}

// TestSharedNamespace verifies uniqueness spans both entity kinds.
func (s *InMemorySuite) TestSharedNamespace() {
	s.Run("person reserves the identifier against organizations", func() {
		p := s.newPerson("J.SMITH.4567.jsmith@example.com")
		s.Require().NoError(s.store.CreatePerson(s.ctx, p))

		taken, err := s.store.CanonicalIDExists(s.ctx, p.CanonicalID.Raw)
		s.Require().NoError(err)
		s.True(taken)

		o := s.newOrganization(p.CanonicalID.Raw)
		s.ErrorIs(s.store.CreateOrganization(s.ctx, o), sentinel.ErrConflict)
	})

	s.Run("unknown identifier is free", func() {
		taken, err := s.store.CanonicalIDExists(s.ctx, "Z.NOBODY.0000.x@y.com")
		s.Require().NoError(err)
		s.False(taken)
	})
}

// TestRejectedReleasesIdentifier verifies rejected records do not hold their slot.
func (s *InMemorySuite) TestRejectedReleasesIdentifier() {
	p := s.newPerson("J.SMITH.4567.jsmith@example.com")
	s.Require().NoError(s.store.CreatePerson(s.ctx, p))

	s.Require().NoError(p.CanReject())
	p.ApplyRejection("duplicate submission")
	s.Require().NoError(s.store.UpdatePerson(s.ctx, p, time.Now()))

	taken, err := s.store.CanonicalIDExists(s.ctx, p.CanonicalID.Raw)
	s.Require().NoError(err)
	s.False(taken)
}

// TestLifecycleUpdates verifies approval metadata persists.
func (s *InMemorySuite) TestLifecycleUpdates() {
	p := s.newPerson("J.SMITH.4567.jsmith@example.com")
	s.Require().NoError(s.store.CreatePerson(s.ctx, p))

	now := time.Now()
	s.Require().NoError(p.CanApprove())
	p.ApplyApproval("admin", now)
	s.Require().NoError(s.store.UpdatePerson(s.ctx, p, now))

	found, err := s.store.FindPerson(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
	s.Equal("admin", found.ApprovedBy)
	s.Require().NotNil(found.ApprovedAt)
}

// TestLookupsAndQueues verifies record resolution and the pending queue.
func (s *InMemorySuite) TestLookupsAndQueues() {
	s.Run("FindByCanonicalID resolves either kind", func() {
		p := s.newPerson("J.SMITH.4567.jsmith@example.com")
		o := s.newOrganization("A.ACMECORP.1000.info@acme.com")
		s.Require().NoError(s.store.CreatePerson(s.ctx, p))
		s.Require().NoError(s.store.CreateOrganization(s.ctx, o))

		rec, err := s.store.FindByCanonicalID(s.ctx, o.CanonicalID.Raw)
		s.Require().NoError(err)
		s.Equal(models.KindOrganization, rec.Kind)
		s.Equal("Acme Corp", rec.DisplayName)

		_, err = s.store.FindByCanonicalID(s.ctx, "Z.NOBODY.0000.x@y.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("ListPending orders by request time", func() {
		s.SetupTest()
		older := s.newPerson("A.OLD.1111.old@x.com")
		older.RequestedAt = time.Now().Add(-time.Hour)
		newer := s.newPerson("B.NEW.2222.new@x.com")

		s.Require().NoError(s.store.CreatePerson(s.ctx, newer))
		s.Require().NoError(s.store.CreatePerson(s.ctx, older))

		pending, err := s.store.ListPending(s.ctx, models.KindPerson)
		s.Require().NoError(err)
		s.Require().Len(pending, 2)
		s.Equal(older.ID, pending[0].ID)
	})

	s.Run("CountByKind counts each table", func() {
		s.SetupTest()
		s.Require().NoError(s.store.CreatePerson(s.ctx, s.newPerson("C.ONE.3333.one@x.com")))

		n, err := s.store.CountByKind(s.ctx, models.KindPerson)
		s.Require().NoError(err)
		s.Equal(1, n)

		n, err = s.store.CountByKind(s.ctx, models.KindOrganization)
		s.Require().NoError(err)
		s.Zero(n)
	})
}
