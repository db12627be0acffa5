package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canonreg/internal/canonical"
	"canonreg/internal/registrant/models"
	"canonreg/internal/registrant/store"
	dErrors "canonreg/pkg/domain-errors"
	"canonreg/pkg/platform/sentinel"
	"canonreg/pkg/requestcontext"
)

var johnSmithReq = RegisterPersonRequest{
	FirstName: "John",
	LastName:  "Smith",
	Phone:     "555-123-4567",
	Email:     "John.Smith@Domain.com",
}

func newTestService(t *testing.T, st store.Store, opts ...Option) *Service {
	t.Helper()
	svc, err := New(st, opts...)
	require.NoError(t, err)
	return svc
}

func TestRegisterPerson(t *testing.T) {
	ctx := context.Background()

	t.Run("synthesizes the dotted identifier from attributes", func(t *testing.T) {
		svc := newTestService(t, store.NewInMemory())

		p, err := svc.RegisterPerson(ctx, johnSmithReq)
		require.NoError(t, err)

		assert.Equal(t, "J.SMITH.4567.john.smith@domain.com", p.CanonicalID.Raw)
		assert.Equal(t, canonical.SchemeDotted, p.CanonicalID.Scheme)
		assert.Equal(t, models.StatusPending, p.Status)
	})

	t.Run("same attributes twice get distinct identifiers", func(t *testing.T) {
		svc := newTestService(t, store.NewInMemory())

		first, err := svc.RegisterPerson(ctx, johnSmithReq)
		require.NoError(t, err)
		second, err := svc.RegisterPerson(ctx, johnSmithReq)
		require.NoError(t, err)

		assert.Equal(t, "J.SMITH.4567.john.smith@domain.com", first.CanonicalID.Raw)
		assert.Equal(t, "J.SMITH.4567.john.smith@domain.com.01", second.CanonicalID.Raw)
	})

	t.Run("registration timestamp comes from the request context", func(t *testing.T) {
		svc := newTestService(t, store.NewInMemory())
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		p, err := svc.RegisterPerson(requestcontext.WithTime(ctx, at), johnSmithReq)
		require.NoError(t, err)
		assert.Equal(t, at, p.RequestedAt)
	})

	t.Run("store outage degrades to the timestamp fallback", func(t *testing.T) {
		st := &outageStore{Store: store.NewInMemory()}
		clock := func() time.Time { return time.Unix(1234567, 0) }
		svc := newTestService(t, st,
			WithResolver(canonical.NewResolver(canonical.WithClock(clock))))

		p, err := svc.RegisterPerson(ctx, johnSmithReq)
		require.NoError(t, err)
		assert.Equal(t, "J.SMITH.4567.john.smith@domain.com.567", p.CanonicalID.Raw)
	})
}

func TestRegisterOrganization(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, store.NewInMemory())

	o, err := svc.RegisterOrganization(ctx, RegisterOrganizationRequest{
		Name:         "Acme Corp",
		OrgType:      "Corporation",
		ContactEmail: "Info@Acme.com",
		Phone:        "555-000-1000",
	})
	require.NoError(t, err)

	// Organizations synthesize from the name in both name positions.
	assert.Equal(t, "A.ACMECORP.1000.info@acme.com", o.CanonicalID.Raw)
	assert.Equal(t, models.StatusPending, o.Status)
}

func TestSharedNamespaceAcrossKinds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, store.NewInMemory())

	p, err := svc.RegisterPerson(ctx, RegisterPersonRequest{
		FirstName: "Acme",
		LastName:  "Acme Corp",
		Phone:     "555-000-1000",
		Email:     "info@acme.com",
	})
	require.NoError(t, err)
	require.Equal(t, "A.ACMECORP.1000.info@acme.com", p.CanonicalID.Raw)

	o, err := svc.RegisterOrganization(ctx, RegisterOrganizationRequest{
		Name:         "Acme Corp",
		OrgType:      "Corporation",
		ContactEmail: "info@acme.com",
		Phone:        "555-000-1000",
	})
	require.NoError(t, err)
	assert.Equal(t, "A.ACMECORP.1000.info@acme.com.01", o.CanonicalID.Raw)
}

func TestRegisterRetriesLostRace(t *testing.T) {
	ctx := context.Background()
	st := &racingStore{Store: store.NewInMemory(), conflicts: 2}
	svc := newTestService(t, st)

	p, err := svc.RegisterPerson(ctx, johnSmithReq)
	require.NoError(t, err)
	assert.Equal(t, "J.SMITH.4567.john.smith@domain.com", p.CanonicalID.Raw)
	assert.Zero(t, st.conflicts)
}

func TestRegisterGivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	st := &racingStore{Store: store.NewInMemory(), conflicts: 10}
	svc := newTestService(t, st)

	_, err := svc.RegisterPerson(ctx, johnSmithReq)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestApprovalLifecycle(t *testing.T) {
	ctx := requestcontext.WithAdmin(context.Background(), "reviewer")
	st := store.NewInMemory()
	svc := newTestService(t, st)

	p, err := svc.RegisterPerson(ctx, johnSmithReq)
	require.NoError(t, err)

	t.Run("approve stamps the admin and time", func(t *testing.T) {
		at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
		require.NoError(t, svc.Approve(requestcontext.WithTime(ctx, at), models.KindPerson, p.ID))

		found, err := st.FindPerson(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, found.Status)
		assert.Equal(t, "reviewer", found.ApprovedBy)
		require.NotNil(t, found.ApprovedAt)
		assert.Equal(t, at, *found.ApprovedAt)
	})

	t.Run("approved records cannot be re-decided", func(t *testing.T) {
		err := svc.Approve(ctx, models.KindPerson, p.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		err = svc.Reject(ctx, models.KindPerson, p.ID, "changed our mind")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestRejectionReleasesIdentifier(t *testing.T) {
	ctx := requestcontext.WithAdmin(context.Background(), "reviewer")
	st := store.NewInMemory()
	svc := newTestService(t, st)

	p, err := svc.RegisterPerson(ctx, johnSmithReq)
	require.NoError(t, err)
	require.NoError(t, svc.Reject(ctx, models.KindPerson, p.ID, "duplicate"))

	// The base identifier is free again; the next registrant takes it
	// without a counter.
	next, err := svc.RegisterPerson(ctx, johnSmithReq)
	require.NoError(t, err)
	assert.Equal(t, p.CanonicalID.Raw, next.CanonicalID.Raw)
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, store.NewInMemory())

	_, err := svc.RegisterPerson(ctx, johnSmithReq)
	require.NoError(t, err)

	records, err := svc.ListPending(ctx, models.KindPerson)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "John Smith", records[0].DisplayName)

	_, err = svc.ListPending(ctx, models.Kind("robot"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestRequestValidation(t *testing.T) {
	t.Run("person", func(t *testing.T) {
		assert.NoError(t, johnSmithReq.Validate())

		bad := johnSmithReq
		bad.Email = "not-an-email"
		assert.Error(t, bad.Validate())

		bad = johnSmithReq
		bad.FirstName = ""
		assert.Error(t, bad.Validate())
	})

	t.Run("organization type is a closed set", func(t *testing.T) {
		req := RegisterOrganizationRequest{
			Name:         "Acme Corp",
			OrgType:      "Corporation",
			ContactEmail: "info@acme.com",
		}
		assert.NoError(t, req.Validate())

		req.OrgType = "Circus"
		assert.Error(t, req.Validate())
	})
}

// outageStore fails every namespace check, simulating an unreachable
// database on the resolution path while inserts still work.
type outageStore struct {
	store.Store
}

func (s *outageStore) CanonicalIDExists(context.Context, string) (bool, error) {
	return false, fmt.Errorf("registry unavailable: %w", sentinel.ErrUnavailable)
}

// racingStore reports the namespace as free but rejects the first N inserts
// with a conflict, simulating concurrent registrants winning the unique
// index race.
type racingStore struct {
	store.Store
	conflicts int
}

func (s *racingStore) CanonicalIDExists(context.Context, string) (bool, error) {
	return false, nil
}

func (s *racingStore) CreatePerson(ctx context.Context, p *models.Person) error {
	if s.conflicts > 0 {
		s.conflicts--
		return sentinel.ErrConflict
	}
	return s.Store.CreatePerson(ctx, p)
}
