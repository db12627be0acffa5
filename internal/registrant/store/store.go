package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"canonreg/internal/registrant/models"
)

// Store persists registrants. Both entity kinds live behind one interface
// because they share the canonical identifier namespace: every uniqueness
// question spans both tables.
//
// Implementations return sentinel errors (pkg/platform/sentinel) for
// infrastructure facts; services translate them into coded domain errors.
type Store interface {
	// CanonicalIDExists reports whether raw is taken anywhere in the
	// namespace. Rejected registrations do not reserve their identifier.
	CanonicalIDExists(ctx context.Context, raw string) (bool, error)

	CreatePerson(ctx context.Context, p *models.Person) error
	CreateOrganization(ctx context.Context, o *models.Organization) error

	FindPerson(ctx context.Context, id uuid.UUID) (*models.Person, error)
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	UpdatePerson(ctx context.Context, p *models.Person, now time.Time) error
	UpdateOrganization(ctx context.Context, o *models.Organization, now time.Time) error

	// FindByCanonicalID resolves an identifier to its kind-agnostic record.
	FindByCanonicalID(ctx context.Context, raw string) (*models.Record, error)
	ListPending(ctx context.Context, kind models.Kind) ([]*models.Record, error)
	CountByKind(ctx context.Context, kind models.Kind) (int, error)
}
