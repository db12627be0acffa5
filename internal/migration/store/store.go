package store

import (
	"context"

	"canonreg/internal/migration/models"
	registrant "canonreg/internal/registrant/models"
)

// Store is the migration engine's view of storage: legacy reads on one side,
// target writes on the other.
//
// Insert methods are idempotent on the source row id. A record already
// carried over reports inserted=false instead of erroring, which is what
// makes a partially failed pass safe to re-run.
type Store interface {
	// EnsureTargetSchema provisions the user-centric target tables. Legacy
	// tables are never touched. Safe to call repeatedly.
	EnsureTargetSchema(ctx context.Context) error

	ListLegacyPersons(ctx context.Context) ([]*registrant.Person, error)
	ListLegacyOrganizations(ctx context.Context) ([]*registrant.Organization, error)

	// CanonicalIDExists is the resolver's existence probe. It spans the union
	// namespace: live legacy rows and already-migrated target rows alike, so a
	// re-derived identifier can never collide with one a different record
	// still holds.
	CanonicalIDExists(ctx context.Context, raw string) (bool, error)

	InsertUser(ctx context.Context, u *models.User, contact models.Contact) (inserted bool, err error)
	InsertOrganization(ctx context.Context, o *models.OrganizationV2, contact models.Contact) (inserted bool, err error)

	CountSource(ctx context.Context, kind registrant.Kind) (int, error)
	CountTarget(ctx context.Context, kind registrant.Kind) (int, error)
}
