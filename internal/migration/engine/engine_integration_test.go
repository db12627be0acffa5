//go:build integration

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"canonreg/internal/canonical"
	migrationstore "canonreg/internal/migration/store"
	"canonreg/internal/platform/postgres"
	registrant "canonreg/internal/registrant/models"
	registrantstore "canonreg/internal/registrant/store"
	"canonreg/pkg/testutil/containers"
)

type EngineIntegrationSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	legacy    *registrantstore.Postgres
	ctx       context.Context
}

func (s *EngineIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.container.DB))
	s.legacy = registrantstore.NewPostgres(s.container.DB)
}

func (s *EngineIntegrationSuite) TearDownSuite() {
	_ = s.container.DB.Close()
	_ = s.container.Container.Terminate(s.ctx)
}

func (s *EngineIntegrationSuite) SetupTest() {
	s.Require().NoError(s.container.Truncate(s.ctx,
		"individuals", "organizations"))
	// Target tables may not exist yet on the first test.
	_, _ = s.container.DB.ExecContext(s.ctx, "TRUNCATE TABLE users CASCADE")
	_, _ = s.container.DB.ExecContext(s.ctx, "TRUNCATE TABLE organizations_v2 CASCADE")
}

func TestEngineIntegrationSuite(t *testing.T) {
	suite.Run(t, new(EngineIntegrationSuite))
}

func (s *EngineIntegrationSuite) seedLegacyPerson(first, last, phone, email, raw string) *registrant.Person {
	p, err := registrant.NewPerson(
		uuid.New(),
		canonical.Identifier{Raw: raw, Scheme: canonical.SchemeLegacy},
		first, last, email, phone,
		time.Now().UTC().Truncate(time.Microsecond),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.legacy.CreatePerson(s.ctx, p))
	return p
}

func (s *EngineIntegrationSuite) TestFullRunAgainstPostgres() {
	s.seedLegacyPerson("John", "Smith", "555-123-4567", "john.smith@domain.com", "JSMITH4567DOM")
	s.seedLegacyPerson("Mary", "Jones", "", "mjones@example.org", "MJONES0000EXA")

	st := migrationstore.NewPostgres(s.container.DB)
	e, err := New(st)
	s.Require().NoError(err)

	report, err := e.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, report.Migrated)
	s.True(report.Ok)

	var canonicalID, legacyID string
	err = s.container.DB.QueryRowContext(s.ctx,
		"SELECT canonical_id, legacy_canonical_id FROM users WHERE legacy_canonical_id = $1",
		"JSMITH4567DOM").Scan(&canonicalID, &legacyID)
	s.Require().NoError(err)
	s.Equal("J.SMITH.4567.john.smith@domain.com", canonicalID)

	var emails int
	s.Require().NoError(s.container.DB.QueryRowContext(s.ctx,
		"SELECT COUNT(*) FROM user_emails").Scan(&emails))
	s.Equal(2, emails)

	// A second pass skips everything already carried over.
	again, err := e.Run(s.ctx)
	s.Require().NoError(err)
	s.Zero(again.Migrated)
	s.Equal(2, again.Skipped)

	var users int
	s.Require().NoError(s.container.DB.QueryRowContext(s.ctx,
		"SELECT COUNT(*) FROM users").Scan(&users))
	s.Equal(2, users)
}
