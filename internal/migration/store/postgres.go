package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"canonreg/internal/canonical"
	"canonreg/internal/migration/models"
	registrant "canonreg/internal/registrant/models"
)

//go:embed migrations/*.sql
var targetSchemaFS embed.FS

// Postgres reads the legacy individuals/organizations tables and writes the
// user-centric target tables in the same database. Target inserts use
// ON CONFLICT (source_id) DO NOTHING so a re-run pass skips carried-over rows.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed migration store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureTargetSchema applies the embedded target schema migrations. The
// version bookkeeping lives in its own table so it never collides with the
// base schema's history.
func (s *Postgres) EnsureTargetSchema(_ context.Context) error {
	src, err := iofs.New(targetSchemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("load target schema source: %w", err)
	}
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "target_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply target schema: %w", err)
	}
	return nil
}

func (s *Postgres) ListLegacyPersons(ctx context.Context) ([]*registrant.Person, error) {
	const query = `
		SELECT id, canonical_id, scheme, first_name, last_name, email, phone,
		       status, request_date, approved_date, approved_by, rejection_reason,
		       created_at, updated_at
		FROM individuals ORDER BY request_date ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list legacy persons: %w", err)
	}
	defer rows.Close()

	var persons []*registrant.Person
	for rows.Next() {
		var (
			p          registrant.Person
			raw        string
			scheme     string
			phone      sql.NullString
			approvedBy sql.NullString
			reason     sql.NullString
		)
		if err := rows.Scan(&p.ID, &raw, &scheme, &p.FirstName, &p.LastName,
			&p.Email, &phone, &p.Status, &p.RequestedAt, &p.ApprovedAt,
			&approvedBy, &reason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan legacy person: %w", err)
		}
		p.CanonicalID = canonical.Identifier{Raw: raw, Scheme: canonical.Scheme(scheme)}
		p.Phone = phone.String
		p.ApprovedBy = approvedBy.String
		p.RejectionReason = reason.String
		persons = append(persons, &p)
	}
	return persons, rows.Err()
}

func (s *Postgres) ListLegacyOrganizations(ctx context.Context) ([]*registrant.Organization, error) {
	const query = `
		SELECT id, canonical_id, scheme, name, org_type, contact_email, phone,
		       address, website, status, request_date, approved_date, approved_by,
		       rejection_reason, created_at, updated_at
		FROM organizations ORDER BY request_date ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list legacy organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*registrant.Organization
	for rows.Next() {
		var (
			o       registrant.Organization
			raw     string
			scheme  string
			optCols = struct {
				phone, address, website, approvedBy, reason sql.NullString
			}{}
		)
		if err := rows.Scan(&o.ID, &raw, &scheme, &o.Name, &o.OrgType,
			&o.ContactEmail, &optCols.phone, &optCols.address, &optCols.website,
			&o.Status, &o.RequestedAt, &o.ApprovedAt, &optCols.approvedBy,
			&optCols.reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan legacy organization: %w", err)
		}
		o.CanonicalID = canonical.Identifier{Raw: raw, Scheme: canonical.Scheme(scheme)}
		o.Phone = optCols.phone.String
		o.Address = optCols.address.String
		o.Website = optCols.website.String
		o.ApprovedBy = optCols.approvedBy.String
		o.RejectionReason = optCols.reason.String
		orgs = append(orgs, &o)
	}
	return orgs, rows.Err()
}

func (s *Postgres) CanonicalIDExists(ctx context.Context, raw string) (bool, error) {
	// Union namespace: legacy tables still hold live records during and after
	// a migration pass, so a re-derived identifier must clear both worlds.
	const query = `
		SELECT
			EXISTS(SELECT 1 FROM individuals WHERE canonical_id = $1 AND status <> 'rejected')
			OR EXISTS(SELECT 1 FROM organizations WHERE canonical_id = $1 AND status <> 'rejected')
			OR EXISTS(SELECT 1 FROM users WHERE canonical_id = $1 AND status <> 'rejected')
			OR EXISTS(SELECT 1 FROM organizations_v2 WHERE canonical_id = $1 AND status <> 'rejected')
	`
	var taken bool
	if err := s.db.QueryRowContext(ctx, query, raw).Scan(&taken); err != nil {
		return false, fmt.Errorf("check canonical id: %w", err)
	}
	return taken, nil
}

func (s *Postgres) InsertUser(ctx context.Context, u *models.User, contact models.Contact) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin insert user: %w", err)
	}
	defer tx.Rollback()

	const insertUser = `
		INSERT INTO users (
			id, source_id, canonical_id, legacy_canonical_id, scheme,
			first_name, last_name, status, request_date, approved_date,
			approved_by, rejection_reason, migrated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (source_id) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, insertUser,
		u.ID, u.SourceID, u.CanonicalID.Raw, u.LegacyCanonicalID,
		string(u.CanonicalID.Scheme), u.FirstName, u.LastName, string(u.Status),
		u.RequestedAt, u.ApprovedAt, nullString(u.ApprovedBy),
		nullString(u.RejectionReason), u.MigratedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Already migrated on an earlier pass.
		return false, nil
	}

	if contact.Email != "" {
		const insertEmail = `
			INSERT INTO user_emails (id, user_id, address, is_primary)
			VALUES ($1, $2, $3, TRUE)
		`
		if _, err := tx.ExecContext(ctx, insertEmail, uuid.New(), u.ID, contact.Email); err != nil {
			return false, fmt.Errorf("insert user email: %w", err)
		}
	}
	if contact.Phone != "" {
		const insertPhone = `
			INSERT INTO user_phones (id, user_id, number, is_primary)
			VALUES ($1, $2, $3, TRUE)
		`
		if _, err := tx.ExecContext(ctx, insertPhone, uuid.New(), u.ID, contact.Phone); err != nil {
			return false, fmt.Errorf("insert user phone: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit insert user: %w", err)
	}
	return true, nil
}

func (s *Postgres) InsertOrganization(ctx context.Context, o *models.OrganizationV2, contact models.Contact) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin insert organization: %w", err)
	}
	defer tx.Rollback()

	const insertOrg = `
		INSERT INTO organizations_v2 (
			id, source_id, canonical_id, legacy_canonical_id, scheme,
			name, org_type, status, request_date, approved_date,
			approved_by, rejection_reason, migrated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (source_id) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, insertOrg,
		o.ID, o.SourceID, o.CanonicalID.Raw, o.LegacyCanonicalID,
		string(o.CanonicalID.Scheme), o.Name, o.OrgType, string(o.Status),
		o.RequestedAt, o.ApprovedAt, nullString(o.ApprovedBy),
		nullString(o.RejectionReason), o.MigratedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert organization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if contact.Email != "" || contact.Phone != "" {
		const insertContact = `
			INSERT INTO organization_contacts (id, organization_id, email, phone, is_primary)
			VALUES ($1, $2, $3, $4, TRUE)
		`
		if _, err := tx.ExecContext(ctx, insertContact, uuid.New(), o.ID,
			nullString(contact.Email), nullString(contact.Phone)); err != nil {
			return false, fmt.Errorf("insert organization contact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit insert organization: %w", err)
	}
	return true, nil
}

func (s *Postgres) CountSource(ctx context.Context, kind registrant.Kind) (int, error) {
	return s.count(ctx, sourceTable(kind))
}

func (s *Postgres) CountTarget(ctx context.Context, kind registrant.Kind) (int, error) {
	return s.count(ctx, targetTable(kind))
}

func (s *Postgres) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func sourceTable(kind registrant.Kind) string {
	if kind == registrant.KindOrganization {
		return "organizations"
	}
	return "individuals"
}

func targetTable(kind registrant.Kind) string {
	if kind == registrant.KindOrganization {
		return "organizations_v2"
	}
	return "users"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
