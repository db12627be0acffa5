package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"canonreg/internal/canonical"
	"canonreg/internal/registrant/models"
	"canonreg/pkg/platform/sentinel"
)

// Postgres persists registrants in the individuals/organizations tables.
// Each table carries a partial unique index on canonical_id (live rows only),
// which is the authoritative backstop for the resolver's best-effort
// pre-check: a racing insert surfaces here as sentinel.ErrConflict and the
// service retries with the next counter.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registrant store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CanonicalIDExists(ctx context.Context, raw string) (bool, error) {
	const query = `
		SELECT
			EXISTS(SELECT 1 FROM individuals WHERE canonical_id = $1 AND status <> 'rejected')
			OR EXISTS(SELECT 1 FROM organizations WHERE canonical_id = $1 AND status <> 'rejected')
	`
	var taken bool
	if err := s.db.QueryRowContext(ctx, query, raw).Scan(&taken); err != nil {
		return false, fmt.Errorf("check canonical id: %w", err)
	}
	if taken {
		return true, nil
	}

	// One namespace across the scheme migration: identifiers carried into the
	// target tables stay reserved. Before the migration has ever run those
	// tables do not exist, which is not an error.
	const targetQuery = `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE canonical_id = $1 AND status <> 'rejected')
			OR EXISTS(SELECT 1 FROM organizations_v2 WHERE canonical_id = $1 AND status <> 'rejected')
	`
	if err := s.db.QueryRowContext(ctx, targetQuery, raw).Scan(&taken); err != nil {
		if undefinedTable(err) {
			return false, nil
		}
		return false, fmt.Errorf("check migrated canonical id: %w", err)
	}
	return taken, nil
}

// undefinedTable reports the postgres undefined_table error, raised when the
// migration target tables have not been provisioned yet.
func undefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}

func (s *Postgres) CreatePerson(ctx context.Context, p *models.Person) error {
	const query = `
		INSERT INTO individuals (
			id, canonical_id, scheme, first_name, last_name, email, phone,
			status, request_date, approved_date, approved_by, rejection_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.CanonicalID.Raw, string(p.CanonicalID.Scheme),
		p.FirstName, p.LastName, p.Email, nullString(p.Phone),
		string(p.Status), p.RequestedAt, p.ApprovedAt, nullString(p.ApprovedBy),
		nullString(p.RejectionReason), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return translatePQ("create person", err)
	}
	return nil
}

func (s *Postgres) CreateOrganization(ctx context.Context, o *models.Organization) error {
	const query = `
		INSERT INTO organizations (
			id, canonical_id, scheme, name, org_type, contact_email, phone,
			address, website, status, request_date, approved_date, approved_by,
			rejection_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		o.ID, o.CanonicalID.Raw, string(o.CanonicalID.Scheme),
		o.Name, o.OrgType, o.ContactEmail, nullString(o.Phone),
		nullString(o.Address), nullString(o.Website), string(o.Status),
		o.RequestedAt, o.ApprovedAt, nullString(o.ApprovedBy),
		nullString(o.RejectionReason), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return translatePQ("create organization", err)
	}
	return nil
}

func (s *Postgres) FindPerson(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	const query = `
		SELECT id, canonical_id, scheme, first_name, last_name, email, phone,
		       status, request_date, approved_date, approved_by, rejection_reason,
		       created_at, updated_at
		FROM individuals WHERE id = $1
	`
	var (
		p          models.Person
		raw        string
		scheme     string
		phone      sql.NullString
		approvedBy sql.NullString
		reason     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &raw, &scheme, &p.FirstName, &p.LastName, &p.Email, &phone,
		&p.Status, &p.RequestedAt, &p.ApprovedAt, &approvedBy, &reason,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find person: %w", err)
	}
	p.CanonicalID = canonical.Identifier{Raw: raw, Scheme: canonical.Scheme(scheme)}
	p.Phone = phone.String
	p.ApprovedBy = approvedBy.String
	p.RejectionReason = reason.String
	return &p, nil
}

func (s *Postgres) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const query = `
		SELECT id, canonical_id, scheme, name, org_type, contact_email, phone,
		       address, website, status, request_date, approved_date, approved_by,
		       rejection_reason, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	var (
		o       models.Organization
		raw     string
		scheme  string
		optCols = struct {
			phone, address, website, approvedBy, reason sql.NullString
		}{}
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &raw, &scheme, &o.Name, &o.OrgType, &o.ContactEmail,
		&optCols.phone, &optCols.address, &optCols.website, &o.Status,
		&o.RequestedAt, &o.ApprovedAt, &optCols.approvedBy, &optCols.reason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	o.CanonicalID = canonical.Identifier{Raw: raw, Scheme: canonical.Scheme(scheme)}
	o.Phone = optCols.phone.String
	o.Address = optCols.address.String
	o.Website = optCols.website.String
	o.ApprovedBy = optCols.approvedBy.String
	o.RejectionReason = optCols.reason.String
	return &o, nil
}

func (s *Postgres) UpdatePerson(ctx context.Context, p *models.Person, now time.Time) error {
	const query = `
		UPDATE individuals
		SET status = $2, approved_date = $3, approved_by = $4,
		    rejection_reason = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		p.ID, string(p.Status), p.ApprovedAt, nullString(p.ApprovedBy),
		nullString(p.RejectionReason), now,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) UpdateOrganization(ctx context.Context, o *models.Organization, now time.Time) error {
	const query = `
		UPDATE organizations
		SET status = $2, approved_date = $3, approved_by = $4,
		    rejection_reason = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		o.ID, string(o.Status), o.ApprovedAt, nullString(o.ApprovedBy),
		nullString(o.RejectionReason), now,
	)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) FindByCanonicalID(ctx context.Context, raw string) (*models.Record, error) {
	// One namespace, two tables: probe persons first, then organizations.
	const query = `
		SELECT 'person' AS kind, id, canonical_id, scheme,
		       first_name || ' ' || last_name AS display_name, email,
		       status, request_date, approved_date
		FROM individuals WHERE canonical_id = $1
		UNION ALL
		SELECT 'organization' AS kind, id, canonical_id, scheme,
		       name AS display_name, contact_email AS email,
		       status, request_date, approved_date
		FROM organizations WHERE canonical_id = $1
		LIMIT 1
	`
	var (
		rec    models.Record
		cid    string
		scheme string
	)
	err := s.db.QueryRowContext(ctx, query, raw).Scan(
		&rec.Kind, &rec.ID, &cid, &scheme, &rec.DisplayName, &rec.Email,
		&rec.Status, &rec.RequestedAt, &rec.ApprovedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find by canonical id: %w", err)
	}
	rec.CanonicalID = canonical.Identifier{Raw: cid, Scheme: canonical.Scheme(scheme)}
	return &rec, nil
}

func (s *Postgres) ListPending(ctx context.Context, kind models.Kind) ([]*models.Record, error) {
	var query string
	switch kind {
	case models.KindPerson:
		query = `
			SELECT 'person', id, canonical_id, scheme,
			       first_name || ' ' || last_name, email, status, request_date, approved_date
			FROM individuals WHERE status = 'pending' ORDER BY request_date ASC
		`
	case models.KindOrganization:
		query = `
			SELECT 'organization', id, canonical_id, scheme,
			       name, contact_email, status, request_date, approved_date
			FROM organizations WHERE status = 'pending' ORDER BY request_date ASC
		`
	default:
		return nil, fmt.Errorf("list pending: unknown kind %q", kind)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var (
			rec    models.Record
			cid    string
			scheme string
		)
		if err := rows.Scan(&rec.Kind, &rec.ID, &cid, &scheme, &rec.DisplayName,
			&rec.Email, &rec.Status, &rec.RequestedAt, &rec.ApprovedAt); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		rec.CanonicalID = canonical.Identifier{Raw: cid, Scheme: canonical.Scheme(scheme)}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *Postgres) CountByKind(ctx context.Context, kind models.Kind) (int, error) {
	table := "individuals"
	if kind == models.KindOrganization {
		table = "organizations"
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// translatePQ maps a unique constraint violation onto the conflict sentinel
// so services can distinguish a losing race from a real failure.
func translatePQ(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
