package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"canonreg/internal/canonical"
	"canonreg/internal/migration/metrics"
	"canonreg/internal/migration/models"
	"canonreg/internal/migration/store"
	registrant "canonreg/internal/registrant/models"
	dErrors "canonreg/pkg/domain-errors"
	"canonreg/pkg/requestcontext"
)

// orgPrefix marks organization identifiers in the target namespace.
const orgPrefix = "ORG-"

// Engine runs the one-time scheme migration: it re-derives every legacy
// record's identifier under the active scheme and writes it into the
// user-centric target tables, legacy tables untouched.
//
// A pass is best effort. Per-record failures are caught, written to the
// append-only log, and the loop continues; re-running a pass skips records
// that already made it across.
type Engine struct {
	store    store.Store
	resolver *canonical.Resolver
	log      *Log
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu   sync.Mutex
	step models.Step
}

// Option configures the Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithResolver overrides the collision resolver, mainly for tests that need
// a fixed fallback clock.
func WithResolver(r *canonical.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// New constructs a migration engine over the given store.
func New(st store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("migration store is required")
	}
	e := &Engine{
		store:  st,
		log:    NewLog(),
		logger: slog.Default(),
		step:   models.StepNotMigrated,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = canonical.NewResolver(canonical.WithLogger(e.logger))
	}
	return e, nil
}

// Step returns the state machine position.
func (e *Engine) Step() models.Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// LogLines returns the append-only migration log.
func (e *Engine) LogLines() []string {
	return e.log.Lines()
}

// advance moves the state machine forward; it never moves backwards, so a
// re-entered Migrating pass cannot demote a later step.
func (e *Engine) advance(step models.Step) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if step.AtLeast(e.step) {
		e.step = step
	}
}

func (e *Engine) requireStep(step models.Step, action string) error {
	if !e.Step().AtLeast(step) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot %s before reaching %s", action, step))
	}
	return nil
}

// CreateSchema provisions the parallel target tables. Safe to re-run.
func (e *Engine) CreateSchema(ctx context.Context) (*models.Report, error) {
	if err := e.store.EnsureTargetSchema(ctx); err != nil {
		e.log.Appendf("schema creation failed: %v", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create target schema")
	}
	e.advance(models.StepSchemaCreated)
	e.log.Appendf("target schema created")
	e.logger.InfoContext(ctx, "migration target schema created")
	return &models.Report{Step: e.Step(), Ok: true}, nil
}

// MigratePersons carries every legacy person into the users table. Records
// with a usable phone are renumbered under the active scheme; phone-less
// records keep their legacy identifier verbatim.
func (e *Engine) MigratePersons(ctx context.Context) (*models.Report, error) {
	if err := e.requireStep(models.StepSchemaCreated, "migrate persons"); err != nil {
		return nil, err
	}
	e.advance(models.StepMigrating)

	persons, err := e.store.ListLegacyPersons(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read legacy persons")
	}

	now := requestcontext.Now(ctx)
	report := &models.Report{Step: e.Step(), Ok: true}
	for _, p := range persons {
		id := e.deriveIdentifier(ctx, canonical.Attributes{
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			PrimaryPhone: p.Phone,
			PrimaryEmail: p.Email,
		}, p.Phone, p.CanonicalID, "")

		u := &models.User{
			ID:                uuid.New(),
			SourceID:          p.ID,
			CanonicalID:       id,
			LegacyCanonicalID: p.CanonicalID.Raw,
			FirstName:         p.FirstName,
			LastName:          p.LastName,
			Approval:          p.Approval,
			MigratedAt:        now,
		}
		inserted, err := e.store.InsertUser(ctx, u, models.Contact{Email: p.Email, Phone: p.Phone})
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, p.CanonicalID.Raw)
			report.Ok = false
			e.metrics.ObserveFailure(string(registrant.KindPerson))
			e.log.Appendf("failed to migrate person %s: %v", p.CanonicalID.Raw, err)
			e.logger.ErrorContext(ctx, "person migration failed",
				"canonical_id", p.CanonicalID.Raw,
				"error", err,
			)
			continue
		}
		e.metrics.ObserveRecord(string(registrant.KindPerson), inserted)
		if !inserted {
			report.Skipped++
			continue
		}
		report.Migrated++
		e.log.Appendf("migrated person %s -> %s", p.CanonicalID.Raw, id.Raw)
	}

	e.log.Appendf("person pass finished: %d migrated, %d skipped, %d failed",
		report.Migrated, report.Skipped, report.Failed)
	return report, nil
}

// MigrateOrganizations carries every legacy organization into the
// organizations_v2 table. Target identifiers carry the ORG- prefix; legacy
// identifiers kept for phone-less records gain the prefix if missing.
func (e *Engine) MigrateOrganizations(ctx context.Context) (*models.Report, error) {
	if err := e.requireStep(models.StepSchemaCreated, "migrate organizations"); err != nil {
		return nil, err
	}
	e.advance(models.StepMigrating)

	orgs, err := e.store.ListLegacyOrganizations(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read legacy organizations")
	}

	now := requestcontext.Now(ctx)
	report := &models.Report{Step: e.Step(), Ok: true}
	for _, o := range orgs {
		id := e.deriveIdentifier(ctx, canonical.Attributes{
			FirstName:    o.Name,
			LastName:     o.Name,
			PrimaryPhone: o.Phone,
			PrimaryEmail: o.ContactEmail,
		}, o.Phone, o.CanonicalID, orgPrefix)

		v2 := &models.OrganizationV2{
			ID:                uuid.New(),
			SourceID:          o.ID,
			CanonicalID:       id,
			LegacyCanonicalID: o.CanonicalID.Raw,
			Name:              o.Name,
			OrgType:           o.OrgType,
			Approval:          o.Approval,
			MigratedAt:        now,
		}
		inserted, err := e.store.InsertOrganization(ctx, v2, models.Contact{Email: o.ContactEmail, Phone: o.Phone})
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, o.CanonicalID.Raw)
			report.Ok = false
			e.metrics.ObserveFailure(string(registrant.KindOrganization))
			e.log.Appendf("failed to migrate organization %s: %v", o.CanonicalID.Raw, err)
			e.logger.ErrorContext(ctx, "organization migration failed",
				"canonical_id", o.CanonicalID.Raw,
				"error", err,
			)
			continue
		}
		e.metrics.ObserveRecord(string(registrant.KindOrganization), inserted)
		if !inserted {
			report.Skipped++
			continue
		}
		report.Migrated++
		e.log.Appendf("migrated organization %s -> %s", o.CanonicalID.Raw, id.Raw)
	}

	e.log.Appendf("organization pass finished: %d migrated, %d skipped, %d failed",
		report.Migrated, report.Skipped, report.Failed)
	return report, nil
}

// deriveIdentifier picks the target identifier for one legacy record.
// With a usable phone the identifier is re-synthesized under the active
// scheme and resolved against the union namespace, live legacy rows
// included; without one the legacy identifier is retained unchanged.
// Phone-less records are not renumbered.
func (e *Engine) deriveIdentifier(ctx context.Context, attrs canonical.Attributes, phone string, legacy canonical.Identifier, prefix string) canonical.Identifier {
	if !usablePhone(phone) {
		raw := legacy.Raw
		if prefix != "" && !strings.HasPrefix(raw, prefix) {
			raw = prefix + raw
		}
		return canonical.Identifier{Raw: raw, Scheme: legacy.Scheme}
	}

	base := canonical.Synthesize(attrs, canonical.ActiveScheme)
	if prefix != "" {
		base.Raw = prefix + base.Raw
	}
	// The record's own legacy row is not a collision: a source record whose
	// re-derived identifier equals the one it already holds keeps it.
	exists := func(ctx context.Context, raw string) (bool, error) {
		if raw == legacy.Raw {
			return false, nil
		}
		return e.store.CanonicalIDExists(ctx, raw)
	}
	res := e.resolver.Resolve(ctx, base, exists)
	return res.Identifier
}

// usablePhone reports whether the phone yields real digits to renumber with.
func usablePhone(phone string) bool {
	return strings.ContainsAny(phone, "0123456789")
}

// Validate compares source and target row counts per kind. Mismatches are
// surfaced in the report, never auto-corrected.
func (e *Engine) Validate(ctx context.Context) (*models.Report, error) {
	if err := e.requireStep(models.StepMigrating, "validate"); err != nil {
		return nil, err
	}

	var personCounts, orgCounts models.Counts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		personCounts.Source, err = e.store.CountSource(gctx, registrant.KindPerson)
		return err
	})
	g.Go(func() (err error) {
		personCounts.Target, err = e.store.CountTarget(gctx, registrant.KindPerson)
		return err
	})
	g.Go(func() (err error) {
		orgCounts.Source, err = e.store.CountSource(gctx, registrant.KindOrganization)
		return err
	})
	g.Go(func() (err error) {
		orgCounts.Target, err = e.store.CountTarget(gctx, registrant.KindOrganization)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count records")
	}

	e.advance(models.StepValidated)
	report := &models.Report{
		Step: e.Step(),
		Counts: map[string]models.Counts{
			string(registrant.KindPerson):       personCounts,
			string(registrant.KindOrganization): orgCounts,
		},
		Ok: personCounts.Match() && orgCounts.Match(),
	}

	e.log.Appendf("validation: persons %d/%d, organizations %d/%d",
		personCounts.Target, personCounts.Source, orgCounts.Target, orgCounts.Source)
	if !report.Ok {
		e.log.Appendf("validation found count mismatches")
	}
	return report, nil
}

// Run executes the full pass: schema, both kinds, validation. Per-record
// failures never abort the run; the report carries them instead.
func (e *Engine) Run(ctx context.Context) (*models.Report, error) {
	e.metrics.ObserveRun()
	e.log.Appendf("full migration run started")

	report, err := e.CreateSchema(ctx)
	if err != nil {
		return nil, err
	}

	persons, err := e.MigratePersons(ctx)
	if err != nil {
		return nil, err
	}
	report.Merge(persons)

	orgs, err := e.MigrateOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	report.Merge(orgs)

	validation, err := e.Validate(ctx)
	if err != nil {
		return nil, err
	}
	report.Merge(validation)

	e.advance(models.StepComplete)
	report.Step = e.Step()
	e.log.Appendf("full migration run complete: %d migrated, %d skipped, %d failed",
		report.Migrated, report.Skipped, report.Failed)
	e.logger.InfoContext(ctx, "migration run complete",
		"migrated", report.Migrated,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}
