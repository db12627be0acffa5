package models

import (
	"time"

	"github.com/google/uuid"

	"canonreg/internal/canonical"
	registrant "canonreg/internal/registrant/models"
)

// Step is the migration state machine position. Migrating may be re-entered:
// a partially failed pass is safe to run again because target inserts are
// idempotent on the source row id.
type Step string

const (
	StepNotMigrated   Step = "not_migrated"
	StepSchemaCreated Step = "schema_created"
	StepMigrating     Step = "migrating"
	StepValidated     Step = "validated"
	StepComplete      Step = "complete"
)

// rank orders the steps so progress never moves backwards.
func (s Step) rank() int {
	switch s {
	case StepSchemaCreated:
		return 1
	case StepMigrating:
		return 2
	case StepValidated:
		return 3
	case StepComplete:
		return 4
	}
	return 0
}

// AtLeast reports whether the migration has reached the given step.
func (s Step) AtLeast(other Step) bool {
	return s.rank() >= other.rank()
}

// User is a migrated person in the user-centric target shape. Contact
// attributes move to child rows; the row itself keeps both identifiers so
// old references stay resolvable.
type User struct {
	ID                uuid.UUID            `json:"id"`
	SourceID          uuid.UUID            `json:"source_id"`
	CanonicalID       canonical.Identifier `json:"canonical_id"`
	LegacyCanonicalID string               `json:"legacy_canonical_id"`
	FirstName         string               `json:"first_name"`
	LastName          string               `json:"last_name"`
	registrant.Approval
	MigratedAt time.Time `json:"migrated_at"`
}

// OrganizationV2 is a migrated organization in the target shape.
type OrganizationV2 struct {
	ID                uuid.UUID            `json:"id"`
	SourceID          uuid.UUID            `json:"source_id"`
	CanonicalID       canonical.Identifier `json:"canonical_id"`
	LegacyCanonicalID string               `json:"legacy_canonical_id"`
	Name              string               `json:"name"`
	OrgType           string               `json:"org_type"`
	registrant.Approval
	MigratedAt time.Time `json:"migrated_at"`
}

// Contact is a primary email or phone child row carried alongside a migrated
// record.
type Contact struct {
	Email string
	Phone string
}

// Counts pairs source and target row counts for one entity kind.
type Counts struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Match reports whether every target row accounts for a source row.
func (c Counts) Match() bool {
	return c.Source == c.Target
}

// Report is the structured result of one migration trigger. A pass always
// finishes; Failures itemizes the records it could not carry over.
type Report struct {
	Step     Step              `json:"step"`
	Migrated int               `json:"migrated"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Failures []string          `json:"failures,omitempty"`
	Counts   map[string]Counts `json:"counts,omitempty"`
	Ok       bool              `json:"ok"`
}

// Merge folds another report into this one, keeping the later step.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	if other.Step.AtLeast(r.Step) {
		r.Step = other.Step
	}
	r.Migrated += other.Migrated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
	if other.Counts != nil {
		r.Counts = other.Counts
	}
	r.Ok = r.Ok && other.Ok
}
