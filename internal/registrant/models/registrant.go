package models

import (
	"time"

	"github.com/google/uuid"

	"canonreg/internal/canonical"
	dErrors "canonreg/pkg/domain-errors"
)

// Kind distinguishes the two entity tables that share the canonical
// identifier namespace.
type Kind string

const (
	KindPerson       Kind = "person"
	KindOrganization Kind = "organization"
)

func (k Kind) Valid() bool {
	return k == KindPerson || k == KindOrganization
}

// Approval carries the registration lifecycle metadata common to both entity
// kinds. The fields are copied verbatim through schema migrations; they are
// the audit trail of who admitted a registrant and when.
type Approval struct {
	Status          Status     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// CanApprove checks the pending→approved transition.
func (a *Approval) CanApprove() error {
	if !a.Status.CanTransitionTo(StatusApproved) {
		return transitionErr(a.Status, StatusApproved)
	}
	return nil
}

// ApplyApproval transitions to approved. Call CanApprove first.
// Once applied, the canonical identifier becomes authoritative and may no
// longer be regenerated outside a scheme migration.
func (a *Approval) ApplyApproval(approver string, now time.Time) {
	a.Status = StatusApproved
	a.ApprovedBy = approver
	a.ApprovedAt = &now
}

// CanReject checks the pending→rejected transition.
func (a *Approval) CanReject() error {
	if !a.Status.CanTransitionTo(StatusRejected) {
		return transitionErr(a.Status, StatusRejected)
	}
	return nil
}

// ApplyRejection transitions to rejected. A rejected registrant's canonical
// identifier leaves the uniqueness namespace and may be reissued.
func (a *Approval) ApplyRejection(reason string) {
	a.Status = StatusRejected
	a.RejectionReason = reason
}

// Person is a registered individual.
//
// Invariants:
//   - CanonicalID.Raw is unique across persons AND organizations while the
//     record is not rejected (one namespace, enforced by the store)
//   - CanonicalID is immutable once the record is approved; only a scheme
//     migration may supersede it, and then by writing a new record
//   - Email is the primary address the identifier was derived from
type Person struct {
	ID          uuid.UUID            `json:"id"`
	CanonicalID canonical.Identifier `json:"canonical_id"`
	FirstName   string               `json:"first_name"`
	LastName    string               `json:"last_name"`
	Email       string               `json:"email"`
	Phone       string               `json:"phone,omitempty"`
	Approval
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Organization is a registered organization. It shares the identifier
// namespace and lifecycle with persons but carries business attributes.
type Organization struct {
	ID           uuid.UUID            `json:"id"`
	CanonicalID  canonical.Identifier `json:"canonical_id"`
	Name         string               `json:"name"`
	OrgType      string               `json:"org_type"`
	ContactEmail string               `json:"contact_email"`
	Phone        string               `json:"phone,omitempty"`
	Address      string               `json:"address,omitempty"`
	Website      string               `json:"website,omitempty"`
	Approval
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is the kind-agnostic view a canonical identifier resolves to on the
// lookup path.
type Record struct {
	Kind        Kind                 `json:"kind"`
	ID          uuid.UUID            `json:"id"`
	CanonicalID canonical.Identifier `json:"canonical_id"`
	DisplayName string               `json:"display_name"`
	Email       string               `json:"email"`
	Status      Status               `json:"status"`
	RequestedAt time.Time            `json:"requested_at"`
	ApprovedAt  *time.Time           `json:"approved_at,omitempty"`
}

// NewPerson constructs a pending person registration.
func NewPerson(id uuid.UUID, cid canonical.Identifier, firstName, lastName, email, phone string, now time.Time) (*Person, error) {
	if cid.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "canonical identifier cannot be empty")
	}
	return &Person{
		ID:          id,
		CanonicalID: cid,
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Phone:       phone,
		Approval:    Approval{Status: StatusPending, RequestedAt: now},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewOrganization constructs a pending organization registration.
func NewOrganization(id uuid.UUID, cid canonical.Identifier, name, orgType, contactEmail, phone string, now time.Time) (*Organization, error) {
	if cid.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "canonical identifier cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name cannot be empty")
	}
	return &Organization{
		ID:           id,
		CanonicalID:  cid,
		Name:         name,
		OrgType:      orgType,
		ContactEmail: contactEmail,
		Phone:        phone,
		Approval:     Approval{Status: StatusPending, RequestedAt: now},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (p *Person) Record() *Record {
	return &Record{
		Kind:        KindPerson,
		ID:          p.ID,
		CanonicalID: p.CanonicalID,
		DisplayName: p.FirstName + " " + p.LastName,
		Email:       p.Email,
		Status:      p.Status,
		RequestedAt: p.RequestedAt,
		ApprovedAt:  p.ApprovedAt,
	}
}

func (o *Organization) Record() *Record {
	return &Record{
		Kind:        KindOrganization,
		ID:          o.ID,
		CanonicalID: o.CanonicalID,
		DisplayName: o.Name,
		Email:       o.ContactEmail,
		Status:      o.Status,
		RequestedAt: o.RequestedAt,
		ApprovedAt:  o.ApprovedAt,
	}
}
