package handler

import (
	"time"

	"canonreg/internal/registrant/models"
)

// RegistrationResponse is the HTTP response for a successful registration.
// The canonical identifier is returned immediately even though the record
// stays pending until an admin decides it.
type RegistrationResponse struct {
	ID          string    `json:"id"`
	CanonicalID string    `json:"canonical_id"`
	Scheme      string    `json:"scheme"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

// RecordResponse is one entry in the admin review queue.
type RecordResponse struct {
	Kind        string     `json:"kind"`
	ID          string     `json:"id"`
	CanonicalID string     `json:"canonical_id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

// FromPerson converts a person registration to an HTTP response.
func FromPerson(p *models.Person) *RegistrationResponse {
	return &RegistrationResponse{
		ID:          p.ID.String(),
		CanonicalID: p.CanonicalID.Raw,
		Scheme:      string(p.CanonicalID.Scheme),
		Status:      string(p.Status),
		RequestedAt: p.RequestedAt,
	}
}

// FromOrganization converts an organization registration to an HTTP response.
func FromOrganization(o *models.Organization) *RegistrationResponse {
	return &RegistrationResponse{
		ID:          o.ID.String(),
		CanonicalID: o.CanonicalID.Raw,
		Scheme:      string(o.CanonicalID.Scheme),
		Status:      string(o.Status),
		RequestedAt: o.RequestedAt,
	}
}

// FromRecords converts the review queue to HTTP responses.
func FromRecords(records []*models.Record) []*RecordResponse {
	out := make([]*RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, &RecordResponse{
			Kind:        string(rec.Kind),
			ID:          rec.ID.String(),
			CanonicalID: rec.CanonicalID.Raw,
			DisplayName: rec.DisplayName,
			Email:       rec.Email,
			Status:      string(rec.Status),
			RequestedAt: rec.RequestedAt,
			ApprovedAt:  rec.ApprovedAt,
		})
	}
	return out
}
