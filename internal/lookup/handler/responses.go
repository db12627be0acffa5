package handler

import (
	"time"

	"canonreg/internal/lookup/service"
	"canonreg/internal/registrant/models"
)

// LookupResponse is the HTTP response for GET /lookup/{canonicalID}.
type LookupResponse struct {
	Kind        string     `json:"kind"`
	ID          string     `json:"id"`
	CanonicalID string     `json:"canonical_id"`
	Scheme      string     `json:"scheme"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

// InspectionResponse is the HTTP response for GET /identifiers/{canonicalID}.
type InspectionResponse struct {
	Raw         string          `json:"raw"`
	Scheme      string          `json:"scheme"`
	ValidLegacy bool            `json:"valid_legacy"`
	ValidDotted bool            `json:"valid_dotted"`
	Parsed      bool            `json:"parsed"`
	Fields      *FieldsResponse `json:"fields,omitempty"`
}

// FieldsResponse is the decomposed identifier portion of an inspection.
type FieldsResponse struct {
	Scheme    string `json:"scheme"`
	Initial   string `json:"initial"`
	LastName  string `json:"last_name"`
	Phone4    string `json:"phone_last_four"`
	Email     string `json:"email,omitempty"`
	EmailHash string `json:"email_hash,omitempty"`
	Counter   int    `json:"counter,omitempty"`
}

// FromRecord converts a registrant record to an HTTP response.
func FromRecord(rec *models.Record) *LookupResponse {
	return &LookupResponse{
		Kind:        string(rec.Kind),
		ID:          rec.ID.String(),
		CanonicalID: rec.CanonicalID.Raw,
		Scheme:      string(rec.CanonicalID.Scheme),
		DisplayName: rec.DisplayName,
		Email:       rec.Email,
		Status:      string(rec.Status),
		RequestedAt: rec.RequestedAt,
		ApprovedAt:  rec.ApprovedAt,
	}
}

// FromInspection converts an inspection to an HTTP response.
func FromInspection(insp service.Inspection) *InspectionResponse {
	resp := &InspectionResponse{
		Raw:         insp.Raw,
		Scheme:      string(insp.Scheme),
		ValidLegacy: insp.ValidLegacy,
		ValidDotted: insp.ValidDotted,
		Parsed:      insp.Parsed,
	}
	if insp.Parsed {
		resp.Fields = &FieldsResponse{
			Scheme:    string(insp.Fields.Scheme),
			Initial:   insp.Fields.Initial,
			LastName:  insp.Fields.LastName,
			Phone4:    insp.Fields.Phone4,
			Email:     insp.Fields.Email,
			EmailHash: insp.Fields.EmailHash,
			Counter:   insp.Fields.Counter,
		}
	}
	return resp
}
