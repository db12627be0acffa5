package service

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Request validation guards the transport boundary only. Synthesis itself
// never rejects input: whatever reaches the normalizer degrades to fallback
// tokens instead of an error.

// orgTypes is the closed set of accepted organization classifications.
var orgTypes = []interface{}{
	"Corporation", "LLC", "Partnership", "Non-Profit", "Government",
	"Educational Institution", "Healthcare Provider", "Financial Services",
	"Technology Company", "Consulting Firm", "CPA Firm", "Law Firm",
	"Real Estate", "Manufacturing", "Retail", "Other",
}

// RegisterPersonRequest carries the identity attributes a person registers
// with. The primary phone and email feed identifier synthesis.
type RegisterPersonRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (r RegisterPersonRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.LastName, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Phone, validation.Length(0, 20)),
	)
}

// RegisterOrganizationRequest carries an organization registration.
type RegisterOrganizationRequest struct {
	Name         string `json:"name"`
	OrgType      string `json:"org_type"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Website      string `json:"website"`
}

func (r RegisterOrganizationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.OrgType, validation.Required, validation.In(orgTypes...)),
		validation.Field(&r.ContactEmail, validation.Required, is.EmailFormat),
		validation.Field(&r.Phone, validation.Length(0, 20)),
		validation.Field(&r.Website, is.URL),
	)
}
