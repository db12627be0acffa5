package canonical

import (
	"regexp"
	"strings"

	"canonreg/pkg/email"
)

var (
	nonAlpha = regexp.MustCompile(`[^A-Za-z]`)
	nonDigit = regexp.MustCompile(`[^0-9]`)
)

// Attributes are the identity fields read from a registration request or a
// legacy record. The subsystem never mutates them.
type Attributes struct {
	FirstName    string
	LastName     string
	PrimaryPhone string
	PrimaryEmail string
}

// Tokens are the normalized building blocks of an identifier. Every field has
// a defined fallback, so normalization cannot fail; malformed input degrades
// to placeholder tokens instead of an error.
type Tokens struct {
	Initial  string // single uppercase letter, "X" when no letter exists
	LastName string // letters only, uppercased, may be empty
	Phone4   string // exactly 4 digits, zero-padded on the left
	Email    string // scheme-dependent: 3-char domain hash or full address
}

// Normalize cleans the raw attributes into tokens for the given scheme.
func (a Attributes) Normalize(scheme Scheme) Tokens {
	return Tokens{
		Initial:  firstInitial(a.FirstName),
		LastName: strings.ToUpper(nonAlpha.ReplaceAllString(strings.TrimSpace(a.LastName), "")),
		Phone4:   lastFourDigits(a.PrimaryPhone),
		Email:    emailToken(a.PrimaryEmail, scheme),
	}
}

func firstInitial(firstName string) string {
	for _, r := range strings.TrimSpace(firstName) {
		if r >= 'a' && r <= 'z' {
			return strings.ToUpper(string(r))
		}
		if r >= 'A' && r <= 'Z' {
			return string(r)
		}
	}
	return "X"
}

func lastFourDigits(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) >= 4 {
		return digits[len(digits)-4:]
	}
	for len(digits) < 4 {
		digits = "0" + digits
	}
	return digits
}

func emailToken(address string, scheme Scheme) string {
	if scheme == SchemeDotted {
		return email.Normalize(address)
	}
	// Legacy: first 3 letters of the domain label, uppercased, padded with X.
	hash := nonAlpha.ReplaceAllString(email.DomainLabel(address), "")
	if len(hash) > 3 {
		hash = hash[:3]
	}
	hash = strings.ToUpper(hash)
	for len(hash) < 3 {
		hash += "X"
	}
	return hash
}
