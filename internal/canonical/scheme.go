// Package canonical implements the canonical identifier subsystem: attribute
// normalization, deterministic synthesis, collision resolution against an
// injected existence check, and dual-grammar validation and parsing.
//
// Two encoding schemes are live at the same time. Historical records carry
// compact identifiers (JSMITH1234ABC); everything synthesized today uses the
// dotted form (J.SMITH.1234.jsmith@example.com). Both grammars stay supported
// indefinitely.
package canonical

import "strings"

// Scheme is a versioned encoding rule set governing how identity attributes
// map to an identifier string and back.
type Scheme string

const (
	// SchemeLegacy is the compact concatenated form:
	// {FirstInitial}{LastName}{Phone4}{EmailHash3}.
	SchemeLegacy Scheme = "legacy-compact"

	// SchemeDotted is the segmented form and the active default:
	// {FirstInitial}.{LastName}.{Phone4}.{FullEmail}.
	SchemeDotted Scheme = "dotted-segmented"
)

// ActiveScheme is the scheme used for all new synthesis. Legacy stays
// read-only: validated and parsed, never produced.
const ActiveScheme = SchemeDotted

// DetectScheme performs the cheap structural sniff used before parsing.
// Dot separators only ever appear in the dotted scheme.
func DetectScheme(raw string) Scheme {
	if strings.ContainsRune(raw, '.') {
		return SchemeDotted
	}
	return SchemeLegacy
}

// Identifier is the canonical identifier value object. It is immutable once
// assigned; a scheme migration supersedes it with a new value rather than
// mutating it.
type Identifier struct {
	Raw    string `json:"raw"`
	Scheme Scheme `json:"scheme"`
}

func (id Identifier) String() string { return id.Raw }

func (id Identifier) IsZero() bool { return id.Raw == "" }
