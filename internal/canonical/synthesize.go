package canonical

import "strings"

// Synthesize builds the base identifier for the attributes under the given
// scheme. Deterministic: fixed attributes and scheme always yield the same
// string. Uniqueness is the resolver's job, not this function's.
func Synthesize(attrs Attributes, scheme Scheme) Identifier {
	t := attrs.Normalize(scheme)

	var raw string
	switch scheme {
	case SchemeLegacy:
		raw = t.Initial + t.LastName + t.Phone4 + t.Email
	default:
		raw = strings.Join([]string{t.Initial, t.LastName, t.Phone4, t.Email}, ".")
	}

	return Identifier{Raw: raw, Scheme: scheme}
}
