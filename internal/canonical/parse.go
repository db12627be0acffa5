package canonical

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	legacyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{4,15}$`)

	dottedInitial = regexp.MustCompile(`^[A-Z]$`)
	dottedName    = regexp.MustCompile(`^[A-Z]+$`)
	dottedPhone   = regexp.MustCompile(`^\d{4}$`)
	counterTail   = regexp.MustCompile(`^\d{2}$`)
)

// Fields are the semantic components recovered from an identifier. Legacy
// identifiers yield EmailHash (the 3-letter domain hash); dotted identifiers
// yield the full Email. A zero Counter means no disambiguation suffix was
// detected.
type Fields struct {
	Scheme    Scheme
	Initial   string
	LastName  string
	Phone4    string
	Email     string
	EmailHash string
	Counter   int
}

// Validate checks an identifier string against one scheme's structural
// grammar. It never errors; unparseable input is simply invalid.
func Validate(raw string, scheme Scheme) bool {
	switch scheme {
	case SchemeLegacy:
		return legacyPattern.MatchString(raw)
	case SchemeDotted:
		_, ok := parseDotted(raw)
		return ok
	default:
		return false
	}
}

// Parse decomposes an identifier into its fields. The grammar is chosen by
// structural sniff, with the other grammar as fallback, since historical
// records may carry either scheme. Failure returns ok=false and an empty
// Fields; it never panics or errors.
func Parse(raw string) (Fields, bool) {
	if DetectScheme(raw) == SchemeDotted {
		if f, ok := parseDotted(raw); ok {
			return f, true
		}
		return parseLegacy(raw)
	}
	if f, ok := parseLegacy(raw); ok {
		return f, true
	}
	return parseDotted(raw)
}

// parseLegacy reproduces the historical approximate decomposition: the split
// between name and phone is found by scanning for the first digit, so a last
// name containing digits was never representable in this scheme.
func parseLegacy(raw string) (Fields, bool) {
	if !legacyPattern.MatchString(raw) {
		return Fields{}, false
	}

	digitStart := -1
	for i := 1; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digitStart = i
			break
		}
	}
	if digitStart <= 1 || digitStart+7 > len(raw) {
		return Fields{}, false
	}

	return Fields{
		Scheme:    SchemeLegacy,
		Initial:   raw[:1],
		LastName:  raw[1:digitStart],
		Phone4:    raw[digitStart : digitStart+4],
		EmailHash: raw[digitStart+4 : digitStart+7],
	}, true
}

// parseDotted consumes exactly three fixed-width segments left to right, then
// treats the remainder as the email. Because the email itself contains dots,
// a trailing 2-digit segment is read as a disambiguation counter only when
// the remainder before it still contains an '@'.
//
// Known edge case, preserved deliberately: an email whose final dot segment
// is exactly two digits (e.g. a two-digit country-code-style tail) is
// misread as a counter. The upstream disambiguation format never specified a
// stronger separator, so the heuristic stands.
func parseDotted(raw string) (Fields, bool) {
	segs := strings.Split(raw, ".")
	if len(segs) < 4 {
		return Fields{}, false
	}
	if !dottedInitial.MatchString(segs[0]) ||
		!dottedName.MatchString(segs[1]) ||
		!dottedPhone.MatchString(segs[2]) {
		return Fields{}, false
	}

	emailSegs := segs[3:]
	counter := 0
	if len(emailSegs) >= 2 {
		tail := emailSegs[len(emailSegs)-1]
		head := strings.Join(emailSegs[:len(emailSegs)-1], ".")
		if counterTail.MatchString(tail) && strings.ContainsRune(head, '@') {
			counter, _ = strconv.Atoi(tail)
			emailSegs = emailSegs[:len(emailSegs)-1]
		}
	}

	address := strings.Join(emailSegs, ".")
	if !strings.ContainsRune(address, '@') {
		return Fields{}, false
	}
	if err := is.EmailFormat.Validate(address); err != nil {
		return Fields{}, false
	}

	return Fields{
		Scheme:   SchemeDotted,
		Initial:  segs[0],
		LastName: segs[1],
		Phone4:   segs[2],
		Email:    address,
		Counter:  counter,
	}, true
}
