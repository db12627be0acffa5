// Package email holds small address helpers shared by the canonical
// identifier scheme and registration validation.
package email

import "strings"

// Normalize lower-cases and trims an address. The dotted identifier scheme
// embeds the result verbatim, so this is the only mutation applied.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// DomainLabel returns the part after '@', or "unknown" when the address has
// no '@'. The legacy identifier scheme hashes this label; it must never fail.
func DomainLabel(address string) string {
	at := strings.IndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return "unknown"
	}
	return address[at+1:]
}

// LocalPart returns the part before '@', or the whole string when the
// address has no '@'.
func LocalPart(address string) string {
	if at := strings.IndexByte(address, '@'); at > 0 {
		return address[:at]
	}
	return address
}
