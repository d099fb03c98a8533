package shipping

import (
	"strings"
	"unicode"
)

const minPostalCodeLen = 3

// PostalCode is a canonicalised postal code.
type PostalCode struct {
	// Display is upper-cased with single inner spaces, e.g. "SW1A 1AA".
	Display string
	// Compact has all whitespace removed and keys the quote cache.
	Compact string
}

// ParsePostalCode trims and canonicalises raw. Codes whose canonical display
// form is shorter than three characters are rejected.
func ParsePostalCode(raw string) (PostalCode, error) {
	fields := strings.FieldsFunc(strings.ToUpper(raw), unicode.IsSpace)
	display := strings.Join(fields, " ")
	compact := strings.Join(fields, "")
	if len([]rune(display)) < minPostalCodeLen {
		return PostalCode{}, ErrInvalidPostalCode
	}
	return PostalCode{Display: display, Compact: compact}, nil
}
