package extract

import (
	"strconv"
	"strings"
)

// ParseMixedNumeral converts a numeral that may use '.' and ',' as
// thousands or decimal separators into an integer value.
//
//	"10,000.00"    -> 10000
//	"1.234.567,89" -> 1234567
//	"150.000"      -> 150000
//
// When both separators occur, the one whose last occurrence is rightmost is
// the decimal separator; it and everything after it is dropped. Fractions
// are truncated, never rounded. Returns false for anything that is not a
// numeral after stripping.
func ParseMixedNumeral(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	if lastComma >= 0 && lastDot >= 0 {
		cut := lastDot
		if lastComma > lastDot {
			cut = lastComma
		}
		s = s[:cut]
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")

	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
