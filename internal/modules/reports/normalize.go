package reports

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParseLocaleNumber converts a report cell to a number.
//
// It accepts both "1.234.567,8" and "1,234,567.8" styles, percent signs, explicit sign
// prefixes and accounting parentheses. Empty or unparseable cells yield 0: a missing value
// means "no data", never an error.
func ParseLocaleNumber(cell string) float64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case '%', ' ', '\u00a0', '\u202f', '+':
			return -1
		case '\u2212':
			return '-'
		}
		return r
	}, s)

	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = !negative
		s = s[:len(s)-1]
	}

	s = normalizeSeparators(s)
	if s == "" || !onlyDigitsAndDot(s) {
		return 0
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}

// normalizeSeparators rewrites grouping and decimal separators so that only a single '.'
// decimal point remains.
func normalizeSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		// The separator that appears last is the decimal one.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas > 0:
		return resolveSingleSeparator(s, ",", commas)
	case dots > 0:
		return resolveSingleSeparator(s, ".", dots)
	}
	return s
}

func resolveSingleSeparator(s, sep string, count int) string {
	if count > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	intPart, fracPart := s[:idx], s[idx+1:]
	if len(fracPart) == 3 && len(intPart) >= 1 && len(intPart) <= 3 && strings.Trim(intPart, "0") != "" {
		return intPart + fracPart
	}
	return intPart + "." + fracPart
}

func onlyDigitsAndDot(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
		default:
			return false
		}
	}
	return digits > 0
}

// IsNumericCell reports whether a cell looks like a number (digits plus separators, signs
// and percent). Empty cells are not numeric.
func IsNumericCell(cell string) bool {
	s := strings.TrimSpace(cell)
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(".,%+-() \u00a0\u2212", r):
		default:
			return false
		}
	}
	return digits > 0
}

func normNFC(s string) string {
	return norm.NFC.String(s)
}

// NormalizeIdentity canonicalizes a name for comparison: NFC composition, single spaces,
// no surrounding whitespace. Two visually identical names encoded differently (precomposed
// vs combining diacritics) normalize to the same string.
func NormalizeIdentity(text string) string {
	return strings.Join(strings.Fields(normNFC(text)), " ")
}

// DisplayName returns the name part of a "Name - ID" identity.
func DisplayName(identity string) string {
	name, _, found := strings.Cut(identity, IdentitySeparator)
	if !found {
		return strings.TrimSpace(identity)
	}
	return strings.TrimSpace(name)
}

// IsTotalLabel reports whether a row label is the aggregate marker.
func IsTotalLabel(label string) bool {
	return NormalizeIdentity(label) == TotalLabel
}

// LabelMatches reports whether a row label refers to the given store or employee code:
// either the normalized label equals the code, or it is "code - description".
func LabelMatches(label, code string) bool {
	l := NormalizeIdentity(label)
	c := NormalizeIdentity(code)
	if c == "" {
		return false
	}
	return l == c || strings.HasPrefix(l, c+IdentitySeparator)
}
