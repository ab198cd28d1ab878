package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText lowercases, trims and strips diacritics so that
// "Ibuprofeno" and "ibuprofeno" (or "Ubicación" and "ubicacion") compare
// equal. Used for search matching and legacy header reconciliation.
func NormalizeText(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		// Transform failures only happen on invalid UTF-8; fall back to
		// the raw input rather than dropping the value.
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}

// NormalizeLabel is NormalizeText plus whitespace/underscore collapsing,
// for matching spreadsheet header labels that drifted across drafts
// ("Fecha de Caducidad", "fecha_caducidad", " CADUCIDAD ").
func NormalizeLabel(s string) string {
	n := NormalizeText(s)
	n = strings.ReplaceAll(n, "_", " ")
	n = strings.ReplaceAll(n, "-", " ")
	return strings.Join(strings.Fields(n), " ")
}
