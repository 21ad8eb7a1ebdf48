package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes to NFD, drops combining marks, and recomposes, so
// "Atlántico" and "Atlantico" compare equal.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// aliasTable maps historical and multi-word administrative-capital spellings to
// the canonical catalog label. Entries are matched in declared order and the
// first match wins; targets are themselves canonical so Normalize stays
// idempotent.
var aliasTable = []struct{ from, to string }{
	{"BOGOTA D.C.", "BOGOTA"},
	{"BOGOTA DC", "BOGOTA"},
	{"SANTAFE DE BOGOTA", "BOGOTA"},
	{"SANTA FE DE BOGOTA", "BOGOTA"},
	{"CARTAGENA DE INDIAS", "CARTAGENA"},
	{"CARTAGENA DE INDIAS D.T. Y C.", "CARTAGENA"},
	{"SANTIAGO DE CALI", "CALI"},
	{"SAN ANDRES Y PROVIDENCIA", "SAN ANDRES"},
}

// Normalize canonicalizes a free-text geographic or catalog name for equality
// comparison: diacritics stripped, upper-cased, known aliases collapsed.
// It is total and idempotent; unmapped input comes back folded and upper-cased.
// Callers keep the original string for display.
func Normalize(name string) string {
	folded, _, err := transform.String(foldDiacritics, name)
	if err != nil {
		folded = name
	}
	upper := strings.ToUpper(strings.Join(strings.Fields(folded), " "))
	for _, alias := range aliasTable {
		if upper == alias.from {
			return alias.to
		}
	}
	return upper
}
