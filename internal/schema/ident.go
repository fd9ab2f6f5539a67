package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeIdent canonicalizes a table, field or index identifier for
// comparison and map keying. Surrounding whitespace is stripped and the
// name is NFC-normalized, so two spellings of the same accented name
// resolve to one entry instead of silently coexisting.
func NormalizeIdent(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
