package shared

import (
	"strings"

	"golang.org/x/text/secure/precis"
)

// FoldName canonicalizes a username or role name for case-insensitive
// comparison and uniqueness checks. Storage keeps the original casing; only
// the fold column and comparisons use this form.
//
// The PRECIS UsernameCaseMapped profile handles case mapping for non-ASCII
// identifiers; inputs it rejects (bidi violations, disallowed code points)
// fall back to a plain lowercase fold so lookups never error.
func FoldName(name string) string {
	folded, err := precis.UsernameCaseMapped.String(strings.TrimSpace(name))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(name))
	}
	return folded
}

// SameName reports whether two names are equal under FoldName.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}
