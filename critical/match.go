package critical

import (
	"strings"

	"critcss/css"
)

// Media queries without an explicit type default to "all", and producers
// often elide the prefix. Stripping it is the only normalization applied,
// the media query grammar is never parsed.
const allMediaPrefix = "all and "

// SelectorsEqual reports whether two ordered selector lists are equal
// element for element. Selector text is compared exactly: ".a.b" and
// ".b.a" are different selectors.
func SelectorsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MediaEquivalent reports whether two media conditions are equivalent:
// equal as given, or equal after stripping one leading "all and " from
// either or both sides.
func MediaEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	sa := strings.TrimPrefix(a, allMediaPrefix)
	sb := strings.TrimPrefix(b, allMediaPrefix)
	return sa == b || a == sb || sa == sb
}

// DeclarationsEqual reports whether two declaration lists contain the
// same property/value pairs regardless of order. Duplicate pairs are
// counted: every declaration of a must be matched by a distinct
// declaration of b.
func DeclarationsEqual(a, b []css.Declaration) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, d := range a {
		found := false
		for i, e := range b {
			if !used[i] && d == e {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// isDuplicateRule reports whether two rules are duplicates of each other:
// identical selector lists and declaration multisets.
func isDuplicateRule(a, b *css.Rule) bool {
	return SelectorsEqual(a.Selectors, b.Selectors) && DeclarationsEqual(a.Declarations, b.Declarations)
}
