package critical

import (
	"fmt"
	"regexp"
	"strings"
)

// ForceIncludeEntry is a selector configured to always be kept regardless
// of visibility analysis: either a literal selector string or a regular
// expression.
type ForceIncludeEntry struct {
	Literal string
	Pattern *regexp.Regexp
}

// ForceInclude is an ordered list of force-include entries. It is
// consumed by the extraction decision, never by Filter or Merge.
type ForceInclude []ForceIncludeEntry

// ParseForceInclude builds a force-include list from configuration
// entries. An entry of the form "/pattern/flags" is compiled as a regular
// expression (supported flags: i, m, s); anything else is a literal
// selector.
func ParseForceInclude(entries []string) (ForceInclude, error) {
	fi := make(ForceInclude, 0, len(entries))
	for _, entry := range entries {
		if len(entry) > 1 && strings.HasPrefix(entry, "/") {
			if idx := strings.LastIndex(entry, "/"); idx > 0 {
				pattern, flags := entry[1:idx], entry[idx+1:]
				re, err := compilePattern(pattern, flags)
				if err != nil {
					return nil, fmt.Errorf("unable to compile force-include entry '%s': %w", entry, err)
				}
				fi = append(fi, ForceIncludeEntry{Pattern: re})
				continue
			}
		}
		fi = append(fi, ForceIncludeEntry{Literal: entry})
	}
	return fi, nil
}

func compilePattern(pattern, flags string) (*regexp.Regexp, error) {
	var mode strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			mode.WriteRune(f)
		default:
			return nil, fmt.Errorf("unsupported flag %q", f)
		}
	}
	if mode.Len() > 0 {
		pattern = "(?" + mode.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// Match reports whether selector equals any literal entry or matches any
// regular-expression entry.
func (fi ForceInclude) Match(selector string) bool {
	for _, entry := range fi {
		if entry.Pattern != nil {
			if entry.Pattern.MatchString(selector) {
				return true
			}
		} else if entry.Literal == selector {
			return true
		}
	}
	return false
}
