// Package critical implements the core transformations for critical CSS
// extraction: filtering a stylesheet against a reference of used selectors
// and merging critical fragments from multiple page states into one
// deduplicated stylesheet.
package critical

import (
	"errors"
	"fmt"

	"critcss/css"
)

// ErrMalformedAST indicates a tree passed into Filter or Merge lacks the
// required stylesheet shape. No partial transformation is performed.
var ErrMalformedAST = errors.New("malformed stylesheet tree")

// validateSheet rejects trees the engines cannot walk: a nil stylesheet
// and items that are not exactly one of rule or media block.
func validateSheet(sheet *css.Stylesheet) error {
	if sheet == nil {
		return fmt.Errorf("%w: missing stylesheet root", ErrMalformedAST)
	}
	for i, item := range sheet.Items {
		if (item.Rule == nil) == (item.Media == nil) {
			return fmt.Errorf("%w: item %d is not exactly one of rule or media block", ErrMalformedAST, i)
		}
		if item.Media != nil {
			for j, r := range item.Media.Rules {
				if r == nil {
					return fmt.Errorf("%w: media block item %d has nil rule %d", ErrMalformedAST, i, j)
				}
			}
		}
	}
	return nil
}
