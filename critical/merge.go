package critical

import (
	"strings"

	"go.uber.org/zap"

	"critcss/css"
)

// Merge unions fragment into target, mutating target in place and
// returning it for chaining across sequential merges. The target wins on
// conflict: an incoming rule duplicating an existing one (equal selector
// lists and equal declaration multisets) is dropped, leaving the existing
// rule untouched. Non-duplicates are appended, which can change the
// winner of a specificity tie that was previously decided by source
// order; callers accumulating fragments accept that tradeoff.
//
// An incoming media block merges into the first existing block with an
// equivalent condition (that block keeps its condition string as given);
// without a match the whole block is appended verbatim.
func (e *Engine) Merge(target, fragment *css.Stylesheet) (*css.Stylesheet, error) {
	if err := validateSheet(target); err != nil {
		return nil, err
	}
	if err := validateSheet(fragment); err != nil {
		return nil, err
	}

	for _, item := range fragment.Items {
		if item.Media != nil {
			e.mergeMediaBlock(target, item.Media)
		} else {
			e.mergeRule(target, item.Rule)
		}
	}
	return target, nil
}

// mergeMediaBlock merges an incoming media block into target.
func (e *Engine) mergeMediaBlock(target *css.Stylesheet, mb *css.MediaBlock) {
	for _, item := range target.Items {
		if item.Media == nil || !MediaEquivalent(item.Media.Condition, mb.Condition) {
			continue
		}
		for _, r := range mb.Rules {
			item.Media.Rules = e.mergeRuleInto(item.Media.Rules, r)
		}
		return
	}
	target.Items = append(target.Items, css.StylesheetItem{Media: mb})
}

// mergeRule merges an incoming top-level rule into target.
func (e *Engine) mergeRule(target *css.Stylesheet, incoming *css.Rule) {
	for _, item := range target.Items {
		if item.Rule != nil && isDuplicateRule(item.Rule, incoming) {
			e.log.Debug("Skipping duplicate rule", zap.String("selectors", strings.Join(incoming.Selectors, ", ")))
			return
		}
	}
	target.Items = append(target.Items, css.StylesheetItem{Rule: incoming})
}

// mergeRuleInto appends incoming to rules unless a duplicate already
// exists. Used for inner rules of a media block.
func (e *Engine) mergeRuleInto(rules []*css.Rule, incoming *css.Rule) []*css.Rule {
	for _, r := range rules {
		if isDuplicateRule(r, incoming) {
			e.log.Debug("Skipping duplicate media rule", zap.String("selectors", strings.Join(incoming.Selectors, ", ")))
			return rules
		}
	}
	return append(rules, incoming)
}
