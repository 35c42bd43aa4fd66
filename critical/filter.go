package critical

import (
	"go.uber.org/zap"

	"critcss/css"
)

// Engine runs the filter and merge transformations.
type Engine struct {
	log *zap.Logger
}

// NewEngine creates a transformation engine.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log.Named("critical")}
}

// Filter reduces target to only the rules whose selector list also
// appears, verbatim, in source. A nil source is treated as empty. The
// returned stylesheet is the same root object with its item list
// replaced; surviving rules are referenced, not copied, so the pre-filter
// target must not be assumed untouched.
//
// Media blocks are matched by condition equivalence: inner rules of all
// source media blocks with an equivalent condition are pooled, target
// inner rules survive only with a selector match in that pool, and a
// media block left without inner rules is dropped entirely.
func (e *Engine) Filter(source, target *css.Stylesheet) (*css.Stylesheet, error) {
	if err := validateSheet(target); err != nil {
		return nil, err
	}
	if source == nil {
		source = &css.Stylesheet{}
	}

	kept := make([]css.StylesheetItem, 0, len(target.Items))
	for _, item := range target.Items {
		if item.Media != nil {
			pool := pooledMediaRules(source, item.Media.Condition)
			var inner []*css.Rule
			for _, r := range item.Media.Rules {
				if containsSelectors(pool, r.Selectors) {
					inner = append(inner, r)
				}
			}
			if len(inner) == 0 {
				e.log.Debug("Dropping empty media block", zap.String("condition", item.Media.Condition))
				continue
			}
			item.Media.Rules = inner
			kept = append(kept, item)
			continue
		}

		if topLevelSelectorMatch(source, item.Rule.Selectors) {
			kept = append(kept, item)
		}
	}

	e.log.Debug("Filtered stylesheet",
		zap.String("source", target.Source),
		zap.Int("kept", len(kept)),
		zap.Int("total", len(target.Items)))

	target.Items = kept
	return target, nil
}

// pooledMediaRules collects the inner rules of every source media block
// whose condition is equivalent to cond. Several source blocks may
// match, their rules are pooled in source order.
func pooledMediaRules(source *css.Stylesheet, cond string) []*css.Rule {
	var pool []*css.Rule
	for _, item := range source.Items {
		if item.Media != nil && MediaEquivalent(item.Media.Condition, cond) {
			pool = append(pool, item.Media.Rules...)
		}
	}
	return pool
}

// containsSelectors reports whether any pooled rule carries an equal
// selector list.
func containsSelectors(pool []*css.Rule, selectors []string) bool {
	for _, r := range pool {
		if SelectorsEqual(r.Selectors, selectors) {
			return true
		}
	}
	return false
}

// topLevelSelectorMatch reports whether any top-level (non-media) source
// rule carries an equal selector list.
func topLevelSelectorMatch(source *css.Stylesheet, selectors []string) bool {
	for _, item := range source.Items {
		if item.Rule != nil && SelectorsEqual(item.Rule.Selectors, selectors) {
			return true
		}
	}
	return false
}
