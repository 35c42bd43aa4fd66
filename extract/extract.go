// Package extract drives critical CSS extraction for a page: it collects
// the page's stylesheets, asks a Discoverer which selectors matter above
// the fold at each configured viewport, prunes the stylesheets to those
// selectors and accumulates the per-viewport results with the merge
// engine into a single deduplicated stylesheet.
package extract

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"critcss/critical"
	"critcss/css"
)

// Options configure an extraction run.
type Options struct {
	Viewports    []Viewport
	ForceInclude critical.ForceInclude
	UserAgent    string
	Output       css.StringifyOptions
}

// defaultViewports is used when no viewports are configured.
var defaultViewports = []Viewport{{Width: 1300, Height: 900}}

// Extractor runs the extraction pipeline. The accumulator stylesheet has
// a single owner per run and is merged into sequentially, never shared.
type Extractor struct {
	log    *zap.Logger
	opts   Options
	disc   Discoverer
	client *http.Client
	parser *css.Parser
	engine *critical.Engine
}

// New creates an extractor using disc for above-the-fold discovery.
func New(log *zap.Logger, disc Discoverer, opts Options) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.Viewports) == 0 {
		opts.Viewports = defaultViewports
	}
	return &Extractor{
		log:    log.Named("extract"),
		opts:   opts,
		disc:   disc,
		client: &http.Client{},
		parser: css.NewParser(log),
		engine: critical.NewEngine(log),
	}
}

// Run extracts critical CSS for pageURL across all configured viewports
// and returns the merged stylesheet text. Individual viewport or
// stylesheet failures are tolerated and aggregated; Run fails only when
// nothing could be extracted at all.
func (e *Extractor) Run(ctx context.Context, pageURL string) (string, error) {
	sources, err := CollectStylesheets(ctx, e.log, e.client, pageURL, e.opts.UserAgent)
	if len(sources) == 0 {
		if err != nil {
			return "", fmt.Errorf("unable to collect stylesheets from '%s': %w", pageURL, err)
		}
		return "", fmt.Errorf("no stylesheets found at '%s'", pageURL)
	}
	if err != nil {
		e.log.Warn("Some stylesheets could not be collected", zap.String("url", pageURL), zap.Error(err))
	}

	candidates := e.candidateSelectors(sources)
	e.log.Debug("Collected candidate selectors", zap.Int("count", len(candidates)))

	acc := &css.Stylesheet{Items: make([]css.StylesheetItem, 0), Source: pageURL}
	var errs error
	merged := 0

	for _, vp := range e.opts.Viewports {
		matched, err := e.disc.Critical(ctx, pageURL, vp, candidates)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("viewport %s: %w", vp, err))
			continue
		}
		used := make(map[string]bool, len(matched))
		for _, s := range matched {
			used[s] = true
		}

		for _, src := range sources {
			sheet, err := e.parser.Parse(src.Data, css.ParseOptions{Silent: true, Source: src.Name})
			if err != nil {
				// Parser failures are tolerated, the run proceeds with
				// the remaining sources.
				e.log.Warn("Skipping unparseable stylesheet", zap.String("source", src.Name), zap.Error(err))
				continue
			}
			pruned := e.prune(sheet, used)
			if len(pruned.Items) == 0 {
				continue
			}
			if acc, err = e.engine.Merge(acc, pruned); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("viewport %s source '%s': %w", vp, src.Name, err))
				continue
			}
			merged++
		}
		e.log.Debug("Viewport merged", zap.Stringer("viewport", vp), zap.Int("selectors", len(matched)), zap.Int("accumulated", len(acc.Items)))
	}

	if merged == 0 && errs != nil {
		return "", errs
	}
	if errs != nil {
		e.log.Warn("Extraction finished with partial results", zap.Error(errs))
	}
	return css.Stringify(acc, e.opts.Output), nil
}

// candidateSelectors builds the ordered, deduplicated selector universe
// of all collected stylesheets, including selectors inside media blocks.
func (e *Extractor) candidateSelectors(sources []StylesheetSource) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(selectors []string) {
		for _, s := range selectors {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	for _, src := range sources {
		sheet, err := e.parser.Parse(src.Data, css.ParseOptions{Silent: true, Source: src.Name})
		if err != nil {
			continue
		}
		for _, item := range sheet.Items {
			switch {
			case item.Rule != nil:
				add(item.Rule.Selectors)
			case item.Media != nil:
				for _, r := range item.Media.Rules {
					add(r.Selectors)
				}
			}
		}
	}
	return out
}

// prune reduces sheet to the rules with at least one used or
// force-included selector. Unmatched selectors are dropped from a kept
// rule's selector list so the output never carries selectors that were
// not seen; a rule is never kept with an empty selector list.
func (e *Extractor) prune(sheet *css.Stylesheet, used map[string]bool) *css.Stylesheet {
	kept := make([]css.StylesheetItem, 0, len(sheet.Items))
	for _, item := range sheet.Items {
		switch {
		case item.Media != nil:
			var rules []*css.Rule
			for _, r := range item.Media.Rules {
				if sels := e.keepSelectors(r.Selectors, used); len(sels) > 0 {
					r.Selectors = sels
					rules = append(rules, r)
				}
			}
			if len(rules) > 0 {
				item.Media.Rules = rules
				kept = append(kept, item)
			}
		case item.Rule != nil:
			if sels := e.keepSelectors(item.Rule.Selectors, used); len(sels) > 0 {
				item.Rule.Selectors = sels
				kept = append(kept, item)
			}
		}
	}
	sheet.Items = kept
	return sheet
}

// keepSelectors is the extraction decision: a selector survives when the
// discoverer saw it or the force-include configuration names it.
func (e *Extractor) keepSelectors(selectors []string, used map[string]bool) []string {
	var out []string
	for _, s := range selectors {
		if used[s] || e.opts.ForceInclude.Match(s) {
			out = append(out, s)
		}
	}
	return out
}
