package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	cssparse "github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// ErrParseFailure indicates the tokenizer could not produce any tree,
// even in lenient mode.
var ErrParseFailure = errors.New("unable to parse stylesheet")

// ParseOptions control parser behavior.
type ParseOptions struct {
	// Silent tolerates recoverable syntax errors and returns a
	// best-effort tree instead of failing.
	Silent bool

	// Source tags the resulting stylesheet for diagnostics. It is never
	// used for matching.
	Source string
}

// Parser parses CSS text into a Stylesheet.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. Item, selector and declaration
// order follow the source text exactly.
//
// Plain rulesets and @media blocks are kept. All other at-rules
// (@keyframes, @font-face, @import, ...) are skipped so they never reach
// the filter/merge engines.
func (p *Parser) Parse(data []byte, opts ParseOptions) (*Stylesheet, error) {
	sheet := &Stylesheet{
		Items:  make([]StylesheetItem, 0),
		Source: opts.Source,
	}

	if opts.Source != "" {
		p.log.Debug("Parsing CSS", zap.String("source", opts.Source), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := cssparse.NewParser(input, false)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case cssparse.ErrorGrammar:
			err := parser.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return sheet, nil
			}
			if opts.Silent {
				p.log.Debug("CSS parse error, keeping partial tree", zap.String("source", opts.Source), zap.Error(err))
				if len(sheet.Items) > 0 {
					return sheet, nil
				}
			}
			return nil, fmt.Errorf("%w '%s': %v", ErrParseFailure, opts.Source, err)

		case cssparse.BeginAtRuleGrammar:
			if string(data) == "@media" {
				cond := tokensText(parser.Values())
				rules := p.parseMediaRules(parser)
				p.log.Debug("Parsed @media block", zap.String("condition", cond), zap.Int("rules", len(rules)))
				sheet.Items = append(sheet.Items, StylesheetItem{
					Media: &MediaBlock{Condition: cond, Rules: rules},
				})
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", string(data)))
				skipAtRuleBlock(parser)
			}

		case cssparse.AtRuleGrammar:
			// Simple @-rule without block (e.g. @import, @charset)
			p.log.Debug("Skipping @-rule", zap.String("rule", string(data)))

		case cssparse.BeginRulesetGrammar:
			selectors := parseSelectors(data, parser.Values())
			decls := parseDeclarations(parser)
			if len(selectors) > 0 {
				sheet.Items = append(sheet.Items, StylesheetItem{
					Rule: &Rule{Selectors: selectors, Declarations: decls},
				})
			}
		}
	}
}

// parseMediaRules parses rules inside an @media block until the matching
// end of the block. Nested at-rules are skipped, inner rules are always
// plain rules.
func (p *Parser) parseMediaRules(parser *cssparse.Parser) []*Rule {
	var rules []*Rule

	for {
		gt, _, data := parser.Next()

		switch gt {
		case cssparse.ErrorGrammar, cssparse.EndAtRuleGrammar:
			return rules

		case cssparse.BeginAtRuleGrammar:
			p.log.Debug("Skipping nested @-rule inside @media", zap.String("rule", string(data)))
			skipAtRuleBlock(parser)

		case cssparse.BeginRulesetGrammar:
			selectors := parseSelectors(data, parser.Values())
			decls := parseDeclarations(parser)
			if len(selectors) > 0 {
				rules = append(rules, &Rule{Selectors: selectors, Declarations: decls})
			}
		}
	}
}

// parseSelectors extracts the ordered selector list from token data.
// Grouped selectors are split on commas, individual selector text is kept
// verbatim apart from surrounding whitespace.
func parseSelectors(data []byte, values []cssparse.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	var selectors []string
	for _, s := range strings.Split(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// parseDeclarations parses property declarations in source order until
// the end of the ruleset.
func parseDeclarations(parser *cssparse.Parser) []Declaration {
	var decls []Declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case cssparse.ErrorGrammar, cssparse.EndRulesetGrammar:
			return decls

		case cssparse.DeclarationGrammar, cssparse.CustomPropertyGrammar:
			value := tokensText(parser.Values())
			if value != "" {
				decls = append(decls, Declaration{Property: string(data), Value: value})
			}
		}
	}
}

// tokensText joins token data into a single string, collapsing runs of
// whitespace tokens into one space.
func tokensText(tokens []cssparse.Token) string {
	var parts []string
	for _, t := range tokens {
		if t.TokenType != cssparse.WhitespaceToken {
			parts = append(parts, string(t.Data))
		} else if len(parts) > 0 {
			parts = append(parts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func skipAtRuleBlock(parser *cssparse.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case cssparse.ErrorGrammar:
			return
		case cssparse.BeginAtRuleGrammar, cssparse.BeginRulesetGrammar:
			depth++
		case cssparse.EndAtRuleGrammar, cssparse.EndRulesetGrammar:
			depth--
		}
	}
}
