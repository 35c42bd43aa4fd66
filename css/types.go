package css

import (
	"fmt"
	"io"
	"strings"
)

// Declaration is a single property: value pair inside a rule body.
// Both strings are kept exactly as parsed; no unit or number normalization.
type Declaration struct {
	Property string
	Value    string
}

// Rule represents a selector-qualified declaration block.
// Selector order and exact text are significant: ".a.b" and ".b.a" are
// different selectors.
type Rule struct {
	Selectors    []string
	Declarations []Declaration
}

// MediaBlock represents a @media block with its condition and nested rules.
// Inner rules are always plain rules, media blocks do not nest.
type MediaBlock struct {
	Condition string
	Rules     []*Rule
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of Rule or Media is non-nil.
type StylesheetItem struct {
	Rule  *Rule
	Media *MediaBlock
}

// Stylesheet represents a parsed CSS stylesheet. Item order is
// cascade-significant and is preserved on output.
type Stylesheet struct {
	Items []StylesheetItem

	// Source identifies where the stylesheet came from, used only for
	// diagnostics, never for matching.
	Source string
}

// StringifyOptions control output formatting only, never semantics.
type StringifyOptions struct {
	Indent   string // indentation unit, ignored when Compress is set
	Compress bool   // single-line output without whitespace
}

// Stringify returns the CSS text of the stylesheet.
func Stringify(sheet *Stylesheet, opts StringifyOptions) string {
	var sb strings.Builder
	w := writer{opts: opts}
	w.writeSheet(&sb, sheet) //nolint:errcheck
	return sb.String()
}

// WriteTo writes the stylesheet to w with default formatting,
// implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	sw := writer{opts: StringifyOptions{Indent: "  "}}
	return sw.writeSheet(w, s)
}

// String returns the CSS text of the stylesheet with default formatting.
func (s *Stylesheet) String() string {
	return Stringify(s, StringifyOptions{Indent: "  "})
}

type writer struct {
	opts StringifyOptions
}

func (sw writer) indent() string {
	if sw.opts.Compress {
		return ""
	}
	if sw.opts.Indent == "" {
		return "  "
	}
	return sw.opts.Indent
}

func (sw writer) writeSheet(w io.Writer, sheet *Stylesheet) (int64, error) {
	var total int64
	for i, item := range sheet.Items {
		var n int
		var err error

		switch {
		case item.Media != nil:
			n, err = sw.writeMediaBlock(w, item.Media)
		case item.Rule != nil:
			n, err = sw.writeRule(w, item.Rule, "")
		}

		total += int64(n)
		if err != nil {
			return total, err
		}

		// Blank line between items (except after last)
		if !sw.opts.Compress && i < len(sheet.Items)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// writeRule writes a single rule. Selector and declaration order is
// preserved exactly as stored so that a filter/merge result round-trips
// without content changes.
func (sw writer) writeRule(w io.Writer, rule *Rule, prefix string) (int, error) {
	var total int
	var n int
	var err error

	if sw.opts.Compress {
		n, err = fmt.Fprintf(w, "%s{", strings.Join(rule.Selectors, ","))
	} else {
		n, err = fmt.Fprintf(w, "%s%s {\n", prefix, strings.Join(rule.Selectors, ", "))
	}
	total += n
	if err != nil {
		return total, err
	}

	for _, d := range rule.Declarations {
		if sw.opts.Compress {
			n, err = fmt.Fprintf(w, "%s:%s;", d.Property, d.Value)
		} else {
			n, err = fmt.Fprintf(w, "%s%s%s: %s;\n", prefix, sw.indent(), d.Property, d.Value)
		}
		total += n
		if err != nil {
			return total, err
		}
	}

	if sw.opts.Compress {
		n, err = fmt.Fprint(w, "}")
	} else {
		n, err = fmt.Fprintf(w, "%s}\n", prefix)
	}
	total += n
	return total, err
}

// writeMediaBlock writes an @media block and its inner rules.
func (sw writer) writeMediaBlock(w io.Writer, mb *MediaBlock) (int, error) {
	var total int
	var n int
	var err error

	if sw.opts.Compress {
		n, err = fmt.Fprintf(w, "@media %s{", mb.Condition)
	} else {
		n, err = fmt.Fprintf(w, "@media %s {\n", mb.Condition)
	}
	total += n
	if err != nil {
		return total, err
	}

	for i, rule := range mb.Rules {
		n, err = sw.writeRule(w, rule, sw.indent())
		total += n
		if err != nil {
			return total, err
		}
		if !sw.opts.Compress && i < len(mb.Rules)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += n
			if err != nil {
				return total, err
			}
		}
	}

	n, err = fmt.Fprint(w, "}")
	total += n
	if err != nil {
		return total, err
	}
	if !sw.opts.Compress {
		n, err = fmt.Fprint(w, "\n")
		total += n
	}
	return total, err
}
