package css_test

import (
	"testing"

	"go.uber.org/zap"

	"critcss/css"
)

func parse(t *testing.T, text string) *css.Stylesheet {
	t.Helper()
	sheet, err := css.NewParser(zap.NewNop()).Parse([]byte(text), css.ParseOptions{Silent: true, Source: "test"})
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return sheet
}

func TestParser_PlainRule(t *testing.T) {
	sheet := parse(t, `.a { color: red; font-size: 1em; }`)

	if len(sheet.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(sheet.Items))
	}
	rule := sheet.Items[0].Rule
	if rule == nil {
		t.Fatal("expected a plain rule")
	}
	if len(rule.Selectors) != 1 || rule.Selectors[0] != ".a" {
		t.Errorf("expected selector .a, got %v", rule.Selectors)
	}

	want := []css.Declaration{
		{Property: "color", Value: "red"},
		{Property: "font-size", Value: "1em"},
	}
	if len(rule.Declarations) != len(want) {
		t.Fatalf("expected %d declarations, got %d", len(want), len(rule.Declarations))
	}
	for i, d := range want {
		if rule.Declarations[i] != d {
			t.Errorf("declaration %d: expected %+v, got %+v", i, d, rule.Declarations[i])
		}
	}
}

func TestParser_GroupedSelectors(t *testing.T) {
	sheet := parse(t, `h1, .title, div.header { margin: 0; }`)

	rule := sheet.Items[0].Rule
	want := []string{"h1", ".title", "div.header"}
	if len(rule.Selectors) != len(want) {
		t.Fatalf("expected %d selectors, got %v", len(want), rule.Selectors)
	}
	for i, s := range want {
		if rule.Selectors[i] != s {
			t.Errorf("selector %d: expected %q, got %q", i, s, rule.Selectors[i])
		}
	}
}

func TestParser_CompoundSelectorKeptVerbatim(t *testing.T) {
	sheet := parse(t, `.a.b { color: red; }`)

	if got := sheet.Items[0].Rule.Selectors[0]; got != ".a.b" {
		t.Errorf("expected compound selector .a.b kept verbatim, got %q", got)
	}
}

func TestParser_DescendantSelectorKeptVerbatim(t *testing.T) {
	sheet := parse(t, `.nav li a { color: red; }`)

	if got := sheet.Items[0].Rule.Selectors[0]; got != ".nav li a" {
		t.Errorf("expected descendant selector kept verbatim, got %q", got)
	}
}

func TestParser_MultiTokenValue(t *testing.T) {
	sheet := parse(t, `.a { border: 1px solid red; }`)

	d := sheet.Items[0].Rule.Declarations[0]
	if d.Property != "border" || d.Value != "1px solid red" {
		t.Errorf("expected border: 1px solid red, got %s: %s", d.Property, d.Value)
	}
}

func TestParser_MediaBlock(t *testing.T) {
	sheet := parse(t, `
@media screen and (min-width: 768px) {
  .a { color: red; }
  .b { color: blue; }
}`)

	if len(sheet.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(sheet.Items))
	}
	mb := sheet.Items[0].Media
	if mb == nil {
		t.Fatal("expected a media block")
	}
	if mb.Condition != "screen and (min-width: 768px)" {
		t.Errorf("unexpected media condition %q", mb.Condition)
	}
	if len(mb.Rules) != 2 {
		t.Fatalf("expected 2 inner rules, got %d", len(mb.Rules))
	}
	if mb.Rules[0].Selectors[0] != ".a" || mb.Rules[1].Selectors[0] != ".b" {
		t.Errorf("inner rules out of order: %+v", mb.Rules)
	}
}

func TestParser_ItemOrderPreserved(t *testing.T) {
	sheet := parse(t, `
.a { color: red; }
@media screen { .m { color: green; } }
.b { color: blue; }`)

	if len(sheet.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(sheet.Items))
	}
	if sheet.Items[0].Rule == nil || sheet.Items[1].Media == nil || sheet.Items[2].Rule == nil {
		t.Errorf("items out of order: %+v", sheet.Items)
	}
}

func TestParser_SkipsOtherAtRules(t *testing.T) {
	sheet := parse(t, `
@import url("other.css");
@font-face { font-family: "X"; src: url("x.woff2"); }
@keyframes spin { from { transform: rotate(0deg); } to { transform: rotate(360deg); } }
.a { color: red; }`)

	if len(sheet.Items) != 1 {
		t.Fatalf("expected only the plain rule to remain, got %d items", len(sheet.Items))
	}
	if sheet.Items[0].Rule == nil || sheet.Items[0].Rule.Selectors[0] != ".a" {
		t.Errorf("expected .a rule, got %+v", sheet.Items[0])
	}
}

func TestParser_CustomProperty(t *testing.T) {
	sheet := parse(t, `:root { --main-color: #333; }`)

	rule := sheet.Items[0].Rule
	if len(rule.Declarations) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(rule.Declarations))
	}
	if rule.Declarations[0].Property != "--main-color" {
		t.Errorf("expected custom property kept, got %+v", rule.Declarations[0])
	}
}

func TestParser_SourceTag(t *testing.T) {
	sheet, err := css.NewParser(zap.NewNop()).Parse([]byte(`.a { color: red; }`), css.ParseOptions{Source: "main.css"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if sheet.Source != "main.css" {
		t.Errorf("expected source tag main.css, got %q", sheet.Source)
	}
}

func TestParser_SilentToleratesGarbage(t *testing.T) {
	sheet := parse(t, `.a { color: red; } !!not-css@@ .b { color: blue; }`)

	if len(sheet.Items) == 0 {
		t.Error("expected best-effort tree from silent parse")
	}
}

func TestParser_EmptyInput(t *testing.T) {
	sheet := parse(t, ``)
	if len(sheet.Items) != 0 {
		t.Errorf("expected no items, got %d", len(sheet.Items))
	}
}
