package extract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"critcss/critical"
	"critcss/css"
	"critcss/extract"
)

const testPage = `<!doctype html>
<html>
<head>
<link rel="stylesheet" href="/main.css">
<style>.inline { padding: 0; }</style>
</head>
<body>
<h1 class="a">hello</h1>
<p class="b">world</p>
</body>
</html>`

const testCSS = `.a { color: red; }
.b { color: blue; }
.unused { color: gray; }
@media screen and (min-width: 768px) { .c { color: green; } }`

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage)) //nolint:errcheck
	})
	mux.HandleFunc("/main.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		w.Write([]byte(testCSS)) //nolint:errcheck
	})
	return httptest.NewServer(mux)
}

// fakeDiscoverer returns a fixed selector set per viewport.
type fakeDiscoverer struct {
	byViewport map[string][]string
}

func (f fakeDiscoverer) Critical(_ context.Context, _ string, vp extract.Viewport, _ []string) ([]string, error) {
	return f.byViewport[vp.String()], nil
}

func TestCollectStylesheets(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	sources, err := extract.CollectStylesheets(context.Background(), zap.NewNop(), srv.Client(), srv.URL, "")
	if err != nil {
		t.Fatalf("CollectStylesheets failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected linked + inline source, got %d", len(sources))
	}
	if !strings.HasSuffix(sources[0].Name, "/main.css") {
		t.Errorf("expected first source to be the linked stylesheet, got %q", sources[0].Name)
	}
	if string(sources[0].Data) != testCSS {
		t.Error("linked stylesheet content mismatch")
	}
	if !strings.Contains(string(sources[1].Data), ".inline") {
		t.Errorf("expected inline style block content, got %q", sources[1].Data)
	}
}

func TestStaticDiscoverer(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	d := extract.NewStaticDiscoverer(zap.NewNop(), srv.Client(), "")
	got, err := d.Critical(context.Background(), srv.URL, extract.Viewport{Width: 1300, Height: 900},
		[]string{".a", ".b", ".unused", "h1:hover", "p::first-line"})
	if err != nil {
		t.Fatalf("Critical failed: %v", err)
	}

	want := map[string]bool{".a": true, ".b": true, "h1:hover": true, "p::first-line": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d matched selectors, got %v", len(want), got)
	}
	for _, s := range got {
		if !want[s] {
			t.Errorf("unexpected matched selector %q", s)
		}
	}
}

func TestExtractor_Run(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	disc := fakeDiscoverer{byViewport: map[string][]string{
		"375x667":  {".a", ".c"},
		"1300x900": {".a", ".b"},
	}}
	e := extract.New(zap.NewNop(), disc, extract.Options{
		Viewports: []extract.Viewport{
			{Width: 375, Height: 667},
			{Width: 1300, Height: 900},
		},
	})

	out, err := e.Run(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sheet, err := css.NewParser(zap.NewNop()).Parse([]byte(out), css.ParseOptions{Silent: true})
	if err != nil {
		t.Fatalf("failed to re-parse output: %v", err)
	}

	var plain, media int
	for _, item := range sheet.Items {
		switch {
		case item.Rule != nil:
			plain++
			if item.Rule.Selectors[0] == ".unused" {
				t.Error("unused rule survived extraction")
			}
		case item.Media != nil:
			media++
			if len(item.Media.Rules) != 1 || item.Media.Rules[0].Selectors[0] != ".c" {
				t.Errorf("unexpected media block content: %+v", item.Media.Rules)
			}
		}
	}

	// .a must appear once even though both viewports reported it.
	if strings.Count(out, ".a") != 1 {
		t.Errorf("expected .a deduplicated across viewports:\n%s", out)
	}
	if plain != 2 {
		t.Errorf("expected .a and .b as plain rules, got %d:\n%s", plain, out)
	}
	if media != 1 {
		t.Errorf("expected a single media block, got %d:\n%s", media, out)
	}
}

func TestExtractor_ForceInclude(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	fi, err := critical.ParseForceInclude([]string{".unused"})
	if err != nil {
		t.Fatalf("ParseForceInclude failed: %v", err)
	}

	disc := fakeDiscoverer{byViewport: map[string][]string{"1300x900": {".a"}}}
	e := extract.New(zap.NewNop(), disc, extract.Options{
		Viewports:    []extract.Viewport{{Width: 1300, Height: 900}},
		ForceInclude: fi,
	})

	out, err := e.Run(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out, ".unused") {
		t.Errorf("expected force-included selector in output:\n%s", out)
	}
}

func TestExtractor_NoStylesheets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>empty</body></html>`)) //nolint:errcheck
	}))
	defer srv.Close()

	e := extract.New(zap.NewNop(), fakeDiscoverer{}, extract.Options{})
	if _, err := e.Run(context.Background(), srv.URL); err == nil {
		t.Error("expected error for page without stylesheets")
	}
}
