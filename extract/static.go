package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
)

// StaticDiscoverer matches candidate selectors against the fetched DOM
// without rendering. It has no layout information, so every selector
// present in the document is considered critical regardless of position.
type StaticDiscoverer struct {
	log       *zap.Logger
	client    *http.Client
	userAgent string
}

// NewStaticDiscoverer creates a discoverer that fetches the page over
// plain HTTP and matches selectors with a CSS matcher.
func NewStaticDiscoverer(log *zap.Logger, client *http.Client, userAgent string) *StaticDiscoverer {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &StaticDiscoverer{log: log.Named("static"), client: client, userAgent: userAgent}
}

// Critical fetches pageURL and returns the candidate selectors with at
// least one match in the document. The viewport is ignored: presence in
// the DOM is the only signal available without rendering.
func (d *StaticDiscoverer) Critical(ctx context.Context, pageURL string, vp Viewport, selectors []string) ([]string, error) {
	d.log.Debug("Fetching page", zap.String("url", pageURL), zap.Stringer("viewport", vp))

	body, err := fetchURL(ctx, d.client, pageURL, d.userAgent)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to parse document '%s': %w", pageURL, err)
	}

	var matched []string
	for _, sel := range selectors {
		matcher, err := cascadia.Compile(matchableSelector(sel))
		if err != nil {
			d.log.Debug("Skipping unmatchable selector", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if doc.FindMatcher(matcher).Length() > 0 {
			matched = append(matched, sel)
		}
	}

	d.log.Debug("Static match finished", zap.Int("candidates", len(selectors)), zap.Int("matched", len(matched)))
	return matched, nil
}

// fetchURL downloads a URL body as a string.
func fetchURL(ctx context.Context, client *http.Client, url, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("unable to build request for '%s': %w", url, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "*/*")

	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("unable to fetch '%s': %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unable to fetch '%s': status %d %s", url, res.StatusCode, res.Status)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("unable to read '%s': %w", url, err)
	}
	return string(data), nil
}
