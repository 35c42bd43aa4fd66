package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StylesheetSource is one piece of CSS collected from a page: an external
// stylesheet or an inline style block.
type StylesheetSource struct {
	Name string // URL of the stylesheet or "inline#N" for style blocks
	Data []byte
}

// CollectStylesheets fetches pageURL and downloads every linked
// stylesheet, returning the sources in document order followed by inline
// style blocks. Failures on individual stylesheets are aggregated and
// returned alongside whatever was collected.
func CollectStylesheets(ctx context.Context, log *zap.Logger, client *http.Client, pageURL, userAgent string) ([]StylesheetSource, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{}
	}

	body, err := fetchURL(ctx, client, pageURL, userAgent)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to parse document '%s': %w", pageURL, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse page URL '%s': %w", pageURL, err)
	}

	var sources []StylesheetSource
	var errs error

	doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := base.Parse(href)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to resolve stylesheet href '%s': %w", href, err))
			return
		}
		data, err := fetchURL(ctx, client, ref.String(), userAgent)
		if err != nil {
			errs = multierr.Append(errs, err)
			return
		}
		log.Debug("Collected stylesheet", zap.String("url", ref.String()), zap.Int("bytes", len(data)))
		sources = append(sources, StylesheetSource{Name: ref.String(), Data: []byte(data)})
	})

	doc.Find("style").Each(func(i int, sel *goquery.Selection) {
		text := sel.Text()
		if strings.TrimSpace(text) == "" {
			return
		}
		name := fmt.Sprintf("inline#%d", i)
		log.Debug("Collected inline style block", zap.String("name", name), zap.Int("bytes", len(text)))
		sources = append(sources, StylesheetSource{Name: name, Data: []byte(text)})
	})

	if len(sources) == 0 && errs == nil {
		log.Warn("Page has no stylesheets", zap.String("url", pageURL))
	}
	return sources, errs
}
