package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Viewport is a browser window size for which critical CSS is collected.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// A Discoverer decides which of the candidate selectors match
// above-the-fold content of a page at a given viewport.
type Discoverer interface {
	Critical(ctx context.Context, pageURL string, vp Viewport, selectors []string) ([]string, error)
}

// criticalProbeJS runs inside the page: for every candidate selector it
// reports whether some matching element intersects the fold. Pseudo
// suffixes are stripped before querying, the original selector text is
// returned untouched.
const criticalProbeJS = `(selectors) => {
	const fold = window.innerHeight;
	const out = [];
	for (const sel of selectors) {
		const base = sel.replace(/::?[a-zA-Z-][^,]*$/, '').trim() || sel;
		let nodes;
		try {
			nodes = document.querySelectorAll(base);
		} catch (e) {
			continue;
		}
		for (const n of nodes) {
			const r = n.getBoundingClientRect();
			if (r.top < fold && r.bottom >= 0) {
				out.push(sel);
				break;
			}
		}
	}
	return out;
}`

// BrowserDiscoverer renders the page in headless Chrome and checks
// candidate selectors against the rendered layout.
type BrowserDiscoverer struct {
	log          *zap.Logger
	settleDelay  time.Duration
	allocContext context.Context
	cancelAlloc  context.CancelFunc
}

// NewBrowserDiscoverer creates a discoverer backed by a headless Chrome
// allocator. Close must be called to release the browser.
func NewBrowserDiscoverer(log *zap.Logger, userAgent string, settleDelay time.Duration) *BrowserDiscoverer {
	if log == nil {
		log = zap.NewNop()
	}
	opts := chromedp.DefaultExecAllocatorOptions[:]
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	allocContext, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	if settleDelay == 0 {
		settleDelay = 2 * time.Second
	}
	return &BrowserDiscoverer{
		log:          log.Named("browser"),
		settleDelay:  settleDelay,
		allocContext: allocContext,
		cancelAlloc:  cancelAlloc,
	}
}

// Close releases the browser allocator.
func (d *BrowserDiscoverer) Close() {
	d.cancelAlloc()
}

// Critical navigates to pageURL at the given viewport and returns the
// candidate selectors that match content intersecting the fold.
func (d *BrowserDiscoverer) Critical(ctx context.Context, pageURL string, vp Viewport, selectors []string) ([]string, error) {
	d.log.Debug("Probing page",
		zap.String("url", pageURL),
		zap.Stringer("viewport", vp),
		zap.Int("candidates", len(selectors)))

	tabCtx, cancel := chromedp.NewContext(d.allocContext)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	encoded, err := json.Marshal(selectors)
	if err != nil {
		return nil, fmt.Errorf("unable to encode candidate selectors: %w", err)
	}

	var matched []string
	err = chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !d.log.Core().Enabled(zap.DebugLevel) {
				return nil
			}
			_, product, _, userAgent, _, err := browser.GetVersion().Do(ctx)
			if err != nil {
				d.log.Warn("failed to get chrome version", zap.Error(err))
				return nil
			}
			d.log.Debug("chrome version", zap.String("product", product), zap.String("userAgent", userAgent))
			return nil
		}),
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(d.settleDelay),
		chromedp.Evaluate(fmt.Sprintf("(%s)(%s)", criticalProbeJS, encoded), &matched),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to probe '%s' at %s: %w", pageURL, vp, err)
	}

	d.log.Debug("Probe finished", zap.Stringer("viewport", vp), zap.Int("matched", len(matched)))
	return matched, nil
}

// matchableSelector strips a trailing pseudo-class or pseudo-element so
// the remaining base can be queried against a DOM. Selectors that are
// nothing but a pseudo (e.g. ":root") are returned as given.
func matchableSelector(sel string) string {
	if i := strings.Index(sel, ":"); i > 0 {
		return strings.TrimSpace(sel[:i])
	}
	return sel
}
