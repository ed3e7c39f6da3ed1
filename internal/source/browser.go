// internal/source/browser.go
// Package: source
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mwiater/loadbench/internal/metrics"
)

// Page is one browser tab. Every call is bounded by ctx.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Poll(ctx context.Context, expr string) error
	ClickWhenEnabled(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, expr string, out any) error
	Close() error
}

// Tabs opens pages in a shared browser context.
type Tabs interface {
	NewPage(ctx context.Context) (Page, error)
}

// BrowserOptions configures the page protocol.
type BrowserOptions struct {
	URL           string
	Timeout       time.Duration
	StartSelector string
	MetricsGlobal string
	// Product is the browser version string reported by the launcher.
	Product string
}

// Browser drives a live page through the load protocol, one tab per trial.
type Browser struct {
	tabs Tabs
	opts BrowserOptions
	log  *logrus.Entry

	userAgent  string
	uaCaptured bool
}

// NewBrowser returns a live source using tabs. Zero option fields fall back
// to the page contract defaults.
func NewBrowser(tabs Tabs, opts BrowserOptions, log *logrus.Entry) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.StartSelector == "" {
		opts.StartSelector = "#start-button"
	}
	if opts.MetricsGlobal == "" {
		opts.MetricsGlobal = "droneforgeMetrics"
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Browser{tabs: tabs, opts: opts, log: log.WithField("component", "browser")}
}

// Identity returns the browser product and the user agent seen on the first
// trial.
func (b *Browser) Identity() Identity {
	return Identity{Browser: b.opts.Product, UserAgent: b.userAgent}
}

// Produce runs the protocol once. The tab is closed on every path.
func (b *Browser) Produce(ctx context.Context, run int) (raw metrics.Raw, err error) {
	if b.tabs == nil {
		return raw, errors.New("browser not launched")
	}
	page, err := b.tabs.NewPage(ctx)
	if err != nil {
		return raw, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			b.log.WithFields(logrus.Fields{"run": run, "err": cerr}).Debug("closing page failed")
		}
	}()

	log := b.log.WithField("run", run)

	if err := b.step(ctx, "navigate", func(ctx context.Context) error {
		return page.Navigate(ctx, b.opts.URL)
	}); err != nil {
		return raw, err
	}

	if !b.uaCaptured {
		var ua string
		if err := b.step(ctx, "read user agent", func(ctx context.Context) error {
			return page.Evaluate(ctx, "navigator.userAgent", &ua)
		}); err != nil {
			// retried on the next trial
			log.WithField("err", err).Warn("user agent unavailable")
		} else {
			b.userAgent = ua
			b.uaCaptured = true
			log.WithField("userAgent", ua).Debug("captured user agent")
		}
	}

	if err := b.step(ctx, "wait for gameLoadStart", func(ctx context.Context) error {
		return page.Poll(ctx, exprLoadStart)
	}); err != nil {
		return raw, err
	}
	if err := b.step(ctx, "wait for gameReady", func(ctx context.Context) error {
		return page.Poll(ctx, exprReady)
	}); err != nil {
		return raw, err
	}
	if err := b.step(ctx, "start", func(ctx context.Context) error {
		return page.ClickWhenEnabled(ctx, b.opts.StartSelector)
	}); err != nil {
		return raw, err
	}
	if err := b.step(ctx, "wait for first frame", func(ctx context.Context) error {
		return page.Poll(ctx, firstFrameExpr(b.opts.MetricsGlobal))
	}); err != nil {
		return raw, err
	}
	if err := b.step(ctx, "read metrics", func(ctx context.Context) error {
		return page.Evaluate(ctx, readMetricsExpr(b.opts.MetricsGlobal), &raw)
	}); err != nil {
		return metrics.Raw{}, err
	}

	log.Debug("trial finished")
	return raw, nil
}

// step runs fn under the navigation timeout and names the failing step.
func (b *Browser) step(ctx context.Context, name string, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	if err := fn(stepCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: timed out after %s", name, b.opts.Timeout)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

const (
	exprLoadStart = `typeof window.gameLoadStart === "number"`
	exprReady     = `window.gameReady === true`
)

func firstFrameExpr(global string) string {
	return fmt.Sprintf(`(() => { const m = window[%q]; return !!m && typeof m.firstFrameAt === "number" && typeof m.firstFrameDelta === "number"; })()`, global)
}

func readMetricsExpr(global string) string {
	return fmt.Sprintf(`window[%q]`, global)
}
