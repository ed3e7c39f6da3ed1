// internal/source/chrome.go
// Package: source
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the Chrome process.
type ChromeOptions struct {
	Headless bool
	ExecPath string
}

// Chrome owns one Chrome process and its browser context. Tabs opened with
// NewPage share that context.
type Chrome struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// Product is the browser name and version, e.g. "HeadlessChrome/126.0".
	Product string
}

// LaunchChrome starts Chrome and waits until it answers.
func LaunchChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{allocCancel: allocCancel, browserCtx: browserCtx, browserCancel: browserCancel}

	// The first Run allocates the browser; it must use the NewContext
	// context directly so the process outlives this call.
	if err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, product, _, _, _, err := browser.GetVersion().Do(ctx)
		if err != nil {
			return err
		}
		c.Product = product
		return nil
	})); err != nil {
		c.Close()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return c, nil
}

// NewPage opens a new tab.
func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, err
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.browserCancel()
	c.allocCancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and blocks until the main frame reports network idle.
func (p *chromePage) Navigate(ctx context.Context, url string) error {
	var tree *page.FrameTree
	if err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	})); err != nil {
		return err
	}
	frameID, previous := tree.Frame.ID, tree.Frame.LoaderID

	idle := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(p.ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.Name != "networkIdle" || e.FrameID != frameID || e.LoaderID == previous {
			return
		}
		select {
		case idle <- struct{}{}:
		default:
		}
	})

	if err := p.run(ctx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(url),
	); err != nil {
		return err
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for network idle: %w", ctx.Err())
	}
}

func (p *chromePage) Poll(ctx context.Context, expr string) error {
	opts := []chromedp.PollOption{chromedp.WithPollingInterval(50 * time.Millisecond)}
	if dl, ok := ctx.Deadline(); ok {
		opts = append(opts, chromedp.WithPollingTimeout(time.Until(dl)))
	}
	var ok bool
	return p.run(ctx, chromedp.Poll(expr, &ok, opts...))
}

func (p *chromePage) ClickWhenEnabled(ctx context.Context, selector string) error {
	return p.run(ctx,
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (p *chromePage) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expr, out))
}

// Close closes the tab and waits for the target to go away.
func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}
