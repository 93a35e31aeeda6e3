package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserOptions configures the Chrome instance behind a Browser.
type BrowserOptions struct {
	Headless bool
	// ProfileDir keeps cookies between runs so the seller stays logged in.
	ProfileDir   string
	TypeDelayMin time.Duration
	TypeDelayMax time.Duration
}

// Browser is a Page backed by one Chrome tab through the DevTools protocol.
type Browser struct {
	tab     context.Context
	cancel  context.CancelFunc
	typeMin time.Duration
	typeMax time.Duration
}

// Launch starts Chrome and opens a blank tab. The browser lives until Close
// is called or parent is done.
func Launch(parent context.Context, opts BrowserOptions) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1280, 1024),
	)
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tab); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &Browser{
		tab: tab,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		typeMin: opts.TypeDelayMin,
		typeMax: opts.TypeDelayMax,
	}, nil
}

// Close shuts the tab and the browser process down.
func (b *Browser) Close() error {
	b.cancel()
	return nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, chromedp.Navigate(url))
}

func (b *Browser) Reload(ctx context.Context) error {
	return b.run(ctx, chromedp.Reload())
}

func (b *Browser) WaitVisible(ctx context.Context, sel Selector) error {
	return b.run(ctx, chromedp.WaitVisible(sel.Query, queryBy(sel)))
}

func (b *Browser) Click(ctx context.Context, sel Selector) error {
	return b.run(ctx, chromedp.Click(sel.Query, queryBy(sel), chromedp.NodeVisible))
}

// Fill clears the element and sends text one rune at a time with a short
// random delay between keys.
func (b *Browser) Fill(ctx context.Context, sel Selector, text string) error {
	by := queryBy(sel)
	actions := []chromedp.Action{
		chromedp.SetValue(sel.Query, "", by),
		chromedp.Focus(sel.Query, by),
	}
	for _, r := range text {
		actions = append(actions,
			chromedp.SendKeys(sel.Query, string(r), by),
			chromedp.Sleep(b.typeDelay()),
		)
	}
	return b.run(ctx, actions...)
}

const setValueScript = `(function(q, xpath, value) {
	const el = xpath
		? document.evaluate(q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue
		: document.querySelector(q);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%s, %t, %s)`

// Select assigns value and fires a bubbling change event so the form's
// listeners see it.
func (b *Browser) Select(ctx context.Context, sel Selector, value string) error {
	query, err := json.Marshal(sel.Query)
	if err != nil {
		return err
	}
	quoted, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var found bool
	script := fmt.Sprintf(setValueScript, query, sel.XPath, quoted)
	if err := b.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("element not found: %s", sel.Query)
	}
	return nil
}

func (b *Browser) Upload(ctx context.Context, sel Selector, files []string) error {
	return b.run(ctx, chromedp.SetUploadFiles(sel.Query, files, queryBy(sel)))
}

// run executes actions on the tab, bounded by ctx. Cancelling ctx aborts the
// actions without closing the tab.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tab)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (b *Browser) typeDelay() time.Duration {
	if b.typeMax <= b.typeMin {
		return b.typeMin
	}
	return b.typeMin + rand.N(b.typeMax-b.typeMin+1)
}

func queryBy(sel Selector) chromedp.QueryOption {
	if sel.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
