package collector

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"PriceSentinel/internal/model"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	settleDelay = 1 * time.Second
	scrollPause = 350 * time.Millisecond
)

// consentScript clicks the first cookie consent button it finds.
const consentScript = `(() => {
  for (const sel of ['#onetrust-accept-btn-handler', "[data-testid='onetrust-accept-btn-handler']"]) {
    const el = document.querySelector(sel);
    if (el) { el.click(); return true; }
  }
  const labels = ['godta', 'aksepter alle', 'accept all'];
  for (const b of document.querySelectorAll('button')) {
    const t = (b.innerText || '').trim().toLowerCase();
    if (labels.some(l => t.startsWith(l))) { b.click(); return true; }
  }
  return false;
})()`

// ChromeRenderer renders pages in headless Chrome. A single tab is reused for
// every page, so calls are serialized.
type ChromeRenderer struct {
	opts        Options
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewChromeRenderer prepares the browser allocator. Chrome itself starts on
// the first Render.
func NewChromeRenderer(opts Options) *ChromeRenderer {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", opts.Locale),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	return &ChromeRenderer{
		opts:        opts,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}
}

func (r *ChromeRenderer) Name() string { return "chrome" }

// start launches the browser on the long-lived tab context, so per-page
// timeouts never tear the browser down.
func (r *ChromeRenderer) start() error {
	if r.started {
		return nil
	}
	if err := chromedp.Run(r.tabCtx); err != nil {
		return fmt.Errorf("start chrome: %w", err)
	}
	r.started = true
	log.Printf("[INFO] Chrome started (locale %s)", r.opts.Locale)
	return nil
}

// Render loads url, dismisses the cookie banner, scrolls to trigger lazy
// content and returns the visible text.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (*model.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.start(); err != nil {
		return nil, &RenderError{URL: url, Err: fmt.Errorf("%w: %v", ErrRender, err)}
	}

	pageCtx, cancel := context.WithTimeout(r.tabCtx, r.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var title, text, html, finalURL string
	err := chromedp.Run(pageCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage(r.opts.Locale)}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.ActionFunc(acceptCookies),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return scroll(ctx, r.opts.ScrollRounds)
		}),
		chromedp.Title(&title),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return nil, renderFailure(pageCtx, url, err)
	}

	return &model.Page{URL: url, FinalURL: finalURL, Title: title, Text: text, HTML: html}, nil
}

func acceptCookies(ctx context.Context) error {
	var clicked bool
	if err := chromedp.Evaluate(consentScript, &clicked).Do(ctx); err != nil {
		log.Printf("[WARN] Cookie consent check failed: %v", err)
		return nil
	}
	if clicked {
		return chromedp.Sleep(400 * time.Millisecond).Do(ctx)
	}
	return nil
}

func scroll(ctx context.Context, rounds int) error {
	for i := 0; i < rounds; i++ {
		if err := chromedp.Evaluate(`window.scrollBy(0, 1000)`, nil).Do(ctx); err != nil {
			return err
		}
		if err := chromedp.Sleep(scrollPause).Do(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the tab and the browser.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabCancel()
	r.allocCancel()
	return nil
}
