package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Renderer turns an HTML document into an image.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// ChromeConfig configures the headless browser used for screenshots.
type ChromeConfig struct {
	// RemoteURL is a DevTools websocket URL of an already running browser.
	// When empty a local Chrome is started.
	RemoteURL string
	ExecPath  string
	Width     int
	Height    int
	Selector  string
	Timeout   time.Duration
	Settle    time.Duration
}

// Chrome screenshots pages in a shared headless browser, opening one tab
// per render.
type Chrome struct {
	cfg ChromeConfig

	mu      sync.Mutex
	browser context.Context
	cancels []context.CancelFunc
}

func NewChrome(cfg ChromeConfig) *Chrome {
	if cfg.Width <= 0 {
		cfg.Width = 1050
	}
	if cfg.Height <= 0 {
		cfg.Height = 1200
	}
	if cfg.Selector == "" {
		cfg.Selector = "#container"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Chrome{cfg: cfg}
}

func (c *Chrome) browserContext() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil && c.browser.Err() == nil {
		return c.browser, nil
	}

	var (
		alloc       context.Context
		cancelAlloc context.CancelFunc
	)
	if c.cfg.RemoteURL != "" {
		alloc, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), c.cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(c.cfg.Width, c.cfg.Height),
			chromedp.Flag("hide-scrollbars", true),
		)
		if c.cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
		}
		alloc, cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	browser, cancelBrowser := chromedp.NewContext(alloc)
	// The first Run starts the browser.
	if err := chromedp.Run(browser); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	slog.Info("headless browser started", "remote", c.cfg.RemoteURL != "")
	c.browser = browser
	c.cancels = []context.CancelFunc{cancelBrowser, cancelAlloc}
	return browser, nil
}

// Render loads html into a fresh tab and screenshots the configured
// selector as PNG.
func (c *Chrome) Render(ctx context.Context, html string) ([]byte, error) {
	browser, err := c.browserContext()
	if err != nil {
		return nil, err
	}

	tab, cancelTab := chromedp.NewContext(browser)
	defer cancelTab()
	tab, cancelTimeout := context.WithTimeout(tab, c.cfg.Timeout)
	defer cancelTimeout()

	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var buf []byte
	err = chromedp.Run(tab,
		chromedp.EmulateViewport(int64(c.cfg.Width), int64(c.cfg.Height)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitVisible(c.cfg.Selector, chromedp.ByQuery),
		chromedp.Sleep(c.cfg.Settle),
		chromedp.Screenshot(c.cfg.Selector, &buf, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot status page: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.browser = nil
}
