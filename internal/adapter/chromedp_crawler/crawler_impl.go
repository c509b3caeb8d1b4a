package chromedp_crawler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/proxy"
	"github.com/user/activity-monitor/internal/repository"
)

// Executables looked up on PATH when no ExecPath is configured.
var chromeCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// Config configures the headless browser.
type Config struct {
	ExecPath       string
	AcceptLanguage string
	// PageTimeout bounds one render, navigation and settle included.
	PageTimeout time.Duration
}

// ChromedpRenderer renders pages in a shared headless Chrome, one tab per page.
type ChromedpRenderer struct {
	cfg     Config
	proxies *proxy.Manager
	logger  *zap.Logger

	mu         sync.Mutex
	browserCtx context.Context
	cancel     context.CancelFunc
}

// NewChromedpRenderer creates the renderer. The browser itself starts on the
// first Render call.
func NewChromedpRenderer(cfg Config, proxies *proxy.Manager, logger *zap.Logger) *ChromedpRenderer {
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "ja,en;q=0.8"
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	if proxies == nil {
		proxies = proxy.NewManager(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpRenderer{cfg: cfg, proxies: proxies, logger: logger}
}

var _ repository.PageRenderer = (*ChromedpRenderer)(nil)

// Available reports ErrRendererUnavailable when no Chrome executable exists.
func (c *ChromedpRenderer) Available() error {
	_, err := c.execPath()
	return err
}

func (c *ChromedpRenderer) execPath() (string, error) {
	if c.cfg.ExecPath != "" {
		if _, err := os.Stat(c.cfg.ExecPath); err != nil {
			return "", fmt.Errorf("%w: %v", repository.ErrRendererUnavailable, err)
		}
		return c.cfg.ExecPath, nil
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no chrome executable found", repository.ErrRendererUnavailable)
}

// browser returns the running browser, starting one if needed.
func (c *ChromedpRenderer) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil && c.browserCtx.Err() == nil {
		return c.browserCtx, nil
	}

	path, err := c.execPath()
	if err != nil {
		return nil, err
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p := c.proxies.GetProxy(); p != "" {
		opts = append(opts, chromedp.ProxyServer(p))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: %v", repository.ErrRendererUnavailable, err)
	}

	c.browserCtx = browserCtx
	c.cancel = func() {
		cancelBrowser()
		cancelAlloc()
	}
	c.logger.Info("headless browser started", zap.String("exec_path", path))
	return browserCtx, nil
}

// Render opens url in a new tab and returns the document HTML once the body
// is ready and opts.Settle has passed. HTTP error statuses fail the render.
func (c *ChromedpRenderer) Render(ctx context.Context, url string, opts repository.RenderOptions) (string, error) {
	browserCtx, err := c.browser()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()
	tabCtx, cancel := context.WithTimeout(tabCtx, c.cfg.PageTimeout)
	defer cancel()

	ua := c.proxies.GetUserAgent()
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": c.cfg.AcceptLanguage}),
		emulation.SetUserAgentOverride(ua).WithAcceptLanguage(c.cfg.AcceptLanguage),
	); err != nil {
		return "", c.renderErr(ctx, err)
	}

	start := time.Now()
	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return "", c.renderErr(ctx, err)
	}
	if resp != nil && resp.Status >= 400 {
		return "", fmt.Errorf("http status %d", resp.Status)
	}

	var html string
	actions := []chromedp.Action{chromedp.WaitReady("body", chromedp.ByQuery)}
	if opts.Settle > 0 {
		actions = append(actions, chromedp.Sleep(opts.Settle))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", c.renderErr(ctx, err)
	}

	c.logger.Debug("page rendered", zap.String("url", url), zap.Duration("duration", time.Since(start)), zap.Int("bytes", len(html)))
	return html, nil
}

// renderErr prefers the caller's cancellation over chromedp's own error.
func (c *ChromedpRenderer) renderErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("page load timed out after %s", c.cfg.PageTimeout)
	}
	return err
}

// Close stops the browser.
func (c *ChromedpRenderer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.browserCtx = nil
	}
}
