// Package pwbrowser hosts the guard inside a Chromium instance driven by
// playwright-go. Main-frame navigation requests are held until the guard
// decided on them, load events and history API changes are reported as tab
// status changes. Badges and notifications have no native surface here and are
// logged.
package pwbrowser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"urlguard/pkg/browser"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"
	"urlguard/pkg/serrors"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// historyBinding is the page function the init script reports client-side
// URL changes through.
const historyBinding = "__urlguardHistory"

const historyScript = `(() => {
  if (window.top !== window) return;
  const report = () => { try { window.` + historyBinding + `(location.href); } catch (e) {} };
  for (const m of ['pushState', 'replaceState']) {
    const orig = history[m];
    history[m] = function () { const r = orig.apply(this, arguments); report(); return r; };
  }
  window.addEventListener('popstate', report);
  window.addEventListener('hashchange', report);
})();`

// Decider receives the navigation attempts of the hosted tabs.
type Decider interface {
	Decide(ctx context.Context, nav domain.Navigation) domain.Decision
}

// Options configures the host.
type Options struct {
	// Headless runs Chromium without a window.
	Headless bool
	// Install downloads the driver and Chromium before launch.
	Install bool
	// Bypass lists URL prefixes loaded without a decision, e.g. the blocking page.
	Bypass []string
	// RedirectTimeout bounds a redirect until the new document committed.
	RedirectTimeout time.Duration
}

// Host is a browser.Browser backed by a playwright BrowserContext. Every page
// of the context is a tab; tab IDs are assigned in creation order starting at 1.
type Host struct {
	opts Options

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	decider Decider
	ctx     context.Context //nolint: containedctx

	mu      sync.RWMutex
	lastTab domain.TabID
	tabs    map[domain.TabID]playwright.Page
	ids     map[playwright.Page]domain.TabID

	wg sync.WaitGroup
}

var _ browser.Browser = (*Host)(nil)

func New(opts Options) *Host {
	if opts.RedirectTimeout <= 0 {
		opts.RedirectTimeout = 10 * time.Second
	}

	return &Host{
		opts: opts,
		tabs: make(map[domain.TabID]playwright.Page),
		ids:  make(map[playwright.Page]domain.TabID),
	}
}

// Start launches Chromium and routes every page of its context through decider.
// ctx carries the logger used by event handlers; cancelling it does not stop
// the browser, Stop does.
func (h *Host) Start(ctx context.Context, decider Decider) error {
	h.ctx = logger.Named(ctx, "browser")
	h.decider = decider

	if h.opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fmt.Errorf("could not install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("could not start playwright: %w", err)
	}
	h.pw = pw

	h.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(h.opts.Headless),
	})
	if err != nil {
		_ = h.Stop()

		return fmt.Errorf("could not launch chromium: %w", err)
	}

	h.bctx, err = h.browser.NewContext()
	if err != nil {
		_ = h.Stop()

		return fmt.Errorf("could not create browser context: %w", err)
	}

	if err := h.bctx.ExposeBinding(historyBinding, h.onHistory); err != nil {
		_ = h.Stop()

		return fmt.Errorf("could not expose history binding: %w", err)
	}
	if err := h.bctx.AddInitScript(playwright.Script{Content: playwright.String(historyScript)}); err != nil {
		_ = h.Stop()

		return fmt.Errorf("could not add history init script: %w", err)
	}
	// Routing is installed once on the context, before any page exists.
	// Event handlers run on the driver's dispatch goroutine, so nothing
	// registered below may call back into the driver synchronously.
	if err := h.bctx.Route("**/*", func(route playwright.Route) {
		h.spawn(func() { h.route(route) })
	}); err != nil {
		_ = h.Stop()

		return fmt.Errorf("could not route browser context: %w", err)
	}
	h.bctx.OnPage(func(page playwright.Page) { h.attach(page) })

	logger.Info(h.ctx, "browser host started", zap.Bool("headless", h.opts.Headless))

	return nil
}

// Open creates a new tab and navigates it to URL. The navigation goes through
// the guard like any other.
func (h *Host) Open(URL string) (domain.TabID, error) {
	if h.bctx == nil {
		return 0, serrors.With(serrors.ErrUnavailable, "browser host is not started")
	}

	page, err := h.bctx.NewPage()
	if err != nil {
		return 0, fmt.Errorf("could not open tab: %w", err)
	}
	tab := h.attach(page)

	if URL != "" {
		if _, err := page.Goto(URL); err != nil {
			logger.Warn(h.ctx, "could not load tab", zap.Int("tabId", int(tab)), zap.String("url", URL), zap.Error(err))
		}
	}

	return tab, nil
}

// attach registers page as a tab and subscribes to its events. It only
// touches local state, so it is safe on the driver's dispatch goroutine.
// Attaching an already known page returns its tab ID.
func (h *Host) attach(page playwright.Page) domain.TabID {
	h.mu.Lock()
	if tab, ok := h.ids[page]; ok {
		h.mu.Unlock()

		return tab
	}
	h.lastTab++
	tab := h.lastTab
	h.tabs[tab] = page
	h.ids[page] = tab
	h.mu.Unlock()

	page.OnLoad(func(p playwright.Page) {
		url := p.URL()
		h.spawn(func() { h.navigate(tab, url, domain.TriggerTabComplete) })
	})
	page.OnFrameNavigated(func(f playwright.Frame) {
		if f != page.MainFrame() {
			return
		}
		url := f.URL()
		h.spawn(func() { h.navigate(tab, url, domain.TriggerTabLoading) })
	})
	page.OnClose(func(playwright.Page) { h.detach(tab) })

	logger.Debug(h.ctx, "tab attached", zap.Int("tabId", int(tab)))

	return tab
}

func (h *Host) detach(tab domain.TabID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if page, ok := h.tabs[tab]; ok {
		delete(h.ids, page)
		delete(h.tabs, tab)
	}
}

func (h *Host) spawn(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

// tabOf resolves the tab whose main frame issued req. Subresources, subframe
// navigations and requests without a frame (service workers) have none.
func (h *Host) tabOf(req playwright.Request) (domain.TabID, bool) {
	if !req.IsNavigationRequest() {
		return 0, false
	}
	frame := req.Frame()
	if frame == nil {
		return 0, false
	}
	page := frame.Page()
	if page == nil || frame != page.MainFrame() {
		return 0, false
	}

	return h.attach(page), true
}

// route holds main-frame navigation requests until the guard decided on them.
// Blocked navigations are aborted; the guard already moved the tab to the
// blocking page or replaced its document.
func (h *Host) route(route playwright.Route) {
	req := route.Request()
	tab, ok := h.tabOf(req)
	if !ok || h.bypassed(req.URL()) {
		if err := route.Continue(); err != nil {
			logger.Debug(h.ctx, "could not continue request", zap.String("url", req.URL()), zap.Error(err))
		}

		return
	}

	d := h.navigate(tab, req.URL(), domain.TriggerPreNavigation)
	if d.State == domain.StateBlocked {
		if err := route.Abort("blockedbyclient"); err != nil {
			logger.Debug(h.ctx, "could not abort request", zap.String("url", req.URL()), zap.Error(err))
		}

		return
	}

	if err := route.Continue(); err != nil {
		logger.Debug(h.ctx, "could not continue request", zap.String("url", req.URL()), zap.Error(err))
	}
}

func (h *Host) navigate(tab domain.TabID, url string, trigger domain.Trigger) domain.Decision {
	nav := domain.Navigation{TabID: tab, URL: url, Trigger: trigger}
	if h.bypassed(url) {
		return domain.Decision{Navigation: nav, State: domain.StateSkipped}
	}

	return h.decider.Decide(h.ctx, nav)
}

func (h *Host) onHistory(source *playwright.BindingSource, args ...interface{}) interface{} {
	if source == nil || source.Page == nil || len(args) == 0 {
		return nil
	}
	url, ok := args[0].(string)
	if !ok {
		return nil
	}

	h.mu.RLock()
	tab, known := h.ids[source.Page]
	h.mu.RUnlock()
	if !known {
		tab = h.attach(source.Page)
	}

	h.spawn(func() { h.navigate(tab, url, domain.TriggerTabLoading) })

	return nil
}

func (h *Host) bypassed(url string) bool {
	for _, prefix := range h.opts.Bypass {
		if prefix != "" && strings.HasPrefix(url, prefix) {
			return true
		}
	}

	return false
}

func (h *Host) page(tab domain.TabID) (playwright.Page, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	page, ok := h.tabs[tab]
	if !ok {
		return nil, serrors.With(serrors.ErrNotFound, "tab %d not found", tab)
	}

	return page, nil
}

// Tabs returns the IDs of the open tabs.
func (h *Host) Tabs() []domain.TabID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.TabID, 0, len(h.tabs))
	for tab := range h.tabs {
		out = append(out, tab)
	}

	return out
}

// Redirect navigates the tab and returns once the new document committed.
func (h *Host) Redirect(_ context.Context, tab domain.TabID, URL string) error {
	page, err := h.page(tab)
	if err != nil {
		return err
	}

	if _, err := page.Goto(URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateCommit,
		Timeout:   playwright.Float(float64(h.opts.RedirectTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("could not redirect tab %d: %w", tab, err)
	}

	return nil
}

func (h *Host) InjectScript(_ context.Context, tab domain.TabID, script string) error {
	page, err := h.page(tab)
	if err != nil {
		return err
	}

	if _, err := page.Evaluate(script); err != nil {
		return fmt.Errorf("could not inject script into tab %d: %w", tab, err)
	}

	return nil
}

func (h *Host) SetBadge(ctx context.Context, tab domain.TabID, badge browser.Badge) error {
	logger.Info(ctx, "badge updated",
		zap.Int("tabId", int(tab)),
		zap.String("text", badge.Text),
		zap.String("color", badge.Color))

	return nil
}

func (h *Host) Notify(ctx context.Context, n browser.Notification) error {
	logger.Warn(ctx, n.Title, zap.String("message", n.Message))

	return nil
}

// Stop closes the browser and waits for in-flight handlers.
func (h *Host) Stop() error {
	var firstErr error
	if h.bctx != nil {
		if err := h.bctx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("could not close browser context: %w", err)
		}
	}
	if h.browser != nil {
		if err := h.browser.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("could not close browser: %w", err)
		}
	}
	if h.pw != nil {
		if err := h.pw.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("could not stop playwright: %w", err)
		}
	}
	h.wg.Wait()

	return firstErr
}
