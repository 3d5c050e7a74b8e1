// Package renderer drives headless Chrome via chromedp to implement the
// crawler's browser interfaces. One browser process is shared per Renderer;
// every Render call opens an isolated tab with its own cookie jar and
// navigation state.
package renderer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
	"github.com/FelllGit/codehawks-scrapper/internal/metrics"
)

// Config controls the chromedp renderer.
type Config struct {
	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string
	// NavigationTimeout bounds one navigation plus readiness wait.
	NavigationTimeout time.Duration
	// MaxSessions caps concurrently open browsing contexts; 0 disables the cap.
	MaxSessions int
}

func (c Config) navTimeout() time.Duration {
	if c.NavigationTimeout > 0 {
		return c.NavigationTimeout
	}
	return 45 * time.Second
}

// Renderer implements crawler.Renderer using a shared headless Chrome.
type Renderer struct {
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sem           chan struct{}
	logger        *zap.Logger

	closeOnce sync.Once
}

// New launches the browser process and warms it up so the first Render call
// does not pay the startup cost.
func New(cfg Config, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	var sem chan struct{}
	if cfg.MaxSessions > 0 {
		sem = make(chan struct{}, cfg.MaxSessions)
	}
	return &Renderer{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sem:           sem,
		logger:        logger,
	}, nil
}

// Close tears down the shared browser. Open sessions become unusable.
func (r *Renderer) Close(context.Context) error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.browserCancel()
		r.allocCancel()
	})
	return nil
}

// Render opens an isolated browsing context, navigates, waits for the
// requested readiness condition, and returns a Session holding the DOM
// snapshot plus a live handle for interactive queries.
func (r *Renderer) Render(ctx context.Context, url string, readiness crawler.Readiness) (crawler.Session, error) {
	release, err := r.acquireSlot(ctx)
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	closeTab := func() {
		tabCancel()
		release()
		metrics.RenderFinished()
	}
	metrics.RenderStarted()

	navCtx, navCancel := context.WithTimeout(tabCtx, r.cfg.navTimeout())
	defer navCancel()
	stopForward := forwardCancel(ctx, navCancel)
	defer stopForward()

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		navigateAndWait(url, readiness),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, tasks); err != nil {
		closeTab()
		return nil, fmt.Errorf("render %s: %w", url, err)
	}

	r.logger.Debug("page rendered", zap.String("url", url), zap.Int("html_bytes", len(html)))
	return &session{
		ctx:      tabCtx,
		html:     html,
		closeTab: closeTab,
	}, nil
}

func (r *Renderer) acquireSlot(ctx context.Context) (func(), error) {
	if r.sem == nil {
		return func() {}, nil
	}
	select {
	case r.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-r.sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

// navigateAndWait navigates and blocks until the readiness condition holds.
// network-idle readiness relies on page lifecycle events, which must be
// enabled before navigation.
func navigateAndWait(url string, readiness crawler.Readiness) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if readiness != crawler.ReadinessNetworkIdle {
			return chromedp.Tasks{
				chromedp.Navigate(url),
				chromedp.WaitReady("body", chromedp.ByQuery),
			}.Do(ctx)
		}

		done := make(chan struct{})
		var once sync.Once
		lctx, lcancel := context.WithCancel(ctx)
		defer lcancel()
		chromedp.ListenTarget(lctx, func(ev interface{}) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
				once.Do(func() { close(done) })
			}
		})

		if err := chromedp.Navigate(url).Do(ctx); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("wait network idle: %w", ctx.Err())
		}
	})
}

// session is one open tab. All interactive queries run against the tab's
// chromedp context; the caller's context only contributes cancellation.
type session struct {
	ctx      context.Context
	html     string
	closeTab func()

	closeOnce sync.Once
}

func (s *session) HTML() string {
	return s.html
}

func (s *session) Close() {
	s.closeOnce.Do(s.closeTab)
}

func (s *session) Elements(ctx context.Context, selector string) ([]crawler.Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, 0, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", selector, err)
	}
	elements := make([]crawler.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &element{sess: s, nodeID: node.NodeID})
	}
	return elements, nil
}

func (s *session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %q: %w", selector, err)
	}
	return nil
}

func (s *session) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.run(ctx, 0, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read text %q: %w", selector, err)
	}
	return text, nil
}

// run executes actions against the tab, honoring an optional timeout and the
// caller's cancellation.
func (s *session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := s.ctx
	var cancel context.CancelFunc = func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.ctx, timeout)
	}
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	return chromedp.Run(runCtx, actions...)
}

type element struct {
	sess   *session
	nodeID cdp.NodeID
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.sess.run(ctx, 0, chromedp.Text([]cdp.NodeID{e.nodeID}, &text, chromedp.ByNodeID))
	if err != nil {
		return "", fmt.Errorf("read node text: %w", err)
	}
	return text, nil
}

// Hover moves the mouse to the node's center so hover-triggered tooltips
// appear. Synthetic JS events are not enough for the platform's tooltip
// library, which listens for trusted pointer movement.
func (e *element) Hover(ctx context.Context) error {
	err := e.sess.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		box, err := dom.GetBoxModel().WithNodeID(e.nodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("box model: %w", err)
		}
		x, y, err := quadCenter(box.Content)
		if err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("hover node: %w", err)
	}
	return nil
}

// quadCenter computes the center of a content quad. Quads are eight floats,
// four (x, y) corners clockwise from top-left.
func quadCenter(quad dom.Quad) (float64, float64, error) {
	if len(quad) < 8 {
		return 0, 0, fmt.Errorf("degenerate content quad of length %d", len(quad))
	}
	return (quad[0] + quad[4]) / 2, (quad[1] + quad[5]) / 2, nil
}

// forwardCancel propagates cancellation from the caller's context into a
// chromedp context without tying their lifetimes together.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
