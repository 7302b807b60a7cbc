// pkg/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/api/schemas"
	"github.com/xkilldash9x/actuate/internal/actions"
	"github.com/xkilldash9x/actuate/internal/protocol"
)

// Page is one top-level browser tab: a protocol session plus the
// actionability machinery bound to it. Input devices, the scheduler, and
// main-frame lifecycle tracking all hang off it.
type Page struct {
	browser  *Browser
	sess     *protocol.Session
	targetID target.ID
	logger   *zap.Logger

	eval        *evaluator
	runner      *actions.Runner
	keyboard    *Keyboard
	mouse       *Mouse
	touchscreen *Touchscreen

	navTimeout time.Duration

	mu        sync.Mutex
	mainFrame cdp.FrameID
	url       string
	reached   map[schemas.LoadState]bool
	waiters   map[*loadWaiter]struct{}
	barriers  map[*navigationBarrier]struct{}
	closed    bool

	pumpCancel func()
	pumpDone   chan struct{}
}

type loadWaiter struct {
	state schemas.LoadState
	ch    chan struct{}
}

// lifecycleEventNames maps protocol lifecycle names to load states.
var lifecycleEventNames = map[string]schemas.LoadState{
	"load":             schemas.LoadStateLoad,
	"DOMContentLoaded": schemas.LoadStateDOMContentLoaded,
	"networkIdle":      schemas.LoadStateNetworkIdle,
}

func newPage(ctx context.Context, b *Browser, sess *protocol.Session, targetID target.ID) (*Page, error) {
	p := &Page{
		browser:    b,
		sess:       sess,
		targetID:   targetID,
		logger:     b.logger.Named("page").With(zap.String("page_id", uuid.NewString())),
		eval:       &evaluator{sess: sess},
		navTimeout: b.cfg.Engine.DefaultNavigationTimeout,
		reached:    make(map[schemas.LoadState]bool),
		waiters:    make(map[*loadWaiter]struct{}),
		barriers:   make(map[*navigationBarrier]struct{}),
	}
	p.runner = actions.NewRunner(
		b.cfg.Engine.DefaultTimeout,
		b.cfg.Engine.PollInterval,
		b.cfg.Engine.SlowMo,
		b.logger,
	)
	p.keyboard = newKeyboard(sess)
	p.mouse = newMouse(sess, p.keyboard)
	p.touchscreen = newTouchscreen(sess, p.keyboard)

	// Subscribe before enabling so no lifecycle event slips past.
	events, cancel := sess.Subscribe(
		"Page.lifecycleEvent",
		"Page.frameStartedLoading",
		"Page.frameNavigated",
	)
	p.pumpCancel = cancel
	p.pumpDone = make(chan struct{})

	exec := cdp.WithExecutor(ctx, sess)
	if err := cdppage.Enable().Do(exec); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to enable page domain: %w", err)
	}
	if err := cdppage.SetLifecycleEventsEnabled(true).Do(exec); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to enable lifecycle events: %w", err)
	}
	if err := cdpruntime.Enable().Do(exec); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to enable runtime domain: %w", err)
	}

	tree, err := cdppage.GetFrameTree().Do(exec)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to read frame tree: %w", err)
	}
	p.mu.Lock()
	p.mainFrame = tree.Frame.ID
	p.url = tree.Frame.URL
	p.mu.Unlock()

	go p.pump(events)
	return p, nil
}

// pump consumes lifecycle events for the main frame and wakes load-state
// waiters and navigation barriers.
func (p *Page) pump(events <-chan *protocol.Event) {
	defer close(p.pumpDone)
	for ev := range events {
		switch data := ev.Data.(type) {
		case *cdppage.EventFrameStartedLoading:
			if !p.isMainFrame(data.FrameID) {
				continue
			}
			p.mu.Lock()
			p.reached = make(map[schemas.LoadState]bool)
			barriers := snapshotBarriers(p.barriers)
			p.mu.Unlock()
			for _, b := range barriers {
				b.notifyStart()
			}

		case *cdppage.EventFrameNavigated:
			if data.Frame == nil || !p.isMainFrame(data.Frame.ID) {
				continue
			}
			p.mu.Lock()
			p.url = data.Frame.URL
			p.mu.Unlock()

		case *cdppage.EventLifecycleEvent:
			if !p.isMainFrame(data.FrameID) {
				continue
			}
			if data.Name == "init" {
				p.mu.Lock()
				p.reached = make(map[schemas.LoadState]bool)
				p.mu.Unlock()
				continue
			}
			state, ok := lifecycleEventNames[data.Name]
			if !ok {
				continue
			}
			p.mu.Lock()
			p.reached[state] = true
			var woken []*loadWaiter
			for w := range p.waiters {
				if w.state == state {
					woken = append(woken, w)
					delete(p.waiters, w)
				}
			}
			var barriers []*navigationBarrier
			if state == schemas.LoadStateLoad {
				barriers = snapshotBarriers(p.barriers)
			}
			p.mu.Unlock()

			for _, w := range woken {
				close(w.ch)
			}
			for _, b := range barriers {
				b.notifyLoad()
			}
		}
	}
}

func snapshotBarriers(set map[*navigationBarrier]struct{}) []*navigationBarrier {
	out := make([]*navigationBarrier, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	return out
}

func (p *Page) isMainFrame(id cdp.FrameID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return id == p.mainFrame
}

// -- Navigation --

// Goto navigates the main frame and waits for the requested load state.
func (p *Page) Goto(ctx context.Context, url string, opts schemas.NavigationOptions) error {
	opts.Normalize()
	timeout := schemas.Duration(opts.Timeout, p.navTimeout)

	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p.logger.Debug("Navigating.", zap.String("url", url), zap.String("wait_until", string(opts.WaitUntil)))

	frameID, _, errorText, err := cdppage.Navigate(url).Do(cdp.WithExecutor(navCtx, p.sess))
	if err != nil {
		return p.translateNavError(ctx, "goto", timeout, err)
	}
	if errorText != "" {
		return fmt.Errorf("goto %q: navigation failed: %s", url, errorText)
	}
	p.mu.Lock()
	p.mainFrame = frameID
	p.mu.Unlock()

	if err := p.waitForLoadStateCtx(navCtx, opts.WaitUntil); err != nil {
		return p.translateNavError(ctx, "goto", timeout, err)
	}
	return nil
}

// WaitForLoadState blocks until the main frame reaches the given milestone.
// Returns immediately when the state was already reached in the current
// document.
func (p *Page) WaitForLoadState(ctx context.Context, opts schemas.NavigationOptions) error {
	opts.Normalize()
	timeout := schemas.Duration(opts.Timeout, p.navTimeout)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := p.waitForLoadStateCtx(waitCtx, opts.WaitUntil); err != nil {
		return p.translateNavError(ctx, "waitForLoadState", timeout, err)
	}
	return nil
}

func (p *Page) waitForLoadStateCtx(ctx context.Context, state schemas.LoadState) error {
	p.mu.Lock()
	if p.reached[state] {
		p.mu.Unlock()
		return nil
	}
	w := &loadWaiter{state: state, ch: make(chan struct{})}
	p.waiters[w] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.waiters, w)
		p.mu.Unlock()
	}()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.sess.Conn().Done():
		return &schemas.TargetClosedError{Reason: "connection closed"}
	}
}

func (p *Page) translateNavError(parent context.Context, action string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() == nil && timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return &schemas.TimeoutError{Action: action, Timeout: timeout}
	}
	return err
}

// -- Barriers --

// navigationBarrier watches for a navigation triggered by an action. Armed
// before the input is dispatched; if no main-frame load starts, waiting is a
// no-op.
type navigationBarrier struct {
	page *Page

	mu      sync.Mutex
	started bool
	loaded  chan struct{}
	once    sync.Once
}

// armBarrier registers a barrier for the next potential navigation.
func (p *Page) armBarrier() *navigationBarrier {
	b := &navigationBarrier{page: p, loaded: make(chan struct{})}
	p.mu.Lock()
	p.barriers[b] = struct{}{}
	p.mu.Unlock()
	return b
}

func (b *navigationBarrier) notifyStart() {
	b.mu.Lock()
	b.started = true
	b.mu.Unlock()
}

func (b *navigationBarrier) notifyLoad() {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if started {
		b.once.Do(func() { close(b.loaded) })
	}
}

// wait blocks until the navigation the action kicked off reaches load. When
// the action caused no navigation it returns immediately.
func (b *navigationBarrier) wait(ctx context.Context) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-b.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *navigationBarrier) disarm() {
	p := b.page
	if p == nil {
		return
	}
	p.mu.Lock()
	delete(p.barriers, b)
	p.mu.Unlock()
}

// barrierGuard ties a navigation barrier's lifetime to one scheduler run.
// Perform can run several times before succeeding, so arming again first
// disarms the previous attempt's barrier; the caller defers release so the
// no-wait and fatal-error paths never leave a barrier registered.
type barrierGuard struct {
	page *Page
	b    *navigationBarrier
}

func (g *barrierGuard) arm() {
	if g.b != nil {
		g.b.disarm()
	}
	g.b = g.page.armBarrier()
}

func (g *barrierGuard) wait(ctx context.Context) error {
	if g.b == nil {
		return nil
	}
	return g.b.wait(ctx)
}

func (g *barrierGuard) release() {
	if g.b != nil {
		g.b.disarm()
		g.b = nil
	}
}

// errNoTouch aborts a tap immediately; retrying cannot make a page grow touch
// support.
var errNoTouch = errors.New("tap: the page has no touch support")

// checkTouchSupport asks the page whether it can receive touch input before
// any touch events are synthesized.
func (p *Page) checkTouchSupport(ctx context.Context) error {
	obj, err := p.eval.evaluate(ctx, "("+jsTapSupported+")()", callOptions{returnByValue: true})
	if err != nil {
		return err
	}
	var ok bool
	if err := decodeInto(obj, &ok); err != nil {
		return err
	}
	if !ok {
		return errNoTouch
	}
	return nil
}

// withModifiers holds the requested modifier keys around f, releasing them in
// reverse order even when f fails.
func (p *Page) withModifiers(ctx context.Context, mods []schemas.KeyboardModifier, f func() error) error {
	keys := modifierKeyNames(schemas.CombineModifiers(mods))
	for i, key := range keys {
		if err := p.keyboard.Down(ctx, key); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = p.keyboard.Up(ctx, keys[j])
			}
			return err
		}
	}
	err := f()
	for i := len(keys) - 1; i >= 0; i-- {
		if uerr := p.keyboard.Up(ctx, keys[i]); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

func modifierKeyNames(mods schemas.KeyboardModifier) []string {
	var keys []string
	if mods&schemas.ModifierAlt != 0 {
		keys = append(keys, "Alt")
	}
	if mods&schemas.ModifierControl != 0 {
		keys = append(keys, "Control")
	}
	if mods&schemas.ModifierMeta != 0 {
		keys = append(keys, "Meta")
	}
	if mods&schemas.ModifierShift != 0 {
		keys = append(keys, "Shift")
	}
	return keys
}

// -- Element access --

// Locator builds a lazy, strict, re-resolving reference to an element.
func (p *Page) Locator(selector string) *Locator {
	return newLocator(p, selector, nthStrict)
}

// QuerySelector resolves the selector strictly right now. nil without error
// means no match.
func (p *Page) QuerySelector(ctx context.Context, selector string) (*ElementHandle, error) {
	h, err := p.Locator(selector).resolveHandle(ctx)
	if err != nil {
		var na *schemas.NotActionableError
		if errors.As(err, &na) {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

// QuerySelectorAll resolves every current match.
func (p *Page) QuerySelectorAll(ctx context.Context, selector string) ([]*ElementHandle, error) {
	return p.Locator(selector).All(ctx)
}

// WaitForSelector blocks until the selector reaches the desired state and
// returns the matched element; nil for hidden/detached waits.
func (p *Page) WaitForSelector(ctx context.Context, selector string, opts schemas.WaitForOptions) (*ElementHandle, error) {
	opts.Normalize()
	l := p.Locator(selector)
	if err := l.WaitFor(ctx, opts); err != nil {
		return nil, err
	}
	if opts.State.Gone() {
		return nil, nil
	}
	h, err := l.resolveHandle(ctx)
	if err != nil {
		var na *schemas.NotActionableError
		if errors.As(err, &na) {
			// The element vanished between the wait and the fetch.
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

// -- Evaluation and content --

// Evaluate runs an expression in the page and returns its JSON value.
// Promises are awaited.
func (p *Page) Evaluate(ctx context.Context, expression string) (any, error) {
	obj, err := p.eval.evaluate(ctx, expression, callOptions{returnByValue: true, awaitPromise: true})
	if err != nil {
		return nil, err
	}
	return remoteValue(obj)
}

// Content returns the full serialized document.
func (p *Page) Content(ctx context.Context) (string, error) {
	v, err := p.Evaluate(ctx, "document.documentElement.outerHTML")
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// Title returns the document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	v, err := p.Evaluate(ctx, "document.title")
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// URL returns the main frame's last known URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Screenshot captures the viewport as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return cdppage.CaptureScreenshot().
		WithFormat(cdppage.CaptureScreenshotFormatPng).
		Do(cdp.WithExecutor(ctx, p.sess))
}

// -- Accessors --

// Session exposes the raw protocol session for escape-hatch commands.
func (p *Page) Session() *protocol.Session { return p.sess }

// Keyboard returns the page's keyboard.
func (p *Page) Keyboard() *Keyboard { return p.keyboard }

// Mouse returns the page's pointer.
func (p *Page) Mouse() *Mouse { return p.mouse }

// Touchscreen returns the page's touch input.
func (p *Page) Touchscreen() *Touchscreen { return p.touchscreen }

// Close closes the tab.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.pumpCancel()
	err := target.CloseTarget(p.targetID).Do(cdp.WithExecutor(ctx, p.browser.conn.Root()))
	p.browser.forgetPage(p)
	return err
}
