// pkg/browser/browser.go
// Package browser is the public automation surface: Browser, Page, Locator,
// ElementHandle and the input devices. Every element action is gated on
// actionability and retried under a deadline.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/internal/config"
	"github.com/xkilldash9x/actuate/internal/protocol"
)

// Browser is one connected Chrome/Chromium instance. It owns the protocol
// connection and, when it launched the process itself, the process too.
type Browser struct {
	cfg    *config.Config
	logger *zap.Logger
	conn   *protocol.Connection

	// launched is nil when attached to an externally managed browser.
	launched *protocol.Launched

	mu     sync.Mutex
	pages  map[*Page]struct{}
	closed bool
}

// Open connects to a browser: it attaches to Browser.RemoteURL when set, and
// launches a local process otherwise.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Browser, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Browser.RemoteURL != "" {
		return Connect(ctx, cfg, logger)
	}
	return Launch(ctx, cfg, logger)
}

// Launch starts a browser process and connects to it.
func Launch(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Browser, error) {
	launchCtx, cancel := protocol.WaitWithTimeout(ctx, cfg.Browser.LaunchTimeout)
	defer cancel()

	launched, err := protocol.Launch(launchCtx, cfg.Browser, logger)
	if err != nil {
		return nil, err
	}

	conn, err := protocol.Dial(launchCtx, launched.WSURL, logger)
	if err != nil {
		_ = launched.Close()
		return nil, err
	}

	return &Browser{
		cfg:      cfg,
		logger:   logger.Named("browser"),
		conn:     conn,
		launched: launched,
		pages:    make(map[*Page]struct{}),
	}, nil
}

// Connect attaches to an already-running browser's DevTools endpoint.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Browser, error) {
	connectCtx, cancel := protocol.WaitWithTimeout(ctx, cfg.Browser.LaunchTimeout)
	defer cancel()

	wsURL, err := protocol.ResolveWebSocketURL(connectCtx, cfg.Browser.RemoteURL)
	if err != nil {
		return nil, err
	}
	conn, err := protocol.Dial(connectCtx, wsURL, logger)
	if err != nil {
		return nil, err
	}

	return &Browser{
		cfg:    cfg,
		logger: logger.Named("browser"),
		conn:   conn,
		pages:  make(map[*Page]struct{}),
	}, nil
}

// Connection exposes the underlying protocol connection.
func (b *Browser) Connection() *protocol.Connection { return b.conn }

// NewPage opens a fresh tab and wires up its automation machinery.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("browser is closed")
	}
	b.mu.Unlock()

	targetID, err := target.CreateTarget("about:blank").
		Do(cdp.WithExecutor(ctx, b.conn.Root()))
	if err != nil {
		return nil, fmt.Errorf("failed to create page target: %w", err)
	}

	sess, err := b.conn.AttachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	p, err := newPage(ctx, b, sess, targetID)
	if err != nil {
		_ = sess.Detach(ctx)
		return nil, err
	}

	b.mu.Lock()
	b.pages[p] = struct{}{}
	b.mu.Unlock()

	b.logger.Info("Page opened.", zap.String("target_id", string(targetID)))
	return p, nil
}

// Pages lists the currently open pages.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Page, 0, len(b.pages))
	for p := range b.pages {
		out = append(out, p)
	}
	return out
}

func (b *Browser) forgetPage(p *Page) {
	b.mu.Lock()
	delete(b.pages, p)
	b.mu.Unlock()
}

// Close tears down the connection and, for launched browsers, the process
// and its temporary profile.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pages := make([]*Page, 0, len(b.pages))
	for p := range b.pages {
		pages = append(pages, p)
	}
	b.mu.Unlock()

	for _, p := range pages {
		p.pumpCancel()
	}

	err := b.conn.Close()
	if b.launched != nil {
		if killErr := b.launched.Close(); killErr != nil && err == nil {
			err = killErr
		}
	}
	b.logger.Info("Browser closed.")
	return err
}
