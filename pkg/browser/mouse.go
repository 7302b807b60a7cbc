// pkg/browser/mouse.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"

	"github.com/xkilldash9x/actuate/api/schemas"
	"github.com/xkilldash9x/actuate/internal/protocol"
)

// Mouse drives the page's pointer. It remembers its position so Down/Up pairs
// land where the last Move left off.
type Mouse struct {
	sess     *protocol.Session
	keyboard *Keyboard

	mu   sync.Mutex
	x, y float64
}

func newMouse(sess *protocol.Session, keyboard *Keyboard) *Mouse {
	return &Mouse{sess: sess, keyboard: keyboard}
}

// Position returns the pointer's last known coordinates.
func (m *Mouse) Position() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

func (m *Mouse) setPosition(x, y float64) {
	m.mu.Lock()
	m.x, m.y = x, y
	m.mu.Unlock()
}

// Move moves the pointer to (x, y) in steps intermediate events.
func (m *Mouse) Move(ctx context.Context, x, y float64, steps int) error {
	if steps < 1 {
		steps = 1
	}
	fromX, fromY := m.Position()
	for i := 1; i <= steps; i++ {
		midX := fromX + (x-fromX)*float64(i)/float64(steps)
		midY := fromY + (y-fromY)*float64(i)/float64(steps)
		err := input.DispatchMouseEvent(input.MouseMoved, midX, midY).
			WithModifiers(input.Modifier(m.keyboard.Modifiers())).
			Do(cdp.WithExecutor(ctx, m.sess))
		if err != nil {
			return err
		}
	}
	m.setPosition(x, y)
	return nil
}

// Down presses a button at the current position.
func (m *Mouse) Down(ctx context.Context, button schemas.MouseButton, clickCount int) error {
	if clickCount < 1 {
		clickCount = 1
	}
	x, y := m.Position()
	return input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(protocolButton(button)).
		WithClickCount(int64(clickCount)).
		WithModifiers(input.Modifier(m.keyboard.Modifiers())).
		Do(cdp.WithExecutor(ctx, m.sess))
}

// Up releases a button at the current position.
func (m *Mouse) Up(ctx context.Context, button schemas.MouseButton, clickCount int) error {
	if clickCount < 1 {
		clickCount = 1
	}
	x, y := m.Position()
	return input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(protocolButton(button)).
		WithClickCount(int64(clickCount)).
		WithModifiers(input.Modifier(m.keyboard.Modifiers())).
		Do(cdp.WithExecutor(ctx, m.sess))
}

// Click moves to (x, y) and performs a full press/release cycle. delay holds
// the button down; clickCount of 2 produces a double click.
func (m *Mouse) Click(ctx context.Context, x, y float64, button schemas.MouseButton, clickCount int, delay time.Duration) error {
	if clickCount < 1 {
		clickCount = 1
	}
	if err := m.Move(ctx, x, y, 1); err != nil {
		return err
	}
	for i := 1; i <= clickCount; i++ {
		if err := m.Down(ctx, button, i); err != nil {
			return err
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := m.Up(ctx, button, i); err != nil {
			return err
		}
	}
	return nil
}

// Dblclick is Click with a click count of two.
func (m *Mouse) Dblclick(ctx context.Context, x, y float64, button schemas.MouseButton) error {
	return m.Click(ctx, x, y, button, 2, 0)
}

// Wheel scrolls by (deltaX, deltaY) at the current position.
func (m *Mouse) Wheel(ctx context.Context, deltaX, deltaY float64) error {
	x, y := m.Position()
	return input.DispatchMouseEvent(input.MouseWheel, x, y).
		WithDeltaX(deltaX).
		WithDeltaY(deltaY).
		WithModifiers(input.Modifier(m.keyboard.Modifiers())).
		Do(cdp.WithExecutor(ctx, m.sess))
}

func protocolButton(b schemas.MouseButton) input.MouseButton {
	switch b {
	case schemas.MouseButtonMiddle:
		return input.Middle
	case schemas.MouseButtonRight:
		return input.Right
	default:
		return input.Left
	}
}

// Touchscreen synthesizes touch input.
type Touchscreen struct {
	sess     *protocol.Session
	keyboard *Keyboard
}

func newTouchscreen(sess *protocol.Session, keyboard *Keyboard) *Touchscreen {
	return &Touchscreen{sess: sess, keyboard: keyboard}
}

// Tap issues a touch start/end pair at (x, y).
func (t *Touchscreen) Tap(ctx context.Context, x, y float64) error {
	exec := cdp.WithExecutor(ctx, t.sess)
	mods := input.Modifier(t.keyboard.Modifiers())

	err := input.DispatchTouchEvent(input.TouchStart, []*input.TouchPoint{{X: x, Y: y}}).
		WithModifiers(mods).
		Do(exec)
	if err != nil {
		return err
	}
	return input.DispatchTouchEvent(input.TouchEnd, []*input.TouchPoint{}).
		WithModifiers(mods).
		Do(exec)
}
