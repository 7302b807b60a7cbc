// pkg/browser/keyboard.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/actuate/api/schemas"
	"github.com/xkilldash9x/actuate/internal/protocol"
)

// Keyboard dispatches raw key events to the page. It tracks held modifiers so
// interleaved Down/Up calls produce correctly-annotated events, the way a
// physical keyboard would.
type Keyboard struct {
	sess *protocol.Session

	mu        sync.Mutex
	pressed   map[string]struct{}
	modifiers schemas.KeyboardModifier
}

func newKeyboard(sess *protocol.Session) *Keyboard {
	return &Keyboard{
		sess:    sess,
		pressed: make(map[string]struct{}),
	}
}

// Modifiers returns the currently held modifier mask.
func (k *Keyboard) Modifiers() schemas.KeyboardModifier {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.modifiers
}

// Down presses and holds a key. The key stays down until Up.
func (k *Keyboard) Down(ctx context.Context, key string) error {
	def, needsShift, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}

	k.mu.Lock()
	if mod := modifierBit(def.Key); mod != 0 {
		k.modifiers |= mod
	}
	shiftHeld := k.modifiers&schemas.ModifierShift != 0 || needsShift
	keyValue, text := def.Key, def.Text
	keyCode := def.KeyCode
	if shiftHeld && def.ShiftKey != "" {
		keyValue, text = def.ShiftKey, def.ShiftText
		if def.ShiftKeyCode != 0 {
			keyCode = def.ShiftKeyCode
		}
	}
	// Text input is suppressed while a non-shift modifier is held.
	if k.modifiers&^schemas.ModifierShift != 0 {
		text = ""
	}
	k.pressed[def.Code] = struct{}{}
	modifiers := k.modifiers
	k.mu.Unlock()

	eventType := input.KeyRawDown
	if text != "" {
		eventType = input.KeyDown
	}
	return input.DispatchKeyEvent(eventType).
		WithKey(keyValue).
		WithCode(def.Code).
		WithWindowsVirtualKeyCode(keyCode).
		WithText(text).
		WithUnmodifiedText(def.Text).
		WithLocation(def.Location).
		WithModifiers(input.Modifier(modifiers)).
		Do(cdp.WithExecutor(ctx, k.sess))
}

// Up releases a held key.
func (k *Keyboard) Up(ctx context.Context, key string) error {
	def, needsShift, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}

	k.mu.Lock()
	if mod := modifierBit(def.Key); mod != 0 {
		k.modifiers &^= mod
	}
	shiftHeld := k.modifiers&schemas.ModifierShift != 0 || needsShift
	keyValue := def.Key
	keyCode := def.KeyCode
	if shiftHeld && def.ShiftKey != "" {
		keyValue = def.ShiftKey
		if def.ShiftKeyCode != 0 {
			keyCode = def.ShiftKeyCode
		}
	}
	delete(k.pressed, def.Code)
	modifiers := k.modifiers
	k.mu.Unlock()

	return input.DispatchKeyEvent(input.KeyUp).
		WithKey(keyValue).
		WithCode(def.Code).
		WithWindowsVirtualKeyCode(keyCode).
		WithLocation(def.Location).
		WithModifiers(input.Modifier(modifiers)).
		Do(cdp.WithExecutor(ctx, k.sess))
}

// Press presses and releases a key, or a "+"-joined combination like
// "Control+Shift+t": modifiers are held around the final key and released in
// reverse order.
func (k *Keyboard) Press(ctx context.Context, combo string) error {
	keys := splitCombo(combo)
	for i, key := range keys {
		if err := k.Down(ctx, key); err != nil {
			// Release anything already held before bailing.
			for j := i - 1; j >= 0; j-- {
				_ = k.Up(ctx, keys[j])
			}
			return err
		}
	}
	var firstErr error
	for i := len(keys) - 1; i >= 0; i-- {
		if err := k.Up(ctx, keys[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Type produces the text key by key. Characters with no US-layout key are
// inserted directly instead. delay paces individual keystrokes.
func (k *Keyboard) Type(ctx context.Context, text string, delay time.Duration) error {
	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	for _, r := range text {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		ch := string(r)
		if _, _, ok := lookupKey(ch); ok {
			if err := k.Press(ctx, ch); err != nil {
				return err
			}
			continue
		}
		if err := k.InsertText(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

// InsertText commits text to the focused element without key events, like an
// IME would.
func (k *Keyboard) InsertText(ctx context.Context, text string) error {
	return input.InsertText(text).Do(cdp.WithExecutor(ctx, k.sess))
}

// modifierBit maps a modifier key value to its mask bit; zero for ordinary
// keys.
func modifierBit(key string) schemas.KeyboardModifier {
	switch key {
	case "Alt":
		return schemas.ModifierAlt
	case "Control":
		return schemas.ModifierControl
	case "Meta":
		return schemas.ModifierMeta
	case "Shift":
		return schemas.ModifierShift
	}
	return 0
}

// splitCombo splits "Control+Shift+t" into its keys, treating a trailing "+"
// as the literal plus key.
func splitCombo(combo string) []string {
	if combo == "+" {
		return []string{"+"}
	}
	parts := strings.Split(combo, "+")
	keys := make([]string, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			// "Control++" means Control and the plus key.
			if i == len(parts)-1 {
				continue
			}
			keys = append(keys, "+")
			continue
		}
		keys = append(keys, p)
	}
	return keys
}
