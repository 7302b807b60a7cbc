// pkg/browser/locator.go
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/actuate/api/schemas"
	"github.com/xkilldash9x/actuate/internal/actions"
)

// nthStrict marks strict single-target resolution; nthLast picks the final
// match. Values >= 0 pick by index.
const (
	nthStrict = -100
	nthLast   = -1
)

// Locator is a lazy, re-resolving reference to an element. Every action
// resolves the selector from scratch on every retry attempt, so a locator
// survives re-renders that replace the underlying node. Single-target
// operations are strict: resolving to more than one element fails immediately.
type Locator struct {
	page *Page
	sel  parsedSelector
	nth  int

	// parseErr defers selector syntax errors to first use.
	parseErr error
}

func newLocator(page *Page, selector string, nth int) *Locator {
	sel, err := parseSelector(selector)
	return &Locator{page: page, sel: sel, nth: nth, parseErr: err}
}

// String renders the locator for logs and error messages.
func (l *Locator) String() string {
	switch {
	case l.nth == nthLast:
		return l.sel.Source + " >> last"
	case l.nth >= 0:
		return fmt.Sprintf("%s >> nth=%d", l.sel.Source, l.nth)
	}
	return l.sel.Source
}

// First narrows the locator to the first match.
func (l *Locator) First() *Locator {
	out := *l
	out.nth = 0
	return &out
}

// Last narrows the locator to the last match.
func (l *Locator) Last() *Locator {
	out := *l
	out.nth = nthLast
	return &out
}

// Nth narrows the locator to the i-th match (zero-based).
func (l *Locator) Nth(i int) *Locator {
	out := *l
	out.nth = i
	return &out
}

// resolveHandle resolves the locator to exactly one element right now. Zero
// matches is a retryable failure; multiple matches under strict resolution is
// fatal.
func (l *Locator) resolveHandle(ctx context.Context) (*ElementHandle, error) {
	if l.parseErr != nil {
		return nil, l.parseErr
	}

	var nth *int
	if l.nth != nthStrict {
		n := l.nth
		nth = &n
	}

	obj, err := l.page.eval.callFunction(ctx, jsResolveOne, callOptions{}, string(l.sel.Engine), l.sel.Body, nth)
	if err != nil {
		var sv *schemas.StrictModeViolationError
		if errors.As(err, &sv) {
			sv.Selector = l.sel.Source
		}
		return nil, err
	}
	if obj == nil || obj.ObjectID == "" {
		return nil, &schemas.NotActionableError{Predicate: actions.PredicateAttached}
	}
	return &ElementHandle{page: l.page, objectID: obj.ObjectID, selector: l.sel.Source}, nil
}

// resolveAny adapts resolveHandle to the scheduler's resolver shape, releasing
// the previous attempt's handle before producing a new one.
func (l *Locator) resolveAny() func(ctx context.Context) (any, error) {
	var prev *ElementHandle
	return func(ctx context.Context) (any, error) {
		if prev != nil {
			prev.Dispose(ctx)
			prev = nil
		}
		h, err := l.resolveHandle(ctx)
		if err != nil {
			return nil, err
		}
		prev = h
		return h, nil
	}
}

// ElementHandle resolves the locator once and hands out the fixed reference.
func (l *Locator) ElementHandle(ctx context.Context) (*ElementHandle, error) {
	return l.resolveHandle(ctx)
}

// Count returns how many elements currently match.
func (l *Locator) Count(ctx context.Context) (int, error) {
	if l.parseErr != nil {
		return 0, l.parseErr
	}
	obj, err := l.page.eval.callFunction(ctx, jsCountMatches,
		callOptions{returnByValue: true}, string(l.sel.Engine), l.sel.Body)
	if err != nil {
		return 0, err
	}
	var n int
	if err := decodeInto(obj, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// All resolves a handle for every current match.
func (l *Locator) All(ctx context.Context) ([]*ElementHandle, error) {
	n, err := l.Count(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]*ElementHandle, 0, n)
	for i := 0; i < n; i++ {
		h, err := l.Nth(i).resolveHandle(ctx)
		if err != nil {
			// The page mutated between count and fetch; stop at what exists.
			var na *schemas.NotActionableError
			if errors.As(err, &na) {
				break
			}
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// -- Gated actions --

// Click resolves strictly and clicks once actionable.
func (l *Locator) Click(ctx context.Context, opts schemas.ClickOptions) error {
	opts.Normalize()
	return gatedPointer(ctx, l.page, "click", l.resolveAny(), predicatesClick, opts.ActionOptions,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			return l.page.mouse.Click(ctx, p.X, p.Y, opts.Button, opts.ClickCount, opts.Delay)
		})
}

// Dblclick resolves strictly and double-clicks.
func (l *Locator) Dblclick(ctx context.Context, opts schemas.ClickOptions) error {
	opts.Normalize()
	opts.ClickCount = 2
	return gatedPointer(ctx, l.page, "dblclick", l.resolveAny(), predicatesClick, opts.ActionOptions,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			return l.page.mouse.Click(ctx, p.X, p.Y, opts.Button, opts.ClickCount, opts.Delay)
		})
}

// Hover moves the pointer over the resolved element.
func (l *Locator) Hover(ctx context.Context, opts schemas.ActionOptions) error {
	return gatedPointer(ctx, l.page, "hover", l.resolveAny(), predicatesHover, opts,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			return l.page.mouse.Move(ctx, p.X, p.Y, 1)
		})
}

// Tap issues a touch tap on the resolved element. Pages without touch support
// fail fast instead of retrying.
func (l *Locator) Tap(ctx context.Context, opts schemas.ActionOptions) error {
	return gatedPointer(ctx, l.page, "tap", l.resolveAny(), predicatesClick, opts,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			if err := l.page.checkTouchSupport(ctx); err != nil {
				return err
			}
			return l.page.touchscreen.Tap(ctx, p.X, p.Y)
		})
}

// Fill replaces the control's value.
func (l *Locator) Fill(ctx context.Context, value string, opts schemas.ActionOptions) error {
	return l.page.runner.Run(ctx, &actions.Request{
		Name:        "fill",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     l.resolveAny(),
		Probe: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).probeStates(ctx, predicatesFill)
		},
		Perform: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).fillValue(ctx, value)
		},
	})
}

// Clear empties the control.
func (l *Locator) Clear(ctx context.Context, opts schemas.ActionOptions) error {
	return l.Fill(ctx, "", opts)
}

// SelectOptions selects matching options and returns the selected values.
func (l *Locator) SelectOptions(ctx context.Context, options []schemas.SelectOption, opts schemas.ActionOptions) ([]string, error) {
	var selected []string
	err := l.page.runner.Run(ctx, &actions.Request{
		Name:        "selectOption",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     l.resolveAny(),
		Probe: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).probeStates(ctx, predicatesInput)
		},
		Perform: func(ctx context.Context, target any) error {
			values, err := target.(*ElementHandle).selectOptions(ctx, options)
			if err != nil {
				return err
			}
			selected = values
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return selected, nil
}

// SetChecked drives the checkbox or radio to the desired state.
func (l *Locator) SetChecked(ctx context.Context, checked bool, opts schemas.ActionOptions) error {
	return runSetChecked(ctx, l.page, l.resolveAny(), checked, opts)
}

// Check is SetChecked(true).
func (l *Locator) Check(ctx context.Context, opts schemas.ActionOptions) error {
	return l.SetChecked(ctx, true, opts)
}

// Uncheck is SetChecked(false).
func (l *Locator) Uncheck(ctx context.Context, opts schemas.ActionOptions) error {
	return l.SetChecked(ctx, false, opts)
}

// Press focuses the resolved element and presses a key or combination.
func (l *Locator) Press(ctx context.Context, key string, opts schemas.ActionOptions) error {
	return l.page.runner.Run(ctx, &actions.Request{
		Name:        "press",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     l.resolveAny(),
		Probe: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).probeStates(ctx, predicatesInput)
		},
		Perform: func(ctx context.Context, target any) error {
			if err := target.(*ElementHandle).focus(ctx); err != nil {
				return err
			}
			return l.page.keyboard.Press(ctx, key)
		},
	})
}

// Type focuses the resolved element and types text key by key.
func (l *Locator) Type(ctx context.Context, text string, opts schemas.TypeOptions) error {
	return l.page.runner.Run(ctx, &actions.Request{
		Name:        "type",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     l.resolveAny(),
		Probe: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).probeStates(ctx, predicatesInput)
		},
		Perform: func(ctx context.Context, target any) error {
			if err := target.(*ElementHandle).focus(ctx); err != nil {
				return err
			}
			return l.page.keyboard.Type(ctx, text, opts.Delay)
		},
	})
}

// SetInputFiles sets the file list of a resolved <input type=file>. An empty
// list clears the selection.
func (l *Locator) SetInputFiles(ctx context.Context, files []string, opts schemas.ActionOptions) error {
	return l.page.runner.Run(ctx, &actions.Request{
		Name:    "setInputFiles",
		Timeout: opts.Timeout,
		Force:   opts.Force,
		Trial:   opts.Trial,
		Resolve: l.resolveAny(),
		Probe: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).probeInputFile(ctx)
		},
		Perform: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).setInputFiles(ctx, files)
		},
	})
}

// ScrollIntoViewIfNeeded scrolls the resolved element into the viewport once
// it is stable.
func (l *Locator) ScrollIntoViewIfNeeded(ctx context.Context, opts schemas.ActionOptions) error {
	return l.page.runner.Run(ctx, &actions.Request{
		Name:    "scrollIntoViewIfNeeded",
		Timeout: opts.Timeout,
		Force:   opts.Force,
		Resolve: l.resolveAny(),
		Probe: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).probeStates(ctx, []string{actions.PredicateStable})
		},
		Perform: func(ctx context.Context, target any) error {
			return target.(*ElementHandle).scrollIntoView(ctx)
		},
	})
}

// Focus gives the resolved element input focus without any gating.
func (l *Locator) Focus(ctx context.Context) error {
	h, err := l.resolveHandle(ctx)
	if err != nil {
		return err
	}
	defer h.Dispose(ctx)
	return h.Focus(ctx)
}

// DispatchEvent synthesizes an event on the resolved element, bypassing
// actionability entirely.
func (l *Locator) DispatchEvent(ctx context.Context, eventType string, eventInit map[string]any) error {
	h, err := l.resolveHandle(ctx)
	if err != nil {
		return err
	}
	defer h.Dispose(ctx)
	return h.DispatchEvent(ctx, eventType, eventInit)
}

// BoundingBox returns the resolved element's border-box rect; nil when the
// selector matches nothing or the element has no layout.
func (l *Locator) BoundingBox(ctx context.Context) (*schemas.Rect, error) {
	h, err := l.resolveHandle(ctx)
	if err != nil {
		var na *schemas.NotActionableError
		if errors.As(err, &na) {
			return nil, nil
		}
		return nil, err
	}
	defer h.Dispose(ctx)
	return h.BoundingBox(ctx)
}

// WaitFor blocks until the resolved element reaches the desired state. For
// hidden and detached, matching nothing at all already satisfies the wait.
func (l *Locator) WaitFor(ctx context.Context, opts schemas.WaitForOptions) error {
	opts.Normalize()
	state := opts.State
	return l.page.runner.Run(ctx, &actions.Request{
		Name:    "waitFor(" + string(state) + ")",
		Timeout: opts.Timeout,
		Resolve: func(ctx context.Context) (any, error) { return l, nil },
		Probe: func(ctx context.Context, target any) error {
			h, err := l.resolveHandle(ctx)
			if err != nil {
				if goneSatisfies(err, state) {
					return nil
				}
				return err
			}
			defer h.Dispose(ctx)

			s, err := h.snapshot(ctx)
			if err != nil {
				if schemas.IsDetached(err) && state.Gone() {
					return nil
				}
				return err
			}
			if !s.Attached && state.Gone() {
				return nil
			}
			if stateSatisfied(state, s) {
				return nil
			}
			return &schemas.NotActionableError{Predicate: string(state)}
		},
	})
}

// goneSatisfies reports whether a failed resolution already satisfies a wait
// for a gone state: a selector matching nothing is as hidden as it gets.
// Fatal resolution failures never satisfy anything.
func goneSatisfies(err error, state schemas.ElementState) bool {
	var na *schemas.NotActionableError
	return state.Gone() && errors.As(err, &na)
}

// -- One-shot readers --

// readOne resolves strictly once and applies f to the handle.
func readOne[T any](ctx context.Context, l *Locator, f func(h *ElementHandle) (T, error)) (T, error) {
	var zero T
	h, err := l.resolveHandle(ctx)
	if err != nil {
		return zero, err
	}
	defer h.Dispose(ctx)
	return f(h)
}

// InnerText returns the rendered text of the resolved element.
func (l *Locator) InnerText(ctx context.Context) (string, error) {
	return readOne(ctx, l, func(h *ElementHandle) (string, error) { return h.InnerText(ctx) })
}

// TextContent returns the raw text content.
func (l *Locator) TextContent(ctx context.Context) (string, error) {
	return readOne(ctx, l, func(h *ElementHandle) (string, error) { return h.TextContent(ctx) })
}

// InnerHTML returns the element's markup.
func (l *Locator) InnerHTML(ctx context.Context) (string, error) {
	return readOne(ctx, l, func(h *ElementHandle) (string, error) { return h.InnerHTML(ctx) })
}

// InputValue returns the control's current value.
func (l *Locator) InputValue(ctx context.Context) (string, error) {
	return readOne(ctx, l, func(h *ElementHandle) (string, error) { return h.InputValue(ctx) })
}

// GetAttribute returns an attribute value; ok is false when absent.
func (l *Locator) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	h, err := l.resolveHandle(ctx)
	if err != nil {
		return "", false, err
	}
	defer h.Dispose(ctx)
	return h.GetAttribute(ctx, name)
}

// IsVisible reports current visibility; an unmatched selector is not visible.
func (l *Locator) IsVisible(ctx context.Context) (bool, error) {
	return l.boolQuery(ctx, func(h *ElementHandle) (bool, error) { return h.IsVisible(ctx) }, false)
}

// IsHidden reports current hiddenness; an unmatched selector is hidden.
func (l *Locator) IsHidden(ctx context.Context) (bool, error) {
	return l.boolQuery(ctx, func(h *ElementHandle) (bool, error) { return h.IsHidden(ctx) }, true)
}

// IsEnabled reports whether the resolved element is enabled.
func (l *Locator) IsEnabled(ctx context.Context) (bool, error) {
	return readOne(ctx, l, func(h *ElementHandle) (bool, error) { return h.IsEnabled(ctx) })
}

// IsDisabled reports whether the resolved element is disabled.
func (l *Locator) IsDisabled(ctx context.Context) (bool, error) {
	return readOne(ctx, l, func(h *ElementHandle) (bool, error) { return h.IsDisabled(ctx) })
}

// IsEditable reports whether the resolved element accepts text edits.
func (l *Locator) IsEditable(ctx context.Context) (bool, error) {
	return readOne(ctx, l, func(h *ElementHandle) (bool, error) { return h.IsEditable(ctx) })
}

// IsChecked reports the checkable control's state.
func (l *Locator) IsChecked(ctx context.Context) (bool, error) {
	return readOne(ctx, l, func(h *ElementHandle) (bool, error) { return h.IsChecked(ctx) })
}

// boolQuery handles the zero-match case of visibility queries without
// erroring.
func (l *Locator) boolQuery(ctx context.Context, f func(h *ElementHandle) (bool, error), whenAbsent bool) (bool, error) {
	h, err := l.resolveHandle(ctx)
	if err != nil {
		var na *schemas.NotActionableError
		if errors.As(err, &na) {
			return whenAbsent, nil
		}
		return false, err
	}
	defer h.Dispose(ctx)
	return f(h)
}
