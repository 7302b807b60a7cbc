// pkg/browser/element.go
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"

	"github.com/xkilldash9x/actuate/api/schemas"
	"github.com/xkilldash9x/actuate/internal/actions"
)

// ElementHandle is a fixed reference to one remote DOM node. Unlike a
// Locator it never re-resolves: if the node leaves the document, every gated
// action on the handle fails with a detach error.
type ElementHandle struct {
	page     *Page
	objectID runtime.RemoteObjectID
	// selector records how the handle was obtained, for error messages.
	selector string
}

// stateSnapshot mirrors the injected state reader's result.
type stateSnapshot struct {
	Attached bool `json:"attached"`
	Visible  bool `json:"visible"`
	Stable   bool `json:"stable"`
	Enabled  bool `json:"enabled"`
	Editable bool `json:"editable"`
}

// Predicate sets per action family.
var (
	predicatesClick = []string{actions.PredicateVisible, actions.PredicateStable, actions.PredicateEnabled, actions.PredicateReceivesEvents}
	predicatesHover = []string{actions.PredicateVisible, actions.PredicateStable, actions.PredicateReceivesEvents}
	predicatesFill  = []string{actions.PredicateVisible, actions.PredicateEnabled, actions.PredicateEditable}
	predicatesInput = []string{actions.PredicateVisible, actions.PredicateEnabled}
)

// String renders the handle for logs and error messages.
func (h *ElementHandle) String() string {
	if h.selector != "" {
		return "element(" + h.selector + ")"
	}
	return "element(" + string(h.objectID) + ")"
}

// ObjectID exposes the raw protocol handle for escape-hatch protocol calls.
func (h *ElementHandle) ObjectID() runtime.RemoteObjectID {
	return h.objectID
}

// Dispose releases the remote handle. The handle must not be used afterwards.
func (h *ElementHandle) Dispose(ctx context.Context) {
	h.page.eval.releaseObject(ctx, h.objectID)
}

// resolveSelf is the fixed-reference resolver: the handle never re-queries,
// it only verifies the node is still in the document.
func (h *ElementHandle) resolveSelf(ctx context.Context) (any, error) {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsIsConnected, callOptions{returnByValue: true})
	if err != nil {
		return nil, err
	}
	var connected bool
	if err := decodeInto(obj, &connected); err != nil {
		return nil, err
	}
	if !connected {
		return nil, &schemas.DetachedError{}
	}
	return h, nil
}

// snapshot reads the element's current actionability states.
func (h *ElementHandle) snapshot(ctx context.Context) (*stateSnapshot, error) {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsStateSnapshot,
		callOptions{returnByValue: true, awaitPromise: true})
	if err != nil {
		return nil, err
	}
	var s stateSnapshot
	if err := decodeInto(obj, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// probeStates checks the required predicates in order, returning the first
// unmet one as a retryable failure.
func (h *ElementHandle) probeStates(ctx context.Context, required []string) error {
	s, err := h.snapshot(ctx)
	if err != nil {
		return err
	}
	if !s.Attached {
		return &schemas.DetachedError{}
	}
	for _, p := range required {
		ok := true
		switch p {
		case actions.PredicateVisible:
			ok = s.Visible
		case actions.PredicateStable:
			ok = s.Stable
		case actions.PredicateEnabled:
			ok = s.Enabled
		case actions.PredicateEditable:
			ok = s.Editable
		case actions.PredicateReceivesEvents:
			// Checked separately with a concrete point.
			continue
		}
		if !ok {
			return &schemas.NotActionableError{Predicate: p}
		}
	}
	return nil
}

// clickPoint scrolls the element into view and picks the pointer target: the
// center of the first content quad with real area, or the padding-box origin
// plus the caller's offset.
func (h *ElementHandle) clickPoint(ctx context.Context, position *schemas.Position) (schemas.Position, error) {
	exec := cdp.WithExecutor(ctx, h.page.sess)
	if err := dom.ScrollIntoViewIfNeeded().WithObjectID(h.objectID).Do(exec); err != nil {
		return schemas.Position{}, translateEvalError(err)
	}

	if position != nil {
		box, err := dom.GetBoxModel().WithObjectID(h.objectID).Do(exec)
		if err != nil {
			return schemas.Position{}, translateEvalError(err)
		}
		if len(box.Padding) < 2 {
			return schemas.Position{}, &schemas.NotActionableError{Predicate: actions.PredicateVisible}
		}
		return schemas.Position{X: box.Padding[0] + position.X, Y: box.Padding[1] + position.Y}, nil
	}

	quads, err := dom.GetContentQuads().WithObjectID(h.objectID).Do(exec)
	if err != nil {
		return schemas.Position{}, translateEvalError(err)
	}
	point, ok := clickablePoint(quads)
	if !ok {
		return schemas.Position{}, &schemas.NotActionableError{Predicate: actions.PredicateVisible}
	}
	return point, nil
}

// hitTest verifies the element is what receives a pointer event at point.
func (h *ElementHandle) hitTest(ctx context.Context, point schemas.Position) error {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsHitTest,
		callOptions{returnByValue: true}, point.X, point.Y)
	if err != nil {
		return err
	}
	var ok bool
	if err := decodeInto(obj, &ok); err != nil {
		return err
	}
	if !ok {
		return &schemas.NotActionableError{Predicate: actions.PredicateReceivesEvents}
	}
	return nil
}

// clickablePoint picks the centroid of the first quad with at least one
// square pixel of area.
func clickablePoint(quads []dom.Quad) (schemas.Position, bool) {
	for _, q := range quads {
		if len(q) != 8 {
			continue
		}
		if quadArea(q) < 1 {
			continue
		}
		return quadCenter(q), true
	}
	return schemas.Position{}, false
}

// quadArea computes a quad's area with the shoelace formula.
func quadArea(q dom.Quad) float64 {
	area := 0.0
	for i := 0; i < 4; i++ {
		x1, y1 := q[i*2], q[i*2+1]
		x2, y2 := q[(i*2+2)%8], q[(i*2+3)%8]
		area += (x1*y2 - x2*y1) / 2
	}
	if area < 0 {
		return -area
	}
	return area
}

// quadCenter averages a quad's corners.
func quadCenter(q dom.Quad) schemas.Position {
	var x, y float64
	for i := 0; i < 4; i++ {
		x += q[i*2]
		y += q[i*2+1]
	}
	return schemas.Position{X: x / 4, Y: y / 4}
}

// pointerTarget is the element surface pointer gating works against;
// ElementHandle is the production implementation.
type pointerTarget interface {
	probeStates(ctx context.Context, required []string) error
	clickPoint(ctx context.Context, position *schemas.Position) (schemas.Position, error)
	hitTest(ctx context.Context, point schemas.Position) error
}

// checkedTarget adds the checkbox surface setChecked needs.
type checkedTarget interface {
	pointerTarget
	checkedState(ctx context.Context) (bool, error)
	click(ctx context.Context, point schemas.Position) error
}

// gatedPointer runs one pointer action through the scheduler: probe the
// predicate set, compute the target point, hit-test it, then dispatch with
// modifiers held. The barrier guard is released when the run ends, so a
// no-wait or failed action leaves nothing armed.
func gatedPointer(ctx context.Context, page *Page, name string,
	resolve func(ctx context.Context) (any, error),
	required []string, opts schemas.ActionOptions,
	dispatch func(ctx context.Context, h pointerTarget, point schemas.Position) error) error {

	guard := &barrierGuard{page: page}
	defer guard.release()

	req := &actions.Request{
		Name:        name,
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: opts.NoWaitAfter,
		Resolve:     resolve,
		Probe: func(ctx context.Context, target any) error {
			h := target.(pointerTarget)
			if err := h.probeStates(ctx, required); err != nil {
				return err
			}
			point, err := h.clickPoint(ctx, opts.Position)
			if err != nil {
				return err
			}
			if containsPredicate(required, actions.PredicateReceivesEvents) {
				if err := h.hitTest(ctx, point); err != nil {
					return err
				}
			}
			return nil
		},
		Perform: func(ctx context.Context, target any) error {
			h := target.(pointerTarget)
			point, err := h.clickPoint(ctx, opts.Position)
			if err != nil {
				return err
			}
			guard.arm()
			return page.withModifiers(ctx, opts.Modifiers, func() error {
				return dispatch(ctx, h, point)
			})
		},
		WaitAfter: guard.wait,
	}
	return page.runner.Run(ctx, req)
}

func containsPredicate(set []string, p string) bool {
	for _, s := range set {
		if s == p {
			return true
		}
	}
	return false
}

// -- Pointer actions --

// Click performs an actionability-gated click.
func (h *ElementHandle) Click(ctx context.Context, opts schemas.ClickOptions) error {
	opts.Normalize()
	return gatedPointer(ctx, h.page, "click", h.resolveSelf, predicatesClick, opts.ActionOptions,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			return h.page.mouse.Click(ctx, p.X, p.Y, opts.Button, opts.ClickCount, opts.Delay)
		})
}

// Dblclick performs a gated double click.
func (h *ElementHandle) Dblclick(ctx context.Context, opts schemas.ClickOptions) error {
	opts.Normalize()
	opts.ClickCount = 2
	return gatedPointer(ctx, h.page, "dblclick", h.resolveSelf, predicatesClick, opts.ActionOptions,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			return h.page.mouse.Click(ctx, p.X, p.Y, opts.Button, opts.ClickCount, opts.Delay)
		})
}

// Hover moves the pointer over the element. Enabledness is not required;
// hovering a disabled control is legitimate.
func (h *ElementHandle) Hover(ctx context.Context, opts schemas.ActionOptions) error {
	return gatedPointer(ctx, h.page, "hover", h.resolveSelf, predicatesHover, opts,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			return h.page.mouse.Move(ctx, p.X, p.Y, 1)
		})
}

// Tap issues a touch tap on the element. Pages without touch support fail
// fast instead of retrying.
func (h *ElementHandle) Tap(ctx context.Context, opts schemas.ActionOptions) error {
	return gatedPointer(ctx, h.page, "tap", h.resolveSelf, predicatesClick, opts,
		func(ctx context.Context, _ pointerTarget, p schemas.Position) error {
			if err := h.page.checkTouchSupport(ctx); err != nil {
				return err
			}
			return h.page.touchscreen.Tap(ctx, p.X, p.Y)
		})
}

// -- Form actions --

// Fill replaces the control's value with one input/change event pair, the way
// paste does.
func (h *ElementHandle) Fill(ctx context.Context, value string, opts schemas.ActionOptions) error {
	return h.page.runner.Run(ctx, &actions.Request{
		Name:        "fill",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     h.resolveSelf,
		Probe: func(ctx context.Context, target any) error {
			return h.probeStates(ctx, predicatesFill)
		},
		Perform: func(ctx context.Context, target any) error {
			return h.fillValue(ctx, value)
		},
	})
}

func (h *ElementHandle) fillValue(ctx context.Context, value string) error {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsFill, callOptions{returnByValue: true}, value)
	if err != nil {
		return err
	}
	var code string
	if err := decodeInto(obj, &code); err != nil {
		return err
	}
	switch code {
	case "":
		return nil
	case "noteditable":
		return &schemas.NotActionableError{Predicate: actions.PredicateEditable}
	case "notfillable":
		return &schemas.InvalidElementTypeError{Action: "fill", Expected: "an <input>, <textarea> or contenteditable element"}
	}
	return fmt.Errorf("fill failed: %s", code)
}

// Clear empties the control.
func (h *ElementHandle) Clear(ctx context.Context, opts schemas.ActionOptions) error {
	return h.Fill(ctx, "", opts)
}

// SelectOptions selects the <select> options matching the criteria and
// returns the values actually selected.
func (h *ElementHandle) SelectOptions(ctx context.Context, options []schemas.SelectOption, opts schemas.ActionOptions) ([]string, error) {
	var selected []string
	err := h.page.runner.Run(ctx, &actions.Request{
		Name:        "selectOption",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     h.resolveSelf,
		Probe: func(ctx context.Context, target any) error {
			return h.probeStates(ctx, predicatesInput)
		},
		Perform: func(ctx context.Context, target any) error {
			values, err := h.selectOptions(ctx, options)
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

func (h *ElementHandle) selectOptions(ctx context.Context, options []schemas.SelectOption) ([]string, error) {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsSelectOptions,
		callOptions{returnByValue: true}, options)
	if err != nil {
		return nil, err
	}
	var result struct {
		Error  string   `json:"error"`
		Values []string `json:"values"`
	}
	if err := decodeInto(obj, &result); err != nil {
		return nil, err
	}
	if result.Error == "notselect" {
		return nil, &schemas.InvalidElementTypeError{Action: "selectOption", Expected: "a <select> element"}
	}
	return result.Values, nil
}

// SetChecked drives a checkbox or radio to the desired state. Already being
// there is a success without any input dispatch; after a real click the new
// state is verified.
func (h *ElementHandle) SetChecked(ctx context.Context, checked bool, opts schemas.ActionOptions) error {
	return runSetChecked(ctx, h.page, h.resolveSelf, checked, opts)
}

// runSetChecked is the shared gated setChecked flow; resolve supplies either
// a fixed handle or a fresh strict resolution per attempt. The barrier guard
// is released when the run ends, so a no-wait or failed attempt leaves
// nothing armed.
func runSetChecked(ctx context.Context, page *Page, resolve func(ctx context.Context) (any, error), checked bool, opts schemas.ActionOptions) error {
	alreadyDone := false
	guard := &barrierGuard{page: page}
	defer guard.release()

	return page.runner.Run(ctx, &actions.Request{
		Name:        "setChecked",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: opts.NoWaitAfter,
		Resolve:     resolve,
		Probe: func(ctx context.Context, target any) error {
			h := target.(checkedTarget)
			current, err := h.checkedState(ctx)
			if err != nil {
				return err
			}
			if current == checked {
				alreadyDone = true
				return nil
			}
			alreadyDone = false
			if err := h.probeStates(ctx, predicatesClick); err != nil {
				return err
			}
			point, err := h.clickPoint(ctx, opts.Position)
			if err != nil {
				return err
			}
			return h.hitTest(ctx, point)
		},
		Perform: func(ctx context.Context, target any) error {
			h := target.(checkedTarget)
			if opts.Force {
				// Probes were skipped, so the short circuit runs here.
				current, err := h.checkedState(ctx)
				if err != nil {
					return err
				}
				alreadyDone = current == checked
			}
			if alreadyDone {
				return nil
			}
			point, err := h.clickPoint(ctx, opts.Position)
			if err != nil {
				return err
			}
			guard.arm()
			if err := h.click(ctx, point); err != nil {
				return err
			}
			after, err := h.checkedState(ctx)
			if err != nil {
				return err
			}
			if after != checked {
				return fmt.Errorf("setChecked: clicking did not change the checked state")
			}
			return nil
		},
		WaitAfter: guard.wait,
	})
}

// Check is SetChecked(true).
func (h *ElementHandle) Check(ctx context.Context, opts schemas.ActionOptions) error {
	return h.SetChecked(ctx, true, opts)
}

// Uncheck is SetChecked(false).
func (h *ElementHandle) Uncheck(ctx context.Context, opts schemas.ActionOptions) error {
	return h.SetChecked(ctx, false, opts)
}

// click dispatches a plain left click at point.
func (h *ElementHandle) click(ctx context.Context, point schemas.Position) error {
	return h.page.mouse.Click(ctx, point.X, point.Y, schemas.MouseButtonLeft, 1, 0)
}

func (h *ElementHandle) checkedState(ctx context.Context) (bool, error) {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsCheckedState, callOptions{returnByValue: true})
	if err != nil {
		return false, err
	}
	var result struct {
		Checkable bool `json:"checkable"`
		Checked   bool `json:"checked"`
	}
	if err := decodeInto(obj, &result); err != nil {
		return false, err
	}
	if !result.Checkable {
		return false, &schemas.InvalidElementTypeError{Action: "setChecked", Expected: "a checkbox or radio input"}
	}
	return result.Checked, nil
}

// -- Keyboard actions --

// Press focuses the element and presses one key or combination.
func (h *ElementHandle) Press(ctx context.Context, key string, opts schemas.ActionOptions) error {
	return h.page.runner.Run(ctx, &actions.Request{
		Name:        "press",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     h.resolveSelf,
		Probe: func(ctx context.Context, target any) error {
			return h.probeStates(ctx, predicatesInput)
		},
		Perform: func(ctx context.Context, target any) error {
			if err := h.focus(ctx); err != nil {
				return err
			}
			return h.page.keyboard.Press(ctx, key)
		},
	})
}

// Type focuses the element and types the text key by key.
func (h *ElementHandle) Type(ctx context.Context, text string, opts schemas.TypeOptions) error {
	return h.page.runner.Run(ctx, &actions.Request{
		Name:        "type",
		Timeout:     opts.Timeout,
		Force:       opts.Force,
		Trial:       opts.Trial,
		NoWaitAfter: true,
		Resolve:     h.resolveSelf,
		Probe: func(ctx context.Context, target any) error {
			return h.probeStates(ctx, predicatesInput)
		},
		Perform: func(ctx context.Context, target any) error {
			if err := h.focus(ctx); err != nil {
				return err
			}
			return h.page.keyboard.Type(ctx, text, opts.Delay)
		},
	})
}

// -- Misc actions --

// SetInputFiles sets the file list of an <input type=file>. An empty list
// clears the selection.
func (h *ElementHandle) SetInputFiles(ctx context.Context, files []string, opts schemas.ActionOptions) error {
	return h.page.runner.Run(ctx, &actions.Request{
		Name:    "setInputFiles",
		Timeout: opts.Timeout,
		Force:   opts.Force,
		Trial:   opts.Trial,
		Resolve: h.resolveSelf,
		Probe: func(ctx context.Context, target any) error {
			return h.probeInputFile(ctx)
		},
		Perform: func(ctx context.Context, target any) error {
			return h.setInputFiles(ctx, files)
		},
	})
}

func (h *ElementHandle) probeInputFile(ctx context.Context) error {
	obj, err := h.page.eval.callOn(ctx, h.objectID,
		`function() { return this.nodeName.toUpperCase() === 'INPUT' && (this.getAttribute('type') || '').toLowerCase() === 'file'; }`,
		callOptions{returnByValue: true})
	if err != nil {
		return err
	}
	var ok bool
	if err := decodeInto(obj, &ok); err != nil {
		return err
	}
	if !ok {
		return &schemas.InvalidElementTypeError{Action: "setInputFiles", Expected: "an <input type=\"file\"> element"}
	}
	return nil
}

func (h *ElementHandle) setInputFiles(ctx context.Context, files []string) error {
	err := dom.SetFileInputFiles(normalizeInputFiles(files)).
		WithObjectID(h.objectID).
		Do(cdp.WithExecutor(ctx, h.page.sess))
	return translateEvalError(err)
}

// normalizeInputFiles keeps the protocol argument a real array; a nil or
// empty list clears the input's selection rather than being rejected.
func normalizeInputFiles(files []string) []string {
	if len(files) == 0 {
		return []string{}
	}
	return files
}

// SelectText selects the element's full text content.
func (h *ElementHandle) SelectText(ctx context.Context, opts schemas.ActionOptions) error {
	return h.page.runner.Run(ctx, &actions.Request{
		Name:    "selectText",
		Timeout: opts.Timeout,
		Force:   opts.Force,
		Trial:   opts.Trial,
		Resolve: h.resolveSelf,
		Probe: func(ctx context.Context, target any) error {
			return h.probeStates(ctx, []string{actions.PredicateVisible})
		},
		Perform: func(ctx context.Context, target any) error {
			obj, err := h.page.eval.callOn(ctx, h.objectID, jsSelectText, callOptions{returnByValue: true})
			if err != nil {
				return err
			}
			var code string
			if err := decodeInto(obj, &code); err != nil {
				return err
			}
			if code == "noteditable" {
				return &schemas.NotActionableError{Predicate: actions.PredicateEditable}
			}
			return nil
		},
	})
}

// ScrollIntoViewIfNeeded scrolls the element into the viewport once it is
// stable.
func (h *ElementHandle) ScrollIntoViewIfNeeded(ctx context.Context, opts schemas.ActionOptions) error {
	return h.page.runner.Run(ctx, &actions.Request{
		Name:    "scrollIntoViewIfNeeded",
		Timeout: opts.Timeout,
		Force:   opts.Force,
		Resolve: h.resolveSelf,
		Probe: func(ctx context.Context, target any) error {
			return h.probeStates(ctx, []string{actions.PredicateStable})
		},
		Perform: func(ctx context.Context, target any) error {
			return h.scrollIntoView(ctx)
		},
	})
}

func (h *ElementHandle) scrollIntoView(ctx context.Context) error {
	err := dom.ScrollIntoViewIfNeeded().
		WithObjectID(h.objectID).
		Do(cdp.WithExecutor(ctx, h.page.sess))
	return translateEvalError(err)
}

// DispatchEvent synthesizes an event directly on the element, bypassing
// actionability entirely.
func (h *ElementHandle) DispatchEvent(ctx context.Context, eventType string, eventInit map[string]any) error {
	_, err := h.page.eval.callOn(ctx, h.objectID, jsDispatchEvent,
		callOptions{returnByValue: true}, eventType, eventInit)
	return err
}

// Focus gives the element input focus without any gating.
func (h *ElementHandle) Focus(ctx context.Context) error {
	return h.focus(ctx)
}

func (h *ElementHandle) focus(ctx context.Context) error {
	err := dom.Focus().WithObjectID(h.objectID).Do(cdp.WithExecutor(ctx, h.page.sess))
	return translateEvalError(err)
}

// -- Waits --

// WaitForElementState blocks until the element reaches the state. Waits for
// hidden or detached succeed when the element is gone entirely.
func (h *ElementHandle) WaitForElementState(ctx context.Context, opts schemas.WaitForOptions) error {
	opts.Normalize()
	state := opts.State
	return h.page.runner.Run(ctx, &actions.Request{
		Name:    "waitForElementState(" + string(state) + ")",
		Timeout: opts.Timeout,
		Resolve: func(ctx context.Context) (any, error) { return h, nil },
		Probe: func(ctx context.Context, target any) error {
			s, err := h.snapshot(ctx)
			if err != nil {
				if schemas.IsDetached(err) && state.Gone() {
					return nil
				}
				return err
			}
			if !s.Attached {
				if state.Gone() {
					return nil
				}
				return &schemas.DetachedError{}
			}
			if stateSatisfied(state, s) {
				return nil
			}
			return &schemas.NotActionableError{Predicate: string(state)}
		},
	})
}

func stateSatisfied(state schemas.ElementState, s *stateSnapshot) bool {
	switch state {
	case schemas.ElementStateAttached:
		return s.Attached
	case schemas.ElementStateDetached:
		return !s.Attached
	case schemas.ElementStateVisible:
		return s.Visible
	case schemas.ElementStateHidden:
		return !s.Visible
	case schemas.ElementStateStable:
		return s.Stable
	case schemas.ElementStateEnabled:
		return s.Enabled
	case schemas.ElementStateDisabled:
		return !s.Enabled
	case schemas.ElementStateEditable:
		return s.Editable
	}
	return false
}

// -- One-shot readers --

// BoundingBox returns the border-box rect, or nil when the element has no
// layout.
func (h *ElementHandle) BoundingBox(ctx context.Context) (*schemas.Rect, error) {
	box, err := dom.GetBoxModel().WithObjectID(h.objectID).Do(cdp.WithExecutor(ctx, h.page.sess))
	if err != nil {
		terr := translateEvalError(err)
		var na *schemas.NotActionableError
		if errors.As(terr, &na) {
			return nil, nil
		}
		return nil, terr
	}
	if len(box.Border) < 8 {
		return nil, nil
	}
	return quadBounds(box.Border), nil
}

// quadBounds returns the axis-aligned bounding rect of a quad.
func quadBounds(q dom.Quad) *schemas.Rect {
	minX, minY := q[0], q[1]
	maxX, maxY := q[0], q[1]
	for i := 1; i < 4; i++ {
		x, y := q[i*2], q[i*2+1]
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return &schemas.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (h *ElementHandle) stringCall(ctx context.Context, fn string, args ...any) (string, error) {
	obj, err := h.page.eval.callOn(ctx, h.objectID, fn, callOptions{returnByValue: true}, args...)
	if err != nil {
		return "", err
	}
	v, err := remoteValue(obj)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string result, got %T", v)
	}
	return s, nil
}

// InnerText returns the rendered text.
func (h *ElementHandle) InnerText(ctx context.Context) (string, error) {
	return h.stringCall(ctx, jsInnerText)
}

// InnerHTML returns the element's markup.
func (h *ElementHandle) InnerHTML(ctx context.Context) (string, error) {
	return h.stringCall(ctx, jsInnerHTML)
}

// TextContent returns the raw text content.
func (h *ElementHandle) TextContent(ctx context.Context) (string, error) {
	return h.stringCall(ctx, jsTextContent)
}

// GetAttribute returns the attribute value; ok is false when the attribute is
// absent.
func (h *ElementHandle) GetAttribute(ctx context.Context, name string) (value string, ok bool, err error) {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsGetAttribute, callOptions{returnByValue: true}, name)
	if err != nil {
		return "", false, err
	}
	v, err := remoteValue(obj)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, fmt.Errorf("expected a string attribute, got %T", v)
	}
	return s, true, nil
}

// InputValue returns a text control's current value.
func (h *ElementHandle) InputValue(ctx context.Context) (string, error) {
	obj, err := h.page.eval.callOn(ctx, h.objectID, jsInputValue, callOptions{returnByValue: true})
	if err != nil {
		return "", err
	}
	var result struct {
		Error string `json:"error"`
		Value string `json:"value"`
	}
	if err := decodeInto(obj, &result); err != nil {
		return "", err
	}
	if result.Error == "notinput" {
		return "", &schemas.InvalidElementTypeError{Action: "inputValue", Expected: "an <input>, <textarea> or <select> element"}
	}
	return result.Value, nil
}

// -- One-shot state queries --

func (h *ElementHandle) stateQuery(ctx context.Context) (*stateSnapshot, error) {
	s, err := h.snapshot(ctx)
	if err != nil {
		if schemas.IsDetached(err) {
			return &stateSnapshot{}, nil
		}
		return nil, err
	}
	return s, nil
}

// IsVisible reports the current visibility without waiting.
func (h *ElementHandle) IsVisible(ctx context.Context) (bool, error) {
	s, err := h.stateQuery(ctx)
	if err != nil {
		return false, err
	}
	return s.Visible, nil
}

// IsHidden is the negation of IsVisible.
func (h *ElementHandle) IsHidden(ctx context.Context) (bool, error) {
	v, err := h.IsVisible(ctx)
	return !v, err
}

// IsEnabled reports whether the element is enabled.
func (h *ElementHandle) IsEnabled(ctx context.Context) (bool, error) {
	s, err := h.stateQuery(ctx)
	if err != nil {
		return false, err
	}
	return s.Attached && s.Enabled, nil
}

// IsDisabled is the negation of IsEnabled.
func (h *ElementHandle) IsDisabled(ctx context.Context) (bool, error) {
	v, err := h.IsEnabled(ctx)
	return !v, err
}

// IsEditable reports whether the element accepts text edits.
func (h *ElementHandle) IsEditable(ctx context.Context) (bool, error) {
	s, err := h.stateQuery(ctx)
	if err != nil {
		return false, err
	}
	return s.Attached && s.Editable, nil
}

// IsChecked reports a checkable control's current state.
func (h *ElementHandle) IsChecked(ctx context.Context) (bool, error) {
	return h.checkedState(ctx)
}
