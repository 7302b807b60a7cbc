// api/schemas/options.go
package schemas

import "time"

// ActionOptions configures one actionability-gated action. The zero value is
// always usable: defaults come from engine configuration, not from here.
type ActionOptions struct {
	// Force skips every actionability check except that the element resolves.
	Force bool
	// NoWaitAfter suppresses the post-action navigation wait.
	NoWaitAfter bool
	// Trial runs the full resolve/probe cycle but stops before performing.
	Trial bool
	// Timeout overrides the configured default deadline. nil keeps the
	// default; a pointer to zero disables the deadline entirely (the action
	// retries until its context is cancelled).
	Timeout *time.Duration
	// Position offsets pointer actions from the element's padding-box origin
	// instead of targeting the center of the first content quad.
	Position *Position
	// Modifiers are held down around pointer actions.
	Modifiers []KeyboardModifier
}

// ClickOptions extends ActionOptions for the click family.
type ClickOptions struct {
	ActionOptions
	Button MouseButton
	// ClickCount > 1 produces multi-click events (2 for double click).
	ClickCount int
	// Delay holds the button down before release.
	Delay time.Duration
}

// TypeOptions configures key-by-key typing.
type TypeOptions struct {
	ActionOptions
	// Delay paces individual key presses.
	Delay time.Duration
}

// WaitForOptions configures element-state and selector waits.
type WaitForOptions struct {
	State   ElementState
	Timeout *time.Duration
}

// NavigationOptions configures Goto and explicit navigation waits.
type NavigationOptions struct {
	WaitUntil LoadState
	Timeout   *time.Duration
}

// Normalize fills unset fields of ClickOptions.
func (o *ClickOptions) Normalize() {
	if o.Button == "" {
		o.Button = MouseButtonLeft
	}
	if o.ClickCount == 0 {
		o.ClickCount = 1
	}
}

// Normalize fills unset fields of WaitForOptions.
func (o *WaitForOptions) Normalize() {
	if o.State == "" {
		o.State = ElementStateVisible
	}
}

// Normalize fills unset fields of NavigationOptions.
func (o *NavigationOptions) Normalize() {
	if o.WaitUntil == "" {
		o.WaitUntil = LoadStateLoad
	}
}
