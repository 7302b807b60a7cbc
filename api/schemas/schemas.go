// api/schemas/schemas.go
// Package schemas holds the shared public types of the automation surface:
// geometry, element states, selector unions, and the error taxonomy. Both the
// engine internals and library consumers import these, so they carry no
// dependencies beyond the standard library.
package schemas

import (
	"fmt"
	"strings"
	"time"
)

// Position is a point in main-frame CSS pixels. When attached to an action it
// is interpreted relative to the top-left corner of the element's padding box.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned bounding box in main-frame CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Equal reports whether two rects match exactly. Element stability is defined
// as the bounding rect not moving between two consecutive animation frames.
func (r Rect) Equal(o Rect) bool {
	return r.X == o.X && r.Y == o.Y && r.Width == o.Width && r.Height == o.Height
}

// Center returns the midpoint of the rect.
func (r Rect) Center() Position {
	return Position{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// ElementState identifies a waitable element condition.
type ElementState string

const (
	ElementStateAttached ElementState = "attached"
	ElementStateDetached ElementState = "detached"
	ElementStateVisible  ElementState = "visible"
	ElementStateHidden   ElementState = "hidden"
	ElementStateEnabled  ElementState = "enabled"
	ElementStateDisabled ElementState = "disabled"
	ElementStateEditable ElementState = "editable"
	ElementStateStable   ElementState = "stable"
)

// Gone reports whether the state is satisfied by the element being absent.
// Waiting for a hidden or detached element must succeed when the selector
// matches nothing at all.
func (s ElementState) Gone() bool {
	return s == ElementStateHidden || s == ElementStateDetached
}

// LoadState identifies a document lifecycle milestone.
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// MouseButton names a pointer button for click-family actions.
type MouseButton string

const (
	MouseButtonLeft   MouseButton = "left"
	MouseButtonMiddle MouseButton = "middle"
	MouseButtonRight  MouseButton = "right"
)

// KeyboardModifier is a bitmask of held modifier keys. The values match the
// DevTools protocol Input domain encoding and combine with bitwise OR.
type KeyboardModifier int64

const (
	ModifierAlt     KeyboardModifier = 1
	ModifierControl KeyboardModifier = 2
	ModifierMeta    KeyboardModifier = 4
	ModifierShift   KeyboardModifier = 8
)

// CombineModifiers folds a modifier list into the protocol bitmask.
func CombineModifiers(mods []KeyboardModifier) KeyboardModifier {
	var m KeyboardModifier
	for _, mod := range mods {
		m |= mod
	}
	return m
}

// SelectOption is one matching criterion for selectOption. Exactly one of the
// fields should be set; the polymorphic overloads of other bindings all funnel
// into a list of these.
type SelectOption struct {
	Value *string `json:"value,omitempty"`
	Label *string `json:"label,omitempty"`
	Index *int64  `json:"index,omitempty"`
}

// String renders the criterion for log and error messages.
func (o SelectOption) String() string {
	switch {
	case o.Value != nil:
		return fmt.Sprintf("value=%q", *o.Value)
	case o.Label != nil:
		return fmt.Sprintf("label=%q", *o.Label)
	case o.Index != nil:
		return fmt.Sprintf("index=%d", *o.Index)
	}
	return "<empty>"
}

// SelectValues normalizes plain value strings into the canonical criteria
// list, mirroring how string overloads collapse into the real method.
func SelectValues(values ...string) []SelectOption {
	opts := make([]SelectOption, 0, len(values))
	for _, v := range values {
		v := v
		opts = append(opts, SelectOption{Value: &v})
	}
	return opts
}

// SelectLabels normalizes option labels into the canonical criteria list.
func SelectLabels(labels ...string) []SelectOption {
	opts := make([]SelectOption, 0, len(labels))
	for _, l := range labels {
		l := l
		opts = append(opts, SelectOption{Label: &l})
	}
	return opts
}

// Describe summarizes a criteria list, for timeout messages.
func DescribeSelectOptions(opts []SelectOption) string {
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, ", ")
}

// Duration converts a possibly-nil timeout override into a concrete value.
// nil means "use the default"; an explicit zero means "no deadline at all"
// and must be preserved, not replaced.
func Duration(override *time.Duration, def time.Duration) time.Duration {
	if override != nil {
		return *override
	}
	return def
}
