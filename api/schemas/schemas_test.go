// api/schemas/schemas_test.go
package schemas

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationPreservesExplicitZero(t *testing.T) {
	def := 30 * time.Second

	assert.Equal(t, def, Duration(nil, def))

	zero := time.Duration(0)
	assert.Equal(t, time.Duration(0), Duration(&zero, def), "explicit zero means no deadline and must survive")

	five := 5 * time.Second
	assert.Equal(t, five, Duration(&five, def))
}

func TestElementStateGone(t *testing.T) {
	assert.True(t, ElementStateHidden.Gone())
	assert.True(t, ElementStateDetached.Gone())
	assert.False(t, ElementStateVisible.Gone())
	assert.False(t, ElementStateAttached.Gone())
}

func TestCombineModifiers(t *testing.T) {
	m := CombineModifiers([]KeyboardModifier{ModifierAlt, ModifierShift})
	assert.Equal(t, KeyboardModifier(9), m)
	assert.Equal(t, KeyboardModifier(0), CombineModifiers(nil))
}

func TestRectEqualAndCenter(t *testing.T) {
	a := Rect{X: 1, Y: 2, Width: 10, Height: 20}
	assert.True(t, a.Equal(Rect{X: 1, Y: 2, Width: 10, Height: 20}))
	assert.False(t, a.Equal(Rect{X: 1, Y: 2.0001, Width: 10, Height: 20}))
	assert.Equal(t, Position{X: 6, Y: 12}, a.Center())
}

func TestSelectOptionHelpers(t *testing.T) {
	opts := SelectValues("red", "blue")
	assert.Len(t, opts, 2)
	assert.Equal(t, `value="red", value="blue"`, DescribeSelectOptions(opts))

	labels := SelectLabels("Red")
	assert.Equal(t, `label="Red"`, DescribeSelectOptions(labels))

	idx := int64(2)
	assert.Equal(t, "index=2", SelectOption{Index: &idx}.String())
	assert.Equal(t, "<empty>", SelectOption{}.String())
}

func TestClickOptionsNormalize(t *testing.T) {
	var o ClickOptions
	o.Normalize()
	assert.Equal(t, MouseButtonLeft, o.Button)
	assert.Equal(t, 1, o.ClickCount)

	o = ClickOptions{Button: MouseButtonRight, ClickCount: 2}
	o.Normalize()
	assert.Equal(t, MouseButtonRight, o.Button)
	assert.Equal(t, 2, o.ClickCount)
}

func TestWaitForOptionsNormalize(t *testing.T) {
	var o WaitForOptions
	o.Normalize()
	assert.Equal(t, ElementStateVisible, o.State)
}

func TestNavigationOptionsNormalize(t *testing.T) {
	var o NavigationOptions
	o.Normalize()
	assert.Equal(t, LoadStateLoad, o.WaitUntil)
}

func TestIsFatalClassification(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(&NotActionableError{Predicate: "visible"}))

	fatal := []error{
		&StrictModeViolationError{Selector: "button", Matches: 2},
		&DetachedError{Action: "click"},
		&ProtocolError{Method: "DOM.focus", Code: -32000, Message: "nope"},
		&TargetClosedError{},
		&InvalidElementTypeError{Action: "check", Expected: "a checkbox"},
		errors.New("anything else"),
	}
	for _, err := range fatal {
		assert.True(t, IsFatal(err), "expected fatal: %v", err)
	}
}

func TestTimeoutErrorWrapsCause(t *testing.T) {
	cause := &NotActionableError{Predicate: "stable"}
	err := &TimeoutError{Action: "click", Timeout: time.Second, Cause: cause}

	assert.True(t, IsTimeout(err))
	var na *NotActionableError
	assert.True(t, errors.As(err, &na))
	assert.Contains(t, err.Error(), "click")
	assert.Contains(t, err.Error(), "element is not stable")
}
