// pkg/browser/element_test.go
package browser

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/actuate/api/schemas"
)

// Quads are 8 floats: x1,y1 x2,y2 x3,y3 x4,y4, clockwise from top-left.
func rectQuad(x, y, w, h float64) dom.Quad {
	return dom.Quad{x, y, x + w, y, x + w, y + h, x, y + h}
}

func TestQuadArea(t *testing.T) {
	assert.InDelta(t, 200.0, quadArea(rectQuad(10, 20, 20, 10)), 1e-9)
	assert.InDelta(t, 0.0, quadArea(rectQuad(10, 20, 0, 10)), 1e-9)

	// Winding order must not flip the sign.
	ccw := dom.Quad{10, 20, 10, 30, 30, 30, 30, 20}
	assert.InDelta(t, 200.0, quadArea(ccw), 1e-9)
}

func TestQuadCenter(t *testing.T) {
	c := quadCenter(rectQuad(10, 20, 20, 10))
	assert.Equal(t, schemas.Position{X: 20, Y: 25}, c)
}

func TestClickablePointSkipsDegenerateQuads(t *testing.T) {
	// A collapsed quad (zero height) must be passed over for the real one.
	quads := []dom.Quad{
		rectQuad(0, 0, 100, 0),
		rectQuad(50, 50, 10, 10),
	}
	p, ok := clickablePoint(quads)
	require.True(t, ok)
	assert.Equal(t, schemas.Position{X: 55, Y: 55}, p)
}

func TestClickablePointNoUsableQuad(t *testing.T) {
	_, ok := clickablePoint(nil)
	assert.False(t, ok)

	_, ok = clickablePoint([]dom.Quad{rectQuad(0, 0, 0.5, 0.5)})
	assert.False(t, ok)
}

func TestQuadBounds(t *testing.T) {
	// A rotated-ish quad: bounds are the axis-aligned envelope.
	q := dom.Quad{10, 0, 20, 10, 10, 20, 0, 10}
	r := quadBounds(q)
	assert.Equal(t, &schemas.Rect{X: 0, Y: 0, Width: 20, Height: 20}, r)
}

func TestStateSatisfied(t *testing.T) {
	s := &stateSnapshot{Attached: true, Visible: true, Stable: false, Enabled: false, Editable: false}

	assert.True(t, stateSatisfied(schemas.ElementStateAttached, s))
	assert.False(t, stateSatisfied(schemas.ElementStateDetached, s))
	assert.True(t, stateSatisfied(schemas.ElementStateVisible, s))
	assert.False(t, stateSatisfied(schemas.ElementStateHidden, s))
	assert.False(t, stateSatisfied(schemas.ElementStateStable, s))
	assert.False(t, stateSatisfied(schemas.ElementStateEnabled, s))
	assert.True(t, stateSatisfied(schemas.ElementStateDisabled, s))
	assert.False(t, stateSatisfied(schemas.ElementStateEditable, s))
}

func TestPredicateSetsMatchActionSemantics(t *testing.T) {
	// Hover must not require enabledness; click must.
	assert.NotContains(t, predicatesHover, "enabled")
	assert.Contains(t, predicatesClick, "enabled")
	assert.Contains(t, predicatesFill, "editable")
}

func TestNormalizeInputFilesClearsSelection(t *testing.T) {
	// The protocol wants a real JSON array; clearing sends an empty one.
	assert.Equal(t, []string{}, normalizeInputFiles(nil))
	assert.Equal(t, []string{}, normalizeInputFiles([]string{}))
	assert.Equal(t, []string{"/tmp/report.pdf"}, normalizeInputFiles([]string{"/tmp/report.pdf"}))
}

// fakeCheckTarget scripts a checkbox for the setChecked flow.
type fakeCheckTarget struct {
	checked       bool
	toggleOnClick bool
	probes        int
	clicks        int
}

func (f *fakeCheckTarget) checkedState(context.Context) (bool, error) { return f.checked, nil }
func (f *fakeCheckTarget) probeStates(context.Context, []string) error {
	f.probes++
	return nil
}
func (f *fakeCheckTarget) clickPoint(context.Context, *schemas.Position) (schemas.Position, error) {
	return schemas.Position{X: 4, Y: 4}, nil
}
func (f *fakeCheckTarget) hitTest(context.Context, schemas.Position) error { return nil }
func (f *fakeCheckTarget) click(context.Context, schemas.Position) error {
	f.clicks++
	if f.toggleOnClick {
		f.checked = !f.checked
	}
	return nil
}

func resolveCheckTarget(f *fakeCheckTarget) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) { return f, nil }
}

func TestCheckAlreadyCheckedDispatchesNothing(t *testing.T) {
	p := newBarePage()
	f := &fakeCheckTarget{checked: true}

	err := runSetChecked(context.Background(), p, resolveCheckTarget(f), true, schemas.ActionOptions{})
	require.NoError(t, err)

	assert.Zero(t, f.clicks)
	assert.Zero(t, f.probes, "the short circuit must run before any actionability checks")
	assert.Zero(t, barrierCount(p))
}

func TestForcedCheckStillShortCircuits(t *testing.T) {
	p := newBarePage()
	f := &fakeCheckTarget{checked: true}

	err := runSetChecked(context.Background(), p, resolveCheckTarget(f), true, schemas.ActionOptions{Force: true})
	require.NoError(t, err)

	assert.Zero(t, f.clicks)
	assert.Zero(t, f.probes)
}

func TestSetCheckedClicksAndVerifies(t *testing.T) {
	p := newBarePage()
	f := &fakeCheckTarget{checked: false, toggleOnClick: true}

	err := runSetChecked(context.Background(), p, resolveCheckTarget(f), true, schemas.ActionOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.clicks)
	assert.True(t, f.checked)
	assert.Zero(t, barrierCount(p))
}

func TestSetCheckedUnchangedStateFailsFast(t *testing.T) {
	p := newBarePage()
	f := &fakeCheckTarget{checked: false}

	err := runSetChecked(context.Background(), p, resolveCheckTarget(f), true, schemas.ActionOptions{})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "did not change")
	assert.Equal(t, 1, f.clicks, "a fatal verification failure must not retry")
	assert.Zero(t, barrierCount(p))
}
