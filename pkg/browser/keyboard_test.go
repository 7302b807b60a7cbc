// pkg/browser/keyboard_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/actuate/api/schemas"
)

func TestLookupKeyLetters(t *testing.T) {
	def, shift, ok := lookupKey("a")
	require.True(t, ok)
	assert.False(t, shift)
	assert.Equal(t, "KeyA", def.Code)
	assert.Equal(t, int64('A'), def.KeyCode)
	assert.Equal(t, "a", def.Text)

	// Uppercase resolves to the same physical key, shifted.
	def, shift, ok = lookupKey("A")
	require.True(t, ok)
	assert.True(t, shift)
	assert.Equal(t, "KeyA", def.Code)
}

func TestLookupKeyShiftedSymbols(t *testing.T) {
	def, shift, ok := lookupKey("$")
	require.True(t, ok)
	assert.True(t, shift)
	assert.Equal(t, "Digit4", def.Code)

	def, shift, ok = lookupKey("?")
	require.True(t, ok)
	assert.True(t, shift)
	assert.Equal(t, "Slash", def.Code)
}

func TestLookupKeyNamedKeys(t *testing.T) {
	def, _, ok := lookupKey("Enter")
	require.True(t, ok)
	assert.Equal(t, "\r", def.Text)
	assert.Equal(t, int64(13), def.KeyCode)

	_, _, ok = lookupKey("NoSuchKey")
	assert.False(t, ok)
}

func TestSplitCombo(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a", []string{"a"}},
		{"Enter", []string{"Enter"}},
		{"Control+a", []string{"Control", "a"}},
		{"Control+Shift+t", []string{"Control", "Shift", "t"}},
		{"+", []string{"+"}},
		{"Control++", []string{"Control", "+"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCombo(tt.in))
		})
	}
}

func TestModifierBit(t *testing.T) {
	assert.Equal(t, schemas.ModifierAlt, modifierBit("Alt"))
	assert.Equal(t, schemas.ModifierControl, modifierBit("Control"))
	assert.Equal(t, schemas.ModifierMeta, modifierBit("Meta"))
	assert.Equal(t, schemas.ModifierShift, modifierBit("Shift"))
	assert.Equal(t, schemas.KeyboardModifier(0), modifierBit("a"))
}

func TestModifierKeyNames(t *testing.T) {
	assert.Empty(t, modifierKeyNames(0))
	assert.Equal(t, []string{"Shift"}, modifierKeyNames(schemas.ModifierShift))
	assert.Equal(t, []string{"Alt", "Control", "Meta", "Shift"},
		modifierKeyNames(schemas.ModifierAlt|schemas.ModifierControl|schemas.ModifierMeta|schemas.ModifierShift))
}

func TestKeyboardTracksModifiers(t *testing.T) {
	// Bookkeeping only; no events are dispatched here.
	k := newKeyboard(nil)
	assert.Equal(t, schemas.KeyboardModifier(0), k.Modifiers())

	k.mu.Lock()
	k.modifiers |= schemas.ModifierControl | schemas.ModifierShift
	k.mu.Unlock()
	assert.Equal(t, schemas.ModifierControl|schemas.ModifierShift, k.Modifiers())
}
