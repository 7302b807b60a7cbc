// pkg/browser/query_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in     string
		engine selectorEngine
		body   string
	}{
		{"button.primary", engineCSS, "button.primary"},
		{"#login > input[name=q]", engineCSS, "#login > input[name=q]"},
		{"css=div.row", engineCSS, "div.row"},
		{"xpath=//button[text()='Go']", engineXPath, "//button[text()='Go']"},
		{"//a[@href]", engineXPath, "//a[@href]"},
		{"/html/body/div", engineXPath, "/html/body/div"},
		{"(//input)[2]", engineXPath, "(//input)[2]"},
		{"text=Sign in", engineText, "Sign in"},
		{"  button  ", engineCSS, "button"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sel, err := parseSelector(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.engine, sel.Engine)
			assert.Equal(t, tt.body, sel.Body)
			assert.Equal(t, tt.in, sel.Source)
		})
	}
}

func TestParseSelectorRejectsEmpty(t *testing.T) {
	_, err := parseSelector("")
	require.Error(t, err)
	_, err = parseSelector("   ")
	require.Error(t, err)
	_, err = parseSelector("css=")
	require.Error(t, err)
}
