// pkg/browser/evaluate_test.go
package browser

import (
	"errors"
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/actuate/api/schemas"
)

func TestErrorFromExceptionStrictMarker(t *testing.T) {
	exc := &runtime.ExceptionDetails{
		Exception: &runtime.RemoteObject{
			Description: "Error: " + strictMarker + "3\n    at <anonymous>:1:10",
		},
	}
	err := errorFromException(exc)

	var sv *schemas.StrictModeViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, 3, sv.Matches)

	// The resolver must throw the exact prefix the translation scans for.
	assert.Contains(t, jsResolveOne, strictMarker)
}

func TestErrorFromExceptionIgnoresLookalikes(t *testing.T) {
	// Page-authored exceptions mentioning "strict" must not be mistaken for
	// resolver violations.
	for _, desc := range []string{
		"Error: restrict:10 is not allowed",
		"Error: strict:3",
		"Error: use strict: mode required",
	} {
		err := errorFromException(&runtime.ExceptionDetails{
			Exception: &runtime.RemoteObject{Description: desc},
		})
		require.Error(t, err)
		assert.False(t, schemas.IsStrictModeViolation(err), "misclassified %q", desc)
	}
}

func TestErrorFromExceptionPlain(t *testing.T) {
	exc := &runtime.ExceptionDetails{Text: "Uncaught"}
	err := errorFromException(exc)
	require.Error(t, err)
	assert.False(t, schemas.IsStrictModeViolation(err))
	assert.Contains(t, err.Error(), "Uncaught")
}

func TestTranslateEvalErrorDetachFamily(t *testing.T) {
	for _, msg := range []string{
		"Cannot find context with specified id",
		"Could not find object with given id",
		"Node is detached from document",
		"Execution context was destroyed",
	} {
		err := translateEvalError(errors.New(msg))
		assert.True(t, schemas.IsDetached(err), "expected detach for %q", msg)
	}
}

func TestTranslateEvalErrorLayoutFamily(t *testing.T) {
	err := translateEvalError(errors.New("Node does not have a layout object"))
	var na *schemas.NotActionableError
	require.ErrorAs(t, err, &na)
	assert.False(t, schemas.IsFatal(err), "missing layout must stay retryable")
}

func TestTranslateEvalErrorPassthrough(t *testing.T) {
	sentinel := errors.New("some transport failure")
	assert.Equal(t, sentinel, translateEvalError(sentinel))
	assert.NoError(t, translateEvalError(nil))
}

func TestRemoteValue(t *testing.T) {
	v, err := remoteValue(&runtime.RemoteObject{Value: easyjson.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)

	v, err = remoteValue(&runtime.RemoteObject{})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = remoteValue(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecodeInto(t *testing.T) {
	var s stateSnapshot
	obj := &runtime.RemoteObject{Value: easyjson.RawMessage(`{"attached":true,"visible":true,"stable":false}`)}
	require.NoError(t, decodeInto(obj, &s))
	assert.True(t, s.Attached)
	assert.True(t, s.Visible)
	assert.False(t, s.Stable)

	assert.Error(t, decodeInto(&runtime.RemoteObject{}, &s))
}
