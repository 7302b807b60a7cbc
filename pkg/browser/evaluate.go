// pkg/browser/evaluate.go
package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/actuate/api/schemas"
	"github.com/xkilldash9x/actuate/internal/actions"
	"github.com/xkilldash9x/actuate/internal/protocol"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// evaluator wraps one protocol session with the Runtime-domain plumbing the
// engine needs: function invocation, argument encoding, result decoding and
// exception translation.
type evaluator struct {
	sess *protocol.Session
}

// callOptions control how a function invocation returns.
type callOptions struct {
	// returnByValue asks for JSON data instead of a remote handle.
	returnByValue bool
	// awaitPromise resolves async functions before returning.
	awaitPromise bool
}

// callOn invokes fn with the remote object as its receiver. Arguments are
// JSON-encoded by value.
func (e *evaluator) callOn(ctx context.Context, objectID runtime.RemoteObjectID, fn string, opts callOptions, args ...any) (*runtime.RemoteObject, error) {
	callArgs, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	p := runtime.CallFunctionOn(fn).
		WithObjectID(objectID).
		WithReturnByValue(opts.returnByValue).
		WithAwaitPromise(opts.awaitPromise)
	if len(callArgs) > 0 {
		p = p.WithArguments(callArgs)
	}

	obj, exc, err := p.Do(cdp.WithExecutor(ctx, e.sess))
	if err != nil {
		return nil, translateEvalError(err)
	}
	if exc != nil {
		return nil, errorFromException(exc)
	}
	return obj, nil
}

// evaluate runs an expression at document scope.
func (e *evaluator) evaluate(ctx context.Context, expression string, opts callOptions) (*runtime.RemoteObject, error) {
	obj, exc, err := runtime.Evaluate(expression).
		WithReturnByValue(opts.returnByValue).
		WithAwaitPromise(opts.awaitPromise).
		Do(cdp.WithExecutor(ctx, e.sess))
	if err != nil {
		return nil, translateEvalError(err)
	}
	if exc != nil {
		return nil, errorFromException(exc)
	}
	return obj, nil
}

// callFunction invokes a document-scope function by building a call
// expression around it, so callers can pass plain function literals.
func (e *evaluator) callFunction(ctx context.Context, fn string, opts callOptions, args ...any) (*runtime.RemoteObject, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		buf, err := jsonAPI.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument: %w", err)
		}
		encoded = append(encoded, string(buf))
	}
	expr := fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", "))
	return e.evaluate(ctx, expr, opts)
}

// releaseObject drops a remote handle; errors are ignored because the page
// may already have navigated away.
func (e *evaluator) releaseObject(ctx context.Context, objectID runtime.RemoteObjectID) {
	_ = runtime.ReleaseObject(objectID).Do(cdp.WithExecutor(ctx, e.sess))
}

func encodeArgs(args []any) ([]*runtime.CallArgument, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]*runtime.CallArgument, 0, len(args))
	for _, a := range args {
		if h, ok := a.(*ElementHandle); ok {
			out = append(out, &runtime.CallArgument{ObjectID: h.objectID})
			continue
		}
		buf, err := jsonAPI.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument: %w", err)
		}
		out = append(out, &runtime.CallArgument{Value: buf})
	}
	return out, nil
}

// remoteValue decodes a by-value RemoteObject into plain Go data.
func remoteValue(obj *runtime.RemoteObject) (any, error) {
	if obj == nil {
		return nil, nil
	}
	if obj.UnserializableValue != "" {
		switch obj.UnserializableValue {
		case "NaN", "Infinity", "-Infinity", "-0":
			f, _ := strconv.ParseFloat(strings.TrimPrefix(string(obj.UnserializableValue), "-0"), 64)
			return f, nil
		}
		return nil, fmt.Errorf("unserializable value %q", obj.UnserializableValue)
	}
	if len(obj.Value) == 0 {
		return nil, nil
	}
	var v any
	if err := jsonAPI.Unmarshal(obj.Value, &v); err != nil {
		return nil, fmt.Errorf("failed to decode remote value: %w", err)
	}
	return v, nil
}

// decodeInto unmarshals a by-value RemoteObject into a typed destination.
func decodeInto(obj *runtime.RemoteObject, dst any) error {
	if obj == nil || len(obj.Value) == 0 {
		return fmt.Errorf("remote call returned no value")
	}
	return jsonAPI.Unmarshal(obj.Value, dst)
}

// strictMarker prefixes the exception the injected resolver throws on a
// strict-mode violation. Distinctive enough that page-authored exception text
// cannot collide with it.
const strictMarker = "actuate::strict-mode-violation::"

// errorFromException maps a page-side exception to the engine's error
// taxonomy. The injected script signals strict-mode violations with the
// strictMarker prefix; everything else surfaces as a plain error.
func errorFromException(exc *runtime.ExceptionDetails) error {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg = exc.Exception.Description
	}

	if idx := strings.Index(msg, strictMarker); idx >= 0 {
		rest := msg[idx+len(strictMarker):]
		if end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' }); end > 0 {
			rest = rest[:end]
		}
		if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
			return &schemas.StrictModeViolationError{Matches: n}
		}
	}
	return fmt.Errorf("page evaluation failed: %s", msg)
}

// translateEvalError maps driver-level failures of Runtime calls. A destroyed
// execution context or missing node means the element went away; that is a
// detach for the scheduler, not a hard protocol failure.
func translateEvalError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Cannot find context with specified id"),
		strings.Contains(msg, "Execution context was destroyed"),
		strings.Contains(msg, "Inspected target navigated or closed"):
		return &schemas.DetachedError{}
	case strings.Contains(msg, "Could not find object with given id"),
		strings.Contains(msg, "Object id doesn't reference a Node"),
		strings.Contains(msg, "No node with given id found"),
		strings.Contains(msg, "Node is detached from document"):
		return &schemas.DetachedError{}
	case strings.Contains(msg, "Node does not have a layout object"),
		strings.Contains(msg, "Could not compute content quads"):
		return &schemas.NotActionableError{Predicate: actions.PredicateVisible}
	}
	return err
}
