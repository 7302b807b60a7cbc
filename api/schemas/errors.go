// api/schemas/errors.go
package schemas

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError is raised when an action's deadline elapses before the element
// became actionable, or before a consequential navigation settled. The last
// failed precondition, when known, is carried as the wrapped cause so callers
// can tell "never appeared" from "appeared but stayed obscured".
type TimeoutError struct {
	Action  string
	Timeout time.Duration
	Cause   error
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: timed out after %v: %v", e.Action, e.Timeout, e.Cause)
	}
	return fmt.Sprintf("%s: timed out after %v", e.Action, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// StrictModeViolationError is raised when a single-target operation resolved
// to more than one element. It is never retried.
type StrictModeViolationError struct {
	Selector string
	Matches  int
}

func (e *StrictModeViolationError) Error() string {
	return fmt.Sprintf("strict mode violation: selector %q resolved to %d elements", e.Selector, e.Matches)
}

// NotActionableError records which actionability precondition an element
// failed. Inside the retry loop these are swallowed and retried; they surface
// to callers only as the cause of a TimeoutError.
type NotActionableError struct {
	Predicate string
}

func (e *NotActionableError) Error() string {
	return fmt.Sprintf("element is not %s", e.Predicate)
}

// InvalidElementTypeError is raised when an action's element-kind requirement
// fails, e.g. check() on something that is not a checkbox or radio. Not
// retried: the element kind will not change by waiting.
type InvalidElementTypeError struct {
	Action   string
	Expected string
}

func (e *InvalidElementTypeError) Error() string {
	return fmt.Sprintf("%s: element is not %s", e.Action, e.Expected)
}

// DetachedError is raised when the target element was removed from the
// document while an action was in flight.
type DetachedError struct {
	Action string
}

func (e *DetachedError) Error() string {
	if e.Action == "" {
		return "element is detached from the document"
	}
	return fmt.Sprintf("%s: element was detached from the document", e.Action)
}

// ProtocolError is a failure reported by the driver itself: the command was
// rejected or the transport broke. Never retried by the scheduler.
type ProtocolError struct {
	Method  string
	Code    int64
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("protocol error on %s (%d): %s", e.Method, e.Code, e.Message)
}

// TargetClosedError is raised when the page or browser went away while
// commands were outstanding.
type TargetClosedError struct {
	Reason string
}

func (e *TargetClosedError) Error() string {
	if e.Reason == "" {
		return "target closed"
	}
	return "target closed: " + e.Reason
}

// IsTimeout reports whether err is (or wraps) a deadline failure.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsStrictModeViolation reports whether err is a multiplicity failure.
func IsStrictModeViolation(err error) bool {
	var se *StrictModeViolationError
	return errors.As(err, &se)
}

// IsDetached reports whether err is a mid-action detach.
func IsDetached(err error) bool {
	var de *DetachedError
	return errors.As(err, &de)
}

// IsProtocol reports whether err originated from the driver boundary.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsFatal reports whether the scheduler must stop retrying on err. Anything
// that is not a transient actionability failure is fatal for the action.
func IsFatal(err error) bool {
	var (
		na *NotActionableError
	)
	if err == nil {
		return false
	}
	if errors.As(err, &na) {
		return false
	}
	return true
}
