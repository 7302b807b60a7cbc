// internal/actions/actions.go
// Package actions implements the actionability scheduler: the retry loop that
// resolves a target, probes its preconditions, performs the input, and waits
// out any consequences, all under one deadline. It is deliberately free of
// protocol dependencies; callers encode resolution and probing as closures,
// which is what makes the loop testable without a browser.
package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/api/schemas"
)

// Predicate names for actionability failures. These end up in
// NotActionableError and, through it, in timeout messages.
const (
	PredicateAttached       = "attached"
	PredicateVisible        = "visible"
	PredicateStable         = "stable"
	PredicateEnabled        = "enabled"
	PredicateEditable       = "editable"
	PredicateReceivesEvents = "receiving pointer events"
)

// Request describes one gated action. Resolve runs every attempt from
// scratch; returning a retryable error (NotActionableError) schedules another
// attempt, anything else aborts immediately.
type Request struct {
	// Name labels the action in logs and timeout errors, e.g. "click".
	Name string

	// Timeout overrides the runner's default deadline. nil keeps the default;
	// a pointer to zero removes the deadline so the action retries until the
	// caller's context is cancelled.
	Timeout *time.Duration

	// Force skips Probe entirely. Resolve still runs.
	Force bool
	// Trial stops after a successful probe without performing.
	Trial bool
	// NoWaitAfter suppresses WaitAfter.
	NoWaitAfter bool

	// Resolve produces the attempt's target. It must re-resolve on every call
	// rather than reusing a stale result.
	Resolve func(ctx context.Context) (any, error)
	// Probe checks actionability preconditions on the resolved target. nil
	// means the action has none.
	Probe func(ctx context.Context, target any) error
	// Perform executes the real input on the resolved target. nil for pure
	// waits.
	Perform func(ctx context.Context, target any) error
	// WaitAfter settles consequences of Perform (navigation). Runs under the
	// same deadline as the rest of the action.
	WaitAfter func(ctx context.Context) error
}

// Runner schedules gated actions. One runner per page is the expected shape,
// but it carries no per-action state and is safe for concurrent use.
type Runner struct {
	logger         *zap.Logger
	pollInterval   time.Duration
	defaultTimeout time.Duration
	slowMo         time.Duration
}

// NewRunner builds a Runner. pollInterval must be positive; defaultTimeout
// zero means actions have no deadline unless they bring their own.
func NewRunner(defaultTimeout, pollInterval, slowMo time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Runner{
		logger:         logger.Named("actions"),
		pollInterval:   pollInterval,
		defaultTimeout: defaultTimeout,
		slowMo:         slowMo,
	}
}

// Run drives req to completion: success, a fatal error, or a TimeoutError
// wrapping the last failed precondition. The first attempt starts immediately;
// the poll interval only separates attempts.
func (r *Runner) Run(ctx context.Context, req *Request) error {
	if req.Resolve == nil {
		return fmt.Errorf("%s: request has no resolver", req.Name)
	}

	timeout := schemas.Duration(req.Timeout, r.defaultTimeout)

	actionCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actionCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := r.logger.With(zap.String("action", req.Name))
	log.Debug("Action started.",
		zap.Duration("timeout", timeout),
		zap.Bool("force", req.Force),
		zap.Bool("trial", req.Trial))

	var lastErr error
	attempt := 0
	for {
		attempt++
		done, err := r.attempt(actionCtx, req, log)
		if done {
			if err == nil {
				log.Debug("Action completed.", zap.Int("attempts", attempt))
				return nil
			}
			// A deadline that expired mid-attempt is still an action timeout.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return &schemas.TimeoutError{Action: req.Name, Timeout: timeout, Cause: lastErr}
			}
			return err
		}
		lastErr = err
		log.Debug("Action not ready; will retry.",
			zap.Int("attempt", attempt), zap.Error(err))

		if err := r.sleep(ctx, actionCtx, req, timeout, lastErr); err != nil {
			return err
		}
	}
}

// attempt runs one resolve/probe/perform cycle. done=false with a retryable
// error schedules another attempt.
func (r *Runner) attempt(ctx context.Context, req *Request, log *zap.Logger) (done bool, err error) {
	target, err := req.Resolve(ctx)
	if err != nil {
		if schemas.IsFatal(err) {
			return true, err
		}
		return false, err
	}

	if !req.Force && req.Probe != nil {
		if err := req.Probe(ctx, target); err != nil {
			if schemas.IsFatal(err) {
				return true, err
			}
			return false, err
		}
	}

	if req.Trial {
		return true, nil
	}

	if req.Perform != nil {
		if err := req.Perform(ctx, target); err != nil {
			if schemas.IsFatal(err) {
				return true, err
			}
			return false, err
		}
		if r.slowMo > 0 {
			select {
			case <-time.After(r.slowMo):
			case <-ctx.Done():
			}
		}
	}

	if req.WaitAfter != nil && !req.NoWaitAfter {
		// Consequences settle under the same deadline; their failures are
		// never retried because the input has already happened.
		if err := req.WaitAfter(ctx); err != nil {
			return true, err
		}
	}

	return true, nil
}

// sleep waits one poll interval, translating an expired action deadline into
// a TimeoutError that carries the last failed precondition.
func (r *Runner) sleep(parent, actionCtx context.Context, req *Request, timeout time.Duration, lastErr error) error {
	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-actionCtx.Done():
		if parent.Err() != nil {
			// The caller gave up; don't dress that up as an action timeout.
			return parent.Err()
		}
		return &schemas.TimeoutError{Action: req.Name, Timeout: timeout, Cause: lastErr}
	}
}
