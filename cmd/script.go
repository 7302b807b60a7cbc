// cmd/script.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/api/schemas"
	"github.com/xkilldash9x/actuate/pkg/browser"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Script is one automation scenario: an optional starting URL and an ordered
// list of steps, each running with the engine's full actionability gating.
type Script struct {
	URL   string `json:"url"`
	Steps []Step `json:"steps"`
}

// Step is a single scripted operation.
type Step struct {
	Op       string `json:"op"`
	Selector string `json:"selector,omitempty"`

	URL        string   `json:"url,omitempty"`
	Value      string   `json:"value,omitempty"`
	Key        string   `json:"key,omitempty"`
	State      string   `json:"state,omitempty"`
	Values     []string `json:"values,omitempty"`
	Files      []string `json:"files,omitempty"`
	Expression string   `json:"expression,omitempty"`
	Path       string   `json:"path,omitempty"`
	Button     string   `json:"button,omitempty"`

	Force       bool `json:"force,omitempty"`
	Trial       bool `json:"trial,omitempty"`
	NoWaitAfter bool `json:"no_wait_after,omitempty"`

	TimeoutMS *int64 `json:"timeout_ms,omitempty"`
	DelayMS   int64  `json:"delay_ms,omitempty"`
}

// selectorOps require a selector; everything else is page-level.
var selectorOps = map[string]bool{
	"click": true, "dblclick": true, "hover": true, "tap": true,
	"fill": true, "clear": true, "press": true, "type": true,
	"check": true, "uncheck": true, "select": true,
	"set_files": true, "wait_for": true,
}

var pageOps = map[string]bool{
	"goto": true, "wait_for_load": true, "evaluate": true, "screenshot": true,
}

// LoadScript reads and validates a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %q: %w", path, err)
	}
	var s Script
	if err := jsonAPI.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script %q: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %q: %w", path, err)
	}
	return &s, nil
}

// Validate rejects scripts with unknown or malformed steps before any browser
// is launched.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	for i, step := range s.Steps {
		switch {
		case selectorOps[step.Op]:
			if step.Selector == "" {
				return fmt.Errorf("step %d (%s): selector is required", i, step.Op)
			}
		case pageOps[step.Op]:
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}

		switch step.Op {
		case "goto":
			if step.URL == "" {
				return fmt.Errorf("step %d (goto): url is required", i)
			}
		case "press":
			if step.Key == "" {
				return fmt.Errorf("step %d (press): key is required", i)
			}
		case "select":
			if len(step.Values) == 0 {
				return fmt.Errorf("step %d (select): values is required", i)
			}
		case "evaluate":
			if step.Expression == "" {
				return fmt.Errorf("step %d (evaluate): expression is required", i)
			}
		case "screenshot":
			if step.Path == "" {
				return fmt.Errorf("step %d (screenshot): path is required", i)
			}
		}
	}
	return nil
}

func (st Step) actionOptions() schemas.ActionOptions {
	opts := schemas.ActionOptions{
		Force:       st.Force,
		Trial:       st.Trial,
		NoWaitAfter: st.NoWaitAfter,
	}
	if st.TimeoutMS != nil {
		d := time.Duration(*st.TimeoutMS) * time.Millisecond
		opts.Timeout = &d
	}
	return opts
}

func (st Step) waitTimeout() *time.Duration {
	if st.TimeoutMS == nil {
		return nil
	}
	d := time.Duration(*st.TimeoutMS) * time.Millisecond
	return &d
}

// runScript drives one script against a fresh page.
func runScript(ctx context.Context, page *browser.Page, script *Script, logger *zap.Logger) error {
	if script.URL != "" {
		if err := page.Goto(ctx, script.URL, schemas.NavigationOptions{}); err != nil {
			return err
		}
	}
	for i, step := range script.Steps {
		logger.Info("Running step.",
			zap.Int("step", i),
			zap.String("op", step.Op),
			zap.String("selector", step.Selector))
		if err := applyStep(ctx, page, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}
	return nil
}

func applyStep(ctx context.Context, page *browser.Page, st Step) error {
	opts := st.actionOptions()
	loc := func() *browser.Locator { return page.Locator(st.Selector) }

	switch st.Op {
	case "goto":
		return page.Goto(ctx, st.URL, schemas.NavigationOptions{
			WaitUntil: schemas.LoadState(st.State),
			Timeout:   st.waitTimeout(),
		})
	case "wait_for_load":
		return page.WaitForLoadState(ctx, schemas.NavigationOptions{
			WaitUntil: schemas.LoadState(st.State),
			Timeout:   st.waitTimeout(),
		})
	case "click":
		return loc().Click(ctx, schemas.ClickOptions{
			ActionOptions: opts,
			Button:        schemas.MouseButton(st.Button),
		})
	case "dblclick":
		return loc().Dblclick(ctx, schemas.ClickOptions{
			ActionOptions: opts,
			Button:        schemas.MouseButton(st.Button),
		})
	case "hover":
		return loc().Hover(ctx, opts)
	case "tap":
		return loc().Tap(ctx, opts)
	case "fill":
		return loc().Fill(ctx, st.Value, opts)
	case "clear":
		return loc().Clear(ctx, opts)
	case "press":
		return loc().Press(ctx, st.Key, opts)
	case "type":
		return loc().Type(ctx, st.Value, schemas.TypeOptions{
			ActionOptions: opts,
			Delay:         time.Duration(st.DelayMS) * time.Millisecond,
		})
	case "check":
		return loc().Check(ctx, opts)
	case "uncheck":
		return loc().Uncheck(ctx, opts)
	case "select":
		_, err := loc().SelectOptions(ctx, schemas.SelectValues(st.Values...), opts)
		return err
	case "set_files":
		return loc().SetInputFiles(ctx, st.Files, opts)
	case "wait_for":
		return loc().WaitFor(ctx, schemas.WaitForOptions{
			State:   schemas.ElementState(st.State),
			Timeout: st.waitTimeout(),
		})
	case "evaluate":
		_, err := page.Evaluate(ctx, st.Expression)
		return err
	case "screenshot":
		data, err := page.Screenshot(ctx)
		if err != nil {
			return err
		}
		return os.WriteFile(st.Path, data, 0o644)
	}
	return fmt.Errorf("unknown op %q", st.Op)
}
