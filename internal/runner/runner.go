// internal/runner/runner.go
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
)

// Outcome bundles the execution result with the selectors that were actually
// attempted, which the controller needs to build a FailureContext.
type Outcome struct {
	Result    *schemas.ExecutionResult
	Attempted []string
}

// Runner executes a single deterministic step action against a borrowed page
// session, validating each attempt's effect before accepting it.
type Runner struct {
	cfg    config.RunnerConfig
	logger *zap.Logger
	// sleep is swappable for tests; production uses a context-aware pause.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a scripted step runner.
func New(cfg config.RunnerConfig, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger.Named("runner"),
		sleep:  ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunScripted performs the step's declared action. It never panics or lets
// browser errors escape: every failure is folded into the returned Outcome.
func (r *Runner) RunScripted(ctx context.Context, page schemas.PageSession, step *schemas.Step, vars map[string]string) *Outcome {
	log := r.logger.With(zap.String("step", step.Name), zap.String("action", string(step.ScriptedAction)))

	if !step.HasScriptedPath() {
		return failed(nil, schemas.ErrorInfo{
			Kind:    schemas.ErrKindUnknown,
			Message: "step has no usable scripted action",
		}, nil)
	}

	value := Substitute(step.Value, vars)

	switch step.ScriptedAction {
	case schemas.ActionNavigate:
		return r.runNavigate(ctx, page, step, vars, log)
	case schemas.ActionWait:
		return r.runWait(ctx, page, step, log)
	case schemas.ActionFill:
		return r.runFill(ctx, page, step, value, log)
	case schemas.ActionSelect:
		return r.runSelect(ctx, page, step, value, log)
	case schemas.ActionClick:
		return r.runClick(ctx, page, step, log)
	}

	// HasScriptedPath guarantees a valid kind; this is unreachable by design
	// but keeps the switch exhaustive for the compiler.
	return failed(nil, schemas.ErrorInfo{
		Kind:    schemas.ErrKindUnknown,
		Message: fmt.Sprintf("unhandled action kind %q", step.ScriptedAction),
	}, nil)
}

// runNavigate navigates and verifies the landing URL actually contains the
// target, rather than trusting the absence of an error.
func (r *Runner) runNavigate(ctx context.Context, page schemas.PageSession, step *schemas.Step, vars map[string]string, log *zap.Logger) *Outcome {
	target := Substitute(step.TargetURL, vars)
	actions := []string{fmt.Sprintf("navigate to %s", target)}

	navCtx, cancel := context.WithTimeout(ctx, r.cfg.ActionTimeout)
	defer cancel()

	if err := page.Navigate(navCtx, target); err != nil {
		log.Warn("Navigation failed", zap.String("url", target), zap.Error(err))
		return failed(actions, classify(err, schemas.ErrKindNavigation), nil)
	}

	current, err := page.CurrentURL(ctx)
	if err != nil {
		return failed(actions, classify(err, schemas.ErrKindNavigation), nil)
	}
	if !urlMatchesTarget(current, target) {
		msg := fmt.Sprintf("navigation landed on %q, expected URL containing %q", current, target)
		log.Warn("Navigation mismatch", zap.String("landed", current), zap.String("expected", target))
		return failed(actions, schemas.ErrorInfo{Kind: schemas.ErrKindNavigation, Message: msg}, nil)
	}

	actions = append(actions, fmt.Sprintf("verified URL %s", current))
	return succeeded(actions, schemas.ActionRecord{Action: string(schemas.ActionNavigate), URL: target})
}

// runWait waits for the first candidate selector to become visible.
func (r *Runner) runWait(ctx context.Context, page schemas.PageSession, step *schemas.Step, log *zap.Logger) *Outcome {
	selector := step.CandidateSelectors[0]
	actions := []string{fmt.Sprintf("wait for %s", selector)}

	if err := page.WaitVisible(ctx, selector, r.cfg.ActionTimeout); err != nil {
		log.Warn("Wait for selector failed", zap.String("selector", selector), zap.Error(err))
		return failed(actions, classify(err, schemas.ErrKindTimeout), []string{selector})
	}
	actions = append(actions, fmt.Sprintf("%s became visible", selector))
	return succeeded(actions, schemas.ActionRecord{Action: string(schemas.ActionWait), Selector: selector})
}

// runFill iterates candidates in order. Each candidate must pass a visibility
// pre-check before being acted on (acting blindly and catching failures risks
// typing into the wrong stale element), and must read back the exact
// substituted value afterwards.
func (r *Runner) runFill(ctx context.Context, page schemas.PageSession, step *schemas.Step, value string, log *zap.Logger) *Outcome {
	var actions []string
	var attempted []string
	var lastErr error

	for _, selector := range step.CandidateSelectors {
		if ctx.Err() != nil {
			return failed(actions, classify(ctx.Err(), schemas.ErrKindTimeout), attempted)
		}

		if err := page.WaitVisible(ctx, selector, r.cfg.SelectorTimeout); err != nil {
			log.Debug("Fill candidate not visible, skipping", zap.String("selector", selector))
			attempted = append(attempted, selector)
			lastErr = err
			continue
		}
		attempted = append(attempted, selector)

		if err := page.Fill(ctx, selector, value); err != nil {
			log.Debug("Fill action failed on candidate", zap.String("selector", selector), zap.Error(err))
			actions = append(actions, fmt.Sprintf("fill %s failed: %v", selector, err))
			lastErr = err
			continue
		}

		// Validate the effect: the field must hold exactly what we typed.
		// A shorter read-back (e.g. a maxlength truncation) is a failure.
		got, err := page.Value(ctx, selector)
		if err != nil {
			lastErr = err
			continue
		}
		if got != value {
			msg := fmt.Sprintf("fill readback mismatch on %s: got %q, want %q", selector, got, value)
			log.Warn("Fill validation failed", zap.String("selector", selector), zap.String("got", got))
			actions = append(actions, msg)
			lastErr = fmt.Errorf("input value mismatch: %s", msg)
			continue
		}

		actions = append(actions, fmt.Sprintf("filled %s and verified value", selector))
		return succeededWith(actions, attempted, schemas.ActionRecord{Action: string(schemas.ActionFill), Selector: selector, Value: value})
	}

	return failed(actions, fillFailure(step.CandidateSelectors, lastErr), attempted)
}

// runClick iterates candidates requiring visibility and enabledness before
// acting. Click has no direct value to verify, so either a URL change or an
// error-free settle delay counts as evidence of success.
func (r *Runner) runClick(ctx context.Context, page schemas.PageSession, step *schemas.Step, log *zap.Logger) *Outcome {
	var actions []string
	var attempted []string
	var lastErr error

	before, _ := page.CurrentURL(ctx)

	for _, selector := range step.CandidateSelectors {
		if ctx.Err() != nil {
			return failed(actions, classify(ctx.Err(), schemas.ErrKindTimeout), attempted)
		}

		if err := page.WaitVisible(ctx, selector, r.cfg.SelectorTimeout); err != nil {
			log.Debug("Click candidate not visible, skipping", zap.String("selector", selector))
			attempted = append(attempted, selector)
			lastErr = err
			continue
		}
		enabled, err := page.IsEnabled(ctx, selector)
		if err != nil || !enabled {
			log.Debug("Click candidate not enabled, skipping", zap.String("selector", selector), zap.Error(err))
			attempted = append(attempted, selector)
			if err != nil {
				lastErr = err
			} else {
				lastErr = fmt.Errorf("element %s is disabled", selector)
			}
			continue
		}
		attempted = append(attempted, selector)

		if err := page.Click(ctx, selector); err != nil {
			log.Debug("Click failed on candidate", zap.String("selector", selector), zap.Error(err))
			actions = append(actions, fmt.Sprintf("click %s failed: %v", selector, err))
			lastErr = fmt.Errorf("click failed: %w", err)
			continue
		}

		if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
			return failed(actions, classify(err, schemas.ErrKindTimeout), attempted)
		}

		after, _ := page.CurrentURL(ctx)
		if after != "" && after != before {
			actions = append(actions, fmt.Sprintf("clicked %s, URL changed to %s", selector, after))
		} else {
			actions = append(actions, fmt.Sprintf("clicked %s, page settled", selector))
		}
		return succeededWith(actions, attempted, schemas.ActionRecord{Action: string(schemas.ActionClick), Selector: selector})
	}

	info := schemas.ErrorInfo{Kind: schemas.ErrKindClickFailed, Message: exhaustedMessage("click", step.CandidateSelectors, lastErr)}
	if lastErr != nil && schemas.ClassifyError(lastErr) == schemas.ErrKindTimeout {
		info.Kind = schemas.ErrKindSelectorNotFound
	}
	return failed(actions, info, attempted)
}

// runSelect behaves like fill for <select> elements, with value readback.
func (r *Runner) runSelect(ctx context.Context, page schemas.PageSession, step *schemas.Step, value string, log *zap.Logger) *Outcome {
	var actions []string
	var attempted []string
	var lastErr error

	for _, selector := range step.CandidateSelectors {
		if err := page.WaitVisible(ctx, selector, r.cfg.SelectorTimeout); err != nil {
			attempted = append(attempted, selector)
			lastErr = err
			continue
		}
		attempted = append(attempted, selector)

		if err := page.SelectOption(ctx, selector, value); err != nil {
			actions = append(actions, fmt.Sprintf("select %s failed: %v", selector, err))
			lastErr = err
			continue
		}
		got, err := page.Value(ctx, selector)
		if err != nil || got != value {
			if err == nil {
				err = fmt.Errorf("input value mismatch: select %s holds %q, want %q", selector, got, value)
			}
			lastErr = err
			continue
		}

		actions = append(actions, fmt.Sprintf("selected %q in %s", value, selector))
		return succeededWith(actions, attempted, schemas.ActionRecord{Action: string(schemas.ActionSelect), Selector: selector, Value: value})
	}

	return failed(actions, fillFailure(step.CandidateSelectors, lastErr), attempted)
}

// -- helpers --

func succeeded(actions []string, data interface{}) *Outcome {
	return succeededWith(actions, nil, data)
}

func succeededWith(actions, attempted []string, data interface{}) *Outcome {
	return &Outcome{
		Result: &schemas.ExecutionResult{
			Success:    true,
			Method:     schemas.MethodSnippet,
			Data:       data,
			AllActions: actions,
		},
		Attempted: attempted,
	}
}

func failed(actions []string, info schemas.ErrorInfo, attempted []string) *Outcome {
	return &Outcome{
		Result: &schemas.ExecutionResult{
			Success:    false,
			Method:     schemas.MethodSnippet,
			AllActions: actions,
			Error:      info.Message,
			ErrorInfo:  &info,
		},
		Attempted: attempted,
	}
}

func classify(err error, fallback schemas.ErrorKind) schemas.ErrorInfo {
	kind := schemas.ClassifyError(err)
	if kind == schemas.ErrKindUnknown {
		kind = fallback
	}
	return schemas.ErrorInfo{Kind: kind, Message: err.Error()}
}

func fillFailure(selectors []string, lastErr error) schemas.ErrorInfo {
	info := schemas.ErrorInfo{
		Kind:    schemas.ErrKindInputFailed,
		Message: exhaustedMessage("fill", selectors, lastErr),
	}
	if lastErr != nil {
		switch schemas.ClassifyError(lastErr) {
		case schemas.ErrKindTimeout:
			// Every candidate timed out waiting for visibility: the element is
			// simply not on this page.
			info.Kind = schemas.ErrKindSelectorNotFound
		case schemas.ErrKindSelectorNotFound:
			info.Kind = schemas.ErrKindSelectorNotFound
		}
	}
	return info
}

func exhaustedMessage(action string, selectors []string, lastErr error) string {
	msg := fmt.Sprintf("%s exhausted all %d candidate selectors", action, len(selectors))
	if lastErr != nil {
		msg += ": last error: " + lastErr.Error()
	}
	return msg
}

func urlMatchesTarget(current, target string) bool {
	if current == target {
		return true
	}
	// Trailing slashes and scheme defaults make exact equality too strict.
	trim := func(s string) string {
		s = strings.TrimPrefix(s, "http://")
		s = strings.TrimPrefix(s, "https://")
		return strings.TrimSuffix(s, "/")
	}
	return strings.Contains(trim(current), trim(target))
}
