// internal/controller/controller.go
package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
	"github.com/xkilldash9x/replay-cli/internal/runner"
)

// ScriptedRunner is the deterministic execution tier.
type ScriptedRunner interface {
	RunScripted(ctx context.Context, page schemas.PageSession, step *schemas.Step, vars map[string]string) *runner.Outcome
}

// RecoveryExecutor is the AI fallback tier.
type RecoveryExecutor interface {
	Recover(ctx context.Context, page schemas.PageSession, fctx *schemas.FailureContext, vars map[string]string, maxAttempts int) *schemas.ExecutionResult
}

// Controller is the top-level per-step state machine: it evaluates skip
// conditions, dispatches to the scripted or AI path per the step's
// preference, wires scripted failure into recovery, and tracks run
// statistics. It is the "execute one step" contract the playback driver
// consumes.
type Controller struct {
	cfg       config.RecoveryConfig
	page      schemas.PageSession
	runner    ScriptedRunner
	recoverer RecoveryExecutor
	logger    *zap.Logger
	stats     statsAccumulator

	// execMu serializes step execution: the page handle is not safe for
	// concurrent mutation, and steps depend on state left by their
	// predecessors.
	execMu sync.Mutex
}

// New wires the controller around a borrowed page session and the two
// execution tiers.
func New(cfg config.RecoveryConfig, page schemas.PageSession, scripted ScriptedRunner, recoverer RecoveryExecutor, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		page:      page,
		runner:    scripted,
		recoverer: recoverer,
		logger:    logger.Named("controller"),
	}
}

// ExecuteStep runs one step to a terminal state. Scripted failures never
// escape as errors; they are folded into ExecutionResult so the playback
// driver can apply its own abort-or-continue policy.
func (c *Controller) ExecuteStep(ctx context.Context, step *schemas.Step, vars map[string]string) *schemas.ExecutionResult {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	log := c.logger.With(zap.String("step", step.Name))

	// SkipCheck: the first matching condition terminates the step as skipped.
	if skip, reason := c.evaluateSkipConditions(ctx, step); skip {
		log.Info("Step skipped", zap.String("reason", reason))
		result := &schemas.ExecutionResult{
			Success:    true,
			Skipped:    true,
			SkipReason: reason,
			AllActions: []string{"skipped: " + reason},
		}
		c.stats.record(result)
		return result
	}

	// Dispatch per preference.
	result := c.dispatch(ctx, step, vars, log)
	c.stats.record(result)
	return result
}

func (c *Controller) dispatch(ctx context.Context, step *schemas.Step, vars map[string]string, log *zap.Logger) *schemas.ExecutionResult {
	if step.Preference == schemas.PreferAI || !step.HasScriptedPath() {
		log.Info("Dispatching step to AI path", zap.String("preference", string(step.Preference)))
		return c.runAIPath(ctx, step, vars, nil, nil)
	}

	log.Debug("Dispatching step to scripted path")
	outcome := c.runner.RunScripted(ctx, c.page, step, vars)
	if outcome.Result.Success {
		log.Info("Scripted path succeeded")
		return outcome.Result
	}

	// RecoveryDecision: only fall through to AI when policy allows and an
	// instruction (explicit or synthesizable) is available.
	if step.FallbackPolicy != schemas.FallbackAI {
		log.Warn("Scripted path failed and fallback policy forbids recovery",
			zap.String("policy", string(step.FallbackPolicy)),
			zap.String("error", outcome.Result.Error))
		return outcome.Result
	}

	log.Info("Scripted path failed, escalating to AI recovery", zap.String("error", outcome.Result.Error))
	c.stats.recordScriptedFailure()
	return c.runAIPath(ctx, step, vars, outcome.Result, outcome.Attempted)
}

// runAIPath builds the failure context (fresh per scripted failure) and hands
// off to the recovery executor. When the scripted tier made page-visible
// progress before AI finished the step, the success is reported as hybrid; a
// scripted attempt that never got to act stays a plain AI execution.
func (c *Controller) runAIPath(ctx context.Context, step *schemas.Step, vars map[string]string, scripted *schemas.ExecutionResult, attempted []string) *schemas.ExecutionResult {
	fctx := c.buildFailureContext(ctx, step, scripted, attempted)

	result := c.recoverer.Recover(ctx, c.page, fctx, vars, c.cfg.MaxAttempts)

	if scripted != nil {
		if result.Success && len(scripted.AllActions) > 0 {
			result.Method = schemas.MethodHybrid
		}
		// Preserve the full audit trail across both tiers.
		result.AllActions = append(scripted.AllActions, result.AllActions...)
	}
	return result
}

func (c *Controller) buildFailureContext(ctx context.Context, step *schemas.Step, scripted *schemas.ExecutionResult, attempted []string) *schemas.FailureContext {
	fctx := &schemas.FailureContext{
		Step:               step,
		AttemptedSelectors: attempted,
	}

	if scripted != nil && scripted.ErrorInfo != nil {
		fctx.Error = *scripted.ErrorInfo
	} else {
		fctx.Error = schemas.ErrorInfo{
			Kind:    schemas.ErrKindUnknown,
			Message: "step dispatched directly to AI path",
		}
	}

	if snap, err := c.page.Snapshot(ctx); err == nil {
		fctx.PageState = *snap
	} else {
		c.logger.Debug("Could not snapshot page for failure context", zap.Error(err))
		if url, uerr := c.page.CurrentURL(ctx); uerr == nil {
			fctx.PageState.URL = url
		}
	}
	return fctx
}

// Statistics returns a copy of the accumulated run counters.
func (c *Controller) Statistics() schemas.RunStatistics {
	return c.stats.snapshot()
}

// ResetStatistics zeroes the counters between runs.
func (c *Controller) ResetStatistics() {
	c.stats.reset()
}
