// internal/recovery/recovery.go
package recovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
)

// DefaultMaxAttempts bounds a recovery call when the caller passes no budget.
const DefaultMaxAttempts = 5

// Recoverer drives the AI automation capability through bounded retry rounds
// against a failure context, verifying success after every attempt.
type Recoverer struct {
	cfg       config.RecoveryConfig
	automator schemas.AIAutomator
	logger    *zap.Logger
	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a recovery executor around the given AI capability.
func New(cfg config.RecoveryConfig, automator schemas.AIAutomator, logger *zap.Logger) *Recoverer {
	return &Recoverer{
		cfg:       cfg,
		automator: automator,
		logger:    logger.Named("recovery"),
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// Recover attempts the failed step via the AI capability, up to maxAttempts
// times (0 means the default budget). Terminal on the first verified success.
// Capability errors are attempt failures, not aborts: the loop re-describes
// the goal each round with the accumulated history and keeps going until the
// budget runs out.
func (r *Recoverer) Recover(ctx context.Context, page schemas.PageSession, fctx *schemas.FailureContext, vars map[string]string, maxAttempts int) *schemas.ExecutionResult {
	if maxAttempts <= 0 {
		maxAttempts = r.cfg.MaxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	log := r.logger.With(zap.String("step", fctx.Step.Name))
	criteria := fctx.Step.Criteria()
	var allActions []string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			allActions = append(allActions, fmt.Sprintf("recovery cancelled before attempt %d: %v", attempt, ctx.Err()))
			return r.exhausted(fctx, allActions, attempt-1)
		}

		instruction := buildInstruction(fctx, vars, attempt)
		log.Info("Recovery attempt", zap.Int("attempt", attempt), zap.Int("max_attempts", maxAttempts))
		allActions = append(allActions, fmt.Sprintf("attempt %d: instructed agent: %s", attempt, firstLine(instruction)))

		if err := r.automator.PerformInstructed(ctx, instruction); err != nil {
			log.Warn("AI attempt raised an error, retrying", zap.Int("attempt", attempt), zap.Error(err))
			outcome := fmt.Sprintf("agent error: %v", err)
			allActions = append(allActions, fmt.Sprintf("attempt %d failed: %s", attempt, outcome))
			fctx.PriorAttempts = append(fctx.PriorAttempts, schemas.RecoveryAttempt{
				Action:  firstLine(instruction),
				Outcome: outcome,
			})
			continue
		}

		// Give the page a beat to settle before judging the result.
		if err := r.sleep(ctx, r.cfg.SettlePause); err != nil {
			allActions = append(allActions, fmt.Sprintf("recovery interrupted while settling: %v", err))
			return r.exhausted(fctx, allActions, attempt)
		}

		ok, evidence, err := r.verify(ctx, page, criteria)
		if err != nil {
			log.Warn("Verification errored, counting attempt as failed", zap.Int("attempt", attempt), zap.Error(err))
			evidence = fmt.Sprintf("verification error: %v", err)
		}
		if ok {
			log.Info("Recovery verified successful", zap.Int("attempt", attempt), zap.String("evidence", evidence))
			allActions = append(allActions, fmt.Sprintf("attempt %d verified: %s", attempt, evidence))
			return &schemas.ExecutionResult{
				Success: true,
				Method:  schemas.MethodAI,
				Data: schemas.RecoveryAttempt{
					Action:  firstLine(instruction),
					Outcome: "verified: " + evidence,
				},
				AllActions: allActions,
			}
		}

		log.Info("Attempt did not verify, accumulating context", zap.Int("attempt", attempt), zap.String("evidence", evidence))
		allActions = append(allActions, fmt.Sprintf("attempt %d not verified: %s", attempt, evidence))
		fctx.PriorAttempts = append(fctx.PriorAttempts, schemas.RecoveryAttempt{
			Action:  firstLine(instruction),
			Outcome: "completed without error but verification failed: " + evidence,
		})
	}

	return r.exhausted(fctx, allActions, maxAttempts)
}

func (r *Recoverer) exhausted(fctx *schemas.FailureContext, allActions []string, attempts int) *schemas.ExecutionResult {
	msg := fmt.Sprintf("%v: %d attempts on step %q without verified success (original error: %s)",
		schemas.ErrRecoveryExhausted, attempts, fctx.Step.Name, fctx.Error.Message)
	return &schemas.ExecutionResult{
		Success:    false,
		Method:     schemas.MethodAI,
		AllActions: allActions,
		Error:      msg,
		ErrorInfo:  &schemas.ErrorInfo{Kind: fctx.Error.Kind, Message: msg},
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
