// internal/controller/skip.go
package controller

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// evaluateSkipConditions checks each configured condition against the live
// page; the first match short-circuits the whole step. Replay often starts
// from an already-authenticated or already-navigated state, and blindly
// repeating e.g. a login step would corrupt the session.
func (c *Controller) evaluateSkipConditions(ctx context.Context, step *schemas.Step) (bool, string) {
	for _, cond := range step.SkipConditions {
		matched := c.conditionMatches(ctx, cond)
		if !matched {
			continue
		}
		reason := cond.Reason
		if reason == "" {
			reason = "skip condition matched: " + string(cond.Kind) + " " + cond.Pattern
		}
		return true, reason
	}
	return false, ""
}

func (c *Controller) conditionMatches(ctx context.Context, cond schemas.SkipCondition) bool {
	switch cond.Kind {
	case schemas.SkipURLMatch:
		current, err := c.page.CurrentURL(ctx)
		if err != nil {
			c.logger.Debug("Skip check could not read URL", zap.Error(err))
			return false
		}
		return strings.Contains(current, cond.Pattern)

	case schemas.SkipElementExists:
		exists, err := c.page.ElementExists(ctx, cond.Pattern)
		if err != nil {
			c.logger.Debug("Skip check could not query element", zap.String("selector", cond.Pattern), zap.Error(err))
			return false
		}
		return exists

	case schemas.SkipTextPresent:
		present, err := c.page.TextPresent(ctx, cond.Pattern)
		if err != nil {
			c.logger.Debug("Skip check could not read page text", zap.Error(err))
			return false
		}
		return present
	}

	c.logger.Warn("Unknown skip condition kind, ignoring", zap.String("kind", string(cond.Kind)))
	return false
}
