// internal/recovery/verify.go
package recovery

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/llmutil"
)

// verdict is the structured judgment expected back from the AI judge.
type verdict struct {
	Success  bool   `json:"success"`
	Evidence string `json:"evidence"`
}

// verify decides whether the attempt achieved the step's goal. Explicit
// criteria are evaluated deterministically against the live page; only
// ai_verify (or absent criteria) involves the judge.
func (r *Recoverer) verify(ctx context.Context, page schemas.PageSession, criteria schemas.SuccessCriteria) (bool, string, error) {
	switch criteria.Kind {
	case schemas.CriteriaElementExists:
		exists, err := page.ElementExists(ctx, criteria.Selector)
		if err != nil {
			return false, "", err
		}
		return exists, fmt.Sprintf("element %s exists: %t", criteria.Selector, exists), nil

	case schemas.CriteriaElementHasValue:
		got, err := page.Value(ctx, criteria.Selector)
		if err != nil {
			return false, "", err
		}
		ok := got == criteria.ExpectedValue
		return ok, fmt.Sprintf("element %s holds %q, want %q", criteria.Selector, got, criteria.ExpectedValue), nil

	case schemas.CriteriaNavigation:
		return r.verifyNavigation(ctx, page, criteria)

	case schemas.CriteriaCustom:
		ok, err := page.EvalBool(ctx, criteria.PredicateJS)
		if err != nil {
			return false, "", err
		}
		return ok, fmt.Sprintf("custom predicate returned %t", ok), nil

	case schemas.CriteriaAIVerify:
		return r.verifyWithJudge(ctx, page, criteria.Description)
	}

	// Unknown kind falls back to the AI judge with whatever description is
	// available; never assume success.
	return r.verifyWithJudge(ctx, page, criteria.Description)
}

// verifyNavigation matches the current URL against the declared pattern and
// optionally waits for a landmark element of the destination page.
func (r *Recoverer) verifyNavigation(ctx context.Context, page schemas.PageSession, criteria schemas.SuccessCriteria) (bool, string, error) {
	current, err := page.CurrentURL(ctx)
	if err != nil {
		return false, "", err
	}

	matched, err := regexp.MatchString(criteria.URLPattern, current)
	if err != nil {
		// An invalid pattern in the spec degrades to substring matching
		// rather than failing every verification.
		matched = containsFold(current, criteria.URLPattern)
	}
	if !matched {
		return false, fmt.Sprintf("URL %q does not match pattern %q", current, criteria.URLPattern), nil
	}

	if criteria.WaitForElement != "" {
		if err := page.WaitVisible(ctx, criteria.WaitForElement, 5*time.Second); err != nil {
			return false, fmt.Sprintf("URL matched but element %s never became visible", criteria.WaitForElement), nil
		}
	}
	return true, fmt.Sprintf("URL %q matches pattern %q", current, criteria.URLPattern), nil
}

// verifyWithJudge asks the AI capability for a structured judgment and parses
// it. An unparseable response is a verification failure, never a success.
func (r *Recoverer) verifyWithJudge(ctx context.Context, page schemas.PageSession, description string) (bool, string, error) {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to snapshot page for verification: %w", err)
	}
	if description == "" {
		description = "the intended browser action completed successfully"
	}

	response, err := r.automator.Judge(ctx, buildVerificationPrompt(description, snap))
	if err != nil {
		return false, "", fmt.Errorf("AI verification call failed: %w", err)
	}

	v, err := llmutil.ParseJSONResponse[verdict](response)
	if err != nil {
		r.logger.Warn("Verification judgment was unparseable, treating as failure",
			zap.Error(err), zap.String("response", truncateForLog(response)))
		return false, "unparseable verification judgment", fmt.Errorf("%w: %v", schemas.ErrVerificationParse, err)
	}

	return v.Success, v.Evidence, nil
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return len(needle) <= len(haystack) && regexp.MustCompile("(?i)"+regexp.QuoteMeta(needle)).MatchString(haystack)
}

func truncateForLog(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
