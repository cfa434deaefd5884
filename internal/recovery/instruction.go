// internal/recovery/instruction.go
package recovery

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/runner"
)

// buildInstruction composes the natural-language instruction for one recovery
// attempt. From the second attempt on it carries a summary of everything
// already tried in this recovery call, explicitly asking for a different
// approach. Without that context the agent happily retries a plan that has
// already been falsified.
func buildInstruction(fctx *schemas.FailureContext, vars map[string]string, attempt int) string {
	step := fctx.Step
	var b strings.Builder

	goal := runner.Substitute(step.Instruction, vars)
	if goal == "" {
		goal = describeStepGoal(step, vars)
	}

	fmt.Fprintf(&b, "Goal: %s\n", goal)
	fmt.Fprintf(&b, "The scripted attempt failed with a %s error: %s\n", fctx.Error.Kind, fctx.Error.Message)
	fmt.Fprintf(&b, "Current page: %s (title: %q)\n", fctx.PageState.URL, fctx.PageState.Title)

	if len(fctx.AttemptedSelectors) > 0 {
		fmt.Fprintf(&b, "Selectors already attempted without success: %s\n", strings.Join(fctx.AttemptedSelectors, ", "))
	}

	if attempt == 1 && shouldBiasTowardNavigation(fctx) {
		// The target element is absent from this page. Re-attempting the
		// action here is a near-certain repeat failure; getting to the right
		// page first is the productive move.
		b.WriteString("The target element does not appear to exist on the current page. ")
		b.WriteString("Before attempting the action itself, navigate to the page where this element would exist ")
		b.WriteString("(use the site's menus, links, or URL patterns), then perform the goal.\n")
	}

	if attempt > 1 && len(fctx.PriorAttempts) > 0 {
		fmt.Fprintf(&b, "\nThis is attempt %d. Previous attempts in this recovery and their outcomes:\n", attempt)
		for i, prior := range fctx.PriorAttempts {
			fmt.Fprintf(&b, "  %d. %s -> %s\n", i+1, prior.Action, prior.Outcome)
		}
		b.WriteString("All of the above failed. Try a DIFFERENT approach than what has already been attempted.\n")
	}

	return b.String()
}

// describeStepGoal synthesizes a goal description for steps recorded without
// a natural-language instruction.
func describeStepGoal(step *schemas.Step, vars map[string]string) string {
	value := runner.Substitute(step.Value, vars)
	switch step.ScriptedAction {
	case schemas.ActionNavigate:
		return fmt.Sprintf("navigate to %s", runner.Substitute(step.TargetURL, vars))
	case schemas.ActionFill:
		return fmt.Sprintf("enter %q into the field the step %q refers to", value, step.Name)
	case schemas.ActionSelect:
		return fmt.Sprintf("select the option %q in the dropdown the step %q refers to", value, step.Name)
	case schemas.ActionClick:
		return fmt.Sprintf("click the element the step %q refers to", step.Name)
	case schemas.ActionWait:
		return fmt.Sprintf("wait until the content for step %q is present", step.Name)
	}
	return fmt.Sprintf("complete the step named %q", step.Name)
}

// shouldBiasTowardNavigation reports whether the first recovery instruction
// should steer the agent to the right page instead of re-attempting the
// action where the element is known to be missing.
func shouldBiasTowardNavigation(fctx *schemas.FailureContext) bool {
	if len(fctx.Step.CandidateSelectors) == 0 {
		return false
	}
	switch fctx.Error.Kind {
	case schemas.ErrKindTimeout, schemas.ErrKindSelectorNotFound:
		return true
	}
	return false
}

// buildVerificationPrompt asks the judge for a structured success judgment
// about the task, given a snapshot of the page after the attempt.
func buildVerificationPrompt(description string, snap *schemas.PageStateSnapshot) string {
	var b strings.Builder
	b.WriteString("You are verifying whether a browser automation task succeeded.\n")
	fmt.Fprintf(&b, "Task: %s\n\n", description)
	b.WriteString("Current page state after the attempt:\n")
	fmt.Fprintf(&b, "  URL: %s\n", snap.URL)
	fmt.Fprintf(&b, "  Title: %s\n", snap.Title)
	if len(snap.VisibleInputs) > 0 {
		fmt.Fprintf(&b, "  Visible inputs: %s\n", strings.Join(snap.VisibleInputs, ", "))
	}
	if len(snap.VisibleButtons) > 0 {
		fmt.Fprintf(&b, "  Visible buttons/links: %s\n", strings.Join(snap.VisibleButtons, ", "))
	}
	fmt.Fprintf(&b, "  Login form present: %t\n", snap.HasLoginForm)
	b.WriteString("\nAnswer with a single JSON object, nothing else: ")
	b.WriteString(`{"success": true|false, "evidence": "<what on the page supports your judgment>"}`)
	return b.String()
}
