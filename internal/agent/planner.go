// internal/agent/planner.go
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
	"github.com/xkilldash9x/replay-cli/internal/llmutil"
)

const plannerSystemPrompt = `You are a browser automation agent controlling a live web page.
Given an instruction and the current page state, produce the minimal sequence of
concrete browser actions that accomplishes the instruction.

Respond ONLY with a JSON array of action objects, no prose. Each object:
  {"action": "navigate|fill|click|select|wait", "selector": "<css selector>", "value": "<text or option value>", "url": "<absolute url>"}

Rules:
- "navigate" requires "url". "fill" and "select" require "selector" and "value".
- "click" and "wait" require "selector".
- Use selectors derived from the visible inputs/buttons listed in the page state.
- Prefer the fewest actions that achieve the goal.`

// plannedAction is one element of the JSON plan returned by the model.
type plannedAction struct {
	Action   string `json:"action"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Planner implements schemas.AIAutomator: it asks the LLM to turn a natural
// language instruction into a short action plan and executes that plan
// against the borrowed page session. When the model cannot produce a plan and
// the heuristic tier is enabled, a regex pass over the instruction synthesizes
// a single last-resort action.
type Planner struct {
	llm       schemas.LLMClient
	page      schemas.PageSession
	logger    *zap.Logger
	heuristic bool
	waitAfter time.Duration
}

var _ schemas.AIAutomator = (*Planner)(nil)

// NewPlanner creates the AI automation capability bound to one page session.
func NewPlanner(llm schemas.LLMClient, page schemas.PageSession, cfg config.RecoveryConfig, logger *zap.Logger) *Planner {
	return &Planner{
		llm:       llm,
		page:      page,
		logger:    logger.Named("agent"),
		heuristic: cfg.HeuristicFallback,
		waitAfter: 500 * time.Millisecond,
	}
}

// PerformInstructed attempts to make the instructed change happen on the live
// page. A returned error means this attempt failed; the caller decides
// whether to retry.
func (p *Planner) PerformInstructed(ctx context.Context, instruction string) error {
	plan, err := p.plan(ctx, instruction)
	if err != nil {
		if !p.heuristic {
			return err
		}
		p.logger.Warn("Plan generation failed, falling back to heuristic tier", zap.Error(err))
		action, herr := heuristicAction(instruction)
		if herr != nil {
			return fmt.Errorf("plan generation failed (%v) and heuristic fallback found nothing: %w", err, herr)
		}
		plan = []plannedAction{*action}
	}

	if len(plan) == 0 {
		return fmt.Errorf("model returned an empty action plan")
	}

	for i, action := range plan {
		if err := p.execute(ctx, action); err != nil {
			return fmt.Errorf("plan step %d (%s) failed: %w", i+1, action.Action, err)
		}
	}
	return nil
}

// Judge proxies a plain generation call for AI-based verification.
func (p *Planner) Judge(ctx context.Context, prompt string) (string, error) {
	return p.llm.GenerateResponse(ctx, schemas.GenerationRequest{
		SystemPrompt: "You are a strict verifier of browser automation outcomes. Answer only with the requested JSON.",
		UserPrompt:   prompt,
		Options:      schemas.GenerationOptions{Temperature: 0, ForceJSONFormat: true},
	})
}

// plan asks the model for an action plan, including a fresh page snapshot so
// selectors refer to what is actually on screen.
func (p *Planner) plan(ctx context.Context, instruction string) ([]plannedAction, error) {
	snap, err := p.page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page for planning: %w", err)
	}

	userPrompt := fmt.Sprintf("Instruction:\n%s\n\nPage state:\n  URL: %s\n  Title: %s\n  Visible inputs: %v\n  Visible buttons/links: %v\n  Login form present: %t",
		instruction, snap.URL, snap.Title, snap.VisibleInputs, snap.VisibleButtons, snap.HasLoginForm)

	response, err := p.llm.GenerateResponse(ctx, schemas.GenerationRequest{
		SystemPrompt: plannerSystemPrompt,
		UserPrompt:   userPrompt,
		Options:      schemas.GenerationOptions{Temperature: 0.2, ForceJSONFormat: true},
	})
	if err != nil {
		return nil, fmt.Errorf("LLM plan generation failed: %w", err)
	}

	plan, err := llmutil.ParseJSONResponse[[]plannedAction](response)
	if err != nil {
		return nil, fmt.Errorf("could not parse action plan: %w", err)
	}
	return *plan, nil
}

// execute runs one planned action against the page.
func (p *Planner) execute(ctx context.Context, action plannedAction) error {
	p.logger.Debug("Executing planned action",
		zap.String("action", action.Action),
		zap.String("selector", action.Selector),
		zap.String("url", action.URL),
	)

	switch action.Action {
	case "navigate":
		if action.URL == "" {
			return fmt.Errorf("navigate action missing url")
		}
		return p.page.Navigate(ctx, action.URL)
	case "fill":
		if action.Selector == "" {
			return fmt.Errorf("fill action missing selector")
		}
		if err := p.page.WaitVisible(ctx, action.Selector, 5*time.Second); err != nil {
			return err
		}
		return p.page.Fill(ctx, action.Selector, action.Value)
	case "select":
		if action.Selector == "" {
			return fmt.Errorf("select action missing selector")
		}
		return p.page.SelectOption(ctx, action.Selector, action.Value)
	case "click":
		if action.Selector == "" {
			return fmt.Errorf("click action missing selector")
		}
		if err := p.page.WaitVisible(ctx, action.Selector, 5*time.Second); err != nil {
			return err
		}
		if err := p.page.Click(ctx, action.Selector); err != nil {
			return err
		}
		return sleepCtx(ctx, p.waitAfter)
	case "wait":
		if action.Selector == "" {
			return fmt.Errorf("wait action missing selector")
		}
		return p.page.WaitVisible(ctx, action.Selector, 10*time.Second)
	}
	return fmt.Errorf("unknown planned action %q", action.Action)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
