// internal/agent/planner_test.go
package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/internal/config"
)

func newTestPlanner(llm *fakeLLM, page *actionPage, heuristic bool) *Planner {
	p := NewPlanner(llm, page, config.RecoveryConfig{HeuristicFallback: heuristic}, zap.NewNop())
	p.waitAfter = time.Millisecond
	return p
}

func TestPerformInstructed_ExecutesPlanInOrder(t *testing.T) {
	llm := &fakeLLM{responses: []string{`[
		{"action": "fill", "selector": "#username", "value": "alice"},
		{"action": "fill", "selector": "#password", "value": "hunter2"},
		{"action": "click", "selector": "#submit"}
	]`}}
	page := newActionPage()
	page.visible["#username"] = true
	page.visible["#password"] = true
	page.visible["#submit"] = true

	err := newTestPlanner(llm, page, false).PerformInstructed(context.Background(), "log in as alice")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"fill #username=alice",
		"fill #password=hunter2",
		"click #submit",
	}, page.calls)

	// The planning prompt carries the live page state so selectors are real.
	require.Len(t, llm.requests, 1)
	assert.Contains(t, llm.requests[0].UserPrompt, "log in as alice")
	assert.Contains(t, llm.requests[0].UserPrompt, "#username")
	assert.True(t, llm.requests[0].Options.ForceJSONFormat)
}

func TestPerformInstructed_FencedPlanIsAccepted(t *testing.T) {
	llm := &fakeLLM{responses: []string{"```json\n[{\"action\": \"navigate\", \"url\": \"https://app.example.com/home\"}]\n```"}}
	page := newActionPage()

	err := newTestPlanner(llm, page, false).PerformInstructed(context.Background(), "go home")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/home", page.url)
}

func TestPerformInstructed_PlanStepFailureAborts(t *testing.T) {
	llm := &fakeLLM{responses: []string{`[
		{"action": "click", "selector": "#missing"},
		{"action": "click", "selector": "#next"}
	]`}}
	page := newActionPage()
	page.visible["#next"] = true

	err := newTestPlanner(llm, page, false).PerformInstructed(context.Background(), "do things")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan step 1")
	assert.Empty(t, page.calls, "later plan steps must not run after a failure")
}

func TestPerformInstructed_EmptyPlanIsError(t *testing.T) {
	llm := &fakeLLM{responses: []string{`[]`}}

	err := newTestPlanner(llm, newActionPage(), false).PerformInstructed(context.Background(), "do nothing")
	require.Error(t, err)
}

func TestPerformInstructed_UnparseablePlan(t *testing.T) {
	t.Run("HeuristicDisabled", func(t *testing.T) {
		llm := &fakeLLM{responses: []string{"I'd rather describe my plan in prose."}}
		page := newActionPage()

		err := newTestPlanner(llm, page, false).PerformInstructed(context.Background(), "navigate to https://app.example.com/home")
		require.Error(t, err)
		assert.Empty(t, page.calls)
	})

	t.Run("HeuristicEnabled", func(t *testing.T) {
		llm := &fakeLLM{responses: []string{"I'd rather describe my plan in prose."}}
		page := newActionPage()

		err := newTestPlanner(llm, page, true).PerformInstructed(context.Background(), "navigate to https://app.example.com/home")
		require.NoError(t, err)
		assert.Equal(t, "https://app.example.com/home", page.url)
	})

	t.Run("HeuristicEnabledButNothingRecognizable", func(t *testing.T) {
		llm := &fakeLLM{err: errors.New("model unavailable")}

		err := newTestPlanner(llm, newActionPage(), true).PerformInstructed(context.Background(), "sort out the situation")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "heuristic fallback found nothing")
	})
}

func TestPerformInstructed_UnknownActionKind(t *testing.T) {
	llm := &fakeLLM{responses: []string{`[{"action": "hover", "selector": "#menu"}]`}}

	err := newTestPlanner(llm, newActionPage(), false).PerformInstructed(context.Background(), "open the menu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown planned action")
}

func TestJudge_UsesDeterministicOptions(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"success": true, "evidence": "dashboard visible"}`}}

	resp, err := newTestPlanner(llm, newActionPage(), false).Judge(context.Background(), "did the login succeed?")
	require.NoError(t, err)
	assert.Contains(t, resp, "dashboard visible")

	require.Len(t, llm.requests, 1)
	assert.Zero(t, llm.requests[0].Options.Temperature, "judging must not sample creatively")
	assert.True(t, llm.requests[0].Options.ForceJSONFormat)
}
