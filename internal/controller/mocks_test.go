// internal/controller/mocks_test.go
package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/runner"
)

// fakePage is an in-memory schemas.PageSession scripted per selector.
type fakePage struct {
	url     string
	title   string
	text    string
	visible map[string]bool
	values  map[string]string
}

var _ schemas.PageSession = (*fakePage)(nil)

func newFakePage(url string) *fakePage {
	return &fakePage{
		url:     url,
		visible: map[string]bool{},
		values:  map[string]string{},
	}
}

func (f *fakePage) Navigate(ctx context.Context, url string) error { f.url = url; return nil }
func (f *fakePage) CurrentURL(ctx context.Context) (string, error) { return f.url, nil }
func (f *fakePage) Title(ctx context.Context) (string, error)      { return f.title, nil }

func (f *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if f.visible[selector] {
		return nil
	}
	return fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
}

func (f *fakePage) IsEnabled(ctx context.Context, selector string) (bool, error) {
	return f.visible[selector], nil
}

func (f *fakePage) Click(ctx context.Context, selector string) error { return nil }
func (f *fakePage) Fill(ctx context.Context, selector, value string) error {
	f.values[selector] = value
	return nil
}
func (f *fakePage) SelectOption(ctx context.Context, selector, value string) error {
	f.values[selector] = value
	return nil
}

func (f *fakePage) Value(ctx context.Context, selector string) (string, error) {
	return f.values[selector], nil
}

func (f *fakePage) ElementExists(ctx context.Context, selector string) (bool, error) {
	return f.visible[selector], nil
}

func (f *fakePage) TextPresent(ctx context.Context, text string) (bool, error) {
	return text != "" && strings.Contains(f.text, text), nil
}

func (f *fakePage) EvalBool(ctx context.Context, expr string) (bool, error) { return false, nil }

func (f *fakePage) Snapshot(ctx context.Context) (*schemas.PageStateSnapshot, error) {
	return &schemas.PageStateSnapshot{URL: f.url, Title: f.title}, nil
}

// stubScripted returns a canned outcome and counts invocations.
type stubScripted struct {
	outcome *runner.Outcome
	calls   int
}

var _ ScriptedRunner = (*stubScripted)(nil)

func (s *stubScripted) RunScripted(ctx context.Context, page schemas.PageSession, step *schemas.Step, vars map[string]string) *runner.Outcome {
	s.calls++
	return s.outcome
}

// stubRecoverer returns a canned result and records what it was handed.
type stubRecoverer struct {
	result  *schemas.ExecutionResult
	calls   int
	gotFctx *schemas.FailureContext
	gotMax  int
}

var _ RecoveryExecutor = (*stubRecoverer)(nil)

func (s *stubRecoverer) Recover(ctx context.Context, page schemas.PageSession, fctx *schemas.FailureContext, vars map[string]string, maxAttempts int) *schemas.ExecutionResult {
	s.calls++
	s.gotFctx = fctx
	s.gotMax = maxAttempts
	// Hand back a copy so callers appending to AllActions do not mutate the
	// stub's canned result between test cases.
	result := *s.result
	result.AllActions = append([]string(nil), s.result.AllActions...)
	return &result
}

// navigatingAutomator is a schemas.AIAutomator that simulates an agent which
// navigates the page to a fixed destination when instructed.
type navigatingAutomator struct {
	page         *fakePage
	destination  string
	instructions []string
}

var _ schemas.AIAutomator = (*navigatingAutomator)(nil)

func (n *navigatingAutomator) PerformInstructed(ctx context.Context, instruction string) error {
	n.instructions = append(n.instructions, instruction)
	n.page.url = n.destination
	return nil
}

func (n *navigatingAutomator) Judge(ctx context.Context, prompt string) (string, error) {
	return `{"success": false, "evidence": "judge should not be needed"}`, nil
}
