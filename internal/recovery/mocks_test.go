// internal/recovery/mocks_test.go
package recovery

import (
	"context"
	"strings"
	"time"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// stubAutomator scripts the AI capability: per-call errors for
// PerformInstructed and canned responses for Judge, recording everything it
// was asked.
type stubAutomator struct {
	// performErrs[i] is returned by the i-th PerformInstructed call; calls
	// beyond the slice succeed.
	performErrs []error
	// onPerform, when set, mutates the fake page to simulate the agent's
	// effect on the i-th call.
	onPerform func(call int)

	judgeResponses []string
	judgeErr       error

	instructions []string
	judgePrompts []string
}

var _ schemas.AIAutomator = (*stubAutomator)(nil)

func (s *stubAutomator) PerformInstructed(ctx context.Context, instruction string) error {
	call := len(s.instructions)
	s.instructions = append(s.instructions, instruction)
	if s.onPerform != nil {
		s.onPerform(call)
	}
	if call < len(s.performErrs) {
		return s.performErrs[call]
	}
	return nil
}

func (s *stubAutomator) Judge(ctx context.Context, prompt string) (string, error) {
	call := len(s.judgePrompts)
	s.judgePrompts = append(s.judgePrompts, prompt)
	if s.judgeErr != nil {
		return "", s.judgeErr
	}
	if call < len(s.judgeResponses) {
		return s.judgeResponses[call], nil
	}
	if len(s.judgeResponses) > 0 {
		return s.judgeResponses[len(s.judgeResponses)-1], nil
	}
	return `{"success": false, "evidence": "no scripted judgment"}`, nil
}

// verifyPage is a minimal schemas.PageSession for exercising verification;
// recovery never drives actions through it directly.
type verifyPage struct {
	url    string
	title  string
	text   string
	exists map[string]bool
	values map[string]string
	evals  map[string]bool
}

var _ schemas.PageSession = (*verifyPage)(nil)

func newVerifyPage() *verifyPage {
	return &verifyPage{
		url:    "https://app.example.com/start",
		exists: map[string]bool{},
		values: map[string]string{},
		evals:  map[string]bool{},
	}
}

func (p *verifyPage) Navigate(ctx context.Context, url string) error { p.url = url; return nil }
func (p *verifyPage) CurrentURL(ctx context.Context) (string, error) { return p.url, nil }
func (p *verifyPage) Title(ctx context.Context) (string, error)      { return p.title, nil }

func (p *verifyPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if p.exists[selector] {
		return nil
	}
	return context.DeadlineExceeded
}

func (p *verifyPage) IsEnabled(ctx context.Context, selector string) (bool, error) {
	return p.exists[selector], nil
}

func (p *verifyPage) Click(ctx context.Context, selector string) error { return nil }
func (p *verifyPage) Fill(ctx context.Context, selector, value string) error {
	p.values[selector] = value
	return nil
}
func (p *verifyPage) SelectOption(ctx context.Context, selector, value string) error {
	p.values[selector] = value
	return nil
}

func (p *verifyPage) Value(ctx context.Context, selector string) (string, error) {
	return p.values[selector], nil
}

func (p *verifyPage) ElementExists(ctx context.Context, selector string) (bool, error) {
	return p.exists[selector], nil
}

func (p *verifyPage) TextPresent(ctx context.Context, text string) (bool, error) {
	return strings.Contains(p.text, text) && text != "", nil
}

func (p *verifyPage) EvalBool(ctx context.Context, expr string) (bool, error) {
	return p.evals[expr], nil
}

func (p *verifyPage) Snapshot(ctx context.Context) (*schemas.PageStateSnapshot, error) {
	return &schemas.PageStateSnapshot{URL: p.url, Title: p.title}, nil
}
