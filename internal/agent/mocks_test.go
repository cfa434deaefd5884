// internal/agent/mocks_test.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// fakeLLM returns canned responses per call and records the requests it saw.
type fakeLLM struct {
	responses []string
	err       error
	requests  []schemas.GenerationRequest
}

var _ schemas.LLMClient = (*fakeLLM)(nil)

func (f *fakeLLM) GenerateResponse(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	call := len(f.requests)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if call < len(f.responses) {
		return f.responses[call], nil
	}
	return "", errors.New("fakeLLM: no response scripted for call")
}

// actionPage records the actions the planner drives against it.
type actionPage struct {
	url     string
	visible map[string]bool
	calls   []string
	navErr  error
}

var _ schemas.PageSession = (*actionPage)(nil)

func newActionPage() *actionPage {
	return &actionPage{url: "https://app.example.com/start", visible: map[string]bool{}}
}

func (p *actionPage) record(format string, args ...interface{}) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *actionPage) Navigate(ctx context.Context, url string) error {
	p.record("navigate %s", url)
	if p.navErr != nil {
		return p.navErr
	}
	p.url = url
	return nil
}

func (p *actionPage) CurrentURL(ctx context.Context) (string, error) { return p.url, nil }
func (p *actionPage) Title(ctx context.Context) (string, error)      { return "", nil }

func (p *actionPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if p.visible[selector] {
		return nil
	}
	return fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
}

func (p *actionPage) IsEnabled(ctx context.Context, selector string) (bool, error) {
	return p.visible[selector], nil
}

func (p *actionPage) Click(ctx context.Context, selector string) error {
	p.record("click %s", selector)
	return nil
}

func (p *actionPage) Fill(ctx context.Context, selector, value string) error {
	p.record("fill %s=%s", selector, value)
	return nil
}

func (p *actionPage) SelectOption(ctx context.Context, selector, value string) error {
	p.record("select %s=%s", selector, value)
	return nil
}

func (p *actionPage) Value(ctx context.Context, selector string) (string, error) { return "", nil }

func (p *actionPage) ElementExists(ctx context.Context, selector string) (bool, error) {
	return p.visible[selector], nil
}

func (p *actionPage) TextPresent(ctx context.Context, text string) (bool, error) { return false, nil }
func (p *actionPage) EvalBool(ctx context.Context, expr string) (bool, error)    { return false, nil }

func (p *actionPage) Snapshot(ctx context.Context) (*schemas.PageStateSnapshot, error) {
	return &schemas.PageStateSnapshot{
		URL:            p.url,
		Title:          "Start",
		VisibleInputs:  []string{"#username", "#password"},
		VisibleButtons: []string{"#submit"},
	}, nil
}
