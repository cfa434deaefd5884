// internal/runner/mocks_test.go
package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// fakePage is an in-memory schemas.PageSession for exercising the runner
// without a browser. Visibility, enabledness, and value readback behavior are
// all scripted per selector.
type fakePage struct {
	mu sync.Mutex

	url   string
	title string
	text  string

	visible map[string]bool
	enabled map[string]bool
	values  map[string]string

	// storeValue lets a test distort what Fill actually stores, e.g. to
	// simulate a maxlength truncation.
	storeValue func(selector, value string) string

	// clickNavigatesTo maps a selector to the URL the page lands on after
	// clicking it; unset selectors click without a URL change.
	clickNavigatesTo map[string]string
	clickErr         map[string]error
	navigateErr      error
	// navigateLandsOn overrides the URL recorded after Navigate, to simulate
	// a redirect away from the requested target.
	navigateLandsOn string

	evalResults map[string]bool

	// calls records every mutating interaction in order.
	calls []string
}

var _ schemas.PageSession = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		url:              "https://app.example.com/start",
		visible:          map[string]bool{},
		enabled:          map[string]bool{},
		values:           map[string]string{},
		clickNavigatesTo: map[string]string{},
		clickErr:         map[string]error{},
		evalResults:      map[string]bool{},
	}
}

func (f *fakePage) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate %s", url)
	if f.navigateErr != nil {
		return f.navigateErr
	}
	if f.navigateLandsOn != "" {
		f.url = f.navigateLandsOn
	} else {
		f.url = url
	}
	return nil
}

func (f *fakePage) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakePage) Title(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title, nil
}

func (f *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visible[selector] {
		return nil
	}
	return fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
}

func (f *fakePage) IsEnabled(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	enabled, ok := f.enabled[selector]
	if !ok {
		// Visible elements default to enabled unless scripted otherwise.
		return f.visible[selector], nil
	}
	return enabled, nil
}

func (f *fakePage) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("click %s", selector)
	if err := f.clickErr[selector]; err != nil {
		return err
	}
	if dest, ok := f.clickNavigatesTo[selector]; ok {
		f.url = dest
	}
	return nil
}

func (f *fakePage) Fill(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fill %s=%s", selector, value)
	stored := value
	if f.storeValue != nil {
		stored = f.storeValue(selector, value)
	}
	f.values[selector] = stored
	return nil
}

func (f *fakePage) SelectOption(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("select %s=%s", selector, value)
	f.values[selector] = value
	return nil
}

func (f *fakePage) Value(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[selector], nil
}

func (f *fakePage) ElementExists(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible[selector], nil
}

func (f *fakePage) TextPresent(ctx context.Context, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text != "" && strings.Contains(f.text, text), nil
}

func (f *fakePage) EvalBool(ctx context.Context, expr string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evalResults[expr], nil
}

func (f *fakePage) Snapshot(ctx context.Context) (*schemas.PageStateSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &schemas.PageStateSnapshot{URL: f.url, Title: f.title}, nil
}
