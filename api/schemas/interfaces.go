// api/schemas/interfaces.go
package schemas

import (
	"context"
	"time"
)

// PageSession is the live handle to the specific browser page under
// automation. The session locator owns the concrete implementation; the
// runner, recovery executor, and controller borrow it for the run's duration.
// Implementations are NOT safe for concurrent mutation; the controller
// serializes step execution.
type PageSession interface {
	// Navigate loads the URL in the attached page and waits for the load to
	// settle.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// WaitVisible blocks until the selector matches a visible element, or the
	// timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// IsEnabled reports whether the first element matching the selector is
	// enabled (not disabled and not aria-disabled).
	IsEnabled(ctx context.Context, selector string) (bool, error)

	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error

	// Fill clears the element and types the value into it.
	Fill(ctx context.Context, selector, value string) error

	// SelectOption sets the value of a <select> element and fires change.
	SelectOption(ctx context.Context, selector, value string) error

	// Value reads back the current value of a form element.
	Value(ctx context.Context, selector string) (string, error)

	// ElementExists reports whether any element matches the selector, without
	// waiting.
	ElementExists(ctx context.Context, selector string) (bool, error)

	// TextPresent reports whether the visible page text contains the needle.
	TextPresent(ctx context.Context, text string) (bool, error)

	// EvalBool evaluates a JavaScript expression in the page and returns its
	// boolean result.
	EvalBool(ctx context.Context, expr string) (bool, error)

	// Snapshot summarizes the current page state for prompts and diagnostics.
	Snapshot(ctx context.Context) (*PageStateSnapshot, error)
}

// AIAutomator is the opaque AI automation capability: given a natural
// language instruction and a live page, attempt to make the described change
// happen. No contract is assumed about how it reasons internally.
type AIAutomator interface {
	// PerformInstructed attempts the instruction against the live page. A
	// returned error means the attempt failed, not that the run must abort.
	PerformInstructed(ctx context.Context, instruction string) error

	// Judge sends a verification prompt and returns the raw textual response
	// for the caller to parse.
	Judge(ctx context.Context, prompt string) (string, error)
}

// GenerationOptions tune a single LLM call.
type GenerationOptions struct {
	Temperature     float32
	ForceJSONFormat bool
}

// GenerationRequest is the provider-neutral payload for one LLM call.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}

// LLMClient defines a standard interface for interacting with a Large
// Language Model provider, decoupling the agent from any concrete API.
type LLMClient interface {
	GenerateResponse(ctx context.Context, req GenerationRequest) (string, error)
}
