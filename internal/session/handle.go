// internal/session/handle.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// Handle is the live attachment to a single page target. It implements
// schemas.PageSession over chromedp. A Handle is owned by the Locator that
// produced it and is not safe for concurrent mutation.
type Handle struct {
	targetID string
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger

	closeOnce sync.Once
}

var _ schemas.PageSession = (*Handle)(nil)

// run executes chromedp actions against the target, honoring both the handle
// lifecycle and the caller's context.
func (h *Handle) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(h.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// alive reports whether the target still answers a trivial query.
func (h *Handle) alive(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var title string
	return h.run(probeCtx, chromedp.Title(&title)) == nil
}

func (h *Handle) close() {
	h.closeOnce.Do(func() {
		h.logger.Debug("Releasing page handle", zap.String("target_id", h.targetID))
		h.cancel()
	})
}

// Navigate loads the URL and waits for the document body to be ready.
func (h *Handle) Navigate(ctx context.Context, url string) error {
	return h.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// CurrentURL returns the page's current location.
func (h *Handle) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := h.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Title returns the current document title.
func (h *Handle) Title(ctx context.Context) (string, error) {
	var title string
	if err := h.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// WaitVisible blocks until the selector matches a visible element or the
// timeout elapses.
func (h *Handle) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// IsEnabled reports whether the first matching element is interactable.
func (h *Handle) IsEnabled(ctx context.Context, selector string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		if (el.disabled) return false;
		return el.getAttribute('aria-disabled') !== 'true';
	})()`, jsString(selector))
	return h.EvalBool(ctx, expr)
}

// Click clicks the first visible element matching the selector.
func (h *Handle) Click(ctx context.Context, selector string) error {
	return h.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Fill clears the element and types the value, so page-side constraints like
// maxlength apply exactly as they would for a real user.
func (h *Handle) Fill(ctx context.Context, selector, value string) error {
	return h.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// SelectOption sets a <select> element's value and fires the change event.
func (h *Handle) SelectOption(ctx context.Context, selector, value string) error {
	return h.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

// Value reads back the current value of a form element.
func (h *Handle) Value(ctx context.Context, selector string) (string, error) {
	var v string
	if err := h.run(ctx, chromedp.Value(selector, &v, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return v, nil
}

// ElementExists reports whether any element matches, without waiting.
func (h *Handle) ElementExists(ctx context.Context, selector string) (bool, error) {
	expr := fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector))
	return h.EvalBool(ctx, expr)
}

// TextPresent reports whether the visible page text contains the needle.
func (h *Handle) TextPresent(ctx context.Context, text string) (bool, error) {
	expr := fmt.Sprintf("!!document.body && document.body.innerText.includes(%s)", jsString(text))
	return h.EvalBool(ctx, expr)
}

// EvalBool evaluates a JavaScript expression and returns its boolean result.
func (h *Handle) EvalBool(ctx context.Context, expr string) (bool, error) {
	var result bool
	if err := h.run(ctx, chromedp.Evaluate(fmt.Sprintf("Boolean(%s)", expr), &result)); err != nil {
		return false, err
	}
	return result, nil
}

// snapshotJS gathers a coarse page summary in one round trip.
const snapshotJS = `(() => {
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const describe = (el) => {
		return (el.getAttribute('name') || el.getAttribute('id') ||
			el.getAttribute('placeholder') || el.getAttribute('aria-label') ||
			(el.innerText || '').trim().slice(0, 40) || el.tagName.toLowerCase());
	};
	const inputs = Array.from(document.querySelectorAll('input, textarea, select'))
		.filter(visible).slice(0, 25).map(describe);
	const buttons = Array.from(document.querySelectorAll('button, [role="button"], input[type="submit"], a[href]'))
		.filter(visible).slice(0, 25).map(describe);
	const hasLogin = !!document.querySelector('input[type="password"]');
	return {
		url: location.href,
		title: document.title,
		visible_inputs: inputs,
		visible_buttons: buttons,
		has_login_form: hasLogin,
	};
})()`

// Snapshot summarizes the current page state for prompts and diagnostics.
func (h *Handle) Snapshot(ctx context.Context) (*schemas.PageStateSnapshot, error) {
	var snap schemas.PageStateSnapshot
	if err := h.run(ctx, chromedp.Evaluate(snapshotJS, &snap)); err != nil {
		return nil, err
	}
	return &snap, nil
}

// jsString encodes a Go string as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
