// api/schemas/errors.go
package schemas

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Sentinel errors for the execution engine. Only ErrConnection (and its
// wrapped ErrNoTarget) may propagate as a hard failure out of the playback
// driver; everything else is converted to an ExecutionResult value so the
// driver can decide per its own policy whether to abort or continue.
var (
	// ErrConnection means the remote-debugging endpoint cannot be reached or
	// attached to. Fatal to the run.
	ErrConnection = errors.New("cannot connect to browser debugging endpoint")

	// ErrNoTarget means the endpoint answered but exposed no page with a
	// network (http/https) URL after filtering out application chrome.
	ErrNoTarget = errors.New("no automatable page target found")

	// ErrScriptedFailure marks a selector/validation failure in the scripted
	// runner. Recoverable: triggers the AI fallback when policy allows.
	ErrScriptedFailure = errors.New("scripted step failed")

	// ErrRecoveryExhausted means the AI path used its whole attempt budget
	// without a verified success.
	ErrRecoveryExhausted = errors.New("recovery attempts exhausted")

	// ErrVerificationParse marks an unparseable AI verification judgment.
	// Treated as verification failure, never as success.
	ErrVerificationParse = errors.New("could not parse verification judgment")
)

// ClassifyError maps an underlying failure to the coarse ErrorKind taxonomy
// consumed by the recovery executor's instruction builder.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrKindTimeout
		}
		return ErrKindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		return ErrKindTimeout
	// chromedp surfaces missing nodes with these phrasings.
	case strings.Contains(msg, "could not find node") || strings.Contains(msg, "no nodes") || strings.Contains(msg, "not found"):
		return ErrKindSelectorNotFound
	case strings.Contains(msg, "navigat") || strings.Contains(msg, "net::err_aborted"):
		return ErrKindNavigation
	case strings.Contains(msg, "net::") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "dial tcp"):
		return ErrKindNetwork
	case strings.Contains(msg, "click"):
		return ErrKindClickFailed
	case strings.Contains(msg, "input") || strings.Contains(msg, "value mismatch") || strings.Contains(msg, "fill"):
		return ErrKindInputFailed
	}
	return ErrKindUnknown
}
