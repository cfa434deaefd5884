// internal/agent/heuristic.go
package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// The heuristic tier pattern-matches the instruction text when the model
// cannot produce a plan. It is deliberately narrow: a single synthesized
// action for the clearest phrasings only, behind the recovery.heuristic_fallback
// config flag.
var (
	navigateRegex = regexp.MustCompile(`(?i)(?:navigate|go)\s+to\s+(https?://\S+)`)
	fillRegex     = regexp.MustCompile(`(?i)(?:enter|type|fill\s+in)\s+"([^"]+)"\s+(?:into|in)\s+(?:the\s+)?(?:field\s+)?"?([#.\[][^"\s]+|\w[\w-]*)"?`)
	clickRegex    = regexp.MustCompile(`(?i)click\s+(?:on\s+)?(?:the\s+)?(?:element\s+|button\s+)?"?([#.\[][^"\s]+)"?`)
)

// heuristicAction synthesizes one action from the instruction text, or
// reports that nothing recognizable was found.
func heuristicAction(instruction string) (*plannedAction, error) {
	if m := navigateRegex.FindStringSubmatch(instruction); m != nil {
		return &plannedAction{Action: "navigate", URL: strings.TrimRight(m[1], ".,)")}, nil
	}
	if m := fillRegex.FindStringSubmatch(instruction); m != nil {
		selector := m[2]
		if !strings.HasPrefix(selector, "#") && !strings.HasPrefix(selector, ".") && !strings.HasPrefix(selector, "[") {
			// A bare word is assumed to be a name attribute.
			selector = fmt.Sprintf(`[name=%q]`, selector)
		}
		return &plannedAction{Action: "fill", Selector: selector, Value: m[1]}, nil
	}
	if m := clickRegex.FindStringSubmatch(instruction); m != nil {
		return &plannedAction{Action: "click", Selector: m[1]}, nil
	}
	return nil, fmt.Errorf("no recognizable navigate/fill/click phrasing in instruction")
}
