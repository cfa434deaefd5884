// internal/runner/substitute.go
package runner

import (
	"regexp"
)

var placeholderRegex = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Substitute replaces every {{NAME}} occurrence with its bound value. Unbound
// placeholders are left intact: guessing values for unknown variables risks
// submitting garbage into live forms, so the gap is surfaced downstream
// instead.
func Substitute(text string, vars map[string]string) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return placeholderRegex.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRegex.FindStringSubmatch(match)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
