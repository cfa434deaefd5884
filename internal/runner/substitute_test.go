// internal/runner/substitute_test.go
package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"USERNAME": "alice",
		"AMOUNT":   "42",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"NoPlaceholders", "plain text", "plain text"},
		{"SingleBound", "hello {{USERNAME}}", "hello alice"},
		{"Repeated", "{{USERNAME}} and {{USERNAME}}", "alice and alice"},
		{"Multiple", "{{USERNAME}} pays {{AMOUNT}}", "alice pays 42"},
		// Unbound placeholders stay intact; the engine never guesses values.
		{"UnboundLeftIntact", "token: {{SECRET}}", "token: {{SECRET}}"},
		{"MixedBoundUnbound", "{{USERNAME}}/{{SECRET}}", "alice/{{SECRET}}"},
		{"MalformedIgnored", "{USERNAME} {{US ER}}", "{USERNAME} {{US ER}}"},
		{"Empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Substitute(tc.in, vars))
		})
	}
}

func TestSubstitute_NilVars(t *testing.T) {
	assert.Equal(t, "{{X}}", Substitute("{{X}}", nil))
}
