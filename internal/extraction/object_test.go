package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`, true},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"prose around", `Here you go: {"messages": []} hope it helps`, `{"messages": []}`, true},
		{"brace in string", `{"content": "use } carefully"} trailing }`, `{"content": "use } carefully"}`, true},
		{"nested", `x {"a": {"b": 2}} y`, `{"a": {"b": 2}}`, true},
		{"skips invalid span", `note {this} then {"a": 1}`, `{"a": 1}`, true},
		{"invalid only", `just {this}`, `{this}`, true},
		{"skips empty object", `{} {"messages": []}`, `{"messages": []}`, true},
		{"empty only", `{ }`, `{ }`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"none", "no object", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractObject(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
}
