package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"", CategoryEmpty},
		{"   \n\t", CategoryEmpty},
		{`{"messages": [`, CategoryJSONParsing},
		{"a list ] maybe", CategoryJSONParsing},
		{"I cannot help with that.", CategoryMalformed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyResponse(tt.in), "input %q", tt.in)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"response does not match Schema", CategoryInvalidSchema},
		{"request Timeout after 30s", CategoryAPI},
		{"Rate limit reached", CategoryAPI},
		{"dial tcp: connection refused", CategoryAPI},
		{"something odd", CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(errors.New(tt.in)), "input %q", tt.in)
	}
}

func TestFailureAnalysis_Summary(t *testing.T) {
	f := NewFailureAnalysis()
	long := strings.Repeat("é", 250)
	for i := 0; i < 5; i++ {
		f.Record(CategoryJSONParsing, "bad json")
	}
	f.Record(CategoryEmpty, "")
	f.Record(CategoryOther, long)

	s := f.Summary()
	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 7, f.Total())
	require.Len(t, s.ByCategory, len(Categories))
	assert.Equal(t, 5, s.ByCategory[CategoryJSONParsing])
	assert.Equal(t, 0, s.ByCategory[CategoryAPI])

	assert.Len(t, s.Examples[CategoryJSONParsing], 3)
	assert.Equal(t, []string{""}, s.Examples[CategoryEmpty])
	_, ok := s.Examples[CategoryAPI]
	assert.False(t, ok)

	ex := s.Examples[CategoryOther][0]
	assert.Equal(t, strings.Repeat("é", 200)+"...", ex)

	assert.Equal(t, []string{"bad json"}, f.Entries(CategoryJSONParsing)[:1])
}

func TestSummary_Lines(t *testing.T) {
	f := NewFailureAnalysis()
	f.Record(CategoryAPI, "timeout")
	lines := f.Summary().Lines()
	assert.Equal(t, []string{
		"Total Failed Samples: 1",
		"Api Errors: 1",
		"  1. timeout",
	}, lines)
}

func TestCategory_Title(t *testing.T) {
	assert.Equal(t, "Json Parsing Errors", CategoryJSONParsing.Title())
	assert.Equal(t, "Invalid Schema", CategoryInvalidSchema.Title())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
}
