package engine

import (
	"fmt"
	"strings"
	"unicode"
)

// Category is a failure class of the FailureAnalysis registry.
type Category string

const (
	CategoryJSONParsing   Category = "json_parsing_errors"
	CategoryInvalidSchema Category = "invalid_schema"
	CategoryAPI           Category = "api_errors"
	CategoryEmpty         Category = "empty_responses"
	CategoryMalformed     Category = "malformed_responses"
	CategoryOther         Category = "other_errors"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryJSONParsing,
	CategoryInvalidSchema,
	CategoryAPI,
	CategoryEmpty,
	CategoryMalformed,
	CategoryOther,
}

const (
	maxExamplesPerCategory = 3
	maxExampleLength       = 200
)

// FailureAnalysis collects failure artifacts by category. Entries are only
// ever appended.
type FailureAnalysis struct {
	entries map[Category][]string
	total   int
}

// NewFailureAnalysis returns an empty analysis.
func NewFailureAnalysis() *FailureAnalysis {
	return &FailureAnalysis{entries: make(map[Category][]string, len(Categories))}
}

// Record appends artifact under c.
func (f *FailureAnalysis) Record(c Category, artifact string) {
	f.entries[c] = append(f.entries[c], artifact)
	f.total++
}

// Entries returns a copy of the artifacts recorded under c.
func (f *FailureAnalysis) Entries(c Category) []string {
	return append([]string(nil), f.entries[c]...)
}

// Total returns the number of recorded failures.
func (f *FailureAnalysis) Total() int {
	return f.total
}

// ClassifyResponse classifies a response that did not yield a sample.
func ClassifyResponse(content string) Category {
	if strings.TrimFunc(content, unicode.IsSpace) == "" {
		return CategoryEmpty
	}
	if strings.ContainsAny(content, "{}[]") {
		return CategoryJSONParsing
	}
	return CategoryMalformed
}

// ClassifyError classifies a failed completion call by its message.
func ClassifyError(err error) Category {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "schema"):
		return CategoryInvalidSchema
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "connection"):
		return CategoryAPI
	default:
		return CategoryOther
	}
}

// Summary is the aggregate view of a FailureAnalysis.
type Summary struct {
	Total      int                   `json:"total_failures"`
	ByCategory map[Category]int      `json:"failure_types"`
	Examples   map[Category][]string `json:"failure_examples"`
}

// Summary counts every category and keeps up to three truncated examples
// of each non-empty one.
func (f *FailureAnalysis) Summary() Summary {
	s := Summary{
		Total:      f.total,
		ByCategory: make(map[Category]int, len(Categories)),
		Examples:   map[Category][]string{},
	}
	for _, c := range Categories {
		entries := f.entries[c]
		s.ByCategory[c] = len(entries)
		if len(entries) == 0 {
			continue
		}
		n := min(len(entries), maxExamplesPerCategory)
		examples := make([]string, n)
		for i := range n {
			examples[i] = truncate(entries[i], maxExampleLength)
		}
		s.Examples[c] = examples
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Title renders c for display, e.g. "Json Parsing Errors".
func (c Category) Title() string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Lines renders the summary as report lines, skipping empty categories.
func (s Summary) Lines() []string {
	lines := []string{fmt.Sprintf("Total Failed Samples: %d", s.Total)}
	for _, c := range Categories {
		n := s.ByCategory[c]
		if n == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d", c.Title(), n))
		for i, ex := range s.Examples[c] {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, ex))
		}
	}
	return lines
}
