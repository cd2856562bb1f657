package extraction

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy is one way of locating a list in model output.
type Strategy int

const (
	// StrategyJSON parses the whole text as JSON. A list is returned as is;
	// for a mapping the first list-valued entry in document order is used.
	StrategyJSON Strategy = iota
	// StrategyBracket takes the first balanced [...] span and parses it as a
	// Python-style literal list, repairing in-word apostrophes on failure.
	StrategyBracket
	// StrategyArrayRegex strips markdown fences from the span between the
	// first '[' and the last ']' and parses it as a strict JSON array.
	StrategyArrayRegex
)

func (s Strategy) String() string {
	switch s {
	case StrategyJSON:
		return "json"
	case StrategyBracket:
		return "bracket"
	case StrategyArrayRegex:
		return "array-regex"
	}
	return "unknown"
}

var (
	// GenericOrder is the default extraction order.
	GenericOrder = []Strategy{StrategyJSON, StrategyBracket}
	// TopicOrder is used for subtopic responses: a strict JSON array first,
	// then the generic order.
	TopicOrder = []Strategy{StrategyArrayRegex, StrategyJSON, StrategyBracket}
)

var (
	greedyArrayRe = regexp.MustCompile(`(?s)\[.*\]`)
	fenceRe       = regexp.MustCompile("```json\\s*|\\s*```")
)

// ListExtractor extracts a list of strings using strategies in priority order.
type ListExtractor struct {
	order      []Strategy
	diagnostic func(string)
}

// Option configures a ListExtractor.
type Option func(*ListExtractor)

// WithDiagnostic routes parse notes to fn.
func WithDiagnostic(fn func(string)) Option {
	return func(e *ListExtractor) {
		if fn != nil {
			e.diagnostic = fn
		}
	}
}

// NewListExtractor creates an extractor trying order left to right.
// An empty order means GenericOrder.
func NewListExtractor(order []Strategy, opts ...Option) *ListExtractor {
	if len(order) == 0 {
		order = GenericOrder
	}
	e := &ListExtractor{
		order:      append([]Strategy(nil), order...),
		diagnostic: func(string) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractList runs the generic order with no diagnostics.
func ExtractList(text string) []string {
	return NewListExtractor(GenericOrder).Extract(text)
}

// Extract returns the first list any strategy recovers, or an empty slice.
func (e *ListExtractor) Extract(text string) []string {
	for _, s := range e.order {
		var (
			items []string
			ok    bool
		)
		switch s {
		case StrategyJSON:
			items, ok = e.fromJSON(text)
		case StrategyBracket:
			items, ok = e.fromBracket(text)
		case StrategyArrayRegex:
			items, ok = e.fromArrayRegex(text)
		}
		if ok {
			return items
		}
	}
	return []string{}
}

func (e *ListExtractor) fromJSON(text string) ([]string, bool) {
	if !gjson.Valid(text) {
		e.diagnostic("text is not a JSON document")
		return nil, false
	}
	doc := gjson.Parse(text)
	if doc.IsArray() {
		return coerceJSON(doc.Array()), true
	}
	if doc.IsObject() {
		var list gjson.Result
		doc.ForEach(func(_, v gjson.Result) bool {
			if v.IsArray() {
				list = v
				return false
			}
			return true
		})
		if list.Exists() {
			return coerceJSON(list.Array()), true
		}
		e.diagnostic("JSON object has no list-valued entry")
		return nil, false
	}
	e.diagnostic("JSON document is neither a list nor an object")
	return nil, false
}

func (e *ListExtractor) fromBracket(text string) ([]string, bool) {
	start := strings.IndexByte(text, '[')
	if start == -1 {
		e.diagnostic("no list found in text")
		return nil, false
	}
	end := matchBracket(text, start, '[', ']', false)
	if end == -1 {
		e.diagnostic("no matching closing bracket found")
		return nil, false
	}
	span := text[start : end+1]

	v, err := parseLiteral(span)
	if err != nil {
		v, err = parseLiteral(repairApostrophes(span))
	}
	if err != nil {
		e.diagnostic("failed to parse list literal: " + err.Error())
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		e.diagnostic("bracketed literal is not a list")
		return nil, false
	}
	return coerceValues(list), true
}

func (e *ListExtractor) fromArrayRegex(text string) ([]string, bool) {
	span := greedyArrayRe.FindString(text)
	if span == "" {
		e.diagnostic("no JSON array span found")
		return nil, false
	}
	span = fenceRe.ReplaceAllString(span, "")
	if !gjson.Valid(span) {
		e.diagnostic("array span is not valid JSON")
		return nil, false
	}
	doc := gjson.Parse(span)
	if !doc.IsArray() {
		e.diagnostic("array span is not a JSON array")
		return nil, false
	}
	return coerceJSON(doc.Array()), true
}

// matchBracket returns the index of the bracket closing text[start], or -1.
// With quoted set, brackets inside double-quoted strings are ignored.
func matchBracket(text string, start int, open, close byte, quoted bool) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if quoted {
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			if c == '"' {
				inString = true
				continue
			}
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// coerceJSON turns JSON elements into labels. Strings are kept verbatim,
// scalars use their literal text, composites are compacted. Nulls are dropped.
func coerceJSON(items []gjson.Result) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch it.Type {
		case gjson.Null:
			continue
		case gjson.String:
			out = append(out, it.String())
		case gjson.JSON:
			var buf bytes.Buffer
			if err := json.Compact(&buf, []byte(it.Raw)); err != nil {
				out = append(out, it.Raw)
				continue
			}
			out = append(out, buf.String())
		default:
			out = append(out, it.Raw)
		}
	}
	return out
}

// Clean trims every item and drops the empty ones.
func Clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
