package extraction

import (
	"encoding/json"
	"strings"
)

// StripFences removes markdown code fence markers such as ```json and ```.
func StripFences(text string) string {
	return fenceRe.ReplaceAllString(text, "")
}

// ExtractObject returns the first balanced {...} span in text after fences
// are removed. Braces inside JSON strings do not count. When several
// balanced spans exist the first non-empty one that is valid JSON wins; if
// none qualifies the first span is returned so the caller's parse reports why.
func ExtractObject(text string) (string, bool) {
	text = StripFences(text)

	first := ""
	for offset := 0; offset < len(text); {
		i := strings.IndexByte(text[offset:], '{')
		if i == -1 {
			break
		}
		start := offset + i
		end := matchBracket(text, start, '{', '}', true)
		if end == -1 {
			break
		}
		span := text[start : end+1]
		if !isEmptyObject(span) && json.Valid([]byte(span)) {
			return span, true
		}
		if first == "" {
			first = span
		}
		offset = start + 1
	}
	if first != "" {
		return first, true
	}
	return "", false
}

func isEmptyObject(span string) bool {
	return strings.TrimSpace(span[1:len(span)-1]) == ""
}
