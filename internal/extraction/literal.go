package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Python-style literal parsing for lists the model wrote as source code:
// single or double quoted strings, numbers, True/False/None, lists, tuples
// and dicts.

type literalNumber string

type literalBool bool

var (
	errUnexpectedEnd = errors.New("unexpected end of literal")

	numberRe     = regexp.MustCompile(`^[+-]?(?:\d[\d_]*\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
	identRe      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
	apostropheRe = regexp.MustCompile(`([\p{L}\p{N}_])'([\p{L}\p{N}_])`)
)

// repairApostrophes turns in-word apostrophes into U+2019 so a single-quoted
// literal like 'don't' no longer terminates early.
func repairApostrophes(s string) string {
	return apostropheRe.ReplaceAllString(s, "${1}’${2}")
}

type literalParser struct {
	s   string
	pos int
}

func parseLiteral(s string) (any, error) {
	p := &literalParser{s: s}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.s[p.pos], p.pos)
	}
	return v, nil
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, errUnexpectedEnd
	}
	c := p.s[p.pos]
	switch {
	case c == '[':
		return p.sequence('[', ']')
	case c == '(':
		return p.sequence('(', ')')
	case c == '{':
		return p.mapping()
	case c == '\'' || c == '"':
		return p.stringLit(false)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	}
	return p.keyword()
}

func (p *literalParser) sequence(open, close byte) (any, error) {
	p.pos++ // open
	items := []any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, errUnexpectedEnd
		}
		if p.s[p.pos] == close {
			p.pos++
			return items, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, errUnexpectedEnd
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case close:
			p.pos++
			return items, nil
		default:
			return nil, fmt.Errorf("expected ',' or %q at offset %d, got %q", close, p.pos, p.s[p.pos])
		}
	}
}

func (p *literalParser) mapping() (any, error) {
	p.pos++ // {
	m := map[string]any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, errUnexpectedEnd
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return m, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return nil, fmt.Errorf("expected ':' at offset %d", p.pos)
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		m[scalarText(k)] = v
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, errUnexpectedEnd
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return m, nil
		default:
			return nil, fmt.Errorf("expected ',' or '}' at offset %d, got %q", p.pos, p.s[p.pos])
		}
	}
}

// stringLit reads one or more adjacent string literals and concatenates them.
func (p *literalParser) stringLit(raw bool) (any, error) {
	var b strings.Builder
	for {
		s, err := p.str(raw)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
		p.skipSpace()
		if p.pos >= len(p.s) || (p.s[p.pos] != '\'' && p.s[p.pos] != '"') {
			return b.String(), nil
		}
		raw = false
	}
}

func (p *literalParser) str(raw bool) (string, error) {
	q := p.s[p.pos]
	triple := strings.HasPrefix(p.s[p.pos:], strings.Repeat(string(q), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == q && !triple:
			p.pos++
			return b.String(), nil
		case c == q && strings.HasPrefix(p.s[p.pos:], strings.Repeat(string(q), 3)):
			p.pos += 3
			return b.String(), nil
		case c == '\n' && !triple:
			return "", fmt.Errorf("unterminated string at offset %d", p.pos)
		case c == '\\' && p.pos+1 < len(p.s):
			if raw {
				b.WriteString(p.s[p.pos : p.pos+2])
				p.pos += 2
				continue
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", errUnexpectedEnd
}

func (p *literalParser) escape(b *strings.Builder) error {
	e := p.s[p.pos+1]
	p.pos += 2
	switch e {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '0':
		b.WriteByte(0)
	case '\\', '\'', '"':
		b.WriteByte(e)
	case '\n':
		// line continuation
	case 'x', 'u', 'U':
		n := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
		if p.pos+n > len(p.s) {
			return errUnexpectedEnd
		}
		code, err := strconv.ParseUint(p.s[p.pos:p.pos+n], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return fmt.Errorf("invalid \\%c escape at offset %d", e, p.pos)
		}
		b.WriteRune(rune(code))
		p.pos += n
	default:
		b.WriteByte('\\')
		b.WriteByte(e)
	}
	return nil
}

func (p *literalParser) number() (any, error) {
	m := numberRe.FindString(p.s[p.pos:])
	if m == "" || strings.Trim(m, "+-.") == "" {
		return nil, fmt.Errorf("invalid number at offset %d", p.pos)
	}
	p.pos += len(m)
	return literalNumber(m), nil
}

func (p *literalParser) keyword() (any, error) {
	id := identRe.FindString(p.s[p.pos:])
	if id == "" {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.s[p.pos], p.pos)
	}
	end := p.pos + len(id)
	if end < len(p.s) && (p.s[end] == '\'' || p.s[end] == '"') {
		switch strings.ToLower(id) {
		case "u", "b":
			p.pos = end
			return p.stringLit(false)
		case "r", "ur", "br", "rb":
			p.pos = end
			return p.stringLit(true)
		}
	}
	p.pos = end
	switch id {
	case "True":
		return literalBool(true), nil
	case "False":
		return literalBool(false), nil
	case "None":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown name %q", id)
}

// coerceValues renders parsed literal elements as labels. None is dropped.
func coerceValues(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case nil:
			continue
		case string:
			out = append(out, v)
		case literalNumber, literalBool:
			out = append(out, scalarText(v))
		default:
			b, err := json.Marshal(toJSON(v))
			if err != nil {
				out = append(out, fmt.Sprint(v))
				continue
			}
			out = append(out, string(b))
		}
	}
	return out
}

func scalarText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case literalNumber:
		return string(v)
	case literalBool:
		if v {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	}
	return fmt.Sprint(v)
}

func toJSON(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, it := range v {
			out[i] = toJSON(it)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, it := range v {
			out[k] = toJSON(it)
		}
		return out
	case literalBool:
		return bool(v)
	case literalNumber:
		n := normalizeNumber(string(v))
		if json.Valid([]byte(n)) {
			return json.Number(n)
		}
		return string(v)
	}
	return v
}

func normalizeNumber(s string) string {
	s = strings.ReplaceAll(strings.TrimPrefix(s, "+"), "_", "")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if i := strings.Index(s, "."); i >= 0 && (i == len(s)-1 || s[i+1] == 'e' || s[i+1] == 'E') {
		s = s[:i+1] + "0" + s[i+1:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
