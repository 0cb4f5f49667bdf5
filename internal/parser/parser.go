package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSONObject means the text contained nothing that decodes to a JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// ParseError is returned when model output cannot be turned into an object.
type ParseError struct {
	Raw string // truncated copy of the offending text
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing model output: %v (raw: %s)", e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// objectSpan is the widest greedy {...} span. It deliberately ignores
// nesting: first '{' to last '}'.
var objectSpan = regexp.MustCompile(`(?s)\{.*\}`)

// Parse locates a JSON object in free-form model output. It tries the full
// text first, then the widest {...} span (which strips prose and code fences),
// then the same span with literal control characters escaped inside strings.
func Parse(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)

	if obj, err := decodeObject(text); err == nil {
		return obj, nil
	}

	span := objectSpan.FindString(text)
	if span == "" {
		return nil, &ParseError{Raw: truncate(text, 200), Err: ErrNoJSONObject}
	}

	obj, err := decodeObject(span)
	if err == nil {
		return obj, nil
	}

	if repaired := escapeControlChars(span); repaired != span {
		if obj, rerr := decodeObject(repaired); rerr == nil {
			return obj, nil
		}
	}

	return nil, &ParseError{Raw: truncate(text, 200), Err: fmt.Errorf("%w: %v", ErrNoJSONObject, err)}
}

func decodeObject(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %T, not an object", v)
	}
	return obj, nil
}

// escapeControlChars escapes raw newlines, tabs and other control characters
// that appear inside JSON string literals. Models emit these when they copy
// multi-line cell text verbatim.
func escapeControlChars(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	inString, escaped := false, false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			sb.WriteRune(r)
			continue
		}

		switch {
		case escaped:
			escaped = false
			sb.WriteRune(r)
		case r == '\\':
			escaped = true
			sb.WriteRune(r)
		case r == '"':
			inString = false
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
