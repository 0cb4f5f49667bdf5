package normalizer

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?|-?\.\d+`)

// AsString coerces v to trimmed text. Numbers are formatted without a
// trailing ".0"; nil and containers become "".
func AsString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// AsInt coerces v to an integer. Strings may carry thousands separators or
// trailing units ("1,200 EA"); fractional values are rounded. Anything
// unreadable is 0. The sign is preserved and values beyond the int range
// saturate at math.MaxInt or math.MinInt.
func AsInt(v any) int {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	f = math.Round(f)
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// AsFloat coerces v to a float. Currency symbols and separators are ignored.
func AsFloat(v any) float64 {
	f, _ := toFloat(v)
	return f
}

// AsBool coerces v to a flag. Checkmarks and "X" marks count as true.
func AsBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "x", "1", "✓", "✔", "checked":
			return true
		}
	}
	return false
}

// AsObject returns v as an object, or an empty one.
func AsObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// AsList normalizes every object element of v with fn. A non-list v yields an
// empty list; non-object elements are skipped without affecting the rest.
func AsList[T any](v any, fn func(map[string]any) T) []T {
	out := []T{}
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, fn(obj))
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		m := numberPattern.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
