package crawler

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Vendor payloads are untyped; these helpers guard every field access.

// DecodeJSON decodes a cached or fetched body into generic values.
func DecodeJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func GetMap(v any, key string) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	child, ok := m[key].(map[string]any)
	return child, ok
}

func GetSlice(v any, key string) ([]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	child, ok := m[key].([]any)
	return child, ok
}

func GetStringValue(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		switch val := v.(type) {
		case string:
			return val
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(val, 10)
		}
	}
	return ""
}

// ToFloat accepts JSON numbers and numeric strings, including strings with
// thousands separators ("1,234,500"). NaN and infinities are rejected.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// GetFloatValue reads m[key] as a number.
func GetFloatValue(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// FirstLevelPrice reads the price of the first level of an orderbook side.
// Levels are either ["price", "amount"] pairs or {"price": ...} objects.
func FirstLevelPrice(levels []any) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	switch level := levels[0].(type) {
	case []any:
		if len(level) == 0 {
			return 0, false
		}
		return ToFloat(level[0])
	case map[string]any:
		return GetFloatValue(level, "price")
	}
	return 0, false
}
