// Package coerce provides lenient conversion of loosely typed input (csv columns, json values) into numbers.
// Every function returns the converted value and whether the input was usable, callers decide what to do
// with the default.
package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FloatOr parses value as float64, returns def and false if value is empty or unparsable
func FloatOr(value string, def float64) (float64, bool) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return def, false
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def, false
	}
	return result, true
}

// IntOr parses value as int, returns def and false if value is empty or unparsable.
// Values written as floats with no fractional part ("3.0") are accepted, spreadsheet exports produce them.
func IntOr(value string, def int) (int, bool) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return def, false
	}
	result, err := strconv.Atoi(value)
	if err == nil {
		return result, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != float64(int(f)) {
		return def, false
	}
	return int(f), true
}

// AnyFloat converts a decoded json value (number or numeric string) to float64.
// returns def and false for nil and any other type
func AnyFloat(value interface{}, def float64) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def, false
		}
		return f, true
	case string:
		return FloatOr(v, def)
	}
	return def, false
}

// AnyString converts a decoded json value to its string form, numbers are formatted without exponent.
// returns empty string and false for nil
func AnyString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}
