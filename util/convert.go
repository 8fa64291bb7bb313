package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ToLong converts numbers and numeric text to int64. Anything that cannot be
// converted yields -1.
func ToLong(v any) int64 {
	switch t := v.(type) {
	case nil:
		return -1
	case bool:
		return -1
	case string:
		return parseLong(t)
	case []byte:
		return parseLong(string(t))
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return parseLong(fmt.Sprint(v))
	}
	return n
}

func ToInt(v any) int {
	return int(ToLong(v))
}

// ToDouble converts numbers and numeric text to float64, -1 otherwise.
func ToDouble(v any) float64 {
	switch t := v.(type) {
	case nil, bool:
		return -1
	case string:
		return parseDouble(t)
	case []byte:
		return parseDouble(string(t))
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return parseDouble(fmt.Sprint(v))
	}
	return f
}

func ToFloat(v any) float32 {
	return float32(ToDouble(v))
}

// IsNumeric reports whether v is a number or text holding one.
func IsNumeric(v any) bool {
	switch t := v.(type) {
	case nil, bool:
		return false
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil
	case []byte:
		_, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		return err == nil
	case json.Number:
		_, err := t.Float64()
		return err == nil
	}
	_, err := cast.ToFloat64E(v)
	return err == nil
}

// ToText renders a value the way it is carried in headers and messages.
func ToText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func parseLong(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return -1
}

func parseDouble(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return -1
	}
	return f
}
