// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Coercions follow loose dynamic-language rules: "0" and "" are false,
// numeric strings convert to their value, anything else non-numeric is zero.

func toBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case float64:
		return t != 0
	case int64:
		return t != 0
	case int:
		return t != 0
	default:
		return cast.ToBool(v)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "1"
		}
		return ""
	case string:
		return t
	case []any, map[string]any:
		return "Array"
	default:
		return cast.ToString(v)
	}
}

func toInt(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return truncate(t)
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		return truncate(numericString(s))
	case []any:
		return boolToInt(len(t) > 0)
	case map[string]any:
		return boolToInt(len(t) > 0)
	default:
		return cast.ToInt64(v)
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case float64:
		return t
	case string:
		return numericString(strings.TrimSpace(t))
	case []any:
		return float64(boolToInt(len(t) > 0))
	case map[string]any:
		return float64(boolToInt(len(t) > 0))
	default:
		return cast.ToFloat64(v)
	}
}

// numericString parses a decimal numeric string, returning 0 for anything else.
func numericString(s string) float64 {
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
