package schema

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// generic converts Go-native containers a caller may hand us ([]string,
// map[string]string, typed slices of maps) into the map[string]interface{} /
// []interface{} shape the normalizer works on, deep-copying as it goes.
func generic(v interface{}) interface{} {
	switch n := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, val := range n {
			out[k] = generic(val)
		}
		return out
	case map[string]string:
		out := make(map[string]interface{}, len(n))
		for k, val := range n {
			out[k] = val
		}
		return out
	case map[string][]string:
		out := make(map[string]interface{}, len(n))
		for k, val := range n {
			out[k] = generic(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, val := range n {
			out[i] = generic(val)
		}
		return out
	case []string:
		out := make([]interface{}, len(n))
		for i, s := range n {
			out[i] = s
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(n))
		for i, m := range n {
			out[i] = generic(m)
		}
		return out
	default:
		return v
	}
}

// scalarString renders strings and scalars as a string. Containers report false.
func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int32:
		return strconv.FormatInt(int64(s), 10), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

// defaultString canonicalizes m[key] to a string in place. Containers are
// left untouched so validation can reject them.
func defaultString(m map[string]interface{}, key string) {
	if s, ok := scalarString(m[key]); ok {
		m[key] = s
	}
}

// stringField is defaultString for envelope fields: anything unusable becomes "".
func stringField(v interface{}) string {
	s, _ := scalarString(v)
	return s
}

func boolField(v interface{}, fallback bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	}
	return fallback
}

func intField(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return 0
}

func timeField(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// stringList canonicalizes a list-of-strings field in place: a bare scalar
// becomes a one-element list and nil becomes empty.
func stringList(m map[string]interface{}, key string) {
	switch v := m[key].(type) {
	case nil:
		m[key] = []interface{}{}
	case []interface{}:
		for i, item := range v {
			if s, ok := scalarString(item); ok {
				v[i] = s
			}
		}
	default:
		s, ok := scalarString(v)
		switch {
		case !ok:
		case s == "":
			m[key] = []interface{}{}
		default:
			m[key] = []interface{}{s}
		}
	}
}
