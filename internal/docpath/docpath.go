// Package docpath implements dotted-path lookups into decoded JSON
// documents (map[string]any), e.g. "client.last_name".
package docpath

import (
	"fmt"
	"strconv"
)

// Lookup walks path through nested maps and returns the value, or nil if
// any segment is missing or not a map.
func Lookup(doc map[string]any, path string) any {
	var cur any = doc
	start := 0
	for i := 0; i <= len(path); i++ {
		if i != len(path) && path[i] != '.' {
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[path[start:i]]
		if !ok {
			return nil
		}
		start = i + 1
	}
	return cur
}

// String renders a looked-up value in a canonical string form. JSON numbers
// decode as float64; integral ones are rendered without a fraction so that
// a numeric id 1 becomes "1", not "1e+00".
func String(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// LookupString combines Lookup and String.
func LookupString(doc map[string]any, path string) string {
	return String(Lookup(doc, path))
}
