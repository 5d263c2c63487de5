// Package attrs reads values back out of slog-style key/value lists.
package attrs

import "fmt"

// ExtractString returns the value following key in a flat key/value list,
// formatted as a string. Missing keys yield "".
func ExtractString(list []any, key string) string {
	for i := 0; i+1 < len(list); i += 2 {
		k, ok := list[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := list[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
