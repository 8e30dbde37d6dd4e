// Package query shapes search request bodies before they reach the backend.
package query

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

const (
	sizeField   = "size"
	sourceField = "_source"
)

// Augment clamps the requested result count to hardMax and merges fields into the
// _source filter. The body is modified in place and returned; a nil body becomes an
// empty one.
//
// A _source value that is neither absent nor a list (false, an includes/excludes
// object) is an explicit filter and is left as is.
func Augment(body map[string]any, fields []string, hardMax int) map[string]any {
	if body == nil {
		body = map[string]any{}
	}

	if ExceedsMax(body, hardMax) {
		body[sizeField] = hardMax
	}

	if len(fields) == 0 {
		return body
	}
	switch existing := body[sourceField].(type) {
	case nil:
		if _, present := body[sourceField]; present {
			return body
		}
		list := make([]any, 0, len(fields))
		for _, f := range fields {
			list = append(list, f)
		}
		body[sourceField] = list
	case []any:
		for _, f := range fields {
			existing = append(existing, f)
		}
		body[sourceField] = existing
	case []string:
		body[sourceField] = append(existing, fields...)
	}
	return body
}

// ExceedsMax reports whether body requests more than hardMax results.
func ExceedsMax(body map[string]any, hardMax int) bool {
	size, ok := numericSize(body[sizeField])
	return ok && size > float64(hardMax)
}

// numericSize reports the size as a float for any JSON number. Values beyond the float
// range come back as infinities, which still compare above any limit.
func numericSize(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return f, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
