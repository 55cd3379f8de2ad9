package crud

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type (
	// Payload is a raw request payload: a decoded JSON object, a form or a query string.
	Payload map[string]interface{}

	// Values are validated values keyed by field name. A nil value is a NULL.
	Values map[string]interface{}

	// Row is a stored record keyed by field name, plus its IDField.
	Row map[string]interface{}
)

// DateLayout is accepted for time fields next to RFC 3339.
const DateLayout = "2006-01-02"

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// omitEmpty is the create policy: empty and absent fields are not persisted at all.
func omitEmpty(vals Values) Values {
	out := make(Values, len(vals))
	for k, v := range vals {
		if !isEmpty(v) {
			out[k] = v
		}
	}
	return out
}

// clearEmpty is the update policy: an empty field clears the stored value.
func clearEmpty(vals Values) Values {
	out := make(Values, len(vals))
	for k, v := range vals {
		if isEmpty(v) {
			out[k] = nil
		} else {
			out[k] = v
		}
	}
	return out
}

// coerce converts a raw payload value to the Go type of ft.
// Strings are accepted for every type, since forms and query strings carry nothing else.
func coerce(raw interface{}, ft FieldType) (interface{}, bool) {
	switch ft {
	case TypeString:
		s, ok := raw.(string)
		return s, ok

	case TypeInt:
		switch v := raw.(type) {
		case json.Number:
			n, err := v.Int64()
			return n, err == nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			return n, err == nil
		case float64:
			if v != math.Trunc(v) || math.IsInf(v, 0) {
				return nil, false
			}
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		}

	case TypeFloat:
		switch v := raw.(type) {
		case json.Number:
			f, err := v.Float64()
			return f, err == nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return f, err == nil
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}

	case TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			return b, err == nil
		}

	case TypeTime:
		switch v := raw.(type) {
		case time.Time:
			return v, true
		case string:
			v = strings.TrimSpace(v)
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t, true
			}
			if t, err := time.Parse(DateLayout, v); err == nil {
				return t, true
			}
		}
	}
	return nil, false
}
