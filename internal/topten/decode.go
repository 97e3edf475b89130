package topten

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// decodeScalarID interprets the loosely-shaped identifier responses the
// remote platform returns from its create operations: a bare integer, a
// numeric string, or an object carrying the number under a "value" key
// with inconsistent casing. Anything else is an unexpected response.
func decodeScalarID(op string, body []byte) (int64, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return 0, &UnexpectedResponseError{Op: op, Reason: "empty body", Body: snippet(body)}
	}

	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return id, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return 0, &UnexpectedResponseError{Op: op, Reason: "not a numeric id", Body: snippet(body)}
	}

	if id, ok := scalarToInt(decoded); ok {
		return id, nil
	}

	if obj, ok := decoded.(map[string]any); ok {
		for key, value := range obj {
			if strings.EqualFold(key, "value") {
				if id, ok := scalarToInt(value); ok {
					return id, nil
				}
			}
		}
	}

	return 0, &UnexpectedResponseError{Op: op, Reason: "not a numeric id", Body: snippet(body)}
}

func scalarToInt(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// lowercaseKeys returns a copy of obj with every key folded to lower case.
// The remote API's key casing is inconsistent across environments, so
// response field matching always goes through this.
func lowercaseKeys(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		if nested, ok := value.(map[string]any); ok {
			value = lowercaseKeys(nested)
		}
		out[strings.ToLower(key)] = value
	}
	return out
}
