package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ferkcore/topadel/internal/webhook/domain"
)

// decodePayload parses the delivery body, tolerating the encoding noise
// some upstream notifiers produce. Three passes: the raw bytes, then a
// UTF-8 sanitized copy, then one with control characters stripped.
func decodePayload(body []byte) (map[string]any, error) {
	candidates := [][]byte{
		body,
		[]byte(strings.ToValidUTF8(string(body), "")),
		stripControlChars(body),
	}
	for _, candidate := range candidates {
		var payload map[string]any
		if err := json.Unmarshal(candidate, &payload); err == nil {
			return payload, nil
		}
	}
	return nil, domain.ErrInvalidJSON
}

func stripControlChars(body []byte) []byte {
	sanitized := strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.ToValidUTF8(string(body), ""))
	return []byte(sanitized)
}

// Identifier synonym lists, tried in order. Notifier versions disagree
// on key names, so extraction walks the whole payload depth-first and
// keeps the first non-empty match.
var (
	tokenKeys    = []string{"token", "placetopaytoken", "paymenttoken", "topten_token"}
	acquirerKeys = []string{"idadquiria", "id_adquiria", "idacquirer"}
	cartKeys     = []string{"carr_id", "cartid", "cart_id"}
	statusKeys   = []string{"status", "estado", "state", "result", "statuscode", "status_code"}
	amountKeys   = []string{"amount", "valor", "total", "amountvalue"}
)

// findKey searches the payload depth-first for the given key, matching
// case-insensitively, and returns the first value found.
func findKey(payload any, key string) (any, bool) {
	switch node := payload.(type) {
	case map[string]any:
		for k, v := range node {
			if strings.EqualFold(strings.TrimSpace(k), key) {
				return v, true
			}
		}
		for _, v := range node {
			if found, ok := findKey(v, key); ok {
				return found, ok
			}
		}
	case []any:
		for _, v := range node {
			if found, ok := findKey(v, key); ok {
				return found, ok
			}
		}
	}
	return nil, false
}

// extractString returns the first non-empty string value for any of the
// synonym keys.
func extractString(payload map[string]any, keys []string) string {
	for _, key := range keys {
		value, ok := findKey(payload, key)
		if !ok {
			continue
		}
		if s := stringify(value); s != "" {
			return s
		}
	}
	return ""
}

// extractInt returns the first positive integer value for any of the
// synonym keys.
func extractInt(payload map[string]any, keys []string) int64 {
	for _, key := range keys {
		value, ok := findKey(payload, key)
		if !ok {
			continue
		}
		if n := intify(value); n > 0 {
			return n
		}
	}
	return 0
}

// extractAmount returns the first positive amount value for any of the
// synonym keys.
func extractAmount(payload map[string]any, keys []string) float64 {
	for _, key := range keys {
		value, ok := findKey(payload, key)
		if !ok {
			continue
		}
		if f := floatify(value); f > 0 {
			return f
		}
	}
	return 0
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func floatify(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func intify(value any) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
