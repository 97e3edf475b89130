package topten

import "fmt"

// TransportError reports a network-level failure (DNS, connect, timeout)
// that survived the retry budget.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("topten %s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. Message carries the remote error
// message when the body had one.
type HTTPError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("topten %s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("topten %s: HTTP %d", e.Op, e.StatusCode)
}

// UnexpectedResponseError reports a 2xx response whose body could not be
// interpreted: a non-numeric id, missing success flag, or malformed JSON.
type UnexpectedResponseError struct {
	Op     string
	Reason string
	Body   string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("topten %s: unexpected response: %s: %s", e.Op, e.Reason, e.Body)
}

// SessionRejectedError reports a payment-session response whose success
// flag was false. Message is the remote-supplied failure message.
type SessionRejectedError struct {
	Message string
}

func (e *SessionRejectedError) Error() string {
	return fmt.Sprintf("topten payment session rejected: %s", e.Message)
}

// ConfigurationError reports a missing credential field.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("topten configuration: missing %s", e.Field)
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
