package domain

import "net/http"

// RejectError carries the HTTP status and machine-readable reason a
// delivery is refused with. Reasons are stable, clients match on them.
type RejectError struct {
	Code   int
	Reason string
}

func (e *RejectError) Error() string { return e.Reason }

var (
	ErrEmptyBody        = &RejectError{Code: http.StatusBadRequest, Reason: "empty_body"}
	ErrInvalidJSON      = &RejectError{Code: http.StatusBadRequest, Reason: "invalid_json"}
	ErrMissingSignature = &RejectError{Code: http.StatusUnauthorized, Reason: "missing_signature"}
	ErrInvalidSignature = &RejectError{Code: http.StatusUnauthorized, Reason: "invalid_signature"}
	ErrInvalidTimestamp = &RejectError{Code: http.StatusUnauthorized, Reason: "invalid_timestamp"}
)
