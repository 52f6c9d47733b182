package main

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Gate rejection reasons. ErrInvalidCode deliberately covers both unknown and
// expired codes: distinguishing them would tell an attacker whether a guess
// was a real code.
var (
	ErrEmptyCode   = errors.New("access code is required")
	ErrThrottled   = errors.New("too many attempts, please try again later")
	ErrInvalidCode = errors.New("invalid or expired access code")
	ErrForbidden   = errors.New("not authorized for this page")
	ErrNotFound    = errors.New("page not found")
	ErrUnavailable = errors.New("service temporarily unavailable")
)

// APIError represents a structured API error response
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
	Details string `json:"details,omitempty"`
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Code:    code,
		Message: message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// writeGateError maps gate rejections onto HTTP statuses. Anything that is
// not an explicit rejection is a storage or downstream failure and is
// reported as service-unavailable without internal detail.
func writeGateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCode):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", ErrEmptyCode.Error())
	case errors.Is(err, ErrThrottled):
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", ErrThrottled.Error())
	case errors.Is(err, ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, "INVALID_CODE", ErrInvalidCode.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", ErrForbidden.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", ErrNotFound.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrUnavailable.Error())
	}
}
