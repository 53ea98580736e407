package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorCode is the machine-readable part of an error response. Each code
// maps to exactly one HTTP status.
type ErrorCode string

const (
	CodeInvalidJSON       ErrorCode = "invalid_json"
	CodeInvalidStatus     ErrorCode = "invalid_status"
	CodeNotFound          ErrorCode = "not_found"
	CodeAlreadyRunning    ErrorCode = "already_running"
	CodeSecretNotStored   ErrorCode = "secret_not_stored"
	CodeRunsUnavailable   ErrorCode = "runs_unavailable"
	CodeStreamUnsupported ErrorCode = "stream_unsupported"
	CodeInternal          ErrorCode = "internal_error"
)

var codeStatus = map[ErrorCode]int{
	CodeInvalidJSON:       http.StatusBadRequest,
	CodeInvalidStatus:     http.StatusBadRequest,
	CodeSecretNotStored:   http.StatusBadRequest,
	CodeNotFound:          http.StatusNotFound,
	CodeAlreadyRunning:    http.StatusConflict,
	CodeRunsUnavailable:   http.StatusInternalServerError,
	CodeStreamUnsupported: http.StatusInternalServerError,
	CodeInternal:          http.StatusInternalServerError,
}

// Status is the HTTP status sent with c; unknown codes are server errors.
func (c ErrorCode) Status() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type APIError struct {
	Error struct {
		Code      ErrorCode `json:"code"`
		Message   string    `json:"message"`
		RequestID string    `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError sends the error envelope, tagged with the request id.
func WriteError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, code.Status(), e)
}
