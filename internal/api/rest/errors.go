package rest

import (
	"encoding/json"
	"net/http"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
)

// statusFor maps a domain error code to an HTTP status.
func statusFor(code domainerr.Code) int {
	switch code {
	case domainerr.CodeNotFound:
		return http.StatusNotFound
	case domainerr.CodeConflict:
		return http.StatusConflict
	case domainerr.CodeValidation:
		return http.StatusBadRequest
	case domainerr.CodeForbidden:
		return http.StatusForbidden
	case domainerr.CodeTimeout:
		return http.StatusGatewayTimeout
	case domainerr.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError keeps one JSON error envelope for every handler.
// Only the caller-safe message is exposed, never the wrapped cause.
func writeError(w http.ResponseWriter, err error) {
	code := domainerr.CodeOf(err)
	writeJSON(w, statusFor(code), errorResponse{Error: string(code), Message: domainerr.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domainerr.Wrap(err, domainerr.CodeValidation, "invalid request body")
	}
	return nil
}
