package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sharecycle/sharecycle/internal/exchange"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message           string `json:"message"`
	Kind              string `json:"kind,omitempty"`
	ExistingRequestID string `json:"existingRequestId,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Message: message, Kind: string(kindForStatus(status))})
}

func statusForKind(k exchange.Kind) int {
	switch k {
	case exchange.KindUnauthenticated:
		return http.StatusUnauthorized
	case exchange.KindForbidden:
		return http.StatusForbidden
	case exchange.KindNotFound:
		return http.StatusNotFound
	case exchange.KindInvalid:
		return http.StatusBadRequest
	case exchange.KindInvalidStateTransition, exchange.KindDuplicateRequest:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func kindForStatus(status int) exchange.Kind {
	switch status {
	case http.StatusUnauthorized:
		return exchange.KindUnauthenticated
	case http.StatusForbidden:
		return exchange.KindForbidden
	case http.StatusNotFound:
		return exchange.KindNotFound
	case http.StatusBadRequest:
		return exchange.KindInvalid
	}
	return ""
}

// writeError maps domain errors to their status code. Anything else is
// logged and reported as an internal error with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var e *exchange.Error
	if errors.As(err, &e) {
		jsonResponse(w, statusForKind(e.Kind), errorResponse{
			Message:           e.Message,
			Kind:              string(e.Kind),
			ExistingRequestID: e.ExistingRequestID,
		})
		return
	}

	slog.Error(message, "method", r.Method, "path", r.URL.Path, "error", err)
	jsonError(w, http.StatusInternalServerError, message)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return n
}
