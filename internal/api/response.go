package api

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/labborrow/internal/apperr"
	"github.com/erazemk/labborrow/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// Headers are out; an encode failure can only be a dropped client.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"message": message})
}

// writeError maps err to its status and writes {"message"}. Internal and
// dependency errors are logged and also carry the underlying detail.
func writeError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Internal(err, "internal server error")
	}

	status := apperr.Status(typed.Code())
	if status < http.StatusInternalServerError {
		jsonError(w, status, typed.Message())
		return
	}

	if log != nil {
		ctx = log.WithField(ctx, "error_code", string(typed.Code()))
		log.Error(ctx, "request.failed", err)
	}

	body := map[string]string{"message": typed.Message()}
	if cause := typed.Unwrap(); cause != nil {
		body["error"] = cause.Error()
	}
	jsonResponse(w, status, body)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
