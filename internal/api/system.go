package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/erazemk/labborrow/internal/apperr"
	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/logger"
	"github.com/erazemk/labborrow/internal/upload"
)

// Alive handles GET /.
func Alive(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"message":   "Server is alive and reachable!",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Healthz handles GET /healthz by pinging the database.
func Healthz(database *db.DB, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := database.PingContext(ctx); err != nil {
			writeError(r.Context(), log, w, apperr.Wrap(apperr.CodeDependency, err, "database unavailable"))
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// UploadsHandler serves stored files.
type UploadsHandler struct {
	Uploads *upload.Uploader
	Log     *logger.Logger
}

// Get handles GET /uploads/{name}.
func (h *UploadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.Uploads.Open(r.Context(), r.PathValue("name"))
	if errors.Is(err, upload.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		writeError(r.Context(), h.Log, w, apperr.Wrap(apperr.CodeDependency, err, "failed to open file"))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}
