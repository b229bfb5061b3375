package api

import (
	"net/http"
	"strings"

	"github.com/erazemk/labborrow/internal/apperr"
	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/logger"
	"github.com/erazemk/labborrow/internal/model"
	"github.com/erazemk/labborrow/internal/store"
)

// LabsHandler handles lab endpoints.
type LabsHandler struct {
	DB  *db.DB
	Log *logger.Logger
}

// List handles GET /api/labs.
func (h *LabsHandler) List(w http.ResponseWriter, r *http.Request) {
	labs, err := store.ListLabs(r.Context(), h.DB)
	if err != nil {
		writeError(r.Context(), h.Log, w, apperr.Internal(err, "failed to list labs"))
		return
	}
	if labs == nil {
		labs = []model.Lab{}
	}
	jsonResponse(w, http.StatusOK, labs)
}

// Create handles POST /api/labs.
func (h *LabsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}

	lab, err := store.CreateLab(r.Context(), h.DB, name)
	if err != nil {
		writeError(r.Context(), h.Log, w, apperr.Internal(err, "failed to create lab"))
		return
	}
	jsonResponse(w, http.StatusCreated, lab)
}
