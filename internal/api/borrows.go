package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/erazemk/labborrow/internal/borrow"
	"github.com/erazemk/labborrow/internal/logger"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// BorrowsHandler handles borrow and return endpoints.
type BorrowsHandler struct {
	Service  *borrow.Service
	Log      *logger.Logger
	MaxBytes int64
}

// Submit handles POST /api/borrow.
func (h *BorrowsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	files, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	req := borrow.BorrowRequest{
		UserID:       userIDFrom(r.Context()),
		LabID:        r.FormValue("labId"),
		StudentID:    r.FormValue("studentId"),
		StudentName:  r.FormValue("studentName"),
		Course:       r.FormValue("course"),
		StudentEmail: r.FormValue("studentEmail"),
		BorrowDate:   r.FormValue("borrowDate"),
		Items:        r.FormValue("items"),
	}

	log, err := h.Service.SubmitBorrow(r.Context(), req, files)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]string{
		"message": "Borrow log created successfully",
		"id":      log.ID,
	})
}

// Return handles PUT /api/borrow/return/{logId}.
func (h *BorrowsHandler) Return(w http.ResponseWriter, r *http.Request) {
	files, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	req := borrow.ReturnRequest{
		UserID:  userIDFrom(r.Context()),
		Payload: r.FormValue("payload"),
		Remarks: r.FormValue("remarks"),
	}

	log, err := h.Service.ReturnItems(r.Context(), r.PathValue("logId"), req, files)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Items returned successfully",
		"data":    log,
	})
}

// ListActive handles GET /api/borrow.
func (h *BorrowsHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Service.ListActiveBorrows(r.Context())
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, summaries)
}

// ListForStudent handles GET /api/borrow/{studentId}.
func (h *BorrowsHandler) ListForStudent(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Service.ListBorrowsForStudent(r.Context(), r.PathValue("studentId"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, logs)
}

// parseForm reads a multipart (or urlencoded) body and returns the uploaded
// images. On failure it writes the response and returns false.
func (h *BorrowsHandler) parseForm(w http.ResponseWriter, r *http.Request) ([]*multipart.FileHeader, bool) {
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		jsonError(w, http.StatusBadRequest, "invalid form body")
		return nil, false
	}

	if r.MultipartForm == nil {
		return nil, true
	}
	return r.MultipartForm.File["images"], true
}
