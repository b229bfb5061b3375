package api

import (
	"net/http"

	"github.com/erazemk/labborrow/internal/borrow"
	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/logger"
	"github.com/erazemk/labborrow/internal/metrics"
	"github.com/erazemk/labborrow/internal/upload"
)

// Options wires the router's dependencies.
type Options struct {
	DB        *db.DB
	Borrows   *borrow.Service
	Uploads   *upload.Uploader
	Log       *logger.Logger
	Metrics   *metrics.Metrics
	JWTSecret string
	// BorrowRequiresAuth puts the borrow and return routes behind the auth gate.
	BorrowRequiresAuth bool
	// MaxUploadBytes caps multipart request bodies. 0 means no cap.
	MaxUploadBytes int64
}

// NewRouter creates the HTTP handler with all endpoints and middleware registered.
func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	mux := http.NewServeMux()

	borrowsHandler := &BorrowsHandler{Service: opts.Borrows, Log: log, MaxBytes: opts.MaxUploadBytes}
	labsHandler := &LabsHandler{DB: opts.DB, Log: log}
	uploadsHandler := &UploadsHandler{Uploads: opts.Uploads, Log: log}

	authMW := AuthMiddleware(opts.JWTSecret, log)
	borrowMW := OptionalAuth(opts.JWTSecret, log)
	if opts.BorrowRequiresAuth {
		borrowMW = authMW
	}

	// Public.
	mux.HandleFunc("GET /{$}", Alive)
	mux.Handle("GET /healthz", Healthz(opts.DB, log))
	mux.Handle("GET /metrics", opts.Metrics.Handler())
	mux.HandleFunc("GET /uploads/{name}", uploadsHandler.Get)

	// Borrowing.
	mux.Handle("POST /api/borrow", borrowMW(http.HandlerFunc(borrowsHandler.Submit)))
	mux.Handle("PUT /api/borrow/return/{logId}", borrowMW(http.HandlerFunc(borrowsHandler.Return)))
	mux.Handle("GET /api/borrow", borrowMW(http.HandlerFunc(borrowsHandler.ListActive)))
	mux.Handle("GET /api/borrow/{studentId}", borrowMW(http.HandlerFunc(borrowsHandler.ListForStudent)))

	// Labs (authenticated).
	mux.Handle("GET /api/labs", authMW(http.HandlerFunc(labsHandler.List)))
	mux.Handle("POST /api/labs", authMW(http.HandlerFunc(labsHandler.Create)))

	var handler http.Handler = mux
	handler = MetricsMiddleware(opts.Metrics)(handler)
	handler = Recoverer(log)(handler)
	handler = LoggingMiddleware(log)(handler)
	handler = RequestID(log)(handler)
	return handler
}
