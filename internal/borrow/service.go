package borrow

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/labborrow/internal/apperr"
	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/logger"
	"github.com/erazemk/labborrow/internal/metrics"
	"github.com/erazemk/labborrow/internal/model"
	"github.com/erazemk/labborrow/internal/store"
	"github.com/erazemk/labborrow/internal/upload"
)

// Service implements borrowing and returning against the store.
type Service struct {
	DB      *db.DB
	Uploads *upload.Uploader
	Log     *logger.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// NewService returns a Service. uploads may be nil when no files are expected;
// m may be nil to disable metrics.
func NewService(database *db.DB, uploads *upload.Uploader, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{DB: database, Uploads: uploads, Log: log, Metrics: m, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// SubmitBorrow validates a borrow submission, stores its files and inserts
// a new log in status BORROWED. Nothing is stored when validation fails.
func (s *Service) SubmitBorrow(ctx context.Context, req BorrowRequest, files []*multipart.FileHeader) (*model.BorrowLog, error) {
	log, err := s.submitBorrow(ctx, req, files)
	if err != nil {
		s.Metrics.BorrowRejected()
		return nil, err
	}
	s.Metrics.BorrowCreated(totalQuantity(log.Items))
	return log, nil
}

func (s *Service) submitBorrow(ctx context.Context, req BorrowRequest, files []*multipart.FileHeader) (*model.BorrowLog, error) {
	req.trim()
	if err := validate.Struct(req); err != nil {
		return nil, apperr.Validation("missing required fields")
	}

	items, err := parseBorrowItems(req.Items)
	if err != nil {
		return nil, err
	}
	borrowDate, err := parseBorrowDate(req.BorrowDate)
	if err != nil {
		return nil, err
	}

	images, err := s.saveFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	now := s.now()
	log := &model.BorrowLog{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		LabID:        req.LabID,
		StudentID:    req.StudentID,
		StudentName:  req.StudentName,
		Course:       req.Course,
		StudentEmail: req.StudentEmail,
		BorrowDate:   borrowDate,
		Status:       model.StatusBorrowed,
		Items:        items,
		Images:       images,
		CreatedAt:    now,
	}

	if err := store.CreateBorrowLog(ctx, s.DB, log); err != nil {
		s.discardFiles(ctx, images)
		return nil, apperr.Internal(err, "internal server error")
	}

	ctx = s.Log.WithFields(ctx, map[string]any{"log_id": log.ID, "student_id": log.StudentID, "items": len(items)})
	s.Log.Info(ctx, "borrow.created")
	return log, nil
}

// ReturnItems records the return of some or all outstanding items of a log.
// Entries are applied in order and the first invalid one rejects the whole
// call. The write fails with a conflict when the log changed since it was read.
func (s *Service) ReturnItems(ctx context.Context, logID string, req ReturnRequest, files []*multipart.FileHeader) (*model.BorrowLog, error) {
	entries, remarks, err := parseReturnRequest(req)
	if err != nil {
		s.Metrics.ReturnRejected("invalid")
		return nil, err
	}

	current, err := s.GetBorrowLog(ctx, logID)
	if err != nil {
		s.Metrics.ReturnRejected("not_found")
		return nil, err
	}

	updated, units, err := ApplyReturn(current, entries)
	if err != nil {
		s.Metrics.ReturnRejected("invalid")
		return nil, err
	}

	images, err := s.saveFiles(ctx, files)
	if err != nil {
		s.Metrics.ReturnRejected("storage")
		return nil, err
	}

	returnedAt := s.now()
	updated.ReturnDate = &returnedAt
	updated.Images = append(updated.Images, images...)
	updated.Remarks = remarks
	updated.Version = current.Version + 1

	err = store.UpdateBorrowLog(ctx, s.DB, updated, current.Version)
	if errors.Is(err, store.ErrVersionConflict) {
		s.discardFiles(ctx, images)
		s.Metrics.ReturnRejected("conflict")
		return nil, apperr.New(apperr.CodeConflict, "borrow log was modified concurrently")
	}
	if err != nil {
		s.discardFiles(ctx, images)
		s.Metrics.ReturnRejected("error")
		return nil, apperr.Internal(err, "internal server error")
	}

	s.Metrics.ReturnRecorded(string(updated.Status), units)
	ctx = s.Log.WithFields(ctx, map[string]any{"log_id": updated.ID, "status": string(updated.Status), "returned": units})
	s.Log.Info(ctx, "borrow.returned")
	return updated, nil
}

// GetBorrowLog returns one log by ID.
func (s *Service) GetBorrowLog(ctx context.Context, id string) (*model.BorrowLog, error) {
	log, err := store.GetBorrowLog(ctx, s.DB, strings.TrimSpace(id))
	if err != nil {
		return nil, apperr.Internal(err, "internal server error")
	}
	if log == nil {
		return nil, apperr.NotFound("borrow log not found")
	}
	return log, nil
}

// ListActiveBorrows returns summaries of every log with outstanding items,
// newest first.
func (s *Service) ListActiveBorrows(ctx context.Context) ([]model.BorrowSummary, error) {
	logs, err := store.ListActiveBorrowLogs(ctx, s.DB)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch borrow logs")
	}

	summaries := make([]model.BorrowSummary, 0, len(logs))
	for i := range logs {
		summaries = append(summaries, logs[i].Summary())
	}
	return summaries, nil
}

// ListBorrowsForStudent returns a student's logs with outstanding items,
// newest first.
func (s *Service) ListBorrowsForStudent(ctx context.Context, studentID string) ([]model.BorrowLog, error) {
	logs, err := store.ListActiveBorrowLogsForStudent(ctx, s.DB, strings.TrimSpace(studentID))
	if err != nil {
		return nil, apperr.Internal(err, "internal server error")
	}
	if len(logs) == 0 {
		return nil, apperr.NotFound("no borrowed items found for this student")
	}
	return logs, nil
}

func (s *Service) saveFiles(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if s.Uploads == nil {
		return nil, apperr.New(apperr.CodeDependency, "file uploads are not configured")
	}
	refs, err := s.Uploads.Save(ctx, files)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "failed to store uploaded files")
	}
	return refs, nil
}

// discardFiles removes files stored for a write that did not happen.
func (s *Service) discardFiles(ctx context.Context, refs []string) {
	if len(refs) == 0 || s.Uploads == nil {
		return
	}
	if err := s.Uploads.Remove(ctx, refs); err != nil {
		s.Log.Warn(s.Log.WithField(ctx, "error", err.Error()), "upload.cleanup_failed")
	}
}

func totalQuantity(items []model.BorrowItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
