package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/model"
)

// ErrVersionConflict is returned when a borrow log changed between read and write.
var ErrVersionConflict = errors.New("borrow log version conflict")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const borrowLogsTable = "borrow_logs"

var borrowLogColumns = []any{
	goqu.I("b.id"), goqu.I("b.user_id"), goqu.I("b.lab_id"),
	goqu.I("b.student_id"), goqu.I("b.student_name"), goqu.I("b.course"), goqu.I("b.student_email"),
	goqu.I("b.borrow_date"), goqu.I("b.return_date"), goqu.I("b.status"),
	goqu.I("b.items"), goqu.I("b.images"), goqu.I("b.remarks"),
	goqu.I("b.version"), goqu.I("b.created_at"),
	goqu.COALESCE(goqu.I("l.name"), "").As("lab_name"),
}

// CreateBorrowLog inserts a new borrow log. The caller assigns ID and timestamps.
func CreateBorrowLog(ctx context.Context, db *db.DB, log *model.BorrowLog) error {
	items, images, err := encodeDocuments(log)
	if err != nil {
		return err
	}

	query, args, err := db.Builder().
		Insert(borrowLogsTable).
		Rows(goqu.Record{
			"id":            log.ID,
			"user_id":       nullString(log.UserID),
			"lab_id":        log.LabID,
			"student_id":    log.StudentID,
			"student_name":  log.StudentName,
			"course":        log.Course,
			"student_email": log.StudentEmail,
			"borrow_date":   log.BorrowDate.UTC(),
			"return_date":   nullTime(log),
			"status":        string(log.Status),
			"items":         items,
			"images":        images,
			"remarks":       log.Remarks,
			"version":       log.Version,
			"created_at":    log.CreatedAt.UTC(),
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building borrow log insert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("creating borrow log: %w", err)
	}
	return nil
}

// GetBorrowLog returns a borrow log by ID, or nil if it does not exist.
func GetBorrowLog(ctx context.Context, db *db.DB, id string) (*model.BorrowLog, error) {
	query, args, err := selectBorrowLogs(db).
		Where(goqu.I("b.id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building borrow log query: %w", err)
	}

	log, err := scanBorrowLog(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting borrow log: %w", err)
	}
	return log, nil
}

// ListActiveBorrowLogs returns all logs that still have outstanding items,
// newest first.
func ListActiveBorrowLogs(ctx context.Context, db *db.DB) ([]model.BorrowLog, error) {
	return listBorrowLogs(ctx, db, goqu.I("b.status").Neq(string(model.StatusReturned)))
}

// ListActiveBorrowLogsForStudent returns a student's logs that still have
// outstanding items, newest first.
func ListActiveBorrowLogsForStudent(ctx context.Context, db *db.DB, studentID string) ([]model.BorrowLog, error) {
	return listBorrowLogs(ctx, db,
		goqu.I("b.student_id").Eq(studentID),
		goqu.I("b.status").Neq(string(model.StatusReturned)),
	)
}

// UpdateBorrowLog writes the mutable fields of a log in a single statement,
// provided the stored version still equals expectedVersion. The stored version
// is set to log.Version.
func UpdateBorrowLog(ctx context.Context, db *db.DB, log *model.BorrowLog, expectedVersion int64) error {
	items, images, err := encodeDocuments(log)
	if err != nil {
		return err
	}

	query, args, err := db.Builder().
		Update(borrowLogsTable).
		Set(goqu.Record{
			"return_date": nullTime(log),
			"status":      string(log.Status),
			"items":       items,
			"images":      images,
			"remarks":     log.Remarks,
			"version":     log.Version,
		}).
		Where(goqu.Ex{"id": log.ID, "version": expectedVersion}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building borrow log update: %w", err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating borrow log: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func selectBorrowLogs(db *db.DB) *goqu.SelectDataset {
	return db.Builder().
		From(goqu.T(borrowLogsTable).As("b")).
		LeftJoin(goqu.T(labsTable).As("l"), goqu.On(goqu.I("l.id").Eq(goqu.I("b.lab_id")))).
		Select(borrowLogColumns...)
}

func listBorrowLogs(ctx context.Context, db *db.DB, where ...goqu.Expression) ([]model.BorrowLog, error) {
	query, args, err := selectBorrowLogs(db).
		Where(where...).
		Order(goqu.I("b.created_at").Desc(), goqu.I("b.id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building borrow log query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing borrow logs: %w", err)
	}
	defer rows.Close()

	var logs []model.BorrowLog
	for rows.Next() {
		log, err := scanBorrowLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning borrow log: %w", err)
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBorrowLog(row rowScanner) (*model.BorrowLog, error) {
	var (
		log                 model.BorrowLog
		userID              sql.NullString
		returnDate          sql.NullTime
		status              string
		itemsDoc, imagesDoc string
	)
	err := row.Scan(&log.ID, &userID, &log.LabID,
		&log.StudentID, &log.StudentName, &log.Course, &log.StudentEmail,
		&log.BorrowDate, &returnDate, &status,
		&itemsDoc, &imagesDoc, &log.Remarks,
		&log.Version, &log.CreatedAt,
		&log.LabName)
	if err != nil {
		return nil, err
	}

	log.UserID = userID.String
	log.Status = model.BorrowStatus(status)
	if returnDate.Valid {
		t := returnDate.Time
		log.ReturnDate = &t
	}
	if err := json.UnmarshalFromString(itemsDoc, &log.Items); err != nil {
		return nil, fmt.Errorf("decoding items of %s: %w", log.ID, err)
	}
	if err := json.UnmarshalFromString(imagesDoc, &log.Images); err != nil {
		return nil, fmt.Errorf("decoding images of %s: %w", log.ID, err)
	}
	if log.Items == nil {
		log.Items = []model.BorrowItem{}
	}
	if log.Images == nil {
		log.Images = []string{}
	}
	return &log, nil
}

func encodeDocuments(log *model.BorrowLog) (string, string, error) {
	items := log.Items
	if items == nil {
		items = []model.BorrowItem{}
	}
	images := log.Images
	if images == nil {
		images = []string{}
	}

	itemsDoc, err := json.MarshalToString(items)
	if err != nil {
		return "", "", fmt.Errorf("encoding items: %w", err)
	}
	imagesDoc, err := json.MarshalToString(images)
	if err != nil {
		return "", "", fmt.Errorf("encoding images: %w", err)
	}
	return itemsDoc, imagesDoc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(log *model.BorrowLog) sql.NullTime {
	if log.ReturnDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: log.ReturnDate.UTC(), Valid: true}
}
