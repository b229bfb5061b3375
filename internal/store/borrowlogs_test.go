package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/labborrow/internal/db"
	"github.com/erazemk/labborrow/internal/model"
)

var baseTime = time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)

func newLog(id, studentID string, created time.Time, items ...model.BorrowItem) *model.BorrowLog {
	return &model.BorrowLog{
		ID:           id,
		LabID:        "lab-1",
		StudentID:    studentID,
		StudentName:  "Ana Novak",
		Course:       "Physics 101",
		StudentEmail: "ana@example.edu",
		BorrowDate:   created,
		Status:       model.StatusBorrowed,
		Items:        items,
		Images:       []string{"uploads/1-1.jpg"},
		CreatedAt:    created,
	}
}

func TestCreateAndGetBorrowLog(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	log := newLog("log-1", "s1", baseTime,
		model.BorrowItem{ID: "i1", ItemName: "Drill", Quantity: 3},
		model.BorrowItem{ID: "i2", ItemName: "hammer", Quantity: 2},
	)
	if err := CreateBorrowLog(ctx, database, log); err != nil {
		t.Fatalf("CreateBorrowLog: %v", err)
	}

	got, err := GetBorrowLog(ctx, database, "log-1")
	if err != nil {
		t.Fatalf("GetBorrowLog: %v", err)
	}
	if got == nil {
		t.Fatal("expected log, got nil")
	}
	if got.Status != model.StatusBorrowed {
		t.Errorf("expected status BORROWED, got %s", got.Status)
	}
	if len(got.Items) != 2 || got.Items[0].ItemName != "Drill" || got.Items[1].Quantity != 2 {
		t.Errorf("unexpected items %+v", got.Items)
	}
	if len(got.Images) != 1 {
		t.Errorf("expected 1 image, got %d", len(got.Images))
	}
	if got.ReturnDate != nil {
		t.Errorf("expected nil return date, got %v", got.ReturnDate)
	}
	if !got.BorrowDate.Equal(baseTime) {
		t.Errorf("expected borrow date %v, got %v", baseTime, got.BorrowDate)
	}
	if got.UserID != "" {
		t.Errorf("expected empty user id, got %q", got.UserID)
	}
}

func TestGetBorrowLogMissing(t *testing.T) {
	database := db.NewTestDB(t)

	got, err := GetBorrowLog(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("GetBorrowLog: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestBorrowLogJoinsLabName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	lab, err := CreateLab(ctx, database, "Electronics Lab")
	if err != nil {
		t.Fatalf("CreateLab: %v", err)
	}

	log := newLog("log-1", "s1", baseTime, model.BorrowItem{ID: "i1", ItemName: "Multimeter", Quantity: 1})
	log.LabID = lab.ID
	CreateBorrowLog(ctx, database, log)

	orphan := newLog("log-2", "s1", baseTime.Add(time.Minute), model.BorrowItem{ID: "i2", ItemName: "Probe", Quantity: 1})
	orphan.LabID = "missing-lab"
	CreateBorrowLog(ctx, database, orphan)

	got, _ := GetBorrowLog(ctx, database, "log-1")
	if got.LabName != "Electronics Lab" {
		t.Errorf("expected lab name, got %q", got.LabName)
	}

	got, _ = GetBorrowLog(ctx, database, "log-2")
	if got == nil || got.LabName != "" {
		t.Errorf("expected orphan log with empty lab name, got %+v", got)
	}
}

func TestListActiveBorrowLogs(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateBorrowLog(ctx, database, newLog("old", "s1", baseTime, model.BorrowItem{ID: "a", ItemName: "A", Quantity: 1}))
	CreateBorrowLog(ctx, database, newLog("new", "s2", baseTime.Add(time.Hour), model.BorrowItem{ID: "b", ItemName: "B", Quantity: 1}))

	done := newLog("done", "s1", baseTime.Add(2*time.Hour))
	done.Status = model.StatusReturned
	CreateBorrowLog(ctx, database, done)

	logs, err := ListActiveBorrowLogs(ctx, database)
	if err != nil {
		t.Fatalf("ListActiveBorrowLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 active logs, got %d", len(logs))
	}
	if logs[0].ID != "new" || logs[1].ID != "old" {
		t.Errorf("expected newest first, got %s, %s", logs[0].ID, logs[1].ID)
	}

	forStudent, err := ListActiveBorrowLogsForStudent(ctx, database, "s1")
	if err != nil {
		t.Fatalf("ListActiveBorrowLogsForStudent: %v", err)
	}
	if len(forStudent) != 1 || forStudent[0].ID != "old" {
		t.Errorf("expected only 'old' for s1, got %+v", forStudent)
	}
}

func TestUpdateBorrowLogVersionCheck(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	log := newLog("log-1", "s1", baseTime, model.BorrowItem{ID: "a", ItemName: "Drill", Quantity: 3})
	CreateBorrowLog(ctx, database, log)

	returned := baseTime.Add(time.Hour)
	log.Items[0].Quantity = 1
	log.Status = model.StatusPartialReturn
	log.ReturnDate = &returned
	log.Remarks = "one scratched"
	log.Images = append(log.Images, "uploads/2-2.png")
	log.Version = 1

	if err := UpdateBorrowLog(ctx, database, log, 0); err != nil {
		t.Fatalf("UpdateBorrowLog: %v", err)
	}

	got, _ := GetBorrowLog(ctx, database, "log-1")
	if got.Version != 1 || got.Status != model.StatusPartialReturn || got.Remarks != "one scratched" {
		t.Errorf("unexpected stored log %+v", got)
	}
	if got.ReturnDate == nil || !got.ReturnDate.Equal(returned) {
		t.Errorf("expected return date %v, got %v", returned, got.ReturnDate)
	}
	if len(got.Images) != 2 || got.Items[0].Quantity != 1 {
		t.Errorf("unexpected documents: items=%+v images=%v", got.Items, got.Images)
	}

	// A writer that read version 0 must lose.
	log.Version = 1
	if err := UpdateBorrowLog(ctx, database, log, 0); err != ErrVersionConflict {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}
