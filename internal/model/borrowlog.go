package model

import (
	"strings"
	"time"
)

// BorrowStatus is derived from a log's outstanding items, never set by clients.
type BorrowStatus string

// Borrow statuses.
const (
	StatusBorrowed      BorrowStatus = "BORROWED"
	StatusPartialReturn BorrowStatus = "PARTIAL_RETURN"
	StatusReturned      BorrowStatus = "RETURNED"
)

// IsValid reports whether s is one of the known statuses.
func (s BorrowStatus) IsValid() bool {
	switch s {
	case StatusBorrowed, StatusPartialReturn, StatusReturned:
		return true
	}
	return false
}

// BorrowItem is one line of a borrow log. Quantity is what is still outstanding.
type BorrowItem struct {
	ID       string `json:"_id"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

// BorrowLog is one borrowing transaction by a student against a lab's inventory.
type BorrowLog struct {
	ID           string       `json:"_id"`
	UserID       string       `json:"userId,omitempty"`
	LabID        string       `json:"labId"`
	StudentID    string       `json:"studentId"`
	StudentName  string       `json:"studentName"`
	Course       string       `json:"course"`
	StudentEmail string       `json:"studentEmail"`
	BorrowDate   time.Time    `json:"borrowDate"`
	ReturnDate   *time.Time   `json:"returnDate"`
	Status       BorrowStatus `json:"status"`
	Items        []BorrowItem `json:"items"`
	Images       []string     `json:"images"`
	Remarks      string       `json:"remarks"`
	Version      int64        `json:"__v"`
	CreatedAt    time.Time    `json:"createdAt"`

	// Joined fields (not always populated).
	LabName string `json:"labName,omitempty"`
}

// BorrowSummary is the staff-facing projection of an active borrow log.
type BorrowSummary struct {
	LogID        string       `json:"logId"`
	StudentID    string       `json:"studentId"`
	StudentName  string       `json:"studentName"`
	StudentEmail string       `json:"studentEmail"`
	Course       string       `json:"course"`
	LabName      string       `json:"labName"`
	BorrowDate   time.Time    `json:"borrowDate"`
	Status       BorrowStatus `json:"status"`
	Items        []BorrowItem `json:"items"`
	Images       []string     `json:"images"`
}

// Summary projects the log for the active-borrows listing.
func (b *BorrowLog) Summary() BorrowSummary {
	items := b.Items
	if items == nil {
		items = []BorrowItem{}
	}
	images := b.Images
	if images == nil {
		images = []string{}
	}
	return BorrowSummary{
		LogID:        b.ID,
		StudentID:    b.StudentID,
		StudentName:  b.StudentName,
		StudentEmail: b.StudentEmail,
		Course:       b.Course,
		LabName:      b.LabName,
		BorrowDate:   b.BorrowDate,
		Status:       b.Status,
		Items:        items,
		Images:       images,
	}
}

// FindItem resolves ref against the outstanding items, first by item ID and
// then by case-insensitive name. It returns -1 when nothing matches.
func (b *BorrowLog) FindItem(ref string) int {
	for i, item := range b.Items {
		if item.ID == ref {
			return i
		}
	}
	key := NormalizeItemName(ref)
	if key == "" {
		return -1
	}
	for i, item := range b.Items {
		if NormalizeItemName(item.ItemName) == key {
			return i
		}
	}
	return -1
}

// DeriveStatus computes the status for the given outstanding items.
// returned reports whether at least one return has been recorded.
func DeriveStatus(items []BorrowItem, returned bool) BorrowStatus {
	if len(items) == 0 {
		return StatusReturned
	}
	if returned {
		return StatusPartialReturn
	}
	return StatusBorrowed
}

// NormalizeItemName is the key used for item name uniqueness.
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
