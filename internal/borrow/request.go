package borrow

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/labborrow/internal/apperr"
	"github.com/erazemk/labborrow/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New()

// BorrowRequest is a borrow submission as received from the form.
// Items is the raw JSON list of {itemName, quantity}.
type BorrowRequest struct {
	UserID       string
	LabID        string `validate:"required"`
	StudentID    string `validate:"required"`
	StudentName  string `validate:"required"`
	Course       string `validate:"required"`
	StudentEmail string `validate:"required"`
	BorrowDate   string `validate:"required"`
	Items        string `validate:"required"`
}

func (r *BorrowRequest) trim() {
	for _, f := range []*string{&r.UserID, &r.LabID, &r.StudentID, &r.StudentName,
		&r.Course, &r.StudentEmail, &r.BorrowDate, &r.Items} {
		*f = strings.TrimSpace(*f)
	}
}

// ReturnRequest is a return submission. Payload is the raw JSON
// {returnedItems, remarks?}; a non-empty Remarks form value overrides
// payload.remarks.
type ReturnRequest struct {
	UserID  string
	Payload string
	Remarks string
}

// ReturnEntry asks to return Quantity units of the item identified by ID,
// or by ItemName when ID is empty.
type ReturnEntry struct {
	ID       string `json:"_id"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

// Ref is the reference used to resolve the entry against a log's items.
func (e ReturnEntry) Ref() string {
	if id := strings.TrimSpace(e.ID); id != "" {
		return id
	}
	return strings.TrimSpace(e.ItemName)
}

type borrowItemInput struct {
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

// parseBorrowItems decodes and checks the items of a borrow submission,
// assigning each a fresh ID.
func parseBorrowItems(raw string) ([]model.BorrowItem, error) {
	var inputs []borrowItemInput
	if err := json.UnmarshalFromString(raw, &inputs); err != nil {
		return nil, apperr.Validation("invalid items payload")
	}
	if len(inputs) == 0 {
		return nil, apperr.Validation("at least one item required")
	}
	for _, in := range inputs {
		if in.Quantity < 1 {
			return nil, apperr.Validation("borrow quantity must be at least 1")
		}
	}

	seen := make(map[string]bool, len(inputs))
	items := make([]model.BorrowItem, 0, len(inputs))
	for _, in := range inputs {
		key := model.NormalizeItemName(in.ItemName)
		if key == "" {
			return nil, apperr.Validation("item name is required")
		}
		if seen[key] {
			return nil, apperr.Validation("duplicate item names not allowed")
		}
		seen[key] = true
		items = append(items, model.BorrowItem{
			ID:       uuid.NewString(),
			ItemName: strings.TrimSpace(in.ItemName),
			Quantity: in.Quantity,
		})
	}
	return items, nil
}

// Accepted borrowDate layouts, tried in order. Day-first forms are what
// the lab kiosk sends.
var borrowDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2/1/2006",
	"2-1-2006",
	"2/1/06",
	"2-1-06",
}

// parseBorrowDate parses s in one of borrowDateLayouts. Values without a
// zone are taken as UTC.
func parseBorrowDate(s string) (time.Time, error) {
	for _, layout := range borrowDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("invalid borrowDate")
}

type returnPayload struct {
	ReturnedItems jsoniter.RawMessage `json:"returnedItems"`
	Remarks       string              `json:"remarks"`
}

// parseReturnRequest decodes the payload and checks everything that does
// not need the stored log. It returns the entries and the remarks to store.
func parseReturnRequest(req ReturnRequest) ([]ReturnEntry, string, error) {
	raw := strings.TrimSpace(req.Payload)
	if raw == "" {
		return nil, "", apperr.Validation("payload is required")
	}

	var payload returnPayload
	if err := json.UnmarshalFromString(raw, &payload); err != nil {
		return nil, "", apperr.Validation("invalid payload JSON")
	}

	list := strings.TrimSpace(string(payload.ReturnedItems))
	if list == "" || list == "null" {
		return nil, "", apperr.Validation("returnedItems field is missing")
	}

	var rawEntries []jsoniter.RawMessage
	if err := json.UnmarshalFromString(list, &rawEntries); err != nil || len(rawEntries) == 0 {
		return nil, "", apperr.Validation("at least one returned item is required")
	}

	entries := make([]ReturnEntry, 0, len(rawEntries))
	for _, re := range rawEntries {
		var e ReturnEntry
		if err := json.Unmarshal(re, &e); err != nil {
			return nil, "", apperr.Validation("invalid payload JSON")
		}
		entries = append(entries, e)
	}
	for _, e := range entries {
		if e.Quantity <= 0 {
			return nil, "", apperr.Validation("returned quantity must be greater than 0")
		}
	}

	remarks := payload.Remarks
	if req.Remarks != "" {
		remarks = req.Remarks
	}
	return entries, remarks, nil
}

// ApplyReturn applies entries in order to a copy of log and returns it with
// fully returned items dropped and the status recomputed. units is the total
// quantity returned. log itself is not modified.
func ApplyReturn(log *model.BorrowLog, entries []ReturnEntry) (updated *model.BorrowLog, units int, err error) {
	working := *log
	working.Items = append([]model.BorrowItem(nil), log.Items...)
	working.Images = append([]string{}, log.Images...)

	for _, e := range entries {
		ref := e.Ref()
		idx := working.FindItem(ref)
		if idx < 0 {
			return nil, 0, apperr.Validationf("item not found: %s", ref)
		}
		if e.Quantity > working.Items[idx].Quantity {
			return nil, 0, apperr.Validation("returned quantity exceeds borrowed quantity")
		}
		working.Items[idx].Quantity -= e.Quantity
		units += e.Quantity
	}

	remaining := make([]model.BorrowItem, 0, len(working.Items))
	for _, item := range working.Items {
		if item.Quantity > 0 {
			remaining = append(remaining, item)
		}
	}
	working.Items = remaining
	working.Status = model.DeriveStatus(working.Items, true)

	return &working, units, nil
}
