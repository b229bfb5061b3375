package borrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/labborrow/internal/apperr"
	"github.com/erazemk/labborrow/internal/model"
)

func TestParseBorrowItems(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"valid", `[{"itemName":"Drill","quantity":3},{"itemName":"hammer","quantity":2}]`, ""},
		{"quantity one", `[{"itemName":"Probe","quantity":1}]`, ""},
		{"not json", `drill x3`, "invalid items payload"},
		{"object not list", `{"itemName":"Drill","quantity":1}`, "invalid items payload"},
		{"fractional quantity", `[{"itemName":"Drill","quantity":1.5}]`, "invalid items payload"},
		{"empty list", `[]`, "at least one item required"},
		{"null", `null`, "at least one item required"},
		{"zero quantity", `[{"itemName":"wrench","quantity":0}]`, "borrow quantity must be at least 1"},
		{"missing quantity", `[{"itemName":"wrench"}]`, "borrow quantity must be at least 1"},
		{"negative after valid", `[{"itemName":"a","quantity":1},{"itemName":"b","quantity":-2}]`, "borrow quantity must be at least 1"},
		{"blank name", `[{"itemName":"  ","quantity":1}]`, "item name is required"},
		{"missing name", `[{"quantity":1}]`, "item name is required"},
		{"duplicate by case and space", `[{"itemName":"Drill","quantity":1},{"itemName":" drill ","quantity":2}]`, "duplicate item names not allowed"},
		// quantity is checked over the whole list before names
		{"quantity before duplicate", `[{"itemName":"a","quantity":1},{"itemName":"A","quantity":0}]`, "borrow quantity must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := parseBorrowItems(tt.raw)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, items)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
			assert.Equal(t, tt.wantErr, apperr.As(err).Message())
		})
	}
}

func TestParseBorrowItemsPreservesCaseAndAssignsIDs(t *testing.T) {
	items, err := parseBorrowItems(`[{"itemName":"Drill","quantity":3},{"itemName":"hammer","quantity":2}]`)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Drill", items[0].ItemName)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "hammer", items[1].ItemName)
	assert.NotEmpty(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestParseBorrowDate(t *testing.T) {
	want := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2025-10-16", "16/10/2025", "16-10-2025", "16/10/25", "16-10-25", "2025-10-16T00:00:00Z", "2025-10-16T02:00:00+02:00"} {
		got, err := parseBorrowDate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), "%s parsed as %v", in, got)
	}

	got, err := parseBorrowDate("6/1/2025")
	require.NoError(t, err)
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 6, got.Day())

	for _, in := range []string{"yesterday", "2025-13-01", "32/01/2025"} {
		_, err := parseBorrowDate(in)
		require.Error(t, err, in)
		assert.Equal(t, "invalid borrowDate", apperr.As(err).Message())
	}
}

func TestParseReturnRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     ReturnRequest
		wantErr string
	}{
		{"missing payload", ReturnRequest{}, "payload is required"},
		{"bad json", ReturnRequest{Payload: `{returnedItems:`}, "invalid payload JSON"},
		{"missing field", ReturnRequest{Payload: `{"remarks":"x"}`}, "returnedItems field is missing"},
		{"null field", ReturnRequest{Payload: `{"returnedItems":null}`}, "returnedItems field is missing"},
		{"empty list", ReturnRequest{Payload: `{"returnedItems":[]}`}, "at least one returned item is required"},
		{"not a list", ReturnRequest{Payload: `{"returnedItems":"drill"}`}, "at least one returned item is required"},
		{"zero quantity", ReturnRequest{Payload: `{"returnedItems":[{"_id":"a","quantity":0}]}`}, "returned quantity must be greater than 0"},
		{"negative quantity", ReturnRequest{Payload: `{"returnedItems":[{"_id":"a","quantity":1},{"_id":"b","quantity":-1}]}`}, "returned quantity must be greater than 0"},
		{"valid", ReturnRequest{Payload: `{"returnedItems":[{"_id":"a","quantity":1}]}`}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseReturnRequest(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, apperr.As(err).Message())
		})
	}
}

func TestParseReturnRequestRemarks(t *testing.T) {
	payload := `{"returnedItems":[{"_id":"a","quantity":1}],"remarks":"from payload"}`

	_, remarks, err := parseReturnRequest(ReturnRequest{Payload: payload, Remarks: "from form"})
	require.NoError(t, err)
	assert.Equal(t, "from form", remarks)

	_, remarks, _ = parseReturnRequest(ReturnRequest{Payload: payload})
	assert.Equal(t, "from payload", remarks)

	_, remarks, _ = parseReturnRequest(ReturnRequest{Payload: `{"returnedItems":[{"_id":"a","quantity":1}]}`})
	assert.Equal(t, "", remarks)
}

func sampleLog() *model.BorrowLog {
	return &model.BorrowLog{
		ID:     "log-1",
		Status: model.StatusBorrowed,
		Items: []model.BorrowItem{
			{ID: "d", ItemName: "drill", Quantity: 3},
			{ID: "h", ItemName: "hammer", Quantity: 2},
		},
		Images: []string{"uploads/1-1.jpg"},
	}
}

func TestApplyReturnPartial(t *testing.T) {
	log := sampleLog()

	updated, units, err := ApplyReturn(log, []ReturnEntry{{ID: "d", Quantity: 1}})
	require.NoError(t, err)

	assert.Equal(t, 1, units)
	assert.Equal(t, model.StatusPartialReturn, updated.Status)
	assert.Equal(t, []model.BorrowItem{
		{ID: "d", ItemName: "drill", Quantity: 2},
		{ID: "h", ItemName: "hammer", Quantity: 2},
	}, updated.Items)

	// Input untouched.
	assert.Equal(t, 3, log.Items[0].Quantity)
	assert.Equal(t, model.StatusBorrowed, log.Status)
}

func TestApplyReturnFullByName(t *testing.T) {
	updated, units, err := ApplyReturn(sampleLog(), []ReturnEntry{
		{ItemName: "DRILL", Quantity: 3},
		{ItemName: " hammer", Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, units)
	assert.Equal(t, model.StatusReturned, updated.Status)
	assert.NotNil(t, updated.Items)
	assert.Empty(t, updated.Items)
}

func TestApplyReturnSequentialEntries(t *testing.T) {
	// Two entries for the same item share its outstanding quantity.
	_, _, err := ApplyReturn(sampleLog(), []ReturnEntry{{ID: "h", Quantity: 2}, {ID: "h", Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, "returned quantity exceeds borrowed quantity", apperr.As(err).Message())

	updated, _, err := ApplyReturn(sampleLog(), []ReturnEntry{{ID: "d", Quantity: 1}, {ID: "d", Quantity: 2}})
	require.NoError(t, err)
	assert.Len(t, updated.Items, 1)
}

func TestApplyReturnRejections(t *testing.T) {
	log := sampleLog()

	_, _, err := ApplyReturn(log, []ReturnEntry{{ID: "d", Quantity: 4}})
	require.Error(t, err)
	assert.Equal(t, "returned quantity exceeds borrowed quantity", apperr.As(err).Message())

	_, _, err = ApplyReturn(log, []ReturnEntry{{ID: "d", Quantity: 1}, {ID: "nope", Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, "item not found: nope", apperr.As(err).Message())

	assert.Equal(t, 3, log.Items[0].Quantity, "rejected call must not modify the log")
}

func TestApplyReturnOnReturnedLog(t *testing.T) {
	returned := &model.BorrowLog{ID: "log-1", Status: model.StatusReturned, Items: []model.BorrowItem{}}

	_, _, err := ApplyReturn(returned, []ReturnEntry{{ItemName: "drill", Quantity: 1}})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
	assert.Equal(t, "item not found: drill", apperr.As(err).Message())
}
