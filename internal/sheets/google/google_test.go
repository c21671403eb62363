package google

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ports "waterbot/internal/sheets"

	gsheet "google.golang.org/api/sheets/v4"
)

type fakeAppender struct {
	spreadsheetID string
	rng           string
	values        [][]any
	resp          *gsheet.AppendValuesResponse
	err           error
}

func (f *fakeAppender) Append(_ context.Context, spreadsheetID, rng string, vr *gsheet.ValueRange) (*gsheet.AppendValuesResponse, error) {
	f.spreadsheetID = spreadsheetID
	f.rng = rng
	f.values = vr.Values
	return f.resp, f.err
}

func testRow() ports.HistoryRow {
	moscow := time.FixedZone("MSK", 3*60*60)
	return ports.HistoryRow{
		MessageID:  "m-1",
		RecordedAt: time.Date(2025, 4, 1, 10, 15, 0, 0, moscow),
		Day:        "2025-04-01",
		UserID:     "42",
		Kind:       "entry_undone",
		AmountML:   -250,
		EntryID:    7,
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{SheetName: "Intake"})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-id", CredentialsFile: "/non/existent/file.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_AppendRow(t *testing.T) {
	fake := &fakeAppender{resp: &gsheet.AppendValuesResponse{
		Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "Intake!A5:H5"},
	}}
	c := &Client{values: fake, spreadsheetID: "sheet-id", sheetName: "Intake"}

	ref, err := c.AppendRow(context.Background(), testRow())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Intake!A5:H5" {
		t.Errorf("ref = %q, want Intake!A5:H5", ref)
	}
	if fake.spreadsheetID != "sheet-id" || fake.rng != "Intake!A:H" {
		t.Errorf("unexpected target %s %s", fake.spreadsheetID, fake.rng)
	}

	want := []any{"2025-04-01 10:15:00", "2025-04-01", "42", "entry_undone", -250, "", int64(7), "m-1"}
	if len(fake.values) != 1 || len(fake.values[0]) != len(want) {
		t.Fatalf("unexpected values %v", fake.values)
	}
	for i, v := range want {
		if fake.values[0][i] != v {
			t.Errorf("column %d = %#v, want %#v", i, fake.values[0][i], v)
		}
	}
	if len(Header) != len(want) {
		t.Errorf("header has %d columns, row has %d", len(Header), len(want))
	}
}

func TestClient_AppendRowFallsBackToRange(t *testing.T) {
	c := &Client{values: &fakeAppender{}, spreadsheetID: "sheet-id", sheetName: "Intake"}
	ref, err := c.AppendRow(context.Background(), testRow())
	if err != nil || ref != "Intake!A:H" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}
}

func TestClient_AppendRowErrors(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-id", sheetName: "Intake"}
	if _, err := c.AppendRow(context.Background(), ports.HistoryRow{}); !errors.Is(err, ports.ErrInvalidRow) {
		t.Errorf("expected ErrInvalidRow, got %v", err)
	}
	if _, err := c.AppendRow(context.Background(), testRow()); err == nil {
		t.Error("expected error without a sheets service")
	}

	c.values = &fakeAppender{err: errors.New("quota exceeded")}
	_, err := c.AppendRow(context.Background(), testRow())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected wrapped API error, got %v", err)
	}
}

func TestSheetRange(t *testing.T) {
	tests := []struct {
		sheet string
		want  string
	}{
		{sheet: "Intake", want: "Intake!A:H"},
		{sheet: "Water Log", want: "'Water Log'!A:H"},
		{sheet: "Bob's", want: "'Bob''s'!A:H"},
	}
	for _, tt := range tests {
		if got := sheetRange(tt.sheet, "A:H"); got != tt.want {
			t.Errorf("sheetRange(%q) = %q, want %q", tt.sheet, got, tt.want)
		}
	}
}
