package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ports "waterbot/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header is the column layout written by AppendRow.
var Header = []any{"recorded_at", "day", "user_id", "kind", "amount_ml", "goal_ml", "entry_id", "message_id"}

// valuesAppender is the single Sheets call the client makes.
type valuesAppender interface {
	Append(ctx context.Context, spreadsheetID, rng string, vr *gsheet.ValueRange) (*gsheet.AppendValuesResponse, error)
}

type serviceAppender struct {
	svc *gsheet.Service
}

func (a serviceAppender) Append(ctx context.Context, spreadsheetID, rng string, vr *gsheet.ValueRange) (*gsheet.AppendValuesResponse, error) {
	return a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
}

type Client struct {
	values        valuesAppender
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.HistoryWriter = (*Client)(nil)

// Options select the spreadsheet and the service account credentials.
// CredentialsJSON takes precedence over CredentialsFile.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Intake"
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		values:        serviceAppender{svc: svc},
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	credentialsFile = strings.TrimSpace(credentialsFile)

	var creds []byte
	switch {
	case credentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// AppendRow appends one history row below the sheet's existing data and
// returns the A1 range Google reports as updated.
func (c *Client) AppendRow(ctx context.Context, row ports.HistoryRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := sheetRange(c.sheetName, "A:H")
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(row)}}

	resp, err := c.values.Append(ctx, c.spreadsheetID, rng, vr)
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func rowValues(row ports.HistoryRow) []any {
	var goal, entry any = "", ""
	if row.GoalML > 0 {
		goal = row.GoalML
	}
	if row.EntryID > 0 {
		entry = row.EntryID
	}
	return []any{
		row.RecordedAt.Format("2006-01-02 15:04:05"),
		row.Day,
		row.UserID,
		row.Kind,
		row.AmountML,
		goal,
		entry,
		row.MessageID,
	}
}

// sheetRange builds an A1 range, quoting sheet names that need it.
func sheetRange(sheet, cells string) string {
	if strings.ContainsAny(sheet, " '!") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}
