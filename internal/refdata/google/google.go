package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"artis/internal/core"
	ports "artis/internal/refdata"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports submissions to and imports the reference index from a
// Google spreadsheet.
type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	submissionsSheet string
	indexSheet       string
}

// Ensure interface conformance
var (
	_ ports.SubmissionWriter = (*Client)(nil)
	_ ports.IndexSource      = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional sheet names: GOOGLE_SUBMISSIONS_SHEET_NAME (default "Submissions"),
// GOOGLE_INDEX_SHEET_NAME (default "Endeks").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	submissions := strings.TrimSpace(os.Getenv("GOOGLE_SUBMISSIONS_SHEET_NAME"))
	if submissions == "" {
		submissions = "Submissions"
	}
	index := strings.TrimSpace(os.Getenv("GOOGLE_INDEX_SHEET_NAME"))
	if index == "" {
		index = "Endeks"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		submissionsSheet: submissions,
		indexSheet:       index,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Append implements refdata.SubmissionWriter. Each submission becomes one
// row on the submissions sheet: timestamp, total, trend, then the per-section
// periods and changes in configuration order.
func (c *Client) Append(ctx context.Context, sub core.Submission) (string, error) {
	row := []interface{}{
		sub.CreatedAt.Format(time.RFC3339),
		formatFloat(sub.Total.Total),
		string(sub.Total.Trend),
	}
	for _, r := range sub.Results {
		if !r.Valid {
			row = append(row, r.Section.Key, "", "", "", "")
			continue
		}
		row = append(row,
			r.Section.Key,
			r.First.Period(),
			r.Second.Period(),
			formatFloat(r.PercentChange),
			formatFloat(r.WeightedChange),
		)
	}

	rangeRef := c.submissionsSheet + "!A:Z"
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rangeRef, &gsheet.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append submission row: %w", err)
	}

	ref := rangeRef
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Submission exported to Google Sheets",
		"submission_id", sub.ID,
		"range", ref)
	return ref, nil
}

// ReadIndexValues implements refdata.IndexSource. Rows with a malformed
// period key or value are skipped with a warning rather than failing the
// whole import.
func (c *Client) ReadIndexValues(ctx context.Context) (map[string]float64, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.indexSheet+"!A2:B").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read index sheet: %w", err)
	}

	values := make(map[string]float64, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(row[0]))
		if _, _, err := ports.ParsePeriodKey(key); err != nil {
			slog.WarnContext(ctx, "Skipping index row with malformed period", "row", i+2, "key", key)
			continue
		}
		v, ok := core.ParseValue(fmt.Sprint(row[1]))
		if !ok {
			slog.WarnContext(ctx, "Skipping index row with malformed value", "row", i+2, "key", key)
			continue
		}
		values[key] = v
	}

	slog.InfoContext(ctx, "Reference index read from Google Sheets",
		"sheet", c.indexSheet,
		"periods", len(values))
	return values, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
