package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "thongke/internal/sheets"
	"thongke/internal/report"
)

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// Options configures the Sheets report sink.
type Options struct {
	SpreadsheetID string
	// Service account credentials, inline JSON preferred over a file path.
	CredentialsJSON string
	CredentialsFile string
}

// Client writes exported report tables into tabs of one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// WriteReport writes t into a tab named after the export, creating the
// tab when missing and overwriting it otherwise.
func (c *Client) WriteReport(ctx context.Context, name string, t report.Table) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := sheetTitle(name)

	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	values := toValues(t)
	rng := tableRange(title, len(values))
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Report written to Google Sheets", "range", rng, "rows", len(values))
	return rng, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	return nil
}

// sheetTitle strips the file extension from an export name.
func sheetTitle(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".csv")
	if name == "" {
		return "Bao_cao_thong_ke"
	}
	return name
}

func tableRange(title string, rows int) string {
	if rows < 1 {
		rows = 1
	}
	return fmt.Sprintf("'%s'!A1:D%d", strings.ReplaceAll(title, "'", "''"), rows)
}

// toValues converts the table to sheet cells, keeping counts numeric.
func toValues(t report.Table) [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(report.Header))
	for i, h := range report.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range t.Rows {
		out = append(out, []any{r.Label, r.Count, r.Detail, r.Total})
	}
	return out
}
