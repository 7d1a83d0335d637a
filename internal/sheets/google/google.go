// Package google mirrors expenses into a Google Sheet, one row per expense
// keyed by id in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlog/internal/core"
)

// Header is written to row 1 of an empty sheet.
var Header = []any{"ID", "Date", "Title", "Category", "Amount", "Description"}

// valuesAPI is the slice of the Sheets values API the mirror needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, rows [][]any) error
	Clear(ctx context.Context, rng string) error
}

type Client struct {
	values    valuesAPI
	sheetName string

	// serializes read-modify-write of the id column
	mu sync.Mutex
}

// New creates a mirror for sheetName in the given spreadsheet using service
// account credentials from the environment.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc, spreadsheetID: spreadsheetID}, sheetName), nil
}

func newClient(values valuesAPI, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}
	return &Client{values: values, sheetName: sheetName}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		return []byte(raw), nil
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// Upsert writes e to its existing row, or appends a new one.
func (c *Client) Upsert(ctx context.Context, e core.Expense) error {
	if e.ID == "" {
		return errors.New("expense without id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		if err := c.values.Update(ctx, c.rowRange(1), [][]any{Header}); err != nil {
			return fmt.Errorf("write header to %s: %w", c.sheetName, err)
		}
		ids = []string{"ID"}
	}

	row := len(ids) + 1
	if idx := indexOf(ids, e.ID); idx > 0 {
		row = idx + 1
	}
	if err := c.values.Update(ctx, c.rowRange(row), [][]any{Row(e)}); err != nil {
		return fmt.Errorf("write row %d in %s: %w", row, c.sheetName, err)
	}
	return nil
}

// Delete clears the row holding id. Missing ids are not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(ids, id)
	if idx <= 0 {
		slog.DebugContext(ctx, "Expense not present in sheet", "id", id, "sheet", c.sheetName)
		return nil
	}
	if err := c.values.Clear(ctx, c.rowRange(idx+1)); err != nil {
		return fmt.Errorf("clear row %d in %s: %w", idx+1, c.sheetName, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rows, err := c.values.Get(ctx, fmt.Sprintf("%s!A:A", c.sheetName))
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", c.sheetName, err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = strings.TrimSpace(firstCell(r))
	}
	return ids, nil
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:F%d", c.sheetName, row, row)
}

// Row is the sheet row for e, in Header order.
func Row(e core.Expense) []any {
	return []any{
		e.ID,
		e.ExpenseDate.String(),
		e.Title,
		e.Category.String(),
		e.Amount.Float64(),
		e.Description,
	}
}

func firstCell(row []any) string {
	if len(row) == 0 || row[0] == nil {
		return ""
	}
	return fmt.Sprint(row[0])
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

// serviceValues adapts the generated Sheets client.
type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (s *serviceValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	return err
}
