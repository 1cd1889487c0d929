// Package google implements the sheets ports over the Google Sheets
// API using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "github.com/icesco/PersonalFinance-sub002/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var (
	_ ports.RowWriter  = (*Client)(nil)
	_ ports.RowDeleter = (*Client)(nil)
)

// NewClient creates a Sheets client for one spreadsheet. sheetName is
// the base tab name; the current year is prefixed so each year gets
// its own tab ("2026 Movimenti").
func NewClient(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Movimenti"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     yearPrefixedName(sheetName, time.Now().Year()),
	}, nil
}

// newSheetsService reads service-account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inlineJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inlineJSON == "" && credFile == "" {
		credFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(inlineJSON)
	case credFile != "":
		data, err := os.ReadFile(credFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", credFile)
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Upsert writes the row at the position holding its ID, or appends a
// new row when the ID is not present yet.
func (c *Client) Upsert(ctx context.Context, row ports.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rowNum, err := c.findRowByID(ctx, row.ID)
	if err != nil {
		return "", err
	}
	if rowNum == 0 {
		ids, err := c.readIDColumn(ctx)
		if err != nil {
			return "", err
		}
		rowNum = len(ids) + 1
	}

	rng := fmt.Sprintf("%s!A%d:H%d", c.sheetName, rowNum, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write row %s: %w", rng, err)
	}
	return rng, nil
}

// Delete clears the row holding the ID. A missing ID is not an error:
// the row may never have been exported.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rowNum, err := c.findRowByID(ctx, id)
	if err != nil {
		return err
	}
	if rowNum == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:H%d", c.sheetName, rowNum, rowNum)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %s: %w", rng, err)
	}
	return nil
}

func (c *Client) findRowByID(ctx context.Context, id string) (int, error) {
	ids, err := c.readIDColumn(ctx)
	if err != nil {
		return 0, err
	}
	for i, v := range ids {
		if strings.TrimSpace(v) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) readIDColumn(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			out = append(out, "")
			continue
		}
		s, _ := row[0].(string)
		out = append(out, s)
	}
	return out, nil
}

func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	prefix := fmt.Sprintf("%d ", year)
	if strings.HasPrefix(base, prefix) {
		return base
	}
	return prefix + base
}
