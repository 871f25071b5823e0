// Package sheets appends extracted movement records to a Google
// spreadsheet and exposes the sheet-owned identity set for deduplication.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/kashbor/bankmail-to-sheets/model"
)

// Header names the seven columns of the sink contract, in row order. The
// stable id lives in the last column (G); LoadIdentitySet reads it back.
var Header = []string{
	"processed_timestamp",
	"from",
	"subject",
	"amount",
	"movement_type",
	"currency",
	"stable_id",
}

// Options configures the spreadsheet sink.
type Options struct {
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
}

// Client wraps the Sheets API for one spreadsheet tab.
type Client struct {
	svc    *sheetsapi.Service
	opts   Options
	logger *slog.Logger
}

func NewClient(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is empty")
	}
	if opts.SheetName == "" {
		return nil, fmt.Errorf("sheet name is empty")
	}

	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(opts.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, opts: opts, logger: logger}, nil
}

// EnsureHeader writes the header row if the first row is empty, so data
// rows never land on a headerless sheet.
func (c *Client) EnsureHeader(ctx context.Context) error {
	headerRange := fmt.Sprintf("%s!A1:G1", c.opts.SheetName)

	resp, err := c.svc.Spreadsheets.Values.Get(c.opts.SpreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}

	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	row := make([]interface{}, len(Header))
	for i, h := range Header {
		row[i] = h
	}

	_, err = c.svc.Spreadsheets.Values.
		Update(c.opts.SpreadsheetID, fmt.Sprintf("%s!A1", c.opts.SheetName), &sheetsapi.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("header row created", "sheet", c.opts.SheetName)
	}
	return nil
}

// LoadIdentitySet reads the stable-id column below the header. The sheet
// owns this set; the pipeline only queries it.
func (c *Client) LoadIdentitySet(ctx context.Context) ([]string, error) {
	idRange := fmt.Sprintf("%s!G2:G", c.opts.SheetName)

	resp, err := c.svc.Spreadsheets.Values.Get(c.opts.SpreadsheetID, idRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read identity column: %w", err)
	}

	ids := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Append adds the records as new rows after the existing data, never
// overwriting.
func (c *Client) Append(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		values = append(values, rowFor(rec))
	}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.opts.SpreadsheetID, fmt.Sprintf("%s!A1", c.opts.SheetName), &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d rows: %w", len(records), err)
	}

	if c.logger != nil {
		c.logger.Debug("rows appended", "sheet", c.opts.SheetName, "rows", len(records))
	}
	return nil
}

func rowFor(rec model.Record) []interface{} {
	// Leading apostrophe keeps the timestamp a literal string in the sheet.
	return []interface{}{
		"'" + rec.ProcessedAt.Format("2006-01-02 15:04:05"),
		rec.From,
		rec.Subject,
		rec.Amount,
		rec.Movement,
		rec.Currency,
		rec.StableID,
	}
}
