// Package sheets reads and writes the ledger collections stored in a Google
// spreadsheet. Each collection is one tab whose first row holds the field
// names; every following non-empty row is a record.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/source"
)

type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	// Tabs overrides the tab name of a collection. Defaults to the
	// collection name.
	Tabs map[string]string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          map[string]string
	logger        *applog.Logger
}

// Ensure interface conformance
var _ source.Store = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.Tabs, logger), nil
}

// NewWithService wraps an existing service, used by tests that point the
// API at a local server.
func NewWithService(svc *gsheet.Service, spreadsheetID string, tabs map[string]string, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	names := make(map[string]string, len(core.Collections))
	for _, c := range core.Collections {
		names[c] = c
		if t := strings.TrimSpace(tabs[c]); t != "" {
			names[c] = t
		}
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		tabs:          names,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over the file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case credsJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentials = []byte(credsJSON)
	case credsFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", credsFile)
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created")
	return svc, nil
}

func (c *Client) tab(collection string) (string, error) {
	if err := source.ValidateCollection(collection); err != nil {
		return "", err
	}
	return c.tabs[collection], nil
}

// SelectAll implements source.RecordSource
func (c *Client) SelectAll(ctx context.Context, collection string) ([]source.Record, error) {
	tab, err := c.tab(collection)
	if err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, source.Unavailable(collection, err)
	}
	return parseRows(resp.Values), nil
}

// Insert implements source.RecordWriter. Values are written under the
// matching header columns; fields without a column are dropped.
func (c *Client) Insert(ctx context.Context, collection string, r source.Record) (string, error) {
	tab, err := c.tab(collection)
	if err != nil {
		return "", err
	}
	header, err := c.header(ctx, tab)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	if indexOf(header, "id") == -1 {
		return "", fmt.Errorf("insert %s: tab %q has no id column", collection, tab)
	}

	rec := r.Clone()
	id := strings.TrimSpace(fmt.Sprint(rec["id"]))
	if rec["id"] == nil || id == "" {
		id = uuid.NewString()
	}
	rec["id"] = id

	vr := &gsheet.ValueRange{Values: [][]any{rowFor(header, rec)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, tab, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", tab, err)
	}

	c.logger.InfoContext(ctx, "Record appended to sheet",
		applog.FieldCollection, collection,
		applog.FieldRecordID, id)
	return id, nil
}

// Delete implements source.RecordWriter by removing the row whose id column
// matches.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	tab, err := c.tab(collection)
	if err != nil {
		return err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", tab, err)
	}
	row := findRow(resp.Values, id)
	if row < 0 {
		return fmt.Errorf("delete %s %s: %w", collection, id, core.ErrNotFound)
	}

	sheetID, err := c.sheetID(ctx, tab)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row),
			EndIndex:   int64(row + 1),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row+1, tab, err)
	}

	c.logger.InfoContext(ctx, "Record deleted from sheet",
		applog.FieldCollection, collection,
		applog.FieldRecordID, id)
	return nil
}

func (c *Client) header(ctx context.Context, tab string) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", tab, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("tab %q has no header row", tab)
	}
	return toStrings(resp.Values[0]), nil
}

func (c *Client) sheetID(ctx context.Context, tab string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("tab %q not found", tab)
}
