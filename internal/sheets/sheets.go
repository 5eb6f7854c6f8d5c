// Package sheets appends report rows to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"github.com/kylejryan/field-report-bot/internal/models"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// DefaultRange targets columns A to J of the first sheet.
const DefaultRange = "A:J"

// Store is a report.RecordStore backed by one spreadsheet.
type Store struct {
	svc           *gsheets.Service
	spreadsheetID string
	rng           string
}

// New opens the Sheets API. opts carries credentials or, in tests, an endpoint.
func New(ctx context.Context, spreadsheetID, rng string, opts ...option.ClientOption) (*Store, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	if rng == "" {
		rng = DefaultRange
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Store{svc: svc, spreadsheetID: spreadsheetID, rng: rng}, nil
}

// Scope is the OAuth scope the store needs.
const Scope = gsheets.SpreadsheetsScope

// AppendRow writes r as one new row. Values are stored as entered so an
// answer starting with "=" is never evaluated.
func (s *Store) AppendRow(ctx context.Context, r models.Report) error {
	row := r.Row()
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	vr := &gsheets.ValueRange{MajorDimension: "ROWS", Values: [][]interface{}{cells}}

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append to %s: %w", s.spreadsheetID, err)
	}
	return nil
}
