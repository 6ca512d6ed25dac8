/*
sheets.go - Google Sheets as a reconcile.SheetStore

PURPOSE:
  Reads and writes A1 ranges on one tab of the tracking spreadsheet, appends
  rows and removes row ranges.

NOTES:
  Values are written RAW. DeleteRowRange takes 0-based, end-exclusive indexes
  and needs the numeric sheet id, not the tab title.

SEE ALSO:
  - auth.go: Credentials and error mapping
  - reconcile/projector.go: The only caller that mutates the sheet
*/
package gworkspace

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/warp/leave-sync/reconcile"
)

const valueInputRaw = "RAW"

// SheetsConfig selects the spreadsheet and tab.
type SheetsConfig struct {
	SpreadsheetID string
	// SheetID is the numeric tab id (gid) used for row deletion.
	SheetID int64
	// SheetTitle, when set, prefixes every A1 range ("Leave!A:M").
	SheetTitle string
}

// Sheets implements reconcile.SheetStore on Google Sheets.
type Sheets struct {
	svc    *sheets.Service
	cfg    SheetsConfig
	logger *zap.Logger
}

func NewSheets(ctx context.Context, cfg SheetsConfig, logger *zap.Logger, opts ...option.ClientOption) (*Sheets, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Sheets{svc: svc, cfg: cfg, logger: logger.Named("gworkspace.sheets")}, nil
}

func (s *Sheets) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	res, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.qualify(rng)).Context(ctx).Do()
	if err != nil {
		return nil, storeError(err)
	}
	out := make([][]string, len(res.Values))
	for i, row := range res.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out, nil
}

func (s *Sheets) UpdateRange(ctx context.Context, rng string, rows [][]string) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, s.qualify(rng), s.valueRange(rng, rows)).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	return storeError(err)
}

func (s *Sheets) BatchUpdate(ctx context.Context, updates []reconcile.RangeUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: valueInputRaw}
	for _, u := range updates {
		req.Data = append(req.Data, s.valueRange(u.Range, u.Rows))
	}
	_, err := s.svc.Spreadsheets.Values.BatchUpdate(s.cfg.SpreadsheetID, req).Context(ctx).Do()
	return storeError(err)
}

func (s *Sheets) AppendRows(ctx context.Context, rng string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.qualify(rng), s.valueRange(rng, rows)).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return storeError(err)
}

func (s *Sheets) DeleteRowRange(ctx context.Context, startIndex, endIndex int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    s.cfg.SheetID,
					Dimension:  "ROWS",
					StartIndex: int64(startIndex),
					EndIndex:   int64(endIndex),
					// Zero is a meaningful tab id and a meaningful start row.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID, req).Context(ctx).Do()
	if err == nil {
		s.logger.Debug("deleted sheet rows", zap.Int("start", startIndex), zap.Int("end", endIndex))
	}
	return storeError(err)
}

func (s *Sheets) valueRange(rng string, rows [][]string) *sheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		values[i] = cells
	}
	return &sheets.ValueRange{Range: s.qualify(rng), MajorDimension: "ROWS", Values: values}
}

func (s *Sheets) qualify(rng string) string {
	if s.cfg.SheetTitle == "" {
		return rng
	}
	return "'" + s.cfg.SheetTitle + "'!" + rng
}

var _ reconcile.SheetStore = (*Sheets)(nil)
