package store

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets reads and writes the customer sheet through the Sheets API using
// service-account credentials.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheets(ctx context.Context, credentialsJSON []byte, spreadsheetID, sheetName string) (*Sheets, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Sheets{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (s *Sheets) Records(ctx context.Context) ([]map[string]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return mapRows(resp.Values), nil
}

func (s *Sheets) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("cell position out of range: row %d col %d", row, col)
	}
	rng := fmt.Sprintf("%s!%s%d", s.sheetName, columnLetter(col), row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update cell %s: %w", rng, err)
	}
	return nil
}

// mapRows turns a raw value grid into header-keyed data rows. Row one is
// the header; short rows pad out as empty cells, like the sheet UI shows
// them.
func mapRows(values [][]interface{}) []map[string]string {
	if len(values) < 2 {
		return nil
	}
	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(h))
	}
	records := make([]map[string]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = fmt.Sprint(row[i])
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// columnLetter converts a 1-based column number to A1 notation (1 -> A,
// 27 -> AA).
func columnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
