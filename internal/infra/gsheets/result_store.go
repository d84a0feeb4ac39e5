package gsheets

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mcq-quiz-service/internal/domain"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultRange is where results are appended when none is configured.
const DefaultRange = "Sheet1!A:Z"

// ResultStore appends results to a Google Sheet, one row per participant:
// Timestamp, Name, Phone, Score, Total Questions, Score/Total, Time Spent, Detailed Answers.
type ResultStore struct {
	svc           *sheets.Service
	spreadsheetID string
	rng           string
}

// NewResultStore connects to the Sheets API. Pass option.WithCredentialsJSON for a
// service account.
func NewResultStore(ctx context.Context, spreadsheetID, rng string, opts ...option.ClientOption) (*ResultStore, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id not configured")
	}
	if rng == "" {
		rng = DefaultRange
	}
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &ResultStore{svc: svc, spreadsheetID: spreadsheetID, rng: rng}, nil
}

func (s *ResultStore) AppendResult(ctx context.Context, result domain.Result) error {
	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	row := []interface{}{
		result.Timestamp.UTC().Format(time.RFC3339),
		result.Name,
		result.Phone,
		result.Score,
		result.TotalQuestions,
		fmt.Sprintf("%d/%d", result.Score, result.TotalQuestions),
		result.TimeSpent,
		string(details),
	}
	_, err = s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.rng, &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	return nil
}

// ListResults reads every row back. Rows without a parseable timestamp in the first
// column (hand-written headers, notes) are skipped.
func (s *ResultStore) ListResults(ctx context.Context) ([]domain.Result, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	out := make([]domain.Result, 0, len(resp.Values))
	for _, row := range resp.Values {
		r, ok := parseRow(row)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *ResultStore) ClearResults(ctx context.Context) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, s.rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	return nil
}

func parseRow(row []interface{}) (domain.Result, bool) {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		switch v := row[i].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	num := func(i int) int {
		n, _ := strconv.Atoi(cell(i))
		return n
	}

	ts, err := time.Parse(time.RFC3339, cell(0))
	if err != nil {
		return domain.Result{}, false
	}
	r := domain.Result{
		Timestamp:      ts,
		Name:           cell(1),
		Phone:          cell(2),
		Score:          num(3),
		TotalQuestions: num(4),
		TimeSpent:      num(6),
	}
	if raw := cell(7); raw != "" {
		// a damaged details cell still leaves the row rankable
		_ = json.Unmarshal([]byte(raw), &r.Details)
	}
	return r, true
}
