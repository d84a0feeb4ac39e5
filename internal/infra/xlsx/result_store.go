package xlsx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"

	"github.com/xuri/excelize/v2"
)

const sheet = "Results"

var header = []interface{}{"Timestamp", "Name", "Phone", "Score", "Total Questions", "Time Spent", "Detailed Answers"}

// ResultStore appends results to a local workbook, one row per participant, so the
// organisers can open the file directly in a spreadsheet program.
type ResultStore struct {
	path string
	mu   sync.Mutex
}

func NewResultStore(path string) *ResultStore {
	return &ResultStore{path: path}
}

func (s *ResultStore) AppendResult(_ context.Context, result domain.Result) error {
	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	row := []interface{}{
		result.Timestamp.UTC().Format(time.RFC3339Nano),
		result.Name,
		result.Phone,
		result.Score,
		result.TotalQuestions,
		result.TimeSpent,
		string(details),
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return s.save(f)
}

func (s *ResultStore) ListResults(_ context.Context) ([]domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	out := make([]domain.Result, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		r, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *ResultStore) ClearResults(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()
	if err := initSheet(f); err != nil {
		return err
	}
	return s.save(f)
}

func (s *ResultStore) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	f = excelize.NewFile()
	if err := initSheet(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (s *ResultStore) save(f *excelize.File) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

func initSheet(f *excelize.File) error {
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	return f.SetSheetRow(sheet, "A1", &header)
}

func parseRow(row []string) (domain.Result, error) {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	var (
		r   domain.Result
		err error
	)
	if r.Timestamp, err = time.Parse(time.RFC3339Nano, cell(0)); err != nil {
		return r, fmt.Errorf("timestamp: %w", err)
	}
	r.Name = cell(1)
	r.Phone = cell(2)
	if r.Score, err = atoi(cell(3)); err != nil {
		return r, fmt.Errorf("score: %w", err)
	}
	if r.TotalQuestions, err = atoi(cell(4)); err != nil {
		return r, fmt.Errorf("total questions: %w", err)
	}
	if r.TimeSpent, err = atoi(cell(5)); err != nil {
		return r, fmt.Errorf("time spent: %w", err)
	}
	if raw := cell(6); raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Details); err != nil {
			return r, fmt.Errorf("details: %w", err)
		}
	}
	return r, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
