// Package export renders stored results as the detailed admin report.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet used by WriteXLSX.
const SheetName = "Results"

var baseHeaders = []string{"S.No", "Name", "Phone", "Score", "Total Questions", "Percentage", "Timestamp"}

var questionHeaders = []string{"Question", "UserAnswer", "CorrectAnswer", "Status", "OptionA", "OptionB", "OptionC", "OptionD"}

// Table lays results out one row per participant, in the given order, with one block of
// columns per question position. The first row is the header.
func Table(results []domain.Result) [][]string {
	maxQuestions := 0
	for _, r := range results {
		if r.TotalQuestions > maxQuestions {
			maxQuestions = r.TotalQuestions
		}
		if len(r.Details) > maxQuestions {
			maxQuestions = len(r.Details)
		}
	}

	header := append([]string{}, baseHeaders...)
	for i := 1; i <= maxQuestions; i++ {
		for _, h := range questionHeaders {
			header = append(header, fmt.Sprintf("Q%d_%s", i, h))
		}
	}

	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, header)
	for n, r := range results {
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.Itoa(n+1),
			r.Name,
			r.Phone,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.TotalQuestions),
			fmt.Sprintf("%d%%", app.Percentage(r.Score, r.TotalQuestions)),
			r.Timestamp.Format(time.RFC3339),
		)
		for i := 0; i < maxQuestions; i++ {
			if i >= len(r.Details) {
				row = append(row, make([]string, len(questionHeaders))...)
				continue
			}
			d := r.Details[i]
			row = append(row,
				d.QuestionText,
				d.UserAnswerText,
				d.CorrectAnswerText,
				status(d.IsCorrect),
				d.Options.A,
				d.Options.B,
				d.Options.C,
				d.Options.D,
			)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes Table(results) as CSV.
func WriteCSV(w io.Writer, results []domain.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Table(results)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes Table(results) as a single-sheet workbook.
func WriteXLSX(w io.Writer, results []domain.Result) error {
	f, err := Workbook(results)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// Workbook builds the workbook written by WriteXLSX.
func Workbook(results []domain.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}
	for i, row := range Table(results) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("set row %d: %w", i+1, err)
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Filename is the suggested download name for a report generated at t.
func Filename(t time.Time, ext string) string {
	return "quiz-detailed-results-" + t.Format("2006-01-02") + "." + ext
}

func status(correct bool) string {
	if correct {
		return "Correct"
	}
	return "Wrong"
}
