package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"mcq-quiz-service/internal/domain"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Column names of the question spreadsheet export.
const (
	ColumnNumber   = "Question Number"
	ColumnQuestion = "Question"
	ColumnOptionA  = "Option A"
	ColumnOptionB  = "Option B"
	ColumnOptionC  = "Option C"
	ColumnOptionD  = "Option D"
	ColumnCorrect  = "Correct Answer"
)

var requiredColumns = []string{
	ColumnNumber, ColumnQuestion, ColumnOptionA, ColumnOptionB, ColumnOptionC, ColumnOptionD, ColumnCorrect,
}

var (
	// ErrUnsupportedFormat is returned for question files that are neither .csv nor .json.
	ErrUnsupportedFormat = errors.New("unsupported question file format")
	// ErrDuplicateQuestionID is returned when two questions share an id.
	ErrDuplicateQuestionID = errors.New("duplicate question id")
)

// NewQuestionLoader picks a loader from the file extension.
func NewQuestionLoader(path string) (*QuestionLoader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &QuestionLoader{path: path, parse: ParseCSV}, nil
	case ".json":
		return &QuestionLoader{path: path, parse: ParseJSON}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// QuestionLoader reads the question bank from a file on every call; wrap it in a
// caching repository.
type QuestionLoader struct {
	path  string
	parse func(io.Reader) ([]domain.Question, error)
}

func (l *QuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open questions: %w", err)
	}
	defer f.Close()

	questions, err := l.parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}
	return questions, nil
}

// ParseCSV reads questions by header name. Rows whose question number is not an
// integer (a translated header line, notes) or that have no question text are skipped.
func ParseCSV(r io.Reader) ([]domain.Question, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	field := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var questions []domain.Question
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := strconv.Atoi(strings.TrimSpace(field(row, ColumnNumber)))
		if err != nil {
			continue
		}
		prompt := field(row, ColumnQuestion)
		if prompt == "" {
			continue
		}
		questions = append(questions, domain.Question{
			ID:     id,
			Prompt: prompt,
			Options: domain.Options{
				A: field(row, ColumnOptionA),
				B: field(row, ColumnOptionB),
				C: field(row, ColumnOptionC),
				D: field(row, ColumnOptionD),
			},
			CorrectAnswer: field(row, ColumnCorrect),
		})
	}
	if err := uniqueIDs(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// uniqueIDs rejects a bank in which an id appears twice; ids key the issued order.
func uniqueIDs(questions []domain.Question) error {
	seen := make(map[int]bool, len(questions))
	for _, q := range questions {
		if seen[q.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateQuestionID, q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

const questionSchemaURL = "schema://questions.json"

const questionSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "question", "options", "correctAnswer"],
    "properties": {
      "id": {"type": "integer"},
      "question": {"type": "string", "minLength": 1},
      "options": {
        "type": "object",
        "required": ["A", "B", "C", "D"],
        "properties": {
          "A": {"type": "string"},
          "B": {"type": "string"},
          "C": {"type": "string"},
          "D": {"type": "string"}
        }
      },
      "correctAnswer": {"type": "string"}
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(questionSchema))
		if err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(questionSchemaURL, doc); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = c.Compile(questionSchemaURL)
	})
	return compiledSchema, compileErr
}

// ParseJSON reads a JSON array of questions, as written by WriteJSON, and rejects
// documents that do not have the question shape.
func ParseJSON(r io.Reader) ([]domain.Question, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	if err := uniqueIDs(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// WriteJSON writes questions as an indented JSON array.
func WriteJSON(w io.Writer, questions []domain.Question) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(questions)
}
