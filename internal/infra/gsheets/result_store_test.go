package gsheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mcq-quiz-service/internal/domain"

	"google.golang.org/api/option"
)

// fakeSheets implements the three value endpoints the store uses.
type fakeSheets struct {
	mu        sync.Mutex
	rows      [][]interface{}
	lastInput string
	lastPath  string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPath = r.URL.Path

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		f.lastInput = r.URL.Query().Get("valueInputOption")
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, body.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.rows = nil
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": DefaultRange, "majorDimension": "ROWS", "values": f.rows})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func newTestStore(t *testing.T, fake *fakeSheets) *ResultStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewResultStore(context.Background(), "sheet-1", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestAppendAndListResults(t *testing.T) {
	fake := &fakeSheets{rows: [][]interface{}{{"Timestamp", "Name", "Phone"}}}
	store := newTestStore(t, fake)
	ctx := context.Background()

	ts := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)
	err := store.AppendResult(ctx, domain.Result{
		Name: "Alice", Phone: "555-0100", Score: 7, TotalQuestions: 10, Timestamp: ts, TimeSpent: 512,
		Details: []domain.AnswerDetail{{QuestionNumber: 1, QuestionID: 3, IsCorrect: true}},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if fake.lastInput != "RAW" {
		t.Fatalf("expected RAW input option, got %q", fake.lastInput)
	}
	if !strings.Contains(fake.lastPath, "/v4/spreadsheets/sheet-1/values/Sheet1!A:Z") {
		t.Fatalf("unexpected request path %s", fake.lastPath)
	}
	if got := fake.rows[1][5]; got != "7/10" {
		t.Fatalf("expected score column 7/10, got %v", got)
	}

	results, err := store.ListResults(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected header row skipped and 1 result, got %d", len(results))
	}
	got := results[0]
	if got.Name != "Alice" || got.Score != 7 || got.TotalQuestions != 10 || got.TimeSpent != 512 || !got.Timestamp.Equal(ts) {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(got.Details) != 1 || got.Details[0].QuestionID != 3 {
		t.Fatalf("details not restored: %+v", got.Details)
	}

	if err := store.ClearResults(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if results, _ := store.ListResults(ctx); len(results) != 0 {
		t.Fatalf("expected no results after clear, got %d", len(results))
	}
}

func TestAppendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	store, err := NewResultStore(context.Background(), "sheet-1", DefaultRange,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.AppendResult(context.Background(), domain.Result{Name: "x"}); err == nil {
		t.Fatalf("expected error from forbidden sheet")
	}
}

func TestNewResultStoreRequiresSpreadsheet(t *testing.T) {
	if _, err := NewResultStore(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error without spreadsheet id")
	}
}
