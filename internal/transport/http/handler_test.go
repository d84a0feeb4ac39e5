package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/auth"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/infra/memory"
)

const adminPassword = "church2024"

type fixture struct {
	server  *httptest.Server
	service *app.QuizService
	results *memory.ResultStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	results := memory.NewResultStore()
	service := app.NewQuizService(
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleBank()), time.Minute),
		memory.NewAttemptStore(time.Hour),
		results,
		app.Settings{},
		nil,
	)
	authenticator, err := auth.NewAuthenticator(adminPassword, "", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	server := httptest.NewServer(NewHandler(service, authenticator, nil, opts).Routes())
	t.Cleanup(server.Close)
	return &fixture{server: server, service: service, results: results}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Password: adminPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	return decode[loginResponse](t, resp).Token
}

func TestGetQuestionsHidesAnswers(t *testing.T) {
	f := newFixture(t, Options{})

	for _, path := range []string{"/api/questions", "/questions"} {
		resp := f.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		raw, _ := io.ReadAll(resp.Body)
		if bytes.Contains(raw, []byte("correctAnswer")) {
			t.Fatalf("%s leaked correct answers: %s", path, raw)
		}
		var set domain.QuestionSet
		if err := json.Unmarshal(raw, &set); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if set.AttemptID == "" || set.TestDuration != 15 || len(set.Questions) != 3 {
			t.Fatalf("unexpected question set %+v", set)
		}
	}
}

func TestSaveResultsWithSession(t *testing.T) {
	f := newFixture(t, Options{})

	set := decode[domain.QuestionSet](t, f.do(t, http.MethodGet, "/api/questions", "", nil))
	answers := make([]string, len(set.Questions))
	for i, q := range set.Questions {
		answers[i] = string(correctKey(q.ID))
	}
	answers[0] = "No Answer"

	resp := f.do(t, http.MethodPost, "/api/save-results", "", map[string]any{
		"sessionId": set.AttemptID,
		"name":      "Alice",
		"phone":     "555-0100",
		"answers":   answers,
		"timeSpent": 321,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decode[saveResultsResponse](t, resp)
	if !got.Success || !got.Persisted || got.Score != 2 || got.TotalQuestions != 3 || got.Percentage != 67 {
		t.Fatalf("unexpected response %+v", got)
	}

	stored, _ := f.results.ListResults(context.Background())
	if len(stored) != 1 || stored[0].TimeSpent != 321 {
		t.Fatalf("unexpected stored results %+v", stored)
	}

	// the session is single use
	resp = f.do(t, http.MethodPost, "/api/save-results", "", map[string]any{
		"sessionId": set.AttemptID, "name": "Alice", "phone": "555-0100", "answers": answers,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for reused session, got %d", resp.StatusCode)
	}
}

func TestSaveResultsBrowserShapeIgnoresReportedScore(t *testing.T) {
	f := newFixture(t, Options{})

	resp := f.do(t, http.MethodPost, "/save-results", "", map[string]any{
		"questionIds":    []int{2, 1, 3},
		"userName":       "Bob",
		"userPhone":      "555-0101",
		"answers":        map[string]string{"1": "Paris", "2": "B", "3": "Atlantic", "x": "A"},
		"score":          3,
		"totalQuestions": 3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decode[saveResultsResponse](t, resp)
	if got.Score != 2 || got.TotalQuestions != 3 {
		t.Fatalf("expected recomputed 2/3, got %+v", got)
	}

	stored, _ := f.results.ListResults(context.Background())
	if stored[0].Details[0].QuestionID != 2 {
		t.Fatalf("expected details in submitted order, got %+v", stored[0].Details[0])
	}
}

func TestSaveResultsErrors(t *testing.T) {
	f := newFixture(t, Options{})

	cases := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"missing phone", map[string]any{"name": "A", "questionIds": []int{1, 2, 3}}, http.StatusBadRequest},
		{"repeated ids", map[string]any{"name": "A", "phone": "1", "questionIds": []int{1, 1, 1, 1, 1}, "answers": []string{"B", "B", "B", "B", "B"}}, http.StatusBadRequest},
		{"unknown id", map[string]any{"name": "A", "phone": "1", "questionIds": []int{1, 2, 42}}, http.StatusBadRequest},
		{"short order", map[string]any{"name": "A", "phone": "1", "questionIds": []int{1}}, http.StatusBadRequest},
		{"missing order", map[string]any{"name": "A", "phone": "1"}, http.StatusBadRequest},
		{"unknown session", map[string]any{"name": "A", "phone": "1", "sessionId": "nope"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		resp := f.do(t, http.MethodPost, "/api/save-results", "", tc.body)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, resp.StatusCode)
		}
		if e := decode[errorResponse](t, resp); e.Error == "" {
			t.Fatalf("%s: expected error message", tc.name)
		}
	}
}

func TestSaveResultsMalformedAnswersAreUnanswered(t *testing.T) {
	f := newFixture(t, Options{})

	resp := f.do(t, http.MethodPost, "/api/save-results", "",
		`{"questionIds":[1,2,3],"name":"Eve","phone":"9","answers":[7,null,"D","A","A"]}`)
	got := decode[saveResultsResponse](t, resp)
	if got.Score != 1 || got.TotalQuestions != 3 {
		t.Fatalf("expected 1/3, got %+v", got)
	}
}

func TestSourceUnavailableIs503(t *testing.T) {
	service := app.NewQuizService(
		memory.NewQuestionRepository(failingLoader{}, time.Minute),
		memory.NewAttemptStore(time.Hour),
		memory.NewResultStore(),
		app.Settings{},
		nil,
	)
	authenticator, _ := auth.NewAuthenticator(adminPassword, "", "s", time.Hour)
	server := httptest.NewServer(NewHandler(service, authenticator, nil, Options{}).Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/questions")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestAdminFlow(t *testing.T) {
	f := newFixture(t, Options{})

	if resp := f.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Password: "guess"}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/admin/results", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/admin/results", "forged", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", resp.StatusCode)
	}

	token := f.login(t)
	submit(t, f, "slow", []string{"B", "B", "D"}, 300)
	submit(t, f, "fast", []string{"B", "B", "D"}, 200)
	submit(t, f, "low", []string{"A"}, 10)

	resp := f.do(t, http.MethodGet, "/api/admin/results", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results: status %d", resp.StatusCode)
	}
	lb := decode[domain.Leaderboard](t, resp)
	if len(lb.Entries) != 3 || lb.Entries[0].Name != "fast" || lb.Entries[0].Rank != 1 || lb.Entries[2].Name != "low" {
		t.Fatalf("unexpected leaderboard %+v", lb.Entries)
	}
	if lb.Summary.Participants != 3 || lb.Summary.HighestScore != 3 || lb.Summary.FastestTime != 10 {
		t.Fatalf("unexpected summary %+v", lb.Summary)
	}

	resp = f.do(t, http.MethodGet, "/api/admin/export", token, nil)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "S.No,Name,Phone,Score,Total Questions,Percentage,Timestamp,Q1_Question") {
		t.Fatalf("unexpected csv export:\n%s", body)
	}
	if !strings.HasPrefix(lines[1], "1,slow,") {
		t.Fatalf("export must keep stored order, got %q", lines[1])
	}

	resp = f.do(t, http.MethodGet, "/api/admin/export?format=xlsx", token, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Disposition"), ".xlsx") {
		t.Fatalf("unexpected xlsx export: %d %v", resp.StatusCode, resp.Header)
	}
	if resp := f.do(t, http.MethodGet, "/api/admin/export?format=pdf", token, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", resp.StatusCode)
	}

	if resp := f.do(t, http.MethodDelete, "/api/admin/results", token, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear: status %d", resp.StatusCode)
	}
	lb = decode[domain.Leaderboard](t, f.do(t, http.MethodGet, "/api/admin/results", token, nil))
	if len(lb.Entries) != 0 {
		t.Fatalf("expected empty leaderboard after clear, got %d", len(lb.Entries))
	}
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t, Options{LoginAttempts: 2})

	for i := 0; i < 2; i++ {
		if resp := f.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Password: "x"}); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.StatusCode)
		}
	}
	if resp := f.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Password: adminPassword}); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}

func TestLoginLimitIgnoresForwardedHeader(t *testing.T) {
	f := newFixture(t, Options{LoginAttempts: 5})

	codes := map[int]int{}
	for i := 0; i < 20; i++ {
		req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/admin/login", strings.NewReader(`{"password":"guess"}`))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		resp.Body.Close()
		codes[resp.StatusCode]++
	}
	if codes[http.StatusUnauthorized] != 5 || codes[http.StatusTooManyRequests] != 15 {
		t.Fatalf("expected 5 guesses then 429s, got %v", codes)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	r.RemoteAddr = "192.0.2.7:52100"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := clientIP(r, false); got != "192.0.2.7" {
		t.Fatalf("untrusted header must be ignored, got %q", got)
	}
	if got := clientIP(r, true); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded address behind a proxy, got %q", got)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)
	l := newRateLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		l.Allow(fmt.Sprintf("client-%d", i))
	}
	if l.Len() != 100 {
		t.Fatalf("expected 100 tracked clients, got %d", l.Len())
	}

	now = now.Add(2 * time.Minute)
	l.Allow("late")
	if l.Len() != 1 {
		t.Fatalf("idle clients should be evicted, %d left", l.Len())
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, Options{})
	resp := f.do(t, http.MethodOptions, "/api/save-results", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response %d %v", resp.StatusCode, resp.Header)
	}
}

func TestStaticFallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>quiz</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	f := newFixture(t, Options{StaticDir: dir})

	body, _ := io.ReadAll(f.do(t, http.MethodGet, "/app.js", "", nil).Body)
	if string(body) != "console.log(1)" {
		t.Fatalf("expected asset, got %q", body)
	}
	body, _ = io.ReadAll(f.do(t, http.MethodGet, "/admin", "", nil).Body)
	if !strings.Contains(string(body), "quiz") {
		t.Fatalf("expected index fallback, got %q", body)
	}
	resp := f.do(t, http.MethodGet, "/api/questions", "", nil)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("api must not be shadowed by static files, got %q", ct)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)
	l := newRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("ip") || !l.Allow("ip") {
		t.Fatalf("first two requests must pass")
	}
	if l.Allow("ip") {
		t.Fatalf("third request must be limited")
	}
	if !l.Allow("other") {
		t.Fatalf("keys are limited independently")
	}
	now = now.Add(61 * time.Second)
	if !l.Allow("ip") {
		t.Fatalf("window should have slid")
	}
}

func submit(t *testing.T, f *fixture, name string, answers []string, spent int) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/save-results", "", map[string]any{
		"questionIds": []int{1, 2, 3},
		"name":        name,
		"phone":       "555",
		"answers":     answers,
		"timeSpent":   spent,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit %s: status %d", name, resp.StatusCode)
	}
}

type failingLoader struct{}

func (failingLoader) LoadQuestions(context.Context) ([]domain.Question, error) {
	return nil, errors.New("Question.csv missing")
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: 1, Prompt: "Capital of France?", Options: domain.Options{A: "London", B: "Paris", C: "Rome", D: "Berlin"}, CorrectAnswer: "Paris"},
		{ID: 2, Prompt: "2 + 2?", Options: domain.Options{A: "3", B: "4", C: "5", D: "6"}, CorrectAnswer: "4"},
		{ID: 3, Prompt: "Largest ocean?", Options: domain.Options{A: "Atlantic", B: "Indian", C: "Arctic", D: "Pacific"}, CorrectAnswer: "Pacific"},
	}
}

func correctKey(id int) domain.OptionKey {
	for _, q := range sampleBank() {
		if q.ID == id {
			key, _ := q.CorrectKey()
			return key
		}
	}
	return domain.NoAnswer
}
