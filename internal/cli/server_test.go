package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryConfig writes a config that reads questions from a CSV in dir and keeps
// results and attempts in memory.
func memoryConfig(t *testing.T, dir string) string {
	t.Helper()
	for _, key := range []string{"PORT", "DATABASE_URL", "REDIS_ADDR", "RESULTS_STORE", "ADMIN_PASSWORD", "ADMIN_PASSWORD_HASH", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	questions := filepath.Join(dir, "Question.csv")
	csvData := "Question Number,Question,Option A,Option B,Option C,Option D,Correct Answer\n" +
		"1,Capital of France?,London,Paris,Rome,Berlin,Paris\n" +
		"2,2 + 2?,3,4,5,6,4\n" +
		"3,Largest ocean?,Atlantic,Indian,Arctic,Pacific,Pacific\n"
	require.NoError(t, os.WriteFile(questions, []byte(csvData), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "log:\n  level: error\n" +
		"quiz:\n  source: " + questions + "\n" +
		"results:\n  store: memory\n" +
		"admin:\n  password: church2024\n  jwt_secret: test-secret\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStartServesQuizFromMemoryStores(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Load(memoryConfig(t, t.TempDir()))
	require.NoError(t, err)

	d, err := openDeps(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	server, service, err := newHTTPServer(ctx, cfg, zap.NewNop(), d, "0")
	require.NoError(t, err)
	assert.Equal(t, ":0", server.Addr)
	assert.Equal(t, 15*time.Minute, service.TestDuration())

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/questions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var set domain.QuestionSet
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&set))
	require.Len(t, set.Questions, 3)

	answers := map[string]string{"1": "B", "2": "B", "3": "D"}
	resp = postJSON(t, ts.URL+"/api/save-results", map[string]any{
		"sessionId": set.AttemptID, "name": "Alice", "phone": "555-0100", "answers": answers,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved struct {
		Score     int  `json:"score"`
		Persisted bool `json:"persisted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	assert.Equal(t, 3, saved.Score)
	assert.True(t, saved.Persisted)

	resp = postJSON(t, ts.URL+"/api/admin/login", map[string]string{"password": "church2024"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunServerStopsWhenContextEnds(t *testing.T) {
	cfgPath := memoryConfig(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, cfgPath, "0") }()
	time.AfterFunc(100*time.Millisecond, cancel)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestMigrateAndImportRequirePostgres(t *testing.T) {
	cfgPath := memoryConfig(t, t.TempDir())

	err := runMigrations(context.Background(), cfgPath)
	assert.ErrorContains(t, err, "postgres url not configured")

	err = runImport(context.Background(), cfgPath, "Question.csv")
	assert.ErrorContains(t, err, "postgres url not configured")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "migrate"})
	assert.Error(t, cmd.Execute())
}
