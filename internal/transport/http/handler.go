package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/auth"
	"mcq-quiz-service/internal/domain"

	"go.uber.org/zap"
)

// Options tunes the HTTP surface.
type Options struct {
	// StaticDir serves a built single-page app with index.html fallback when set.
	StaticDir string
	// LoginAttempts per minute per client address; 0 selects the default of 5.
	LoginAttempts int
	// TrustProxy keys login limits on X-Forwarded-For instead of the peer address.
	TrustProxy bool
}

// Handler exposes the quiz use cases over HTTP.
type Handler struct {
	service *app.QuizService
	auth    *auth.Authenticator
	log     *zap.Logger
	opts    Options
	limiter *rateLimiter
	ws      *WSHandler
}

func NewHandler(service *app.QuizService, authenticator *auth.Authenticator, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LoginAttempts <= 0 {
		opts.LoginAttempts = 5
	}
	return &Handler{
		service: service,
		auth:    authenticator,
		log:     log,
		opts:    opts,
		limiter: newRateLimiter(opts.LoginAttempts, time.Minute),
		ws:      NewWSHandler(service, log),
	}
}

// Routes builds the full router. Every API route is served both at the root and under /api.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("GET "+prefix+"/questions", h.getQuestions)
		mux.HandleFunc("POST "+prefix+"/save-results", h.saveResults)
		mux.HandleFunc("POST "+prefix+"/admin/login", h.login)
		mux.Handle("GET "+prefix+"/admin/results", h.requireAdmin(h.listResults))
		mux.Handle("DELETE "+prefix+"/admin/results", h.requireAdmin(h.clearResults))
		mux.Handle("GET "+prefix+"/admin/export", h.requireAdmin(h.exportResults))
		mux.Handle("GET "+prefix+"/ws/leaderboard", h.requireAdmin(h.ws.ServeWS))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.opts.StaticDir != "" {
		mux.Handle("GET /", spaHandler(h.opts.StaticDir))
	}

	return corsMiddleware(h.logRequests(mux))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSubmission), errors.Is(err, domain.ErrAttemptRequired),
		errors.Is(err, domain.ErrInvalidQuestionOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuestionsUnavailable), errors.Is(err, domain.ErrResultsUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}
