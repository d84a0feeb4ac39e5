package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mcq-quiz-service/internal/auth"
	"mcq-quiz-service/internal/export"

	"go.uber.org/zap"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientIP(r, h.opts.TrustProxy)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expires, err := h.auth.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrAdminDisabled):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.log.Warn("admin login failed", zap.String("remote", clientIP(r, h.opts.TrustProxy)))
		writeError(w, http.StatusUnauthorized, "Incorrect password!")
		return
	case err != nil:
		h.log.Error("admin login", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.log.Error("failed to list results", zap.Error(err))
		writeError(w, statusFor(err), "Failed to load results")
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) clearResults(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearResults(r.Context()); err != nil {
		h.log.Error("failed to clear results", zap.Error(err))
		writeError(w, statusFor(err), "Failed to clear results")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportResults streams the detailed report in stored order, as csv (default) or xlsx.
func (h *Handler) exportResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context())
	if err != nil {
		h.log.Error("failed to export results", zap.Error(err))
		writeError(w, statusFor(err), "Failed to load results")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = export.WriteCSV(&buf, results)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, results)
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}
	if err != nil {
		h.log.Error("failed to render export", zap.String("format", format), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export results")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now(), format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
