package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/runner"
)

// downloadRequest is the POST /api/download body.
type downloadRequest struct {
	IDs []string `json:"ids"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleDownload starts a new run.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch err := s.runner.Start(req.IDs); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case errors.Is(err, apperrors.ErrNoIdentifiers):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrRunActive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleProgress streams run progress as server-sent events until the run's
// DONE sentinel or client disconnect.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		msg, ok := s.runner.NextProgress(ctx)
		if !ok {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", msg)
		flusher.Flush()
		if msg == runner.ProgressDone {
			return
		}
	}
}

// handleStatus serves the current run snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Snapshot())
}

// handleDownloadZip serves the finished archive.
func (s *Server) handleDownloadZip(w http.ResponseWriter, r *http.Request) {
	path, err := s.runner.ArchiveFile()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// handleLogin forwards credentials to the portal's login API and, on
// success, hands the browser an opaque session cookie. The portal response
// body is never exposed to the client.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.LoginAPIURL == "" {
		writeError(w, http.StatusNotFound, "login is not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.cfg.LoginAPIURL, bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not build upstream request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := s.loginClient.Do(req)
	if err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Msg("Login upstream unreachable")
		writeError(w, http.StatusBadGateway, "login service unreachable")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusUnauthorized, "login rejected")
		return
	}

	token, err := s.addSession()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
