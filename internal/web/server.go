// Package web exposes the download pipeline over HTTP: starting runs,
// streaming progress as server-sent events, reporting status, serving the
// finished archive, and proxying portal logins.
package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/runner"
)

const sessionCookieName = "cv_session"

// Server holds the handler dependencies. Sessions are in-memory and lost on
// restart; login is only enforced when a login API is configured.
type Server struct {
	runner      *runner.Runner
	cfg         *config.Config
	loginClient *http.Client

	sessionsMu sync.Mutex
	sessions   map[string]struct{}
}

// New creates the web server frontend for a runner.
func New(r *runner.Runner, cfg *config.Config) *Server {
	return &Server{
		runner:      r,
		cfg:         cfg,
		loginClient: &http.Client{Timeout: 10 * time.Second},
		sessions:    make(map[string]struct{}),
	}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/download", s.requireSession(s.handleDownload))
	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/download-zip", s.requireSession(s.handleDownloadZip))
	return mux
}

// NewHTTPServer wraps the routes in a configured http.Server.
func NewHTTPServer(s *Server) *http.Server {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Address, s.cfg.Server.Port)
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requireSession gates a handler behind the session cookie. A blank
// login_api_url disables authentication entirely.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.LoginAPIURL == "" {
			next(w, r)
			return
		}
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || !s.hasSession(cookie.Value) {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next(w, r)
	}
}

func (s *Server) hasSession(token string) bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	_, ok := s.sessions[token]
	return ok
}

func (s *Server) addSession() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.sessionsMu.Lock()
	s.sessions[token] = struct{}{}
	s.sessionsMu.Unlock()
	return token, nil
}
