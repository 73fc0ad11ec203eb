package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"elib/internal/util"
	"elib/pkg/storage"
	"elib/pkg/store"
	"elib/services/api/internal/app"
)

const (
	maxJSONBody     = 1 << 20
	maxMultipartMem = 32 << 20
)

// Limiter allows or rejects a request key within the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Staging        *storage.Staging
	MaxUploadBytes int64
	// Production hides error stacks from responses.
	Production     bool
	CORSOrigin     string
	TrustedProxies *util.TrustedProxies
	// Nil limiters disable rate limiting.
	RegisterLimiter Limiter
	LoginLimiter    Limiter
}

// Server exposes the e-library HTTP API.
type Server struct {
	app             *app.App
	staging         *storage.Staging
	mux             *http.ServeMux
	maxUploadBytes  int64
	production      bool
	corsOrigin      string
	trustedProxies  *util.TrustedProxies
	registerLimiter Limiter
	loginLimiter    Limiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.Staging == nil {
		return nil, errors.New("staging required")
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	s := &Server{
		app:             cfg.App,
		staging:         cfg.Staging,
		mux:             http.NewServeMux(),
		maxUploadBytes:  maxUpload,
		production:      cfg.Production,
		corsOrigin:      cfg.CORSOrigin,
		trustedProxies:  cfg.TrustedProxies,
		registerLimiter: cfg.RegisterLimiter,
		loginLimiter:    cfg.LoginLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.trustedProxies, util.WithSecurityHeaders(util.WithCORS(s.corsOrigin, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// users
	s.mux.HandleFunc("/api/users/register", s.handleRegister)
	s.mux.HandleFunc("/api/users/login", s.handleLogin)
	s.mux.Handle("/api/users/logout", s.authenticated(s.handleLogout))

	// books
	s.mux.HandleFunc("/api/books", s.handleListBooks)
	s.mux.HandleFunc("/api/books/", s.handleBookRoutes)

	// ratings and insights
	s.mux.Handle("/api/rate/", s.authenticated(s.handleRatingRoutes))
	s.mux.HandleFunc("/api/insight/", s.handleInsightRoutes)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the elib APIs"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	ID    string
	Email string
	Role  string
	Token string
}

type authHandler func(http.ResponseWriter, *http.Request, Caller)

// authenticated verifies the bearer token before calling next.
func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.authorize(r)
		if err != nil {
			s.audit(r, "auth.verify", "fail", "reason", err.Error())
			s.writeAppError(w, r, err)
			return
		}
		ctx := util.ContextWithLogger(r.Context(), util.LoggerFromContext(r.Context()).With("user_id", caller.ID))
		next(w, r.WithContext(ctx), caller)
	})
}

func (s *Server) authorize(r *http.Request) (Caller, error) {
	header := r.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" {
		return Caller{}, &app.Error{Kind: app.ErrUnauthorized, Message: "Unauthorized: No token provided"}
	}
	scheme, token, _ := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if scheme != "Bearer" || token == "" {
		return Caller{}, &app.Error{Kind: app.ErrValidation, Message: "Invalid Authorization header format"}
	}
	sess, err := s.app.Authenticate(r.Context(), token)
	if err != nil {
		return Caller{}, err
	}
	return callerFromSession(sess, token), nil
}

func callerFromSession(sess store.Session, token string) Caller {
	return Caller{ID: sess.UserID, Email: sess.Email, Role: string(sess.Role), Token: token}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter Limiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	s.writeError(w, r, http.StatusTooManyRequests, msg)
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return &app.Error{Kind: app.ErrValidation, Message: "Invalid JSON body", Err: err}
	}
	return nil
}

// splitPath returns the non-empty segments after prefix.
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// queryInt parses a positive integer query value, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || v < 1 {
		return def
	}
	return v
}
