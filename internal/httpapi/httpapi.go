package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/logging"
	"shopstack/backend/internal/service"
	"shopstack/backend/internal/store"
)

const (
	routeLogin  = "login"
	routeSignup = "signup"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logoFiles     http.Handler
	maxLogoBytes  int64
	limiter       *attemptLimiter
	csrf          *csrfTokens
}

// New builds the API. logoFiles, when non-nil, serves uploaded logos under
// /logos/.
func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logoFiles http.Handler, maxLogoBytes int64) *API {
	if maxLogoBytes <= 0 {
		maxLogoBytes = 2 << 20
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		logoFiles:     logoFiles,
		maxLogoBytes:  maxLogoBytes,
		limiter: newAttemptLimiter(map[string]limitPolicy{
			routeLogin:  {max: 5, window: time.Minute},
			routeSignup: {max: 10, window: time.Hour},
		}),
		csrf: newCSRFTokens(),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/signup", a.handleSignup)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/v1/auth/password", a.requireAuth(a.handleChangePassword))

	mux.HandleFunc("/api/v1/me", a.requireAuth(a.handleMe))
	mux.HandleFunc("/api/v1/shops", a.requireAuth(a.handleShops))
	mux.HandleFunc("/api/v1/shops/", a.requireAuth(a.handleShopRoutes))

	if a.logoFiles != nil {
		mux.Handle("/logos/", a.logoFiles)
	}

	return logging.AccessLog(a.withMiddleware(mux))
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.limiter.Allow(routeSignup, clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many signup attempts"))
		return
	}

	var req domain.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.limiter.Allow(routeLogin, clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	actor, _ := service.ActorFromContext(r.Context())

	var req domain.PasswordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.auth.ChangePassword(r.Context(), actor, req); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, errors.New("current password is incorrect"))
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients send it in the X-CSRF-Token header on every mutating request.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.csrf.Issue(),
	})
}

// Login and signup are called before a client holds a CSRF token.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/signup",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.csrf.Valid(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

// withMiddleware applies response headers, the JSON body cap and the CSRF
// check, in that order.
func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w.Header())
		a.setCORSHeaders(w.Header())

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if hasJSONBody(r) {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		if !a.checkCSRF(w, r) {
			return
		}

		next.ServeHTTP(w, r)
	})
}

const maxJSONBodyBytes = 1 << 20

func setSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
}

func (a *API) setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", a.allowedOrigin)
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
	h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	h.Set("Vary", "Origin")
}

func hasJSONBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
	}
	return false
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveInt(raw string, fallback int, max int) int {
	value := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			value = parsed
		}
	}
	if max > 0 && value > max {
		return max
	}
	return value
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeServiceError maps the store and service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err)
}

func errorCode(status int, err error) string {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	case errors.Is(err, store.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, store.ErrInvalidInput):
		return "invalid_input"
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= 500 {
		return "internal"
	}
	return "error"
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx messages can carry driver or filesystem details; clients get a
	// generic message and the cause goes to the log.
	msg := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		log.Warn().Err(err).Int("status", status).Msg("store unavailable")
		msg = "service temporarily unavailable, please retry"
	case status >= 500:
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
		"code":  errorCode(status, err),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
