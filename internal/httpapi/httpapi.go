package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/localstore"
	"kasirinaja/backoffice/internal/metrics"
	"kasirinaja/backoffice/internal/report"
	"kasirinaja/backoffice/internal/service"
	"kasirinaja/backoffice/internal/transfer"
)

var (
	staff    = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager, domain.RoleCashier, domain.RoleBarber}
	counter  = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager, domain.RoleCashier}
	managers = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager}
	admins   = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin}
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	metrics       *metrics.Metrics
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, m *metrics.Metrics, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		metrics:       m,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	return a.csrfTokenForHour(time.Now().UTC().Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts the current and the previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	current := time.Now().UTC().Truncate(time.Hour).Unix()
	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current-3600)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}
	mux.HandleFunc("POST /api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("GET /api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("GET /api/v1/reports/{name}", a.requireAuth(a.handleReport, managers...))

	mux.HandleFunc("GET /api/v1/sales", a.requireAuth(a.handleListSales, counter...))
	mux.HandleFunc("GET /api/v1/sales/{id}", a.requireAuth(a.handleGetSale, counter...))
	mux.HandleFunc("GET /api/v1/sales/{id}/receipt", a.requireAuth(a.handleReceipt, counter...))
	mux.HandleFunc("GET /api/v1/invoices/{id}", a.requireAuth(a.handleGetInvoice, counter...))

	mux.HandleFunc("GET /api/v1/expenses", a.requireAuth(a.handleListExpenses, managers...))
	mux.HandleFunc("POST /api/v1/expenses", a.requireAuth(a.handleCreateExpense, managers...))
	mux.HandleFunc("PUT /api/v1/expenses/{id}", a.requireAuth(a.handleUpdateExpense, managers...))
	mux.HandleFunc("DELETE /api/v1/expenses/{id}", a.requireAuth(a.handleDeleteExpense, managers...))

	mux.HandleFunc("GET /api/v1/products", a.requireAuth(a.handleListProducts, staff...))
	mux.HandleFunc("POST /api/v1/products", a.requireAuth(a.handleCreateProduct, managers...))
	mux.HandleFunc("GET /api/v1/products/low-stock-alerts", a.requireAuth(a.handleLowStock, managers...))
	mux.HandleFunc("GET /api/v1/products/stock-history", a.requireAuth(a.handleStockHistory, managers...))
	mux.HandleFunc("GET /api/v1/products/{id}", a.requireAuth(a.handleGetProduct, staff...))
	mux.HandleFunc("PUT /api/v1/products/{id}", a.requireAuth(a.handleUpdateProduct, managers...))
	mux.HandleFunc("DELETE /api/v1/products/{id}", a.requireAuth(a.handleDeleteProduct, managers...))
	mux.HandleFunc("POST /api/v1/products/{id}/adjust-stock", a.requireAuth(a.handleAdjustStock, managers...))
	mux.HandleFunc("GET /api/v1/products/{id}/barcode", a.requireAuth(a.handleBarcode, counter...))
	mux.HandleFunc("GET /api/v1/categories", a.requireAuth(a.handleCategories, staff...))
	mux.HandleFunc("POST /api/v1/inventory/clear", a.requireAuth(a.handleClearInventory, admins...))

	mux.HandleFunc("GET /api/v1/stock-transfers", a.requireAuth(a.handleListTransfers, managers...))
	mux.HandleFunc("POST /api/v1/stock-transfers", a.requireAuth(a.handleCreateTransfer, managers...))
	mux.HandleFunc("GET /api/v1/stock-transfers/{id}", a.requireAuth(a.handleGetTransfer, managers...))
	mux.HandleFunc("POST /api/v1/stock-transfers/{id}/items", a.requireAuth(a.handleAddTransferItem, managers...))
	mux.HandleFunc("PUT /api/v1/stock-transfers/{id}/items/{itemID}", a.requireAuth(a.handleUpdateTransferItem, managers...))
	mux.HandleFunc("DELETE /api/v1/stock-transfers/{id}/items/{itemID}", a.requireAuth(a.handleRemoveTransferItem, managers...))
	mux.HandleFunc("POST /api/v1/stock-transfers/{id}/status", a.requireAuth(a.handleTransferStatus, managers...))

	mux.HandleFunc("GET /api/v1/users", a.requireAuth(a.handleListUsers, admins...))
	mux.HandleFunc("POST /api/v1/users", a.requireAuth(a.handleCreateUser, admins...))
	mux.HandleFunc("PUT /api/v1/users/{id}", a.requireAuth(a.handleUpdateUser, admins...))
	mux.HandleFunc("DELETE /api/v1/users/{id}", a.requireAuth(a.handleDeleteUser, admins...))
	mux.HandleFunc("POST /api/v1/users/{id}/assign-role", a.requireAuth(a.handleAssignRole, admins...))
	mux.HandleFunc("GET /api/v1/roles", a.requireAuth(a.handleRoles, admins...))

	mux.HandleFunc("GET /api/v1/backups", a.requireAuth(a.handleListBackups, admins...))
	mux.HandleFunc("POST /api/v1/backups", a.requireAuth(a.handleCreateBackup, admins...))
	mux.HandleFunc("GET /api/v1/backups/{id}/download", a.requireAuth(a.handleDownloadBackup, admins...))
	mux.HandleFunc("DELETE /api/v1/backups/{id}", a.requireAuth(a.handleDeleteBackup, admins...))

	mux.HandleFunc("GET /api/v1/settings", a.requireAuth(a.handleGetSettings, staff...))
	mux.HandleFunc("PUT /api/v1/settings", a.requireAuth(a.handleUpdateSettings, admins...))
	mux.HandleFunc("GET /api/v1/reference/{kind}", a.requireAuth(a.handleReference, staff...))
	mux.HandleFunc("GET /api/v1/system-logs", a.requireAuth(a.handleSystemLogs, admins...))
	mux.HandleFunc("POST /api/v1/printer/test", a.requireAuth(a.handlePrinterTest, counter...))
	mux.HandleFunc("POST /api/v1/printer/cash-drawer", a.requireAuth(a.handleCashDrawer, counter...))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...domain.Role) http.HandlerFunc {
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

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	identity, err := a.service.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp, err := a.auth.Issue(identity.Data, identity.Source)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	setSourceHeaders(w, identity.Source, identity.FallbackReason)
	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless token valid for the current hour
// bucket. Mutating requests send it back in X-CSRF-Token.
func (a *API) handleCSRFToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

var csrfExemptPaths = []string{
	"/api/v1/auth/login",
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
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token, Idempotency-Key")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "X-Data-Source, X-Fallback-Reason, Content-Disposition")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
			r = r.WithContext(apiclient.WithIdempotencyKey(r.Context(), key))
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r)
		a.metrics.ObserveRequest(r.Method, rec.status)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(startedAt))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func pathID(r *http.Request, name string) domain.ID {
	return domain.ID(strings.TrimSpace(r.PathValue(name)))
}

// statusFor maps service, store and upstream errors onto HTTP statuses.
func statusFor(err error) int {
	var statusErr *apiclient.StatusError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, localstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, transfer.ErrIllegalTransition), errors.Is(err, transfer.ErrTransferLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, report.ErrInvalidRange), errors.Is(err, transfer.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, apiclient.ErrUnavailable), errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry internal detail.
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		log.Printf("upstream error (status %d): %v", status, err)
		msg = "tenant api unavailable"
	case status >= 500:
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func setSourceHeaders(w http.ResponseWriter, source domain.Source, reason string) {
	if source != "" {
		w.Header().Set("X-Data-Source", string(source))
	}
	if reason != "" {
		w.Header().Set("X-Fallback-Reason", reason)
	}
}

// writeSourced writes a payload tagged with its data source, both in the
// body and in the X-Data-Source header.
func writeSourced[T any](w http.ResponseWriter, status int, payload domain.Sourced[T]) {
	setSourceHeaders(w, payload.Source, payload.FallbackReason)
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
