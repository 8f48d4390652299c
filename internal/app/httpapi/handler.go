package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/R3E-Network/farm_backoffice/internal/app"
	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/export"
	"github.com/R3E-Network/farm_backoffice/internal/app/metrics"
	inventorysvc "github.com/R3E-Network/farm_backoffice/internal/app/services/inventory"
	membersvc "github.com/R3E-Network/farm_backoffice/internal/app/services/members"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/internal/middleware"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

var errForbidden = errors.New("forbidden")

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
	// Limiter, when set, replaces the limiter built from RateLimit and RateBurst.
	Limiter *middleware.RateLimiter
	Audit   *AuditLog
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	tokens  *auth.Manager
	audit   *AuditLog
	log     *logger.Logger
	started time.Time
}

// NewHandler returns the router exposing the REST API.
func NewHandler(application *app.Application, tokens *auth.Manager, opts Options, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	if opts.Audit == nil {
		opts.Audit = NewAuditLog(200, nil)
	}
	h := &handler{app: application, tokens: tokens, audit: opts.Audit, log: log, started: time.Now()}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	authMW := middleware.NewAuthMiddleware(tokens, log, nil).WithMembers(application.Members)
	limiter := opts.Limiter
	if limiter == nil && opts.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst, log)
	}

	api := r.NewRoute().Subrouter()
	api.Use(authMW.Handler, h.audit.Middleware)
	if limiter != nil {
		api.Use(limiter.Handler)
	}
	api.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)

	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/system/status", h.systemStatus).Methods(http.MethodGet)
	admin.HandleFunc("/system/audit", h.systemAudit).Methods(http.MethodGet)
	admin.HandleFunc("/members", h.listMembers).Methods(http.MethodGet)
	admin.HandleFunc("/members", h.createMember).Methods(http.MethodPost)
	admin.HandleFunc("/members/export", h.exportMembers).Methods(http.MethodGet)

	tenant := api.PathPrefix("/members/{memberID}").Subrouter()
	tenant.Use(middleware.RequireTenant, h.requireTenantExists)
	h.memberRoutes(tenant)
	h.farmRoutes(tenant)
	h.operationRoutes(tenant)
	h.ledgerRoutes(tenant)

	var root http.Handler = r
	root = metrics.InstrumentHandler(root)
	root = middleware.NewCORSMiddleware(opts.CORSOrigins).Handler(root)
	root = middleware.NewTracingMiddleware(log).Handler(root)
	return root
}

// requireTenantExists answers 404 for member IDs that no longer exist, so an
// admin addressing a deleted tenant does not see empty collections.
func (h *handler) requireTenantExists(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.app.Members.Get(r.Context(), memberID(r)); err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func memberID(r *http.Request) string {
	return mux.Vars(r)["memberID"]
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return service.Invalid("body", "is empty")
		}
		return service.Invalid("body", "%v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// fail maps a service error to its HTTP status.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).
			WithField("path", r.URL.Path).
			WithField("request_id", middleware.RequestID(r.Context())).
			Error("request failed")
		writeError(w, status, errors.New("internal error"))
		return
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case service.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, service.ErrInUse),
		errors.Is(err, service.ErrLocked),
		errors.Is(err, inventorysvc.ErrInsufficientStock),
		errors.Is(err, membersvc.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, membersvc.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeExport streams tables as an xlsx attachment.
func (h *handler) writeExport(w http.ResponseWriter, r *http.Request, resource string, tables ...export.Table) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(resource, time.Now())))
	if err := export.WriteXLSX(w, tables...); err != nil {
		h.log.WithError(err).WithField("resource", resource).Error("export failed")
		return
	}
	metrics.RecordExport(resource)
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, service.Invalid(field, "must be a date (YYYY-MM-DD)")
	}
	return t.UTC(), nil
}

// dateRange reads the from/to query parameters. A bare "to" date covers the
// whole day.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(strings.TrimSpace(q.Get("to"))) == len("2006-01-02") {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, service.Invalid("to", "must not be before from")
	}
	return from, to, nil
}

// Date decodes JSON dates written as YYYY-MM-DD or RFC 3339.
type Date struct{ time.Time }

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t, err := parseDate("date", raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
