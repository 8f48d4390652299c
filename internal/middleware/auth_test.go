package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/gorilla/mux"
)

func newTestManager(t *testing.T) *auth.Manager {
	t.Helper()
	mgr, err := auth.NewManager("middleware-test-secret-value", time.Hour, nil, logger.Discard())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr
}

func issue(t *testing.T, mgr *auth.Manager, id string, role member.Role) string {
	t.Helper()
	tok, err := mgr.Issue(member.Member{ID: id, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok.AccessToken
}

func TestAuthMiddleware_Handler_SkipPaths(t *testing.T) {
	mw := NewAuthMiddleware(newTestManager(t), logger.Discard(), []string{"/healthz"})
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_Handler_InvalidHeaders(t *testing.T) {
	mw := NewAuthMiddleware(newTestManager(t), logger.Discard(), nil)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no bearer prefix", "token123"},
		{"wrong prefix", "Basic token123"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/members/1/zones", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_TenantAndAdmin(t *testing.T) {
	mgr := newTestManager(t)
	mw := NewAuthMiddleware(mgr, logger.Discard(), nil)

	router := mux.NewRouter()
	router.Use(mw.Handler)
	tenant := router.PathPrefix("/members/{memberID}").Subrouter()
	tenant.Use(RequireTenant)
	tenant.HandleFunc("/zones", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/system/status", RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	memberToken := issue(t, mgr, "1", member.RoleMember)
	adminToken := issue(t, mgr, "9", member.RoleAdmin)

	cases := []struct {
		path  string
		token string
		want  int
	}{
		{"/members/1/zones", memberToken, http.StatusOK},
		{"/members/2/zones", memberToken, http.StatusForbidden},
		{"/members/2/zones", adminToken, http.StatusOK},
		{"/system/status", memberToken, http.StatusForbidden},
		{"/system/status", adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, logger.Discard())
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	rl.now = func() time.Time { return time.Now().Add(time.Hour) }
	rl.Cleanup(time.Minute)
	if len(rl.limiters) != 0 {
		t.Fatalf("expected idle limiter to be dropped")
	}
}

func TestTracingAndCORS(t *testing.T) {
	var seen string
	handler := NewTracingMiddleware(logger.Discard()).Handler(
		NewCORSMiddleware([]string{"https://admin.farm.test"}).Handler(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r.Context())
				w.WriteHeader(http.StatusAccepted)
			})))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://admin.farm.test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected request id to be propagated, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://admin.farm.test" {
		t.Fatalf("expected CORS header")
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/members/1/zones", nil)
	preflight.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected preflight response %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

type memberMap map[string]member.Member

func (m memberMap) Get(_ context.Context, id string) (member.Member, error) {
	if mem, ok := m[id]; ok {
		return mem, nil
	}
	if id == "broken" {
		return member.Member{}, errors.New("connection reset")
	}
	return member.Member{}, storage.ErrNotFound
}

func TestAuthMiddleware_RechecksMember(t *testing.T) {
	mgr := newTestManager(t)
	members := memberMap{
		"1": {ID: "1", Role: member.RoleMember, Active: true},
		"2": {ID: "2", Role: member.RoleMember, Active: false},
		"3": {ID: "3", Role: member.RoleMember, Active: true},
	}
	mw := NewAuthMiddleware(mgr, logger.Discard(), nil).WithMembers(members)
	handler := mw.Handler(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"active admin", issue(t, mgr, "1", member.RoleAdmin), http.StatusForbidden},
		{"inactive", issue(t, mgr, "2", member.RoleMember), http.StatusUnauthorized},
		{"deleted", issue(t, mgr, "7", member.RoleAdmin), http.StatusUnauthorized},
		{"lookup failure", issue(t, mgr, "broken", member.RoleMember), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/system/status", nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}

	members["1"] = member.Member{ID: "1", Role: member.RoleAdmin, Active: true}
	req := httptest.NewRequest(http.MethodGet, "/system/status", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, mgr, "1", member.RoleMember))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("role should come from the member record, got %d", rec.Code)
	}
}
