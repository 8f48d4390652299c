package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/farm_backoffice/internal/config"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Auth.JWTSecret = "runtime-test-secret-value"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.AdminEmail = "admin@farm.test"
	cfg.Auth.AdminPassword = "admin-password"
	cfg.Audit.File = filepath.Join(t.TempDir(), "audit.jsonl")
	cfg.Logging = logger.LoggingConfig{Level: "error"}
	return cfg
}

func TestBuildBootstrapsAdministrator(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.close()

	if err := a.Services().Start(context.Background()); err != nil {
		t.Fatalf("start services: %v", err)
	}
	defer a.Services().Stop(context.Background())

	body, _ := json.Marshal(map[string]string{"email": cfg.Auth.AdminEmail, "password": cfg.Auth.AdminPassword})
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil || tok.AccessToken == "" {
		t.Fatalf("expected access token, got %s (%v)", rec.Body.String(), err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status %d: %s", rec.Code, rec.Body.String())
	}

	data, err := os.ReadFile(cfg.Audit.File)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	if !strings.Contains(string(data), "/auth/logout") {
		t.Fatalf("expected logout in audit file, got %q", data)
	}
}

func TestBuildIsIdempotentForAdministrator(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.close()

	m, created, err := a.Services().Members.EnsureAdmin(context.Background(), "Admin", cfg.Auth.AdminEmail, "other-password")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if created {
		t.Fatalf("expected existing administrator %s to be reused", m.ID)
	}
}

func TestBuildRejectsShortSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "short"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestRunAndShutdown(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !a.Services().Running() {
		if time.Now().After(deadline) {
			t.Fatalf("services did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after cancel")
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if a.Services().Running() {
		t.Fatalf("expected services stopped")
	}
}
