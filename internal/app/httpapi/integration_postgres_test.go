//go:build integration && postgres

package httpapi

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	app "github.com/R3E-Network/farm_backoffice/internal/app"
	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/postgres"
	"github.com/R3E-Network/farm_backoffice/internal/config"
	"github.com/R3E-Network/farm_backoffice/internal/platform/database"
	"github.com/R3E-Network/farm_backoffice/internal/platform/migrations"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// Runs the harvest chain against a real database so the SQL stores, the
// migrations and the audit sink are exercised together.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrations.Up(db.DB))

	store := postgres.New(db)
	application, err := app.New(app.Stores{
		Members: store, Zones: store, Parcels: store, Harvesters: store, Activities: store,
		Admissions: store, Processing: store, Inventory: store, Accounting: store,
	}, logger.Discard(), app.WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)
	require.NoError(t, application.Start(ctx))
	t.Cleanup(func() { _ = application.Stop(ctx) })

	suffix := uuid.NewString()[:8]
	adminEmail := "admin-" + suffix + "@farm.test"
	_, _, err = application.Members.EnsureAdmin(ctx, "Admin", adminEmail, "admin-password")
	require.NoError(t, err)

	tokens, err := auth.NewManager("integration-secret-value", time.Hour, nil, logger.Discard())
	require.NoError(t, err)
	s := &testServer{
		t:       t,
		handler: NewHandler(application, tokens, Options{Audit: NewAuditLog(50, NewPostgresAuditSink(db))}, logger.Discard()),
		app:     application,
	}

	admin := s.login(adminEmail, "admin-password")
	id, token := s.createMember(admin, "estate-"+suffix+"@farm.test")
	base := "/members/" + id
	t.Cleanup(func() { _ = application.Members.Delete(ctx, id) })

	parcel := s.expect(s.do(http.MethodPost, base+"/parcels", token, map[string]any{
		"code": "p-1", "area_hectares": 1.5,
	}), http.StatusCreated)
	harvester := s.expect(s.do(http.MethodPost, base+"/harvesters", token, map[string]any{
		"name": "Wanjiru", "rate_per_unit": 0.25,
	}), http.StatusCreated)

	s.expect(s.do(http.MethodPost, base+"/activities", token, map[string]any{
		"parcel_id": gjson.Get(parcel, "id").String(), "type": "harvesting", "performed_on": "2025-05-02",
		"harvester_id": gjson.Get(harvester, "id").String(), "product": "cherry", "quantity": 80, "unit": "kg", "labor_cost": 20,
	}), http.StatusCreated)

	bal := s.expect(s.do(http.MethodGet, base+"/inventory/balances/cherry", token, nil), http.StatusOK)
	assert.InDelta(t, 80, gjson.Get(bal, "quantity").Float(), 1e-9)
	assert.InDelta(t, 20, gjson.Get(bal, "value").Float(), 1e-9)

	balance := s.expect(s.do(http.MethodGet, base+"/accounting/balance", token, nil), http.StatusOK)
	assert.InDelta(t, -20, gjson.Get(balance, "balance").Float(), 1e-9)

	var audited int
	require.NoError(t, db.GetContext(ctx, &audited, `SELECT COUNT(*) FROM audit_log WHERE tenant = $1`, id))
	assert.GreaterOrEqual(t, audited, 3)
}
