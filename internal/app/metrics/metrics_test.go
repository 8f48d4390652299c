package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/healthz":                      "/healthz",
		"/members":                      "/members",
		"/members/42":                   "/members/:member",
		"/members/42/parcels":           "/members/:member/parcels",
		"/members/42/parcels/7":         "/members/:member/parcels",
		"/members/42/inventory/export":  "/members/:member/inventory/export",
		"/members/42/accounting/export": "/members/:member/accounting/export",
	}
	for in, want := range cases {
		if got := canonicalPath(in); got != want {
			t.Fatalf("canonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstrumentHandlerCountsRequests(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/members/:member/zones", "418"))

	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/members/1/zones/2", nil))

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/members/:member/zones", "418"))
	if after != before+1 {
		t.Fatalf("expected request counter to increase, before=%v after=%v", before, after)
	}
}

func TestDomainCountersAreExposed(t *testing.T) {
	RecordInventoryMovement("in", "admission:7")
	RecordAccountingEntry("expense", "labor")
	RecordExport("parcels")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`farm_backoffice_inventory_movements_total{direction="in",reference="admission"}`,
		`farm_backoffice_accounting_entries_total{category="labor",kind="expense"}`,
		`farm_backoffice_export_workbooks_total{resource="parcels"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}
