package app

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/jobs"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

func TestApplicationHarvestChain(t *testing.T) {
	ctx := context.Background()
	application, err := New(Stores{}, logger.Discard(), WithPasswordCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer application.Stop(ctx)

	m, err := application.Members.Create(ctx, "Estate", "estate@farm.test", "", "password123", member.RoleMember)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	p, err := application.Parcels.Create(ctx, parcel.Parcel{MemberID: m.ID, Code: "a1", Name: "Block A", AreaHectares: 3, Tenure: parcel.TenureOwned})
	if err != nil {
		t.Fatalf("create parcel: %v", err)
	}
	h, err := application.Harvesters.Create(ctx, harvester.Harvester{MemberID: m.ID, Name: "Wanjiru", RatePerUnit: 0.5})
	if err != nil {
		t.Fatalf("create harvester: %v", err)
	}

	act, err := application.Activities.Record(ctx, activity.Activity{
		MemberID:    m.ID,
		ParcelID:    p.ID,
		Type:        activity.TypeHarvesting,
		HarvesterID: h.ID,
		Product:     "Cherry",
		Quantity:    120,
		LaborCost:   30,
		PerformedOn: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("record harvest: %v", err)
	}
	if act.AdmissionID == "" {
		t.Fatalf("expected harvest to produce an admission")
	}

	bal, err := application.Inventory.GetBalance(ctx, m.ID, "cherry")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Quantity != 120 || bal.Value != 60 {
		t.Fatalf("unexpected balance %#v", bal)
	}
	balance, err := application.Accounting.Balance(ctx, m.ID)
	if err != nil {
		t.Fatalf("accounting balance: %v", err)
	}
	if balance != -30 {
		t.Fatalf("expected running balance -30, got %v", balance)
	}

	if len(application.Descriptors()) != 9 {
		t.Fatalf("expected 9 descriptors, got %d", len(application.Descriptors()))
	}
}

func TestApplicationRejectsBadJobSpec(t *testing.T) {
	if _, err := New(Stores{}, logger.Discard(), WithJobs(jobs.Config{LeaseSpec: "whenever"})); err == nil {
		t.Fatalf("expected invalid cron spec to fail construction")
	}
}
