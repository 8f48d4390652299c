package export

import (
	"sort"
	"strings"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/processing"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
)

func Members(members []member.Member) Table {
	t := Table{
		Sheet:   "Members",
		Headers: []string{"ID", "Name", "Email", "Phone", "Role", "Active", "Metadata", "Created"},
	}
	for _, m := range members {
		t.Rows = append(t.Rows, []any{
			m.ID, m.Name, m.Email, m.Phone, string(m.Role), yesNo(m.Active), metadata(m.Metadata), timestamp(m.CreatedAt),
		})
	}
	return t
}

func Zones(zones []zone.Zone) Table {
	t := Table{
		Sheet:   "Zones",
		Headers: []string{"ID", "Name", "Description", "Area (ha)", "Created"},
	}
	for _, z := range zones {
		t.Rows = append(t.Rows, []any{z.ID, z.Name, z.Description, z.AreaHectares, timestamp(z.CreatedAt)})
	}
	return t
}

// Parcels resolves zone names from zones; unknown zone IDs are written as is.
func Parcels(parcels []parcel.Parcel, zones []zone.Zone) Table {
	names := zoneNames(zones)
	t := Table{
		Sheet:   "Parcels",
		Headers: []string{"ID", "Code", "Name", "Zone", "Area (ha)", "Crop", "Tenure", "Annual lease cost", "Created"},
	}
	for _, p := range parcels {
		t.Rows = append(t.Rows, []any{
			p.ID, p.Code, p.Name, lookup(names, p.ZoneID), p.AreaHectares, p.Crop, string(p.Tenure), p.AnnualLeaseCost, timestamp(p.CreatedAt),
		})
	}
	return t
}

func Harvesters(harvesters []harvester.Harvester, zones []zone.Zone) Table {
	names := zoneNames(zones)
	t := Table{
		Sheet:   "Harvesters",
		Headers: []string{"ID", "Name", "National ID", "Phone", "Zone", "Rate per unit", "Active", "Created"},
	}
	for _, h := range harvesters {
		t.Rows = append(t.Rows, []any{
			h.ID, h.Name, h.NationalID, h.Phone, lookup(names, h.ZoneID), h.RatePerUnit, yesNo(h.Active), timestamp(h.CreatedAt),
		})
	}
	return t
}

func Activities(activities []activity.Activity) Table {
	t := Table{
		Sheet: "Activities",
		Headers: []string{
			"ID", "Date", "Type", "Parcel", "Harvester", "Product", "Quantity", "Unit",
			"Labor cost", "Input cost", "Admission", "Notes",
		},
	}
	for _, a := range activities {
		t.Rows = append(t.Rows, []any{
			a.ID, date(a.PerformedOn), string(a.Type), a.ParcelID, a.HarvesterID, a.Product, a.Quantity, a.Unit,
			a.LaborCost, a.InputCost, a.AdmissionID, a.Notes,
		})
	}
	return t
}

func Admissions(admissions []admission.Admission) Table {
	t := Table{
		Sheet: "Admissions",
		Headers: []string{
			"ID", "Date", "Source", "Product", "Grade", "Quantity", "Unit", "Unit cost", "Value",
			"Parcel", "Harvester", "Supplier", "Activity", "Inventory item",
		},
	}
	for _, a := range admissions {
		t.Rows = append(t.Rows, []any{
			a.ID, date(a.AdmittedOn), string(a.Source), a.Product, a.Grade, a.Quantity, a.Unit, a.UnitCost, a.Value(),
			a.ParcelID, a.HarvesterID, a.Supplier, a.ActivityID, a.InventoryItemID,
		})
	}
	return t
}

func ProcessingRuns(runs []processing.Run) Table {
	t := Table{
		Sheet: "Processing",
		Headers: []string{
			"ID", "Date", "Type", "Input product", "Input quantity", "Output product", "Output quantity",
			"Yield", "Processing cost", "Notes",
		},
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, []any{
			r.ID, date(r.ProcessedOn), string(r.Type), r.InputProduct, r.InputQuantity, r.OutputProduct, r.OutputQuantity,
			r.Yield(), r.ProcessingCost, r.Notes,
		})
	}
	return t
}

func InventoryItems(items []inventory.Item) Table {
	t := Table{
		Sheet: "Inventory items",
		Headers: []string{
			"ID", "Date", "Product", "Direction", "Quantity", "Unit cost", "Value", "Reference",
			"Balance quantity", "Balance value",
		},
	}
	for _, i := range items {
		t.Rows = append(t.Rows, []any{
			i.ID, date(i.OccurredOn), i.Product, string(i.Direction), i.Quantity, i.UnitCost, i.Value, i.Reference,
			i.BalanceQuantity, i.BalanceValue,
		})
	}
	return t
}

func InventoryBalances(balances []inventory.Balance) Table {
	t := Table{
		Sheet:   "Stock",
		Headers: []string{"Product", "Quantity", "Value", "Average cost", "Last movement"},
	}
	for _, b := range balances {
		t.Rows = append(t.Rows, []any{b.Product, b.Quantity, b.Value, b.AverageCost, date(b.LastMovementAt)})
	}
	return t
}

func Entries(entries []accounting.Entry) Table {
	t := Table{
		Sheet: "Accounting",
		Headers: []string{
			"ID", "Date", "Kind", "Category", "Amount", "Description", "Reference", "Running balance",
		},
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []any{
			e.ID, date(e.OccurredOn), string(e.Kind), string(e.Category), e.Amount, e.Description, e.Reference, e.RunningBalance,
		})
	}
	return t
}

// Summary renders per-category totals with income and expense footers.
func Summary(s accounting.Summary) Table {
	t := Table{
		Sheet:   "Summary",
		Headers: []string{"Category", "Amount"},
	}
	categories := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		t.Rows = append(t.Rows, []any{c, s.ByCategory[accounting.Category(c)]})
	}
	t.Rows = append(t.Rows,
		[]any{"Total income", s.TotalIncome},
		[]any{"Total expense", s.TotalExpense},
		[]any{"Net", s.Net},
	)
	return t
}

func zoneNames(zones []zone.Zone) map[string]string {
	names := make(map[string]string, len(zones))
	for _, z := range zones {
		names[z.ID] = z.Name
	}
	return names
}

func lookup(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func metadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, "; ")
}
