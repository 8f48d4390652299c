package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSXRoundTrip(t *testing.T) {
	zones := []zone.Zone{{ID: "z1", Name: "North"}}
	parcels := []parcel.Parcel{
		{ID: "p1", Code: "N-01", Name: "Hill", ZoneID: "z1", AreaHectares: 2.5, Tenure: parcel.TenureOwned},
		{ID: "p2", Code: "N-02", Name: "Valley", ZoneID: "gone", AreaHectares: 1, Tenure: parcel.TenureLeased, AnnualLeaseCost: 300},
	}
	balances := []inventory.Balance{{Product: "cherry", Quantity: 40, Value: 20, AverageCost: 0.5}}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Parcels(parcels, zones), InventoryBalances(balances)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Parcels", "Stock"}, f.GetSheetList())

	rows, err := f.GetRows("Parcels")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Code", rows[0][1])
	assert.Equal(t, "North", rows[1][3])
	assert.Equal(t, "gone", rows[2][3], "unknown zone falls back to the id")
	assert.Equal(t, "leased", rows[2][6])

	panes, err := f.GetPanes("Parcels")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)

	styleID, err := f.GetCellStyle("Parcels", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteXLSXRejectsBadTables(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteXLSX(&buf))
	assert.Error(t, WriteXLSX(&buf, Table{Sheet: "x", Headers: []string{"a"}, Rows: [][]any{{1, 2}}}))
	assert.Error(t, WriteXLSX(&buf, Zones(nil), Zones(nil)))
}

func TestSummaryTable(t *testing.T) {
	tbl := Summary(accounting.Summary{
		TotalIncome:  100,
		TotalExpense: 40,
		Net:          60,
		ByCategory: map[accounting.Category]float64{
			accounting.CategorySales: 100,
			accounting.CategoryLabor: -40,
		},
	})
	require.Len(t, tbl.Rows, 5)
	assert.Equal(t, "labor", tbl.Rows[0][0])
	assert.Equal(t, "sales", tbl.Rows[1][0])
	assert.Equal(t, []any{"Net", 60.0}, tbl.Rows[4])
}

func TestSheetNameAndFilename(t *testing.T) {
	assert.Equal(t, "ab", sheetName("a/b", 0))
	assert.Equal(t, "Sheet3", sheetName("  ", 2))
	assert.Len(t, sheetName("an extremely long sheet name that overflows", 0), 31)
	assert.Equal(t, "zones-20250301.xlsx", Filename("zones", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
}
