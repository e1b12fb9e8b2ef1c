package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSalesSummaryCSVFormatsAmounts(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSalesSummaryCSV(&buf, []SalesSummaryRow{
		{BranchName: "Downtown", SaleCount: 12, Revenue: 12340.5},
		{BranchName: "Harbour", SaleCount: 3, Revenue: 99},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Branch,Sales,Revenue", lines[0])
	assert.Equal(t, `Downtown,12,"12,340.50"`, lines[1])
	assert.Equal(t, "Harbour,3,99.00", lines[2])
}

func TestWriteStockCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteStockCSV(&buf, []StockLevel{
		{LocationName: "Main", LocationKind: "warehouse", ProductName: "Cat food", OnHand: 40, MinQty: 10},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Location,Kind,Product,On Hand,Min Qty", lines[0])
	assert.Equal(t, "Main,warehouse,Cat food,40,10", lines[1])
}

func TestWriteOccupancyCSV(t *testing.T) {
	var buf bytes.Buffer
	rep := OccupancyReport{
		From:            day("2026-08-01"),
		To:              day("2026-08-08"),
		RoomCount:       4,
		AvailableNights: 28,
		OccupiedNights:  7,
		OccupancyRate:   0.25,
	}
	require.NoError(t, WriteOccupancyCSV(&buf, rep))

	out := buf.String()
	assert.Contains(t, out, "From,2026-08-01")
	assert.Contains(t, out, "Occupied Nights,7")
	assert.Contains(t, out, "Occupancy Rate,25.00")
}
