package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var csvPrinter = message.NewPrinter(language.English)

// WriteStockCSV serialises stock level rows to CSV.
func WriteStockCSV(w io.Writer, rows []StockLevel) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Location", "Kind", "Product", "On Hand", "Min Qty"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.LocationName,
			row.LocationKind,
			row.ProductName,
			formatInt(row.OnHand),
			formatInt(row.MinQty),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSalesSummaryCSV emits the per-branch sales summary as CSV.
func WriteSalesSummaryCSV(w io.Writer, rows []SalesSummaryRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Branch", "Sales", "Revenue"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.BranchName,
			formatInt(row.SaleCount),
			formatFloat(row.Revenue),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteOccupancyCSV prints the occupancy report as metric/value pairs.
func WriteOccupancyCSV(w io.Writer, rep OccupancyReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"From", rep.From.Format("2006-01-02")},
		{"To", rep.To.Format("2006-01-02")},
		{"Rooms", formatInt(rep.RoomCount)},
		{"Available Nights", formatInt(rep.AvailableNights)},
		{"Occupied Nights", formatInt(rep.OccupiedNights)},
		{"Occupancy Rate", formatFloat(rep.OccupancyRate * 100)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// formatFloat renders amounts with grouping separators, e.g. 12,340.50.
func formatFloat(v float64) string {
	return csvPrinter.Sprintf("%.2f", v)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
