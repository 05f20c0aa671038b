package importer

import (
	"math"
	"strings"
	"time"
)

// defaultLabel stands in for absent driver/supplier text so downstream
// grouping never sees empty labels.
const defaultLabel = "N/A"

// NormalizedRow is the semantic content of one data row. Numeric fields
// are NaN when the column is missing or garbled; Date is zero only while
// the row is being built (rows without a parseable date are dropped).
type NormalizedRow struct {
	Date         time.Time
	OpeningKm    float64
	OpeningHours float64
	DistanceKm   float64
	Litres       float64
	Cost         float64
	NextService  float64
	Driver       string
	Supplier     string
	Comments     string
}

// normalizeRows converts every non-blank data row below the header into a
// NormalizedRow. Rows whose date cannot be parsed are dropped and counted;
// missing columns yield NaN or defaulted text rather than errors.
func normalizeRows(grid [][]CellValue, dataStart int, header HeaderIndex) (rows []NormalizedRow, skipped int) {
	for i := dataStart; i < len(grid); i++ {
		raw := grid[i]
		if isBlankRow(raw) {
			continue
		}
		date, ok := parseCellDate(cellAt(raw, header.Col(colDate)))
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, NormalizedRow{
			Date:         date,
			OpeningKm:    cellNumber(cellAt(raw, header.Col(colOpeningKm, "opening"))),
			OpeningHours: cellNumber(cellAt(raw, header.Col(colOpeningHours))),
			DistanceKm:   cellNumber(cellAt(raw, header.Col(colKm, "kms"))),
			Litres:       cellNumber(cellAt(raw, header.Col(colLitres, "liters"))),
			Cost:         cellNumber(cellAt(raw, header.Col(colCost, "amount"))),
			NextService:  cellNumber(cellAt(raw, header.Col(colNextService, "next service"))),
			Driver:       textAt(raw, header.Col(colDriver)),
			Supplier:     textAt(raw, header.Col(colSupplier)),
			Comments:     rawTextAt(raw, header.Col(colComments, "comment")),
		})
	}
	return rows, skipped
}

func isBlankRow(row []CellValue) bool {
	for _, cell := range row {
		if cell.Kind != CellEmpty {
			return false
		}
	}
	return true
}

func cellAt(row []CellValue, idx int) CellValue {
	if idx < 0 || idx >= len(row) {
		return emptyCell()
	}
	return row[idx]
}

func textAt(row []CellValue, idx int) string {
	s := rawTextAt(row, idx)
	if s == "" {
		return defaultLabel
	}
	return s
}

func rawTextAt(row []CellValue, idx int) string {
	return strings.TrimSpace(cellAt(row, idx).String())
}

func floatPtr(n float64) *float64 {
	if math.IsNaN(n) {
		return nil
	}
	return &n
}
