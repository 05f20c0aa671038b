package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceRecord is one persisted maintenance event with boolean flags per
// maintenance item inferred from the supplier/comments text.
type ServiceRecord struct {
	TruckID      uuid.UUID
	Date         time.Time
	OdometerKm   *float64
	Supplier     string
	Comments     string
	Cost         float64
	OilFilter    bool
	DieselFilter bool
	AirFilter    bool
	Tires        bool
	Brakes       bool
}

// ServicePlan carries vehicle-level annotations found in a sheet, pushed
// as a side-effect update to the truck independent of per-row records.
type ServicePlan struct {
	IntervalKm    *float64
	NextServiceKm *float64
}

// ServiceKey is the dedup key for a service: date, odometer and expense.
func ServiceKey(date time.Time, odometer *float64, cost float64) string {
	reading := "-"
	if odometer != nil {
		reading = strconv.FormatFloat(*odometer, 'f', -1, 64)
	}
	return date.UTC().Format("2006-01-02") + "|" + reading + "|" + strconv.FormatFloat(cost, 'f', 2, 64)
}

// buildServiceRecords keeps rows with a valid date on/after the cutoff, a
// positive expense amount and some supplier or comments text, ordered
// chronologically like the trip batch. dropped reports pre-cutoff rows
// excluded from the batch.
func buildServiceRecords(truckID uuid.UUID, rows []NormalizedRow, cutoff time.Time) (services []ServiceRecord, dropped int) {
	kept := make([]NormalizedRow, 0, len(rows))
	for _, row := range rows {
		if row.Date.Before(cutoff) {
			dropped++
			continue
		}
		if !hasValue(row.Cost) || row.Cost <= 0 {
			continue
		}
		if row.Supplier == defaultLabel && row.Comments == "" {
			continue
		}
		kept = append(kept, row)
	}
	sortRows(kept, func(r NormalizedRow) float64 { return r.OpeningKm })

	services = make([]ServiceRecord, 0, len(kept))
	for _, row := range kept {
		text := strings.ToLower(row.Supplier + " " + row.Comments)
		services = append(services, ServiceRecord{
			TruckID:      truckID,
			Date:         row.Date,
			OdometerKm:   floatPtr(row.OpeningKm),
			Supplier:     row.Supplier,
			Comments:     row.Comments,
			Cost:         row.Cost,
			OilFilter:    strings.Contains(text, "oil"),
			DieselFilter: strings.Contains(text, "diesel"),
			AirFilter:    strings.Contains(text, "air"),
			Tires:        strings.Contains(text, "tyre") || strings.Contains(text, "tire"),
			Brakes:       strings.Contains(text, "brake") || strings.Contains(text, "skim"),
		})
	}
	return services, dropped
}

var serviceIntervalPattern = regexp.MustCompile(`(?i)service\s*interval\D*(\d[\d\s.,]*)`)

// extractServicePlan is a separate pass over the raw grid: the interval
// comes from any free-text annotation mentioning "SERVICE INTERVAL", the
// next-service threshold is the last positive value in the next-service
// column scanning from the bottom.
func extractServicePlan(grid [][]CellValue, header HeaderIndex) ServicePlan {
	plan := ServicePlan{}

	for _, row := range grid {
		for _, cell := range row {
			if cell.Kind != CellText {
				continue
			}
			m := serviceIntervalPattern.FindStringSubmatch(cell.Text)
			if m == nil {
				continue
			}
			if n := cellNumber(textCell(m[1])); hasValue(n) && n > 0 {
				plan.IntervalKm = floatPtr(n)
			}
		}
		if plan.IntervalKm != nil {
			break
		}
	}

	nextCol := header.Col(colNextService, "next service")
	if nextCol >= 0 {
		for i := len(grid) - 1; i >= 0; i-- {
			n := cellNumber(cellAt(grid[i], nextCol))
			if hasValue(n) && n > 0 {
				plan.NextServiceKm = floatPtr(n)
				break
			}
		}
	}
	return plan
}
