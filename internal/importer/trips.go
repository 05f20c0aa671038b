package importer

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TripRecord is one persisted trip row. For hours-based vehicles the
// reading columns hold operating hours and HoursBased drives unit display.
type TripRecord struct {
	TruckID    uuid.UUID
	Date       time.Time
	OpeningKm  *float64
	TotalKm    float64
	Litres     *float64
	Driver     string
	HoursBased bool
}

// TripKey is the dedup key for a trip: calendar date plus opening reading.
// Both sides of a comparison must build keys with this function.
func TripKey(date time.Time, opening *float64) string {
	reading := "-"
	if opening != nil {
		reading = strconv.FormatFloat(*opening, 'f', -1, 64)
	}
	return date.UTC().Format("2006-01-02") + "|" + reading
}

// buildDistanceTrips turns one vehicle's normalized rows into the ordered
// trip batch for rows on/after the cutoff date. The first surviving row is
// a baseline: zero distance and no litres, it records starting state
// rather than travel. Later rows get the delta from the last known
// odometer reading, falling back to an explicit km column; deltas outside
// [0, maxTripKm] are treated as data-entry errors and zeroed. dropped
// reports pre-cutoff rows excluded from the batch.
func buildDistanceTrips(truckID uuid.UUID, rows []NormalizedRow, cutoff time.Time, maxTripKm float64) (trips []TripRecord, dropped int) {
	kept := make([]NormalizedRow, 0, len(rows))
	for _, row := range rows {
		if hasValue(row.OpeningKm) || hasValue(row.Litres) {
			kept = append(kept, row)
		}
	}
	sortRows(kept, func(r NormalizedRow) float64 { return r.OpeningKm })

	trips = make([]TripRecord, 0, len(kept))
	prevOpening := 0.0
	prevKnown := false
	for _, row := range kept {
		if row.Date.Before(cutoff) {
			dropped++
			continue
		}

		if len(trips) == 0 {
			trips = append(trips, TripRecord{
				TruckID:   truckID,
				Date:      row.Date,
				OpeningKm: floatPtr(row.OpeningKm),
				TotalKm:   0,
				Litres:    nil,
				Driver:    row.Driver,
			})
			if hasValue(row.OpeningKm) {
				prevOpening = row.OpeningKm
				prevKnown = true
			}
			continue
		}

		total := 0.0
		switch {
		case prevKnown && hasValue(row.OpeningKm) && row.OpeningKm > prevOpening:
			total = row.OpeningKm - prevOpening
		case hasValue(row.DistanceKm) && row.DistanceKm > 0:
			total = row.DistanceKm
		}
		if total < 0 || total > maxTripKm {
			total = 0
		}

		trips = append(trips, TripRecord{
			TruckID:   truckID,
			Date:      row.Date,
			OpeningKm: floatPtr(row.OpeningKm),
			TotalKm:   total,
			Litres:    floatPtr(row.Litres),
			Driver:    row.Driver,
		})
		if hasValue(row.OpeningKm) {
			prevOpening = row.OpeningKm
			prevKnown = true
		}
	}
	return trips, dropped
}

// buildHoursTrips is the hours-based variant used for equipment metered in
// operating hours (forklifts). The reading column is "opening hours",
// there is no distance fallback, and no upper clamp since hour deltas stay
// naturally small.
func buildHoursTrips(truckID uuid.UUID, rows []NormalizedRow, cutoff time.Time) (trips []TripRecord, dropped int) {
	kept := make([]NormalizedRow, 0, len(rows))
	for _, row := range rows {
		if hasValue(row.OpeningHours) || hasValue(row.Litres) {
			kept = append(kept, row)
		}
	}
	sortRows(kept, func(r NormalizedRow) float64 { return r.OpeningHours })

	trips = make([]TripRecord, 0, len(kept))
	prevHours := 0.0
	prevKnown := false
	for _, row := range kept {
		if row.Date.Before(cutoff) {
			dropped++
			continue
		}

		if len(trips) == 0 {
			trips = append(trips, TripRecord{
				TruckID:    truckID,
				Date:       row.Date,
				OpeningKm:  floatPtr(row.OpeningHours),
				TotalKm:    0,
				Litres:     nil,
				Driver:     row.Driver,
				HoursBased: true,
			})
			if hasValue(row.OpeningHours) {
				prevHours = row.OpeningHours
				prevKnown = true
			}
			continue
		}

		total := 0.0
		if prevKnown && hasValue(row.OpeningHours) && row.OpeningHours > prevHours {
			total = row.OpeningHours - prevHours
		}

		trips = append(trips, TripRecord{
			TruckID:    truckID,
			Date:       row.Date,
			OpeningKm:  floatPtr(row.OpeningHours),
			TotalKm:    total,
			Litres:     floatPtr(row.Litres),
			Driver:     row.Driver,
			HoursBased: true,
		})
		if hasValue(row.OpeningHours) {
			prevHours = row.OpeningHours
			prevKnown = true
		}
	}
	return trips, dropped
}

// sortRows orders chronologically with the reading as tiebreaker for
// same-day rows. Rows without a reading sort first within their day.
// Downstream dedup depends on this ordering being deterministic.
func sortRows(rows []NormalizedRow, reading func(NormalizedRow) float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return sortValue(reading(rows[i])) < sortValue(reading(rows[j]))
	})
}

func sortValue(n float64) float64 {
	if !hasValue(n) {
		return -1
	}
	return n
}
