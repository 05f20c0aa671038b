package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence collaborator. The importer only upserts the
// vehicle anchor, reads existing dedup keys and hands over novel batches;
// it never mutates records after insertion.
type Store interface {
	UpsertTruck(ctx context.Context, licensePlate string, hoursBased bool) (uuid.UUID, error)
	TripKeys(ctx context.Context, truckID uuid.UUID) (map[string]struct{}, error)
	InsertTrips(ctx context.Context, trips []TripRecord) error
	ServiceKeys(ctx context.Context, truckID uuid.UUID) (map[string]struct{}, error)
	InsertServices(ctx context.Context, services []ServiceRecord) error
	UpdateTruckServicePlan(ctx context.Context, truckID uuid.UUID, intervalKm, nextServiceKm *float64) error
}

// Options tune the pipeline. MaxTripKm defaults to 5000 when unset.
type Options struct {
	CutoffDate         time.Time
	MaxTripKm          float64
	HoursPlatePrefixes []string
}

// Summary reports one import run. RowsSkipped covers rows dropped for an
// unparseable date as well as rows before the cutoff. Message renders the
// user-facing line.
type Summary struct {
	SheetsProcessed   int
	SheetsSkipped     int
	RecordsImported   int
	DuplicatesSkipped int
	RowsSkipped       int
}

func (s Summary) Message(kind string) string {
	return fmt.Sprintf(
		"Imported %d %s records across %d vehicles (%d sheets skipped, %d duplicates suppressed, %d rows skipped)",
		s.RecordsImported, kind, s.SheetsProcessed, s.SheetsSkipped, s.DuplicatesSkipped, s.RowsSkipped,
	)
}

// Importer runs one synchronous batch per uploaded workbook. Sheets are
// processed in workbook order; a failure in one vehicle's sheet is logged
// and isolated, never fatal to the rest of the run.
type Importer struct {
	store  Store
	logger *slog.Logger
	opts   Options
}

func New(store Store, logger *slog.Logger, opts Options) *Importer {
	if opts.MaxTripKm <= 0 {
		opts.MaxTripKm = 5000
	}
	return &Importer{store: store, logger: logger, opts: opts}
}

// ImportTrips ingests a trip-history workbook: one sheet per vehicle,
// sheet name = license plate. Only an unreadable workbook is fatal.
func (imp *Importer) ImportTrips(ctx context.Context, data []byte) (Summary, error) {
	wb, err := ReadWorkbook(data)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	for _, sheet := range wb.Sheets {
		imp.importTripSheet(ctx, sheet, &summary)
	}
	return summary, nil
}

func (imp *Importer) importTripSheet(ctx context.Context, sheet Sheet, summary *Summary) {
	rows, _, truckID, ok := imp.prepareSheet(ctx, sheet, summary)
	if !ok {
		return
	}

	var trips []TripRecord
	var dropped int
	if imp.isHoursBased(sheet.Name) {
		trips, dropped = buildHoursTrips(truckID, rows, imp.opts.CutoffDate)
	} else {
		trips, dropped = buildDistanceTrips(truckID, rows, imp.opts.CutoffDate, imp.opts.MaxTripKm)
	}
	summary.RowsSkipped += dropped

	existing, err := imp.store.TripKeys(ctx, truckID)
	if err != nil {
		imp.logger.Error("load trip keys", "plate", sheet.Name, "error", err)
		summary.SheetsSkipped++
		return
	}
	novel := trips[:0:0]
	for _, trip := range trips {
		if _, dup := existing[TripKey(trip.Date, trip.OpeningKm)]; dup {
			summary.DuplicatesSkipped++
			continue
		}
		novel = append(novel, trip)
	}

	if len(novel) > 0 {
		if err := imp.store.InsertTrips(ctx, novel); err != nil {
			imp.logger.Error("insert trips", "plate", sheet.Name, "error", err)
			summary.SheetsSkipped++
			return
		}
	}
	summary.SheetsProcessed++
	summary.RecordsImported += len(novel)
}

// ImportServices ingests the companion service/expense workbook. Besides
// per-row records it pushes sheet-level annotations (service interval,
// next-service threshold) onto the vehicle.
func (imp *Importer) ImportServices(ctx context.Context, data []byte) (Summary, error) {
	wb, err := ReadWorkbook(data)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	for _, sheet := range wb.Sheets {
		imp.importServiceSheet(ctx, sheet, &summary)
	}
	return summary, nil
}

func (imp *Importer) importServiceSheet(ctx context.Context, sheet Sheet, summary *Summary) {
	rows, header, truckID, ok := imp.prepareSheet(ctx, sheet, summary)
	if !ok {
		return
	}

	if plan := extractServicePlan(sheet.Grid, header); plan.IntervalKm != nil || plan.NextServiceKm != nil {
		if err := imp.store.UpdateTruckServicePlan(ctx, truckID, plan.IntervalKm, plan.NextServiceKm); err != nil {
			imp.logger.Error("update service plan", "plate", sheet.Name, "error", err)
		}
	}

	services, dropped := buildServiceRecords(truckID, rows, imp.opts.CutoffDate)
	summary.RowsSkipped += dropped
	existing, err := imp.store.ServiceKeys(ctx, truckID)
	if err != nil {
		imp.logger.Error("load service keys", "plate", sheet.Name, "error", err)
		summary.SheetsSkipped++
		return
	}
	novel := services[:0:0]
	for _, svc := range services {
		if _, dup := existing[ServiceKey(svc.Date, svc.OdometerKm, svc.Cost)]; dup {
			summary.DuplicatesSkipped++
			continue
		}
		novel = append(novel, svc)
	}

	if len(novel) > 0 {
		if err := imp.store.InsertServices(ctx, novel); err != nil {
			imp.logger.Error("insert services", "plate", sheet.Name, "error", err)
			summary.SheetsSkipped++
			return
		}
	}
	summary.SheetsProcessed++
	summary.RecordsImported += len(novel)
}

// prepareSheet runs the shared front half of both pipelines: short-sheet
// and missing-header checks, row normalization and the vehicle upsert.
func (imp *Importer) prepareSheet(ctx context.Context, sheet Sheet, summary *Summary) ([]NormalizedRow, HeaderIndex, uuid.UUID, bool) {
	if len(sheet.Grid) < 2 {
		summary.SheetsSkipped++
		return nil, nil, uuid.Nil, false
	}
	header, dataStart, found := locateHeader(sheet.Grid)
	if !found {
		imp.logger.Warn("no header row", "sheet", sheet.Name)
		summary.SheetsSkipped++
		return nil, nil, uuid.Nil, false
	}

	rows, skipped := normalizeRows(sheet.Grid, dataStart, header)
	summary.RowsSkipped += skipped

	plate := canonicalPlate(sheet.Name)
	truckID, err := imp.store.UpsertTruck(ctx, plate, imp.isHoursBased(sheet.Name))
	if err != nil {
		imp.logger.Error("upsert truck", "plate", plate, "error", err)
		summary.SheetsSkipped++
		return nil, nil, uuid.Nil, false
	}
	return rows, header, truckID, true
}

func (imp *Importer) isHoursBased(sheetName string) bool {
	plate := canonicalPlate(sheetName)
	for _, prefix := range imp.opts.HoursPlatePrefixes {
		p := strings.ToUpper(strings.TrimSpace(prefix))
		if p != "" && strings.HasPrefix(plate, p) {
			return true
		}
	}
	return false
}

func canonicalPlate(sheetName string) string {
	return strings.ToUpper(strings.TrimSpace(sheetName))
}
