package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops-platform/api/internal/audit"
	"github.com/fleetops-platform/api/internal/importer"
)

// Store wraps the pgx pool with the queries the import pipeline and the
// read-back endpoints need.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Truck is the vehicle anchor every imported row hangs off.
type Truck struct {
	ID                uuid.UUID `json:"id"`
	LicensePlate      string    `json:"licensePlate"`
	HoursBased        bool      `json:"hoursBased"`
	NextServiceKm     *float64  `json:"nextServiceKm"`
	ServiceIntervalKm *float64  `json:"serviceIntervalKm"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UpsertTruck matches a vehicle by license plate, creating it on first
// sight. The no-op update makes RETURNING work on conflict.
func (s *Store) UpsertTruck(ctx context.Context, licensePlate string, hoursBased bool) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO trucks (license_plate, hours_based)
		VALUES ($1, $2)
		ON CONFLICT (license_plate) DO UPDATE SET updated_at = now()
		RETURNING id
	`, licensePlate, hoursBased).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert truck %s: %w", licensePlate, err)
	}
	return id, nil
}

func (s *Store) ListTrucks(ctx context.Context) ([]Truck, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, license_plate, hours_based, next_service_km, service_interval_km, created_at, updated_at
		FROM trucks
		ORDER BY license_plate
	`)
	if err != nil {
		return nil, fmt.Errorf("list trucks: %w", err)
	}
	defer rows.Close()

	trucks := []Truck{}
	for rows.Next() {
		var t Truck
		if err := rows.Scan(&t.ID, &t.LicensePlate, &t.HoursBased, &t.NextServiceKm, &t.ServiceIntervalKm, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan truck: %w", err)
		}
		trucks = append(trucks, t)
	}
	return trucks, rows.Err()
}

// TripKeys loads the dedup key set for a vehicle's persisted trips.
func (s *Store) TripKeys(ctx context.Context, truckID uuid.UUID) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trip_date, opening_km FROM trips WHERE truck_id = $1
	`, truckID)
	if err != nil {
		return nil, fmt.Errorf("load trip keys: %w", err)
	}
	defer rows.Close()

	keys := map[string]struct{}{}
	for rows.Next() {
		var date time.Time
		var opening *float64
		if err := rows.Scan(&date, &opening); err != nil {
			return nil, fmt.Errorf("scan trip key: %w", err)
		}
		keys[importer.TripKey(date, opening)] = struct{}{}
	}
	return keys, rows.Err()
}

func (s *Store) InsertTrips(ctx context.Context, trips []importer.TripRecord) error {
	batch := &pgx.Batch{}
	for _, t := range trips {
		batch.Queue(`
			INSERT INTO trips (truck_id, trip_date, opening_km, total_km, litres, driver, hours_based)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, t.TruckID, t.Date, t.OpeningKm, t.TotalKm, t.Litres, t.Driver, t.HoursBased)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range trips {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert trip batch: %w", err)
		}
	}
	return nil
}

// ServiceKeys loads the dedup key set for a vehicle's persisted services.
func (s *Store) ServiceKeys(ctx context.Context, truckID uuid.UUID) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT service_date, odometer_km, cost FROM services WHERE truck_id = $1
	`, truckID)
	if err != nil {
		return nil, fmt.Errorf("load service keys: %w", err)
	}
	defer rows.Close()

	keys := map[string]struct{}{}
	for rows.Next() {
		var date time.Time
		var odometer *float64
		var cost float64
		if err := rows.Scan(&date, &odometer, &cost); err != nil {
			return nil, fmt.Errorf("scan service key: %w", err)
		}
		keys[importer.ServiceKey(date, odometer, cost)] = struct{}{}
	}
	return keys, rows.Err()
}

func (s *Store) InsertServices(ctx context.Context, services []importer.ServiceRecord) error {
	batch := &pgx.Batch{}
	for _, svc := range services {
		batch.Queue(`
			INSERT INTO services (truck_id, service_date, odometer_km, supplier, comments, cost,
				oil_filter, diesel_filter, air_filter, tires, brakes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, svc.TruckID, svc.Date, svc.OdometerKm, svc.Supplier, svc.Comments, svc.Cost,
			svc.OilFilter, svc.DieselFilter, svc.AirFilter, svc.Tires, svc.Brakes)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range services {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert service batch: %w", err)
		}
	}
	return nil
}

// UpdateTruckServicePlan applies sheet-level annotations. Only provided
// fields change; a nil keeps the stored value.
func (s *Store) UpdateTruckServicePlan(ctx context.Context, truckID uuid.UUID, intervalKm, nextServiceKm *float64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE trucks
		SET service_interval_km = COALESCE($2, service_interval_km),
		    next_service_km = COALESCE($3, next_service_km),
		    updated_at = now()
		WHERE id = $1
	`, truckID, intervalKm, nextServiceKm)
	if err != nil {
		return fmt.Errorf("update service plan: %w", err)
	}
	return nil
}

func (s *Store) InsertAuditLog(ctx context.Context, entry audit.Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (action, entity_type, entity_id, request_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.Action, entry.EntityType, entry.EntityID, nullableString(entry.RequestID), metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
