package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/fleetops-platform/api/internal/audit"
	"github.com/fleetops-platform/api/internal/config"
	"github.com/fleetops-platform/api/internal/importer"
	"github.com/fleetops-platform/api/internal/store"
)

// stubStore is an in-memory double for the persistence layer.
type stubStore struct {
	trucks   map[string]uuid.UUID
	trips    map[uuid.UUID][]importer.TripRecord
	services map[uuid.UUID][]importer.ServiceRecord
	audits   []audit.Entry
}

func newStubStore() *stubStore {
	return &stubStore{
		trucks:   map[string]uuid.UUID{},
		trips:    map[uuid.UUID][]importer.TripRecord{},
		services: map[uuid.UUID][]importer.ServiceRecord{},
	}
}

func (s *stubStore) UpsertTruck(_ context.Context, plate string, _ bool) (uuid.UUID, error) {
	if id, ok := s.trucks[plate]; ok {
		return id, nil
	}
	id := uuid.New()
	s.trucks[plate] = id
	return id, nil
}

func (s *stubStore) TripKeys(_ context.Context, truckID uuid.UUID) (map[string]struct{}, error) {
	keys := map[string]struct{}{}
	for _, trip := range s.trips[truckID] {
		keys[importer.TripKey(trip.Date, trip.OpeningKm)] = struct{}{}
	}
	return keys, nil
}

func (s *stubStore) InsertTrips(_ context.Context, trips []importer.TripRecord) error {
	for _, trip := range trips {
		s.trips[trip.TruckID] = append(s.trips[trip.TruckID], trip)
	}
	return nil
}

func (s *stubStore) ServiceKeys(_ context.Context, truckID uuid.UUID) (map[string]struct{}, error) {
	keys := map[string]struct{}{}
	for _, svc := range s.services[truckID] {
		keys[importer.ServiceKey(svc.Date, svc.OdometerKm, svc.Cost)] = struct{}{}
	}
	return keys, nil
}

func (s *stubStore) InsertServices(_ context.Context, services []importer.ServiceRecord) error {
	for _, svc := range services {
		s.services[svc.TruckID] = append(s.services[svc.TruckID], svc)
	}
	return nil
}

func (s *stubStore) UpdateTruckServicePlan(_ context.Context, _ uuid.UUID, _, _ *float64) error {
	return nil
}

func (s *stubStore) ListTrucks(_ context.Context) ([]store.Truck, error) {
	trucks := make([]store.Truck, 0, len(s.trucks))
	for plate, id := range s.trucks {
		trucks = append(trucks, store.Truck{ID: id, LicensePlate: plate})
	}
	return trucks, nil
}

func (s *stubStore) InsertAuditLog(_ context.Context, entry audit.Entry) error {
	s.audits = append(s.audits, entry)
	return nil
}

func testServer(st *stubStore) *Server {
	cfg := config.Config{
		ImportMaxFileBytes: 25 << 20,
		ImportCutoffDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		ImportMaxTripKm:    5000,
		HoursPlatePrefixes: []string{"FORKLIFT"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, st, audit.NewLogger(st), logger)
}

func tripWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "ND123456"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]any{
		{"Date", "Opening KM", "Litres", "Driver"},
		{"01.03.24", 120000, 50, "J Smith"},
		{"02.03.24", 120450, 60, "J Smith"},
	}
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("ND123456", cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeImportResponse(t *testing.T, rr *httptest.ResponseRecorder) ImportResponse {
	t.Helper()
	var resp ImportResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestPostImportsTrips(t *testing.T) {
	st := newStubStore()
	srv := testServer(st)

	req := multipartUpload(t, "/api/imports/trips", "fuel.xlsx", tripWorkbook(t))
	rr := httptest.NewRecorder()
	srv.PostImportsTrips(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeImportResponse(t, rr)
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if !strings.Contains(resp.Message, "2 trip records") {
		t.Fatalf("expected 2 trip records in message, got %q", resp.Message)
	}

	truckID, ok := st.trucks["ND123456"]
	if !ok {
		t.Fatalf("expected truck upserted, have %v", st.trucks)
	}
	if got := len(st.trips[truckID]); got != 2 {
		t.Fatalf("expected 2 trips persisted, got %d", got)
	}
	if len(st.audits) != 2 {
		t.Fatalf("expected start and complete audit entries, got %d", len(st.audits))
	}
	if st.audits[0].Action != "import.trips_started" || st.audits[1].Action != "import.trips_completed" {
		t.Fatalf("unexpected audit actions: %s, %s", st.audits[0].Action, st.audits[1].Action)
	}
}

func TestPostImportsTripsReimportAddsNothing(t *testing.T) {
	st := newStubStore()
	srv := testServer(st)
	data := tripWorkbook(t)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		srv.PostImportsTrips(rr, multipartUpload(t, "/api/imports/trips", "fuel.xlsx", data))
		if rr.Code != http.StatusOK {
			t.Fatalf("run %d: expected 200, got %d", i, rr.Code)
		}
	}

	truckID := st.trucks["ND123456"]
	if got := len(st.trips[truckID]); got != 2 {
		t.Fatalf("expected re-import to add nothing, got %d trips", got)
	}
}

func TestPostImportsTripsRejectsBadUploads(t *testing.T) {
	st := newStubStore()
	srv := testServer(st)

	t.Run("wrong extension", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.PostImportsTrips(rr, multipartUpload(t, "/api/imports/trips", "fuel.csv", []byte("a,b,c")))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "invalid_file_type") {
			t.Fatalf("expected invalid_file_type, got %s", rr.Body.String())
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		if err := writer.WriteField("other", "value"); err != nil {
			t.Fatalf("write field: %v", err)
		}
		writer.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/imports/trips", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rr := httptest.NewRecorder()
		srv.PostImportsTrips(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "missing_file") {
			t.Fatalf("expected missing_file, got %s", rr.Body.String())
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/imports/trips", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		srv.PostImportsTrips(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.PostImportsTrips(rr, multipartUpload(t, "/api/imports/trips", "fuel.xlsx", []byte("not a workbook")))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		resp := decodeImportResponse(t, rr)
		if resp.Success {
			t.Fatal("expected success=false for a corrupt workbook")
		}
		if !strings.HasPrefix(resp.Message, "Import failed:") {
			t.Fatalf("expected failure message, got %q", resp.Message)
		}
	})
}

func TestPostImportsServices(t *testing.T) {
	st := newStubStore()
	srv := testServer(st)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "ND123456"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]any{
		{"Date", "Opening KM", "Cost", "Supplier", "Comments"},
		{"15.03.24", 120000, 2500, "Main Dealer", "oil filter"},
	}
	for i, row := range rows {
		for j, value := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue("ND123456", cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rr := httptest.NewRecorder()
	srv.PostImportsServices(rr, multipartUpload(t, "/api/imports/services", "services.xlsx", buf.Bytes()))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeImportResponse(t, rr)
	if !resp.Success || !strings.Contains(resp.Message, "1 service records") {
		t.Fatalf("unexpected response %+v", resp)
	}

	truckID := st.trucks["ND123456"]
	services := st.services[truckID]
	if len(services) != 1 {
		t.Fatalf("expected 1 service persisted, got %d", len(services))
	}
	if !services[0].OilFilter {
		t.Fatal("expected oil filter flag")
	}
}

func TestGetTrucks(t *testing.T) {
	st := newStubStore()
	srv := testServer(st)
	if _, err := st.UpsertTruck(context.Background(), "ND123456", false); err != nil {
		t.Fatalf("seed truck: %v", err)
	}

	rr := httptest.NewRecorder()
	srv.GetTrucks(rr, httptest.NewRequest(http.MethodGet, "/api/trucks", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Trucks []store.Truck `json:"trucks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Trucks) != 1 || resp.Trucks[0].LicensePlate != "ND123456" {
		t.Fatalf("unexpected trucks payload: %+v", resp.Trucks)
	}
}

func TestGetHealth(t *testing.T) {
	srv := testServer(newStubStore())
	rr := httptest.NewRecorder()
	srv.GetHealth(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
