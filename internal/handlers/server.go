package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fleetops-platform/api/internal/audit"
	"github.com/fleetops-platform/api/internal/config"
	"github.com/fleetops-platform/api/internal/httpx"
	"github.com/fleetops-platform/api/internal/importer"
	"github.com/fleetops-platform/api/internal/store"
)

// Store is everything the HTTP layer needs from persistence: the import
// pipeline's collaborator plus the truck read-back query.
type Store interface {
	importer.Store
	ListTrucks(ctx context.Context) ([]store.Truck, error)
}

type Server struct {
	Config   config.Config
	Store    Store
	Audit    *audit.Logger
	Logger   *slog.Logger
	Importer *importer.Importer
}

func NewServer(cfg config.Config, st Store, auditLogger *audit.Logger, logger *slog.Logger) *Server {
	imp := importer.New(st, logger, importer.Options{
		CutoffDate:         cfg.ImportCutoffDate,
		MaxTripKm:          cfg.ImportMaxTripKm,
		HoursPlatePrefixes: cfg.HoursPlatePrefixes,
	})
	return &Server{Config: cfg, Store: st, Audit: auditLogger, Logger: logger, Importer: imp}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) GetTrucks(w http.ResponseWriter, r *http.Request) {
	trucks, err := s.Store.ListTrucks(r.Context())
	if err != nil {
		s.Logger.Error("list trucks", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load trucks", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"trucks": trucks})
}
