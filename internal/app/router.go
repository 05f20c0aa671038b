package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/fleetops-platform/api/internal/audit"
	"github.com/fleetops-platform/api/internal/config"
	"github.com/fleetops-platform/api/internal/handlers"
	"github.com/fleetops-platform/api/internal/httpx"
	"github.com/fleetops-platform/api/internal/middleware"
)

// Store joins the HTTP layer's persistence needs with the audit trail sink.
type Store interface {
	handlers.Store
	audit.Store
}

func NewRouter(cfg config.Config, st Store, logger *slog.Logger) (http.Handler, error) {
	specPath := cfg.OpenAPISpec
	if _, err := os.Stat(specPath); err != nil {
		return nil, fmt.Errorf("openapi spec not found at %s: %w", specPath, err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{PathPrefix: "/imports/", MaxBytes: cfg.ImportMaxFileBytes},
	}))

	api := chi.NewRouter()
	api.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			requestID := w.Header().Get("X-Request-Id")
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "validation_error", Message: message},
				RequestID: requestID,
			})
		},
	}))

	auditLogger := audit.NewLogger(st)
	h := handlers.NewServer(cfg, st, auditLogger, logger)

	importLimiter := middleware.NewIPRateLimiter(cfg.ImportRateLimit, time.Minute, cfg.RateLimitMaxIPs)
	importGuard := importLimiter.Middleware("Too many import requests, try again later")

	api.Get("/health", h.GetHealth)
	api.Get("/trucks", h.GetTrucks)
	api.With(importGuard).Post("/imports/trips", h.PostImportsTrips)
	api.With(importGuard).Post("/imports/services", h.PostImportsServices)

	r.Mount("/api", api)
	return r, nil
}
