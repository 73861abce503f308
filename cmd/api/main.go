package main

import (
	"net/http"
	"os"

	"vendhub-portal-api/internal/application"
	"vendhub-portal-api/internal/config"
	"vendhub-portal-api/internal/infrastructure/api"
	"vendhub-portal-api/internal/infrastructure/metrics"
	"vendhub-portal-api/internal/infrastructure/shopify"
	"vendhub-portal-api/internal/infrastructure/storefront"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize infrastructure (implementations)
	adminClient, err := shopify.NewAdminClient(cfg.StoreDomain, cfg.AdminAccessToken, cfg.APIVersion, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Shopify admin client")
	}

	// Initialize application services
	authService := application.NewAuthService(cfg.AdminEmail, cfg.AdminPassword, cfg.JWTSecret, logger)
	requestService := application.NewRequestService(adminClient, logger)

	var portalService *application.PortalService
	if cfg.StorefrontAccessToken != "" {
		storefrontClient := storefront.NewClient(cfg.StoreDomain, cfg.StorefrontAccessToken, cfg.APIVersion, logger)
		portalService = application.NewPortalService(storefrontClient, logger)
	} else {
		logger.Warn().Msg("SHOPIFY_STOREFRONT_ACCESS_TOKEN not set, portal routes disabled")
	}

	handler := api.NewHandler(authService, requestService, portalService, logger)
	requestMetrics := metrics.New()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", requestMetrics.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, req, "./docs/swagger.json")
	})

	// API routes
	r.Route("/api", handler.Routes)

	logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreDomain).Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
