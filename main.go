package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Linanok/Linanok/cache"
	"github.com/Linanok/Linanok/config"
	"github.com/Linanok/Linanok/geoip"
	"github.com/Linanok/Linanok/handler"
	appLogger "github.com/Linanok/Linanok/logger"
	"github.com/Linanok/Linanok/middleware"
	redisClient "github.com/Linanok/Linanok/redis"
	"github.com/Linanok/Linanok/store"
	"github.com/Linanok/Linanok/visits"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize logger
	appLogger.Initialize()

	// Load configuration, then apply its logging section
	cfg := config.MustLoadConfig()
	appLogger.Configure(cfg.Log)
	log.Info().Msg("Configuration loaded successfully")

	// Open the relational store and run migrations
	db, err := store.Open(context.Background(), cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	linkStore := store.NewLinkStore(db)
	domainStore := store.NewDomainStore(db)
	visitStore := store.NewVisitStore(db)

	// Initialize Redis client (visit queue and password throttling)
	rdb, err := redisClient.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("Failed to connect to Redis")
	}

	// Initialize cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	// GeoIP resolver degrades to empty countries when no database is present
	geoResolver := geoip.Open(cfg.GeoIP.DatabasePath)

	// Start the background visit recorders
	visitQueue := visits.NewQueue(rdb, cfg.Visits.QueueKey)
	workerPool := visits.NewWorkerPool(visitQueue, visitStore, geoResolver, cfg.Visits.Workers, cfg.Visits.MaxRetries)
	workerPool.Start()

	// Create handler with dependency injection
	h := handler.New(cfg, linkStore, domainStore, visitStore, cacheClient, rdb, visitQueue)

	// Set up router
	r := mux.NewRouter()

	// Apply global middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.WebServer.TrustProxyHeaders)

	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)
	r.Use(rateLimiter.Limit)

	// Register routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/qr/{shortPath:.*}", h.GenerateQR).Methods("GET")

	// Admin API, gated by serving domain and API key
	adminAuth := middleware.NewAdminAuth(cfg.Admin.APIKey, cfg.Admin.SuperAdminKey, cfg.Admin.AuthEnabled)
	adminAccess := middleware.NewAdminAccess(domainStore, cfg.WebServer.TrustProxyHeaders)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(adminAuth.Protect)
	api.Use(adminAccess.Gate)
	api.HandleFunc("/domains", h.CreateDomain).Methods("POST")
	api.HandleFunc("/domains", h.ListDomains).Methods("GET")
	api.HandleFunc("/domains/current", h.CreateCurrentDomain).Methods("POST")
	api.HandleFunc("/domains/{id:[0-9]+}", h.GetDomain).Methods("GET")
	api.HandleFunc("/domains/{id:[0-9]+}", h.UpdateDomain).Methods("PUT")
	api.HandleFunc("/domains/{id:[0-9]+}", h.DeleteDomain).Methods("DELETE")
	api.HandleFunc("/links", h.CreateLink).Methods("POST")
	api.HandleFunc("/links", h.ListLinks).Methods("GET")
	api.HandleFunc("/links/{id:[0-9]+}", h.GetLink).Methods("GET")
	api.HandleFunc("/links/{id:[0-9]+}", h.UpdateLink).Methods("PUT")
	api.HandleFunc("/links/{id:[0-9]+}", h.DeleteLink).Methods("DELETE")
	api.HandleFunc("/links/{id:[0-9]+}/visits", h.ListLinkVisits).Methods("GET")

	// Redirect route (must be last, the token may contain path separators)
	r.HandleFunc("/{shortPath:.*}", h.Redirect).Methods("GET")
	r.HandleFunc("/{shortPath:.*}", h.VerifyPassword).Methods("POST")

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Drain the visit workers before closing their dependencies
	workerPool.Stop()

	if cacheClient != nil {
		cacheClient.Close()
	}
	geoResolver.Close()

	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Server stopped gracefully")
}
