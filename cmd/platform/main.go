package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ddpm-gov/relief/internal/adapters/civilreg"
	allocapi "github.com/ddpm-gov/relief/internal/allocation/api"
	allocdomain "github.com/ddpm-gov/relief/internal/allocation/domain"
	allocinfra "github.com/ddpm-gov/relief/internal/allocation/infrastructure"
	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/report"
	"github.com/ddpm-gov/relief/internal/shared/auth"
	"github.com/ddpm-gov/relief/internal/shared/config"
	"github.com/ddpm-gov/relief/internal/shared/database"
	"github.com/ddpm-gov/relief/internal/shared/events"
	"github.com/ddpm-gov/relief/internal/shared/metrics"
	secmiddleware "github.com/ddpm-gov/relief/internal/shared/middleware"
	"github.com/ddpm-gov/relief/internal/shelter"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Bus    *events.Bus
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Initialize database (optional - fall back to in-memory stores)
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running in limited mode with in-memory stores...")
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	// Initialize event bus (optional)
	bus, err := events.NewBus(ctx, cfg.EventStore)
	if err != nil {
		fmt.Printf("Warning: Event store not available: %v\n", err)
		fmt.Println("Running without event streaming...")
	} else {
		app.Bus = bus
		defer bus.Close()
		fmt.Println("Event bus initialized")
	}

	// Wire repositories: postgres when available, in-memory otherwise
	var (
		personRepo  person.Repository
		shelterRepo shelter.Repository
		assignRepo  allocdomain.Repository
	)
	if app.DB != nil {
		personRepo = person.NewPostgresRepository(app.DB.Pool)
		shelterRepo = shelter.NewPostgresRepository(app.DB.Pool)
		assignRepo = allocinfra.NewPostgresRepository(app.DB.Pool)
	} else {
		shelterMem := shelter.NewMemoryRepository()
		personRepo = person.NewMemoryRepository()
		shelterRepo = shelterMem
		assignRepo = allocinfra.NewMemoryRepository(shelterMem)
	}

	engine := allocdomain.NewEngine(personRepo, shelterRepo, assignRepo, app.Bus)
	reportService := report.NewService(personRepo, shelterRepo, assignRepo)

	// Civil-registry import (optional, one-shot)
	if cfg.CivilRegistry.Enabled {
		importer := civilreg.New(cfg.CivilRegistry, personRepo)
		if err := importer.Connect(ctx); err != nil {
			fmt.Printf("Warning: Civil registry not available: %v\n", err)
		} else {
			result, err := importer.Import(ctx)
			if err != nil {
				fmt.Printf("Warning: Civil registry import failed: %v\n", err)
			} else {
				fmt.Printf("Civil registry import: %d imported, %d skipped, %d failed\n",
					result.Imported, result.Skipped, result.Failed)
			}
			importer.Close()
		}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.RateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	r.Use(metrics.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		personHandler := person.NewHandler(personRepo, app.Bus)
		r.Mount("/persons", personHandler.Routes())

		shelterHandler := shelter.NewHandler(shelterRepo, app.Bus)
		r.Mount("/shelters", shelterHandler.Routes())

		allocHandler := allocapi.NewHandler(engine)
		r.Mount("/assignments", allocHandler.Routes())

		reportHandler := report.NewHandler(reportService)
		r.Mount("/reports", reportHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Emergency Shelter Allocation Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment:  %s\n", cfg.Server.Env)
	fmt.Printf("Server:       http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:          http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:       http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Event store:  %s:%d\n", cfg.EventStore.Host, cfg.EventStore.Port)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Emergency Shelter Allocation Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "in-memory"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(checks)
	}
}
