package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appscans "github.com/bryanwahyu/thoraxsense/internal/application/scans"
	"github.com/bryanwahyu/thoraxsense/internal/config"
	"github.com/bryanwahyu/thoraxsense/internal/domain/history"
	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
	"github.com/bryanwahyu/thoraxsense/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/thoraxsense/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/thoraxsense/internal/infra/db/postgres"
	"github.com/bryanwahyu/thoraxsense/internal/infra/fallback"
	"github.com/bryanwahyu/thoraxsense/internal/infra/httpserver"
	"github.com/bryanwahyu/thoraxsense/internal/infra/inference"
	openaiInfer "github.com/bryanwahyu/thoraxsense/internal/infra/inference/openai"
	"github.com/bryanwahyu/thoraxsense/internal/infra/sessions"
	minioStore "github.com/bryanwahyu/thoraxsense/internal/infra/storage"
	"github.com/bryanwahyu/thoraxsense/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	// init history repo sesuai driver
	var repo history.Repository
	var db *sql.DB
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewHistoryRepository(db)
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = postgresp.NewHistoryRepository(db)
	default:
		// mode demo: in-memory + baris contoh
		mem := memory.NewHistoryRepository()
		mem.Seed(demoEntries())
		repo = mem
	}
	if db != nil {
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// init diagnoser sesuai backend
	var diagnoser domain.Diagnoser
	switch cfg.Inference.Backend {
	case "openai":
		diagnoser = openaiInfer.NewClient(cfg.Inference.OpenAIKey, cfg.Inference.OpenAIModel)
	default:
		diagnoser = inference.NewHTTPClient(cfg.Inference.Endpoint, time.Duration(cfg.Inference.TimeoutSeconds)*time.Second)
		checkers["inference"] = &middleware.InferenceHealthChecker{Endpoint: cfg.Inference.Endpoint}
	}

	// init minio (opsional)
	var images domain.ImageStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		images = store
	}

	// init service
	svc := &appscans.Service{
		Sessions:  sessions.New(30 * time.Minute),
		Diagnoser: diagnoser,
		Fallback:  fallback.NewGenerator(time.Duration(cfg.Fallback.DelayMS) * time.Millisecond),
		History:   repo,
		Images:    images,
		Clock:     appscans.SystemClock{},
		Notify: func(src domain.Source) {
			middleware.IncrementScansReady()
			if src == domain.SourceFallback {
				middleware.IncrementScansFallback()
			}
		},
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	}
	mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	maxUpload := int64(cfg.Server.MaxUploadMB) << 20
	mux.Mount("/", httpserver.NewRouter(svc, maxUpload, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// demoEntries baris riwayat contoh untuk mode demo (driver none)
func demoEntries() []*history.Entry {
	pneumonia := domain.FallbackCatalog[0]
	normal := domain.FallbackCatalog[2]
	return []*history.Entry{
		{
			ID:              "seed-0001-xray",
			TenantID:        "demo",
			ScannedAt:       time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
			Disease:         pneumonia.Disease,
			Confidence:      "87%",
			Source:          string(domain.SourceFallback),
			Findings:        pneumonia.Findings,
			Recommendations: pneumonia.Recommendations,
		},
		{
			ID:              "seed-0002-xray",
			TenantID:        "demo",
			ScannedAt:       time.Date(2024, 1, 14, 14, 10, 0, 0, time.UTC),
			Disease:         normal.Disease,
			Confidence:      "92%",
			Source:          string(domain.SourceFallback),
			Findings:        normal.Findings,
			Recommendations: normal.Recommendations,
		},
	}
}
