package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brokercursor/brokercursor/internal/config"
	"github.com/brokercursor/brokercursor/internal/db"
	"github.com/brokercursor/brokercursor/internal/ingestion"
	"github.com/brokercursor/brokercursor/internal/logging"
	"github.com/brokercursor/brokercursor/internal/middleware"
	"github.com/brokercursor/brokercursor/internal/parsers"
	"github.com/brokercursor/brokercursor/internal/parsing"
	"github.com/brokercursor/brokercursor/internal/query"
	"github.com/brokercursor/brokercursor/internal/repository"

	"github.com/rs/cors"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		logging.New("info", false).Fatalf("Failed to load configuration: %v", err)
	}
	log := logging.New(cfg.LogLevel, false)

	conn, err := db.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn, "./migrations", log); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reportRepo := repository.NewReportRepository(conn.Pool)
	importLogRepo := repository.NewImportLogRepository(conn.Pool)
	registry := parsers.DefaultRegistry()

	importer := ingestion.NewService(reportRepo, importLogRepo, registry, cfg, log)
	parser := parsing.NewService(reportRepo, importLogRepo, registry, log)

	apiHandler := query.NewHTTPHandler(reportRepo, importLogRepo, importer, parser)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := corsHandler.Handler(middleware.Logging(log)(apiHandler))

	server := &http.Server{
		Addr:         ":8080",
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting API server on :8080")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
