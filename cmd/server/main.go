/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tradebook ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and environment configuration
  2. Apply command-line flag overrides
  3. Initialize structured logging
  4. Initialize SQLite store
  5. Configure HTTP router and start with graceful shutdown

CONFIGURATION:
  Environment (flags override):
    TRADEBOOK_ADDR          listen address (default :8080)
    TRADEBOOK_DB            SQLite database path, ":memory:" for in-memory
    TRADEBOOK_ARREARS_DAYS  default overdue cutoff in days (default 10)
    TRADEBOOK_LOG_LEVEL     trace..panic (default info)
    TRADEBOOK_LOG_FORMAT    console or json

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/tradebook.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bajar/tradebook/api"
	"github.com/bajar/tradebook/config"
	"github.com/bajar/tradebook/logger"
	"github.com/bajar/tradebook/store/sqlite"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "failed to load configuration")
	}

	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	arrearsDays := flag.Int("arrears-days", cfg.ArrearsThresholdDays, "default overdue cutoff in days")
	flag.Parse()

	if err := logger.Setup(logger.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	}); err != nil {
		logger.Fatal(err, "failed to configure logging")
	}
	log := logger.WithComponent("server")

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal(err, "failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, *arrearsDays)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal(err, "forced shutdown")
	}

	log.Info().Msg("server stopped")
}
