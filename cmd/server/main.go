/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave accrual engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Configure structured logging
  3. Initialize SQLite store
  4. Load the leave policy set (file or built-in defaults)
  5. Create API handler, router, and anniversary scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080, env PORT)
  -db         SQLite database path (default: leave.db, env DATABASE_PATH)
              Use ":memory:" for in-memory database
  -policies   Path to a policy set JSON file (optional; built-in
              defaults when omitted)
  -check      Anniversary check interval (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the anniversary scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with custom policies
  ./server -policies="./policies.json"

ENVIRONMENT:
  PORT, DATABASE_PATH, LOG_LEVEL, SCHEDULER_ENABLED (set to "false" to
  disable the anniversary scheduler). A .env file in the working
  directory is loaded at startup.

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Anniversary scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// .env is optional; flags and real env vars win.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "leave.db"), "SQLite database path")
	policiesPath := flag.String("policies", "", "Policy set JSON file (built-in defaults when empty)")
	checkInterval := flag.Duration("check", time.Hour, "Anniversary check interval")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(envStr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	policies, err := loadPolicies(*policiesPath)
	if err != nil {
		log.WithError(err).WithField("path", *policiesPath).Fatal("failed to load policies")
	}
	log.WithField("categories", len(policies)).Info("policy set loaded")

	handler := api.NewHandler(store, policies, log)
	router := api.NewRouter(handler)

	scheduler := api.NewAnniversaryScheduler(store, handler)
	scheduler.CheckInterval = *checkInterval
	scheduler.Enabled = envStr("SCHEDULER_ENABLED", "true") != "false"
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}

	log.Info("server stopped")
}

// loadPolicies reads a policy set JSON file, falling back to the built-in
// defaults when no path is given.
func loadPolicies(path string) (engine.PolicySet, error) {
	if path == "" {
		return leave.DefaultPolicySet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return factory.NewPolicyFactory().ParsePolicySet(string(data))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
