// InFusion Core - Vantage InFusion controller gateway
//
// This is the main entry point for InFusion Core. It retrieves the
// controller's Design Center project file, builds the entity graph,
// connects the command-port pool, and records state changes until a
// shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/infusion-core/migrations"

	"github.com/nerrad567/infusion-core/internal/backup"
	"github.com/nerrad567/infusion-core/internal/commissioning/dcimport"
	"github.com/nerrad567/infusion-core/internal/history"
	"github.com/nerrad567/infusion-core/internal/infrastructure/config"
	"github.com/nerrad567/infusion-core/internal/infrastructure/database"
	"github.com/nerrad567/infusion-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/infusion-core/internal/infrastructure/logging"
	"github.com/nerrad567/infusion-core/internal/infusion"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting InFusion Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Retrieve the project file: cache first, then the controller's
	// file port.
	fetcher := backup.NewFetcher(backup.FetcherConfig{
		Host:     cfg.Panel.Host,
		Port:     cfg.Panel.FilePort,
		Username: cfg.Panel.Auth.Username,
		Password: cfg.Panel.Auth.Password,
	}, log)
	projectXML, err := backup.Get(ctx, fetcher, backup.NewCache(db), cfg.Panel.DisableCache, log)
	if err != nil {
		return fmt.Errorf("retrieving project file: %w", err)
	}

	// Build the entity graph from the project file
	builder := dcimport.NewBuilder(infusion.ClientConfig{
		Pool: infusion.PoolConfig{
			Host:        cfg.Panel.Host,
			Port:        cfg.Panel.CommandPort,
			Username:    cfg.Panel.Auth.Username,
			Password:    cfg.Panel.Auth.Password,
			Connections: cfg.Panel.Connections,
		},
		QueryTimeout:      cfg.QueryTimeout(),
		AreaAbbreviations: cfg.Naming.AreaAbbreviations,
	}, log)
	client, err := builder.Build(projectXML)
	if err != nil {
		return fmt.Errorf("building entity graph: %w", err)
	}
	log.Info("entity graph built",
		"project", builder.ProjectName(),
		"outputs", len(client.Outputs()),
		"groups", len(client.LoadGroups()),
	)

	// Start the state-change recorder before connecting so the first
	// status flood is captured.
	if cfg.History.Enabled {
		recorder := history.NewRecorder(db, influxClient, log)
		recorder.Attach(client)
		defer func() {
			log.Info("stopping history recorder")
			recorder.Close()
		}()
		log.Info("history recorder attached")
	} else {
		log.Info("history recording disabled")
	}

	// Connect the command-port pool
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to controller: %w", err)
	}
	defer func() {
		log.Info("disconnecting from controller")
		client.Close()
	}()
	log.Info("controller connected",
		"host", cfg.Panel.Host,
		"port", cfg.Panel.CommandPort,
		"connections", cfg.Panel.Connections,
	)

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Controller client
	// 2. History recorder
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("InFusion Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses INFUSION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("INFUSION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout control
//   - db: Database connection
//   - influxClient: InfluxDB client (may be nil if disabled)
//
// Returns:
//   - error: If any health check fails
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
