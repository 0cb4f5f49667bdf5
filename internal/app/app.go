// Package app wires configuration into the scan pipeline, record storage and
// image storage shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"formscan/internal/classifier"
	"formscan/internal/config"
	"formscan/internal/extractor"
	"formscan/internal/inference"
	"formscan/internal/legacy"
	"formscan/internal/port"
	mongorepo "formscan/internal/repository/mongo"
	"formscan/internal/repository/postgres"
	"formscan/internal/repository/sqlite"
	"formscan/internal/service"
	s3storage "formscan/internal/storage/s3"

	// Inference providers register themselves with the gateway factory.
	_ "formscan/internal/inference/claude"
	_ "formscan/internal/inference/gemini"
	_ "formscan/internal/inference/openai"
)

// App holds the wired collaborators for one process.
type App struct {
	Config  *config.Config
	Gateway *inference.Gateway
	// Records is nil when the storage driver is "none".
	Records port.RecordRepository
	// Storage is nil when no bucket is configured.
	Storage    port.ImageStorage
	Scans      service.ScanService
	RecordsSvc service.RecordService

	sqliteDB *sqlx.DB
	closers  []func() error
}

// ConfigureLogging applies the log settings to the standard logger. Only the
// line prefix changes; no messages are filtered by level.
func ConfigureLogging(cfg *config.LogConfig) {
	flags := log.LstdFlags
	if strings.EqualFold(cfg.Format, "plain") {
		flags = 0
	}
	if strings.EqualFold(cfg.Level, "debug") {
		flags |= log.Lshortfile
	}
	log.SetFlags(flags)
}

// New builds an App from cfg. Close must be called when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openRecords(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.S3.Bucket != "" {
		store, err := s3storage.NewImageStore(ctx, &cfg.S3)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("initializing image storage: %w", err)
		}
		a.Storage = store
	} else {
		log.Printf("app.New: no S3 bucket configured, source images are not kept")
	}

	gw, err := inference.NewGatewayFromConfig(ctx, &cfg.Inference)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("initializing inference gateway: %w", err)
	}
	a.Gateway = gw
	a.closers = append(a.closers, gw.Close)

	ex := extractor.New(gw, nil)
	cls, err := classifier.NewFromConfig(&cfg.Classifier, gw, ex, nil)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("initializing classifier: %w", err)
	}

	a.Scans = service.NewScanService(service.ScanServiceDeps{
		Classifier:    cls,
		Extractor:     ex,
		Storage:       a.Storage,
		Records:       a.Records,
		KeyPrefix:     cfg.S3.KeyPrefix,
		MaxImageBytes: cfg.Server.MaxUploadSize << 20,
	})
	a.RecordsSvc = service.NewRecordService(a.Records, a.Storage, cfg.S3.PresignExpiry)

	return a, nil
}

func (a *App) openRecords(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case "none", "":
		log.Printf("app.New: record storage disabled")
		return nil

	case "postgres":
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		a.Records = postgres.NewScanRecordRepo(db)

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		a.sqliteDB = db
		a.Records = sqlite.NewScanRecordRepo(db)

		n, err := sqlite.MigrateLegacy(ctx, db)
		if err != nil {
			// The legacy rows stay in place, so a later start retries.
			log.Printf("app.New: legacy migration failed: %v", err)
		} else if n > 0 {
			log.Printf("app.New: migrated %d legacy scans", n)
		}

	case "mongo":
		client, err := mongorepo.Connect(ctx, &cfg.Mongo)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		a.Records = mongorepo.NewScanRecordRepo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))

	default:
		return fmt.Errorf("unknown storage driver %q (want postgres, sqlite, mongo or none)", cfg.Storage.Driver)
	}

	log.Printf("app.New: record storage %s", cfg.Storage.Driver)
	return nil
}

// MigrateLegacy imports flat legacy scans. With a reader it decodes a JSON
// export into the configured repository; otherwise it migrates the
// legacy_scans table of the local SQLite database.
func (a *App) MigrateLegacy(ctx context.Context, from io.Reader) (int, error) {
	if a.Records == nil {
		return 0, fmt.Errorf("migrating legacy scans: record storage is disabled")
	}
	if from != nil {
		scans, err := legacy.Decode(from)
		if err != nil {
			return 0, err
		}
		return legacy.Import(ctx, a.Records, scans)
	}
	if a.sqliteDB == nil {
		return 0, fmt.Errorf("migrating legacy scans: table migration needs the sqlite driver, got %q", a.Config.Storage.Driver)
	}
	return sqlite.MigrateLegacy(ctx, a.sqliteDB)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
