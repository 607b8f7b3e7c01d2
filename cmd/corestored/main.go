// Command corestored runs the storage engine core as a single process:
// the metadata store, blob driver, cache, tree/listing/share services,
// the audit/change event producer and its durable consumer, the
// trash-expiry and orphan-reconciliation background jobs, per-user
// custom-drive watchers, and the ambient HTTP surface (health, status,
// metrics, SSE).
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbusvault/corestore/internal/blob"
	"github.com/nimbusvault/corestore/internal/blob/local"
	"github.com/nimbusvault/corestore/internal/blob/s3"
	"github.com/nimbusvault/corestore/internal/cache"
	"github.com/nimbusvault/corestore/internal/circuit"
	"github.com/nimbusvault/corestore/internal/config"
	"github.com/nimbusvault/corestore/internal/crypto"
	"github.com/nimbusvault/corestore/internal/customdrive"
	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/internal/events"
	"github.com/nimbusvault/corestore/internal/jobs"
	"github.com/nimbusvault/corestore/internal/listing"
	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/internal/metrics"
	"github.com/nimbusvault/corestore/internal/share"
	"github.com/nimbusvault/corestore/internal/tree"
	"github.com/nimbusvault/corestore/pkg/api"
	"github.com/nimbusvault/corestore/pkg/health"
	"github.com/nimbusvault/corestore/pkg/retry"
	"github.com/nimbusvault/corestore/pkg/status"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file overlaying the built-in defaults")
	flag.Parse()

	cfg := config.NewDefault()
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "corestored: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "corestored: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:      logging.Level(cfg.Global.LogLevel),
		JSONOutput: cfg.Global.LogJSON,
		Output:     os.Stdout,
	})
	log := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbstore.Open(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open metadata store")
	}

	backend, err := buildBlobBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise blob backend")
	}

	encKey, err := encryptionKey()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read encryption key")
	}
	stream, err := crypto.NewStream(encKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise encryption stream")
	}

	cacheSvc := cache.New(cfg.Cache.L1MaxEntries, cache.RedisConfig{
		Addr:     cfg.Cache.Addr(),
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})

	producer, err := events.Connect(ctx, cfg.NATS.URL, time.Duration(cfg.Audit.JobTTLSeconds)*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to the audit event queue")
	}

	// listing.New and share.New are constructed here only to prove they
	// wire against the same db/cache instances this process already
	// holds; the actual Lister/Searcher/ShareMinter calls are made by
	// whatever embeds this module as a library, not by this daemon —
	// pkg/api deliberately stops at the ambient surface (health, status,
	// metrics, SSE) and never routes storage operations.
	customDriveFS := customdrive.New()
	engine := tree.New(db, backend, stream, cacheSvc, producer, customDriveFS)
	_ = listing.New(db, cacheSvc)
	_ = share.New(db)

	auditHandler := events.NewHandler(db)
	go func() {
		if err := auditHandler.Run(ctx, producer); err != nil {
			log.Error().Err(err).Msg("audit consumer stopped")
		}
	}()

	trashJob := jobs.NewTrashExpiry(db, engine, time.Duration(cfg.Trash.RetentionDays)*24*time.Hour)
	trashJob.Start(ctx, time.Hour)

	orphanJob := jobs.NewOrphanReconciler(db, backend)
	orphanJob.Start(ctx, 6*time.Hour)

	cdManager := customdrive.NewManager(db, engine)
	enabledUsers, err := db.ListCustomDriveEnabledUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list custom-drive users, none will be mirrored this run")
	}
	for i := range enabledUsers {
		u := enabledUsers[i]
		if err := cdManager.Enable(ctx, &u); err != nil {
			log.Error().Err(err).Str("user_id", u.ID).Msg("failed to enable custom-drive sync for user")
		}
	}
	defer cdManager.Shutdown()

	metricsCollector, err := metrics.NewCollector(metrics.DefaultConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise metrics collector")
	}
	if !cfg.Monitoring.MetricsEnabled {
		metricsCollector = nil
	}

	healthTracker := health.NewTracker(health.DefaultConfig())
	for _, component := range []string{"dbstore", "blob", "cache", "tree", "listing", "share", "events"} {
		healthTracker.RegisterComponent(component)
		healthTracker.RecordSuccess(component)
	}
	statusTracker := status.NewTracker(status.TrackerConfig{MaxHistorySize: 500, HealthTracker: healthTracker})

	server := api.NewServer(api.ServerConfig{
		Address:      cfg.Global.ListenAddr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		EnableCORS:   true,
	}, statusTracker, healthTracker, metricsCollector, events.NewSSEHandler(producer))
	server.StartBackground()

	log.Info().Str("addr", cfg.Global.ListenAddr).Msg("corestored started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down api server")
	}
}

func buildBlobBackend(ctx context.Context, cfg *config.Configuration) (blob.Backend, error) {
	retryCfg := retryConfig(cfg.Network.Retry)
	breakerCfg := breakerConfig(cfg.Network.CircuitBreaker)

	switch cfg.Storage.Driver {
	case "s3":
		// s3.Backend resolves credentials through the standard AWS chain;
		// explicit static keys from config are exported for that chain to
		// pick up rather than threaded through s3.Config.
		if cfg.Storage.S3.AccessKeyID != "" {
			os.Setenv("AWS_ACCESS_KEY_ID", cfg.Storage.S3.AccessKeyID)
			os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.Storage.S3.SecretAccessKey)
		}
		raw, err := s3.New(ctx, s3.Config{
			Region:         cfg.Storage.S3.Region,
			Endpoint:       cfg.Storage.S3.Endpoint,
			Bucket:         cfg.Storage.S3.Bucket,
			ForcePathStyle: cfg.Storage.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return blob.NewResilient("blob.s3", raw, retryCfg, breakerCfg), nil
	default:
		if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
			return nil, err
		}
		raw, err := local.New(cfg.Storage.UploadDir)
		if err != nil {
			return nil, err
		}
		return blob.NewResilient("blob.local", raw, retryCfg, breakerCfg), nil
	}
}

func retryConfig(c config.RetryConfig) retry.Config {
	return retry.Config{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.BaseDelay,
		MaxDelay:     c.MaxDelay,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func breakerConfig(c config.CircuitBreakerConfig) circuit.Config {
	if !c.Enabled {
		// A breaker that never trips: ReadyToTrip always false.
		return circuit.Config{ReadyToTrip: func(circuit.Counts) bool { return false }}
	}
	return circuit.Config{
		Timeout: c.Timeout,
		ReadyToTrip: func(counts circuit.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(c.FailureThreshold)
		},
	}
}

// encryptionKey reads the at-rest data key (base64-encoded, 32 raw
// bytes) from the environment; it is never accepted via YAML config so
// it never lands in a config file on disk.
func encryptionKey() ([]byte, error) {
	raw := os.Getenv("CORESTORE_ENCRYPTION_KEY")
	return base64.StdEncoding.DecodeString(raw)
}
