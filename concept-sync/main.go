package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/pubcat-labs/pubcat-go/internal/domain"
	"github.com/pubcat-labs/pubcat-go/internal/ldes"
	"github.com/pubcat-labs/pubcat-go/internal/orgregistry"
	"github.com/pubcat-labs/pubcat-go/internal/platform/auditlog"
	"github.com/pubcat-labs/pubcat-go/internal/platform/config"
	"github.com/pubcat-labs/pubcat-go/internal/platform/env"
	"github.com/pubcat-labs/pubcat-go/internal/platform/httpserver"
	"github.com/pubcat-labs/pubcat-go/internal/platform/objectstore"
	"github.com/pubcat-labs/pubcat-go/internal/platform/postgres"
	pgrepo "github.com/pubcat-labs/pubcat-go/internal/repo/postgres"
	"github.com/pubcat-labs/pubcat-go/internal/sync"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("CONCEPT_SYNC_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("CONCEPT_SYNC_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	queueIdle, err := env.Duration("CONCEPT_SYNC_QUEUE_IDLE_INTERVAL", time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	pollInterval, err := env.Duration("CONCEPT_SYNC_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	requestTimeout, err := env.Duration("CONCEPT_SYNC_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	maxPages, err := env.Int("CONCEPT_SYNC_MAX_PAGES_PER_POLL", 10)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	municipalities, err := config.Load(env.String("PUBCAT_MUNICIPALITY_CONFIG", "municipalities.yaml"))
	if err != nil {
		logger.Error("invalid municipality config", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBucket(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()
	archive, err := objectstore.NewArchive(storeClient, storeCfg.BucketArchive)
	if err != nil {
		logger.Error("archive init failed", "error", err)
		os.Exit(2)
	}

	concepts := pgrepo.NewConceptStore(db)
	instances := pgrepo.NewInstanceStore(db)
	conceptSnapshots := pgrepo.NewConceptSnapshotStore(db)
	instanceSnapshots := pgrepo.NewInstanceSnapshotStore(db)
	displayConfigs := pgrepo.NewDisplayConfigStore(db)
	codes := pgrepo.NewCodeStore(db)

	audit, err := auditlog.NewSystemRecorder(db)
	if err != nil {
		logger.Error("audit recorder init failed", "error", err)
		os.Exit(2)
	}

	var orgFetcher sync.OrganizationFetcher
	if registryURL := strings.TrimSpace(env.String("PUBCAT_ORG_REGISTRY_URL", "")); registryURL != "" {
		fetcher, err := orgregistry.NewFetcher(orgregistry.Config{
			BaseURL:        registryURL,
			RequestTimeout: requestTimeout,
			TokenURL:       env.String("PUBCAT_ORG_REGISTRY_TOKEN_URL", ""),
			ClientID:       env.String("PUBCAT_ORG_REGISTRY_CLIENT_ID", ""),
			ClientSecret:   env.String("PUBCAT_ORG_REGISTRY_CLIENT_SECRET", ""),
			Scopes:         splitScopes(env.String("PUBCAT_ORG_REGISTRY_SCOPES", "")),
		})
		if err != nil {
			logger.Error("invalid organization registry config", "error", err)
			os.Exit(2)
		}
		orgFetcher = fetcher
	}

	conceptMerge, err := sync.NewConceptMergeService(logger, sync.ConceptMergeConfig{
		Concepts:       concepts,
		Snapshots:      conceptSnapshots,
		Instances:      instances,
		DisplayConfigs: displayConfigs,
		Codes:          codes,
		OrgRegistry:    orgFetcher,
		Municipalities: municipalities.MunicipalityURIs(),
	}, uuid.NewString)
	if err != nil {
		logger.Error("concept merge init failed", "error", err)
		os.Exit(2)
	}

	resourceIDBase := env.String("PUBCAT_RESOURCE_ID_BASE", "urn:uuid:")
	newResourceID := func() string { return resourceIDBase + uuid.NewString() }
	instanceMerge, err := sync.NewInstanceMergeService(logger, sync.InstanceMergeConfig{
		Instances:      instances,
		Snapshots:      instanceSnapshots,
		Concepts:       concepts,
		DisplayConfigs: displayConfigs,
		ChosenForm: func(municipality string) domain.ChosenForm {
			return municipalities.ChosenFormFor(municipality)
		},
	}, newResourceID, uuid.NewString)
	if err != nil {
		logger.Error("instance merge init failed", "error", err)
		os.Exit(2)
	}

	driver, err := sync.NewDriver(logger, sync.DriverConfig{
		ConceptSnapshots:  conceptSnapshots,
		InstanceSnapshots: instanceSnapshots,
		Concepts:          concepts,
		ConceptMerge:      conceptMerge,
		InstanceMerge:     instanceMerge,
		Archive:           archive,
		Audit:             audit,
	})
	if err != nil {
		logger.Error("driver init failed", "error", err)
		os.Exit(2)
	}

	queue := sync.NewJobQueue(logger, queueIdle)
	go queue.Run(ctx)

	conceptFeed := strings.TrimSpace(env.String("PUBCAT_CONCEPT_LDES_ENDPOINT", ""))
	if conceptFeed == "" {
		logger.Error("PUBCAT_CONCEPT_LDES_ENDPOINT is required")
		os.Exit(2)
	}
	conceptClient, err := ldes.NewClient(ldes.Config{
		Endpoint:        conceptFeed,
		RequestTimeout:  requestTimeout,
		MaxPagesPerPoll: maxPages,
	})
	if err != nil {
		logger.Error("concept feed client init failed", "error", err)
		os.Exit(2)
	}
	startFeedPoller(ctx, feedPollerConfig{
		Logger:            logger,
		Feed:              sync.FeedConcept,
		Client:            conceptClient,
		Queue:             queue,
		Driver:            driver,
		ConceptSnapshots:  conceptSnapshots,
		InstanceSnapshots: instanceSnapshots,
		Interval:          pollInterval,
	})

	if instanceFeed := strings.TrimSpace(env.String("PUBCAT_INSTANCE_LDES_ENDPOINT", "")); instanceFeed != "" {
		instanceClient, err := ldes.NewClient(ldes.Config{
			Endpoint:        instanceFeed,
			RequestTimeout:  requestTimeout,
			MaxPagesPerPoll: maxPages,
		})
		if err != nil {
			logger.Error("instance feed client init failed", "error", err)
			os.Exit(2)
		}
		startFeedPoller(ctx, feedPollerConfig{
			Logger:            logger,
			Feed:              sync.FeedInstance,
			Client:            instanceClient,
			Queue:             queue,
			Driver:            driver,
			ConceptSnapshots:  conceptSnapshots,
			InstanceSnapshots: instanceSnapshots,
			Interval:          pollInterval,
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("concept-sync"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"concept-sync",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBucket(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)

	cfg := httpserver.Config{
		Service:         "concept-sync",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}
	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "concept-sync", mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func splitScopes(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
