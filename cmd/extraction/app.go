package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	auditpg "3tcapital/ms_extraccion_core/internal/adapters/audit/postgres"
	fsblob "3tcapital/ms_extraccion_core/internal/adapters/blob/fs"
	s3blob "3tcapital/ms_extraccion_core/internal/adapters/blob/s3"
	documentpg "3tcapital/ms_extraccion_core/internal/adapters/document/postgres"
	"3tcapital/ms_extraccion_core/internal/adapters/llm/bedrock"
	"3tcapital/ms_extraccion_core/internal/adapters/llm/guard"
	llmopenai "3tcapital/ms_extraccion_core/internal/adapters/llm/openai"
	mdcache "3tcapital/ms_extraccion_core/internal/adapters/masterdata/cache"
	mdcsv "3tcapital/ms_extraccion_core/internal/adapters/masterdata/csv"
	mdpg "3tcapital/ms_extraccion_core/internal/adapters/masterdata/postgres"
	"3tcapital/ms_extraccion_core/internal/adapters/merchantfile"
	numberingpg "3tcapital/ms_extraccion_core/internal/adapters/numbering/postgres"
	"3tcapital/ms_extraccion_core/internal/adapters/queue"
	"3tcapital/ms_extraccion_core/internal/application/checks"
	"3tcapital/ms_extraccion_core/internal/application/duplicate"
	"3tcapital/ms_extraccion_core/internal/application/fieldmap"
	apphealth "3tcapital/ms_extraccion_core/internal/application/health"
	"3tcapital/ms_extraccion_core/internal/application/matcher"
	"3tcapital/ms_extraccion_core/internal/application/numbering"
	"3tcapital/ms_extraccion_core/internal/application/pipeline"
	"3tcapital/ms_extraccion_core/internal/application/poconvert"
	"3tcapital/ms_extraccion_core/internal/application/prompting"
	"3tcapital/ms_extraccion_core/internal/application/standardize"
	"3tcapital/ms_extraccion_core/internal/core/audit"
	"3tcapital/ms_extraccion_core/internal/core/blob"
	"3tcapital/ms_extraccion_core/internal/core/handoff"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/masterdata"
	"3tcapital/ms_extraccion_core/internal/infrastructure/config"
	"3tcapital/ms_extraccion_core/internal/infrastructure/database"
	httpclient "3tcapital/ms_extraccion_core/internal/infrastructure/http"
	"3tcapital/ms_extraccion_core/internal/infrastructure/logger"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      config.AppConfig
	log      *slog.Logger
	pool     *pgxpool.Pool
	redis    *redis.Client
	queue    *queue.Client
	tracer   *httpclient.TracedClient
	audit    audit.Repository
	pipeline *pipeline.Pipeline
	health   *apphealth.Service
	closers  []func() error
}

// bootstrap loads configuration and builds the logger.
func bootstrap() (config.AppConfig, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment), nil
}

// newApp connects to Postgres and Redis and wires the pipeline.
func newApp(ctx context.Context, cfg config.AppConfig, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	pool, err := database.NewPool(ctx, database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	log.Info("Database connection established", "database", cfg.Database.Database)

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(ctx, pool, log); err != nil {
			a.close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, a.redis.Close)
	if err := a.redis.Ping(ctx).Err(); err != nil {
		log.Warn("Redis not reachable, master data cache falls back to the database", "error", err, "addr", cfg.Redis.Addr)
	}

	a.queue = queue.NewClient(a.redisConnOpt(), a.queueOptions())
	a.closers = append(a.closers, a.queue.Close)

	blobs, err := a.blobStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	auditRepo := auditpg.NewRepository(pool, log)
	a.audit = auditRepo
	a.tracer = httpclient.NewTracedClient(&httpclient.TracedClientConfig{
		Timeout:         cfg.LLM.Timeout,
		AuditEnabled:    cfg.Audit.Enabled,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
		MaxConnsPerHost: cfg.LLM.MaxConcurrentRequests,
	}, log, auditRepo, cfg.LLM.Provider)
	log.Info("Backend call audit configured",
		"audit_enabled", cfg.Audit.Enabled,
		"max_body_size", cfg.Audit.MaxBodySize,
		"backend", cfg.LLM.Provider,
	)

	backend, err := a.llmBackend(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	guarded := guard.New(backend, guard.Config{
		MaxConcurrent:    cfg.LLM.MaxConcurrentRequests,
		FailureThreshold: cfg.LLM.CircuitBreakerThreshold,
		Cooldown:         cfg.LLM.CircuitBreakerTimeout,
	}, log)

	templates, err := prompting.NewTemplates(blobs)
	if err != nil {
		a.close()
		return nil, err
	}
	client := prompting.NewClient(guarded, templates, cfg.LLM.MaxAttempts, log)

	policies, err := merchantfile.Load(cfg.Pipeline.MerchantPolicyFile)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load merchant policies: %w", err)
	}
	log.Info("Merchant policies loaded", "file", cfg.Pipeline.MerchantPolicyFile, "merchants", policies.Merchants())

	tolerance, err := decimal.NewFromString(cfg.Pipeline.AmountTolerance)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("parse amount tolerance: %w", err)
	}

	documents := documentpg.NewRepository(pool, log)
	numbers := numbering.NewGenerator(numberingpg.NewRepository(pool), cfg.Pipeline.Location(), cfg.Pipeline.NumberingMaxAttempts, log)

	var publisher handoff.Publisher
	if cfg.Queue.HandoffEnabled {
		publisher = a.queue
	}

	a.pipeline = pipeline.New(pipeline.Dependencies{
		Policies: policies,
		Blobs:    blobs,
		Mapper:   fieldmap.NewMapper(log),
		Matcher: matcher.New(a.masterData(blobs), client, matcher.Config{
			VendorBatchSize: cfg.MasterData.VendorBatchSize,
			ItemBatchSize:   cfg.MasterData.ItemBatchSize,
			StoreBatchSize:  cfg.MasterData.StoreBatchSize,
		}, log),
		Duplicates:   duplicate.NewChecker(documents, cfg.Pipeline.DuplicateRequireSuccess, log),
		Standardizer: standardize.New(client, log),
		Synthesizer:  checks.NewSynthesizer(client, log),
		Converter:    poconvert.NewConverter(numbers, log),
		Documents:    documents,
		Uploads:      documentpg.NewUploadRepository(pool),
		Publisher:    publisher,
	}, pipeline.Config{AmountTolerance: tolerance}, log)

	a.health = apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	},
		apphealth.Check{Name: "database", Fn: pool.Ping},
		apphealth.Check{Name: "redis", Fn: func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }},
	)

	return a, nil
}

func (a *app) redisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}
}

func (a *app) queueOptions() queue.Options {
	return queue.Options{
		ExtractionQueue: a.cfg.Queue.ExtractionQueue,
		HandoffQueue:    a.cfg.Queue.HandoffQueue,
		MaxRetry:        a.cfg.Queue.MaxRetry,
		TaskTimeout:     a.cfg.Queue.TaskTimeout,
	}
}

func (a *app) blobStore(ctx context.Context) (blob.Store, error) {
	switch a.cfg.Storage.Driver {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.cfg.Storage.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		a.log.Info("Blob storage configured", "driver", "s3", "bucket", a.cfg.Storage.Bucket)
		return s3blob.NewStoreFromConfig(awsCfg, a.cfg.Storage.Bucket), nil
	default:
		a.log.Info("Blob storage configured", "driver", "fs", "root", a.cfg.Storage.Root)
		return fsblob.NewStore(a.cfg.Storage.Root), nil
	}
}

func (a *app) llmBackend(ctx context.Context) (llm.Backend, error) {
	cfg := a.cfg.LLM
	switch cfg.Provider {
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithHTTPClient(a.tracer),
			awsconfig.WithRetryMaxAttempts(1),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		a.log.Info("LLM backend configured", "provider", "bedrock", "model", cfg.Model, "region", cfg.Region)
		return bedrock.NewFromConfig(awsCfg, bedrock.Config{
			ModelID:     cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case "openai":
		a.log.Info("LLM backend configured", "provider", "openai", "model", cfg.Model, "base_url", cfg.BaseURL)
		return llmopenai.New(llmopenai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			JSONMode:    true,
		}, a.tracer), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func (a *app) masterData(blobs blob.Store) masterdata.Source {
	var source masterdata.Source
	if a.cfg.MasterData.Source == "csv" {
		source = mdcsv.NewSource(blobs, a.cfg.MasterData.CSVPrefix)
	} else {
		source = mdpg.NewSource(a.pool)
	}
	a.log.Info("Master data source configured",
		"source", a.cfg.MasterData.Source,
		"cache_enabled", a.cfg.MasterData.CacheEnabled,
		"cache_ttl", a.cfg.MasterData.CacheTTL,
	)
	if !a.cfg.MasterData.CacheEnabled {
		return source
	}
	return mdcache.NewSource(source, a.redis, a.cfg.MasterData.CacheTTL, a.log)
}

// close waits for pending audit writes, then releases connections in
// reverse order of creation.
func (a *app) close() {
	if a.tracer != nil {
		a.tracer.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("Shutdown released resources with errors", "error", err)
	}
}
