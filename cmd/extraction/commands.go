package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpextraction "3tcapital/ms_extraccion_core/internal/adapters/http/extraction"
	httphealth "3tcapital/ms_extraccion_core/internal/adapters/http/health"
	sqshandler "3tcapital/ms_extraccion_core/internal/adapters/lambda"
	"3tcapital/ms_extraccion_core/internal/adapters/queue"
	"3tcapital/ms_extraccion_core/internal/core/audit"
	"3tcapital/ms_extraccion_core/internal/core/extraction"
	ctxutil "3tcapital/ms_extraccion_core/internal/infrastructure/context"
	"3tcapital/ms_extraccion_core/internal/infrastructure/database"
	"3tcapital/ms_extraccion_core/internal/infrastructure/http/server"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API that accepts extraction messages.

Examples:
  extraction serve
  extraction serve --with-worker`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			handler := httpextraction.NewHandler(a.queue, a.pipeline, log)
			srv, err := server.New(server.Options{
				Config:             cfg,
				Logger:             log,
				HealthHandler:      http.HandlerFunc(httphealth.NewHandler(a.health).Status),
				EnqueueHandler:     http.HandlerFunc(handler.Enqueue),
				SyncProcessHandler: http.HandlerFunc(handler.Process),
			})
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			if withWorker {
				worker := a.worker()
				g.Go(func() error { return worker.Run(gctx) })
			}

			log.Info("Starting HTTP server", "port", cfg.HTTP.Port, "with_worker", withWorker)
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also consume the extraction queue in this process")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume extraction tasks from the Redis queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			log.Info("Starting extraction worker",
				"queue", cfg.Queue.ExtractionQueue,
				"concurrency", cfg.Queue.Concurrency,
			)
			return a.worker().Run(ctx)
		},
	}
}

func lambdaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run as an AWS Lambda function triggered by SQS",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			a, err := newApp(context.Background(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			handler := sqshandler.NewHandler(a.pipeline, cfg.Pipeline.WorkerCount, log)
			lambda.Start(handler.Handle)
			return nil
		},
	}
}

func processCmd() *cobra.Command {
	var (
		file     string
		merchant string
		upload   string
		docType  string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process one local extraction result file and print the outcome",
		Long: `Process one extraction result synchronously.

Examples:
  extraction process --file ./invoice.json --merchant robo --upload 42
  extraction process --file ./po.json --merchant robo --upload 43 --type purchase_order`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read extraction result: %w", err)
			}
			msg := extraction.Message{
				MerchantID:       merchant,
				DocumentUploadID: upload,
				SourceFileName:   filepath.Base(file),
				FilePath:         file,
				DocumentType:     docType,
				ExtractionResult: data,
			}
			if err := msg.Validate(); err != nil {
				return err
			}

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, correlationID := ctxutil.EnsureCorrelationID(ctx)
			summary, err := a.pipeline.ProcessMessage(ctx, msg)
			if err != nil {
				return err
			}

			out := map[string]any{
				"correlationId":   correlationID,
				"summary":         summary,
				"status":          summary.Upload.Status,
				"exceptionStatus": summary.Upload.ExceptionStatus,
			}
			if cfg.Audit.Enabled {
				a.tracer.Wait()
				calls, err := a.audit.FindByCorrelationID(ctx, correlationID)
				if err != nil {
					log.Warn("Backend call audit lookup failed", "correlation_id", correlationID, "error", err)
				} else {
					out["backendCalls"] = audit.Summarize(calls)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "extraction result JSON file")
	cmd.Flags().StringVarP(&merchant, "merchant", "m", "", "merchant id")
	cmd.Flags().StringVarP(&upload, "upload", "u", "", "document upload id")
	cmd.Flags().StringVarP(&docType, "type", "t", "", "document type (invoice, purchase_order, grn)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("upload")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
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
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			return database.RunMigrations(ctx, pool, log)
		},
	}
}

func (a *app) worker() *queue.Worker {
	return queue.NewWorker(queue.WorkerConfig{
		RedisOpts:   a.redisConnOpt(),
		Concurrency: a.cfg.Queue.Concurrency,
		Options:     a.queueOptions(),
		Processor:   a.pipeline,
		Logger:      a.log,
	})
}
