// Package server builds the application's dependencies from configuration
// and runs the HTTP server until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/api"
	"github.com/JakeFAU/seo-linker/internal/config"
	"github.com/JakeFAU/seo-linker/internal/keywords"
	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/logging"
	"github.com/JakeFAU/seo-linker/internal/publisher"
	memorypublisher "github.com/JakeFAU/seo-linker/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/seo-linker/internal/publisher/pubsub"
	"github.com/JakeFAU/seo-linker/internal/refine"
	blobstore "github.com/JakeFAU/seo-linker/internal/storage"
	gcsstorage "github.com/JakeFAU/seo-linker/internal/storage/gcs"
	localstorage "github.com/JakeFAU/seo-linker/internal/storage/local"
	memorystorage "github.com/JakeFAU/seo-linker/internal/storage/memory"
	s3storage "github.com/JakeFAU/seo-linker/internal/storage/s3"
	"github.com/JakeFAU/seo-linker/internal/telemetry"
)

// Version is reported on traces; overridden at link time.
var Version = "dev"

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	apiServer *api.Server
	table     *keywords.Table
	closeKeys func()
	reloads   *keywords.Scheduler
	gcs       *storage.Client
	pubsub    *gcppublisher.Publisher
	tracer    *sdktrace.TracerProvider
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP and blocks until ctx is canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	grace := time.Duration(a.cfg.Server.ShutdownSeconds) * time.Second
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)
	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return closeErr
}

// Close releases clients opened by Build.
func (a *App) Close(ctx context.Context) error {
	if a.reloads != nil {
		a.reloads.Stop(ctx)
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.closeKeys != nil {
		a.closeKeys()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	return nil
}

// Build creates the application's dependencies. The keyword table must load
// for Build to succeed.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("keywords_source", cfg.Keywords.Source),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	app := &App{cfg: cfg, logger: logger}
	tp, err := telemetry.InitTracerProvider(ctx, "seo-linker", Version)
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}
	app.tracer = tp
	if err := app.setupKeywords(ctx); err != nil {
		app.closeQuietly()
		return nil, err
	}
	blobs, err := app.setupStorage(ctx)
	if err != nil {
		app.closeQuietly()
		return nil, err
	}
	pub, err := app.setupPublisher(ctx)
	if err != nil {
		app.closeQuietly()
		return nil, err
	}

	deps := api.Deps{
		Keywords:  app.table,
		Engine:    linker.New(linker.WithPerTargetCap(cfg.Linker.PerTargetCap)),
		Crawler:   NewCrawler(cfg, logger.Named("crawler")),
		Blobs:     blobs,
		Publisher: pub,
	}

	licenses, err := NewLicenseService(cfg)
	if err != nil {
		app.closeQuietly()
		return nil, err
	}
	if licenses != nil {
		deps.License = licenses
		logger.Info("product key licensing enabled", zap.Int("keys", len(cfg.License.Keys)))
	}

	completer, err := NewCompleter(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn("llm provider unavailable, generation and refinement disabled", zap.Error(err))
	default:
		deps.Generator = NewGenerator(completer, cfg, logger.Named("keygen"))
		deps.Refiner = refine.New(completer, 4*cfg.LLM.MaxTokens, cfg.LLM.Temperature, logger.Named("refine"))
	}

	app.apiServer = api.NewServer(deps, *cfg, logger.Named("api"))
	return app, nil
}

func (a *App) closeQuietly() {
	_ = a.Close(context.Background())
}

func (a *App) setupKeywords(ctx context.Context) error {
	source, closeFn, err := OpenKeywordSource(ctx, a.cfg, a.logger.Named("keywords"))
	if err != nil {
		return err
	}
	a.closeKeys = closeFn

	a.table = keywords.NewTable(source, a.logger.Named("keywords"))
	if _, err := a.table.Reload(ctx); err != nil {
		return fmt.Errorf("initial keyword load failed: %w", err)
	}

	if expr := a.cfg.Keywords.ReloadSchedule; expr != "" {
		sched, err := keywords.NewScheduler(expr, a.table, time.Minute, a.logger.Named("keywords"))
		if err != nil {
			return err
		}
		sched.Start()
		a.reloads = sched
		a.logger.Info("keyword reload scheduled", zap.String("schedule", expr))
	}
	return nil
}

func (a *App) setupStorage(ctx context.Context) (blobstore.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcs = client
		store, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket:       a.cfg.Storage.GCSBucket,
			CacheControl: a.cfg.Storage.GCSCacheControl,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return store, nil
	case "s3":
		s3cfg := a.cfg.Storage.S3
		store, err := s3storage.New(ctx, s3storage.Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 blob store init failed: %w", err)
		}
		a.logger.Info("using S3 storage backend", zap.String("bucket", s3cfg.Bucket), zap.String("region", s3cfg.Region))
		return store, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.LocalDir))
		return store, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (publisher.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	pub, err := gcppublisher.Connect(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("pubsub init failed: %w", err)
	}
	a.pubsub = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return pub, nil
}
