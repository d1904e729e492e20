package bootstrap

import (
	"context"
	"fmt"
	"io"

	"campus-desk-be/internal/config"
	"campus-desk-be/internal/controller"
	"campus-desk-be/internal/handler"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/repository/implementation"
	"campus-desk-be/internal/repository/memory"
	"campus-desk-be/internal/repository/unitofwork"
	"campus-desk-be/internal/service"
	"campus-desk-be/pkg/ingest"
	"campus-desk-be/pkg/remote"
	"campus-desk-be/pkg/statusfeed"
	"campus-desk-be/pkg/storage"
	"campus-desk-be/pkg/tracker"

	pktNats "campus-desk-be/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController   controller.IDocumentController
	QueryController      controller.IQueryController
	ProcessingController controller.IProcessingController

	// Handlers
	StatusStreamHandler *handler.StatusStreamHandler
	FileHandler         *handler.FileHandler // nil unless STORAGE_DRIVER=local

	// Exposed for main.go to drain on shutdown
	Pipeline *ingest.Pipeline
	Logger   logger.ILogger

	closers []io.Closer
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	documentRepo := implementation.NewDocumentRepository(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	streamLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)

	c := &Container{Logger: sysLogger}

	// 2. Document Store
	store, localStore, err := NewDocumentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := store.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}

	// 3. Status Change Feed
	feed, err := NewStatusFeed(ctx, cfg, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, feed)

	// 4. Remote Backend
	backend, err := remote.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}

	// 5. Core Components
	opts := ingest.DefaultOptions()
	opts.MaxAttempts = cfg.Backend.TriggerMaxAttempts
	opts.MaxElapsed = cfg.Backend.TriggerMaxElapsed
	pipeline := ingest.NewPipeline(store, documentRepo, backend, feed, sysLogger, opts)
	statusTracker := tracker.New(documentRepo, feed, sysLogger)
	sessionRepo := memory.NewSessionRepository()

	// 6. Services
	documentService := service.NewDocumentService(
		uowFactory,
		pipeline,
		store,
		feed,
		statusTracker,
		cfg.Storage.SignedURLTTL,
		sysLogger,
	)
	statusService := service.NewStatusService(uowFactory, feed, sysLogger)
	queryService := service.NewQueryService(uowFactory, sessionRepo, backend, sysLogger)

	// 7. Controllers & Handlers
	c.DocumentController = controller.NewDocumentController(documentService)
	c.QueryController = controller.NewQueryController(queryService)
	c.ProcessingController = controller.NewProcessingController(statusService)
	c.StatusStreamHandler = handler.NewStatusStreamHandler(statusTracker, streamLogger)
	if localStore != nil {
		c.FileHandler = handler.NewFileHandler(localStore, sysLogger)
	}
	c.Pipeline = pipeline

	return c, nil
}

// Close releases the feed and storage clients. Pending processing triggers
// should be drained with Pipeline.Wait first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			c.Logger.Warn("Container", "Failed to close resource", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	c.closers = nil
	c.Logger.Sync()
}

func NewDocumentStore(ctx context.Context, cfg *config.Config) (storage.Store, *storage.LocalStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverGCS:
		gcs, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize GCS store: %w", err)
		}
		return gcs, nil, nil
	default:
		local, err := storage.NewLocalStore(cfg.Storage.LocalRoot, cfg.Storage.PublicBaseURL, cfg.Auth.JWTSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize local store: %w", err)
		}
		return local, local, nil
	}
}

func NewStatusFeed(ctx context.Context, cfg *config.Config, log logger.ILogger) (statusfeed.Notifier, error) {
	switch cfg.App.StatusFeedDriver {
	case config.FeedDriverNats:
		n, err := pktNats.NewNotifier(cfg.App.NatsURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		return n, nil
	case config.FeedDriverRedis:
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Warn("Container", "Failed to parse Redis URL, using it as address", map[string]interface{}{
				"error": err.Error(),
			})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return statusfeed.NewRedis(rdb, log), nil
	default:
		return statusfeed.NewGoChannel(log), nil
	}
}
