package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentinelai/sentinel/internal/ai"
	"github.com/sentinelai/sentinel/internal/blob"
	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/handlers"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/queue"
	"github.com/sentinelai/sentinel/internal/services/auth"
	"github.com/sentinelai/sentinel/internal/services/vector"
	"github.com/sentinelai/sentinel/internal/storage"
	storagebadger "github.com/sentinelai/sentinel/internal/storage/badger"
	"github.com/sentinelai/sentinel/internal/workers"
)

// App wires every service and handler. Construction order follows the
// dependency flow: storage, queue fabric, blob store, AI provider, services,
// workers, handlers.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Storage   interfaces.StorageManager
	Blobs     interfaces.BlobStore
	Fabric    interfaces.QueueFabric
	Bus       interfaces.StatusBus
	Provider  interfaces.AIProvider
	Index     interfaces.VectorIndex
	Auth      *auth.Service
	Processor *workers.Processor
	Sweeper   *blob.Sweeper

	APIHandler    *handlers.APIHandler
	AuthHandler   *handlers.AuthHandler
	UploadHandler *handlers.UploadHandler
	JobHandler    *handlers.JobHandler
	CaseHandler   *handlers.CaseHandler
	StreamHandler *handlers.StreamHandler
	SearchHandler *handlers.SearchHandler
	AdminHandler  *handlers.AdminHandler
	WSHandler     *handlers.WSHandler
}

// New builds the application from configuration
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storageManager

	store, ok := storageManager.DB().(*badgerhold.Store)
	if !ok {
		storageManager.Close()
		return nil, fmt.Errorf("storage manager does not expose a badgerhold store")
	}
	a.Fabric, err = queue.NewFabric(
		store.Badger(),
		common.ParseDurationOr(cfg.Queue.VisibilityTimeout, 0),
		cfg.Queue.MaxRetries,
		common.ParseDurationOr(cfg.Queue.BackoffBase, 0),
		logger,
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize queue fabric: %w", err)
	}

	a.Blobs, err = blob.NewBlobStore(ctx, cfg.Storage.Blob)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	a.Provider, err = ai.NewProvider(ctx, cfg, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize AI provider: %w", err)
	}

	a.Bus = queue.NewStatusBus(logger)
	a.Index = vector.NewIndex(storageManager.ChunkStorage(), logger)

	a.Auth, err = auth.NewService(storageManager.UserStorage(), cfg, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	if err := storagebadger.LoadUsersFromFiles(ctx, storageManager.UserStorage(), cfg.Auth.UsersDir, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to load seed users")
	}

	pipeline := workers.NewPipeline(storageManager, a.Blobs, a.Fabric, a.Bus, a.Provider, a.Index, cfg, logger)
	a.Processor = workers.NewProcessor(pipeline, a.Fabric, cfg, logger)
	a.Sweeper = blob.NewSweeper(storageManager, a.Blobs, a.Fabric, cfg, logger)

	a.APIHandler = handlers.NewAPIHandler(logger)
	a.AuthHandler = handlers.NewAuthHandler(a.Auth, storageManager.ActivityStorage(), logger)
	a.UploadHandler = handlers.NewUploadHandler(storageManager, a.Blobs, a.Fabric, a.Bus, a.Auth, cfg, logger)
	a.JobHandler = handlers.NewJobHandler(storageManager, a.Auth, logger)
	a.CaseHandler = handlers.NewCaseHandler(storageManager, a.Auth, logger)
	a.StreamHandler = handlers.NewStreamHandler(storageManager, a.Bus, a.Auth, logger)
	a.SearchHandler = handlers.NewSearchHandler(storageManager, a.Provider, a.Index, a.Auth, logger)
	a.AdminHandler = handlers.NewAdminHandler(a.Fabric, storageManager.ActivityStorage(), logger)
	a.WSHandler = handlers.NewWSHandler(a.Bus, logger)

	return a, nil
}

// Start launches the background machinery: worker pools and the sweeper
func (a *App) Start() error {
	a.Processor.Start()
	if err := a.Sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	return nil
}

// Close shuts the application down in reverse dependency order
func (a *App) Close() error {
	a.Sweeper.Stop()
	a.Processor.Stop()
	a.Bus.Close()
	if err := a.Fabric.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Queue fabric close failed")
	}
	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
