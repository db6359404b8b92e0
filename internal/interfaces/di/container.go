package di

import (
	"context"
	"fmt"
	"os"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/application/services"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/infrastructure/config"
	httpinfra "github.com/MirageTurtle/dify-marketplace-collections/internal/infrastructure/http"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/infrastructure/logging"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/infrastructure/storage"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	// Configuration
	ConfigRepo *config.CompositeConfigRepository
	Config     *ports.Configuration

	// Infrastructure
	Logger      *logging.ConsoleLogger
	Marketplace *httpinfra.MarketplaceClient
	Artifacts   *storage.FilesystemArtifactStore
	Listings    *storage.FilesystemListingStore

	// Application services
	Pacer              services.Pacer
	CatalogService     *services.CatalogService
	DownloadService    *services.DownloadService
	SyncService        *services.SyncService
	CollectionsService *services.CollectionsService

	// CLI
	CLIContainer *cli.CLIContainer
}

// NewContainer creates and configures the dependency injection container
func NewContainer() (*Container, error) {
	container := &Container{
		Logger: logging.NewConsoleLogger(os.Stderr, false),
	}

	if err := container.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return container, nil
}

// initializeComponents initializes all components with proper dependencies
func (c *Container) initializeComponents() error {
	// 1. Initialize configuration repository
	c.ConfigRepo = config.NewCompositeConfigRepository()

	// 2. Load configuration
	appConfig, err := c.ConfigRepo.Load()
	if err != nil {
		c.Logger.Log(ports.LogLevelWarn, "failed to load configuration, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		appConfig = c.ConfigRepo.LoadDefault()
	}
	c.Config = appConfig

	// 3. Build the service graph from the configuration
	c.rebuild()

	c.Logger.Log(ports.LogLevelDebug, "dependency container initialized", map[string]interface{}{
		"base_url":   c.Config.BaseURL,
		"output_dir": c.Config.OutputDir,
	})
	return nil
}

// rebuild reconstructs the infrastructure and service graph from c.Config.
// Called on initialization and again after a configuration override.
func (c *Container) rebuild() {
	if c.Config.Debug {
		c.Logger.SetLogLevel(ports.LogLevelDebug)
	}

	c.Marketplace = httpinfra.NewMarketplaceClient(c.Config.BaseURL, c.Config.Timeout(), c.Logger)
	c.Artifacts = storage.NewFilesystemArtifactStore(c.Config.OutputDir)
	c.Listings = storage.NewFilesystemListingStore(c.Config.OutputDir)

	jitterMin, jitterMax := c.Config.JitterBounds()
	c.Pacer = services.NewRandomJitterPacer(jitterMin, jitterMax)

	c.CatalogService = services.NewCatalogService(c.Marketplace, c.Logger, c.Config.PageSize, c.Pacer)
	c.DownloadService = services.NewDownloadService(c.Marketplace, c.Artifacts, c.Logger, c.Config.DownloadConcurrency, c.Pacer)
	c.SyncService = services.NewSyncService(c.CatalogService, c.DownloadService, c.Listings, c.Logger)
	c.CollectionsService = services.NewCollectionsService(c.Marketplace, c.DownloadService, c.Listings, c.Logger, c.Pacer)

	if c.CLIContainer == nil {
		c.CLIContainer = &cli.CLIContainer{MainContainer: c}
	}
	c.CLIContainer.SyncService = c.SyncService
	c.CLIContainer.CollectionsService = c.CollectionsService
	c.CLIContainer.ConfigRepo = c.ConfigRepo
	c.CLIContainer.Config = c.Config
	c.CLIContainer.Logger = c.Logger
}

// GetCLIContainer returns the CLI container for command execution
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	c.Logger.Log(ports.LogLevelInfo, "shutting down", nil)
	return nil
}

// HealthCheck performs a health check of all components
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.ConfigRepo == nil {
		return fmt.Errorf("configuration repository not initialized")
	}

	if _, err := c.ConfigRepo.Load(); err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	if c.Marketplace == nil {
		return fmt.Errorf("marketplace client not initialized")
	}

	if c.SyncService == nil || c.CollectionsService == nil {
		return fmt.Errorf("services not initialized")
	}

	return nil
}

// GetVersion returns version information
func (c *Container) GetVersion() map[string]string {
	return map[string]string{
		"version":    cli.Version,
		"build_time": cli.BuildTime,
	}
}

// ApplyConfigPathOverride repoints the repository at an explicit config file
// and reloads everything from it
func (c *Container) ApplyConfigPathOverride(path string) error {
	if path == "" {
		return fmt.Errorf("config path cannot be empty")
	}

	c.ConfigRepo = config.NewCompositeConfigRepositoryAt(path)
	appConfig, err := c.ConfigRepo.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	c.Config = appConfig
	c.rebuild()
	return nil
}

// ApplyBaseURLOverride updates the marketplace base URL at runtime
func (c *Container) ApplyBaseURLOverride(baseURL string) error {
	updated := *c.Config
	updated.BaseURL = baseURL
	return c.applyOverride(&updated)
}

// ApplyOutputDirOverride updates the mirror output directory at runtime
func (c *Container) ApplyOutputDirOverride(outputDir string) error {
	updated := *c.Config
	updated.OutputDir = outputDir
	return c.applyOverride(&updated)
}

// ApplyConcurrencyOverride updates the download ceiling at runtime
func (c *Container) ApplyConcurrencyOverride(concurrency int) error {
	updated := *c.Config
	updated.DownloadConcurrency = concurrency
	return c.applyOverride(&updated)
}

// ApplyTimeoutOverride updates the per-request timeout at runtime
func (c *Container) ApplyTimeoutOverride(seconds int) error {
	updated := *c.Config
	updated.RequestTimeout = seconds
	return c.applyOverride(&updated)
}

// ApplyDebugOverride switches debug logging on
func (c *Container) ApplyDebugOverride() error {
	updated := *c.Config
	updated.Debug = true
	return c.applyOverride(&updated)
}

// applyOverride validates an updated configuration and rebuilds the service
// graph around it
func (c *Container) applyOverride(updated *ports.Configuration) error {
	if err := c.ConfigRepo.Validate(updated); err != nil {
		return err
	}

	c.Config = updated
	c.rebuild()
	return nil
}
