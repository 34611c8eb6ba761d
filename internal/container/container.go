package container

import (
	"context"
	"fmt"

	"divdataset/adapters/cache"
	"divdataset/app"
	"divdataset/internal"
	"divdataset/internal/api"
	"divdataset/internal/config"
	"divdataset/internal/render"
	"divdataset/internal/session"
	"divdataset/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure, DB is nil for the memory backend
	DB    *sqlx.DB
	Cache ports.SessionCache

	SessionManager *session.Manager
	Renderer       *render.Renderer
	DatasetService *app.DatasetService
	Server         *api.Server

	stopJanitor context.CancelFunc
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.Discard()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.initCache(ctx); err != nil {
		return nil, err
	}
	c.initServices()

	return c, nil
}

func (c *Container) initCache(ctx context.Context) error {
	cacheCfg := c.Config.Cache
	if cacheCfg.Backend == config.CacheMemory {
		c.Cache = cache.NewMemoryCache(cacheCfg.CleanupInterval)
		c.Logger.Info("using in-memory session cache")
		return nil
	}

	db, err := cache.OpenDB(ctx, cacheCfg.Backend, cacheCfg.URL)
	if err != nil {
		return err
	}
	c.DB = db

	sqlCache := cache.NewSQLCache(db, c.Logger.With("cache"))
	janitorCtx, cancel := context.WithCancel(context.Background())
	c.stopJanitor = cancel
	sqlCache.StartJanitor(janitorCtx, cacheCfg.CleanupInterval)

	c.Cache = sqlCache
	c.Logger.Info("using %s session cache", cacheCfg.Backend)
	return nil
}

func (c *Container) initServices() {
	c.SessionManager = session.NewManager(c.Cache, c.Config.Cache.TTL)

	// A typed nil would make the service call a nil renderer
	var renderer app.PlotRenderer
	if c.Config.Render.Enabled {
		c.Renderer = render.NewRenderer(c.Config.Render)
		renderer = c.Renderer
	}

	c.DatasetService = app.NewDatasetService(c.SessionManager, renderer, c.Logger.With("dataset"))
	c.Server = api.NewServer(c.Config, c.DatasetService, c.Logger.With("api"))
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.stopJanitor != nil {
		c.stopJanitor()
	}

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
