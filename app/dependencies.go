package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/bandit-router/config"
	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/repositories"
	"github.com/upb/bandit-router/repositories/postgres"
	"github.com/upb/bandit-router/services/bandit"
	"github.com/upb/bandit-router/services/features"
	"github.com/upb/bandit-router/services/reward"
	"github.com/upb/bandit-router/services/routing"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client
	Logger *zap.Logger

	// Domain
	Catalog []models.Backend
	Router  *routing.Service
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	catalog, err := config.LoadCatalog(cfg.Routing.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load backend catalog: %w", err)
	}
	deps.Catalog = catalog
	logger.Info("backend catalog loaded",
		zap.Int("backends", len(catalog)),
		zap.String("path", cfg.Routing.CatalogPath))

	repo, err := deps.initPersistence(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize persistence: %w", err)
	}

	featureSvc, err := deps.initFeatures(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feature pipeline: %w", err)
	}

	if err := deps.initRouter(cfg, featureSvc, repo); err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initPersistence sets up the optional snapshot repository. Without a
// database URL the router runs in memory only.
func (d *Dependencies) initPersistence(ctx context.Context, cfg *config.Config) (repositories.StateRepository, error) {
	if !cfg.PersistenceEnabled() {
		d.Logger.Info("no database configured, arm state is in-memory only")
		return nil, nil
	}

	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		return nil, err
	}
	d.DB = db
	return postgres.NewStateRepository(db.DB, d.Logger), nil
}

// initFeatures builds the feature pipeline: embedder, optional PCA
// reduction, and the optional Redis feature cache.
func (d *Dependencies) initFeatures(cfg *config.Config) (*features.Service, error) {
	var reducer *features.Projection
	if path := cfg.Routing.PCAProjectionPath; path != "" {
		var err error
		reducer, err = features.LoadProjection(path)
		if err != nil {
			return nil, err
		}
		if reducer.InputDim() != cfg.Routing.EmbeddingDim {
			return nil, fmt.Errorf("pca projection input dim %d does not match embedding dim %d",
				reducer.InputDim(), cfg.Routing.EmbeddingDim)
		}
		d.Logger.Info("pca projection loaded",
			zap.Int("input_dim", reducer.InputDim()),
			zap.Int("output_dim", reducer.OutputDim()))
	}

	var cache *features.Cache
	if cfg.CacheEnabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		d.Redis = redis.NewClient(opts)
		cache = features.NewCache(d.Redis, cfg.Redis.TTL, d.Logger)
		d.Logger.Info("feature cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
	}

	embedder := features.NewHashingEmbedder(cfg.Routing.EmbeddingDim)
	return features.NewService(embedder, reducer, cache, cfg.Routing.EmbeddingDim, d.Logger), nil
}

// initRouter assembles the state store, selector, reward calculator
// and routing orchestrator.
func (d *Dependencies) initRouter(cfg *config.Config, featureSvc *features.Service, repo repositories.StateRepository) error {
	kind := stateKindFor(cfg.Routing.Algorithm)
	store, err := bandit.NewArmStateStore(
		d.Catalog, kind, featureSvc.ContextDim(),
		cfg.Routing.LambdaReg, cfg.Routing.SuccessThreshold)
	if err != nil {
		return err
	}

	src := rand.NewPCG(rand.Uint64(), rand.Uint64())
	selector, err := bandit.New(cfg.Routing, d.Catalog, src)
	if err != nil {
		return err
	}

	router, err := routing.NewService(
		cfg.Routing, featureSvc, selector, store,
		reward.NewCalculator(cfg.Routing, d.Logger), repo, d.Logger)
	if err != nil {
		return err
	}
	d.Router = router

	d.Logger.Info("router initialized",
		zap.String("algorithm", string(cfg.Routing.Algorithm)),
		zap.Int("context_dim", featureSvc.ContextDim()))
	return nil
}

func stateKindFor(algorithm config.Algorithm) models.StateKind {
	switch algorithm {
	case config.AlgorithmThompson:
		return models.StateKindBeta
	case config.AlgorithmLinUCB, config.AlgorithmContextualThompson, config.AlgorithmHybrid:
		return models.StateKindLinear
	default:
		return models.StateKindCountMean
	}
}

// Close releases infrastructure resources after a final state persist.
func (d *Dependencies) Close(ctx context.Context) {
	persistCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if d.Router != nil {
		if err := d.Router.PersistState(persistCtx); err != nil {
			d.Logger.Warn("final state persist failed", zap.Error(err))
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Warn("database close failed", zap.Error(err))
		}
	}
}
