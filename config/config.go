package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Algorithm identifies a selection algorithm.
type Algorithm string

const (
	AlgorithmUCB1               Algorithm = "ucb1"
	AlgorithmEpsilonGreedy      Algorithm = "epsilon_greedy"
	AlgorithmThompson           Algorithm = "thompson"
	AlgorithmContextualThompson Algorithm = "contextual_thompson"
	AlgorithmLinUCB             Algorithm = "linucb"
	AlgorithmHybrid             Algorithm = "hybrid"

	// Stateless baselines for comparison runs.
	AlgorithmRandom         Algorithm = "random"
	AlgorithmAlwaysBest     Algorithm = "always_best"
	AlgorithmAlwaysCheapest Algorithm = "always_cheapest"
)

// knownAlgorithms lists every algorithm accepted at startup, including
// the stateless baselines used for comparison runs.
var knownAlgorithms = map[Algorithm]bool{
	AlgorithmUCB1:               true,
	AlgorithmEpsilonGreedy:      true,
	AlgorithmThompson:           true,
	AlgorithmContextualThompson: true,
	AlgorithmLinUCB:             true,
	AlgorithmHybrid:             true,
	AlgorithmRandom:             true,
	AlgorithmAlwaysBest:         true,
	AlgorithmAlwaysCheapest:     true,
}

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Routing       RoutingConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for arm-state snapshots.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over
// individual fields. An entirely empty config disables persistence.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// RedisConfig holds the optional feature-cache configuration.
// An empty URL disables the cache entirely.
type RedisConfig struct {
	URL string
	TTL time.Duration
}

// RoutingConfig holds the bandit engine configuration. All values are
// loaded once at startup and treated as immutable for the process
// lifetime.
type RoutingConfig struct {
	// Algorithm selects the active strategy.
	Algorithm Algorithm

	// CatalogPath is the YAML file listing the routable backends.
	CatalogPath string

	// EmbeddingDim is the native embedding dimension (before PCA).
	EmbeddingDim int

	// PCAProjectionPath optionally points at a fitted projection file.
	// Empty means no reduction (identity pass-through).
	PCAProjectionPath string

	// SuccessThreshold converts continuous rewards into success/failure
	// for the Beta and count/mean state variants.
	SuccessThreshold float64

	// UCB1C is the UCB1 exploration constant.
	UCB1C float64

	// Epsilon parameters for epsilon-greedy.
	Epsilon      float64
	EpsilonDecay float64
	EpsilonFloor float64

	// LinUCBAlpha is the LinUCB exploration constant.
	LinUCBAlpha float64

	// LambdaReg is the ridge regularization for the linear variants.
	LambdaReg float64

	// HybridSwitchThreshold is the query count at which the hybrid
	// policy switches from UCB1 to LinUCB.
	HybridSwitchThreshold int64

	// Reward weights (must sum to 1).
	RewardWeightExplicit float64
	RewardWeightImplicit float64

	// RetryReward is the fixed reward for retry-detected decisions.
	RetryReward float64

	// Retry detection parameters.
	RetryWindow              time.Duration
	RetrySimilarityThreshold float64

	// DecisionLedgerSize bounds the in-memory decision ledger used for
	// feedback correlation.
	DecisionLedgerSize int

	// PersistInterval is how often arm state is snapshotted to the
	// repository when persistence is enabled.
	PersistInterval time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			ConnectionString: getEnv("DATABASE_URL", ""),
			Host:             getEnv("DB_HOST", ""),
			Port:             getEnvAsInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", ""),
			Password:         getEnv("DB_PASSWORD", ""),
			Database:         getEnv("DB_NAME", ""),
			SSLMode:          getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
			TTL: getEnvAsDuration("REDIS_TTL", time.Hour),
		},
		Routing: RoutingConfig{
			Algorithm:                Algorithm(getEnv("ROUTING_ALGORITHM", string(AlgorithmHybrid))),
			CatalogPath:              getEnv("BACKEND_CATALOG_PATH", "backends.yaml"),
			EmbeddingDim:             getEnvAsInt("EMBEDDING_DIM", 384),
			PCAProjectionPath:        getEnv("PCA_PROJECTION_PATH", ""),
			SuccessThreshold:         getEnvAsFloat("SUCCESS_THRESHOLD", 0.7),
			UCB1C:                    getEnvAsFloat("UCB1_C", 1.5),
			Epsilon:                  getEnvAsFloat("EPSILON", 0.1),
			EpsilonDecay:             getEnvAsFloat("EPSILON_DECAY", 0.995),
			EpsilonFloor:             getEnvAsFloat("EPSILON_FLOOR", 0.01),
			LinUCBAlpha:              getEnvAsFloat("LINUCB_ALPHA", 1.0),
			LambdaReg:                getEnvAsFloat("LAMBDA_REG", 1.0),
			HybridSwitchThreshold:    int64(getEnvAsInt("HYBRID_SWITCH_THRESHOLD", 2000)),
			RewardWeightExplicit:     getEnvAsFloat("REWARD_WEIGHT_EXPLICIT", 0.7),
			RewardWeightImplicit:     getEnvAsFloat("REWARD_WEIGHT_IMPLICIT", 0.3),
			RetryReward:              getEnvAsFloat("RETRY_REWARD", 0.3),
			RetryWindow:              getEnvAsDuration("RETRY_WINDOW", 5*time.Minute),
			RetrySimilarityThreshold: getEnvAsFloat("RETRY_SIMILARITY_THRESHOLD", 0.95),
			DecisionLedgerSize:       getEnvAsInt("DECISION_LEDGER_SIZE", 10000),
			PersistInterval:          getEnvAsDuration("STATE_PERSIST_INTERVAL", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	r := &c.Routing

	if !knownAlgorithms[r.Algorithm] {
		return fmt.Errorf("unknown routing algorithm: %s", r.Algorithm)
	}
	if r.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", r.EmbeddingDim)
	}
	if r.SuccessThreshold < 0 || r.SuccessThreshold > 1 {
		return fmt.Errorf("success threshold must be in [0,1], got %g", r.SuccessThreshold)
	}
	if sum := r.RewardWeightExplicit + r.RewardWeightImplicit; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("reward weights must sum to 1, got %g", sum)
	}
	if r.RetryReward < 0 || r.RetryReward > 1 {
		return fmt.Errorf("retry reward must be in [0,1], got %g", r.RetryReward)
	}
	if r.HybridSwitchThreshold <= 0 {
		return fmt.Errorf("hybrid switch threshold must be positive, got %d", r.HybridSwitchThreshold)
	}
	if r.EpsilonFloor > r.Epsilon {
		return fmt.Errorf("epsilon floor %g exceeds initial epsilon %g", r.EpsilonFloor, r.Epsilon)
	}
	if r.DecisionLedgerSize <= 0 {
		return fmt.Errorf("decision ledger size must be positive, got %d", r.DecisionLedgerSize)
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// PersistenceEnabled reports whether an arm-state snapshot store is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.Database.ConnectionString != "" || c.Database.Host != ""
}

// CacheEnabled reports whether the Redis feature cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.URL != ""
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
