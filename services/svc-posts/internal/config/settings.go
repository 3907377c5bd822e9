package config

import (
	"fmt"
	"strings"
	"time"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
	APIVersion     string
)

const (
	Development = 1 << iota
	Sandbox
	Staging
	Production
)

const (
	SearchBackendElastic    = "elastic"
	SearchBackendRediSearch = "redisearch"

	RateLimitStoreMemory = "memory"
	RateLimitStoreCache  = "cache"
)

type (
	ServiceConfig struct {
		App            App            `json:"app"`
		SecretsStorage SecretsStorage `json:"secrets_storage"`
		HTTPServer     HTTPServer     `json:"http_server"`
		GRPCServer     GRPCServer     `json:"grpc_server"`
		Database       Database       `json:"database"`
		Search         Search         `json:"search"`
		Cache          Cache          `json:"cache"`
		PostsCache     PostsCache     `json:"posts_cache"`
		CircuitBreaker CircuitBreaker `json:"circuit_breaker"`
		Backoff        Backoff        `json:"backoff"`
		RateLimit      RateLimit      `json:"rate_limit"`
		Idempotency    Idempotency    `json:"idempotency"`
		Compression    Compression    `json:"compression"`
		Logging        Logging        `json:"logging"`
		Telemetry      Telemetry      `json:"telemetry"`
	}

	App struct {
		ServiceName    string      `envconfig:"APP_SERVICE_NAME" default:"svc-posts" json:"service_name"`
		APIVersion     string      `envconfig:"APP_API_VERSION" default:"v1" json:"api_version"`
		ServiceVersion string      `envconfig:"APP_SERVICE_VERSION" default:"dev" json:"service_version"`
		CommitSHA      string      `envconfig:"APP_COMMIT_SHA" default:"" json:"commit_sha"`
		Env            Environment `json:"environment"`
	}

	Environment struct {
		Name string `envconfig:"APP_ENVIRONMENT" default:"development" json:"env"`
	}

	SecretsStorage struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"" json:"token,omitempty"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"secret_id,omitempty"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"svc-posts" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    uint          `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"24h" json:"poll_interval"`
	}

	HTTPServer struct {
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port            uint          `envconfig:"HTTP_SERVER_PORT" default:"8080" json:"port"`
		ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
		MaxBodyBytes    int64         `envconfig:"HTTP_MAX_BODY_BYTES" default:"1048576" json:"max_body_bytes"`
	}

	GRPCServer struct {
		Host                string        `envconfig:"GRPC_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port                uint          `envconfig:"GRPC_SERVER_PORT" default:"9090" json:"port"`
		ShutdownTimeout     time.Duration `envconfig:"GRPC_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
		MaxRecvMsgSize      int           `envconfig:"GRPC_MAX_RECV_MSG_SIZE" default:"4194304" json:"max_recv_msg_size"`
		MaxSendMsgSize      int           `envconfig:"GRPC_MAX_SEND_MSG_SIZE" default:"4194304" json:"max_send_msg_size"`
		HealthCheckInterval time.Duration `envconfig:"GRPC_HEALTH_CHECK_INTERVAL" default:"10s" json:"health_check_interval"`
	}

	Database struct {
		Host            string        `envconfig:"POSTGRES_HOST" default:"postgres" json:"host"`
		Port            uint          `envconfig:"POSTGRES_PORT" default:"5432" json:"port"`
		Database        string        `envconfig:"POSTGRES_DATABASE" default:"posts" json:"database"`
		Username        string        `envconfig:"POSTGRES_USERNAME" default:"postgres" json:"username"`
		Password        string        `envconfig:"POSTGRES_PASSWORD" default:"" json:"password,omitempty"`
		SSLMode         string        `envconfig:"POSTGRES_SSL_MODE" default:"disable" json:"ssl_mode"`
		MaxConnections  int           `envconfig:"POSTGRES_MAX_CONNECTIONS" default:"25" json:"max_connections"`
		MinConnections  int           `envconfig:"POSTGRES_MIN_CONNECTIONS" default:"5" json:"min_connections"`
		ConnectTimeout  time.Duration `envconfig:"POSTGRES_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		MaxConnLifetime time.Duration `envconfig:"POSTGRES_MAX_CONN_LIFETIME" default:"1h" json:"max_conn_lifetime"`
		MaxConnIdleTime time.Duration `envconfig:"POSTGRES_MAX_CONN_IDLE_TIME" default:"30m" json:"max_conn_idle_time"`
		AutoMigrate     bool          `envconfig:"DATABASE_AUTO_MIGRATE" default:"false" json:"auto_migrate"`
		LogQueries      bool          `envconfig:"POSTGRES_LOG_QUERIES" default:"false" json:"log_queries"`
	}

	Search struct {
		Backend        string        `envconfig:"SEARCH_BACKEND" default:"elastic" json:"backend"`
		Addresses      []string      `envconfig:"SEARCH_ADDRESSES" default:"http://elasticsearch:9200" json:"addresses"`
		Username       string        `envconfig:"SEARCH_USERNAME" default:"" json:"username,omitempty"`
		Password       string        `envconfig:"SEARCH_PASSWORD" default:"" json:"password,omitempty"`
		DB             int           `envconfig:"SEARCH_DB" default:"0" json:"db"`
		Index          string        `envconfig:"SEARCH_INDEX" default:"posts" json:"index"`
		KeyPrefix      string        `envconfig:"SEARCH_KEY_PREFIX" default:"post:" json:"key_prefix"`
		Refresh        bool          `envconfig:"SEARCH_REFRESH" default:"false" json:"refresh"`
		WriteTimeout   time.Duration `envconfig:"SEARCH_WRITE_TIMEOUT" default:"5s" json:"write_timeout"`
		ConnectRetries uint          `envconfig:"SEARCH_CONNECT_RETRIES" default:"5" json:"connect_retries"`
		ReindexBatch   uint          `envconfig:"SEARCH_REINDEX_BATCH_SIZE" default:"500" json:"reindex_batch_size"`
	}

	Cache struct {
		Address       string        `envconfig:"CACHE_ADDRESS" default:"keydb:6379" json:"address"`
		Password      string        `envconfig:"CACHE_PASSWORD" default:"" json:"password,omitempty"`
		DB            uint          `envconfig:"CACHE_DB" default:"0" json:"db"`
		PoolSize      uint          `envconfig:"CACHE_POOL_SIZE" default:"10" json:"pool_size"`
		MinIdleConns  uint          `envconfig:"CACHE_MIN_IDLE_CONNS" default:"2" json:"min_idle_conns"`
		DialTimeout   time.Duration `envconfig:"CACHE_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
		ReadTimeout   time.Duration `envconfig:"CACHE_READ_TIMEOUT" default:"3s" json:"read_timeout"`
		WriteTimeout  time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"3s" json:"write_timeout"`
		PoolTimeout   time.Duration `envconfig:"CACHE_POOL_TIMEOUT" default:"4s" json:"pool_timeout"`
		MaxRetries    uint          `envconfig:"CACHE_MAX_RETRIES" default:"3" json:"max_retries"`
		DefaultExpiry time.Duration `envconfig:"CACHE_DEFAULT_EXPIRY" default:"5m" json:"default_expiry"`
	}

	PostsCache struct {
		Enabled bool          `envconfig:"POSTS_CACHE_ENABLED" default:"false" json:"enabled"`
		PostTTL time.Duration `envconfig:"POSTS_CACHE_POST_TTL" default:"5m" json:"post_ttl"`
	}

	CircuitBreaker struct {
		Enabled          bool          `envconfig:"SEARCH_CB_ENABLED" default:"true" json:"enabled"`
		MaxRequests      uint          `envconfig:"SEARCH_CB_MAX_REQUESTS" default:"5" json:"max_requests"`
		Interval         time.Duration `envconfig:"SEARCH_CB_INTERVAL" default:"60s" json:"interval"`
		Timeout          time.Duration `envconfig:"SEARCH_CB_TIMEOUT" default:"30s" json:"timeout"`
		FailureThreshold uint          `envconfig:"SEARCH_CB_FAILURE_THRESHOLD" default:"5" json:"failure_threshold"`
	}

	Backoff struct {
		BaseDelay  time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"1s" json:"base_delay"`
		Multiplier float64       `envconfig:"BACKOFF_MULTIPLIER" default:"1.5" json:"multiplier"`
		Jitter     float64       `envconfig:"BACKOFF_JITTER" default:"0.3" json:"jitter"`
		MaxDelay   time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"10s" json:"max_delay"`
	}

	// RateLimit throttles the HTTP API per client address with GCRA.
	RateLimit struct {
		Enabled           bool     `envconfig:"RATE_LIMITING_ENABLED" default:"false" json:"enabled"`
		Store             string   `envconfig:"RATE_LIMITING_STORE" default:"memory" json:"store"`
		RequestsPerSecond uint     `envconfig:"RATE_LIMITING_REQUESTS_PER_SECOND" default:"50" json:"requests_per_second"`
		BurstSize         uint     `envconfig:"RATE_LIMITING_BURST_SIZE" default:"100" json:"burst_size"`
		MaxKeys           uint     `envconfig:"RATE_LIMITING_MAX_KEYS" default:"10000" json:"max_keys"`
		SkipPaths         []string `envconfig:"RATE_LIMITING_SKIP_PATHS" default:"/health,/metrics" json:"skip_paths"`
		GracefulDegraded  bool     `envconfig:"RATE_LIMITING_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	// Idempotency replays stored responses to retried requests that carry
	// the same Idempotency-Key. State lives in the shared cache.
	Idempotency struct {
		Enabled          bool          `envconfig:"IDEMPOTENCY_ENABLED" default:"false" json:"enabled"`
		CacheTTL         time.Duration `envconfig:"IDEMPOTENCY_CACHE_TTL" default:"24h" json:"cache_ttl"`
		LockTTL          time.Duration `envconfig:"IDEMPOTENCY_LOCK_TTL" default:"30s" json:"lock_ttl"`
		Methods          []string      `envconfig:"IDEMPOTENCY_METHODS" default:"POST" json:"methods"`
		HeaderName       string        `envconfig:"IDEMPOTENCY_HEADER" default:"Idempotency-Key" json:"header_name"`
		ReplayedHeader   string        `envconfig:"IDEMPOTENCY_REPLAYED_HEADER" default:"Idempotent-Replayed" json:"replayed_header"`
		GracefulDegraded bool          `envconfig:"IDEMPOTENCY_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	Compression struct {
		Enabled bool `envconfig:"COMPRESSION_ENABLED" default:"true" json:"enabled"`

		// Level applies to every encoder; 1 is fastest, 9 smallest.
		Level int `envconfig:"COMPRESSION_LEVEL" default:"5" json:"level"`

		// MinSize is the body size in bytes below which responses go out as is.
		MinSize      int      `envconfig:"COMPRESSION_MIN_SIZE" default:"1024" json:"min_size"`
		ContentTypes []string `envconfig:"COMPRESSION_CONTENT_TYPES" json:"content_types"`
		SkipPaths    []string `envconfig:"COMPRESSION_SKIP_PATHS" default:"/health,/metrics" json:"skip_paths"`
	}

	Logging struct {
		Level     string    `envconfig:"LOG_LEVEL" default:"info" json:"level"`
		Format    string    `envconfig:"LOG_FORMAT" default:"json" json:"format"`
		AccessLog AccessLog `json:"access_log"`
	}

	AccessLog struct {
		Enabled            bool `envconfig:"ACCESS_LOG_ENABLED" default:"true" json:"enabled"`
		LogHealthChecks    bool `envconfig:"ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
		IncludeQueryParams bool `envconfig:"ACCESS_LOG_INCLUDE_QUERY_PARAMS" default:"true" json:"include_query_params"`
		IncludeMetadata    bool `envconfig:"ACCESS_LOG_INCLUDE_METADATA" default:"false" json:"include_metadata"`
	}

	Telemetry struct {
		Enabled        bool    `envconfig:"OTEL_ENABLED" default:"false" json:"enabled"`
		ExporterType   string  `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`
		OTLPEndpoint   string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"" json:"otlp_endpoint"`
		ServiceName    string  `envconfig:"OTEL_SERVICE_NAME" default:"svc-posts" json:"service_name"`
		ServiceVersion string  `envconfig:"OTEL_SERVICE_VERSION" default:"1.0.0" json:"service_version"`
		Metrics        Metrics `json:"metrics"`
		Traces         Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"true" json:"enabled"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1.0" json:"sampler_ratio"`
	}
)

func (c *ServiceConfig) GetEnvironment() int {
	switch c.App.Env.Name {
	case "production", "prod":
		return Production
	case "staging", "stg":
		return Staging
	case "sandbox", "sbx":
		return Sandbox
	default:
		return Development
	}
}

func (c *ServiceConfig) IsProduction() bool {
	return c.GetEnvironment() == Production
}

// Validate rejects settings that would only fail later at startup.
func (c *ServiceConfig) Validate() error {
	switch strings.ToLower(c.Search.Backend) {
	case SearchBackendElastic, SearchBackendRediSearch:
	default:
		return fmt.Errorf("unsupported search backend %q", c.Search.Backend)
	}

	if len(c.Search.Addresses) == 0 {
		return fmt.Errorf("at least one search address is required")
	}

	if c.Search.WriteTimeout <= 0 {
		return fmt.Errorf("search write timeout must be positive")
	}

	if c.PostsCache.Enabled && c.PostsCache.PostTTL <= 0 {
		return fmt.Errorf("posts cache ttl must be positive when the cache is enabled")
	}

	if err := c.RateLimit.Validate(); err != nil {
		return err
	}

	if c.Idempotency.Enabled && (c.Idempotency.CacheTTL <= 0 || c.Idempotency.LockTTL <= 0) {
		return fmt.Errorf("idempotency cache and lock ttl must be positive")
	}

	return c.Compression.Validate()
}

func (r *RateLimit) Validate() error {
	if !r.Enabled {
		return nil
	}

	switch strings.ToLower(r.Store) {
	case RateLimitStoreMemory, RateLimitStoreCache:
	default:
		return fmt.Errorf("unsupported rate limit store %q", r.Store)
	}

	if r.RequestsPerSecond == 0 {
		return fmt.Errorf("rate limit requests per second must be positive")
	}

	return nil
}

func (c *Compression) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Level < 1 || c.Level > 9 {
		return fmt.Errorf("compression level must be between 1 and 9, got %d", c.Level)
	}

	if c.MinSize < 0 {
		return fmt.Errorf("compression min_size must be non-negative, got %d", c.MinSize)
	}

	return nil
}

// DSN renders the pgx connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}
