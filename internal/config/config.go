package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, the HTTP API, the risk backend,
// the guard's caches, the browser host, the database connection and
// graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the environment's default log level when set (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" env-default:"" yaml:"logLevel"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Enabled toggles the local API used by popup and content-script clients
		Enabled bool `env:"HTTP_ENABLED" env-default:"true" yaml:"enabled"`
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:"127.0.0.1:8085" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"30s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// QueueUIPath is where the job queue dashboard is served when incidents are queued
		QueueUIPath string `env:"HTTP_QUEUE_UI_PATH" env-default:"/riverui" yaml:"queueUIPath"`
		// AllowedOrigins restricts CORS to the listed origins (e.g. chrome-extension://<id>); empty allows all
		AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" env-separator:"," yaml:"allowedOrigins"`
	} `yaml:"http"`

	// Backend configures the remote risk API.
	Backend struct {
		// BaseURL is the API root; /check-url and /incidents/create are resolved against it
		BaseURL string `env:"BACKEND_BASE_URL" env-default:"http://localhost:3000/api" yaml:"baseURL"`
		// Timeout bounds a single classification or incident call
		Timeout time.Duration `env:"BACKEND_TIMEOUT" env-default:"10s" yaml:"timeout"`
		// SystemPrefixes are extra URL prefixes that are never classified
		SystemPrefixes []string `env:"BACKEND_SYSTEM_PREFIXES" env-separator:"," yaml:"systemPrefixes"`
	} `yaml:"backend"`

	// Cache configures the risk cache.
	Cache struct {
		// TTL is how long a classification is trusted by non-priority callers
		TTL time.Duration `env:"CACHE_TTL" env-default:"5m" yaml:"ttl"`
		// SweepInterval is how often expired entries are physically evicted
		SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" env-default:"10m" yaml:"sweepInterval"`
	} `yaml:"cache"`

	// Blocklist configures the block registry.
	Blocklist struct {
		// TTL expires blocks after the given duration; zero keeps blocks for the process lifetime
		TTL time.Duration `env:"BLOCKLIST_TTL" env-default:"0s" yaml:"ttl"`
		// Persist writes blocks through to PostgreSQL and reloads them at startup
		Persist bool `env:"BLOCKLIST_PERSIST" env-default:"false" yaml:"persist"`
	} `yaml:"blocklist"`

	// Classifier configures the classifier client.
	Classifier struct {
		// Coalesce shares one in-flight classification between concurrent callers for the same URL
		Coalesce bool `env:"CLASSIFIER_COALESCE" env-default:"false" yaml:"coalesce"`
	} `yaml:"classifier"`

	// Incidents configures incident reporting.
	Incidents struct {
		// Enabled toggles incident reporting altogether
		Enabled bool `env:"INCIDENTS_ENABLED" env-default:"true" yaml:"enabled"`
		// Queue delivers incidents through the job queue with retries (requires the database)
		Queue bool `env:"INCIDENTS_QUEUE" env-default:"false" yaml:"queue"`
		// MaxAttempts is the retry budget of queued deliveries
		MaxAttempts int `env:"INCIDENTS_MAX_ATTEMPTS" env-default:"5" yaml:"maxAttempts"`
		// RatePerSecond caps incidents sent per second; zero disables the cap
		RatePerSecond float64 `env:"INCIDENTS_RATE_PER_SECOND" env-default:"0" yaml:"ratePerSecond"`
		// Burst is the burst size allowed by the rate cap
		Burst int `env:"INCIDENTS_BURST" env-default:"10" yaml:"burst"`
		// ClientVersion is reported in clientInfo
		ClientVersion string `env:"INCIDENTS_CLIENT_VERSION" env-default:"1.0.0" yaml:"clientVersion"`
		// UserAgent is reported in clientInfo
		UserAgent string `env:"INCIDENTS_USER_AGENT" env-default:"urlguard" yaml:"userAgent"`
	} `yaml:"incidents"`

	// BlockPage configures the page users are redirected to.
	BlockPage struct {
		// URL is the blocking page; url, reason and timestamp query parameters are appended
		URL string `env:"BLOCK_PAGE_URL" env-default:"http://127.0.0.1:8085/blocked" yaml:"url"`
	} `yaml:"blockPage"`

	// Browser configures the playwright browser host.
	Browser struct {
		// Enabled launches a guarded Chromium instance
		Enabled bool `env:"BROWSER_ENABLED" env-default:"false" yaml:"enabled"`
		// Headless runs the browser without a window
		Headless bool `env:"BROWSER_HEADLESS" env-default:"false" yaml:"headless"`
		// StartURL is opened in the first tab
		StartURL string `env:"BROWSER_START_URL" env-default:"about:blank" yaml:"startURL"`
		// Install downloads browser binaries before launch
		Install bool `env:"BROWSER_INSTALL" env-default:"false" yaml:"install"`
	} `yaml:"browser"`

	// Database contains all database connection related configurations
	Database struct {
		// Enabled toggles the PostgreSQL connection
		Enabled bool `env:"DATABASE_ENABLED" env-default:"false" yaml:"enabled"`
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"urlguard" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"2" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Validate checks cross-field constraints cleanenv cannot express.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseURL is required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Blocklist.Persist && !c.Database.Enabled {
		return fmt.Errorf("blocklist.persist requires database.enabled")
	}
	if c.Incidents.Queue && !c.Database.Enabled {
		return fmt.Errorf("incidents.queue requires database.enabled")
	}

	return nil
}

// Load receives the path for yaml config file and returns a filled Config struct.
// When the file does not exist, configuration is read from the environment only.
func Load(configPath string) (*Config, error) {
	var cfg Config
	read := cleanenv.ReadEnv
	if _, err := os.Stat(configPath); err == nil {
		read = func(cfg interface{}) error { return cleanenv.ReadConfig(configPath, cfg) }
	}
	if err := read(&cfg); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
