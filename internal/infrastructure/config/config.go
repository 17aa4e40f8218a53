package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App        AppSettings
	HTTP       HTTPSettings
	Log        LogSettings
	Database   DatabaseSettings
	Redis      RedisSettings
	Queue      QueueSettings
	Audit      AuditSettings
	LLM        LLMSettings
	Storage    StorageSettings
	MasterData MasterDataSettings
	Pipeline   PipelineSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	WriteTimeoutSync time.Duration // Extended timeout for ?mode=sync submissions
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	RateLimitRPM     int
	AllowedHosts     []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RunMigrations   bool
}

type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

// QueueSettings configures the asynq queues. Tasks share the Redis instance.
type QueueSettings struct {
	ExtractionQueue string
	HandoffQueue    string
	Concurrency     int
	MaxRetry        int
	TaskTimeout     time.Duration
	HandoffEnabled  bool
}

type AuditSettings struct {
	Enabled         bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// LLMSettings configures the generative backend and its guard.
type LLMSettings struct {
	Provider                string // openai or bedrock
	Model                   string
	APIKey                  string
	BaseURL                 string // OpenAI-compatible endpoint, empty for the public API
	Region                  string // Bedrock region
	Temperature             float64
	MaxTokens               int
	Timeout                 time.Duration
	MaxAttempts             int // Attempts per call when the output is malformed
	MaxConcurrentRequests   int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

type StorageSettings struct {
	Driver string // fs or s3
	Root   string // Base directory for the fs driver
	Bucket string
	Region string
}

type MasterDataSettings struct {
	Source          string // postgres or csv
	CSVPrefix       string // Object key prefix of the CSV exports
	VendorBatchSize int
	ItemBatchSize   int
	StoreBatchSize  int
	CacheTTL        time.Duration
	CacheEnabled    bool
}

type PipelineSettings struct {
	WorkerCount             int
	AmountTolerance         string
	NumberingTimeZone       string
	NumberingMaxAttempts    int
	DuplicateRequireSuccess bool
	MerchantPolicyFile      string
}

// Load resolves the application configuration from environment variables.
// It first attempts to load variables from a .env file if it exists.
// Environment variables set in the system take precedence over .env file values.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "ms_extraccion_core"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:             getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:      getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:     getEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			WriteTimeoutSync: getEnvAsDuration("HTTP_WRITE_TIMEOUT_SYNC", 15*time.Minute),
			IdleTimeout:      getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:  getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimitRPM:     getEnvAsInt("HTTP_RATE_LIMIT_RPM", 120),
			AllowedHosts:     getEnvAsCSV("HTTP_ALLOWED_HOSTS", nil),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "ms_extraccion_core"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			RunMigrations:   getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisSettings{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Queue: QueueSettings{
			ExtractionQueue: getEnv("QUEUE_EXTRACTION", "extraction"),
			HandoffQueue:    getEnv("QUEUE_HANDOFF", "erp_handoff"),
			Concurrency:     getEnvAsInt("QUEUE_CONCURRENCY", 4),
			MaxRetry:        getEnvAsInt("QUEUE_MAX_RETRY", 5),
			TaskTimeout:     getEnvAsDuration("QUEUE_TASK_TIMEOUT", 15*time.Minute),
			HandoffEnabled:  getEnvAsBool("QUEUE_HANDOFF_ENABLED", true),
		},
		Audit: AuditSettings{
			Enabled:         getEnvAsBool("AUDIT_ENABLED", true),
			LogRequestBody:  getEnvAsBool("AUDIT_LOG_REQUEST_BODY", true),
			LogResponseBody: getEnvAsBool("AUDIT_LOG_RESPONSE_BODY", true),
			MaxBodySize:     getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		LLM: LLMSettings{
			Provider:                strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:                   getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:                  strings.TrimSpace(os.Getenv("LLM_API_KEY")),
			BaseURL:                 strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
			Region:                  getEnv("LLM_REGION", "ap-southeast-1"),
			Temperature:             getEnvAsFloat("LLM_TEMPERATURE", 0),
			MaxTokens:               getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Timeout:                 getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			MaxAttempts:             getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			MaxConcurrentRequests:   getEnvAsInt("LLM_MAX_CONCURRENT_REQUESTS", 8),
			CircuitBreakerThreshold: getEnvAsInt("LLM_CIRCUIT_BREAKER_THRESHOLD", 5),
			CircuitBreakerTimeout:   getEnvAsDuration("LLM_CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
		},
		Storage: StorageSettings{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", "fs")),
			Root:   getEnv("STORAGE_ROOT", "./data"),
			Bucket: strings.TrimSpace(os.Getenv("STORAGE_BUCKET")),
			Region: getEnv("STORAGE_REGION", "ap-southeast-1"),
		},
		MasterData: MasterDataSettings{
			Source:          strings.ToLower(getEnv("MASTERDATA_SOURCE", "postgres")),
			CSVPrefix:       getEnv("MASTERDATA_CSV_PREFIX", "masterdata"),
			VendorBatchSize: getEnvAsInt("MASTERDATA_VENDOR_BATCH_SIZE", 100),
			ItemBatchSize:   getEnvAsInt("MASTERDATA_ITEM_BATCH_SIZE", 50),
			StoreBatchSize:  getEnvAsInt("MASTERDATA_STORE_BATCH_SIZE", 100),
			CacheTTL:        getEnvAsDuration("MASTERDATA_CACHE_TTL", 10*time.Minute),
			CacheEnabled:    getEnvAsBool("MASTERDATA_CACHE_ENABLED", true),
		},
		Pipeline: PipelineSettings{
			WorkerCount:             getEnvAsInt("PIPELINE_WORKER_COUNT", 1),
			AmountTolerance:         getEnv("PIPELINE_AMOUNT_TOLERANCE", "0.02"),
			NumberingTimeZone:       getEnv("PIPELINE_NUMBERING_TIMEZONE", "Asia/Kuala_Lumpur"),
			NumberingMaxAttempts:    getEnvAsInt("PIPELINE_NUMBERING_MAX_ATTEMPTS", 10),
			DuplicateRequireSuccess: getEnvAsBool("DUPLICATE_REQUIRE_SUCCESS", false),
			MerchantPolicyFile:      getEnv("MERCHANT_POLICY_FILE", "config/merchants.yaml"),
		},
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			return errors.New("invalid config: LLM_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "bedrock":
	default:
		return fmt.Errorf("invalid config: LLM_PROVIDER must be 'openai' or 'bedrock', got %q", c.LLM.Provider)
	}
	if c.LLM.MaxAttempts <= 0 {
		return errors.New("invalid config: LLM_MAX_ATTEMPTS must be greater than 0")
	}
	if c.LLM.MaxConcurrentRequests <= 0 || c.LLM.MaxConcurrentRequests > 200 {
		return errors.New("invalid config: LLM_MAX_CONCURRENT_REQUESTS must be between 1 and 200")
	}

	switch c.Storage.Driver {
	case "fs":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("invalid config: STORAGE_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("invalid config: STORAGE_DRIVER must be 'fs' or 's3', got %q", c.Storage.Driver)
	}

	if c.MasterData.Source != "postgres" && c.MasterData.Source != "csv" {
		return fmt.Errorf("invalid config: MASTERDATA_SOURCE must be 'postgres' or 'csv', got %q", c.MasterData.Source)
	}
	if c.MasterData.VendorBatchSize <= 0 || c.MasterData.ItemBatchSize <= 0 || c.MasterData.StoreBatchSize <= 0 {
		return errors.New("invalid config: master data batch sizes must be greater than 0")
	}

	if c.Pipeline.WorkerCount <= 0 {
		return errors.New("invalid config: PIPELINE_WORKER_COUNT must be greater than 0")
	}
	if _, err := time.LoadLocation(c.Pipeline.NumberingTimeZone); err != nil {
		return fmt.Errorf("invalid config: PIPELINE_NUMBERING_TIMEZONE: %w", err)
	}
	if _, err := strconv.ParseFloat(c.Pipeline.AmountTolerance, 64); err != nil {
		return fmt.Errorf("invalid config: PIPELINE_AMOUNT_TOLERANCE %q is not a number", c.Pipeline.AmountTolerance)
	}
	return nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

// Location returns the time zone used to scope document numbers.
func (p PipelineSettings) Location() *time.Location {
	loc, err := time.LoadLocation(p.NumberingTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
