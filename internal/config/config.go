package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	MinIO      MinIOConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Log        LogConfig
	Extraction ExtractionConfig
	CORS       CORSConfig
	Queue      QueueConfig
}

// QueueConfig holds extraction queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings. An origin of "*" admits every origin.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAgeSecs     int      `mapstructure:"max_age_secs"`
}

// AllowsOrigin reports whether a browser origin may call the API. Origins
// compare without case and without a trailing slash.
func (c *CORSConfig) AllowsOrigin(origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == "" {
		return false
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || normalizeOrigin(o) == origin {
			return true
		}
	}
	return false
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig selects where invoice documents live.
// Backend is one of "local", "s3" or "minio".
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	PublicDir     string `mapstructure:"public_dir"`
	PrivateDir    string `mapstructure:"private_dir"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// MinIOConfig holds settings for a self-hosted MinIO bucket.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// RedisConfig holds the per-invoice lock store. An empty Addr selects
// the in-process locker.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	LockTTLSec int    `mapstructure:"lock_ttl_secs"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from environment variables with the FATURA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FATURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "fatura")
	v.SetDefault("db.password", "fatura_secret")
	v.SetDefault("db.name", "fatura_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Storage defaults
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.public_dir", "./sites/public/files")
	v.SetDefault("storage.private_dir", "./sites/private/files")
	v.SetDefault("storage.max_file_size_mb", 20)
	v.SetDefault("storage.presign_expiry", 3600)

	// S3 defaults
	v.SetDefault("s3.region", "me-central-1")
	v.SetDefault("s3.bucket", "fatura-invoices")
	v.SetDefault("s3.endpoint", "")

	// MinIO defaults
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.bucket", "fatura-invoices")
	v.SetDefault("minio.use_ssl", false)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl_secs", 300)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("cors.max_age_secs", 86400)

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.concurrency", 3)

	// Extraction defaults. Prompt texts default in WithDefaults.
	v.SetDefault("extraction.provider", ProviderGemini)
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.model", "")
	v.SetDefault("extraction.ocr_model", DefaultOCRModel)
	v.SetDefault("extraction.temperature", DefaultTemperature)
	v.SetDefault("extraction.system_instruction", "")
	v.SetDefault("extraction.json_format", "")
	v.SetDefault("extraction.prompt_instructions", "")
	v.SetDefault("extraction.debug_logging", false)
	v.SetDefault("extraction.timeout_secs", 120)
	v.SetDefault("extraction.base_url", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "FATURA_SERVER_PORT",
		"server.read_timeout":            "FATURA_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "FATURA_SERVER_WRITE_TIMEOUT",
		"server.environment":             "FATURA_SERVER_ENVIRONMENT",
		"db.host":                        "FATURA_DB_HOST",
		"db.port":                        "FATURA_DB_PORT",
		"db.user":                        "FATURA_DB_USER",
		"db.password":                    "FATURA_DB_PASSWORD",
		"db.name":                        "FATURA_DB_NAME",
		"db.sslmode":                     "FATURA_DB_SSLMODE",
		"db.max_open":                    "FATURA_DB_MAX_OPEN",
		"db.max_idle":                    "FATURA_DB_MAX_IDLE",
		"storage.backend":                "FATURA_STORAGE_BACKEND",
		"storage.public_dir":             "FATURA_STORAGE_PUBLIC_DIR",
		"storage.private_dir":            "FATURA_STORAGE_PRIVATE_DIR",
		"storage.max_file_size_mb":       "FATURA_STORAGE_MAX_FILE_SIZE_MB",
		"storage.presign_expiry":         "FATURA_STORAGE_PRESIGN_EXPIRY",
		"s3.region":                      "FATURA_S3_REGION",
		"s3.bucket":                      "FATURA_S3_BUCKET",
		"s3.endpoint":                    "FATURA_S3_ENDPOINT",
		"s3.access_key":                  "FATURA_S3_ACCESS_KEY",
		"s3.secret_key":                  "FATURA_S3_SECRET_KEY",
		"minio.endpoint":                 "FATURA_MINIO_ENDPOINT",
		"minio.access_key":               "FATURA_MINIO_ACCESS_KEY",
		"minio.secret_key":               "FATURA_MINIO_SECRET_KEY",
		"minio.bucket":                   "FATURA_MINIO_BUCKET",
		"minio.use_ssl":                  "FATURA_MINIO_USE_SSL",
		"redis.addr":                     "FATURA_REDIS_ADDR",
		"redis.password":                 "FATURA_REDIS_PASSWORD",
		"redis.db":                       "FATURA_REDIS_DB",
		"redis.lock_ttl_secs":            "FATURA_REDIS_LOCK_TTL_SECS",
		"log.level":                      "FATURA_LOG_LEVEL",
		"log.format":                     "FATURA_LOG_FORMAT",
		"log.output":                     "FATURA_LOG_OUTPUT",
		"cors.allowed_origins":           "FATURA_CORS_ALLOWED_ORIGINS",
		"cors.max_age_secs":              "FATURA_CORS_MAX_AGE_SECS",
		"queue.poll_interval_secs":       "FATURA_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":              "FATURA_QUEUE_MAX_RETRIES",
		"queue.concurrency":              "FATURA_QUEUE_CONCURRENCY",
		"extraction.provider":            "FATURA_EXTRACTION_PROVIDER",
		"extraction.api_key":             "FATURA_EXTRACTION_API_KEY",
		"extraction.model":               "FATURA_EXTRACTION_MODEL",
		"extraction.ocr_model":           "FATURA_EXTRACTION_OCR_MODEL",
		"extraction.temperature":         "FATURA_EXTRACTION_TEMPERATURE",
		"extraction.system_instruction":  "FATURA_EXTRACTION_SYSTEM_INSTRUCTION",
		"extraction.json_format":         "FATURA_EXTRACTION_JSON_FORMAT",
		"extraction.prompt_instructions": "FATURA_EXTRACTION_PROMPT_INSTRUCTIONS",
		"extraction.debug_logging":       "FATURA_EXTRACTION_DEBUG_LOGGING",
		"extraction.timeout_secs":        "FATURA_EXTRACTION_TIMEOUT_SECS",
		"extraction.base_url":            "FATURA_EXTRACTION_BASE_URL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set a PORT env var. Use it if FATURA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FATURA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Storage = StorageConfig{
		Backend:       strings.ToLower(v.GetString("storage.backend")),
		PublicDir:     v.GetString("storage.public_dir"),
		PrivateDir:    v.GetString("storage.private_dir"),
		MaxFileSizeMB: v.GetInt64("storage.max_file_size_mb"),
		PresignExpiry: v.GetInt64("storage.presign_expiry"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.MinIO = MinIOConfig{
		Endpoint:  v.GetString("minio.endpoint"),
		AccessKey: v.GetString("minio.access_key"),
		SecretKey: v.GetString("minio.secret_key"),
		Bucket:    v.GetString("minio.bucket"),
		UseSSL:    v.GetBool("minio.use_ssl"),
	}
	cfg.Redis = RedisConfig{
		Addr:       v.GetString("redis.addr"),
		Password:   v.GetString("redis.password"),
		DB:         v.GetInt("redis.db"),
		LockTTLSec: v.GetInt("redis.lock_ttl_secs"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
		MaxAgeSecs:     v.GetInt("cors.max_age_secs"),
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}

	cfg.Extraction = ExtractionConfig{
		Provider:           strings.ToLower(v.GetString("extraction.provider")),
		APIKey:             v.GetString("extraction.api_key"),
		Model:              v.GetString("extraction.model"),
		OCRModel:           v.GetString("extraction.ocr_model"),
		Temperature:        v.GetFloat64("extraction.temperature"),
		SystemInstruction:  v.GetString("extraction.system_instruction"),
		JSONFormat:         v.GetString("extraction.json_format"),
		PromptInstructions: v.GetString("extraction.prompt_instructions"),
		DebugLogging:       v.GetBool("extraction.debug_logging"),
		TimeoutSecs:        v.GetInt("extraction.timeout_secs"),
		BaseURL:            v.GetString("extraction.base_url"),
	}.WithDefaults()

	if err := cfg.Extraction.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
