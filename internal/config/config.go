package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds all configuration for the service.
type Config struct {
	ServiceName            string `mapstructure:"SERVICE_NAME"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	GRPCPort               string `mapstructure:"GRPC_PORT"`
	PrometheusMetricsPort  string `mapstructure:"PROMETHEUS_METRICS_PORT"`
	OTExporterOTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins     string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	RedisAddress  string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	NATSURL string `mapstructure:"NATS_URL"`

	StorageBackend      string `mapstructure:"STORAGE_BACKEND"`
	UploadDir           string `mapstructure:"UPLOAD_DIR"`
	UploadPublicPrefix  string `mapstructure:"UPLOAD_PUBLIC_PREFIX"`
	MinIOEndpoint       string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey      string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey      string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket         string `mapstructure:"MINIO_BUCKET"`
	MinIOObjectPrefix   string `mapstructure:"MINIO_OBJECT_PREFIX"`
	MinIOUseSSL         bool   `mapstructure:"MINIO_USE_SSL"`
	MaxImagesPerRequest int    `mapstructure:"MAX_IMAGES_PER_REQUEST"`
	MaxUploadBytes      int64  `mapstructure:"MAX_UPLOAD_BYTES"`
	UploadConcurrency   int    `mapstructure:"UPLOAD_CONCURRENCY"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
}

var defaults = map[string]any{
	"SERVICE_NAME":                "property-service",
	"HTTP_PORT":                   "8080",
	"GRPC_PORT":                   "50052",
	"PROMETHEUS_METRICS_PORT":     "9094",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"JWT_SECRET":                  "",
	"CORS_ALLOWED_ORIGINS":        "*",
	"MONGO_URI":                   "mongodb://localhost:27017",
	"MONGO_DATABASE":              "real_estate",
	"REDIS_ADDRESS":               "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"CACHE_TTL":                   "10m",
	"NATS_URL":                    "nats://localhost:4222",
	"STORAGE_BACKEND":             StorageLocal,
	"UPLOAD_DIR":                  "uploads",
	"UPLOAD_PUBLIC_PREFIX":        "/uploads/",
	"MINIO_ENDPOINT":              "localhost:9000",
	"MINIO_ACCESS_KEY":            "minioadmin",
	"MINIO_SECRET_KEY":            "minioadmin",
	"MINIO_BUCKET":                "real-estate",
	"MINIO_OBJECT_PREFIX":         "properties",
	"MINIO_USE_SSL":               false,
	"MAX_IMAGES_PER_REQUEST":      5,
	"MAX_UPLOAD_BYTES":            10 << 20,
	"UPLOAD_CONCURRENCY":          4,
	"SMTP_HOST":                   "",
	"SMTP_PORT":                   587,
	"SMTP_USERNAME":               "",
	"SMTP_PASSWORD":               "",
	"SMTP_FROM":                   "no-reply@real-estate.local",
}

// LoadConfig reads configuration from the environment. A .env file, if any,
// is loaded into the environment by main before this is called.
func LoadConfig(appLogger *logger.Logger) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		appLogger.Error("Failed to unmarshal configuration", zap.Error(err))
		return nil, err
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appLogger.Debug("Configuration loaded",
		zap.String("service_name", cfg.ServiceName),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
		zap.String("mongo_database", cfg.MongoDatabase),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.Bool("smtp_enabled", cfg.SMTPHost != ""),
		zap.String("otel_endpoint", cfg.OTExporterOTLPEndpoint),
	)
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case StorageLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for the local storage backend"))
		}
	case StorageS3:
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for the s3 storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", c.StorageBackend, StorageLocal, StorageS3))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.MongoURI == "" || c.MongoDatabase == "" {
		errs = append(errs, errors.New("MONGO_URI and MONGO_DATABASE are required"))
	}
	if c.MaxImagesPerRequest < 1 {
		errs = append(errs, errors.New("MAX_IMAGES_PER_REQUEST must be at least 1"))
	}
	if c.UploadConcurrency < 1 {
		c.UploadConcurrency = 1
	}
	return errors.Join(errs...)
}

// S3Configured reports whether enough MinIO settings exist to build a client,
// which lets the service delete remote images even when local storage is active.
func (c *Config) S3Configured() bool {
	return c.MinIOEndpoint != "" && c.MinIOBucket != ""
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
