package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	LogLevel   string
	ServerPort int
	JWTSecret  string

	// MaxBodyBytes caps request bodies, inline images included.
	MaxBodyBytes int64

	// AdminEmails receive the admin role when they register.
	AdminEmails []string

	Database  DatabaseConfig
	Storage   StorageConfig
	MQ        MQConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Client    ClientConfig
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool

	// Path is the SQLite DSN, e.g. "catalog.db" or ":memory:".
	Path string
}

type StorageConfig struct {
	// Backend is "minio", "gcs" or "none".
	Backend string

	// PublicBaseURL prefixes object keys to build public image URLs.
	PublicBaseURL string

	Minio MinioConfig
	GCS   GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MQConfig struct {
	// Backend is "rabbitmq", "pubsub" or "none".
	Backend string

	// Channel receives work lifecycle events.
	Channel string

	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type RedisConfig struct {
	// URL is optional; an empty URL disables Redis-backed features.
	URL string
}

type RateLimitConfig struct {
	// Submissions is the number of work submissions allowed per user per Window.
	Submissions int
	Window      time.Duration
}

type ClientConfig struct {
	AuthURL  string
	WorksURL string

	// StateDir holds the file slot of the local projection.
	StateDir string
	SlotName string

	// RedisURL switches the projection slot to a Redis key when set.
	RedisURL string

	Timeout time.Duration
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "zidesign"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "zidesign_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
		Path:     getEnv("DB_PATH", "zidesign.db"),
	}

	storageConfig := StorageConfig{
		Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", "none")),
		PublicBaseURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "files"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	mqConfig := MQConfig{
		Backend: strings.ToLower(getEnv("MQ_BACKEND", "none")),
		Channel: getEnv("MQ_CHANNEL", "works.events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	clientConfig := ClientConfig{
		AuthURL:  getEnv("ZIDESIGN_AUTH_URL", "http://localhost:8080/auth"),
		WorksURL: getEnv("ZIDESIGN_WORKS_URL", "http://localhost:8080/works"),
		StateDir: getEnv("ZIDESIGN_STATE_DIR", defaultStateDir()),
		SlotName: getEnv("ZIDESIGN_SLOT", "zi-design-storage"),
		RedisURL: getEnv("ZIDESIGN_REDIS_URL", ""),
		Timeout:  getEnvDuration("ZIDESIGN_TIMEOUT", 0),
	}

	return Config{
		Env:          getEnv("ENV", "production"),
		LogLevel:     getEnv("LOG_LEVEL", ""),
		ServerPort:   getEnvInt("SERVER_PORT", 8080),
		JWTSecret:    strings.TrimSpace(getEnv("JWT_SECRET", "")),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 32<<20)),
		AdminEmails:  getEnvList("ADMIN_EMAILS", []string{"admin@zidesign.com"}),
		Database:     dbConfig,
		Storage:      storageConfig,
		MQ:           mqConfig,
		Redis:        RedisConfig{URL: getEnv("REDIS_URL", "")},
		RateLimit: RateLimitConfig{
			Submissions: getEnvInt("RATE_LIMIT_SUBMISSIONS", 20),
			Window:      getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
		},
		Client: clientConfig,
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".zidesign"
	}
	return filepath.Join(dir, "zidesign")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(strings.TrimSpace(valueStr)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
