package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogFile           string `mapstructure:"LOG_FILE"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Peers whose X-Forwarded-For is believed. Comma separated IPs or CIDRs.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	// Live store.
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int           `mapstructure:"REDIS_CACHE_DB"`
	RedisSessionDB int           `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int           `mapstructure:"REDIS_QUEUE_DB"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`

	// Identity.
	AuthProvider  string `mapstructure:"AUTH_PROVIDER"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	DefaultUserID string `mapstructure:"DEFAULT_USER_ID"`

	// Snapshot.
	SnapshotSource string `mapstructure:"SNAPSHOT_SOURCE"`
	SnapshotPath   string `mapstructure:"SNAPSHOT_PATH"`
	SnapshotBucket string `mapstructure:"SNAPSHOT_BUCKET"`
	SnapshotObject string `mapstructure:"SNAPSHOT_OBJECT"`

	// Object storage.
	StorageBackend       string `mapstructure:"STORAGE_BACKEND"`
	CloudinaryCloudName  string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey     string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret  string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder     string `mapstructure:"CLOUDINARY_FOLDER"`
	FirebaseCredentials  string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseBucket       string `mapstructure:"FIREBASE_BUCKET"`
	MaxUploadConcurrency int    `mapstructure:"MAX_UPLOAD_CONCURRENCY"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("TRUSTED_PROXIES", "")
	viper.SetDefault("STORE_BACKEND", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "folio")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_SESSION_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("SESSION_TTL", "12h")
	viper.SetDefault("AUTH_PROVIDER", "jwt")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("DEFAULT_USER_ID", "portfolio-owner")
	viper.SetDefault("SNAPSHOT_SOURCE", "embedded")
	viper.SetDefault("SNAPSHOT_PATH", "")
	viper.SetDefault("SNAPSHOT_BUCKET", "")
	viper.SetDefault("SNAPSHOT_OBJECT", "snapshot/portfolio.json")
	viper.SetDefault("STORAGE_BACKEND", "cloudinary")
	viper.SetDefault("CLOUDINARY_FOLDER", "portfolio")
	viper.SetDefault("FIREBASE_CREDENTIALS_PATH", "")
	viper.SetDefault("FIREBASE_BUCKET", "")
	viper.SetDefault("MAX_UPLOAD_CONCURRENCY", 4)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// UsesRedis reports whether any configured component needs a Redis server.
// The in-memory store backend runs without one.
func UsesRedis() bool {
	return AppConfig.StoreBackend != "memory"
}
