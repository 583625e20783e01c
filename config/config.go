package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"

	"govbook/models"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage. STORE selects "mongo" or "memory".
	Store        string `mapstructure:"STORE"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Scheduling engine.
	Timezone                     string `mapstructure:"TIMEZONE"`
	AppointmentNumberPrefix      string `mapstructure:"APPOINTMENT_NUMBER_PREFIX"`
	AppointmentNumberMaxAttempts int    `mapstructure:"APPOINTMENT_NUMBER_MAX_ATTEMPTS"`
	DefaultSlotCapacity          int    `mapstructure:"DEFAULT_SLOT_CAPACITY"`
	FeedbackCommentMaxLength     int    `mapstructure:"FEEDBACK_COMMENT_MAX_LENGTH"`
	AllowDuplicateActiveBookings bool   `mapstructure:"ALLOW_DUPLICATE_ACTIVE_BOOKINGS"`

	// Collaborators.
	CatalogCacheTTLSeconds        int                  `mapstructure:"CATALOG_CACHE_TTL_SECONDS"`
	Catalog                       []models.ServiceInfo `mapstructure:"CATALOG"`
	NotificationWorkerConcurrency int                  `mapstructure:"NOTIFICATION_WORKER_CONCURRENCY"`
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

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig.Store = strings.ToLower(AppConfig.Store)
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("STORE", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "govbook")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("APPOINTMENT_NUMBER_PREFIX", "APT")
	v.SetDefault("APPOINTMENT_NUMBER_MAX_ATTEMPTS", 5)
	v.SetDefault("DEFAULT_SLOT_CAPACITY", 1)
	v.SetDefault("FEEDBACK_COMMENT_MAX_LENGTH", 1000)
	v.SetDefault("ALLOW_DUPLICATE_ACTIVE_BOOKINGS", false)
	v.SetDefault("CATALOG_CACHE_TTL_SECONDS", 300)
	v.SetDefault("NOTIFICATION_WORKER_CONCURRENCY", 10)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// UseMemoryStore reports whether the in-memory repositories are selected.
func UseMemoryStore() bool {
	return AppConfig.Store == "memory"
}
