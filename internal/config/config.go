package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Costs    CostsConfig
	Alert    AlertConfig
	API      APIConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// QueueConfig tunes the claim/reschedule machinery.
type QueueConfig struct {
	MaxBatchSize    int
	LeaseTimeout    time.Duration
	DedupTTL        time.Duration
	QuarantineAfter int
}

type CostsConfig struct {
	ProjectionDays int
}

type AlertConfig struct {
	TelegramToken  string
	TelegramChatID int64
}

type APIConfig struct {
	Key string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("QUEUE_MAX_BATCH_SIZE", 50)
	viper.SetDefault("QUEUE_LEASE_TIMEOUT", "15m")
	viper.SetDefault("OUTCOME_DEDUP_TTL", "1h")
	viper.SetDefault("QUARANTINE_AFTER", 5)
	viper.SetDefault("COST_PROJECTION_DAYS", 30)

	leaseTimeout, err := time.ParseDuration(viper.GetString("QUEUE_LEASE_TIMEOUT"))
	if err != nil {
		leaseTimeout = 15 * time.Minute
	}
	dedupTTL, err := time.ParseDuration(viper.GetString("OUTCOME_DEDUP_TTL"))
	if err != nil {
		dedupTTL = time.Hour
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Queue: QueueConfig{
			MaxBatchSize:    viper.GetInt("QUEUE_MAX_BATCH_SIZE"),
			LeaseTimeout:    leaseTimeout,
			DedupTTL:        dedupTTL,
			QuarantineAfter: viper.GetInt("QUARANTINE_AFTER"),
		},
		Costs: CostsConfig{
			ProjectionDays: viper.GetInt("COST_PROJECTION_DAYS"),
		},
		Alert: AlertConfig{
			TelegramToken:  viper.GetString("ALERT_TELEGRAM_TOKEN"),
			TelegramChatID: viper.GetInt64("ALERT_TELEGRAM_CHAT_ID"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.API.Key == "" {
		log.Println("WARNING: API_KEY is not set, worker API is unauthenticated")
	}

	return cfg, nil
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
