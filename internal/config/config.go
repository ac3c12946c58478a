package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store driver constants
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Job driver constants
const (
	JobDriverRedis = "redis"
	JobDriverLog   = "log"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Port    int    `mapstructure:"port"`
	Env     string `mapstructure:"env"`
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // "postgres" or "memory"
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// IsMemory returns true if the in-process store is selected
func (d *DatabaseConfig) IsMemory() bool {
	return d.Driver == DriverMemory
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JobsConfig struct {
	Driver    string        `mapstructure:"driver"`     // "redis" or "log"
	QueueKey  string        `mapstructure:"queue_key"`  // Redis list jobs are pushed onto
	SealGuard time.Duration `mapstructure:"seal_guard"` // How long a seal request blocks duplicates
}

// WebhookSubscriber is one endpoint receiving outbound events
type WebhookSubscriber struct {
	URL    string   `mapstructure:"url"`
	Secret string   `mapstructure:"secret"`
	Events []string `mapstructure:"events"` // Empty means all events
	UserID int64    `mapstructure:"user_id"`
	TeamID int64    `mapstructure:"team_id"` // 0 means personal scope
}

type WebhookConfig struct {
	Timeout     time.Duration       `mapstructure:"timeout"`
	Subscribers []WebhookSubscriber `mapstructure:"subscribers"`
}

type AuthConfig struct {
	CodeTTL    time.Duration `mapstructure:"code_ttl"`
	CodeLength int           `mapstructure:"code_length"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func NewConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Enable environment variable override
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Convert timeouts to durations
	cfg.Webhook.Timeout = cfg.Webhook.Timeout * time.Second
	cfg.Jobs.SealGuard = cfg.Jobs.SealGuard * time.Second
	cfg.Auth.CodeTTL = cfg.Auth.CodeTTL * time.Second

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "signflow")
	viper.SetDefault("app.port", 8080)
	viper.SetDefault("app.env", "development")
	viper.SetDefault("database.driver", DriverPostgres)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("jobs.driver", JobDriverRedis)
	viper.SetDefault("jobs.queue_key", "signflow:jobs")
	viper.SetDefault("jobs.seal_guard", 86400)
	viper.SetDefault("webhook.timeout", 10)
	viper.SetDefault("auth.code_ttl", 600)
	viper.SetDefault("auth.code_length", 6)
	viper.SetDefault("logging.level", "info")
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
