package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	Environment string        `mapstructure:"environment"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Engine      EngineConfig  `mapstructure:"engine"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Kafka       KafkaConfig   `mapstructure:"kafka"`
	Notify      NotifyConfig  `mapstructure:"notify"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Audit       AuditConfig   `mapstructure:"audit"`
}

type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type EngineConfig struct {
	Workers               int `mapstructure:"workers"`
	MaxRetries            int `mapstructure:"max_retries"`
	PollIntervalMS        int `mapstructure:"poll_interval_ms"`
	InterestIntervalHours int `mapstructure:"interest_interval_hours"`
}

func (c EngineConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// InterestInterval is how often the savings interest sweep runs. Zero
// disables the sweep.
func (c EngineConfig) InterestInterval() time.Duration {
	return time.Duration(c.InterestIntervalHours) * time.Hour
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
}

type NotifyConfig struct {
	Workers    int    `mapstructure:"workers"`
	AlertEmail string `mapstructure:"alert_email"`
	AlertPhone string `mapstructure:"alert_phone"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuditConfig struct {
	SigningKey string `mapstructure:"signing_key"`
}

// Load reads configuration from an optional TOML file with environment
// variable overrides under the BANKING prefix. An empty path loads
// defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BANKING")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine workers must be positive, got %d", c.Engine.Workers)
	}
	if c.Engine.MaxRetries <= 0 {
		return fmt.Errorf("engine max_retries must be positive, got %d", c.Engine.MaxRetries)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Audit.SigningKey == "" {
		return fmt.Errorf("audit signing_key is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "banking-engine")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.max_retries", 3)
	v.SetDefault("engine.poll_interval_ms", 50)
	v.SetDefault("engine.interest_interval_hours", 720)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.alert_email", "")
	v.SetDefault("notify.alert_phone", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("audit.signing_key", "dev-signing-key")
}
