// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"-"` // Loaded from environment
	DB              int    `yaml:"db"`
	HoursTTLSeconds int    `yaml:"hours_ttl_seconds"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

func (r RedisConfig) HoursTTL() time.Duration {
	if r.HoursTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(r.HoursTTLSeconds) * time.Second
}

type BookingConfig struct {
	SlotStepMinutes     int `yaml:"slot_step_minutes"`
	SearchDays          int `yaml:"search_days"`
	ReminderHoursBefore int `yaml:"reminder_hours_before"`
}

type SchedulerConfig struct {
	ReminderCron string `yaml:"reminder_cron"`
	ExpiryCron   string `yaml:"expiry_cron"`
}

type EmailConfig struct {
	Region          string `yaml:"region"`
	Sender          string `yaml:"sender"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		TrustProxy  bool   `yaml:"trust_proxy"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Booking   BookingConfig   `yaml:"booking"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Email     EmailConfig     `yaml:"email"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableEmail   bool `yaml:"enable_email"`
		EnableEvents  bool `yaml:"enable_events"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Email.AccessKeyID = os.Getenv("SES_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("SES_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML with ${VAR} placeholders expanded and defaults applied.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Booking.SlotStepMinutes == 0 {
		c.Booking.SlotStepMinutes = 15
	}
	if c.Booking.SearchDays == 0 {
		c.Booking.SearchDays = 7
	}
	if c.Booking.ReminderHoursBefore == 0 {
		c.Booking.ReminderHoursBefore = 24
	}
	if c.Scheduler.ReminderCron == "" {
		c.Scheduler.ReminderCron = "*/15 * * * *"
	}
	if c.Scheduler.ExpiryCron == "" {
		c.Scheduler.ExpiryCron = "*/5 * * * *"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "marketplace.orders"
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "" || c.App.Environment == "development"
}

func (c *Config) SlotStep() time.Duration {
	return time.Duration(c.Booking.SlotStepMinutes) * time.Minute
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	step := c.Booking.SlotStepMinutes
	if step <= 0 || step > 60 || 60%step != 0 {
		return fmt.Errorf("booking slot_step_minutes must divide 60, got %d", step)
	}
	if c.Booking.SearchDays < 1 {
		return fmt.Errorf("booking search_days must be at least 1")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Scheduler.ReminderCron); err != nil {
		return fmt.Errorf("invalid scheduler reminder_cron %q: %w", c.Scheduler.ReminderCron, err)
	}
	if _, err := parser.Parse(c.Scheduler.ExpiryCron); err != nil {
		return fmt.Errorf("invalid scheduler expiry_cron %q: %w", c.Scheduler.ExpiryCron, err)
	}

	if c.Features.EnableEmail {
		if c.Email.Sender == "" {
			return fmt.Errorf("email sender is required when email is enabled")
		}
		if c.Email.Region == "" {
			return fmt.Errorf("email region is required when email is enabled")
		}
	}
	if c.Features.EnableEvents && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when events are enabled")
	}

	return nil
}
