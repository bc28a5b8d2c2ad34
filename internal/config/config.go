package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Env             string `yaml:"env"`
		ShutdownTimeout int    `yaml:"shutdown_timeout_sec"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"` // postgres, memory
		DSN    string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Realtime struct {
		SendBuffer     int   `yaml:"send_buffer"`
		PingPeriodSec  int   `yaml:"ping_period_sec"`
		PongWaitSec    int   `yaml:"pong_wait_sec"`
		WriteWaitSec   int   `yaml:"write_wait_sec"`
		MaxMessageSize int64 `yaml:"max_message_size"`
	} `yaml:"realtime"`

	Redis struct {
		Addr     string `yaml:"addr"` // пусто - без брокера, доставка только локально
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`

	RabbitMQ struct {
		URL   string `yaml:"url"` // пусто - письма отправляются синхронно
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`

	Email struct {
		Enabled      bool   `yaml:"enabled"`
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		UseTLS       bool   `yaml:"use_tls"`
		PortalURL    string `yaml:"portal_url"`
	} `yaml:"email"`

	Storage struct {
		Type      string `yaml:"type"`      // local, s3
		BasePath  string `yaml:"base_path"` // For local storage
		BaseURL   string `yaml:"base_url"`  // Public URL base
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Endpoint  string `yaml:"endpoint"` // For R2 or custom S3
	} `yaml:"storage"`

	Upload struct {
		MaxSize      int64    `yaml:"max_size"`
		AllowedTypes []string `yaml:"allowed_types"`
	} `yaml:"upload"`

	Logging struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`

	Notifications struct {
		CleanupIntervalMin int `yaml:"cleanup_interval_min"`
		RetentionDays      int `yaml:"retention_days"`
	} `yaml:"notifications"`
}

var AppConfig *Config

// LoadConfig загружает конфиг в AppConfig. Ошибка чтения файла фатальна.
func LoadConfig() {
	// .env опционален
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", path, err)
	}
	AppConfig = cfg
}

// Load читает YAML по пути (отсутствующий файл не ошибка), применяет env и значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			log.Printf("config file %s not found, using env and defaults", path)
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SERVER_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.RabbitMQ.URL = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.Database.Driver == "" {
		if c.Database.DSN == "" {
			c.Database.Driver = "memory"
		} else {
			c.Database.Driver = "postgres"
		}
	}
	if c.JWT.Secret == "" && c.Server.Env != "production" {
		c.JWT.Secret = "dev-secret-change-me"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 60
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = 256
	}
	if c.Realtime.PongWaitSec == 0 {
		c.Realtime.PongWaitSec = 60
	}
	if c.Realtime.PingPeriodSec == 0 {
		c.Realtime.PingPeriodSec = c.Realtime.PongWaitSec * 9 / 10
	}
	if c.Realtime.WriteWaitSec == 0 {
		c.Realtime.WriteWaitSec = 10
	}
	if c.Realtime.MaxMessageSize == 0 {
		c.Realtime.MaxMessageSize = 64 * 1024
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "hrportal:realtime"
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "hrportal.emails"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "HR Portal"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.BasePath == "" {
		c.Storage.BasePath = "./uploads"
	}
	if c.Storage.BaseURL == "" {
		c.Storage.BaseURL = "/uploads"
	}
	if c.Upload.MaxSize == 0 {
		c.Upload.MaxSize = 10 * 1024 * 1024 // 10MB
	}
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"application/pdf", "text/plain",
		}
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Notifications.CleanupIntervalMin == 0 {
		c.Notifications.CleanupIntervalMin = 60
	}
	if c.Notifications.RetentionDays == 0 {
		c.Notifications.RetentionDays = 90
	}
}

// Validate проверяет сочетания, которые нельзя исправить значениями по умолчанию
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" && c.Server.Env == "production" {
		return errors.New("jwt.secret is required in production")
	}
	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Realtime.PingPeriodSec >= c.Realtime.PongWaitSec {
		return errors.New("realtime.ping_period_sec must be less than pong_wait_sec")
	}
	return nil
}

func (c *Config) PingPeriod() time.Duration {
	return time.Duration(c.Realtime.PingPeriodSec) * time.Second
}

func (c *Config) PongWait() time.Duration {
	return time.Duration(c.Realtime.PongWaitSec) * time.Second
}

func (c *Config) WriteWait() time.Duration {
	return time.Duration(c.Realtime.WriteWaitSec) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
