package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config: полная конфигурация сервиса.
// Порядок: значения по умолчанию, затем YAML-файл (если задан), затем env.
type Config struct {
	DB DBConfig `yaml:"db"`

	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Дедлайн на каждый запрос к хранилищу.
	QueryTimeout time.Duration `yaml:"query_timeout"`
	// Насколько далеко в прошлое смотрит список прошедших консультаций.
	PastConsultationWindow time.Duration `yaml:"past_consultation_window"`

	// Cron-расписание рассылки напоминаний и горизонт, за который напоминаем.
	ReminderSchedule string        `yaml:"reminder_schedule"`
	ReminderWindow   time.Duration `yaml:"reminder_window"`

	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`
}

func Default() *Config {
	return &Config{
		DB:                     defaultDBConfig(),
		HTTPAddr:               ":8080",
		GRPCAddr:               ":50051",
		JWTSecret:              "dev-secret-change-me",
		JWTIssuer:              "legal-marketplace",
		QueryTimeout:           5 * time.Second,
		PastConsultationWindow: 90 * 24 * time.Hour,
		ReminderSchedule:       "0 * * * *",
		ReminderWindow:         24 * time.Hour,
		LogLevel:               "info",
	}
}

// Load собирает конфигурацию. path может быть пустым.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.DB.applyEnv()
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getEnv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.QueryTimeout = getEnvDuration("QUERY_TIMEOUT", cfg.QueryTimeout)
	cfg.PastConsultationWindow = getEnvDuration("PAST_CONSULTATION_WINDOW", cfg.PastConsultationWindow)
	cfg.ReminderSchedule = getEnv("REMINDER_SCHEDULE", cfg.ReminderSchedule)
	cfg.ReminderWindow = getEnvDuration("REMINDER_WINDOW", cfg.ReminderWindow)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogDevelopment = getEnvBool("LOG_DEVELOPMENT", cfg.LogDevelopment)

	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("invalid config: jwt secret must not be empty")
	}
	if cfg.QueryTimeout <= 0 {
		return nil, fmt.Errorf("invalid config: query timeout must be positive")
	}
	return cfg, nil
}
