package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver          string `yaml:"driver"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	SSLMode         string `yaml:"sslmode"`
	TimeZone        string `yaml:"timezone"`
	SQLitePath      string `yaml:"sqlite_path"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeTime int    `yaml:"conn_max_lifetime_min"` // минут
}

func defaultDBConfig() DBConfig {
	return DBConfig{
		Driver:          DriverPostgres,
		Host:            "postgres",
		Port:            5432,
		User:            "legalaid",
		Password:        "legalaid",
		Name:            "legalaid_db",
		SSLMode:         "disable",
		TimeZone:        "UTC",
		SQLitePath:      "legalaid.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifeTime: 30,
	}
}

// applyEnv переопределяет значения из переменных окружения.
func (c *DBConfig) applyEnv() {
	c.Driver = getEnv("DB_DRIVER", c.Driver)
	c.Host = getEnv("DB_HOST", c.Host)
	c.User = getEnv("DB_USER", c.User)
	c.Password = getEnv("DB_PASSWORD", c.Password)
	c.Name = getEnv("DB_NAME", c.Name)
	c.SSLMode = getEnv("DB_SSLMODE", c.SSLMode)
	c.TimeZone = getEnv("DB_TIMEZONE", c.TimeZone)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.Port = getEnvInt("DB_PORT", c.Port)
	c.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.MaxOpenConns)
	c.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.MaxIdleConns)
	c.ConnMaxLifeTime = getEnvInt("DB_CONN_MAX_LIFETIME_MIN", c.ConnMaxLifeTime)
}

func (c *DBConfig) validate() error {
	switch c.Driver {
	case DriverPostgres:
		// минимальная валидация
		if c.Host == "" || c.User == "" || c.Name == "" {
			return fmt.Errorf("invalid DB config: host/user/name must not be empty")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("invalid DB config: sqlite path must not be empty")
		}
	default:
		return fmt.Errorf("invalid DB config: unknown driver %q", c.Driver)
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
