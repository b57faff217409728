package config

import (
	"fmt"
	"time"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the main application configuration
type Config struct {
	Database Database `json:"database" mapstructure:"database"`
	Server   Server   `json:"server" mapstructure:"server"`
	HTTP     HTTP     `json:"http" mapstructure:"http"`
	Admin    Admin    `json:"admin" mapstructure:"admin"`
	Legacy   Legacy   `json:"legacy" mapstructure:"legacy"`
}

// Database represents database configuration
type Database struct {
	Driver          string        `json:"driver" mapstructure:"driver"`
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	User            string        `json:"user" mapstructure:"user"`
	Password        string        `json:"password" mapstructure:"password"`
	DBName          string        `json:"dbname" mapstructure:"dbname"`
	SSLMode         string        `json:"sslmode" mapstructure:"sslmode"`
	TimeZone        string        `json:"timezone" mapstructure:"timezone"`
	Path            string        `json:"path" mapstructure:"path"`
	LogLevel        string        `json:"log_level" mapstructure:"log_level"`
	MaxConnections  int           `json:"max_connections" mapstructure:"max_connections"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// Server represents process-level settings
type Server struct {
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	LogFile  string `json:"log_file" mapstructure:"log_file"`
	Debug    bool   `json:"debug" mapstructure:"debug"`
}

// HTTP represents the admin HTTP server configuration
type HTTP struct {
	Port         int      `json:"port" mapstructure:"port"`
	AllowOrigins []string `json:"allow_origins" mapstructure:"allow_origins"`
}

// Admin guards the admin API. An empty secret leaves it open.
type Admin struct {
	JWTSecret string `json:"jwt_secret" mapstructure:"jwt_secret"`
}

// Legacy controls compatibility shims for retired features
type Legacy struct {
	// AIModels is "placeholders" or "removed"
	AIModels string `json:"ai_models" mapstructure:"ai_models"`
}

// NewDefault returns a Config instance with default values
func NewDefault() *Config {
	return &Config{
		Database: Database{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "kindergarten",
			SSLMode:         "disable",
			TimeZone:        "UTC",
			Path:            "schema-registry.db",
			LogLevel:        "error",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Server: Server{
			LogLevel: "info",
		},
		HTTP: HTTP{
			Port:         8090,
			AllowOrigins: []string{"http://localhost:5173"},
		},
		Legacy: Legacy{
			AIModels: "placeholders",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be greater than 0")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("max idle connections cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxConnections {
		return fmt.Errorf("max idle connections cannot exceed max connections")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	switch c.Legacy.AIModels {
	case "placeholders", "removed":
	default:
		return fmt.Errorf("legacy.ai_models must be placeholders or removed, got %q", c.Legacy.AIModels)
	}

	return nil
}
