package db

import (
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// Driver 数据库驱动类型
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string {
	return string(d)
}

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

func (l LogLevel) gorm() logger.LogLevel {
	switch l {
	case LogLevelError:
		return logger.Error
	case LogLevelWarn:
		return logger.Warn
	case LogLevelInfo:
		return logger.Info
	default:
		return logger.Silent
	}
}

// ParseLogLevel 解析日志级别字符串
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return LogLevelError
	case "warn":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	default:
		return LogLevelSilent
	}
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `json:"max_open_conns" mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime" default:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" mapstructure:"conn_max_idle_time" default:"10m"`
}

// DriverConfig 驱动配置
type DriverConfig interface {
	Driver() Driver
	DSN() string
	Pool() *PoolConfig
	// Init 应用默认值
	Init() error
	LogLevel() LogLevel
}

// Config 按 Driver 选择 Postgres 或 SQLite
type Config struct {
	Driver   Driver         `json:"driver" mapstructure:"driver" default:"postgres" validate:"oneof=postgres sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
}

// DriverConfig 返回当前选中的驱动配置
func (c *Config) DriverConfig() (DriverConfig, error) {
	switch c.Driver {
	case DriverPostgres:
		return &c.Postgres, nil
	case DriverSQLite:
		return &c.SQLite, nil
	default:
		return nil, ErrUnsupportedDriver
	}
}
