package db

import (
	"strconv"
	"strings"

	"github.com/kochabx/passport/core/tag"
)

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host           string `json:"host" mapstructure:"host" default:"localhost"`
	Port           int    `json:"port" mapstructure:"port" default:"5432"`
	User           string `json:"user" mapstructure:"user" default:"postgres"`
	Password       string `json:"password" mapstructure:"password"`
	Database       string `json:"database" mapstructure:"database" default:"passport"`
	SSLMode        string `json:"sslmode" mapstructure:"sslmode" default:"disable"`
	TimeZone       string `json:"timezone" mapstructure:"timezone" default:"UTC"`
	ConnectTimeout int    `json:"connect_timeout" mapstructure:"connect_timeout" default:"10"`
	Level          string `json:"level" mapstructure:"level" default:"warn"`

	PoolConfig `json:"pool" mapstructure:"pool"`
}

func (c *PostgresConfig) Driver() Driver {
	return DriverPostgres
}

func (c *PostgresConfig) Init() error {
	return tag.ApplyDefaults(c)
}

func (c *PostgresConfig) DSN() string {
	var b strings.Builder
	b.Grow(128)

	kv := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	kv("host", c.Host)
	kv("port", strconv.Itoa(c.Port))
	kv("user", c.User)
	if c.Password != "" {
		kv("password", c.Password)
	}
	kv("dbname", c.Database)
	kv("sslmode", c.SSLMode)
	kv("TimeZone", c.TimeZone)
	kv("connect_timeout", strconv.Itoa(c.ConnectTimeout))
	return b.String()
}

func (c *PostgresConfig) Pool() *PoolConfig {
	pool := &c.PoolConfig
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = 10
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = 100
	}
	return pool
}

func (c *PostgresConfig) LogLevel() LogLevel {
	return ParseLogLevel(c.Level)
}
