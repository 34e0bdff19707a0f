package db

import (
	"strconv"
	"strings"

	"github.com/kochabx/passport/core/tag"
)

// SQLiteConfig SQLite 配置。FilePath 为 ":memory:" 时使用共享内存库，
// 仅用于测试和单机部署。
type SQLiteConfig struct {
	FilePath    string `json:"file_path" mapstructure:"file_path" default:"./passport.db"`
	JournalMode string `json:"journal_mode" mapstructure:"journal_mode" default:"WAL"`
	BusyTimeout int    `json:"busy_timeout" mapstructure:"busy_timeout" default:"5000"`
	ForeignKeys bool   `json:"foreign_keys" mapstructure:"foreign_keys" default:"true"`
	Level       string `json:"level" mapstructure:"level" default:"silent"`

	PoolConfig `json:"pool" mapstructure:"pool"`
}

func (c *SQLiteConfig) Driver() Driver {
	return DriverSQLite
}

func (c *SQLiteConfig) Init() error {
	return tag.ApplyDefaults(c)
}

func (c *SQLiteConfig) DSN() string {
	var b strings.Builder
	b.Grow(96)

	if c.FilePath == ":memory:" {
		b.WriteString("file::memory:?cache=shared")
	} else {
		b.WriteString("file:")
		b.WriteString(c.FilePath)
		b.WriteString("?_journal_mode=")
		b.WriteString(c.JournalMode)
	}
	b.WriteString("&_busy_timeout=")
	b.WriteString(strconv.Itoa(c.BusyTimeout))
	b.WriteString("&_foreign_keys=")
	b.WriteString(strconv.FormatBool(c.ForeignKeys))
	return b.String()
}

// Pool SQLite 单文件写锁，默认单连接
func (c *SQLiteConfig) Pool() *PoolConfig {
	pool := &c.PoolConfig
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = 1
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = 1
	}
	return pool
}

func (c *SQLiteConfig) LogLevel() LogLevel {
	return ParseLogLevel(c.Level)
}
