package http

import (
	"time"

	"github.com/kochabx/passport/core/tag"
)

// Config HTTP 服务配置
type Config struct {
	Addr              string        `json:"addr" mapstructure:"addr" default:":8080"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" mapstructure:"read_header_timeout" default:"5s"`
	ReadTimeout       time.Duration `json:"read_timeout" mapstructure:"read_timeout" default:"15s"`
	WriteTimeout      time.Duration `json:"write_timeout" mapstructure:"write_timeout" default:"15s"`
	IdleTimeout       time.Duration `json:"idle_timeout" mapstructure:"idle_timeout" default:"60s"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout" default:"30s"`
	// CORSOrigins 为空时不启用 CORS
	CORSOrigins []string `json:"cors_origins" mapstructure:"cors_origins"`

	Metrics MetricsOption `json:"metrics" mapstructure:"metrics"`
	Health  HealthOption  `json:"health" mapstructure:"health"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

type MetricsOption struct {
	Enabled                   bool   `json:"enabled" mapstructure:"enabled" default:"true"`
	Path                      string `json:"path" mapstructure:"path" default:"/metrics"`
	EnabledGoCollector        bool   `json:"enabled_go_collector" mapstructure:"enabled_go_collector" default:"true"`
	EnabledBuildInfoCollector bool   `json:"enabled_build_info_collector" mapstructure:"enabled_build_info_collector" default:"true"`
}

type HealthOption struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" default:"true"`
	Path    string `json:"path" mapstructure:"path" default:"/health"`
}
