package config

import (
	"github.com/kochabx/passport/core/auth/event"
	"github.com/kochabx/passport/core/auth/password"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/auth/token"
	"github.com/kochabx/passport/core/janitor"
	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/store/db"
	"github.com/kochabx/passport/store/redis"
	"github.com/kochabx/passport/transport/http"
)

// EnvPrefix 环境变量前缀，token.secret 对应 PASSPORT_TOKEN_SECRET
const EnvPrefix = "PASSPORT"

// Settings passport 服务的全部配置
type Settings struct {
	Server   http.Config     `json:"server" mapstructure:"server"`
	Log      log.Config      `json:"log" mapstructure:"log"`
	Database db.Config       `json:"database" mapstructure:"database"`
	Redis    redis.Config    `json:"redis" mapstructure:"redis"`
	Token    token.Config    `json:"token" mapstructure:"token"`
	Session  session.Config  `json:"session" mapstructure:"session"`
	Password password.Config `json:"password" mapstructure:"password"`
	Janitor  janitor.Config  `json:"janitor" mapstructure:"janitor"`
	// RateLimit 登录、注册、刷新接口按客户端 IP 限流
	RateLimit rate.Config  `json:"rate_limit" mapstructure:"rate_limit"`
	Events    event.Config `json:"events" mapstructure:"events"`
}

// secretKeys 文件中通常不出现、只通过环境变量注入的键。
// viper 的 AutomaticEnv 只覆盖已知键，这里显式绑定
var secretKeys = []string{
	"token.secret",
	"database.postgres.password",
	"redis.password",
	"events.kafka.password",
}

// Load 读取 settings 文件并应用环境变量覆盖，返回的 Config 可用于 Watch
func Load(name string, paths []string, opts ...Option) (*Settings, *Config, error) {
	var s Settings
	opts = append([]Option{WithFile(name, paths...), WithEnvPrefix(EnvPrefix)}, opts...)
	c := New(&s, opts...)
	for _, key := range secretKeys {
		if err := c.Viper().BindEnv(key); err != nil {
			return nil, nil, err
		}
	}
	if err := c.Load(); err != nil {
		return nil, nil, err
	}
	return &s, c, nil
}
