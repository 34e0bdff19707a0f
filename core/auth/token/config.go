package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kochabx/passport/core/tag"
)

// Config 令牌配置
type Config struct {
	Secret        string        `json:"secret" mapstructure:"secret" validate:"required,min=32"`
	SigningMethod string        `json:"signing_method" mapstructure:"signing_method" default:"HS256" validate:"oneof=HS256 HS384 HS512"`
	Issuer        string        `json:"issuer" mapstructure:"issuer" default:"passport"`
	AccessTTL     time.Duration `json:"access_ttl" mapstructure:"access_ttl" default:"30m" validate:"gt=0"`
	RefreshTTL    time.Duration `json:"refresh_ttl" mapstructure:"refresh_ttl" default:"168h" validate:"gt=0"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

func (c *Config) method() (jwt.SigningMethod, error) {
	switch c.SigningMethod {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, ErrUnsupportedMethod
	}
}
