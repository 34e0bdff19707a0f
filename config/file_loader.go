package config

import (
	"path"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/core/validator"
	"github.com/kochabx/passport/errors"
)

// FileLoader loads configuration from a file, with environment overrides.
type FileLoader struct {
	viper    *viper.Viper
	validate validator.Validator
}

// NewFileLoader configures v to read name from paths. The config type is
// taken from the file extension. Environment variables override file keys,
// with "." replaced by "_" and prefix prepended when it is not empty
// (token.secret -> PASSPORT_TOKEN_SECRET).
func NewFileLoader(name string, paths []string, prefix string, v *viper.Viper, validate validator.Validator) *FileLoader {
	ext := path.Ext(name)

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName(strings.TrimSuffix(name, ext))
	v.SetConfigType(strings.TrimPrefix(ext, "."))

	if prefix != "" {
		v.SetEnvPrefix(prefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &FileLoader{
		viper:    v,
		validate: validate,
	}
}

func (l *FileLoader) Load(target any) error {
	// defaults first so keys missing from the file keep their tag value
	if err := tag.ApplyDefaults(target); err != nil {
		return errors.Internal("failed to apply defaults: %v", err)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		return errors.NotFound("config file not found: %v", err)
	}

	if err := l.viper.Unmarshal(target); err != nil {
		return errors.Internal("config parse error: %v", err)
	}

	if l.validate != nil {
		if err := l.validate.Struct(target); err != nil {
			return errors.BadRequest("config validation failed: %v", err)
		}
	}
	return nil
}

func (l *FileLoader) Watch(callback func()) error {
	l.viper.OnConfigChange(func(fsnotify.Event) {
		if callback != nil {
			callback()
		}
	})
	l.viper.WatchConfig()
	return nil
}
