package log

import (
	"github.com/kochabx/passport/log/writer"
)

// Config 日志配置
type Config struct {
	Level  string     `json:"level" mapstructure:"level" default:"info"`
	Caller bool       `json:"caller" mapstructure:"caller"`
	Redact bool       `json:"redact" mapstructure:"redact" default:"true"`
	File   FileConfig `json:"file" mapstructure:"file"`
}

// FileConfig 日志文件配置，Enabled 为 false 时只输出到控制台
type FileConfig struct {
	Enabled    bool              `json:"enabled" mapstructure:"enabled"`
	Filepath   string            `json:"filepath" mapstructure:"filepath" default:"log"`
	Filename   string            `json:"filename" mapstructure:"filename" default:"passport"`
	FileExt    string            `json:"file_ext" mapstructure:"file_ext" default:"log"`
	RotateMode writer.RotateMode `json:"rotate_mode" mapstructure:"rotate_mode"`
	// 按时间轮转，单位小时
	MaxAgeHours  int `json:"max_age_hours" mapstructure:"max_age_hours" default:"168"`
	RotationTime int `json:"rotation_time" mapstructure:"rotation_time" default:"24"`
	// 按大小轮转
	MaxSize    int  `json:"max_size" mapstructure:"max_size" default:"100"`
	MaxBackups int  `json:"max_backups" mapstructure:"max_backups" default:"5"`
	MaxAgeDays int  `json:"max_age_days" mapstructure:"max_age_days" default:"30"`
	Compress   bool `json:"compress" mapstructure:"compress"`
}

func (c *FileConfig) toWriterConfig() writer.RotateConfig {
	return writer.RotateConfig{
		Mode:     c.RotateMode,
		Filepath: c.Filepath,
		Filename: c.Filename,
		FileExt:  c.FileExt,
		TimeRotateConfig: writer.TimeRotateConfig{
			MaxAge:       c.MaxAgeHours,
			RotationTime: c.RotationTime,
		},
		SizeRotateConfig: writer.SizeRotateConfig{
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   c.Compress,
		},
	}
}

// FromConfig 按配置构建 Logger。级别设置在 zerolog 全局，
// 配置热更新时调用 SetLevel 即可生效
func FromConfig(c Config) (*Logger, error) {
	SetLevel(c.Level)

	var opts []Option
	if c.Caller {
		opts = append(opts, WithCaller())
	}
	if c.Redact {
		opts = append(opts, WithRedact())
	}

	if c.File.Enabled {
		return NewMulti(c.File, opts...)
	}
	return New(opts...), nil
}
