package validator

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// Validator 结构体校验器
type Validator interface {
	// Struct 校验结构体
	Struct(s any) error

	// StructCtx 带上下文校验结构体
	StructCtx(ctx context.Context, s any) error

	// Var 校验单个变量
	Var(field any, tag string) error

	// Engine 返回底层 validator 实例，供 gin binding 复用
	Engine() *validator.Validate
}

// Option 校验器选项
type Option func(*validatorImpl)

// WithTagName 设置校验标签名
func WithTagName(tagName string) Option {
	return func(v *validatorImpl) {
		v.validate.SetTagName(tagName)
	}
}

// WithLanguage 设置错误消息语言（en / zh）
func WithLanguage(lang string) Option {
	return func(v *validatorImpl) {
		v.lang = lang
	}
}
