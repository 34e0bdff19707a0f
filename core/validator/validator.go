package validator

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Validate 全局校验器实例
var Validate = New()

type validatorImpl struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	lang     string
}

// New 创建校验器，注册 username / password 规则以及中英文翻译
func New(opts ...Option) Validator {
	v := &validatorImpl{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		lang:     "en",
	}

	enLocale := en.New()
	v.uni = ut.New(enLocale, enLocale, zh.New())

	// 错误消息中使用 json 字段名
	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	for _, opt := range opts {
		opt(v)
	}

	v.registerRules()
	return v
}

func (v *validatorImpl) registerRules() {
	for _, r := range rules {
		_ = v.validate.RegisterValidation(r.tag, r.fn)
	}

	if trans, ok := v.uni.GetTranslator("en"); ok {
		_ = en_translations.RegisterDefaultTranslations(v.validate, trans)
		v.registerTranslations(trans, "en")
	}
	if trans, ok := v.uni.GetTranslator("zh"); ok {
		_ = zh_translations.RegisterDefaultTranslations(v.validate, trans)
		v.registerTranslations(trans, "zh")
	}
}

func (v *validatorImpl) registerTranslations(trans ut.Translator, lang string) {
	for _, r := range rules {
		message := r.messages[lang]
		_ = v.validate.RegisterTranslation(r.tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(r.tag, message, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, err := ut.T(r.tag, fe.Field())
				if err != nil {
					return fe.Error()
				}
				return t
			},
		)
	}
}

func (v *validatorImpl) Struct(s any) error {
	if s == nil {
		return errors.New("validation target cannot be nil")
	}
	return v.translate(v.validate.Struct(s))
}

func (v *validatorImpl) StructCtx(ctx context.Context, s any) error {
	if s == nil {
		return errors.New("validation target cannot be nil")
	}
	return v.translate(v.validate.StructCtx(ctx, s))
}

func (v *validatorImpl) Var(field any, tag string) error {
	return v.translate(v.validate.Var(field, tag))
}

func (v *validatorImpl) Engine() *validator.Validate {
	return v.validate
}

// translate 将 validator.ValidationErrors 转为带翻译消息的 *ValidationError
func (v *validatorImpl) translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	trans, _ := v.uni.GetTranslator(v.lang)
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fe.Translate(trans),
		})
	}
	return &ValidationError{Fields: fields}
}
