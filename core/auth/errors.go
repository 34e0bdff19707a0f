package auth

import (
	"context"
	stderrors "errors"

	"github.com/kochabx/passport/core/auth/password"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/auth/token"
	"github.com/kochabx/passport/core/validator"
	"github.com/kochabx/passport/errors"
)

// 对外的错误分类，消息不区分用户名错误与密码错误
var (
	ErrInvalidCredentials = errors.Unauthorized("incorrect username or password")
	ErrAccountInactive    = errors.Unauthorized("account is inactive")
	ErrDuplicateUsername  = errors.BadRequest("username already registered")
	ErrDuplicateEmail     = errors.BadRequest("email already registered")
	ErrInvalidToken       = errors.Unauthorized("invalid token")
	ErrSessionNotFound    = errors.Unauthorized("session not found")
	ErrUserInactive       = errors.Unauthorized("user not found or inactive")
	ErrSessionBusy        = errors.ServiceUnavailable("session creation in progress")
	ErrValidation         = errors.BadRequest("validation failed")
	ErrUnavailable        = errors.ServiceUnavailable("service unavailable")
)

// translate 将下层错误映射到对外错误，未知错误视为存储或缓存不可用
func translate(err error) error {
	if err == nil {
		return nil
	}

	var ge *errors.Error
	var ve *validator.ValidationError
	switch {
	case stderrors.As(err, &ve):
		return validationError(ve)
	case stderrors.As(err, &ge):
		return err
	case stderrors.Is(err, token.ErrInvalidToken):
		return ErrInvalidToken
	case stderrors.Is(err, session.ErrSessionNotFound):
		return ErrSessionNotFound
	case stderrors.Is(err, session.ErrUserInactive), stderrors.Is(err, session.ErrUserNotFound):
		return ErrUserInactive
	case stderrors.Is(err, session.ErrDuplicateUsername):
		return ErrDuplicateUsername
	case stderrors.Is(err, session.ErrDuplicateEmail):
		return ErrDuplicateEmail
	case stderrors.Is(err, password.ErrTooLong):
		return ErrValidation.WithMetadata(map[string]string{"password": "password must not exceed 72 bytes"}).WithCause(err)
	case stderrors.Is(err, session.ErrSessionBusy):
		return ErrSessionBusy
	case stderrors.Is(err, context.Canceled):
		return err
	default:
		return ErrUnavailable.WithCause(err)
	}
}

func validationError(ve *validator.ValidationError) *errors.Error {
	meta := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		meta[f.Field] = f.Message
	}
	return ErrValidation.WithMetadata(meta).WithCause(ve)
}
