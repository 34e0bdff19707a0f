package token

import "errors"

var (
	ErrInvalidToken      = errors.New("token: invalid token")
	ErrInvalidTTL        = errors.New("token: ttl must be positive")
	ErrEmptySecret       = errors.New("token: secret cannot be empty")
	ErrUnsupportedMethod = errors.New("token: unsupported signing method")
)
