package session

import "errors"

var (
	ErrSessionNotFound   = errors.New("session: not found")
	ErrUserNotFound      = errors.New("session: user not found")
	ErrUserInactive      = errors.New("session: user inactive")
	ErrDuplicateUsername = errors.New("session: username already exists")
	ErrDuplicateEmail    = errors.New("session: email already exists")

	ErrCacheMiss       = errors.New("session: cache miss")
	ErrInvalidTTL      = errors.New("session: cache ttl must be positive")
	ErrLockNotAcquired = errors.New("session: lock not acquired")
	ErrSessionBusy     = errors.New("session: concurrent session creation")
)
