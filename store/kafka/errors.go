package kafka

import "errors"

var (
	ErrClientClosed    = errors.New("kafka: client is closed")
	ErrInvalidConfig   = errors.New("kafka: invalid config")
	ErrEmptyBrokers    = errors.New("kafka: empty brokers")
	ErrInvalidBalancer = errors.New("kafka: invalid balancer")
)
