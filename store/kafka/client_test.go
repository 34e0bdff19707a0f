package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.ApplyDefaults())

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, BalancerHash, cfg.Balancer)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, kafka.RequireOne, cfg.requiredAcks())
	assert.IsType(t, &kafka.Hash{}, cfg.balancer())
}

func TestBalancerUnmarshal(t *testing.T) {
	var b Balancer
	require.NoError(t, b.UnmarshalText([]byte("Least_Bytes")))
	assert.Equal(t, BalancerLeastBytes, b)
	assert.ErrorIs(t, b.UnmarshalText([]byte("random")), ErrInvalidBalancer)
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{Brokers: []string{" "}})
	assert.ErrorIs(t, err, ErrEmptyBrokers)
}

func TestProducer(t *testing.T) {
	c, err := New(&Config{Brokers: []string{"127.0.0.1:9092"}, Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.NotNil(t, c.transport.SASL)

	w1, err := c.Producer("passport.sessions")
	require.NoError(t, err)
	w2, err := c.Producer("passport.sessions")
	require.NoError(t, err)
	assert.Same(t, w1, w2)
	assert.Equal(t, "passport.sessions", w1.Topic)

	// 未发送过消息的 Writer 关闭时不访问 broker
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Producer("other")
	assert.ErrorIs(t, err, ErrClientClosed)
}
