package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"golang.org/x/sync/errgroup"

	"github.com/kochabx/passport/log"
)

// Client 按 topic 缓存生产者
type Client struct {
	config    *Config
	transport *kafka.Transport
	logger    *log.Logger

	mu        sync.RWMutex
	producers map[string]*kafka.Writer
	closed    bool
}

// New 创建客户端。kafka-go 的 Writer 惰性建连，这里不会访问 broker
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	c := &Client{
		config:    cfg,
		logger:    o.logger,
		transport: o.transport,
		producers: make(map[string]*kafka.Writer),
	}
	if c.logger == nil {
		c.logger = log.G
	}
	if c.transport == nil {
		c.transport = c.newTransport()
	}
	return c, nil
}

func (c *Client) newTransport() *kafka.Transport {
	t := &kafka.Transport{DialTimeout: c.config.Timeout}
	if c.config.Username != "" {
		t.SASL = plain.Mechanism{
			Username: c.config.Username,
			Password: c.config.Password,
		}
	}
	return t
}

func (c *Client) newWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               c.config.balancer(),
		Transport:              c.transport,
		RequiredAcks:           c.config.requiredAcks(),
		BatchTimeout:           c.config.BatchTimeout,
		WriteTimeout:           c.config.Timeout,
		AllowAutoTopicCreation: c.config.AllowAutoTopicCreation,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			c.logger.Error().Str("component", "kafka").Msgf(msg, args...)
		}),
	}
}

// Producer 获取 topic 的同步生产者，不存在则创建
func (c *Client) Producer(topic string) (*kafka.Writer, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	if w, ok := c.producers[topic]; ok {
		c.mu.RUnlock()
		return w, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}
	if w, ok := c.producers[topic]; ok {
		return w, nil
	}
	w := c.newWriter(topic)
	c.producers[topic] = w
	return w, nil
}

// Close 关闭全部生产者，未发送的消息会在 CloseTimeout 内尽量刷出
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), c.config.CloseTimeout)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	for topic, w := range c.producers {
		eg.Go(func() error {
			done := make(chan error, 1)
			go func() { done <- w.Close() }()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				c.logger.Warn().Str("topic", topic).Msg("kafka producer close timed out")
				return ctx.Err()
			}
		})
	}
	return eg.Wait()
}
