// Package broker 将领域事件投递到 Kafka
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/d60-Lab/relation-feed/config"
	"github.com/d60-Lab/relation-feed/pkg/logger"
)

// ErrBreakerOpen 熔断期间直接拒绝写入
var ErrBreakerOpen = errors.New("broker: circuit open")

// MessageWriter kafka.Writer 的可替换子集
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 按聚合 ID 作为 key 写入同一分区，保证单个帖子的事件有序
type KafkaPublisher struct {
	w  MessageWriter
	cb *gobreaker.CircuitBreaker[struct{}]
}

func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func NewKafkaPublisher(w MessageWriter, cfg config.KafkaConfig) *KafkaPublisher {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka:" + cfg.Topic,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &KafkaPublisher{w: w, cb: cb}
}

// Publish 写入一条事件，事件类型放在 event_type header
func (p *KafkaPublisher) Publish(ctx context.Context, key, eventType string, payload []byte) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.w.WriteMessages(ctx, kafka.Message{
			Key:     []byte(key),
			Value:   payload,
			Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
			Time:    time.Now().UTC(),
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

// State 熔断器当前状态：closed, half-open, open
func (p *KafkaPublisher) State() string { return p.cb.State().String() }

func (p *KafkaPublisher) Close() error { return p.w.Close() }
