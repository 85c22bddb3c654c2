package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"lms-module/config"
	"lms-module/logger"

	"github.com/segmentio/kafka-go"
)

const publishAttempts = 3

var errProducerDisabled = errors.New("kafka producer is disabled")

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deadLetterSink receives messages that could not be published.
type deadLetterSink interface {
	Send(ctx context.Context, topic, key string, value []byte, errorMsg string) error
}

// Producer publishes JSON events. With no brokers configured it logs and
// skips every publish.
type Producer struct {
	writer  messageWriter
	dlq     deadLetterSink
	backoff time.Duration
	timeout time.Duration

	mu        sync.Mutex
	connected bool
}

// NewProducer initializes a Kafka writer using brokers from the config.
// dlq may be nil.
func NewProducer(cfg *config.Config, dlq deadLetterSink) *Producer {
	p := &Producer{dlq: dlq, backoff: time.Second, timeout: 5 * time.Second}

	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		logger.Info("Kafka is disabled (KAFKA_BROKERS is empty)")
		return p
	}

	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		Async:                  false,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	p.connected = true
	logger.Info("Kafka producer initialized. Brokers=%v", brokers)
	return p
}

// Publish marshals value to JSON and publishes it to topic with key.
// Each write is tried 3 times with exponential backoff; a message that
// still fails goes to the dead letter queue.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Error("Error marshaling Kafka message: %v", err)
		return err
	}
	return p.PublishRaw(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: payload})
}

// PublishRaw publishes an already encoded message.
func (p *Producer) PublishRaw(ctx context.Context, msg kafka.Message) error {
	if p.writer == nil {
		logger.Warn("Kafka producer not initialized, skipping publish to topic: %s", msg.Topic)
		return nil
	}

	err := p.write(ctx, msg)
	if err != nil && p.dlq != nil {
		if dErr := p.dlq.Send(context.WithoutCancel(ctx), msg.Topic, string(msg.Key), msg.Value, "publish failed: "+err.Error()); dErr != nil {
			logger.Error("Dead letter store failed for topic %s: %v", msg.Topic, dErr)
		}
	}
	return err
}

// Redeliver publishes a message taken from the dead letter queue. Failures
// are returned, not dead-lettered again.
func (p *Producer) Redeliver(ctx context.Context, msg kafka.Message) error {
	if p.writer == nil {
		return errProducerDisabled
	}
	return p.write(ctx, msg)
}

func (p *Producer) write(ctx context.Context, msg kafka.Message) error {
	logger.Debug("Publishing to Kafka topic: %s with key: %s, payload size: %d bytes", msg.Topic, msg.Key, len(msg.Value))

	var lastErr error
retry:
	for attempt := 0; attempt < publishAttempts; attempt++ {
		wctx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.writer.WriteMessages(wctx, msg)
		cancel()

		if err == nil {
			p.setConnected(true)
			logger.Info("Published to Kafka topic: %s", msg.Topic)
			return nil
		}

		lastErr = err
		p.setConnected(false)
		if attempt == publishAttempts-1 {
			break
		}

		wait := p.backoff << attempt
		logger.Warn("Kafka publish attempt %d/%d failed, retrying in %v: %v", attempt+1, publishAttempts, wait, err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		}
	}

	logger.Error("Kafka publish to %s failed after %d attempts: %v", msg.Topic, publishAttempts, lastErr)
	return lastErr
}

// IsConnected reports whether the last write succeeded.
func (p *Producer) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected && p.writer != nil
}

func (p *Producer) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// Close gracefully closes the Kafka producer
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
