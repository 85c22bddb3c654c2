package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"lms-module/config"
	"lms-module/logger"

	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event map[string]interface{}) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads events from a consumer group and routes them by their
// "event" field. Failures go to the dead letter queue.
type Consumer struct {
	reader messageReader
	dlq    deadLetterSink

	mu       sync.Mutex
	handlers map[string]Handler
	running  bool
	stop     chan struct{}
	done     chan struct{}
}

// NewConsumer creates a consumer for topics. It returns a consumer that
// never starts when no brokers are configured.
func NewConsumer(cfg *config.Config, groupID string, topics []string, dlq deadLetterSink) *Consumer {
	c := &Consumer{dlq: dlq, handlers: map[string]Handler{}}

	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		logger.Info("Kafka consumer is disabled (KAFKA_BROKERS is empty)")
		return c
	}

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:          brokers,
		GroupID:          groupID,
		GroupTopics:      topics,
		StartOffset:      kafka.LastOffset,
		CommitInterval:   time.Second,
		MaxBytes:         10e6,
		SessionTimeout:   20 * time.Second,
		ReadBackoffMin:   100 * time.Millisecond,
		ReadBackoffMax:   1 * time.Second,
		QueueCapacity:    100,
		RebalanceTimeout: 60 * time.Second,
	})
	logger.Info("Kafka consumer initialized. Brokers=%v, Topics=%v, ConsumerGroup=%s", brokers, topics, groupID)
	return c
}

// Register routes events of the given type to h.
func (c *Consumer) Register(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
	logger.Info("Kafka handler registered for %s", event)
}

// Start consumes in a separate goroutine until Stop is called.
func (c *Consumer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		logger.Warn("Consumer not initialized, cannot start")
		return
	}
	if c.running {
		logger.Warn("Consumer already running")
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.consume()
	logger.Info("Kafka consumer started")
}

func (c *Consumer) consume() {
	defer close(c.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stop
		cancel()
	}()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, io.EOF) {
				return
			}
			if strings.Contains(err.Error(), "Group Coordinator Not Available") {
				time.Sleep(500 * time.Millisecond)
				continue
			}
			logger.Warn("Kafka read failed, backing off: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if err := c.Process(ctx, msg); err != nil {
			logger.Error("Error handling message on %s: %v", msg.Topic, err)
			if c.dlq != nil {
				if dErr := c.dlq.Send(context.WithoutCancel(ctx), msg.Topic, string(msg.Key), msg.Value, err.Error()); dErr != nil {
					logger.Error("Dead letter store failed: %v", dErr)
				}
			}
		}
	}
}

// Process decodes msg and runs the handler registered for its event type.
func (c *Consumer) Process(ctx context.Context, msg kafka.Message) error {
	var event map[string]interface{}
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	eventType, ok := event["event"].(string)
	if !ok || eventType == "" {
		return fmt.Errorf("message does not contain a valid event type")
	}

	c.mu.Lock()
	h, ok := c.handlers[eventType]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := h(ctx, event); err != nil {
		return fmt.Errorf("handler error for %s: %w", eventType, err)
	}
	return nil
}

// Stop stops the consumer and waits for the read loop to exit.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stop)
	done := c.done
	c.mu.Unlock()

	<-done
	if err := c.reader.Close(); err != nil {
		logger.Error("Error closing consumer: %v", err)
		return err
	}
	logger.Info("Kafka consumer stopped")
	return nil
}

func (c *Consumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
