package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"lms-module/config"
	"lms-module/logger"
	"lms-module/models"

	"github.com/segmentio/kafka-go"
)

// DLQStore persists dead letters.
type DLQStore interface {
	StoreDLQMessage(ctx context.Context, topic, key string, value []byte, errorMsg string) (string, error)
	RetryableDLQMessages(ctx context.Context, limit int) ([]models.DLQMessage, error)
	RecordDLQRetry(ctx context.Context, messageID string, succeeded bool) error
}

// Reprocessor handles a dead letter again; it reports whether it succeeded.
type Reprocessor func(ctx context.Context, msg kafka.Message) bool

// DeadLetterQueue keeps messages that failed to publish or process: on the
// DLQ topic when Kafka is reachable, and always in the database.
type DeadLetterQueue struct {
	store DLQStore
	topic string

	mu     sync.Mutex
	writer messageWriter
	ticker *time.Ticker
	stop   chan struct{}
}

// NewDeadLetterQueue initializes a Kafka writer for the DLQ topic when
// brokers are configured.
func NewDeadLetterQueue(cfg *config.Config, store DLQStore) *DeadLetterQueue {
	d := &DeadLetterQueue{store: store, topic: cfg.KafkaDLQTopic}

	brokers := cfg.Brokers()
	if len(brokers) == 0 || cfg.KafkaDLQTopic == "" {
		logger.Info("Kafka DLQ topic is disabled, dead letters go to the database only")
		return d
	}

	d.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.KafkaDLQTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}
	logger.Info("Kafka DLQ producer initialized. Brokers=%v, DLQ Topic=%s", brokers, cfg.KafkaDLQTopic)
	return d
}

// Send publishes a failed message to the DLQ topic (single attempt) and
// stores it in the database.
func (d *DeadLetterQueue) Send(ctx context.Context, topic, key string, value []byte, errorMsg string) error {
	d.publish(ctx, topic, key, value, errorMsg)

	if d.store == nil {
		logger.Warn("Database not available for DLQ storage, dropping message for topic %s", topic)
		return nil
	}
	id, err := d.store.StoreDLQMessage(ctx, topic, key, value, errorMsg)
	if err != nil {
		return err
	}
	logger.Info("DLQ message %s stored. Topic: %s, Key: %s", id, topic, key)
	return nil
}

func (d *DeadLetterQueue) publish(ctx context.Context, topic, key string, value []byte, errorMsg string) {
	d.mu.Lock()
	w := d.writer
	d.mu.Unlock()
	if w == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"original_topic": topic,
		"original_key":   key,
		"original_value": string(value),
		"error_message":  errorMsg,
		"timestamp":      time.Now().Unix(),
	})
	if err != nil {
		logger.Error("Error marshaling DLQ message: %v", err)
		return
	}

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = w.WriteMessages(wctx, kafka.Message{Key: []byte(key), Value: payload})
	if err == nil {
		logger.Info("Message sent to DLQ topic: %s", d.topic)
		return
	}

	// A missing topic will not appear on its own; stop trying it.
	if strings.Contains(strings.ToLower(err.Error()), "unknown topic") {
		logger.Warn("DLQ topic missing on broker; disabling DLQ producer: %v", err)
		d.mu.Lock()
		d.writer = nil
		d.mu.Unlock()
		return
	}
	logger.Warn("DLQ publish failed, storing to DB only: %v", err)
}

// RetryPending reprocesses up to limit retryable messages and returns how
// many were retried and how many resolved.
func (d *DeadLetterQueue) RetryPending(ctx context.Context, limit int, reprocess Reprocessor) (int, int) {
	if d.store == nil {
		return 0, 0
	}
	messages, err := d.store.RetryableDLQMessages(ctx, limit)
	if err != nil {
		logger.Error("Error querying DLQ messages for retry: %v", err)
		return 0, 0
	}

	resolved := 0
	for _, m := range messages {
		logger.Info("Auto-retrying DLQ message %s (attempt %d/%d)", m.MessageID, m.RetryCount+1, m.MaxRetries)
		ok := reprocess(ctx, kafka.Message{Topic: m.Topic, Key: []byte(m.Key), Value: []byte(m.Value)})
		if err := d.store.RecordDLQRetry(ctx, m.MessageID, ok); err != nil {
			logger.Error("Error updating DLQ message %s: %v", m.MessageID, err)
			continue
		}
		if ok {
			resolved++
		}
	}
	if len(messages) > 0 {
		logger.Info("DLQ auto-retry completed: processed %d messages, %d resolved", len(messages), resolved)
	}
	return len(messages), resolved
}

// StartAutoRetry retries unresolved messages every interval until StopAutoRetry.
func (d *DeadLetterQueue) StartAutoRetry(interval time.Duration, reprocess Reprocessor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ticker != nil {
		return
	}
	d.ticker = time.NewTicker(interval)
	d.stop = make(chan struct{})

	go func(ticker *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-ticker.C:
				d.RetryPending(context.Background(), 10, reprocess)
			case <-stop:
				return
			}
		}
	}(d.ticker, d.stop)

	logger.Info("DLQ auto-retry scheduler started (every %v)", interval)
}

func (d *DeadLetterQueue) StopAutoRetry() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	close(d.stop)
	d.ticker = nil
	logger.Info("DLQ auto-retry stopped")
}

func (d *DeadLetterQueue) Close() error {
	d.StopAutoRetry()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer != nil {
		return d.writer.Close()
	}
	return nil
}
