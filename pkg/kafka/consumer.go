package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries is the maximum number of times a message handler will be
// attempted before the message is committed and skipped (poison pill protection).
const maxHandlerRetries = 3

// Handler is a function that processes a Kafka event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration. A consumer may subscribe
// to several topics within a single group.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
}

// Consumer wraps the kafka-go reader for consuming events.
type Consumer struct {
	reader    *kafka.Reader
	group     string
	logger    *slog.Logger
	handler   Handler
	backoff   time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a new Kafka consumer for a set of topics and a group.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	rc := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	}
	if len(cfg.Topics) == 1 {
		rc.Topic = cfg.Topics[0]
	} else {
		rc.GroupTopics = cfg.Topics
	}

	return &Consumer{
		reader:  kafka.NewReader(rc),
		group:   cfg.GroupID,
		logger:  logger,
		handler: handler,
		backoff: 100 * time.Millisecond,
	}
}

// Start begins consuming messages. It blocks until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	cfg := c.reader.Config()
	c.logger.Info("consumer started",
		slog.Any("topics", subscribedTopics(cfg)),
		slog.String("group", cfg.GroupID),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("group", cfg.GroupID))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			continue
		}

		if stop := c.process(ctx, msg); stop {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process decodes and handles one message. Undecodable and poison messages are
// logged and reported as handled so the caller commits them. It returns true
// only when the context was canceled mid-retry.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	group := c.group
	consumerMessagesReceived.WithLabelValues(msg.Topic, group).Inc()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		consumerMessagesFailed.WithLabelValues(msg.Topic, group).Inc()
		c.logger.Error("failed to unmarshal event",
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
		)
		return false
	}

	start := time.Now()
	lastErr, canceled := handleWithRetry(ctx, c.handler, event, c.backoff)
	if canceled {
		return true
	}
	consumerProcessingDuration.WithLabelValues(msg.Topic, group).Observe(time.Since(start).Seconds())
	if lastErr == nil {
		consumerMessagesProcessed.WithLabelValues(msg.Topic, group).Inc()
		return false
	}
	consumerMessagesFailed.WithLabelValues(msg.Topic, group).Inc()
	c.logger.Error("handler failed after all retries, skipping poison message",
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
		slog.String("error", lastErr.Error()),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.Int("retries", maxHandlerRetries),
	)
	return false
}

// handleWithRetry runs h up to maxHandlerRetries times with linear backoff.
func handleWithRetry(ctx context.Context, h Handler, event *Event, backoff time.Duration) (error, bool) {
	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if lastErr = h(ctx, event); lastErr == nil {
			return nil, false
		}
		if attempt == maxHandlerRetries {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr, true
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
	return lastErr, false
}

func subscribedTopics(cfg kafka.ReaderConfig) []string {
	if cfg.Topic != "" {
		return []string{cfg.Topic}
	}
	return cfg.GroupTopics
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}

// TopicPrefix is the standard prefix for all EcommerceGo Kafka topics.
const TopicPrefix = "ecommerce"

// Topic constructs a fully-qualified topic name.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
