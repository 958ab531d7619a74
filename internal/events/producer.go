package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/movie_reviews/internal/metrics"
)

const publishTimeout = 5 * time.Second

const (
	TopicUsers   = "user_events"
	TopicReviews = "review_events"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

// Producer writes asynchronously. Delivery failures surface through onError
// instead of blocking the request that published the event.
type Producer struct {
	writer  *kafka.Writer
	onError func(topic string, err error)
}

func NewProducer(brokers []string) *Producer {
	p := &Producer{onError: reportPublishError}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             p.complete,
	}
	return p
}

func (p *Producer) complete(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		p.onError(m.Topic, err)
	}
}

func reportPublishError(topic string, err error) {
	metrics.EventPublishErrors.WithLabelValues(topic).Inc()
	slog.Default().Warn("event_publish_failed", "topic", topic, "err", err, "async", true)
}

// New returns a kafka producer, or a no-op publisher when no brokers are set.
func New(brokers []string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewProducer(brokers)
}

func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s failed: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type Noop struct{}

func (Noop) PublishEvent(context.Context, string, string, any) error { return nil }
func (Noop) Close() error                                            { return nil }
