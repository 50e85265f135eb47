package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/madu-store/api/internal/services"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOrderPublisher publishes order events to a Kafka topic keyed by order id.
type KafkaOrderPublisher struct {
	writer  MessageWriter
	marshal func(any) ([]byte, error)
}

// NewKafkaWriter builds a writer for topic on brokers.
func NewKafkaWriter(topic string, brokers ...string) (*kafka.Writer, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("kafka order publisher: topic is required")
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka order publisher: brokers are required")
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, nil
}

// NewKafkaOrderPublisher wraps writer.
func NewKafkaOrderPublisher(writer MessageWriter) (*KafkaOrderPublisher, error) {
	if writer == nil {
		return nil, errors.New("kafka order publisher: writer is required")
	}
	return &KafkaOrderPublisher{writer: writer, marshal: json.Marshal}, nil
}

// PublishOrderEvent writes the event synchronously.
func (p *KafkaOrderPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	data, err := p.marshal(newOrderEventPayload(event))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := eventAttributes(event)
	headers := make([]kafka.Header, 0, len(attrs))
	for _, key := range []string{"eventType", "orderId", "orderNumber"} {
		if value, ok := attrs[key]; ok {
			headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
		}
	}

	msg := kafka.Message{
		Key:     []byte(event.OrderID),
		Value:   data,
		Headers: headers,
		Time:    event.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaOrderPublisher) Close() error {
	return p.writer.Close()
}
