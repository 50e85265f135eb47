package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/madu-store/api/internal/services"
)

func sampleEvent() services.OrderEvent {
	return services.OrderEvent{
		Type:        "order.created",
		OrderID:     "ord_01J0TEST",
		OrderNumber: "MD-2026-000012",
		Subtotal:    decimal.RequireFromString("47.5"),
		ItemCount:   2,
		OccurredAt:  time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC),
	}
}

func TestPubSubOrderPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "orders")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubOrderPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderPublisher: %v", err)
	}
	defer publisher.Close()

	if err := publisher.PublishOrderEvent(ctx, sampleEvent()); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload orderEventPayload
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderNumber != "MD-2026-000012" || payload.Subtotal != "47.50" || payload.ItemCount != 2 {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["eventType"]; attr != "order.created" {
		t.Fatalf("expected event type attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["orderId"]; attr != "ord_01J0TEST" {
		t.Fatalf("expected order id attribute, got %q", attr)
	}
}

func TestNewPubSubOrderPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubOrderPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaOrderPublisherWritesKeyedMessage(t *testing.T) {
	writer := &recordingWriter{}
	publisher, err := NewKafkaOrderPublisher(writer)
	if err != nil {
		t.Fatalf("NewKafkaOrderPublisher: %v", err)
	}

	if err := publisher.PublishOrderEvent(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "ord_01J0TEST" {
		t.Fatalf("expected order id key, got %q", msg.Key)
	}
	var payload orderEventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Type != "order.created" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if len(msg.Headers) != 3 || msg.Headers[0].Key != "eventType" || string(msg.Headers[0].Value) != "order.created" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer closed, err=%v", err)
	}
}

func TestKafkaOrderPublisherSurfacesWriteErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	publisher, err := NewKafkaOrderPublisher(writer)
	if err != nil {
		t.Fatalf("NewKafkaOrderPublisher: %v", err)
	}
	if err := publisher.PublishOrderEvent(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestNewKafkaWriterValidatesInput(t *testing.T) {
	if _, err := NewKafkaWriter("", "localhost:9092"); err == nil {
		t.Fatalf("expected error for empty topic")
	}
	if _, err := NewKafkaWriter("orders"); err == nil {
		t.Fatalf("expected error for missing brokers")
	}
	writer, err := NewKafkaWriter("orders", "localhost:9092")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.Topic != "orders" {
		t.Fatalf("unexpected topic %q", writer.Topic)
	}
}
