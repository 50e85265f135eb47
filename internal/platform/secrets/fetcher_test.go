package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type stubSecretClient struct {
	calls  []string
	values map[string]string
	err    error
}

func (s *stubSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls = append(s.calls, req.GetName())
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.values[req.GetName()]
	if !ok {
		return nil, errors.New("not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *stubSecretClient) Close() error { return nil }

func TestFetcherResolvesAndCaches(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{
		"projects/madu-prod/secrets/redis-password/versions/latest": "hunter2",
		"projects/other/secrets/redis-password/versions/3":          "pinned",
	}}
	fetcher, err := NewFetcher(context.Background(), WithSecretManagerClient(client), WithDefaultProject("madu-prod"))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	for i := 0; i < 2; i++ {
		value, err := fetcher.Resolve(context.Background(), "secret://redis-password")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if value != "hunter2" {
			t.Fatalf("unexpected value %q", value)
		}
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected cached second lookup, got %d calls", len(client.calls))
	}

	value, err := fetcher.Resolve(context.Background(), "secret://redis-password?version=3&project=other")
	if err != nil {
		t.Fatalf("Resolve pinned: %v", err)
	}
	if value != "pinned" {
		t.Fatalf("unexpected pinned value %q", value)
	}
}

func TestFetcherRejectsInvalidReferences(t *testing.T) {
	fetcher, err := NewFetcher(context.Background(), WithSecretManagerClient(&stubSecretClient{}))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	for _, ref := range []string{"", "https://example.com/x", "secret://"} {
		if _, err := fetcher.Resolve(context.Background(), ref); err == nil {
			t.Errorf("expected error for %q", ref)
		}
	}
	if _, err := fetcher.Resolve(context.Background(), "secret://needs-project"); err == nil {
		t.Errorf("expected error when no project is configured")
	}
}

type recordingMeter struct {
	noop.Meter

	mu        sync.Mutex
	latencies []attribute.Set
	hits      []attribute.Set
}

func (m *recordingMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return &recordingHistogram{meter: m}, nil
}

func (m *recordingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return &recordingCounter{meter: m}, nil
}

type recordingHistogram struct {
	noop.Float64Histogram
	meter *recordingMeter
}

func (h *recordingHistogram) Record(_ context.Context, _ float64, opts ...metric.RecordOption) {
	h.meter.mu.Lock()
	defer h.meter.mu.Unlock()
	h.meter.latencies = append(h.meter.latencies, metric.NewRecordConfig(opts).Attributes())
}

type recordingCounter struct {
	noop.Int64Counter
	meter *recordingMeter
}

func (c *recordingCounter) Add(_ context.Context, _ int64, opts ...metric.AddOption) {
	c.meter.mu.Lock()
	defer c.meter.mu.Unlock()
	c.meter.hits = append(c.meter.hits, metric.NewAddConfig(opts).Attributes())
}

func TestFetcherRecordsMetrics(t *testing.T) {
	meter := &recordingMeter{}
	client := &stubSecretClient{values: map[string]string{
		"projects/madu-prod/secrets/kafka-password/versions/latest": "s3cret",
	}}
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("madu-prod"),
		WithMeter(meter),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := fetcher.Resolve(context.Background(), "secret://kafka-password"); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if _, err := fetcher.Resolve(context.Background(), "secret://missing"); err == nil {
		t.Fatalf("expected error for missing secret")
	}

	if len(meter.latencies) != 2 {
		t.Fatalf("expected a latency sample per Secret Manager call, got %d", len(meter.latencies))
	}
	if _, failed := meter.latencies[0].Value("error"); failed {
		t.Fatalf("successful fetch must not be tagged as an error")
	}
	if v, ok := meter.latencies[1].Value("error"); !ok || !v.AsBool() {
		t.Fatalf("failed fetch must be tagged as an error, got %v", meter.latencies[1])
	}

	if len(meter.hits) != 2 {
		t.Fatalf("expected two cache hits, got %d", len(meter.hits))
	}
	if v, ok := meter.hits[0].Value("secret"); !ok || v.AsString() != "kafka-password" {
		t.Fatalf("unexpected cache hit attributes %v", meter.hits[0])
	}
}
