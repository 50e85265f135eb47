package observability

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestServiceLoggerPrefersRequestLogger(t *testing.T) {
	fallbackCore, fallbackLogs := observer.New(zapcore.DebugLevel)
	requestCore, requestLogs := observer.New(zapcore.DebugLevel)
	log := ServiceLogger(zap.New(fallbackCore))

	log(context.Background(), "cart.state_discarded", map[string]any{"session": "abc"})
	if fallbackLogs.Len() != 1 {
		t.Fatalf("expected fallback logger without request logger, got %d entries", fallbackLogs.Len())
	}

	ctx := WithLogger(context.Background(), zap.New(requestCore))
	if FromContext(ctx) == FromContext(context.Background()) {
		t.Fatalf("expected request logger on context")
	}
	log(ctx, "order.insert_failed", map[string]any{"order": "ord_1", "error": errors.New("disk full")})

	if requestLogs.Len() != 1 || fallbackLogs.Len() != 1 {
		t.Fatalf("expected event on request logger, got request=%d fallback=%d", requestLogs.Len(), fallbackLogs.Len())
	}
	entry := requestLogs.All()[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected error fields to raise level to warn, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["event"] != "order.insert_failed" || fields["order"] != "ord_1" || fields["error"] != "disk full" {
		t.Fatalf("unexpected fields %v", fields)
	}
}
