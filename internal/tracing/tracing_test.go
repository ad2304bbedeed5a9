package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewProvider_RequiresEndpoint(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{})
	assert.ErrorContains(t, err, "endpoint is required")
}

func TestNewProvider_RejectsUnknownProtocol(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Endpoint: "localhost:4317", Protocol: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unsupported protocol")
}

func TestNewProvider_Protocols(t *testing.T) {
	for _, protocol := range []string{"", "grpc", "http"} {
		t.Run("protocol="+protocol, func(t *testing.T) {
			tp, err := NewProvider(context.Background(), Config{
				Endpoint: "127.0.0.1:1",
				Protocol: protocol,
				Insecure: true,
			})
			require.NoError(t, err)

			_, span := tp.Tracer("test").Start(context.Background(), "agent.run")
			assert.True(t, span.SpanContext().IsValid(), "sdk provider must record spans")
			assert.True(t, span.SpanContext().IsSampled())
			span.End()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = tp.Shutdown(ctx)
		})
	}
}

func TestNewProvider_ServiceName(t *testing.T) {
	tp, err := NewProvider(context.Background(), Config{Endpoint: "127.0.0.1:1", Protocol: "http", ServiceName: "planner"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	defer func() { _ = tp.Shutdown(ctx) }()

	_, span := tp.Tracer("test").Start(context.Background(), "agent.run")
	defer span.End()

	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)

	value, found := ro.Resource().Set().Value(semconv.ServiceNameKey)
	require.True(t, found)
	assert.Equal(t, "planner", value.AsString())
}
