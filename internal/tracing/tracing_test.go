package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
)

func TestStartTracing(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		// when
		ctx, span := tracing.StartTracing(context.Background(), "test", false)

		// then
		require.NotNil(t, ctx)
		require.Nil(t, span)
		tracing.EndTracing(span, errors.New("ignored"))
	})

	t.Run("enabled", func(t *testing.T) {
		// when
		_, span := tracing.StartTracing(context.Background(), "test", true, attribute.String("key", "value"))

		// then
		require.NotNil(t, span)
		tracing.EndTracing(span, nil)
	})
}

func TestKeyValues(t *testing.T) {
	kvs := tracing.KeyValues(map[string]string{"service": "txlifecycle"})

	require.Equal(t, []attribute.KeyValue{attribute.String("service", "txlifecycle")}, kvs)
}
