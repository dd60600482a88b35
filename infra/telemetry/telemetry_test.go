package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/webitel/im-chat-service/config"
)

func TestNewInstallsGlobalProvider(t *testing.T) {
	tp, err := New(t.Context(), "im-chat-service-test", config.TelemetryConfig{})
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.Same(t, tp, otel.GetTracerProvider())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
