package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_ReExport(t *testing.T) {
	log := New("test-package")

	assert.NotNil(t, log)
	assert.NotNil(t, log.Function("Sync"))
}

func TestNewWithContext_CarriesTraceID(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "trace-123")

	assert.Equal(t, "trace-123", TraceIDFromContext(ctx))
	assert.NotNil(t, NewWithContext(ctx, "test"))
}

func TestNewWithConfig_ReExport(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{Name: "sync", Format: FormatText, Level: slog.LevelInfo, Writer: &buf})

	log.Info("catalog updated", "added", 3)

	assert.Contains(t, buf.String(), "catalog updated")
	assert.Contains(t, buf.String(), "package=sync")
}
