package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/raywall/form-builder-service/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestConfigure(t *testing.T) {
	t.Run("Default Level Info", func(t *testing.T) {
		cfg := config.LoggingConf{Enabled: true}
		_ = Configure(cfg)

		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("Custom Level Debug", func(t *testing.T) {
		cfg := config.LoggingConf{Enabled: true, Level: "DEBUG"}
		_ = Configure(cfg)

		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("Disabled Logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := configure(config.LoggingConf{Enabled: false}, &buf)

		logger.Info().Msg("teste")
		assert.Zero(t, buf.Len())
	})

	t.Run("JSON Output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := configure(config.LoggingConf{Enabled: true, Level: "info", Format: "json"}, &buf)

		logger.Info().Str("route", "/users").Msg("ok")
		assert.Contains(t, buf.String(), `"route":"/users"`)
		assert.Contains(t, buf.String(), `"message":"ok"`)
	})
}

func TestWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	base := configure(config.LoggingConf{Enabled: true, Level: "info"}, &buf)

	ctx, _ := WithCorrelationID(context.Background(), base, "corr-1")
	log.Ctx(ctx).Info().Msg("dentro do handler")

	assert.Contains(t, buf.String(), `"correlation_id":"corr-1"`)
}
