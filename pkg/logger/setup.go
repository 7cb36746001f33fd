package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/raywall/form-builder-service/pkg/config"
	"github.com/rs/zerolog"
)

// FieldCorrelationID é o campo que liga todos os logs de uma requisição.
const FieldCorrelationID = "correlation_id"

// Configure inicializa o logger global baseando-se na configuração do ambiente.
func Configure(cfg config.LoggingConf) zerolog.Logger {
	return configure(cfg, os.Stdout)
}

func configure(cfg config.LoggingConf, out io.Writer) zerolog.Logger {
	// Define o nível de log (default: info)
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// JSON para Lambda, Console "bonito" para o runtime local se solicitado
	output := out
	if !cfg.Enabled {
		output = io.Discard
	} else if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Logger()
}

// WithCorrelationID deriva um logger com o correlation id e o guarda no
// contexto, de onde é lido com log.Ctx(ctx).
func WithCorrelationID(ctx context.Context, base zerolog.Logger, id string) (context.Context, zerolog.Logger) {
	l := base.With().Str(FieldCorrelationID, id).Logger()
	return l.WithContext(ctx), l
}
