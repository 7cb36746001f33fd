package reactor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
)

// Source entrega os registros acumulados de um stream local.
type Source interface {
	Drain() []dyndb.StreamRecord
}

// Settle processa o stream até ele esvaziar, incluindo os registros gerados
// pelos próprios efeitos. Devolve quantos registros foram processados.
func (d *Dispatcher) Settle(ctx context.Context, src Source) int {
	total := 0
	for {
		records := src.Drain()
		if len(records) == 0 {
			return total
		}
		total += len(records)
		d.Process(ctx, records)
	}
}

// Pump roda Settle periodicamente até o contexto ser cancelado. É o
// substituto do DynamoDB Stream no runtime local.
func (d *Dispatcher) Pump(ctx context.Context, src Source, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.Settle(ctx, src); n > 0 {
				log.Ctx(ctx).Debug().Int("records", n).Msg("stream local processado")
			}
		}
	}
}
