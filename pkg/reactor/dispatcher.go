// Package reactor consome o stream de mudanças da tabela e aplica os efeitos
// derivados: contadores, cópias de perfil e remoções em cascata.
//
// Cada registro é processado isoladamente; a falha de um não impede os
// demais. Os efeitos nunca escrevem na linha que gerou o evento, e a cascata
// só desce na hierarquia ORG → WS → FORM → FIELD/RESP, o que garante o fim da
// propagação.
package reactor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/metrics"
	"github.com/raywall/form-builder-service/pkg/models"
)

// Store é o subconjunto do repositório usado pelos reatores.
type Store interface {
	AdjustCounter(ctx context.Context, kind keyspace.Kind, ref keyspace.Ref, counter string, delta int64) (bool, error)
	DeleteScope(ctx context.Context, scope keyspace.Scope) (int, error)
	Keys(ctx context.Context, scope keyspace.Scope) ([]models.Row, error)
	ListMemberships(ctx context.Context, userID string) ([]models.Row, error)
	Patch(ctx context.Context, row models.Row, upd dyndb.Update) (bool, error)
}

// Deduper marca eventos já aplicados. O stream entrega cada evento pelo
// menos uma vez e os contadores não são idempotentes.
type Deduper interface {
	// Claim devolve false se o evento já foi reivindicado.
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// DeadLetter recebe os registros que falharam.
type DeadLetter interface {
	Send(ctx context.Context, rec dyndb.StreamRecord, cause error) error
}

// Resultados publicados na métrica reactor.record.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)

type Dispatcher struct {
	store   Store
	dedup   Deduper
	dlq     DeadLetter
	metrics *metrics.Processor
}

type Option func(*Dispatcher)

func WithDeduper(d Deduper) Option {
	return func(r *Dispatcher) { r.dedup = d }
}

func WithDeadLetter(dl DeadLetter) Option {
	return func(r *Dispatcher) { r.dlq = dl }
}

func WithMetrics(p *metrics.Processor) Option {
	return func(r *Dispatcher) { r.metrics = p }
}

func NewDispatcher(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process aplica os registros em ordem e devolve os que falharam e não
// puderam ser entregues à fila de mensagens mortas.
func (d *Dispatcher) Process(ctx context.Context, records []dyndb.StreamRecord) []dyndb.StreamRecord {
	var failed []dyndb.StreamRecord
	for _, rec := range records {
		err := d.ProcessRecord(ctx, rec)
		if err == nil {
			continue
		}
		if d.dlq != nil {
			dlqErr := d.dlq.Send(ctx, rec, err)
			if dlqErr == nil {
				continue
			}
			log.Ctx(ctx).Error().Err(dlqErr).Str("event_id", rec.EventID).Msg("falha ao publicar na DLQ")
		}
		failed = append(failed, rec)
	}
	return failed
}

// ProcessRecord aplica um único registro. Em caso de falha a reivindicação
// do evento é liberada, para que uma nova entrega possa repetir o trabalho.
func (d *Dispatcher) ProcessRecord(ctx context.Context, rec dyndb.StreamRecord) error {
	kind := kindOf(rec)
	logger := log.Ctx(ctx).With().
		Str("event_id", rec.EventID).
		Str("event", string(rec.EventName)).
		Str("kind", string(kind)).
		Logger()
	ctx = logger.WithContext(ctx)

	if d.dedup != nil && rec.EventID != "" {
		claimed, err := d.dedup.Claim(ctx, rec.EventID)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("deduplicação indisponível, processando assim mesmo")
		case !claimed:
			logger.Debug().Msg("evento já aplicado")
			d.record(kind, rec, ResultDuplicate)
			return nil
		}
	}

	if err := d.apply(ctx, kind, rec); err != nil {
		if d.dedup != nil && rec.EventID != "" {
			if relErr := d.dedup.Release(ctx, rec.EventID); relErr != nil {
				logger.Warn().Err(relErr).Msg("falha ao liberar o evento")
			}
		}
		d.record(kind, rec, ResultFailed)
		logger.Error().Err(err).Msg("falha ao aplicar evento")
		return err
	}

	d.record(kind, rec, ResultOK)
	return nil
}

func (d *Dispatcher) record(kind keyspace.Kind, rec dyndb.StreamRecord, result string) {
	_ = d.metrics.Record(metrics.ReactorRecord, 1, map[string]string{
		"kind":   string(kind),
		"event":  string(rec.EventName),
		"result": result,
	})
}

func (d *Dispatcher) apply(ctx context.Context, kind keyspace.Kind, rec dyndb.StreamRecord) error {
	switch kind {
	case keyspace.KindOrganization:
		return d.onOrganization(ctx, rec)
	case keyspace.KindOrgMember:
		return d.onOrgMember(ctx, rec)
	case keyspace.KindWorkspace:
		return d.onWorkspace(ctx, rec)
	case keyspace.KindWorkspaceMember:
		return d.onWorkspaceMember(ctx, rec)
	case keyspace.KindForm:
		return d.onForm(ctx, rec)
	case keyspace.KindResponse:
		return d.onResponse(ctx, rec)
	case keyspace.KindUser:
		return d.onUser(ctx, rec)
	}
	return nil
}

// recordPartial publica quantas escritas de um lote ficaram pendentes.
func (d *Dispatcher) recordPartial(err error) {
	var pwe *dyndb.PartialWriteError
	if errors.As(err, &pwe) {
		_ = d.metrics.Record(metrics.StoreBatchUnprocessed, float64(len(pwe.Unprocessed)), nil)
	}
}
