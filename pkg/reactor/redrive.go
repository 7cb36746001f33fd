package reactor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Redriver reaplica os registros da DLQ. A mensagem só é removida depois
// que o registro é processado com sucesso.
type Redriver struct {
	client     SQSClient
	queueURL   string
	dispatcher *Dispatcher
	logger     zerolog.Logger
	retryDelay time.Duration
}

func NewRedriver(client SQSClient, queueURL string, d *Dispatcher) *Redriver {
	return &Redriver{
		client:     client,
		queueURL:   queueURL,
		dispatcher: d,
		logger:     log.With().Str("component", "redrive").Logger(),
		retryDelay: 5 * time.Second,
	}
}

// Start consome a fila até o contexto ser cancelado ou, com drain, até a
// fila ficar vazia (bloqueante).
func (r *Redriver) Start(ctx context.Context, drain bool) {
	if r.queueURL == "" {
		r.logger.Warn().Msg("URL da DLQ não configurada. Redrive desativado.")
		return
	}
	r.logger.Info().Str("queue", r.queueURL).Msg("consumindo DLQ")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("parando redrive")
			return
		default:
		}

		n, err := r.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error().Err(err).Dur("retry_in", r.retryDelay).Msg("erro no SQS")
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("parando redrive")
				return
			case <-time.After(r.retryDelay):
			}
			continue
		}
		if drain && n == 0 {
			r.logger.Info().Msg("DLQ vazia")
			return
		}
	}
}

// RunOnce busca um lote e devolve quantas mensagens foram recebidas.
func (r *Redriver) RunOnce(ctx context.Context) (int, error) {
	out, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20, // Long polling
	})
	if err != nil {
		return 0, err
	}

	for _, msg := range out.Messages {
		logger := r.logger.With().Str("message_id", aws.ToString(msg.MessageId)).Logger()

		var ev events.DynamoDBEventRecord
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &ev); err != nil {
			logger.Error().Err(err).Msg("mensagem ilegível, mantida na fila")
			continue
		}
		rec, err := FromEvent(ev)
		if err != nil {
			logger.Error().Err(err).Msg("registro inválido, mantido na fila")
			continue
		}
		if err := r.dispatcher.ProcessRecord(logger.WithContext(ctx), rec); err != nil {
			continue
		}

		if _, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(r.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			logger.Warn().Err(err).Msg("falha ao remover mensagem reprocessada")
		}
	}
	return len(out.Messages), nil
}
