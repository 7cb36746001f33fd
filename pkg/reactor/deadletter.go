package reactor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/raywall/form-builder-service/dyndb"
)

// SQSClient define a interface necessária para a DLQ e o redrive (permite Mocking)
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// attrError carrega a causa da falha junto da mensagem.
const attrError = "error"

// SQSDeadLetter publica o registro no formato de evento do Lambda.
type SQSDeadLetter struct {
	client   SQSClient
	queueURL string
}

func NewSQSDeadLetter(client SQSClient, queueURL string) *SQSDeadLetter {
	return &SQSDeadLetter{client: client, queueURL: queueURL}
}

func (q *SQSDeadLetter) Send(ctx context.Context, rec dyndb.StreamRecord, cause error) error {
	ev, err := ToEvent(rec)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializar registro %s: %w", rec.EventID, err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if cause != nil {
		in.MessageAttributes = map[string]types.MessageAttributeValue{
			attrError: {DataType: aws.String("String"), StringValue: aws.String(cause.Error())},
		}
	}
	if _, err := q.client.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("sqs SendMessage: %w", err)
	}
	return nil
}
