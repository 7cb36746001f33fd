package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
)

// Mailer entrega um e-mail já renderizado.
type Mailer interface {
	Send(ctx context.Context, to string, msg Message) error
}

// SESClient interface para Mock
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESMailer struct {
	client SESClient
	sender string
}

func NewSESMailer(client SESClient, sender string) *SESMailer {
	return &SESMailer{client: client, sender: sender}
}

func (m *SESMailer) Send(ctx context.Context, to string, msg Message) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("erro no SES SendEmail: %w", err)
	}
	return nil
}

// LogMailer só registra a mensagem. É usado quando não há remetente
// configurado e no runtime local.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to string, msg Message) error {
	log.Ctx(ctx).Info().Str("to", to).Str("subject", msg.Subject).Msg("e-mail não enviado (sem remetente)")
	return nil
}
