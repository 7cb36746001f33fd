package handler

import (
	"context"
	"errors"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/pkg/notify"
)

// Origens de gatilho do Cognito tratadas pelos callbacks.
const (
	TriggerConfirmSignUp         = "PostConfirmation_ConfirmSignUp"
	TriggerConfirmForgotPassword = "PostConfirmation_ConfirmForgotPassword"
	TriggerSignUp                = "CustomMessage_SignUp"
	TriggerResendCode            = "CustomMessage_ResendCode"
	TriggerForgotPassword        = "CustomMessage_ForgotPassword"
	TriggerUpdateUserAttribute   = "CustomMessage_UpdateUserAttribute"
	TriggerVerifyUserAttribute   = "CustomMessage_VerifyUserAttribute"
)

func attr[V any](attrs map[string]V, key string) string {
	v, ok := attrs[key]
	if !ok {
		return ""
	}
	s, _ := any(v).(string)
	return s
}

// PostConfirmation marca o e-mail como verificado após a confirmação do
// cadastro e avisa o usuário. Falhas são registradas e o evento segue
// inalterado, para não bloquear o fluxo do provedor.
func (h *Handler) PostConfirmation(ctx context.Context, event events.CognitoEventUserPoolsPostConfirmation) (events.CognitoEventUserPoolsPostConfirmation, error) {
	attrs := event.Request.UserAttributes
	email, firstName := attr(attrs, "email"), attr(attrs, "given_name")
	logger := log.Ctx(ctx).With().Str("trigger", event.TriggerSource).Logger()

	switch event.TriggerSource {
	case TriggerConfirmSignUp:
		userID := attr(attrs, "sub")
		upd := dyndb.NewUpdate().Set("emailVerified", true).Set("updatedAt", h.timestamp())
		if err := h.repo.UpdateUser(ctx, userID, upd); err != nil {
			if errors.Is(err, dyndb.ErrConditionFailed) {
				logger.Warn().Str("user_id", userID).Msg("usuário confirmado sem linha na tabela")
			} else {
				logger.Error().Err(err).Str("user_id", userID).Msg("falha ao marcar e-mail verificado")
			}
		}
		h.notifier.AccountConfirmed(ctx, email, firstName)

	case TriggerConfirmForgotPassword:
		h.notifier.PasswordChanged(ctx, email, firstName)
	}
	return event, nil
}

// CustomMessage escolhe o modelo de e-mail do código de verificação.
func (h *Handler) CustomMessage(ctx context.Context, event events.CognitoEventUserPoolsCustomMessage) (events.CognitoEventUserPoolsCustomMessage, error) {
	attrs := event.Request.UserAttributes
	email := attr(attrs, "email")
	query := url.Values{"code": {event.Request.CodeParameter}, "email": {email}}

	var name, path string
	switch event.TriggerSource {
	case TriggerSignUp:
		name, path = notify.TemplateSignupCode, "/confirmSignup"
	case TriggerResendCode:
		name, path = notify.TemplateResendCode, "/confirmSignup"
	case TriggerForgotPassword:
		name, path = notify.TemplateForgotPassword, "/confirmForgotPassword"
	case TriggerUpdateUserAttribute, TriggerVerifyUserAttribute:
		name, path = notify.TemplateUpdateAttribute, "/updateAttribute"
	default:
		return event, nil
	}

	msg, err := h.notifier.Render(name, notify.Data{
		UserName: attr(attrs, "given_name"),
		Email:    email,
		Link:     h.notifier.Link(path, query),
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("trigger", event.TriggerSource).Msg("falha ao renderizar mensagem")
		return event, nil
	}

	event.Response.EmailSubject = msg.Subject
	event.Response.EmailMessage = msg.HTML
	event.Response.SMSMessage = msg.SMS
	return event, nil
}
