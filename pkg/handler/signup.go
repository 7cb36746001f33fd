package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/identity"
	"github.com/raywall/form-builder-service/pkg/models"
)

const msgSignupRequired = "first name, last name, email and password required"

type signupBody struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// SignupResult é a resposta do cadastro.
type SignupResult struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

// Signup registra o usuário no provedor de identidade e grava o usuário, a
// organização dele e o workspace inicial.
func (h *Handler) Signup(ctx context.Context, req Request) (any, error) {
	var body signupBody
	if err := h.decode(req, &body); err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) && len(ve.Fields) > 0 {
			return nil, apperr.Validation(msgSignupRequired)
		}
		return nil, err
	}
	email := keyspace.NormalizeEmail(body.Email)

	// a checagem e a escrita não são atômicas; a gravação condicional do
	// usuário cobre apenas a repetição do mesmo id
	taken, err := h.repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if taken {
		return nil, apperr.Validation(identity.MsgEmailExists)
	}

	userID, err := h.identity.SignUp(ctx, identity.Registration{
		Email:     email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("falha no cadastro do provedor de identidade")
		return nil, err
	}

	now := h.timestamp()
	user, err := models.NewUser(userID, body.FirstName, body.LastName, email, now)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	org, err := models.NewOrganization(userID, models.DefaultOrgName(email), now)
	if err != nil {
		return nil, storeErr(err, "organization")
	}
	ws, err := models.NewWorkspace(userID, h.newID(), models.DefaultWorkspaceName, userID, now)
	if err != nil {
		return nil, storeErr(err, "workspace")
	}

	if err := h.repo.CreateAccount(ctx, user, org, ws); err != nil {
		if errors.Is(err, dyndb.ErrConditionFailed) {
			return nil, apperr.Validation(identity.MsgEmailExists)
		}
		return nil, storeErr(err, "user")
	}

	log.Ctx(ctx).Info().Str("user_id", userID).Msg("usuário cadastrado")
	return &SignupResult{Email: email, ID: userID}, nil
}
