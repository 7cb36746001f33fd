// Package handler implementa os comandos do form builder: cada método valida a
// entrada, autoriza o chamador, monta a mutação e a envia ao repositório.
// Os efeitos derivados (contadores, cópias de perfil, cascatas) ficam com os
// reatores do stream.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/identity"
	"github.com/raywall/form-builder-service/pkg/models"
	"github.com/raywall/form-builder-service/pkg/notify"
	"github.com/raywall/form-builder-service/pkg/repository"
)

// SignUpper é o provedor de identidade usado no cadastro.
type SignUpper interface {
	SignUp(ctx context.Context, reg identity.Registration) (string, error)
}

// Deps são as dependências do Handler. Clock e NewID são opcionais.
type Deps struct {
	Repo     *repository.Repository
	Authz    *authz.Resolver
	Identity SignUpper
	Notifier *notify.Notifier
	Clock    func() time.Time
	NewID    func() string
}

type Handler struct {
	repo     *repository.Repository
	authz    *authz.Resolver
	identity SignUpper
	notifier *notify.Notifier
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

func New(d Deps) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	h := &Handler{
		repo:     d.Repo,
		authz:    d.Authz,
		identity: d.Identity,
		notifier: d.Notifier,
		validate: v,
		now:      d.Clock,
		newID:    d.NewID,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = NewID
	}
	return h
}

// NewID gera um UUIDv7: único e ordenado pelo instante de criação.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Request é a entrada de um comando, independente do transporte.
type Request struct {
	Caller authz.Caller
	Params map[string]string
	Body   []byte
}

func (r Request) Param(name string) string {
	return r.Params[name]
}

// Message é o corpo das respostas que não devolvem um recurso.
type Message struct {
	Message string `json:"message"`
}

func (h *Handler) timestamp() string {
	return models.Timestamp(h.now())
}

// decode lê o corpo JSON e valida as tags da struct. Corpo vazio equivale a {}.
func (h *Handler) decode(req Request, dst any) error {
	if len(strings.TrimSpace(string(req.Body))) > 0 {
		if err := json.Unmarshal(req.Body, dst); err != nil {
			return apperr.Validation("invalid JSON body")
		}
	}
	return h.check(dst)
}

func (h *Handler) check(dst any) error {
	err := h.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request")
	}

	var missing, invalid []string
	for _, e := range verrs {
		if strings.HasPrefix(e.Tag(), "required") {
			missing = append(missing, e.Field())
		} else {
			invalid = append(invalid, e.Field())
		}
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	return apperr.Validation("invalid value for field(s): %s", strings.Join(invalid, ", "))
}

// authorize devolve 403 quando a decisão é negativa.
func (h *Handler) authorize(ctx context.Context, req Request, action authz.Action, target authz.Target) (authz.Decision, error) {
	d, err := h.authz.Authorize(ctx, req.Caller, action, target)
	if err != nil {
		return d, storeErr(err, "membership")
	}
	if !d.Allowed {
		return d, apperr.Forbidden(string(action))
	}
	return d, nil
}

// storeErr traduz os erros do repositório para a taxonomia da API.
func storeErr(err error, resource string) error {
	var (
		ae *apperr.CollaboratorError
		ve *apperr.ValidationError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dyndb.ErrNotFound):
		return apperr.NotFound(resource)
	case errors.Is(err, keyspace.ErrInvalidID):
		return apperr.Validation("invalid %s identifier", resource)
	case errors.As(err, &ae), errors.As(err, &ve):
		return err
	}
	return apperr.Internal(err)
}

// conditional traduz ErrConditionFailed para o erro informado.
func conditional(err error, onFailed error, resource string) error {
	if errors.Is(err, dyndb.ErrConditionFailed) {
		return onFailed
	}
	return storeErr(err, resource)
}

// Atributos que nunca são alterados por um update vindo do chamador.
var denylist = map[string]struct{}{
	"pk": {}, "sk": {}, "pk1": {}, "sk1": {}, "type": {},
	"userId": {}, "orgId": {}, "workspaceId": {}, "formId": {}, "fieldId": {},
	"createdAt": {}, "createdBy": {}, "updatedAt": {},
	"memberCount": {}, "formCount": {}, "workspaceCount": {}, "responseCount": {},
	"emailVerified": {}, "lastFieldId": {}, "order": {},
}

// fieldRule valida e normaliza o valor de um campo atualizável.
type fieldRule func(name string, v any) (any, error)

func nameField(name string, v any) (any, error) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil, apperr.Validation("field %s must be a non-empty string", name)
	}
	return models.TruncateName(strings.TrimSpace(s)), nil
}

func textField(name string, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, apperr.Validation("field %s must be a string", name)
	}
	return s, nil
}

func boolField(name string, v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, apperr.Validation("field %s must be a boolean", name)
	}
	return b, nil
}

// buildUpdate remove os atributos proibidos, mantém só os permitidos e
// carimba updatedAt. Sem nenhum campo restante, o update é rejeitado.
func (h *Handler) buildUpdate(req Request, allow map[string]fieldRule) (dyndb.Update, error) {
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return dyndb.Update{}, apperr.Validation("invalid JSON body")
	}

	upd := dyndb.NewUpdate()
	n := 0
	for _, key := range slices.Sorted(maps.Keys(body)) {
		if _, denied := denylist[key]; denied {
			continue
		}
		rule, ok := allow[key]
		if !ok {
			continue
		}
		v, err := rule(key, body[key])
		if err != nil {
			return dyndb.Update{}, err
		}
		upd = upd.Set(key, v)
		n++
	}
	if n == 0 {
		return dyndb.Update{}, apperr.Validation("no updatable fields in request; allowed: %s",
			strings.Join(slices.Sorted(maps.Keys(allow)), ", "))
	}
	return upd.Set("updatedAt", h.timestamp()), nil
}

// requireParams garante que os parâmetros de caminho existem.
func requireParams(req Request, names ...string) error {
	var missing []string
	for _, n := range names {
		if req.Param(n) == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	return nil
}

// callerProfile lê o perfil do chamador; sem linha de usuário, usa as claims.
func (h *Handler) callerProfile(ctx context.Context, caller authz.Caller) (models.Profile, error) {
	u, err := h.repo.GetUser(ctx, caller.UserID)
	if errors.Is(err, dyndb.ErrNotFound) {
		return models.Profile{UserID: caller.UserID, Email: caller.Email}, nil
	}
	if err != nil {
		return models.Profile{}, storeErr(err, "user")
	}
	return models.Profile{UserID: u.UserID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}, nil
}
