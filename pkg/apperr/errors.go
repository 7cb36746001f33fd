// Package apperr define a taxonomia de erros devolvida pelos handlers e a
// tradução de cada tipo para status HTTP e mensagem pública.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	msgForbidden = "not authorized"
	msgInternal  = "internal server error"
)

// ValidationError representa campo obrigatório ausente ou malformado (400).
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation cria um ValidationError com mensagem livre.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// MissingFields nomeia os campos obrigatórios ausentes.
func MissingFields(fields ...string) error {
	return &ValidationError{
		Message: fmt.Sprintf("missing required field(s): %s", strings.Join(fields, ", ")),
		Fields:  fields,
	}
}

// AuthorizationError indica papel ou vínculo insuficiente (403). A mensagem
// pública é sempre genérica.
type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string {
	if e.Action == "" {
		return msgForbidden
	}
	return fmt.Sprintf("%s: %s", msgForbidden, e.Action)
}

func Forbidden(action string) error {
	return &AuthorizationError{Action: action}
}

// NotFoundError indica entidade ausente (404).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ConflictError é a perda de uma pré-condição (campo único duplicado, dono
// desatualizado). O status é 409, ou 403 quando Forbidden.
type ConflictError struct {
	Message   string
	Forbidden bool
}

func (e *ConflictError) Error() string {
	return e.Message
}

func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenConflict é um ConflictError reportado como 403.
func ForbiddenConflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...), Forbidden: true}
}

// CollaboratorError é a falha de um colaborador externo (provedor de
// identidade, tabela). Os detalhes ficam em Err e só vão para o log; o
// chamador recebe Public, ou uma mensagem opaca.
type CollaboratorError struct {
	Collaborator string
	StatusCode   int
	Code         string
	Public       string
	Err          error
}

func (e *CollaboratorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Internal embrulha uma falha de transporte da tabela (500, mensagem opaca).
func Internal(err error) error {
	return &CollaboratorError{Collaborator: "store", Err: err}
}

// Status traduz o erro para o status HTTP.
func Status(err error) int {
	var (
		validation   *ValidationError
		authz        *AuthorizationError
		notFound     *NotFoundError
		conflict     *ConflictError
		collaborator *CollaboratorError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &authz):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		if conflict.Forbidden {
			return http.StatusForbidden
		}
		return http.StatusConflict
	case errors.As(err, &collaborator):
		if collaborator.StatusCode >= 400 && collaborator.StatusCode < 600 {
			return collaborator.StatusCode
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage devolve a mensagem segura para o corpo da resposta.
func PublicMessage(err error) string {
	var (
		validation   *ValidationError
		authz        *AuthorizationError
		notFound     *NotFoundError
		conflict     *ConflictError
		collaborator *CollaboratorError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &authz):
		return msgForbidden
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &conflict):
		return conflict.Message
	case errors.As(err, &collaborator) && collaborator.Public != "":
		return collaborator.Public
	}
	return msgInternal
}
