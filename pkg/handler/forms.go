package handler

import (
	"context"

	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/models"
)

var formFields = map[string]fieldRule{
	"name":        nameField,
	"description": textField,
}

type formBody struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// FormCreated é a resposta da criação de formulário.
type FormCreated struct {
	Message string `json:"message"`
	FormID  string `json:"formId"`
}

// formRequest autoriza a ação e confirma que o workspace pertence à
// organização do caminho.
func (h *Handler) formRequest(ctx context.Context, req Request, action authz.Action, params ...string) (authz.Target, error) {
	if err := requireParams(req, append([]string{"orgId", "workspaceId"}, params...)...); err != nil {
		return authz.Target{}, err
	}
	target := workspaceTarget(req)
	if _, err := h.authorize(ctx, req, action, target); err != nil {
		return target, err
	}
	if _, err := h.requireWorkspace(ctx, target.OrgID, target.WorkspaceID); err != nil {
		return target, err
	}
	return target, nil
}

func (h *Handler) CreateForm(ctx context.Context, req Request) (any, error) {
	target, err := h.formRequest(ctx, req, authz.ActionCreateForm)
	if err != nil {
		return nil, err
	}

	var body formBody
	if err := h.decode(req, &body); err != nil {
		return nil, err
	}

	form, err := models.NewForm(target.OrgID, target.WorkspaceID, h.newID(), body.Name, body.Description, req.Caller.UserID, h.timestamp())
	if err != nil {
		return nil, storeErr(err, "form")
	}
	if err := h.repo.CreateForm(ctx, form); err != nil {
		return nil, conditional(err, apperr.Conflict("form already exists"), "form")
	}
	return &FormCreated{Message: "form created successfully", FormID: form.FormID}, nil
}

// ListForms devolve os formulários do workspace, do mais novo para o mais antigo.
func (h *Handler) ListForms(ctx context.Context, req Request) (any, error) {
	target, err := h.formRequest(ctx, req, authz.ActionReadForms)
	if err != nil {
		return nil, err
	}

	forms, err := h.repo.ListForms(ctx, target.WorkspaceID)
	if err != nil {
		return nil, storeErr(err, "forms")
	}
	return forms, nil
}

func (h *Handler) GetForm(ctx context.Context, req Request) (any, error) {
	target, err := h.formRequest(ctx, req, authz.ActionReadForms, "formId")
	if err != nil {
		return nil, err
	}

	form, err := h.repo.GetForm(ctx, target.WorkspaceID, req.Param("formId"))
	if err != nil {
		return nil, storeErr(err, "form")
	}
	return form, nil
}

func (h *Handler) UpdateForm(ctx context.Context, req Request) (any, error) {
	target, err := h.formRequest(ctx, req, authz.ActionUpdateForm, "formId")
	if err != nil {
		return nil, err
	}

	upd, err := h.buildUpdate(req, formFields)
	if err != nil {
		return nil, err
	}
	if err := h.repo.UpdateForm(ctx, target.WorkspaceID, req.Param("formId"), upd); err != nil {
		return nil, conditional(err, apperr.NotFound("form"), "form")
	}
	return &Message{Message: "form updated successfully"}, nil
}

// DeleteForm remove o formulário; campos e respostas saem em cascata pelo
// reator.
func (h *Handler) DeleteForm(ctx context.Context, req Request) (any, error) {
	target, err := h.formRequest(ctx, req, authz.ActionDeleteForm, "formId")
	if err != nil {
		return nil, err
	}

	if err := h.repo.DeleteForm(ctx, target.WorkspaceID, req.Param("formId")); err != nil {
		return nil, conditional(err, apperr.NotFound("form"), "form")
	}
	return &Message{Message: "form deleted successfully"}, nil
}
