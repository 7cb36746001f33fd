package repository

import (
	"context"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/models"
)

func (r *Repository) GetForm(ctx context.Context, workspaceID, formID string) (*models.Form, error) {
	return get(ctx, r.forms, keyspace.KindForm, keyspace.Ref{WorkspaceID: workspaceID, FormID: formID})
}

func (r *Repository) CreateForm(ctx context.Context, f models.Form) error {
	return r.forms.Put(ctx, f, dyndb.IfNotExists())
}

func (r *Repository) UpdateForm(ctx context.Context, workspaceID, formID string, upd dyndb.Update) error {
	return update(ctx, r.rows, keyspace.KindForm, keyspace.Ref{WorkspaceID: workspaceID, FormID: formID}, upd)
}

func (r *Repository) DeleteForm(ctx context.Context, workspaceID, formID string) error {
	return remove(ctx, r.rows, keyspace.KindForm, keyspace.Ref{WorkspaceID: workspaceID, FormID: formID}, dyndb.IfExists())
}

func (r *Repository) ListForms(ctx context.Context, workspaceID string) ([]models.Form, error) {
	scope, err := keyspace.WorkspaceForms(workspaceID)
	if err != nil {
		return nil, err
	}
	return scoped(r.forms, r.index, scope).ScanForward(false).Collect(ctx)
}

func (r *Repository) ListFields(ctx context.Context, formID string) ([]models.Field, error) {
	scope, err := keyspace.FormFields(formID)
	return list(ctx, r.fields, r.index, scope, err)
}

// PutFields grava os campos em lote (inclusão ou substituição).
func (r *Repository) PutFields(ctx context.Context, fields []models.Field) error {
	if len(fields) == 0 {
		return nil
	}
	return r.fields.BatchWrite(ctx, fields, nil)
}

func (r *Repository) DeleteFields(ctx context.Context, formID string, fieldIDs []string) error {
	if len(fieldIDs) == 0 {
		return nil
	}
	deletes := make([][2]any, 0, len(fieldIDs))
	for _, id := range fieldIDs {
		key, err := keyspace.Encode(keyspace.KindField, keyspace.Ref{FormID: formID, FieldID: id})
		if err != nil {
			return err
		}
		deletes = append(deletes, [2]any{key.PK, key.SK})
	}
	return r.fields.BatchWrite(ctx, nil, deletes)
}

func (r *Repository) CreateResponse(ctx context.Context, resp models.Response) error {
	return r.responses.Put(ctx, resp, dyndb.IfNotExists())
}
