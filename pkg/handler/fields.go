package handler

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/models"
)

// Ações aceitas por UpdateFormFields.
const (
	ActionAddFields     = "ADD_FIELDS"
	ActionDeleteFields  = "DELETE_FIELDS"
	ActionUpdateFields  = "UPDATE_FIELDS"
	ActionReorderFields = "REORDER_FIELDS"
)

type fieldsBody struct {
	Action      string         `json:"action" validate:"required,oneof=ADD_FIELDS DELETE_FIELDS UPDATE_FIELDS REORDER_FIELDS"`
	Order       []string       `json:"order"`
	Fields      []models.Field `json:"fields"`
	LastFieldID int64          `json:"lastFieldId"`
	FieldIDs    []string       `json:"fieldIds"`
}

// FormFields é a resposta de GetFormFields.
type FormFields struct {
	Fields      []models.Field `json:"fields"`
	LastFieldID int64          `json:"lastFieldId"`
	Order       []string       `json:"order"`
	FormID      string         `json:"formId"`
	WorkspaceID string         `json:"workspaceId"`
}

// SortFields ordena os campos pela lista de ordem do formulário. Ids fora da
// lista vão para o fim, mantendo a ordem relativa.
func SortFields(fields []models.Field, order []string) {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		if _, seen := pos[id]; !seen {
			pos[id] = i
		}
	}
	rank := func(f models.Field) int {
		if i, ok := pos[f.FieldID]; ok {
			return i
		}
		return len(order)
	}
	slices.SortStableFunc(fields, func(a, b models.Field) int {
		return rank(a) - rank(b)
	})
}

func (h *Handler) GetFormFields(ctx context.Context, req Request) (any, error) {
	target, err := h.formRequest(ctx, req, authz.ActionReadForms, "formId")
	if err != nil {
		return nil, err
	}
	formID := req.Param("formId")

	form, err := h.repo.GetForm(ctx, target.WorkspaceID, formID)
	if err != nil {
		return nil, storeErr(err, "form")
	}
	fields, err := h.repo.ListFields(ctx, formID)
	if err != nil {
		return nil, storeErr(err, "form fields")
	}

	order := form.FieldOrder()
	SortFields(fields, order)
	if fields == nil {
		fields = []models.Field{}
	}
	if order == nil {
		order = []string{}
	}
	return &FormFields{
		Fields:      fields,
		LastFieldID: form.LastFieldID,
		Order:       order,
		FormID:      formID,
		WorkspaceID: target.WorkspaceID,
	}, nil
}

// UpdateFormFields aplica uma das ações sobre os campos e, em seguida,
// atualiza a ordem e o último id no formulário.
func (h *Handler) UpdateFormFields(ctx context.Context, req Request) (any, error) {
	target, err := h.formRequest(ctx, req, authz.ActionUpdateFormFields, "formId")
	if err != nil {
		return nil, err
	}
	formID := req.Param("formId")

	var body fieldsBody
	if err := h.decode(req, &body); err != nil {
		return nil, err
	}
	if err := validateFields(body); err != nil {
		return nil, err
	}
	if _, err := h.repo.GetForm(ctx, target.WorkspaceID, formID); err != nil {
		return nil, storeErr(err, "form")
	}

	upd := dyndb.NewUpdate()
	var verb string
	switch body.Action {
	case ActionAddFields:
		if err := h.putFields(ctx, formID, body.Fields); err != nil {
			return nil, err
		}
		upd = upd.Set("lastFieldId", body.LastFieldID).Set("order", models.JoinOrder(body.Order))
		verb = "added"

	case ActionDeleteFields:
		if err := h.repo.DeleteFields(ctx, formID, body.FieldIDs); err != nil {
			return nil, storeErr(err, "form fields")
		}
		upd = upd.Set("order", models.JoinOrder(body.Order))
		verb = "deleted"

	case ActionUpdateFields:
		if err := h.putFields(ctx, formID, body.Fields); err != nil {
			return nil, err
		}
		verb = "updated"

	case ActionReorderFields:
		upd = upd.Set("order", models.JoinOrder(body.Order))
		verb = "reordered"
	}

	upd = upd.Set("updatedAt", h.timestamp())
	if err := h.repo.UpdateForm(ctx, target.WorkspaceID, formID, upd); err != nil {
		return nil, conditional(err, apperr.NotFound("form"), "form")
	}
	return &Message{Message: "form fields " + verb + " successfully"}, nil
}

func validateFields(body fieldsBody) error {
	for _, id := range slices.Concat(body.Order, body.FieldIDs) {
		if id == "" || strings.ContainsFunc(id, unicode.IsSpace) {
			return apperr.Validation("invalid field identifier %q", id)
		}
	}

	switch body.Action {
	case ActionAddFields:
		if body.LastFieldID <= 0 || len(body.Order) == 0 || len(body.Fields) == 0 {
			return apperr.Validation("lastFieldId (>0), order (with at least 1 element) and fields (with at least 1 element) are required")
		}
	case ActionDeleteFields:
		if body.Order == nil || len(body.FieldIDs) == 0 {
			return apperr.Validation("order and fieldIds (with at least 1 element) are required")
		}
	case ActionUpdateFields:
		if len(body.Fields) == 0 {
			return apperr.Validation("fields (with at least 1 element) are required")
		}
	case ActionReorderFields:
		if body.Order == nil {
			return apperr.Validation("order is required")
		}
	}
	return nil
}

func (h *Handler) putFields(ctx context.Context, formID string, in []models.Field) error {
	fields := make([]models.Field, 0, len(in))
	for _, f := range in {
		field, err := models.NewField(formID, f.FieldID, f.Props)
		if err != nil {
			return storeErr(err, "field")
		}
		fields = append(fields, field)
	}
	if err := h.repo.PutFields(ctx, fields); err != nil {
		return storeErr(err, "form fields")
	}
	return nil
}
