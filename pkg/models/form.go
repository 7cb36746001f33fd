package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/raywall/form-builder-service/keyspace"
)

// Form guarda a ordem dos campos como ids separados por espaço.
type Form struct {
	Row
	OrgID         string `dynamodbav:"orgId" json:"orgId"`
	WorkspaceID   string `dynamodbav:"workspaceId" json:"workspaceId"`
	FormID        string `dynamodbav:"formId" json:"formId"`
	Name          string `dynamodbav:"name" json:"name"`
	Description   string `dynamodbav:"description" json:"description"`
	CreatedBy     string `dynamodbav:"createdBy" json:"createdBy"`
	Order         string `dynamodbav:"order" json:"order"`
	LastFieldID   int64  `dynamodbav:"lastFieldId" json:"lastFieldId"`
	ResponseCount int64  `dynamodbav:"responseCount" json:"responseCount"`
	CreatedAt     string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt     string `dynamodbav:"updatedAt" json:"updatedAt"`
}

func NewForm(orgID, workspaceID, formID, name, description, createdBy, now string) (Form, error) {
	row, err := newRow(keyspace.KindForm, keyspace.Ref{WorkspaceID: workspaceID, FormID: formID})
	if err != nil {
		return Form{}, err
	}
	return Form{
		Row:         row,
		OrgID:       orgID,
		WorkspaceID: workspaceID,
		FormID:      formID,
		Name:        TruncateName(name),
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// FieldOrder devolve a ordem dos campos como lista.
func (f Form) FieldOrder() []string {
	return strings.Fields(f.Order)
}

// JoinOrder serializa a ordem no formato gravado em Form.Order.
func JoinOrder(ids []string) string {
	return strings.Join(ids, " ")
}

// Field é um campo de formulário. Além do id, as propriedades são livres e
// aparecem no JSON no mesmo nível de fieldId.
type Field struct {
	Row
	FormID  string         `dynamodbav:"formId"`
	FieldID string         `dynamodbav:"fieldId"`
	Props   map[string]any `dynamodbav:"props"`
}

func NewField(formID, fieldID string, props map[string]any) (Field, error) {
	row, err := newRow(keyspace.KindField, keyspace.Ref{FormID: formID, FieldID: fieldID})
	if err != nil {
		return Field{}, err
	}
	return Field{Row: row, FormID: formID, FieldID: fieldID, Props: props}, nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Props)+2)
	for k, v := range f.Props {
		out[k] = v
	}
	out["fieldId"] = f.FieldID
	out["formId"] = f.FormID
	return json.Marshal(out)
}

// UnmarshalJSON aceita fieldId como string ou número.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := fieldIDString(raw["fieldId"])
	if err != nil {
		return err
	}
	f.FieldID = id
	if formID, ok := raw["formId"].(string); ok {
		f.FormID = formID
	}

	delete(raw, "fieldId")
	delete(raw, "formId")
	f.Props = raw
	return nil
}

func fieldIDString(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("fieldId com tipo inválido %T", v)
}

// Response é uma submissão de formulário.
type Response struct {
	Row
	OrgID       string         `dynamodbav:"orgId" json:"orgId"`
	WorkspaceID string         `dynamodbav:"workspaceId" json:"workspaceId"`
	FormID      string         `dynamodbav:"formId" json:"formId"`
	ResponseID  string         `dynamodbav:"responseId" json:"responseId"`
	Answers     map[string]any `dynamodbav:"answers" json:"answers"`
	CreatedAt   string         `dynamodbav:"createdAt" json:"createdAt"`
}

func NewResponse(orgID, workspaceID, formID, responseID string, answers map[string]any, now string) (Response, error) {
	row, err := newRow(keyspace.KindResponse, keyspace.Ref{FormID: formID, ResponseID: responseID})
	if err != nil {
		return Response{}, err
	}
	return Response{
		Row:         row,
		OrgID:       orgID,
		WorkspaceID: workspaceID,
		FormID:      formID,
		ResponseID:  responseID,
		Answers:     answers,
		CreatedAt:   now,
	}, nil
}
