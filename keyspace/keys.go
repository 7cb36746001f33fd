// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package keyspace

import (
	"errors"
	"fmt"
	"strings"
)

// Kind é o discriminador gravado no atributo "type" de cada linha.
type Kind string

const (
	KindUser            Kind = "USER"
	KindOrganization    Kind = "ORG"
	KindOrgMember       Kind = "ORG_MEM"
	KindInvitation      Kind = "ORG_INV"
	KindWorkspace       Kind = "WS"
	KindWorkspaceMember Kind = "WS_MEM"
	KindForm            Kind = "FORM"
	KindField           Kind = "FIELD"
	KindResponse        Kind = "RESP"
)

// Nomes dos atributos de chave da tabela e do índice GSI1.
const (
	AttrPK   = "pk"
	AttrSK   = "sk"
	AttrPK1  = "pk1"
	AttrSK1  = "sk1"
	AttrType = "type"
)

// Prefixos dos componentes de chave.
const (
	PrefixUser       = "u#"
	PrefixOrg        = "o#"
	PrefixWorkspace  = "w#"
	PrefixForm       = "f#"
	PrefixField      = "d#"
	PrefixResponse   = "r#"
	PrefixInvitation = "i#"
	PrefixEmail      = "e#"

	// RootSK identifica a linha raiz de uma entidade dentro da sua partição.
	RootSK = "A"

	separator = "#"
)

var (
	// ErrInvalidID é retornado para identificadores vazios ou que contêm o separador.
	ErrInvalidID = errors.New("keyspace: invalid identifier")
	// ErrUnknownKey é retornado quando uma chave não corresponde a nenhum tipo conhecido.
	ErrUnknownKey = errors.New("keyspace: unknown key shape")
)

// Key é a chave primária (pk, sk) de uma linha.
type Key struct {
	PK string `dynamodbav:"pk" json:"pk"`
	SK string `dynamodbav:"sk" json:"sk"`
}

// IndexKey é a projeção de uma linha no índice GSI1.
type IndexKey struct {
	PK1 string `dynamodbav:"pk1" json:"pk1"`
	SK1 string `dynamodbav:"sk1" json:"sk1"`
}

// Ref reúne os identificadores que localizam uma entidade. Cada tipo usa
// apenas os campos que compõem a sua chave.
type Ref struct {
	UserID      string
	OrgID       string
	WorkspaceID string
	FormID      string
	FieldID     string
	ResponseID  string
	Email       string
}

// NormalizeEmail aplica a forma canônica usada nas chaves.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkID(name, id string) error {
	if id == "" || strings.Contains(id, separator) {
		return fmt.Errorf("%w: %s %q", ErrInvalidID, name, id)
	}
	return nil
}

func checkEmail(email string) error {
	if NormalizeEmail(email) == "" {
		return fmt.Errorf("%w: empty email", ErrInvalidID)
	}
	return nil
}

// Encode mapeia (tipo, identificadores) para a chave primária.
func Encode(kind Kind, ref Ref) (Key, error) {
	switch kind {
	case KindUser:
		if err := checkID("userId", ref.UserID); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixUser + ref.UserID, SK: RootSK}, nil

	case KindOrganization:
		if err := checkID("orgId", ref.OrgID); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixOrg + ref.OrgID, SK: RootSK}, nil

	case KindOrgMember:
		if err := errors.Join(checkID("orgId", ref.OrgID), checkID("userId", ref.UserID)); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixOrg + ref.OrgID, SK: PrefixUser + ref.UserID}, nil

	case KindInvitation:
		if err := errors.Join(checkID("orgId", ref.OrgID), checkEmail(ref.Email)); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixOrg + ref.OrgID, SK: PrefixInvitation + NormalizeEmail(ref.Email)}, nil

	case KindWorkspace:
		if err := errors.Join(checkID("orgId", ref.OrgID), checkID("workspaceId", ref.WorkspaceID)); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixOrg + ref.OrgID, SK: PrefixWorkspace + ref.WorkspaceID}, nil

	case KindWorkspaceMember:
		if err := errors.Join(checkID("workspaceId", ref.WorkspaceID), checkID("userId", ref.UserID)); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixWorkspace + ref.WorkspaceID, SK: PrefixUser + ref.UserID}, nil

	case KindForm:
		if err := errors.Join(checkID("workspaceId", ref.WorkspaceID), checkID("formId", ref.FormID)); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixWorkspace + ref.WorkspaceID, SK: PrefixForm + ref.FormID}, nil

	case KindField:
		if err := errors.Join(checkID("formId", ref.FormID), checkID("fieldId", ref.FieldID)); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixForm + ref.FormID, SK: PrefixField + ref.FieldID}, nil

	case KindResponse:
		if err := errors.Join(checkID("formId", ref.FormID), checkID("responseId", ref.ResponseID)); err != nil {
			return Key{}, err
		}
		return Key{PK: PrefixForm + ref.FormID, SK: PrefixResponse + ref.ResponseID}, nil
	}
	return Key{}, fmt.Errorf("keyspace: unsupported kind %q", kind)
}

// Index devolve a projeção GSI1 para os tipos que participam do índice.
// O segundo retorno é false para tipos fora do índice.
func Index(kind Kind, ref Ref) (IndexKey, bool, error) {
	switch kind {
	case KindUser:
		if err := errors.Join(checkID("userId", ref.UserID), checkEmail(ref.Email)); err != nil {
			return IndexKey{}, false, err
		}
		return IndexKey{PK1: PrefixEmail + NormalizeEmail(ref.Email), SK1: PrefixUser + ref.UserID}, true, nil

	case KindOrgMember:
		if err := errors.Join(checkID("orgId", ref.OrgID), checkID("userId", ref.UserID)); err != nil {
			return IndexKey{}, false, err
		}
		return IndexKey{PK1: PrefixUser + ref.UserID, SK1: PrefixOrg + ref.OrgID}, true, nil

	case KindInvitation:
		if err := errors.Join(checkID("orgId", ref.OrgID), checkEmail(ref.Email)); err != nil {
			return IndexKey{}, false, err
		}
		return IndexKey{PK1: PrefixEmail + NormalizeEmail(ref.Email), SK1: PrefixInvitation + ref.OrgID}, true, nil

	case KindWorkspaceMember:
		if err := errors.Join(checkID("orgId", ref.OrgID), checkID("workspaceId", ref.WorkspaceID), checkID("userId", ref.UserID)); err != nil {
			return IndexKey{}, false, err
		}
		return IndexKey{
			PK1: PrefixUser + ref.UserID,
			SK1: PrefixOrg + ref.OrgID + separator + PrefixWorkspace + ref.WorkspaceID,
		}, true, nil
	}
	return IndexKey{}, false, nil
}

// Decode reverte Encode.
func Decode(key Key) (Kind, Ref, error) {
	pkPrefix, pkID := split(key.PK)
	if pkID == "" {
		return "", Ref{}, fmt.Errorf("%w: %s/%s", ErrUnknownKey, key.PK, key.SK)
	}

	if key.SK == RootSK {
		switch pkPrefix {
		case PrefixUser:
			return KindUser, Ref{UserID: pkID}, nil
		case PrefixOrg:
			return KindOrganization, Ref{OrgID: pkID}, nil
		}
		return "", Ref{}, fmt.Errorf("%w: %s/%s", ErrUnknownKey, key.PK, key.SK)
	}

	skPrefix, skID := split(key.SK)
	if skID == "" {
		return "", Ref{}, fmt.Errorf("%w: %s/%s", ErrUnknownKey, key.PK, key.SK)
	}

	switch pkPrefix + skPrefix {
	case PrefixOrg + PrefixUser:
		return KindOrgMember, Ref{OrgID: pkID, UserID: skID}, nil
	case PrefixOrg + PrefixInvitation:
		return KindInvitation, Ref{OrgID: pkID, Email: skID}, nil
	case PrefixOrg + PrefixWorkspace:
		return KindWorkspace, Ref{OrgID: pkID, WorkspaceID: skID}, nil
	case PrefixWorkspace + PrefixUser:
		return KindWorkspaceMember, Ref{WorkspaceID: pkID, UserID: skID}, nil
	case PrefixWorkspace + PrefixForm:
		return KindForm, Ref{WorkspaceID: pkID, FormID: skID}, nil
	case PrefixForm + PrefixField:
		return KindField, Ref{FormID: pkID, FieldID: skID}, nil
	case PrefixForm + PrefixResponse:
		return KindResponse, Ref{FormID: pkID, ResponseID: skID}, nil
	}
	return "", Ref{}, fmt.Errorf("%w: %s/%s", ErrUnknownKey, key.PK, key.SK)
}

// split separa "x#resto" em ("x#", "resto").
func split(v string) (string, string) {
	i := strings.Index(v, separator)
	if i < 0 {
		return "", ""
	}
	return v[:i+1], v[i+1:]
}
