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
package envloader

import (
	"fmt"
	"reflect"
)

// InvalidConfigError indica que o destino de Load não é um ponteiro para
// struct.
type InvalidConfigError struct {
	Value reflect.Type
}

func (e *InvalidConfigError) Error() string {
	if e.Value.Kind() != reflect.Ptr {
		return fmt.Sprintf("envloader: destino precisa ser ponteiro para struct, recebido %s", e.Value.Kind())
	}
	return fmt.Sprintf("envloader: destino precisa ser ponteiro para struct, recebido ponteiro para %s", e.Value.Elem().Kind())
}

// FieldError é a falha ao converter o valor de uma variável para o tipo do
// campo. Err guarda a causa (conversão ou tipo sem suporte).
type FieldError struct {
	FieldName string
	EnvVar    string
	Value     string
	Err       error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("envloader: valor %q de %s inválido para o campo %s: %v",
		e.Value, e.EnvVar, e.FieldName, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError indica um tipo de campo que o loader não converte.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("envloader: tipo %s não suportado", e.Type)
}

// MissingError indica um campo com `envRequired:"true"` sem valor na
// variável e sem `envDefault`.
type MissingError struct {
	FieldName string
	EnvVar    string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("envloader: variável obrigatória %s ausente (campo %s)", e.EnvVar, e.FieldName)
}
