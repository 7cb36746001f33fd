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
//
// Package envloader preenche structs de configuração a partir de variáveis
// de ambiente. É a primeira etapa de config.Load: as tags `env`,
// `envDefault` e `envRequired` de config.Config trazem os valores crus
// (tabela, índice, limites do store, DLQ, Redis, logs, métricas) e a
// validação fica com o pacote config.
//
// Tipos aceitos: string, int, uint, bool, float, time.Duration e []string
// separado por vírgulas, além de structs aninhadas e ponteiros para struct.
// Campos sem a tag `env` são ignorados, mas structs aninhadas são
// percorridas mesmo sem tag.
//
// LoadWith recebe uma LookupFunc no lugar de os.LookupEnv; os testes e o
// app local usam isso para injetar um ambiente em mapa:
//
//	type StoreConf struct {
//		Table    string `env:"FORM_BUILDER_DATA_TABLE" envRequired:"true"`
//		MaxPages int    `env:"STORE_MAX_PAGES" envDefault:"100"`
//	}
//
//	var cfg StoreConf
//	err := envloader.LoadWith(&cfg, func(k string) (string, bool) {
//		v, ok := vars[k]
//		return v, ok
//	})
//
// Os erros são tipados (*InvalidConfigError, *FieldError, *MissingError,
// *UnsupportedTypeError) e podem ser inspecionados com errors.As.
package envloader
