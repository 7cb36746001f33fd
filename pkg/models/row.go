// Package models descreve as entidades persistidas na tabela única. Cada
// struct embute Row, que carrega as chaves e o discriminador de tipo.
package models

import (
	"time"
	"unicode/utf8"

	"github.com/raywall/form-builder-service/keyspace"
)

// MaxNameLength é o limite de caracteres para nomes de workspace e formulário.
const MaxNameLength = 60

// Row são os atributos de controle comuns a toda linha. Nunca vão para o JSON
// devolvido ao chamador.
type Row struct {
	PK   string        `dynamodbav:"pk" json:"-"`
	SK   string        `dynamodbav:"sk" json:"-"`
	PK1  string        `dynamodbav:"pk1,omitempty" json:"-"`
	SK1  string        `dynamodbav:"sk1,omitempty" json:"-"`
	Type keyspace.Kind `dynamodbav:"type" json:"-"`
}

// Key devolve a chave primária da linha.
func (r Row) Key() keyspace.Key {
	return keyspace.Key{PK: r.PK, SK: r.SK}
}

func newRow(kind keyspace.Kind, ref keyspace.Ref) (Row, error) {
	key, err := keyspace.Encode(kind, ref)
	if err != nil {
		return Row{}, err
	}
	row := Row{PK: key.PK, SK: key.SK, Type: kind}

	idx, ok, err := keyspace.Index(kind, ref)
	if err != nil {
		return Row{}, err
	}
	if ok {
		row.PK1, row.SK1 = idx.PK1, idx.SK1
	}
	return row, nil
}

// Timestamp formata o instante em ISO-8601 UTC com milissegundos.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// TruncateName corta o nome em MaxNameLength caracteres.
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	return string([]rune(name)[:MaxNameLength])
}
