package dyndb

import (
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

type condOp int

const (
	condExists condOp = iota + 1
	condNotExists
	condEqual
	condAnd
)

// Condition é o predicado de uma escrita condicional ou de um filtro.
type Condition struct {
	op    condOp
	name  string
	value any
	terms []Condition
}

func AttributeExists(name string) Condition {
	return Condition{op: condExists, name: name}
}

func AttributeNotExists(name string) Condition {
	return Condition{op: condNotExists, name: name}
}

func Equal(name string, value any) Condition {
	return Condition{op: condEqual, name: name, value: value}
}

// And combina dois predicados.
func (c Condition) And(other Condition) Condition {
	return Condition{op: condAnd, terms: []Condition{c, other}}
}

func (c Condition) builder() (expression.ConditionBuilder, error) {
	switch c.op {
	case condExists:
		return expression.AttributeExists(expression.Name(c.name)), nil
	case condNotExists:
		return expression.AttributeNotExists(expression.Name(c.name)), nil
	case condEqual:
		return expression.Equal(expression.Name(c.name), expression.Value(c.value)), nil
	case condAnd:
		left, err := c.terms[0].builder()
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		right, err := c.terms[1].builder()
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		return left.And(right), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("dyndb: empty condition")
}

type updateKind int

const (
	updateSet updateKind = iota + 1
	updateAdd
	updateRemove
)

type updateClause struct {
	kind  updateKind
	name  string
	value any
	delta int64
}

// Update acumula as cláusulas de uma atualização parcial. É imutável: cada
// método devolve uma nova cópia.
type Update struct {
	clauses []updateClause
}

func NewUpdate() Update {
	return Update{}
}

// Set grava o valor no atributo.
func (u Update) Set(name string, value any) Update {
	return u.with(updateClause{kind: updateSet, name: name, value: value})
}

// Add soma delta ao contador, assumindo 0 quando o atributo não existe.
// A aritmética é feita pelo servidor numa única escrita.
func (u Update) Add(name string, delta int64) Update {
	return u.with(updateClause{kind: updateAdd, name: name, delta: delta})
}

// Remove apaga o atributo.
func (u Update) Remove(name string) Update {
	return u.with(updateClause{kind: updateRemove, name: name})
}

func (u Update) IsEmpty() bool {
	return len(u.clauses) == 0
}

// Names devolve os atributos afetados, na ordem de inclusão.
func (u Update) Names() []string {
	names := make([]string, 0, len(u.clauses))
	for _, c := range u.clauses {
		names = append(names, c.name)
	}
	return names
}

func (u Update) with(c updateClause) Update {
	return Update{clauses: append(slices.Clone(u.clauses), c)}
}

func (u Update) builder() (expression.UpdateBuilder, error) {
	if u.IsEmpty() {
		return expression.UpdateBuilder{}, fmt.Errorf("dyndb: empty update")
	}

	var ub expression.UpdateBuilder
	for _, c := range u.clauses {
		name := expression.Name(c.name)
		switch c.kind {
		case updateSet:
			ub = ub.Set(name, expression.Value(c.value))
		case updateAdd:
			ub = ub.Set(name, expression.Plus(
				expression.IfNotExists(name, expression.Value(0)),
				expression.Value(c.delta),
			))
		case updateRemove:
			ub = ub.Remove(name)
		}
	}
	return ub, nil
}
