// Package repository dá acesso tipado às entidades da tabela única. As
// chaves vêm sempre do keyspace; nenhum chamador monta pk/sk à mão.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/models"
)

// DefaultIndex é o nome do índice secundário usado quando a tabela não
// declara nenhum.
const DefaultIndex = "GSI1"

// TableConfig descreve o esquema da tabela única e do seu índice.
func TableConfig(table, index string) dyndb.TableConfig {
	if index == "" {
		index = DefaultIndex
	}
	return dyndb.TableConfig{
		TableName: table,
		HashKey:   keyspace.AttrPK,
		SortKey:   keyspace.AttrSK,
		Indexes: []dyndb.GlobalSecondaryIndex{
			{Name: index, HashKey: keyspace.AttrPK1, SortKey: keyspace.AttrSK1},
		},
	}
}

type Repository struct {
	index string

	raw         dyndb.Store[any]
	rows        dyndb.Store[models.Row]
	users       dyndb.Store[models.User]
	orgs        dyndb.Store[models.Organization]
	orgMembers  dyndb.Store[models.OrgMember]
	invitations dyndb.Store[models.Invitation]
	workspaces  dyndb.Store[models.Workspace]
	wsMembers   dyndb.Store[models.WorkspaceMember]
	forms       dyndb.Store[models.Form]
	fields      dyndb.Store[models.Field]
	responses   dyndb.Store[models.Response]
}

func New(table dyndb.Table, opts ...dyndb.Option) *Repository {
	index := DefaultIndex
	if idx := table.Config().Indexes; len(idx) > 0 {
		index = idx[0].Name
	}
	return &Repository{
		index:       index,
		raw:         dyndb.New[any](table, opts...),
		rows:        dyndb.New[models.Row](table, opts...),
		users:       dyndb.New[models.User](table, opts...),
		orgs:        dyndb.New[models.Organization](table, opts...),
		orgMembers:  dyndb.New[models.OrgMember](table, opts...),
		invitations: dyndb.New[models.Invitation](table, opts...),
		workspaces:  dyndb.New[models.Workspace](table, opts...),
		wsMembers:   dyndb.New[models.WorkspaceMember](table, opts...),
		forms:       dyndb.New[models.Form](table, opts...),
		fields:      dyndb.New[models.Field](table, opts...),
		responses:   dyndb.New[models.Response](table, opts...),
	}
}

func get[T any](ctx context.Context, s dyndb.Store[T], kind keyspace.Kind, ref keyspace.Ref) (*T, error) {
	key, err := keyspace.Encode(kind, ref)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key.PK, key.SK)
}

func update(ctx context.Context, s dyndb.Store[models.Row], kind keyspace.Kind, ref keyspace.Ref, upd dyndb.Update) error {
	key, err := keyspace.Encode(kind, ref)
	if err != nil {
		return err
	}
	return s.Update(ctx, key.PK, key.SK, upd, dyndb.IfExists())
}

func remove(ctx context.Context, s dyndb.Store[models.Row], kind keyspace.Kind, ref keyspace.Ref, opts ...dyndb.WriteOption) error {
	key, err := keyspace.Encode(kind, ref)
	if err != nil {
		return err
	}
	return s.Delete(ctx, key.PK, key.SK, opts...)
}

// scoped monta a consulta "filhos de um pai". O filtro por tipo é
// obrigatório quando o escopo o define: prefixos de sk1 como "o#" também
// casam com linhas de outros tipos.
func scoped[T any](s dyndb.Store[T], index string, scope keyspace.Scope) *dyndb.QueryBuilder[T] {
	q := s.Query()
	hash, sort := keyspace.AttrPK, keyspace.AttrSK
	if scope.OnIndex {
		q = q.Index(index)
		hash, sort = keyspace.AttrPK1, keyspace.AttrSK1
	}
	q = q.KeyEqual(hash, scope.PK)
	if scope.SKPrefix != "" {
		q = q.KeyBeginsWith(sort, scope.SKPrefix)
	}
	if scope.Kind != "" {
		q = q.FilterEqual(keyspace.AttrType, string(scope.Kind))
	}
	return q
}

func list[T any](ctx context.Context, s dyndb.Store[T], index string, scope keyspace.Scope, scopeErr error) ([]T, error) {
	if scopeErr != nil {
		return nil, scopeErr
	}
	return scoped(s, index, scope).Collect(ctx)
}

// Keys devolve as chaves de todas as linhas do escopo.
func (r *Repository) Keys(ctx context.Context, scope keyspace.Scope) ([]models.Row, error) {
	return scoped(r.rows, r.index, scope).Collect(ctx)
}

// DeleteScope apaga em lote todas as linhas do escopo e devolve quantas
// foram removidas. Se a listagem parar em ErrTruncated, apaga o que foi lido
// e devolve o erro para que o restante seja reprocessado.
func (r *Repository) DeleteScope(ctx context.Context, scope keyspace.Scope) (int, error) {
	rows, listErr := r.Keys(ctx, scope)
	if listErr != nil && !errors.Is(listErr, dyndb.ErrTruncated) {
		return 0, listErr
	}
	if len(rows) == 0 {
		return 0, listErr
	}

	deletes := make([][2]any, 0, len(rows))
	for _, row := range rows {
		deletes = append(deletes, [2]any{row.PK, row.SK})
	}
	if err := r.raw.BatchWrite(ctx, nil, deletes); err != nil {
		return 0, fmt.Errorf("cascade delete %s: %w", scope.PK, err)
	}
	return len(rows), listErr
}

// AdjustCounter soma delta ao contador da linha. Linhas já removidas não são
// recriadas: a falha de condição é ignorada e o retorno indica se houve escrita.
func (r *Repository) AdjustCounter(ctx context.Context, kind keyspace.Kind, ref keyspace.Ref, counter string, delta int64) (bool, error) {
	err := update(ctx, r.rows, kind, ref, dyndb.NewUpdate().Add(counter, delta))
	if errors.Is(err, dyndb.ErrConditionFailed) {
		return false, nil
	}
	return err == nil, err
}

// Patch aplica a atualização a uma linha existente, identificada pela chave.
// Linhas removidas nesse meio tempo são ignoradas.
func (r *Repository) Patch(ctx context.Context, row models.Row, upd dyndb.Update) (bool, error) {
	err := r.rows.Update(ctx, row.PK, row.SK, upd, dyndb.IfExists())
	if errors.Is(err, dyndb.ErrConditionFailed) {
		return false, nil
	}
	return err == nil, err
}
